package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/provetch/phasecheck/internal/config"
	"github.com/provetch/phasecheck/internal/phase"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question against the indexed documents",
	Long: `Ask a question against the indexed documents.

Examples:
  phasecheck ask "Does the login flow meet the stated requirements?"
  phasecheck ask --phase testing "Are the edge cases covered?"
  phasecheck ask --session 4f1c... "What about rollback?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		question := strings.Join(args, " ")
		phaseName, _ := cmd.Flags().GetString("phase")
		sessionID, _ := cmd.Flags().GetString("session")
		noVerify, _ := cmd.Flags().GetBool("no-verify")

		if phaseName != "" && phaseName != phase.Auto && !phase.Known(phaseName) {
			return fmt.Errorf("unknown phase %q (valid: %s, auto)", phaseName, strings.Join(phase.Names(), ", "))
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{
			"question":   question,
			"phase":      phaseName,
			"session_id": sessionID,
		}
		if noVerify {
			req["verify"] = false
		}

		resp, err := client.post(cmd.Context(), "/ask", req)
		if err != nil {
			return err
		}

		var result struct {
			SessionID string `json:"session_id"`
			Answer    string `json:"answer"`
			Phase     struct {
				Name string `json:"name"`
			} `json:"phase"`
			Verdict *struct {
				PassFail        string  `json:"pass_fail"`
				ComplianceScore float64 `json:"compliance_score"`
				RiskLevel       string  `json:"risk_level"`
				Explanation     string  `json:"explanation"`
			} `json:"verdict"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Answer)
		if result.Verdict != nil {
			printStatus("Verdict", "%s (score %.2f, risk %s)",
				result.Verdict.PassFail, result.Verdict.ComplianceScore, result.Verdict.RiskLevel)
			if result.Verdict.Explanation != "" {
				printStatus("Why", "%s", result.Verdict.Explanation)
			}
		}
		printStatus("Session", "%s (phase %s)", result.SessionID, result.Phase.Name)
		return nil
	},
}

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Index a document into the knowledge base",
	Long: `Index a document into the knowledge base.

The file's lifecycle phase is detected from its name and content, and
later questions in the same session default to that phase.

Examples:
  phasecheck upload ./docs/requirements_v2.md
  phasecheck upload --session 4f1c... ./design/architecture.md`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		sessionID, _ := cmd.Flags().GetString("session")

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.postFile(cmd.Context(), "/upload", "file", filepath.Base(path), data,
			map[string]string{"session_id": sessionID})
		if err != nil {
			return err
		}

		var result struct {
			SessionID     string `json:"session_id"`
			DetectedPhase string `json:"detected_phase"`
			ChunkCount    int    `json:"chunk_count"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Indexed %s (%d chunks, phase: %s)", filepath.Base(path), result.ChunkCount, result.DetectedPhase)
		printStatus("Session", "%s", result.SessionID)
		return nil
	},
}

// --- index ---

var indexCmd = &cobra.Command{
	Use:   "index <directory>",
	Short: "Bulk-index every supported file under a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Indexing %s", dir)
		resp, err := client.post(cmd.Context(), "/index", map[string]string{"path": dir})
		if err != nil {
			return err
		}

		var result struct {
			Files   int `json:"files"`
			Chunks  int `json:"chunks"`
			Skipped int `json:"skipped"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Indexed %d files (%d chunks, %d skipped)", result.Files, result.Chunks, result.Skipped)
		return nil
	},
}

// --- uploads ---

var uploadsCmd = &cobra.Command{
	Use:   "uploads",
	Short: "List indexed uploads",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/uploads?limit=%d", limit))
		if err != nil {
			return err
		}

		var uploads []struct {
			Filename    string `json:"filename"`
			ContentType string `json:"content_type"`
			ChunkCount  int    `json:"chunk_count"`
			SessionID   string `json:"session_id"`
		}
		if err := decodeJSON(resp, &uploads); err != nil {
			return err
		}

		if len(uploads) == 0 {
			fmt.Println("no uploads")
			return nil
		}
		for _, u := range uploads {
			fmt.Printf("%s  type=%s chunks=%d session=%s\n", u.Filename, u.ContentType, u.ChunkCount, u.SessionID)
		}
		return nil
	},
}

// --- sessions ---

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage analysis sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/sessions")
		if err != nil {
			return err
		}

		var infos []struct {
			ID    string   `json:"id"`
			Turns int      `json:"turns"`
			Files []string `json:"files"`
			Phase string   `json:"phase"`
		}
		if err := decodeJSON(resp, &infos); err != nil {
			return err
		}

		if len(infos) == 0 {
			fmt.Println("no live sessions")
			return nil
		}
		for _, info := range infos {
			phaseName := info.Phase
			if phaseName == "" {
				phaseName = "-"
			}
			fmt.Printf("%s  turns=%d files=%d phase=%s\n", info.ID, info.Turns, len(info.Files), phaseName)
		}
		return nil
	},
}

var sessionsHistoryCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show a session's conversation history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/sessions/"+args[0]+"/history")
		if err != nil {
			return err
		}

		var turns []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		}
		if err := decodeJSON(resp, &turns); err != nil {
			return err
		}

		for _, t := range turns {
			fmt.Printf("%s: %s\n\n", t.Role, t.Content)
		}
		return nil
	},
}

var sessionsClearCmd = &cobra.Command{
	Use:   "clear <id>",
	Short: "Discard a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/sessions/"+args[0])
		if err != nil {
			return err
		}

		var result map[string]any
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Cleared session %s", args[0])
		return nil
	},
}

var sessionsSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove sessions idle longer than --max-age",
	RunE: func(cmd *cobra.Command, args []string) error {
		maxAge, _ := cmd.Flags().GetString("max-age")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/sessions/sweep", map[string]string{"max_age": maxAge})
		if err != nil {
			return err
		}

		var result struct {
			Removed int `json:"removed"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Removed %d idle sessions", result.Removed)
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, info := range config.ShowAll(cfg) {
			fmt.Printf("%-32s %s\n", info.Key, info.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a config key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetKey(args[0], args[1]); err != nil {
			return err
		}
		printSuccess("Set %s = %s", args[0], args[1])
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a persisted config key so the default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List valid config keys",
	Run: func(cmd *cobra.Command, args []string) {
		for _, k := range config.ValidKeys() {
			fmt.Println(k)
		}
	},
}

func init() {
	askCmd.Flags().String("phase", "", "lifecycle phase override (requirements, design, development, testing, deployment, maintenance, auto)")
	askCmd.Flags().String("session", "", "session ID to continue")
	askCmd.Flags().Bool("no-verify", false, "skip the verification pass")

	uploadCmd.Flags().String("session", "", "session ID to attach the upload to")

	uploadsCmd.Flags().Int("limit", 50, "maximum uploads to list")

	sessionsSweepCmd.Flags().String("max-age", "24h", "idle age beyond which sessions are removed")
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsHistoryCmd)
	sessionsCmd.AddCommand(sessionsClearCmd)
	sessionsCmd.AddCommand(sessionsSweepCmd)

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configKeysCmd)
}
