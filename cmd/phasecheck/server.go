package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/provetch/phasecheck/internal/api"
	"github.com/provetch/phasecheck/internal/chunker"
	"github.com/provetch/phasecheck/internal/config"
	"github.com/provetch/phasecheck/internal/engine"
	"github.com/provetch/phasecheck/internal/ingest"
	"github.com/provetch/phasecheck/internal/pipeline"
	"github.com/provetch/phasecheck/internal/retrieval"
	"github.com/provetch/phasecheck/internal/session"
	"github.com/provetch/phasecheck/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the phasecheck server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running phasecheck server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show phasecheck system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "phasecheck.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "phasecheck version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Refuse to double-start: probe the health endpoint before claiming
	// the PID file.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("phasecheck is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("phasecheck is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng := engine.NewOllama(cfg.Ollama.BaseURL, cfg.Ollama.Model, cfg.Ollama.EmbedModel)
	if !eng.IsRunning(ctx) {
		printWarning("Ollama is not reachable at %s; ask and upload will fail until it is", cfg.Ollama.BaseURL)
	}

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	files, err := storage.NewFiles(filepath.Join(cfg.Storage.DataDir, "uploads"))
	if err != nil {
		return fmt.Errorf("opening upload store: %w", err)
	}

	splitter, err := chunker.NewSplitter(cfg.Chunk.Size, cfg.Chunk.Overlap)
	if err != nil {
		return fmt.Errorf("configuring chunker: %w", err)
	}

	vectorStore := retrieval.NewSQLiteStore(store.DB())
	sessions := session.NewStore()

	svc := pipeline.NewService(pipeline.Deps{
		Engine:   eng,
		Vectors:  vectorStore,
		Sessions: sessions,
		Splitter: splitter,
		Files:    files,
		Store:    store,
	}, pipeline.Options{
		TopK:            cfg.Retrieval.TopK,
		MaxContextChars: cfg.Retrieval.MaxContextChars,
		MaxTokens:       cfg.Generation.MaxTokens,
		VerifyMaxTokens: cfg.Verification.MaxTokens,
		Verify:          cfg.Verification.Enabled,
		HistoryWindow:   cfg.Session.HistoryWindow,
	})

	indexer := ingest.New(svc, slog.Default())

	// Bulk-index the source directory on first start with an empty index.
	if cfg.Storage.SourceDir != "" {
		if n, err := vectorStore.Count(); err == nil && n == 0 {
			go func() {
				res, err := indexer.Run(ctx, cfg.Storage.SourceDir)
				if err != nil {
					slog.Error("startup indexing failed", "dir", cfg.Storage.SourceDir, "error", err)
					return
				}
				slog.Info("startup indexing done",
					"dir", cfg.Storage.SourceDir,
					"files", res.Files, "chunks", res.Chunks, "skipped", res.Skipped)
			}()
		}
	}

	// Sweep idle sessions on a fixed interval.
	maxAge, err := time.ParseDuration(cfg.Session.MaxAge)
	if err != nil {
		slog.Warn("invalid session max age, using default 24h", "value", cfg.Session.MaxAge, "error", err)
		maxAge = 24 * time.Hour
	}
	sweepInterval, err := time.ParseDuration(cfg.Session.SweepInterval)
	if err != nil {
		slog.Warn("invalid sweep interval, using default 1h", "value", cfg.Session.SweepInterval, "error", err)
		sweepInterval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := sessions.Sweep(maxAge); removed > 0 {
					slog.Info("swept idle sessions", "removed", removed)
				}
			}
		}
	}()

	handler := api.NewHandler(api.Deps{
		Service: svc,
		Indexer: indexer,
		Token:   cfg.Server.AuthToken,
		Log:     slog.Default(),
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// MCP server over stdio, for agent hosts that spawn the process.
	mcpSrv := api.NewMCPServer(api.MCPDeps{Service: svc})
	stdioSrv := server.NewStdioServer(mcpSrv)
	go func() {
		if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("MCP stdio server error", "error", err)
		}
	}()
	slog.Info("MCP server started (stdio transport)")

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "phasecheck listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("phasecheck is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop phasecheck (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to phasecheck (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		var st struct {
			EngineRunning bool `json:"engine_running"`
			Vectors       int  `json:"vectors"`
			Sessions      int  `json:"sessions"`
			Uploads       int  `json:"uploads"`
		}
		decodeErr := decodeStatusBody(resp, &st)
		switch {
		case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusServiceUnavailable:
			printStatus("Server", "running on port %d", cfg.Server.Port)
			if decodeErr == nil {
				printStatus("Vectors", "%d", st.Vectors)
				printStatus("Sessions", "%d", st.Sessions)
				printStatus("Uploads", "%d", st.Uploads)
			}
		default:
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	ollamaResp, err := client.Get(cfg.Ollama.BaseURL + "/api/version")
	if err != nil {
		printStatus("Ollama", "not running")
	} else {
		ollamaResp.Body.Close()
		printStatus("Ollama", "running at %s", cfg.Ollama.BaseURL)
	}

	printStatus("Model", "%s", cfg.Ollama.Model)
	printStatus("Embed model", "%s", cfg.Ollama.EmbedModel)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

func decodeStatusBody(resp *http.Response, v any) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}
