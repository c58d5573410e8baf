package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "PHASECHECK_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.auth_token", typ: kString, env: "PHASECHECK_AUTH_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.AuthToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.AuthToken },
	},
	{
		key: "ollama.base_url", typ: kString, env: "PHASECHECK_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.model", typ: kString, env: "PHASECHECK_OLLAMA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.Model },
	},
	{
		key: "ollama.embed_model", typ: kString, env: "PHASECHECK_OLLAMA_EMBED_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.EmbedModel = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.EmbedModel },
	},
	{
		key: "storage.data_dir", typ: kString, env: "PHASECHECK_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.source_dir", typ: kString, env: "PHASECHECK_STORAGE_SOURCE_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.SourceDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.SourceDir },
	},
	{
		key: "retrieval.top_k", typ: kInt, env: "PHASECHECK_RETRIEVAL_TOP_K",
		apply:   func(cfg *Config, v any) { cfg.Retrieval.TopK = v.(int) },
		extract: func(cfg Config) any { return cfg.Retrieval.TopK },
	},
	{
		key: "retrieval.max_context_chars", typ: kInt, env: "PHASECHECK_RETRIEVAL_MAX_CONTEXT_CHARS",
		apply:   func(cfg *Config, v any) { cfg.Retrieval.MaxContextChars = v.(int) },
		extract: func(cfg Config) any { return cfg.Retrieval.MaxContextChars },
	},
	{
		key: "generation.max_tokens", typ: kInt, env: "PHASECHECK_GENERATION_MAX_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Generation.MaxTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Generation.MaxTokens },
	},
	{
		key: "chunk.size", typ: kInt, env: "PHASECHECK_CHUNK_SIZE",
		apply:   func(cfg *Config, v any) { cfg.Chunk.Size = v.(int) },
		extract: func(cfg Config) any { return cfg.Chunk.Size },
	},
	{
		key: "chunk.overlap", typ: kInt, env: "PHASECHECK_CHUNK_OVERLAP",
		apply:   func(cfg *Config, v any) { cfg.Chunk.Overlap = v.(int) },
		extract: func(cfg Config) any { return cfg.Chunk.Overlap },
	},
	{
		key: "session.max_age", typ: kString, env: "PHASECHECK_SESSION_MAX_AGE",
		apply:   func(cfg *Config, v any) { cfg.Session.MaxAge = v.(string) },
		extract: func(cfg Config) any { return cfg.Session.MaxAge },
	},
	{
		key: "session.sweep_interval", typ: kString, env: "PHASECHECK_SESSION_SWEEP_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Session.SweepInterval = v.(string) },
		extract: func(cfg Config) any { return cfg.Session.SweepInterval },
	},
	{
		key: "session.history_window", typ: kInt, env: "PHASECHECK_SESSION_HISTORY_WINDOW",
		apply:   func(cfg *Config, v any) { cfg.Session.HistoryWindow = v.(int) },
		extract: func(cfg Config) any { return cfg.Session.HistoryWindow },
	},
	{
		key: "verification.enabled", typ: kBool, env: "PHASECHECK_VERIFICATION_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Verification.Enabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Verification.Enabled },
	},
	{
		key: "verification.max_tokens", typ: kInt, env: "PHASECHECK_VERIFICATION_MAX_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.Verification.MaxTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.Verification.MaxTokens },
	},
	{
		key: "log.level", typ: kString, env: "PHASECHECK_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
