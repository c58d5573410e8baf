package config

type Config struct {
	Server       ServerConfig
	Ollama       OllamaConfig
	Storage      StorageConfig
	Retrieval    RetrievalConfig
	Generation   GenerationConfig
	Chunk        ChunkConfig
	Session      SessionConfig
	Verification VerificationConfig
	Log          LogConfig
}

type ServerConfig struct {
	Port int
	// AuthToken guards the HTTP API when non-empty. Supplied via
	// environment only, never persisted to the config backend.
	AuthToken string
}

type OllamaConfig struct {
	BaseURL    string
	Model      string
	EmbedModel string
}

type StorageConfig struct {
	DataDir string
	// SourceDir is the directory bulk-indexed at server start when the
	// vector index is empty. Empty disables the startup walk.
	SourceDir string
}

type RetrievalConfig struct {
	TopK            int
	MaxContextChars int
}

type ChunkConfig struct {
	Size    int
	Overlap int
}

type SessionConfig struct {
	// MaxAge and SweepInterval are Go duration strings.
	MaxAge        string
	SweepInterval string
	HistoryWindow int
}

type VerificationConfig struct {
	Enabled   bool
	MaxTokens int
}

type LogConfig struct {
	Level string
}

type GenerationConfig struct {
	MaxTokens int
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4400,
		},
		Ollama: OllamaConfig{
			BaseURL:    "http://localhost:11434",
			Model:      "mistral-nemo",
			EmbedModel: "nomic-embed-text",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Retrieval: RetrievalConfig{
			TopK:            5,
			MaxContextChars: 8000,
		},
		Generation: GenerationConfig{
			MaxTokens: 1024,
		},
		Chunk: ChunkConfig{
			Size:    500,
			Overlap: 80,
		},
		Session: SessionConfig{
			MaxAge:        "24h",
			SweepInterval: "1h",
			HistoryWindow: 6,
		},
		Verification: VerificationConfig{
			Enabled:   true,
			MaxTokens: 512,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and
// environment variables.
//
// On macOS the backend is UserDefaults (domain: com.phasecheck.app).
// On Linux the backend is a JSON file at
// $XDG_CONFIG_HOME/phasecheck/config.json.
//
// Environment variables (PHASECHECK_*) override backend values on all
// platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}
