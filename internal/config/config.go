package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/semsearch/internal/domain"
)

// Backend names for query embedding models.
const (
	BackendONNX   = "onnx"
	BackendOpenAI = "openai"
)

// Config holds the semsearch configuration.
type Config struct {
	HTTP    HTTPConfig             `yaml:"http"`
	Logging LoggingConfig          `yaml:"logging"`
	Corpus  CorpusConfig           `yaml:"corpus"`
	Spaces  map[string]SpaceConfig `yaml:"spaces"`
	Search  SearchConfig           `yaml:"search"`
	Cache   CacheConfig            `yaml:"cache"`
	Models  ModelsConfig           `yaml:"models"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
	// TUIFile receives logs while the terminal UI owns stdout.
	TUIFile string `yaml:"tui_file"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CorpusConfig locates the documents file.
type CorpusConfig struct {
	Path    string        `yaml:"path"`
	Format  string        `yaml:"format"` // csv, parquet (default: from extension)
	Columns ColumnsConfig `yaml:"columns"`
}

// ColumnsConfig overrides the source column names.
type ColumnsConfig struct {
	Title    string `yaml:"title"`
	Author   string `yaml:"author"`
	Subject  string `yaml:"subject"`
	Date     string `yaml:"date"`
	Abstract string `yaml:"abstract"`
}

// SpaceConfig pairs one embedding matrix with the model that encodes queries for it.
type SpaceConfig struct {
	Matrix          string `yaml:"matrix"`
	Manifest        string `yaml:"manifest"`
	TemplateVersion string `yaml:"template_version"`
	// Model and Instruction are used when the matrix has no manifest sidecar.
	Model       string      `yaml:"model"`
	Instruction string      `yaml:"instruction"`
	Normalized  bool        `yaml:"normalized"`
	Backend     string      `yaml:"backend"` // onnx, openai
	ONNX        ONNXConfig  `yaml:"onnx"`
	OpenAI      OpenAIModel `yaml:"openai"`
}

// ONNXConfig describes a local exported model.
type ONNXConfig struct {
	ModelPath     string `yaml:"model_path"`
	TokenizerPath string `yaml:"tokenizer_path"`
	MaxSeqLen     int    `yaml:"max_seq_len"`
	OutputName    string `yaml:"output_name"`
	OutputKind    string `yaml:"output_kind"` // token_embeddings, sentence_embedding
	TokenTypeIDs  bool   `yaml:"token_type_ids"`
	Normalize     bool   `yaml:"normalize"`
}

// OpenAIModel describes a remote OpenAI-compatible embeddings endpoint.
type OpenAIModel struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
}

// SearchConfig holds query defaults.
type SearchConfig struct {
	DefaultK       int `yaml:"default_k"`
	MaxK           int `yaml:"max_k"`
	AbstractBudget int `yaml:"abstract_budget"`
	PreviewLimit   int `yaml:"preview_limit"`
}

// CacheConfig holds the optional Redis query-vector cache settings.
type CacheConfig struct {
	Enabled          bool     `yaml:"enabled"`
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	TTLSec           int      `yaml:"ttl_sec"` // 0 = no expiry
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ModelsConfig holds model lifecycle settings.
type ModelsConfig struct {
	// Warmup loads every model at startup instead of on first query.
	Warmup          bool   `yaml:"warmup"`
	WarmupTimeout   int    `yaml:"warmup_timeout_sec"`
	ONNXLibraryPath string `yaml:"onnx_library_path"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references first.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Logging.TUIFile == "" {
		c.Logging.TUIFile = "semsearch-tui.log"
	}
	if c.Search.DefaultK <= 0 {
		c.Search.DefaultK = 3
	}
	if c.Search.MaxK <= 0 {
		c.Search.MaxK = 50
	}
	if c.Search.AbstractBudget <= 0 {
		c.Search.AbstractBudget = 400
	}
	if c.Search.PreviewLimit <= 0 {
		c.Search.PreviewLimit = 20
	}
	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}
	if c.Models.WarmupTimeout <= 0 {
		c.Models.WarmupTimeout = 300
	}
	for name, s := range c.Spaces {
		if s.Backend == "" {
			s.Backend = BackendONNX
		}
		if s.Backend == BackendONNX && s.ONNX.MaxSeqLen <= 0 {
			s.ONNX.MaxSeqLen = 512
		}
		if s.Backend == BackendONNX && s.ONNX.OutputKind == "" {
			s.ONNX.OutputKind = "token_embeddings"
		}
		c.Spaces[name] = s
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Corpus.Path == "" {
		return errors.New("corpus.path is required")
	}
	switch strings.ToLower(c.Corpus.Format) {
	case "", "csv", "parquet":
	default:
		return fmt.Errorf("corpus.format must be \"csv\" or \"parquet\", got %q", c.Corpus.Format)
	}
	if len(c.Spaces) == 0 {
		return errors.New("spaces.deep and spaces.fast are required")
	}
	seen := make(map[domain.Space]string, len(c.Spaces))
	for name, s := range c.Spaces {
		space, err := domain.ParseSpace(name)
		if err != nil {
			return fmt.Errorf("spaces.%s: unknown embedding space", name)
		}
		if prev, dup := seen[space]; dup {
			return fmt.Errorf("spaces.%s and spaces.%s both configure space %s", prev, name, space)
		}
		seen[space] = name
		if err := s.validate(); err != nil {
			return fmt.Errorf("spaces.%s.%w", name, err)
		}
	}
	for _, space := range domain.AllSpaces {
		if _, ok := seen[space]; !ok {
			return fmt.Errorf("spaces.%s is required", space)
		}
	}
	if c.Search.DefaultK > c.Search.MaxK {
		return fmt.Errorf("search.default_k (%d) exceeds search.max_k (%d)", c.Search.DefaultK, c.Search.MaxK)
	}
	if c.Cache.Enabled && len(c.Cache.Addrs) == 0 {
		return errors.New("cache.addrs is required when cache.enabled is true")
	}
	if c.Cache.TTLSec < 0 {
		return fmt.Errorf("cache.ttl_sec must not be negative, got %d", c.Cache.TTLSec)
	}
	return nil
}

func (s SpaceConfig) validate() error {
	if s.Matrix == "" {
		return errors.New("matrix is required")
	}
	switch s.Backend {
	case BackendONNX:
		if s.ONNX.ModelPath == "" || s.ONNX.TokenizerPath == "" {
			return errors.New("onnx.model_path and onnx.tokenizer_path are required")
		}
		switch s.ONNX.OutputKind {
		case "token_embeddings", "sentence_embedding":
		default:
			return fmt.Errorf("onnx.output_kind must be \"token_embeddings\" or \"sentence_embedding\", got %q",
				s.ONNX.OutputKind)
		}
	case BackendOpenAI:
		if s.OpenAI.Model == "" {
			return errors.New("openai.model is required")
		}
	default:
		return fmt.Errorf("backend must be %q or %q, got %q", BackendONNX, BackendOpenAI, s.Backend)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
