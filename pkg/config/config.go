// Package config holds the complete service configuration. It is loaded once
// at process start; crawl components receive resolved credentials at
// construction and never read the environment themselves.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/commentscope/commentscope/pkg/logging"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config holds complete service configuration
type Config struct {
	Logging   *logging.LogConfig `yaml:"logging"`
	Server    *ServerConfig      `yaml:"server"`
	Temporal  *TemporalConfig    `yaml:"temporal"`
	Crawl     *CrawlConfig       `yaml:"crawl"`
	Instagram *InstagramConfig   `yaml:"instagram"`
	YouTube   *YouTubeConfig     `yaml:"youtube"`
	Corpus    *CorpusConfig      `yaml:"corpus"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TemporalConfig holds workflow engine settings
type TemporalConfig struct {
	HostPort  string `yaml:"host_port"`
	Namespace string `yaml:"namespace"`
	TaskQueue string `yaml:"task_queue"`
}

// CrawlConfig holds settings shared by both platform clients
type CrawlConfig struct {
	// SimilarityThreshold routes comments above this ratio to the
	// near-duplicate corpus.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	// ExclusionPatterns are regex fragments; a match rejects a comment (or
	// a whole post body) before deduplication.
	ExclusionPatterns []string      `yaml:"exclusion_patterns"`
	RequestTimeout    Duration      `yaml:"request_timeout"`
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryDelay        Duration      `yaml:"retry_delay"`
	// MaxVideoWorkers bounds parallel per-video comment fetching for the
	// API-driven source.
	MaxVideoWorkers int `yaml:"max_video_workers"`
	// PolitenessDelay paces consecutive UI navigation steps.
	PolitenessDelay Duration `yaml:"politeness_delay"`
}

// InstagramConfig holds the UI-driven source settings
type InstagramConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	BaseURL  string `yaml:"base_url"`
}

// YouTubeConfig holds the API-driven source settings
type YouTubeConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// CorpusConfig holds output settings
type CorpusConfig struct {
	// OutputDir receives the primary and near-duplicate CSV files.
	OutputDir string `yaml:"output_dir"`
	// PrimaryFile and NearDuplicateFile are file names inside OutputDir.
	PrimaryFile       string `yaml:"primary_file"`
	NearDuplicateFile string `yaml:"near_duplicate_file"`
	// PreparedFile is the normalized, analysis-ready corpus file.
	PreparedFile string `yaml:"prepared_file"`
	// ArchiveRepo, when set, is a git repository path that receives a
	// commit per crawl with the written output files.
	ArchiveRepo string `yaml:"archive_repo"`
}

// Default returns a complete default configuration
func Default() *Config {
	return &Config{
		Logging: logging.DefaultLogConfig(),
		Server: &ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Temporal: &TemporalConfig{
			HostPort:  "localhost:7233",
			Namespace: "default",
			TaskQueue: "commentscope",
		},
		Crawl: &CrawlConfig{
			SimilarityThreshold: 0.5,
			ExclusionPatterns:   []string{`:`, `정답`, `이벤트`},
			RequestTimeout:      Duration(30 * time.Second),
			RetryAttempts:       3,
			RetryDelay:          Duration(2 * time.Second),
			MaxVideoWorkers:     4,
			PolitenessDelay:     Duration(2 * time.Second),
		},
		Instagram: &InstagramConfig{
			BaseURL: "https://www.instagram.com",
		},
		YouTube: &YouTubeConfig{
			BaseURL: "https://www.googleapis.com/youtube/v3",
		},
		Corpus: &CorpusConfig{
			OutputDir:         "./data/dataset",
			PrimaryFile:       "comments.csv",
			NearDuplicateFile: "similar.csv",
			PreparedFile:      "prepared.csv",
		},
	}
}

// Load reads a YAML config file over the defaults, then applies environment
// overrides for credentials.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets secrets come from the environment instead of the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("INSTAGRAM_USERNAME"); v != "" {
		c.Instagram.Username = v
	}
	if v := os.Getenv("INSTAGRAM_PASSWORD"); v != "" {
		c.Instagram.Password = v
	}
	if v := os.Getenv("YOUTUBE_API_KEY"); v != "" {
		c.YouTube.APIKey = v
	}
	if v := os.Getenv("TEMPORAL_HOST"); v != "" {
		c.Temporal.HostPort = v
	}
}

// Validate checks invariants that would otherwise surface mid-crawl.
func (c *Config) Validate() error {
	if c.Crawl.SimilarityThreshold < 0 || c.Crawl.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold %v outside [0,1]", c.Crawl.SimilarityThreshold)
	}
	if c.Crawl.MaxVideoWorkers < 1 {
		return fmt.Errorf("max video workers must be at least 1")
	}
	if c.Corpus.OutputDir == "" {
		return fmt.Errorf("corpus output dir cannot be empty")
	}
	return nil
}
