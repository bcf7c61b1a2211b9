package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the complete runtime configuration
type Config struct {
	DataDir     string `mapstructure:"data_dir" yaml:"data_dir"`
	VersionFile string `mapstructure:"version_file" yaml:"version_file"`
	HistoryDB   string `mapstructure:"history_db" yaml:"history_db"`
	SearchesDir string `mapstructure:"searches_dir" yaml:"searches_dir"`
	TablesDir   string `mapstructure:"tables_dir" yaml:"tables_dir"`

	Ontology OntologyConfig `mapstructure:"ontology" yaml:"ontology"`
	Predict  PredictConfig  `mapstructure:"predict" yaml:"predict"`
	Serve    ServeConfig    `mapstructure:"serve" yaml:"serve"`
	Debug    bool           `mapstructure:"debug" yaml:"debug"`
}

// OntologyConfig locates the ontology releases
type OntologyConfig struct {
	LatestURL string `mapstructure:"latest_url" yaml:"latest_url"`
	// ArchiveURL is a fmt template taking the version tag.
	ArchiveURL   string        `mapstructure:"archive_url" yaml:"archive_url"`
	ArchiveIndex string        `mapstructure:"archive_index" yaml:"archive_index"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxAttempts  int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	RetryDelay   time.Duration `mapstructure:"retry_delay" yaml:"retry_delay"`
}

// PredictConfig configures the prediction service client
type PredictConfig struct {
	SubmitURL      string        `mapstructure:"submit_url" yaml:"submit_url"`
	FetchURL       string        `mapstructure:"fetch_url" yaml:"fetch_url"`
	ModelID        int           `mapstructure:"model_id" yaml:"model_id"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	MaxAttempts    int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	Deadline       time.Duration `mapstructure:"deadline" yaml:"deadline"`
}

// ServeConfig configures the read-only HTTP view
type ServeConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "files")
	v.SetDefault("version_file", "")
	v.SetDefault("history_db", "")
	v.SetDefault("searches_dir", "searches_by_year")
	v.SetDefault("tables_dir", "tables")

	v.SetDefault("ontology.latest_url", "https://ftp.ebi.ac.uk/pub/databases/chebi/ontology/chebi.obo")
	v.SetDefault("ontology.archive_url", "https://ftp.ebi.ac.uk/pub/databases/chebi/archive/rel%s/ontology/chebi.obo")
	v.SetDefault("ontology.archive_index", "https://ftp.ebi.ac.uk/pub/databases/chebi/archive/")
	v.SetDefault("ontology.timeout", 10*time.Minute)
	v.SetDefault("ontology.max_attempts", 1)
	v.SetDefault("ontology.retry_delay", 30*time.Second)

	v.SetDefault("predict.submit_url", "https://ochem.eu/modelservice/postModel.do")
	v.SetDefault("predict.fetch_url", "https://ochem.eu/modelservice/fetchModel.do")
	v.SetDefault("predict.model_id", 4)
	v.SetDefault("predict.request_timeout", 30*time.Second)
	v.SetDefault("predict.poll_interval", 60*time.Second)
	v.SetDefault("predict.max_attempts", 30)
	v.SetDefault("predict.deadline", 6*time.Hour)

	v.SetDefault("serve.addr", ":8080")
	v.SetDefault("debug", false)
}

// Load reads configuration from defaults, an optional YAML file, a .env file
// and CHEBI_* environment variables, in increasing precedence.
// An empty path looks for chebi.yaml in the working directory.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CHEBI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("chebi")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.VersionFile == "" {
		cfg.VersionFile = filepath.Join(cfg.DataDir, "ontology_version.txt")
	}
	if cfg.HistoryDB == "" {
		cfg.HistoryDB = filepath.Join(cfg.DataDir, "history.db")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// loadDotEnv reads ./.env into the environment. A missing file is fine; an
// unreadable or unparsable one is an error.
func loadDotEnv() error {
	err := godotenv.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Validate rejects settings the pipelines cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.DataDir == "":
		return fmt.Errorf("config: data_dir is required")
	case c.Ontology.LatestURL == "":
		return fmt.Errorf("config: ontology.latest_url is required")
	case !strings.Contains(c.Ontology.ArchiveURL, "%s"):
		return fmt.Errorf("config: ontology.archive_url must contain %%s")
	case c.Ontology.MaxAttempts < 1:
		return fmt.Errorf("config: ontology.max_attempts must be >= 1")
	case c.Predict.MaxAttempts < 1:
		return fmt.Errorf("config: predict.max_attempts must be >= 1")
	case c.Predict.PollInterval <= 0:
		return fmt.Errorf("config: predict.poll_interval must be positive")
	case c.Predict.RequestTimeout <= 0:
		return fmt.Errorf("config: predict.request_timeout must be positive")
	case c.Predict.Deadline <= 0:
		return fmt.Errorf("config: predict.deadline must be positive")
	}
	return nil
}
