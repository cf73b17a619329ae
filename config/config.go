// Package config defines the mission control configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level mission control configuration.
type Config struct {
	Server     ServerConfig     `json:"server" yaml:"server"`
	Auth       AuthConfig       `json:"auth" yaml:"auth"`
	Webhook    WebhookConfig    `json:"webhook" yaml:"webhook"`
	Database   DatabaseConfig   `json:"database" yaml:"database"`
	Classifier ClassifierConfig `json:"classifier" yaml:"classifier"`
	External   ExternalConfig   `json:"external" yaml:"external"`
	DataDir    string           `json:"data_dir" yaml:"data_dir"`
	LogLevel   string           `json:"log_level" yaml:"log_level"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr        string `json:"addr" yaml:"addr"`             // listen address, e.g., ":3000"
	StaticDir   string `json:"static_dir" yaml:"static_dir"` // built dashboard UI, optional
	UploadDir   string `json:"upload_dir" yaml:"upload_dir"`
	MaxUploadMB int64  `json:"max_upload_mb" yaml:"max_upload_mb"`
}

// AuthConfig controls dashboard authentication. Auth is disabled when
// AdminPass is empty.
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret"`
	AdminUser string `json:"admin_user" yaml:"admin_user"`
	AdminPass string `json:"admin_pass" yaml:"admin_pass"` // bcrypt hash
}

// Enabled reports whether the API requires a bearer token.
func (a AuthConfig) Enabled() bool { return a.AdminPass != "" }

// WebhookConfig controls inbound message ingestion.
type WebhookConfig struct {
	// Secret enables HMAC verification of X-Webhook-Signature when set.
	Secret string `json:"secret" yaml:"secret"`
}

// DatabaseConfig locates the SQLite file.
type DatabaseConfig struct {
	Path string `json:"path" yaml:"path"`
}

// ClassifierConfig holds the ordered project keyword rules. Order matters:
// the first keyword found in a message wins.
type ClassifierConfig struct {
	Projects []ProjectRule `json:"projects" yaml:"projects"`
}

// ProjectRule maps a lower-case keyword to a project id.
type ProjectRule struct {
	Keyword   string `json:"keyword" yaml:"keyword"`
	ProjectID int64  `json:"project_id" yaml:"project_id"`
}

// ExternalConfig configures the subprocess and snapshot adapters.
type ExternalConfig struct {
	Timeout           time.Duration     `json:"timeout" yaml:"timeout"`
	CalendarBin       string            `json:"calendar_bin" yaml:"calendar_bin"`
	CalendarAccounts  []string          `json:"calendar_accounts" yaml:"calendar_accounts"`
	CalendarEnv       map[string]string `json:"calendar_env" yaml:"calendar_env"`
	CronBin           string            `json:"cron_bin" yaml:"cron_bin"`
	PythonBin         string            `json:"python_bin" yaml:"python_bin"`
	PortfolioScript   string            `json:"portfolio_script" yaml:"portfolio_script"`
	Portfolios        []Portfolio       `json:"portfolios" yaml:"portfolios"`
	HealthSnapshot    string            `json:"health_snapshot" yaml:"health_snapshot"`
	PortfolioSnapshot string            `json:"portfolio_snapshot" yaml:"portfolio_snapshot"`
	ThemeSnapshot     string            `json:"theme_snapshot" yaml:"theme_snapshot"`
	DocsAllowedDirs   []string          `json:"docs_allowed_dirs" yaml:"docs_allowed_dirs"`
}

// Portfolio is a themed holdings tab in the portfolio spreadsheet.
type Portfolio struct {
	ID      string `json:"id" yaml:"id"`
	Name    string `json:"name" yaml:"name"`
	SheetID string `json:"sheetId" yaml:"sheet_id"`
	TabName string `json:"tabName" yaml:"tab_name"`
	Color   string `json:"color" yaml:"color"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        ":3000",
			UploadDir:   "./data/uploads",
			MaxUploadMB: 25,
		},
		Auth: AuthConfig{
			AdminUser: "admin",
		},
		Database: DatabaseConfig{
			Path: "./data/mission-control.db",
		},
		Classifier: ClassifierConfig{
			Projects: []ProjectRule{
				{Keyword: "mission control", ProjectID: 1},
				{Keyword: "moto", ProjectID: 2},
				{Keyword: "openclaw", ProjectID: 3},
				{Keyword: "personal", ProjectID: 4},
			},
		},
		External: ExternalConfig{
			Timeout:          15 * time.Second,
			CalendarBin:      "gog",
			CalendarAccounts: []string{"personal"},
			CronBin:          "openclaw",
			PythonBin:        "python3",
			PortfolioScript:  "./scripts/read_portfolio.py",
			Portfolios: []Portfolio{
				{ID: "ai-infra", Name: "AI Infrastructure", TabName: "AI Infra Dashboard", Color: "blue"},
				{ID: "blockchain", Name: "Blockchain", TabName: "Block Chain Dashboard", Color: "purple"},
				{ID: "china", Name: "China", TabName: "China Dashboard", Color: "red"},
			},
			HealthSnapshot:    "./data/shared/garmin/today.json",
			PortfolioSnapshot: "./data/shared/investment/weekly-portfolio-snapshot.json",
			ThemeSnapshot:     "./data/shared/investment/weekly-theme-report.json",
			DocsAllowedDirs:   []string{"./data/docs"},
		},
		DataDir:  "./data",
		LogLevel: "info",
	}
}

// Load reads a YAML config file and returns the parsed configuration with
// environment overrides applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault loads path when it exists and falls back to defaults
// (with env overrides) otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	return cfg, cfg.Validate()
}

// ApplyEnv overlays MC_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("MC_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("MC_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("MC_DATA_DIR"); v != "" {
		c.DataDir = v
		if os.Getenv("MC_DB_PATH") == "" {
			c.Database.Path = filepath.Join(v, "mission-control.db")
		}
		c.Server.UploadDir = filepath.Join(v, "uploads")
	}
	if v := os.Getenv("MC_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("MC_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
}

// Validate reports configuration mistakes that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if c.External.Timeout <= 0 {
		errs = append(errs, errors.New("external.timeout must be positive"))
	}
	seen := make(map[string]bool, len(c.Classifier.Projects))
	for _, r := range c.Classifier.Projects {
		kw := strings.ToLower(strings.TrimSpace(r.Keyword))
		if kw == "" {
			errs = append(errs, errors.New("classifier keyword must not be empty"))
			continue
		}
		if seen[kw] {
			errs = append(errs, fmt.Errorf("duplicate classifier keyword %q", kw))
		}
		seen[kw] = true
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log_level %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

// PortfolioByID returns the configured portfolio with the given id.
func (c *Config) PortfolioByID(id string) (Portfolio, bool) {
	for _, p := range c.External.Portfolios {
		if p.ID == id {
			return p, true
		}
	}
	return Portfolio{}, false
}
