package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mind-engage/tutorgrade/internal/problem"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode   `mapstructure:"mode"`
	HTTPAddr string `mapstructure:"http_addr"`

	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"` // empty = console only

	StorageBackend string `mapstructure:"storage_backend"` // local|sheets|sql
	DataDir        string `mapstructure:"data_dir"`

	DBDriver string `mapstructure:"db_driver"`
	DBDSN    string `mapstructure:"db_dsn"`

	BlobBasePath string `mapstructure:"blob_base_path"`

	Sheets SheetsConfig `mapstructure:"sheets"`

	// copy graded submissions from the SQL event log into the sheet
	MirrorToSheet  bool          `mapstructure:"mirror_to_sheet"`
	MirrorInterval time.Duration `mapstructure:"mirror_interval"`

	AuthHMACSecret string        `mapstructure:"auth_hmac_secret"`
	TokenTTL       time.Duration `mapstructure:"token_ttl"`
	UsersFile      string        `mapstructure:"users_file"` // static user table, JSON or CSV
	SessionTTL     time.Duration `mapstructure:"session_ttl"`

	CORSOriginsOnline  []string `mapstructure:"cors_origins_online"`
	CORSOriginsOffline []string `mapstructure:"cors_origins_offline"`

	// label a 100% keyword match "Correct!" rather than "Nearly correct!"
	GradingFullMatchCorrect bool `mapstructure:"grading_full_match_correct"`
}

type SheetsConfig struct {
	SpreadsheetID    string        `mapstructure:"spreadsheet_id"`
	CredentialsFile  string        `mapstructure:"credentials_file"`
	ProblemsRange    string        `mapstructure:"problems_range"`
	SubmissionsRange string        `mapstructure:"submissions_range"`
	BaseURL          string        `mapstructure:"base_url"`
	RequestsPerSec   float64       `mapstructure:"requests_per_sec"`
	CacheTTL         time.Duration `mapstructure:"cache_ttl"`
}

// env names per key; kept compatible with the old deployment scripts.
var envNames = map[string]string{
	"mode":                       "MODE",
	"http_addr":                  "HTTP_ADDR",
	"log_level":                  "LOG_LEVEL",
	"log_file":                   "LOG_FILE",
	"storage_backend":            "STORAGE_BACKEND",
	"data_dir":                   "DATA_DIR",
	"db_driver":                  "DB_DRIVER",
	"db_dsn":                     "DB_DSN",
	"blob_base_path":             "BLOB_BASE_PATH",
	"sheets.spreadsheet_id":      "SHEETS_SPREADSHEET_ID",
	"sheets.credentials_file":    "SHEETS_CREDENTIALS_FILE",
	"sheets.problems_range":      "SHEETS_PROBLEMS_RANGE",
	"sheets.submissions_range":   "SHEETS_SUBMISSIONS_RANGE",
	"sheets.base_url":            "SHEETS_BASE_URL",
	"sheets.requests_per_sec":    "SHEETS_REQUESTS_PER_SEC",
	"sheets.cache_ttl":           "SHEETS_CACHE_TTL",
	"mirror_to_sheet":            "MIRROR_TO_SHEET",
	"mirror_interval":            "MIRROR_INTERVAL",
	"auth_hmac_secret":           "AUTH_HMAC_SECRET",
	"token_ttl":                  "TOKEN_TTL",
	"users_file":                 "USERS_FILE",
	"session_ttl":                "SESSION_TTL",
	"cors_origins_online":        "CORS_ORIGINS_ONLINE",
	"cors_origins_offline":       "CORS_ORIGINS_OFFLINE",
	"grading_full_match_correct": "GRADING_FULL_MATCH_CORRECT",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", string(ModeOffline))
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("storage_backend", "local")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_dsn", "")
	v.SetDefault("blob_base_path", "./data/uploads")
	v.SetDefault("sheets.problems_range", "problems!A:N")
	v.SetDefault("sheets.submissions_range", "submissions!A:I")
	v.SetDefault("sheets.requests_per_sec", 1.0)
	v.SetDefault("sheets.cache_ttl", time.Minute)
	v.SetDefault("mirror_to_sheet", false)
	v.SetDefault("mirror_interval", time.Minute)
	v.SetDefault("auth_hmac_secret", "supersecret-dev-key")
	v.SetDefault("token_ttl", 8*time.Hour)
	v.SetDefault("users_file", "")
	v.SetDefault("session_ttl", 4*time.Hour)
	v.SetDefault("cors_origins_online", "https://tutor.example.com")
	v.SetDefault("cors_origins_offline", "http://localhost:3000,http://localhost:8501")
	v.SetDefault("grading_full_match_correct", false)
}

// Load reads defaults, then the optional YAML file at path, then the environment.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	for key, env := range envNames {
		_ = v.BindEnv(key, env)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.CORSOriginsOnline = splitCSV(cfg.CORSOriginsOnline)
	cfg.CORSOriginsOffline = splitCSV(cfg.CORSOriginsOffline)
	if cfg.Mode != ModeOnline {
		cfg.Mode = ModeOffline
	}
	if cfg.Mode == ModeOnline && len(cfg.AuthHMACSecret) < 32 {
		return Config{}, fmt.Errorf("AUTH_HMAC_SECRET is too short (%d chars), need at least 32 in online mode", len(cfg.AuthHMACSecret))
	}
	if cfg.MirrorToSheet && cfg.StorageBackend != "sql" {
		return Config{}, fmt.Errorf("MIRROR_TO_SHEET needs STORAGE_BACKEND=sql, got %q", cfg.StorageBackend)
	}
	return cfg, nil
}

// SheetConfig converts the sheets section into the store's settings.
func (c Config) SheetConfig() problem.SheetConfig {
	return problem.SheetConfig{
		SpreadsheetID:    c.Sheets.SpreadsheetID,
		ProblemsRange:    c.Sheets.ProblemsRange,
		SubmissionsRange: c.Sheets.SubmissionsRange,
		BaseURL:          c.Sheets.BaseURL,
		RequestsPerSec:   c.Sheets.RequestsPerSec,
		CacheTTL:         c.Sheets.CacheTTL,
	}
}

// OpenOptions maps the storage settings onto problem.Open.
func (c Config) OpenOptions() problem.OpenOptions {
	return problem.OpenOptions{
		Backend:         problem.Backend(c.StorageBackend),
		DataDir:         c.DataDir,
		DBDriver:        c.DBDriver,
		DBDSN:           c.DBDSN,
		Sheet:           c.SheetConfig(),
		CredentialsFile: c.Sheets.CredentialsFile,
	}
}

// FromEnv is Load without a config file.
func FromEnv() (Config, error) { return Load("") }

// CORSOrigins returns the allow-list for the current mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

// viper hands comma-joined env values over as a single element.
func splitCSV(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		for _, p := range strings.Split(v, ",") {
			if s := strings.TrimSpace(p); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
