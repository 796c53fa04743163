package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig   `mapstructure:"server" json:"server"`
	Database    DatabaseConfig `mapstructure:"database" json:"database"`
	Log         LogConfig      `mapstructure:"log" json:"log"`
	Stream      StreamConfig   `mapstructure:"stream" json:"stream"`
	Models      []ModelConfig  `mapstructure:"models" json:"models"`
	Apps        []AppConfig    `mapstructure:"apps" json:"apps"`
	DefaultUser string         `mapstructure:"default_user" json:"default_user"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host" json:"host"`
	Port        int    `mapstructure:"port" json:"port"`
	CORSOrigins string `mapstructure:"cors_origins" json:"cors_origins"`
	RateLimit   int    `mapstructure:"rate_limit" json:"rate_limit"`

	// WidgetIdleTimeout tears down widget instances nobody used for this long.
	WidgetIdleTimeout time.Duration `mapstructure:"widget_idle_timeout" json:"widget_idle_timeout"`
}

// DatabaseConfig selects the session medium. Driver is one of sqlite3,
// postgres, pgx or memory; Path is only used by sqlite3.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver" json:"driver"`
	Path     string `mapstructure:"path" json:"path"`
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"password" json:"password"`
	Database string `mapstructure:"database" json:"database"`
	SSLMode  string `mapstructure:"sslmode" json:"sslmode"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// StreamConfig tunes the completion client.
type StreamConfig struct {
	ImagePrompt string        `mapstructure:"image_prompt" json:"image_prompt"`
	Timeout     time.Duration `mapstructure:"timeout" json:"timeout"`
}

// ModelConfig describes one OpenAI-compatible completion endpoint.
type ModelConfig struct {
	ID        string `mapstructure:"id" json:"id"`
	ServerURL string `mapstructure:"server_url" json:"server_url"`
	ModelName string `mapstructure:"model_name" json:"model_name"`
	APIPath   string `mapstructure:"api_path" json:"api_path"`
	APIKey    string `mapstructure:"api_key" json:"api_key,omitempty"`
}

// AppConfig is a persona preset whose prompt seeds every session of the app.
type AppConfig struct {
	ID          string `mapstructure:"id" json:"id"`
	Index       int    `mapstructure:"index" json:"index"`
	Name        string `mapstructure:"name" json:"name"`
	Description string `mapstructure:"description" json:"description"`
	Prompt      string `mapstructure:"prompt" json:"prompt"`
	Img         string `mapstructure:"img" json:"img"`
}

const (
	DefaultUser        = "default_user"
	DefaultAPIPath     = "/v1/chat/completions"
	DefaultImagePrompt = "Please describe the content of the image."
)

var validDrivers = map[string]bool{
	"sqlite3":  true,
	"postgres": true,
	"pgx":      true,
	"memory":   true,
}

// Load reads config.json from the usual locations and falls back to the
// built-in defaults when no file exists.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")

	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	homeDir, err := os.UserHomeDir()
	if err == nil {
		v.AddConfigPath(filepath.Join(homeDir, ".chatwidget"))
	}

	return load(v)
}

// LoadFile reads the configuration from an explicit path.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("CHATWIDGET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	defaults := createDefaultConfig()
	if len(cfg.Models) == 0 {
		cfg.Models = defaults.Models
	}
	if len(cfg.Apps) == 0 && !v.IsSet("apps") {
		cfg.Apps = defaults.Apps
	}
	for i := range cfg.Models {
		if cfg.Models[i].APIPath == "" {
			cfg.Models[i].APIPath = DefaultAPIPath
		}
	}

	loadEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.cors_origins", "*")
	v.SetDefault("server.rate_limit", 60)
	v.SetDefault("server.widget_idle_timeout", 30*time.Minute)
	v.SetDefault("database.driver", "sqlite3")
	v.SetDefault("database.path", "chatwidget.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "chatwidget")
	v.SetDefault("database.database", "chatwidget")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("stream.image_prompt", DefaultImagePrompt)
	v.SetDefault("stream.timeout", 5*time.Minute)
	v.SetDefault("default_user", DefaultUser)
}

func createDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "localhost",
			Port:        3000,
			CORSOrigins: "*",
			RateLimit:   60,

			WidgetIdleTimeout: 30 * time.Minute,
		},
		Database: DatabaseConfig{
			Driver:   "sqlite3",
			Path:     "chatwidget.db",
			Host:     "localhost",
			Port:     5432,
			User:     "chatwidget",
			Database: "chatwidget",
			SSLMode:  "disable",
		},
		Log: LogConfig{Level: "info", Format: "text"},
		Stream: StreamConfig{
			ImagePrompt: DefaultImagePrompt,
			Timeout:     5 * time.Minute,
		},
		Models: []ModelConfig{
			{
				ID:        "a8c8a08a922f11f0923e0242ac190006",
				ServerURL: "http://localhost:8000",
				ModelName: "Qwen3-8B",
				APIPath:   DefaultAPIPath,
			},
			{
				ID:        "b94451f2922f11f0aaee0242ac190006",
				ServerURL: "http://localhost:8001",
				ModelName: "Qwen2.5-7B-Instruct",
				APIPath:   DefaultAPIPath,
			},
		},
		Apps: []AppConfig{
			{
				ID:          "0b14a19f-d5c6-4ae9-aa9f-c57a2b5fac59",
				Index:       0,
				Name:        "Programming Assistant",
				Description: "Answers programming questions.",
				Prompt:      "You are a professional programming assistant. Answer the user's programming questions accurately.",
				Img:         "https://cdn-icons-png.flaticon.com/128/6601/6601223.png",
			},
			{
				ID:          "b5db9320-17f4-4a55-bcae-53e73f26d395",
				Index:       1,
				Name:        "Lyricist",
				Description: "Writes song lyrics on request.",
				Prompt:      "You are a professional lyricist. Write song lyrics that match the user's request.",
			},
		},
		DefaultUser: DefaultUser,
	}
}

func loadEnvOverrides(cfg *Config) {
	if dbHost := os.Getenv("POSTGRES_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("POSTGRES_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			cfg.Database.Port = port
		}
	}
	if dbUser := os.Getenv("POSTGRES_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPassword := os.Getenv("POSTGRES_PASSWORD"); dbPassword != "" {
		cfg.Database.Password = dbPassword
	}
	if dbName := os.Getenv("POSTGRES_DB"); dbName != "" {
		cfg.Database.Database = dbName
	}
}

// Validate checks the parts of the configuration the engine cannot run without.
func (c *Config) Validate() error {
	if !validDrivers[c.Database.Driver] {
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if len(c.Models) == 0 {
		return errors.New("at least one model must be configured")
	}

	seen := make(map[string]bool)
	for _, m := range c.Models {
		if m.ID == "" || m.ServerURL == "" || m.ModelName == "" {
			return fmt.Errorf("model %q requires id, server_url and model_name", m.ID)
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate model id %q", m.ID)
		}
		seen[m.ID] = true
	}

	seen = make(map[string]bool)
	for _, a := range c.Apps {
		if a.ID == "" {
			return errors.New("app id must not be empty")
		}
		if seen[a.ID] {
			return fmt.Errorf("duplicate app id %q", a.ID)
		}
		seen[a.ID] = true
	}
	return nil
}

// Model returns the model with the given id.
func (c *Config) Model(id string) (ModelConfig, bool) {
	for _, m := range c.Models {
		if m.ID == id {
			return m, true
		}
	}
	return ModelConfig{}, false
}

// App returns the app with the given id.
func (c *Config) App(id string) (AppConfig, bool) {
	for _, a := range c.Apps {
		if a.ID == id {
			return a, true
		}
	}
	return AppConfig{}, false
}

// DefaultModel is the first configured model.
func (c *Config) DefaultModel() ModelConfig {
	if len(c.Models) == 0 {
		return ModelConfig{}
	}
	return c.Models[0]
}
