package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode     string `mapstructure:"mode"`
	Handlers struct {
		Prometheus struct {
			Port string `mapstructure:"port"`
		} `mapstructure:"prometheus"`
	} `mapstructure:"handlers"`
	Repositories struct {
		Postgres struct {
			Host              string `mapstructure:"host"`
			Password          string `mapstructure:"password"`
			Port              string `mapstructure:"port"`
			Username          string `mapstructure:"username"`
			DB                string `mapstructure:"db"`
			SSLMODE           string `mapstructure:"SSLMODE"`
			MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`
	Server struct {
		HTTPPort string        `mapstructure:"HTTPPort"`
		Timeout  time.Duration `mapstructure:"HTTPTimeout"`
	} `mapstructure:"server"`
	Places struct {
		Timezone string        `mapstructure:"timezone"`
		CacheTTL time.Duration `mapstructure:"cacheTTL"`
	} `mapstructure:"places"`
	Admin struct {
		AllowDeleteAll bool   `mapstructure:"allowDeleteAll"`
		JWTSecret      string `mapstructure:"jwtSecret"`
	} `mapstructure:"admin"`
	Gemini struct {
		APIKey            string  `mapstructure:"apiKey"`
		Model             string  `mapstructure:"model"`
		FileSearchStoreID string  `mapstructure:"fileSearchStoreID"`
		RequestsPerSecond float64 `mapstructure:"requestsPerSecond"`
		Burst             int     `mapstructure:"burst"`
	} `mapstructure:"gemini"`
	Narratives struct {
		Dir                string `mapstructure:"dir"`
		MaxUploadBytes     int64  `mapstructure:"maxUploadBytes"`
		RefreshHour        int    `mapstructure:"refreshHour"`
		RefreshConcurrency int    `mapstructure:"refreshConcurrency"`
	} `mapstructure:"narratives"`
	Chat struct {
		SessionTTL time.Duration `mapstructure:"sessionTTL"`
	} `mapstructure:"chat"`
	CORS struct {
		AllowedOrigins []string `mapstructure:"allowedOrigins"`
	} `mapstructure:"cors"`
}

// Location resolves places.timezone, falling back to UTC.
func (c Config) Location() (*time.Location, error) {
	if c.Places.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Places.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid places.timezone %q: %w", c.Places.Timezone, err)
	}
	return loc, nil
}

var envBindings = map[string][]string{
	"mode":                           {"APP_ENV"},
	"server.HTTPPort":                {"PORT"},
	"admin.allowDeleteAll":           {"ALLOW_ADMIN_DELETE_ALL"},
	"admin.jwtSecret":                {"ADMIN_JWT_SECRET"},
	"gemini.apiKey":                  {"GEMINI_API_KEY"},
	"gemini.fileSearchStoreID":       {"FILE_SEARCH_STORE_ID"},
	"repositories.postgres.host":     {"POSTGRES_HOST"},
	"repositories.postgres.port":     {"POSTGRES_PORT"},
	"repositories.postgres.username": {"POSTGRES_USER"},
	"repositories.postgres.password": {"POSTGRES_PASSWORD"},
	"repositories.postgres.db":       {"POSTGRES_DB"},
	"repositories.postgres.SSLMODE":  {"POSTGRES_SSLMODE"},
	"narratives.dir":                 {"NARRATIVES_DIR"},
	"places.timezone":                {"PLACES_TIMEZONE"},
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Config{}, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Mode = strings.ToLower(strings.TrimSpace(config.Mode))
	return config, nil
}
