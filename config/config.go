package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Goals holds the per-day production targets used by the goal balance.
type Goals struct {
	CapinaPerDay  float64 `yaml:"capina_per_day"`
	RocagemPerDay float64 `yaml:"rocagem_per_day"`
}

// Geocoding holds the base URLs of the third-party lookup services.
type Geocoding struct {
	NominatimURL    string        `yaml:"nominatim_url"`
	OverpassURL     string        `yaml:"overpass_url"`
	UserAgent       string        `yaml:"user_agent"`
	SearchTimeout   time.Duration `yaml:"search_timeout"`
	ReverseTimeout  time.Duration `yaml:"reverse_timeout"`
	OverpassTimeout time.Duration `yaml:"overpass_timeout"`
	NearbyRadiusM   int           `yaml:"nearby_radius_m"`
}

type S3 struct {
	Bucket    string `yaml:"bucket"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	PublicURL string `yaml:"public_url"`
}

func (s S3) Enabled() bool {
	return s.Bucket != "" && s.AccessKey != "" && s.SecretKey != ""
}

// Config is the whole service configuration. Values come from the YAML file
// named by CONFIG_FILE (optional), then environment variables override them.
type Config struct {
	Port        string `yaml:"port"`
	GinMode     string `yaml:"gin_mode"`
	DBDriver    string `yaml:"db_driver"`
	DatabaseDSN string `yaml:"database_dsn"`
	JWTSecret   string `yaml:"jwt_secret"`
	LogLevel    string `yaml:"log_level"`

	// AdminFunctionsEnabled allows the privileged delete of user accounts.
	AdminFunctionsEnabled bool `yaml:"admin_functions_enabled"`

	AllowedOrigins []string `yaml:"allowed_origins"`
	Teams          []string `yaml:"teams"`
	UploadDir      string   `yaml:"upload_dir"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	ChangePollInterval time.Duration `yaml:"change_poll_interval"`

	Goals     Goals     `yaml:"goals"`
	Geocoding Geocoding `yaml:"geocoding"`
	S3        S3        `yaml:"s3"`
}

// DefaultTeams is the team list offered when none is configured.
var DefaultTeams = []string{
	"S01", "S02", "S03", "S04", "S05", "S06", "S07", "S08", "S09", "S10",
	"S11", "S12", "S13", "S14", "S15", "S16", "S17", "S18", "S19", "S20",
}

func Default() *Config {
	return &Config{
		Port:               "8080",
		GinMode:            "debug",
		DBDriver:           "sqlite",
		DatabaseDSN:        "rd.db",
		LogLevel:           "info",
		AllowedOrigins:     []string{"http://localhost:5173", "http://127.0.0.1:5500"},
		Teams:              DefaultTeams,
		UploadDir:          "public/uploads",
		ChangePollInterval: 500 * time.Millisecond,
		Goals: Goals{
			CapinaPerDay:  1950,
			RocagemPerDay: 1000,
		},
		Geocoding: Geocoding{
			NominatimURL:    "https://nominatim.openstreetmap.org",
			OverpassURL:     "https://overpass-api.de/api/interpreter",
			UserAgent:       "rd-dashboard/1.0",
			SearchTimeout:   10 * time.Second,
			ReverseTimeout:  10 * time.Second,
			OverpassTimeout: 25 * time.Second,
			NearbyRadiusM:   500,
		},
		S3: S3{Bucket: "rd-photos", Region: "us-east-1"},
	}
}

// Load reads .env (when present), the optional YAML file and the
// environment, in that order of increasing precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.GinMode = getEnv("GIN_MODE", c.GinMode)
	c.DBDriver = getEnv("DB_DRIVER", c.DBDriver)
	c.DatabaseDSN = getEnv("DATABASE_DSN", c.DatabaseDSN)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.UploadDir = getEnv("UPLOAD_DIR", c.UploadDir)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = getEnvInt("REDIS_DB", c.RedisDB)
	c.AdminFunctionsEnabled = getEnvBool("ADMIN_FUNCTIONS_ENABLED", c.AdminFunctionsEnabled)

	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		c.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("TEAMS"); v != "" {
		c.Teams = splitList(v)
	}

	c.Goals.CapinaPerDay = getEnvFloat("META_CAPINA", c.Goals.CapinaPerDay)
	c.Goals.RocagemPerDay = getEnvFloat("META_ROCAGEM", c.Goals.RocagemPerDay)

	c.Geocoding.NominatimURL = getEnv("NOMINATIM_URL", c.Geocoding.NominatimURL)
	c.Geocoding.OverpassURL = getEnv("OVERPASS_URL", c.Geocoding.OverpassURL)

	c.S3.Bucket = getEnv("S3_BUCKET", c.S3.Bucket)
	c.S3.Endpoint = getEnv("S3_ENDPOINT", c.S3.Endpoint)
	c.S3.Region = getEnv("S3_REGION", c.S3.Region)
	c.S3.AccessKey = getEnv("S3_ACCESS_KEY", c.S3.AccessKey)
	c.S3.SecretKey = getEnv("S3_SECRET_KEY", c.S3.SecretKey)
	c.S3.PublicURL = getEnv("S3_PUBLIC_URL", c.S3.PublicURL)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
