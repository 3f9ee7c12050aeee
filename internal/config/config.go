package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address string `yaml:"address"`
	} `yaml:"server"`
	Database struct {
		Driver string `yaml:"driver"`
		URL    string `yaml:"url"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	MercadoPago struct {
		BaseURL         string `yaml:"base_url"`
		AccessToken     string `yaml:"access_token"`
		SuccessBackURL  string `yaml:"success_back_url"`
		FailureBackURL  string `yaml:"failure_back_url"`
		NotificationURL string `yaml:"notification_url"`
	} `yaml:"mercadopago"`
	Storage struct {
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		Region    string `yaml:"region"`
		Endpoint  string `yaml:"endpoint"`
	} `yaml:"storage"`
	Firebase struct {
		CredentialsFile string `yaml:"credentials_file"`
	} `yaml:"firebase"`
	JWT struct {
		Secret string `yaml:"secret"`
	} `yaml:"jwt"`
	Sweeper struct {
		IntervalMinutes int `yaml:"interval_minutes"`
	} `yaml:"sweeper"`
}

// SweepInterval converts the configured minutes into a duration, defaulting
// to hourly.
func (c Config) SweepInterval() time.Duration {
	if c.Sweeper.IntervalMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.Sweeper.IntervalMinutes) * time.Minute
}

// LoadConfig reads the yaml file named by CONFIG_PATH (config/config.yaml by
// default) and applies environment overrides for the secrets.
func LoadConfig() Config {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("Failed to unmarshal config data: %v", err)
	}

	overrideFromEnv(&cfg.Database.URL, "DATABASE_URL")
	overrideFromEnv(&cfg.Redis.Addr, "REDIS_ADDR")
	overrideFromEnv(&cfg.Redis.Password, "REDIS_PASSWORD")
	overrideFromEnv(&cfg.MercadoPago.AccessToken, "MP_ACCESS_TOKEN")
	overrideFromEnv(&cfg.Storage.AccessKey, "STORAGE_ACCESS_KEY")
	overrideFromEnv(&cfg.Storage.SecretKey, "STORAGE_SECRET_KEY")
	overrideFromEnv(&cfg.JWT.Secret, "JWT_SECRET")

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "mysql"
	}
	return cfg
}

func overrideFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
