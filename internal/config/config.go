package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type EngineConfig struct {
	Name      string `yaml:"name"`
	BaseURL   string `yaml:"baseURL"`
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"apiKeyEnv"`
}

// APIKey resolves the key from the configured environment variable.
// Keys never live in the config file itself.
func (e EngineConfig) APIKey() string {
	if e.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(e.APIKeyEnv)
}

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | none
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Minio struct {
		Enabled    bool   `yaml:"enabled"`
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	Engines struct {
		Primary                EngineConfig `yaml:"primary"`
		Fallback               EngineConfig `yaml:"fallback"`
		TimeoutSeconds         int          `yaml:"timeoutSeconds"`
		LowConfidenceThreshold float64      `yaml:"lowConfidenceThreshold"`
	} `yaml:"engines"`

	Pipeline struct {
		AbnormalPenalty    int     `yaml:"abnormalPenalty"`
		CriticalPenalty    int     `yaml:"criticalPenalty"`
		LowRiskFloor       int     `yaml:"lowRiskFloor"`
		ModerateRiskFloor  int     `yaml:"moderateRiskFloor"`
		HighRiskFloor      int     `yaml:"highRiskFloor"`
		UnknownUnitPenalty float64 `yaml:"unknownUnitPenalty"`
		OCRConfidenceFloor float64 `yaml:"ocrConfidenceFloor"`
		ReferencePath      string  `yaml:"referencePath"` // empty = embedded defaults
	} `yaml:"pipeline"`

	Cache struct {
		MaxEntries int `yaml:"maxEntries"`
		TTLMinutes int `yaml:"ttlMinutes"`
	} `yaml:"cache"`

	RateLimit struct {
		Capacity     int `yaml:"capacity"`
		RefillPerSec int `yaml:"refillPerSec"`
	} `yaml:"rateLimit"`
}

// Load reads the config file and fills in service defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "none"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Engines.TimeoutSeconds <= 0 {
		c.Engines.TimeoutSeconds = 45
	}
	if c.Engines.LowConfidenceThreshold <= 0 {
		c.Engines.LowConfidenceThreshold = 0.5
	}
	if c.Pipeline.AbnormalPenalty <= 0 {
		c.Pipeline.AbnormalPenalty = 12
	}
	if c.Pipeline.CriticalPenalty <= 0 {
		c.Pipeline.CriticalPenalty = 25
	}
	if c.Pipeline.LowRiskFloor <= 0 {
		c.Pipeline.LowRiskFloor = 85
	}
	if c.Pipeline.ModerateRiskFloor <= 0 {
		c.Pipeline.ModerateRiskFloor = 60
	}
	if c.Pipeline.HighRiskFloor <= 0 {
		c.Pipeline.HighRiskFloor = 35
	}
	if c.Pipeline.UnknownUnitPenalty <= 0 {
		c.Pipeline.UnknownUnitPenalty = 0.1
	}
	if c.Pipeline.OCRConfidenceFloor <= 0 {
		c.Pipeline.OCRConfidenceFloor = 0.4
	}
	if c.Cache.MaxEntries <= 0 {
		c.Cache.MaxEntries = 1024
	}
	if c.Cache.TTLMinutes <= 0 {
		c.Cache.TTLMinutes = 60
	}
	if c.RateLimit.Capacity <= 0 {
		c.RateLimit.Capacity = 30
	}
	if c.RateLimit.RefillPerSec <= 0 {
		c.RateLimit.RefillPerSec = 5
	}
}

// MySQLDSN builds the MySQL connection string.
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// PostgresDSN builds the Postgres connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}
