package config

import (
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server struct {
		Port         int           `yaml:"port" default:"8080"`
		Host         string        `yaml:"host" default:"0.0.0.0"`
		ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
		IdleTimeout  time.Duration `yaml:"idle_timeout" default:"60s"`
	} `yaml:"server"`

	Bridge struct {
		Transport   string        `yaml:"transport" default:"local"` // "local" or "redis"
		MaxAttempts int           `yaml:"max_attempts" default:"3"`
		RetryDelay  time.Duration `yaml:"retry_delay" default:"2s"`
		QueueSize   int           `yaml:"queue_size" default:"64"`
	} `yaml:"bridge"`

	Watcher struct {
		Source            string        `yaml:"source" default:"fetch"` // "static", "fetch", "live"
		StartURL          string        `yaml:"start_url"`
		ListingURLPattern string        `yaml:"listing_url_pattern" default:"/jobs?/(view|detail|posting)s?/|/jobs?/[0-9]+"`
		PollInterval      time.Duration `yaml:"poll_interval" default:"1s"`
		SettleDelay       time.Duration `yaml:"settle_delay" default:"3s"`
		UserAgent         string        `yaml:"user_agent"`
		HeadlessMode      bool          `yaml:"headless_mode" default:"true"`
	} `yaml:"watcher"`

	Cache struct {
		Capacity int           `yaml:"capacity" default:"50"`
		TTL      time.Duration `yaml:"ttl" default:"24h"`
	} `yaml:"cache"`

	Backend struct {
		BaseURL   string        `yaml:"base_url" default:"http://localhost:8090"`
		Timeout   time.Duration `yaml:"timeout" default:"30s"`
		RateLimit int           `yaml:"rate_limit" default:"30"` // requests per minute
		Burst     int           `yaml:"burst" default:"5"`
	} `yaml:"backend"`

	Notifications struct {
		MinScore int `yaml:"min_score" default:"80"`
	} `yaml:"notifications"`

	Logging struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`

		Adapters []struct {
			Name    string                 `yaml:"name"`
			Type    string                 `yaml:"type"`
			Enabled bool                   `yaml:"enabled"`
			Options map[string]interface{} `yaml:"options"`
		} `yaml:"adapters"`
	} `yaml:"logging"`

	Redis struct {
		URL      string        `yaml:"url" default:"redis://localhost:6379"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db" default:"0"`
		Timeout  time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"redis"`
}

// expandEnvVars expands environment variables in a string using ${VAR} or $VAR syntax
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	s = re.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	re2 := regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	s = re2.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[1:]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match
	})

	return s
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	// Load .env file if it exists (ignore errors if file doesn't exist)
	_ = godotenv.Load()

	config := &Config{}

	// Set defaults
	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 30 * time.Second
	config.Server.IdleTimeout = 60 * time.Second

	config.Bridge.Transport = "local"
	config.Bridge.MaxAttempts = 3
	config.Bridge.RetryDelay = 2 * time.Second
	config.Bridge.QueueSize = 64

	config.Watcher.Source = "fetch"
	config.Watcher.ListingURLPattern = `/jobs?/(view|detail|posting)s?/|/jobs?/[0-9]+`
	config.Watcher.PollInterval = 1 * time.Second
	config.Watcher.SettleDelay = 3 * time.Second
	config.Watcher.HeadlessMode = true
	config.Watcher.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	config.Cache.Capacity = 50
	config.Cache.TTL = 24 * time.Hour

	config.Backend.BaseURL = "http://localhost:8090"
	config.Backend.Timeout = 30 * time.Second
	config.Backend.RateLimit = 30
	config.Backend.Burst = 5

	config.Notifications.MinScore = 80

	config.Logging.Level = "info"
	config.Logging.Format = "json"
	config.Logging.Output = "stdout"

	config.Redis.URL = "redis://localhost:6379"
	config.Redis.DB = 0
	config.Redis.Timeout = 5 * time.Second

	// Load from YAML file if it exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			yamlContent := expandEnvVars(string(data))

			if err := yaml.Unmarshal([]byte(yamlContent), config); err != nil {
				return nil, err
			}
		}
	}

	// Override with environment variables
	config.loadFromEnv()

	return config, nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if transport := os.Getenv("BRIDGE_TRANSPORT"); transport != "" {
		c.Bridge.Transport = transport
	}

	if attempts := os.Getenv("BRIDGE_MAX_ATTEMPTS"); attempts != "" {
		if n, err := strconv.Atoi(attempts); err == nil {
			c.Bridge.MaxAttempts = n
		}
	}

	if delay := os.Getenv("BRIDGE_RETRY_DELAY"); delay != "" {
		if d, err := time.ParseDuration(delay); err == nil {
			c.Bridge.RetryDelay = d
		}
	}

	if source := os.Getenv("WATCHER_SOURCE"); source != "" {
		c.Watcher.Source = source
	}

	if startURL := os.Getenv("WATCHER_START_URL"); startURL != "" {
		c.Watcher.StartURL = startURL
	}

	if pattern := os.Getenv("WATCHER_LISTING_URL_PATTERN"); pattern != "" {
		c.Watcher.ListingURLPattern = pattern
	}

	if settle := os.Getenv("WATCHER_SETTLE_DELAY"); settle != "" {
		if d, err := time.ParseDuration(settle); err == nil {
			c.Watcher.SettleDelay = d
		}
	}

	if capacity := os.Getenv("CACHE_CAPACITY"); capacity != "" {
		if n, err := strconv.Atoi(capacity); err == nil {
			c.Cache.Capacity = n
		}
	}

	if ttl := os.Getenv("CACHE_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			c.Cache.TTL = d
		}
	}

	if baseURL := os.Getenv("BACKEND_BASE_URL"); baseURL != "" {
		c.Backend.BaseURL = baseURL
	}

	if timeout := os.Getenv("BACKEND_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			c.Backend.Timeout = d
		}
	}

	if minScore := os.Getenv("NOTIFICATIONS_MIN_SCORE"); minScore != "" {
		if n, err := strconv.Atoi(minScore); err == nil {
			c.Notifications.MinScore = n
		}
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
	}

	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		c.Redis.Password = redisPassword
	}

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			c.Redis.DB = db
		}
	}

	if redisTimeout := os.Getenv("REDIS_TIMEOUT"); redisTimeout != "" {
		if timeout, err := time.ParseDuration(redisTimeout); err == nil {
			c.Redis.Timeout = timeout
		}
	}
}
