package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds application level configuration aggregated from env/config files.
type Config struct {
	Server struct {
		Addr     string
		LogLevel string
	}
	API struct {
		// BaseURL is the root of the user-profile API.
		BaseURL        string
		AuthScheme     string
		TimeoutSeconds int
	}
	Session struct {
		// Backend is one of memory, sqlite or redis.
		Backend              string
		CookieName           string
		CookieSecure         bool
		TTLMinutes           int
		PurgeIntervalSeconds int
	}
	UI struct {
		LoginPath string
	}
	Database struct {
		Path string
	}
	Redis struct {
		Addr      string
		Password  string
		DB        int
		KeyPrefix string
	}
	DevAPI struct {
		// Enabled mounts a local RealWorld user API under /api.
		Enabled         bool
		JWTSecret       string
		Issuer          string
		TokenTTLMinutes int
	}
}

// Load reads configuration from environment variables and optional config files.
func Load() (Config, error) {
	loadDotEnv()
	return load(viper.New())
}

func load(v *viper.Viper) (Config, error) {
	v.SetEnvPrefix("SETTINGS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server.addr", "0.0.0.0:8080")
	v.SetDefault("server.loglevel", "info")
	v.SetDefault("api.baseurl", "https://api.realworld.io/api")
	v.SetDefault("api.authscheme", "Bearer")
	v.SetDefault("api.timeoutseconds", 0)
	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.cookiename", "settings_session")
	v.SetDefault("session.cookiesecure", false)
	v.SetDefault("session.ttlminutes", 24*60)
	v.SetDefault("session.purgeintervalseconds", 300)
	v.SetDefault("ui.loginpath", "/login")
	v.SetDefault("database.path", "data/settings.db")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.keyprefix", "session:")
	v.SetDefault("devapi.enabled", false)
	v.SetDefault("devapi.jwtsecret", "")
	v.SetDefault("devapi.issuer", "realworld-settings")
	v.SetDefault("devapi.tokenttlminutes", 60*24)

	v.SetConfigName("config")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // optional file

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Session.Backend {
	case "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api base url is required")
	}
	if c.DevAPI.Enabled && strings.TrimSpace(c.DevAPI.JWTSecret) == "" {
		return fmt.Errorf("dev api jwt secret is required")
	}
	return nil
}

func loadDotEnv() {
	file, err := os.Open(".env")
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		partsIndex := strings.Index(line, "=")
		if partsIndex <= 0 {
			continue
		}

		key := strings.TrimSpace(line[:partsIndex])
		value := strings.TrimSpace(line[partsIndex+1:])
		value = strings.Trim(value, `"'`)
		if key == "" {
			continue
		}

		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
}
