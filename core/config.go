package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName      string
		Build        string
		Env          string // DEV (local; default), TEST, QA, PROD
		Debug        bool
		TestMode     bool
		WorkDir      string
		RollbarToken string

		Server   ServerConfig
		Backend  BackendConfig
		Storage  StorageConfig
		Database DatabaseConfig
		Redis    RedisConfig
		DevAPI   DevAPIConfig
	}

	ServerConfig struct {
		Host            string
		Address         string
		DebugAddress    string
		ShutdownTimeout time.Duration
		ClientCookie    string        // persistent; scopes durable storage
		TabCookie       string        // browser-session; scopes the in-memory session
		ClientCookieAge time.Duration
		TabIdleTimeout  time.Duration
		SweepSchedule   string
		SecureCookies   bool
	}

	BackendConfig struct {
		BaseURL    string
		Timeout    time.Duration
		MaxRetries uint
	}

	StorageConfig struct {
		Engine string // memory | postgres | redis
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		URL       string
		KeyPrefix string
		TTL       time.Duration
	}

	// DevAPIConfig configures the development stand-in for the REST backend.
	DevAPIConfig struct {
		Address   string
		SecretKey string
		TokenTTL  time.Duration
		SeedPwd   string

		// password reset emails
		ResetURL     string // console page the reset link points to
		ResetTimeout time.Duration
		FromEmail    string
		SendgridKey  string // console output when empty
	}
)

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, db.Port)
}

// NewConfig loads the configuration from defaults, `config/.env.<env>` and the environment.
// Environment variables are prefixed by the env name, eg. `DEV_SERVER_ADDRESS`.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "EduTracks")
	v.SetDefault("build", "develop")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("server.clientCookie", "edutracks_client")
	v.SetDefault("server.tabCookie", "edutracks_tab")
	v.SetDefault("server.clientCookieAge", 365*24*time.Hour)
	v.SetDefault("server.tabIdleTimeout", 12*time.Hour)
	v.SetDefault("server.sweepSchedule", "@every 10m")
	v.SetDefault("server.secureCookies", false)
	v.SetDefault("backend.baseURL", "http://localhost:8080")
	v.SetDefault("backend.timeout", 10*time.Second)
	v.SetDefault("backend.maxRetries", 3)
	v.SetDefault("storage.engine", "memory")
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "edutracks")
	v.SetDefault("database.user", "edutracks")
	v.SetDefault("database.password", "edutracks")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.keyPrefix", "edutracks:storage:")
	v.SetDefault("redis.ttl", 365*24*time.Hour)
	v.SetDefault("devapi.address", ":8080")
	v.SetDefault("devapi.secretKey", "dev-secret-key")
	v.SetDefault("devapi.tokenTTL", 2*time.Hour)
	v.SetDefault("devapi.seedPwd", "edutracks")
	v.SetDefault("devapi.resetURL", "http://localhost:8000/Account/reset")
	v.SetDefault("devapi.resetTimeout", 72*time.Hour)
	v.SetDefault("devapi.fromEmail", "EduTracks <noreply@edutracks.dev>")
	v.SetDefault("devapi.sendgridKey", "")

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	wd := Getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		Env:          env,
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		WorkDir:      wd,
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Address:         v.GetString("server.address"),
			DebugAddress:    v.GetString("server.debugAddress"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			ClientCookie:    v.GetString("server.clientCookie"),
			TabCookie:       v.GetString("server.tabCookie"),
			ClientCookieAge: v.GetDuration("server.clientCookieAge"),
			TabIdleTimeout:  v.GetDuration("server.tabIdleTimeout"),
			SweepSchedule:   v.GetString("server.sweepSchedule"),
			SecureCookies:   v.GetBool("server.secureCookies"),
		},
		Backend: BackendConfig{
			BaseURL:    strings.TrimRight(v.GetString("backend.baseURL"), "/"),
			Timeout:    v.GetDuration("backend.timeout"),
			MaxRetries: v.GetUint("backend.maxRetries"),
		},
		Storage: StorageConfig{
			Engine: strings.ToLower(v.GetString("storage.engine")),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			URL:       v.GetString("redis.url"),
			KeyPrefix: v.GetString("redis.keyPrefix"),
			TTL:       v.GetDuration("redis.ttl"),
		},
		DevAPI: DevAPIConfig{
			Address:   v.GetString("devapi.address"),
			SecretKey: v.GetString("devapi.secretKey"),
			TokenTTL:  v.GetDuration("devapi.tokenTTL"),
			SeedPwd:   v.GetString("devapi.seedPwd"),

			ResetURL:     v.GetString("devapi.resetURL"),
			ResetTimeout: v.GetDuration("devapi.resetTimeout"),
			FromEmail:    v.GetString("devapi.fromEmail"),
			SendgridKey:  v.GetString("devapi.sendgridKey"),
		},
	}
}
