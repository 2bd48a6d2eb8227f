package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	StorageConfig struct {
		Backend     string // file | redis | postgres | memory
		DataDir     string
		RedisURL    string
		PostgresDSN string
	}

	AdminConfig struct {
		Name     string
		Email    string
		Password string
	}

	Config struct {
		Debug            bool
		TestMode         bool
		Env              string
		Build            string
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		SessionPollInterval time.Duration

		Admin   AdminConfig
		Server  ServerConfig
		Storage StorageConfig
	}
)

// NewConfig loads the application configuration from the environment.
// ENV selects the deployment environment: DEV (local; default), TEST, QA, PROD.
// A config/.env.<env> file is loaded first if it exists.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Elimu")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", "wq2(h!x)#*c2(#yg4h^$cegm2emy-poq5-wer)enb$+57=dz")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("sessionPollInterval", 30*time.Second)

	conf.SetDefault("adminName", "Admin")
	conf.SetDefault("adminEmail", "admin@localhost")
	conf.SetDefault("adminPassword", "")

	conf.SetDefault("serverHost", "0.0.0.0:8000")
	conf.SetDefault("serverDebugHost", "0.0.0.0:6060")
	conf.SetDefault("serverShutdownTimeout", 5*time.Second)
	conf.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)

	conf.SetDefault("storageBackend", "file")
	conf.SetDefault("storageDataDir", filepath.Join(Getwd(), "data"))
	conf.SetDefault("storageRedisURL", "redis://localhost:6379/0")
	conf.SetDefault("storagePostgresDSN", "")

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	conf.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:            conf.GetBool("debug"),
		TestMode:         env == "TEST",
		Env:              env,
		Build:            conf.GetString("build"),
		AppName:          conf.GetString("appName"),
		SecretKey:        conf.GetString("secretKey"),
		FrontendBaseURL:  conf.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{Name: conf.GetString("appName"), Address: conf.GetString("defaultFromEmail")},
		SendgridApiKey:   conf.GetString("sendgridApiKey"),
		RollbarToken:     conf.GetString("rollbarToken"),

		SessionPollInterval: conf.GetDuration("sessionPollInterval"),

		Admin: AdminConfig{
			Name:     conf.GetString("adminName"),
			Email:    conf.GetString("adminEmail"),
			Password: conf.GetString("adminPassword"),
		},
		Server: ServerConfig{
			Host:                      conf.GetString("serverHost"),
			DebugHost:                 conf.GetString("serverDebugHost"),
			ShutdownTimeout:           conf.GetDuration("serverShutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("jwtRefreshExpirationDelta"),
		},
		Storage: StorageConfig{
			Backend:     conf.GetString("storageBackend"),
			DataDir:     conf.GetString("storageDataDir"),
			RedisURL:    conf.GetString("storageRedisURL"),
			PostgresDSN: conf.GetString("storagePostgresDSN"),
		},
	}
}
