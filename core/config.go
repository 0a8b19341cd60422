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
	ServerConfig struct {
		Host                      string
		Addr                      string
		DebugAddr                 string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		DisableTLS    bool
	}

	UploadConfig struct {
		MaxSize      int64 // bytes
		AllowedTypes []string
		MediaRoot    string
	}

	// SLAConfig holds response/resolution time targets keyed by issue urgency.
	SLAConfig struct {
		FirstResponse map[string]time.Duration
		Resolution    map[string]time.Duration
	}

	Config struct {
		AppName          string
		Env              string // DEV (default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		DefaultFromEmail string
		FrontendBaseURL  string
		SendgridAPIKey   string
		RollbarToken     string

		PasswordResetTimeoutDelta time.Duration

		Server   ServerConfig
		Database DatabaseConfig
		Upload   UploadConfig
		SLA      SLAConfig
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

func NewConfig() *Config {
	conf := viper.New()
	conf.SetTypeByDefaultValue(true)

	// defaults
	conf.SetDefault("debug", true)
	conf.SetDefault("appName", "Shida")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", "w3ak-d3v-k3y|*#@replace^me(in!prod)&")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	conf.SetDefault("server.host", "localhost")
	conf.SetDefault("server.addr", ":8000")
	conf.SetDefault("server.debugAddr", ":4000")
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.name", "shida")
	conf.SetDefault("database.user", "shida")
	conf.SetDefault("database.password", "")
	conf.SetDefault("database.adminUser", "")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.disableTLS", true)

	conf.SetDefault("upload.maxSize", 5<<20)
	conf.SetDefault("upload.allowedTypes", []string{
		"image/jpeg", "image/png", "image/gif",
		"application/pdf", "text/plain; charset=utf-8", "text/plain",
		"application/zip", "application/octet-stream",
	})
	conf.SetDefault("upload.mediaRoot", filepath.Join(Getwd(), "media"))

	// SLA targets per urgency
	conf.SetDefault("sla.firstResponse.high", 4*time.Hour)
	conf.SetDefault("sla.firstResponse.medium", 8*time.Hour)
	conf.SetDefault("sla.firstResponse.low", 24*time.Hour)
	conf.SetDefault("sla.resolution.high", 24*time.Hour)
	conf.SetDefault("sla.resolution.medium", 72*time.Hour)
	conf.SetDefault("sla.resolution.low", 7*24*time.Hour)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	conf.SetDefault("env", env)
	if env == "TEST" {
		conf.SetDefault("testMode", true)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

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
		AppName:          conf.GetString("appName"),
		Env:              conf.GetString("env"),
		Build:            conf.GetString("build"),
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		SecretKey:        conf.GetString("secretKey"),
		DefaultFromEmail: conf.GetString("defaultFromEmail"),
		FrontendBaseURL:  conf.GetString("frontendBaseURL"),
		SendgridAPIKey:   conf.GetString("sendgridApiKey"),
		RollbarToken:     conf.GetString("rollbarToken"),

		PasswordResetTimeoutDelta: conf.GetDuration("passwordResetTimeoutDelta"),

		Server: ServerConfig{
			Host:                      conf.GetString("server.host"),
			Addr:                      conf.GetString("server.addr"),
			DebugAddr:                 conf.GetString("server.debugAddr"),
			JWTExpirationDelta:        conf.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server.jwtRefreshExpirationDelta"),
			ShutdownTimeout:           conf.GetDuration("server.shutdownTimeout"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Upload: UploadConfig{
			MaxSize:      conf.GetInt64("upload.maxSize"),
			AllowedTypes: conf.GetStringSlice("upload.allowedTypes"),
			MediaRoot:    conf.GetString("upload.mediaRoot"),
		},
		SLA: SLAConfig{
			FirstResponse: durationMap(conf, "sla.firstResponse"),
			Resolution:    durationMap(conf, "sla.resolution"),
		},
	}
}

func durationMap(conf *viper.Viper, key string) map[string]time.Duration {
	m := make(map[string]time.Duration)
	for k := range conf.GetStringMapString(key) {
		m[k] = conf.GetDuration(key + "." + k)
	}
	return m
}
