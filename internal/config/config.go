package config

import "os"

type Config struct {
	Server   ServerConfig
	Auth     AuthConfig
	Mail     MailConfig
	Client   ClientConfig
	Postgres PostgresConfig
}

type ServerConfig struct {
	Port string
}

type AuthConfig struct {
	AccessTokenSecret  string
	RefreshTokenSecret string
	AccessTokenTTL     string
	RefreshTokenTTL    string
	CookieSecure       string
	CookieSameSite     string
	CookieDomain       string
	CookiePath         string
}

type MailConfig struct {
	APIURL string
	APIKey string
	From   string
}

type ClientConfig struct {
	BaseURL string
}

type PostgresConfig struct {
	DatabaseURL string
	Host        string
	Port        string
	User        string
	Password    string
	Database    string
	SSLMode     string
}

func Load() Config {
	return Config{
		Server: ServerConfig{
			Port: getenv("PORT", "8080"),
		},
		Auth: AuthConfig{
			AccessTokenSecret:  os.Getenv("ACCESS_TOKEN_SECRET"),
			RefreshTokenSecret: os.Getenv("REFRESH_TOKEN_SECRET"),
			AccessTokenTTL:     getenv("ACCESS_TOKEN_TTL", "15m"),
			RefreshTokenTTL:    getenv("REFRESH_TOKEN_TTL", "2160h"),
			CookieSecure:       os.Getenv("AUTH_COOKIE_SECURE"),
			CookieSameSite:     os.Getenv("AUTH_COOKIE_SAMESITE"),
			CookieDomain:       os.Getenv("AUTH_COOKIE_DOMAIN"),
			CookiePath:         os.Getenv("AUTH_COOKIE_PATH"),
		},
		Mail: MailConfig{
			APIURL: os.Getenv("MAIL_API_URL"),
			APIKey: os.Getenv("MAIL_API_KEY"),
			From:   getenv("MAIL_FROM", "no-reply@localhost"),
		},
		Client: ClientConfig{
			BaseURL: getenv("CLIENT_URL", "http://localhost:3000"),
		},
		Postgres: PostgresConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			Host:        getenv("PGHOST", "localhost"),
			Port:        getenv("PGPORT", "5432"),
			User:        os.Getenv("PGUSER"),
			Password:    os.Getenv("PGPASSWORD"),
			Database:    os.Getenv("PGDATABASE"),
			SSLMode:     getenv("PGSSLMODE", "disable"),
		},
	}
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
