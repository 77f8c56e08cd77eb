package config

import (
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"
)

var (
	RunAddress     string
	DatabaseURI    string
	DatabaseDriver string
	JWTSecret      string
	TokenTTL       time.Duration
	LogLevel       string

	// bootstrap ADMIN account, created at startup when missing
	AdminUsername string
	AdminEmail    string
	AdminPassword string
)

func ParseFlags() {
	// .env is optional, real environment wins over it
	_ = godotenv.Load()

	flag.StringVar(&RunAddress, "a", ":8080", "address to run server")
	flag.StringVar(&DatabaseURI, "d", "", "database uri")
	flag.StringVar(&DatabaseDriver, "driver", "pgx", "database/sql driver: pgx or postgres")
	flag.StringVar(&JWTSecret, "s", "", "jwt signing secret")
	flag.DurationVar(&TokenTTL, "ttl", 24*time.Hour, "token lifetime")
	flag.StringVar(&LogLevel, "l", "info", "log level")
	flag.StringVar(&AdminUsername, "admin-user", "", "bootstrap admin username")
	flag.StringVar(&AdminEmail, "admin-email", "", "bootstrap admin email")
	flag.StringVar(&AdminPassword, "admin-password", "", "bootstrap admin password")
	flag.Parse()

	if envRunAddr := os.Getenv("RUN_ADDRESS"); envRunAddr != "" {
		RunAddress = envRunAddr
	}
	if databaseURI := os.Getenv("DATABASE_URI"); databaseURI != "" {
		DatabaseURI = databaseURI
	}
	if driver := os.Getenv("DATABASE_DRIVER"); driver != "" {
		DatabaseDriver = driver
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		JWTSecret = secret
	}
	if ttl := os.Getenv("TOKEN_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			TokenTTL = d
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		LogLevel = level
	}
	if user := os.Getenv("ADMIN_USERNAME"); user != "" {
		AdminUsername = user
	}
	if email := os.Getenv("ADMIN_EMAIL"); email != "" {
		AdminEmail = email
	}
	if password := os.Getenv("ADMIN_PASSWORD"); password != "" {
		AdminPassword = password
	}
}
