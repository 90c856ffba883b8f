package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs at start-up
type Config struct {
	Port           string
	Release        bool
	AllowedOrigins []string
	Location       *time.Location

	Database  DatabaseConfig
	Reminders ReminderConfig

	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string

	SessionSecret      string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	GoogleMapsAPIKey string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
}

// DatabaseConfig is either a full URL (release) or discrete parameters (development)
type DatabaseConfig struct {
	Driver   string // "postgres" or "sqlite"
	Path     string // sqlite file
	URL      string
	Host     string
	User     string
	Password string
	Name     string
	Port     string
	SSLMode  string
}

// ReminderConfig tunes the reminder dispatch job
type ReminderConfig struct {
	Schedule        string
	RunOnStart      bool
	SendConcurrency int
	SendTimeout     time.Duration
	LeaseTTL        time.Duration
}

// DSN builds the postgres connection string
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC connect_timeout=10",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

// Load reads configuration from the environment, loading .env first if present
func Load() (*Config, error) {
	// .env file is optional in production
	_ = godotenv.Load()

	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		Release: os.Getenv("GIN_MODE") == "release",

		SendGridAPIKey:    os.Getenv("SENDGRID_API_KEY"),
		SendGridFromEmail: os.Getenv("SENDGRID_NOTIFICATIONS_FROM_EMAIL"),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Ridealong"),

		TwilioAccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioPhoneNumber: os.Getenv("TWILIO_PHONE_NUMBER"),

		SessionSecret:      os.Getenv("SESSION_SECRET"),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  os.Getenv("GOOGLE_REDIRECT_URL"),

		GoogleMapsAPIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),

		CloudinaryCloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:    os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret: os.Getenv("CLOUDINARY_API_SECRET"),
	}

	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	origins := getEnv("ALLOWED_ORIGINS", "http://localhost:3000")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
		}
	}

	loc, err := time.LoadLocation(getEnv("APP_TIMEZONE", "America/Chicago"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if cfg.Database, err = loadDatabaseConfig(cfg.Release); err != nil {
		return nil, err
	}

	if cfg.Reminders, err = loadReminderConfig(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDatabase reads only the database settings, for the maintenance commands
func LoadDatabase() (DatabaseConfig, error) {
	_ = godotenv.Load()
	return loadDatabaseConfig(os.Getenv("GIN_MODE") == "release")
}

func loadDatabaseConfig(release bool) (DatabaseConfig, error) {
	db := DatabaseConfig{Driver: getEnv("DB_DRIVER", "postgres")}
	if db.Driver == "sqlite" {
		db.Path = getEnv("DB_PATH", "ridealong.db")
		return db, nil
	}

	if release {
		db.URL = os.Getenv("DATABASE_URL")
		if db.URL == "" {
			return db, fmt.Errorf("DATABASE_URL is required in release mode")
		}
		return db, nil
	}

	for key, dst := range map[string]*string{
		"DB_HOST":     &db.Host,
		"DB_USER":     &db.User,
		"DB_PASSWORD": &db.Password,
		"DB_NAME":     &db.Name,
		"DB_PORT":     &db.Port,
	} {
		value, ok := os.LookupEnv(key)
		if !ok {
			return db, fmt.Errorf("required environment variable %s is not set", key)
		}
		*dst = value
	}
	db.SSLMode = getEnv("DB_SSL_MODE", "disable")
	return db, nil
}

func loadReminderConfig() (ReminderConfig, error) {
	rc := ReminderConfig{
		Schedule: getEnv("REMINDER_SCHEDULE", "@every 5m"),
	}

	var err error
	if rc.RunOnStart, err = strconv.ParseBool(getEnv("REMINDER_RUN_ON_START", "true")); err != nil {
		return rc, fmt.Errorf("invalid REMINDER_RUN_ON_START: %w", err)
	}
	if rc.SendConcurrency, err = strconv.Atoi(getEnv("REMINDER_SEND_CONCURRENCY", "4")); err != nil || rc.SendConcurrency < 1 {
		return rc, fmt.Errorf("REMINDER_SEND_CONCURRENCY must be a positive integer")
	}
	if rc.SendTimeout, err = time.ParseDuration(getEnv("REMINDER_SEND_TIMEOUT", "30s")); err != nil {
		return rc, fmt.Errorf("invalid REMINDER_SEND_TIMEOUT: %w", err)
	}
	if rc.LeaseTTL, err = time.ParseDuration(getEnv("REMINDER_LEASE_TTL", "10m")); err != nil {
		return rc, fmt.Errorf("invalid REMINDER_LEASE_TTL: %w", err)
	}
	return rc, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
