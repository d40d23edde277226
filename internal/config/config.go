package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	BotToken          string
	DatabaseURL       string
	ImageDir          string
	DashboardPassword string // общий секрет панели; пусто — панель выключена
	AdminIDs          []int64
	Location          *time.Location
	HTTPAddr          string
	LogLevel          string
	Env               string // dev|prod
	SentryDSN         string
	CatalogTTL        time.Duration
	StatsInterval     time.Duration
	BackupURL         string // сайдкар pgbackup; пусто — без бэкапов
}

// Load — читает .env (если есть) и переменные окружения.
// BOT_TOKEN обязателен только для бота: CLI-команды работают без него.
func Load() (*Config, error) {
	_ = godotenv.Load()

	tz := getenv("TZ", "Europe/Moscow")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.Local
	}

	adminIDs, err := parseIDs(os.Getenv("ADMIN_IDS"))
	if err != nil {
		return nil, fmt.Errorf("ADMIN_IDS: %w", err)
	}
	catalogTTL, err := durationEnv("CATALOG_TTL", time.Minute)
	if err != nil {
		return nil, err
	}
	statsInterval, err := durationEnv("STATS_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		BotToken:          os.Getenv("BOT_TOKEN"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		ImageDir:          getenv("IMAGE_DIR", "images/holdout_faces/cropped"),
		DashboardPassword: os.Getenv("DASHBOARD_PASSWORD"),
		AdminIDs:          adminIDs,
		Location:          loc,
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		LogLevel:          getenv("LOG_LEVEL", "info"),
		Env:               getenv("ENV", "dev"),
		SentryDSN:         os.Getenv("SENTRY_DSN"),
		CatalogTTL:        catalogTTL,
		StatsInterval:     statsInterval,
		BackupURL:         os.Getenv("BACKUPCTL_URL"),
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("required env DATABASE_URL is empty")
	}
	return cfg, nil
}

// RequireBot — проверка перед запуском бота.
func (c *Config) RequireBot() error {
	if c.BotToken == "" {
		return errors.New("required env BOT_TOKEN is empty")
	}
	return nil
}

func (c *Config) IsAdmin(id int64) bool {
	for _, a := range c.AdminIDs {
		if a == id {
			return true
		}
	}
	return false
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func durationEnv(k string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", k, v)
	}
	return d, nil
}

func parseIDs(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad id %q: %w", p, err)
		}
		out = append(out, n)
	}
	return out, nil
}
