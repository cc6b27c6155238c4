package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramToken string
	DBDSN         string
	Environment   string
	LogLevel      string
	HTTPAddr      string
	Location      *time.Location

	FallbackRateCents int64
	CurrencySymbol    string

	MaterialsDir      string
	AllowedExtensions []string

	SendgridAPIKey string
	MailFrom       string
	MailFromName   string
	TeacherEmail   string

	SentryDSN string

	DBInitRetries int
	DBInitDelay   time.Duration

	PastDueGrace     time.Duration
	ReminderInterval time.Duration
}

const defaultExtensions = "pdf,doc,docx,ppt,pptx,xls,xlsx,txt,png,jpg,jpeg,gif,zip,rar,mp4,mp3"

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	return FromEnv(os.Getenv)
}

// FromEnv собирает конфигурацию из функции чтения переменных
func FromEnv(getenv func(string) string) (*Config, error) {
	r := reader{getenv: getenv}

	cfg := &Config{
		DBDSN:             r.str("DB_DSN", ""),
		TelegramToken:     r.str("TELEGRAM_TOKEN", ""),
		Environment:       r.str("ENV", "development"),
		LogLevel:          r.str("LOG_LEVEL", "info"),
		HTTPAddr:          r.str("HTTP_ADDR", ":8080"),
		FallbackRateCents: r.int64("FALLBACK_RATE_CENTS", 11000),
		CurrencySymbol:    r.str("CURRENCY_SYMBOL", "₪"),
		MaterialsDir:      r.str("MATERIALS_DIR", "./data/materials"),
		AllowedExtensions: r.list("MATERIALS_ALLOWED_EXTENSIONS", defaultExtensions),
		SendgridAPIKey:    r.str("SENDGRID_API_KEY", ""),
		MailFrom:          r.str("MAIL_FROM", "noreply@example.com"),
		MailFromName:      r.str("MAIL_FROM_NAME", "Tutor Scheduler"),
		TeacherEmail:      r.str("TEACHER_EMAIL", ""),
		SentryDSN:         r.str("SENTRY_DSN", ""),
		DBInitRetries:     int(r.int64("DB_INIT_RETRIES", 20)),
		DBInitDelay:       r.duration("DB_INIT_DELAY", 1500*time.Millisecond),
		PastDueGrace:      r.duration("PAST_DUE_GRACE", 30*time.Minute),
		ReminderInterval:  r.duration("REMINDER_INTERVAL", time.Hour),
	}

	loc, err := time.LoadLocation(r.str("TZ", "UTC"))
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("TZ: %v", err))
		loc = time.UTC
	}
	cfg.Location = loc

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		r.errs = append(r.errs, "DB_DSN is required but not set")
	}
	if cfg.FallbackRateCents <= 0 {
		r.errs = append(r.errs, "FALLBACK_RATE_CENTS must be positive")
	}
	if cfg.DBInitRetries < 1 {
		cfg.DBInitRetries = 1
	}

	if len(r.errs) > 0 {
		return nil, fmt.Errorf("invalid config: %s", strings.Join(r.errs, "; "))
	}

	return cfg, nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

// IsProduction включает JSON-логи и окружение production в Sentry
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

type reader struct {
	getenv func(string) string
	errs   []string
}

func (r *reader) str(key, def string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return def
}

func (r *reader) int64(key string, def int64) int64 {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Sprintf("%s: not an integer: %q", key, v))
		return def
	}
	return n
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		r.errs = append(r.errs, fmt.Sprintf("%s: invalid duration: %q", key, v))
		return def
	}
	return d
}

func (r *reader) list(key, def string) []string {
	var out []string
	for _, part := range strings.Split(r.str(key, def), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
