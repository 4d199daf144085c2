// Package config загружает конфигурацию сервисов из окружения.
//
// Перед чтением переменных подгружается .env из рабочей директории
// (если файл есть). Переменные окружения процесса имеют приоритет над .env.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Значения по умолчанию.
const (
	defaultPort            = "8080"
	defaultCallTimeout     = 30 * time.Second
	defaultTransferTimeout = 5 * time.Minute
	defaultRateLimit       = 2.0
	defaultRateBurst       = 5
	defaultPruneCron       = "0 3 * * *"
	defaultRetention       = 30 * 24 * time.Hour
)

// Config — конфигурация сервиса роботов.
type Config struct {
	// Port — порт HTTP сервера (API_PORT).
	Port string

	// Platform — настройки клиента REST портала.
	Platform PlatformConfig

	// DatabaseURL — DSN журнала вызовов (DB_URL). Пустой — журнал выключен.
	DatabaseURL string

	// PruneCron — расписание очистки журнала (JOURNAL_PRUNE_CRON).
	PruneCron string

	// Retention — сколько хранить записи журнала (JOURNAL_RETENTION).
	Retention time.Duration

	// RabbitMQURL — URL брокера событий (RABBITMQ_URL). Пустой — события выключены.
	RabbitMQURL string
}

// PlatformConfig — настройки обращения к REST портала.
type PlatformConfig struct {
	CallTimeout     time.Duration // B24_CALL_TIMEOUT
	TransferTimeout time.Duration // B24_TRANSFER_TIMEOUT
	RateLimit       float64       // B24_RATE_LIMIT, запросов в секунду
	RateBurst       int           // B24_RATE_BURST
	InsecureTLS     bool          // B24_INSECURE_TLS
}

// Load читает конфигурацию.
func Load() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("API_PORT", defaultPort),
		DatabaseURL: os.Getenv("DB_URL"),
		PruneCron:   getEnv("JOURNAL_PRUNE_CRON", defaultPruneCron),
		RabbitMQURL: os.Getenv("RABBITMQ_URL"),
	}

	var err error
	if cfg.Retention, err = getDuration("JOURNAL_RETENTION", defaultRetention); err != nil {
		return nil, err
	}

	cfg.Platform, err = LoadPlatform()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadPlatform читает только настройки REST портала (используется и CLI).
func LoadPlatform() (PlatformConfig, error) {
	_ = godotenv.Load()

	var (
		p   PlatformConfig
		err error
	)

	if p.CallTimeout, err = getDuration("B24_CALL_TIMEOUT", defaultCallTimeout); err != nil {
		return p, err
	}
	if p.TransferTimeout, err = getDuration("B24_TRANSFER_TIMEOUT", defaultTransferTimeout); err != nil {
		return p, err
	}
	if p.RateLimit, err = getFloat("B24_RATE_LIMIT", defaultRateLimit); err != nil {
		return p, err
	}
	if p.RateBurst, err = getInt("B24_RATE_BURST", defaultRateBurst); err != nil {
		return p, err
	}
	if p.InsecureTLS, err = getBool("B24_INSECURE_TLS", false); err != nil {
		return p, err
	}

	return p, nil
}

// Addr возвращает адрес для http.Server.
func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getFloat(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
