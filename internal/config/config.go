package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config — настройки приложения, читаются из окружения
type Config struct {
	DBDSN       string
	HTTPAddr    string
	Environment string
	Migrations  string

	// Период фонового прохода по напоминаниям, в часах
	ReminderIntervalHours float64
	// Порог неоплаченных часов, после которого требуется оплата
	PaymentIntervalHours float64
	// За сколько часов до порога ученик считается "скоро должен"
	DueSoonWindowHours float64
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		DBDSN:       os.Getenv("DB_DSN"),
		HTTPAddr:    os.Getenv("HTTP_ADDR"),
		Environment: os.Getenv("ENV"),
		Migrations:  os.Getenv("MIGRATIONS_DIR"),
	}

	// Дефолтные значения
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Migrations == "" {
		cfg.Migrations = "migrations"
	}

	var err error
	if cfg.ReminderIntervalHours, err = floatEnv("REMINDER_INTERVAL_HOURS", 24); err != nil {
		return nil, err
	}
	if cfg.PaymentIntervalHours, err = floatEnv("PAYMENT_INTERVAL_HOURS", 10); err != nil {
		return nil, err
	}
	if cfg.DueSoonWindowHours, err = floatEnv("DUE_SOON_WINDOW_HOURS", 2); err != nil {
		return nil, err
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	return cfg, nil
}

func floatEnv(name string, fallback float64) (float64, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive number, got %q", name, raw)
	}
	return v, nil
}
