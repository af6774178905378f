package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBUser          string
	DBPassword      string
	DBName          string
	DBHost          string
	DBPort          string
	RedisHost       string
	RedisPort       string
	RedisPassword   string
	BotToken        string
	ChannelUsername string
	AdminIDs        []int64
	MinWithdrawal   int64
	StartBonus      int64
	ReferralBonus   int64
	DailyBonus      int64
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		DBUser:          getEnv("DB_USER", "postgres"),
		DBPassword:      getEnv("DB_PASSWORD", "postgres"),
		DBName:          getEnv("DB_NAME", "tvbot"),
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnv("DB_PORT", "5432"),
		RedisHost:       getEnv("REDIS_HOST", "localhost"),
		RedisPort:       getEnv("REDIS_PORT", "6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		BotToken:        getEnv("BOT_TOKEN", ""),
		ChannelUsername: getEnv("CHANNEL_USERNAME", "@example_channel"),
	}

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is not set")
	}
	if !strings.HasPrefix(cfg.ChannelUsername, "@") {
		cfg.ChannelUsername = "@" + cfg.ChannelUsername
	}

	admins, err := parseAdminIDs(getEnv("ADMIN_IDS", ""))
	if err != nil {
		return nil, err
	}
	cfg.AdminIDs = admins

	for _, v := range []struct {
		name string
		def  int64
		dst  *int64
	}{
		{"MIN_WITHDRAWAL", 15, &cfg.MinWithdrawal},
		{"START_BONUS", 3, &cfg.StartBonus},
		{"REFERRAL_BONUS", 3, &cfg.ReferralBonus},
		{"DAILY_BONUS", 1, &cfg.DailyBonus},
	} {
		n, err := getEnvInt(v.name, v.def)
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, fmt.Errorf("%s must be positive, got %d", v.name, n)
		}
		*v.dst = n
	}

	return cfg, nil
}

// IsAdmin reports whether the given identity is in the administrator list.
func (c *Config) IsAdmin(telegramID int64) bool {
	for _, id := range c.AdminIDs {
		if id == telegramID {
			return true
		}
	}
	return false
}

func parseAdminIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("ADMIN_IDS contains invalid id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("ADMIN_IDS must contain at least one telegram id")
	}
	return ids, nil
}

func getEnvInt(key string, fallback int64) (int64, error) {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return n, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
