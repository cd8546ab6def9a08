package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Database DatabaseConfig
	Pricing  PricingConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type RedisConfig struct {
	Addr string
	// DiscountClaimTTL bounds how long a per-email claim is held while a
	// discount usage record is being written.
	DiscountClaimTTL time.Duration
}

type KafkaConfig struct {
	Brokers  []string
	GroupID  string
	Topics   TopicConfig
	MockMode bool
	Enabled  bool
}

type DatabaseConfig struct {
	Host         string
	Port         string
	Username     string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

type TopicConfig struct {
	InventorySales   string
	InventoryAdmin   string
	DiscountActivity string
}

// PricingConfig carries the tier base prices and the tier-specific member
// discount percentages used by checkout quotes. Amounts are cents.
type PricingConfig struct {
	GAPriceCents         int64
	VIPPriceCents        int64
	MemberDiscountGAPct  int
	MemberDiscountVIPPct int
}

func Load() *Config {
	kafkaEnabled := getEnvBool("KAFKA_ENABLED", true)
	mockMode := getEnvBool("KAFKA_MOCK_MODE", false)

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Redis: RedisConfig{
			Addr:             getEnv("REDIS_ADDR", "localhost:6379"),
			DiscountClaimTTL: time.Duration(getEnvInt("DISCOUNT_CLAIM_TTL_SECONDS", 30)) * time.Second,
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Username:     getEnv("DB_USERNAME", "registration_user"),
			Password:     getEnv("DB_PASSWORD", "registration_pass"),
			Database:     getEnv("DB_NAME", "ws_registration"),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  time.Duration(getEnvInt("DB_MAX_LIFETIME_MINUTES", 5)) * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:  []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			GroupID:  getEnv("KAFKA_GROUP_ID", "ws-registration-group"),
			Enabled:  kafkaEnabled,
			MockMode: mockMode,
			Topics: TopicConfig{
				InventorySales:   getEnv("KAFKA_TOPIC_INVENTORY_SALES", "inventory-sales"),
				InventoryAdmin:   getEnv("KAFKA_TOPIC_INVENTORY_ADMIN", "inventory-admin"),
				DiscountActivity: getEnv("KAFKA_TOPIC_DISCOUNT_ACTIVITY", "discount-activity"),
			},
		},
		Pricing: PricingConfig{
			GAPriceCents:         int64(getEnvInt("GA_PRICE_CENTS", 29900)),
			VIPPriceCents:        int64(getEnvInt("VIP_PRICE_CENTS", 79900)),
			MemberDiscountGAPct:  getEnvInt("MEMBER_DISCOUNT_GA_PCT", 20),
			MemberDiscountVIPPct: getEnvInt("MEMBER_DISCOUNT_VIP_PCT", 10),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
