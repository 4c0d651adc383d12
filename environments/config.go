package environments

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Gateway   GatewayConfig
	Message   MessageConfig
	Quota     QuotaConfig
	Scheduler SchedulerConfig
	Auth      AuthConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type GatewayConfig struct {
	URL       string
	StatusURL string
	APIKey    string
	Timeout   time.Duration
}

type MessageConfig struct {
	MaxContentLength int
	SendTimeout      time.Duration
}

type QuotaConfig struct {
	BasicLimit      int64
	ProLimit        int64
	EnterpriseLimit int64
	CacheTTL        time.Duration
}

type SchedulerConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

type AuthConfig struct {
	APIKey          string
	SchedulerAPIKey string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port: GetEnv("SERVER_PORT", "8080"),
		},
		Database: DatabaseConfig{
			Host:     GetEnv("DB_HOST", "localhost"),
			Port:     GetEnv("DB_PORT", "3306"),
			User:     GetEnv("DB_USER", "lightsms"),
			Password: GetEnv("DB_PASSWORD", "lightsms123"),
			DBName:   GetEnv("DB_NAME", "lightsms"),
		},
		Redis: RedisConfig{
			Host:     GetEnv("REDIS_HOST", "localhost"),
			Port:     GetEnv("REDIS_PORT", "6379"),
			Password: GetEnv("REDIS_PASSWORD", ""),
			DB:       GetEnvAsInt("REDIS_DB", 0),
		},
		Gateway: GatewayConfig{
			URL:       GetEnv("TEXTBELT_URL", "https://textbelt.com/text"),
			StatusURL: GetEnv("TEXTBELT_STATUS_URL", "https://textbelt.com/status"),
			APIKey:    GetEnv("TEXTBELT_API_KEY", ""),
			Timeout:   time.Duration(GetEnvAsInt("GATEWAY_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Message: MessageConfig{
			MaxContentLength: GetEnvAsInt("MESSAGE_MAX_CONTENT_LENGTH", 1000),
			SendTimeout:      time.Duration(GetEnvAsInt("MESSAGE_SEND_TIMEOUT_SECONDS", 35)) * time.Second,
		},
		Quota: QuotaConfig{
			BasicLimit:      int64(GetEnvAsInt("QUOTA_BASIC_LIMIT", 1000)),
			ProLimit:        int64(GetEnvAsInt("QUOTA_PRO_LIMIT", 2000)),
			EnterpriseLimit: int64(GetEnvAsInt("QUOTA_ENTERPRISE_LIMIT", 4000)),
			CacheTTL:        GetEnvAsDuration("QUOTA_CACHE_TTL", 30*time.Second),
		},
		Scheduler: SchedulerConfig{
			PollInterval: time.Duration(GetEnvAsInt("SCHEDULER_POLL_INTERVAL_SECONDS", 60)) * time.Second,
			BatchSize:    GetEnvAsInt("SCHEDULER_BATCH_SIZE", 10),
		},
		Auth: AuthConfig{
			APIKey:          GetEnv("API_KEY", ""),
			SchedulerAPIKey: GetEnv("SCHEDULER_API_KEY", ""),
		},
	}
}

func GetEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
