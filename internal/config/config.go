package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/briansimoni/weewoo.study-sub000/internal/domain/entity"
)

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Store     StoreConfig     `mapstructure:"store"`
	Streak    StreakConfig    `mapstructure:"streak"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Email     EmailConfig     `mapstructure:"email"`
	Log       LogConfig       `mapstructure:"log"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	ReadTimeout    int      `mapstructure:"read_timeout"`
	WriteTimeout   int      `mapstructure:"write_timeout"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// RedisConfig содержит настройки подключения к Redis.
// Поддерживаются режимы single и sentinel: хранилище выполняет многоключевые
// транзакции (WATCH/MULTI/EXEC), которые в режиме cluster невозможны без общего слота.
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт).
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single'.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	// MaxRetries: Количество повторов на уровне клиента при сетевых ошибках. Ограничено сверху.
	MaxRetries int `mapstructure:"max_retries"`

	// MinRetryBackoff / MaxRetryBackoff: интервалы между попытками (в миллисекундах).
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// StoreConfig содержит настройки слоя хранения
type StoreConfig struct {
	// Namespace: префикс всех ключей (позволяет делить один Redis между окружениями)
	Namespace string `mapstructure:"namespace"`

	// MaxCommitAttempts: сколько раз повторять чтение-слияние-коммит при конфликте
	MaxCommitAttempts int `mapstructure:"max_commit_attempts"`
}

// StreakConfig задаёт окно серии активности
type StreakConfig struct {
	UnitHours   int `mapstructure:"unit_hours"`
	WindowHours int `mapstructure:"window_hours"`
}

// AuthConfig содержит настройки проверки административных токенов
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// EmailConfig содержит настройки уведомлений о жалобах на вопросы
type EmailConfig struct {
	ResendAPIKey string `mapstructure:"resend_api_key"`
	From         string `mapstructure:"from"`
	AdminAddress string `mapstructure:"admin_address"`
}

// LogConfig содержит уровень логирования
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// RateLimitConfig содержит лимиты для публичных эндпоинтов записи
type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

// Window возвращает окно серии в виде доменного значения
func (s StreakConfig) Window() entity.StreakWindow {
	return entity.StreakWindow{
		Unit:   time.Duration(s.UnitHours) * time.Hour,
		Length: time.Duration(s.WindowHours) * time.Hour,
	}
}

// RedisAddrs возвращает итоговый список адресов Redis
func (r RedisConfig) RedisAddrs() []string {
	if len(r.Addrs) > 0 {
		return r.Addrs
	}
	if r.Addr != "" {
		return []string{r.Addr}
	}
	return nil
}

// applyDefaults устанавливает значения по умолчанию
func applyDefaults(vip *viper.Viper) {
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 15)
	vip.SetDefault("server.write_timeout", 15)
	vip.SetDefault("server.allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("redis.max_retries", 3)
	vip.SetDefault("store.namespace", "weewoo")
	vip.SetDefault("store.max_commit_attempts", 5)
	vip.SetDefault("streak.unit_hours", 24)
	vip.SetDefault("streak.window_hours", 48)
	vip.SetDefault("log.level", "info")
	vip.SetDefault("rate_limit.max_requests", 30)
	vip.SetDefault("rate_limit.window_seconds", 60)
}

// Load загружает конфигурацию из файла и переменных окружения
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Отдельный экземпляр, без глобального состояния

	applyDefaults(vip)

	// Привязка для секции Redis
	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS")
	vip.BindEnv("redis.addr", "REDIS_ADDR")
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	// Привязка для секции Store / Streak
	vip.BindEnv("store.namespace", "STORE_NAMESPACE")
	vip.BindEnv("store.max_commit_attempts", "STORE_MAX_COMMIT_ATTEMPTS")
	vip.BindEnv("streak.unit_hours", "STREAK_UNIT_HOURS")
	vip.BindEnv("streak.window_hours", "STREAK_WINDOW_HOURS")

	// Привязка для Auth / Email
	vip.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET")
	vip.BindEnv("email.resend_api_key", "RESEND_API_KEY")
	vip.BindEnv("email.from", "EMAIL_FROM")
	vip.BindEnv("email.admin_address", "EMAIL_ADMIN_ADDRESS")

	// Привязка для Server / Log
	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("log.level", "LOG_LEVEL")
	vip.BindEnv("rate_limit.max_requests", "RATE_LIMIT_MAX_REQUESTS")
	vip.BindEnv("rate_limit.window_seconds", "RATE_LIMIT_WINDOW_SECONDS")

	if configPath != "" {
		vip.SetConfigFile(configPath)
		// Файла может не быть: остаются переменные окружения и значения по умолчанию
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok || os.IsNotExist(err) {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// REDIS_ADDRS приходит строкой через запятую
	if len(cfg.Redis.Addrs) == 1 && strings.Contains(cfg.Redis.Addrs[0], ",") {
		cfg.Redis.Addrs = strings.Split(cfg.Redis.Addrs[0], ",")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	if len(c.Redis.RedisAddrs()) == 0 {
		return fmt.Errorf("redis configuration error: addrs or addr must be provided (check REDIS_ADDR env var)")
	}
	switch c.Redis.Mode {
	case "", "single":
	case "sentinel":
		if c.Redis.MasterName == "" {
			return fmt.Errorf("redis sentinel mode requires master_name")
		}
	default:
		return fmt.Errorf("unsupported redis mode for record store: %s", c.Redis.Mode)
	}
	if c.Store.MaxCommitAttempts < 1 {
		return fmt.Errorf("store.max_commit_attempts must be >= 1, got %d", c.Store.MaxCommitAttempts)
	}
	if c.Streak.UnitHours <= 0 || c.Streak.WindowHours <= c.Streak.UnitHours {
		return fmt.Errorf("streak window (%dh) must be greater than its unit (%dh)", c.Streak.WindowHours, c.Streak.UnitHours)
	}
	return nil
}
