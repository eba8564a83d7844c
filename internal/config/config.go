// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек сервиса.
type Config struct {
	Env                     string `yaml:"env"`
	AppURL                  string `yaml:"app_url"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	HTTPServer              `yaml:"http_server"`
	IdentityProvider        `yaml:"identity_provider"`
	PaymentProvider         `yaml:"payment_provider"`
	SMTP                    `yaml:"smtp"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// RabbitMQ структура для подключения к брокеру уведомлений.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url"`
	RabbitMQMaxRetries int           `yaml:"max_retries"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay"`
}

// IdentityProvider настройки внешнего identity-провайдера.
// WebhookSecret и SessionSecret обязательны: без них нельзя проверить
// ни подпись webhook, ни сессионный токен.
type IdentityProvider struct {
	IdentityAPIKey        string `yaml:"api_key"`
	IdentityWebhookSecret string `yaml:"webhook_secret"`
	SessionSecret         string `yaml:"session_secret"`
}

// PaymentProvider настройки платёжного провайдера.
type PaymentProvider struct {
	PaymentSecretKey     string `yaml:"secret_key"`
	PaymentWebhookSecret string `yaml:"webhook_secret"`
}

// SMTP настройки почтового транспорта для воркера уведомлений.
type SMTP struct {
	SMTPHost     string `yaml:"host"`
	SMTPPort     string `yaml:"port"`
	SMTPUser     string `yaml:"user"`
	SMTPPassword string `yaml:"password"`
}

// Status набор флагов конфигурации для health-эндпоинта.
type Status struct {
	Database         bool `json:"database"`
	IdentityProvider bool `json:"identityProvider"`
	IdentityWebhook  bool `json:"identityWebhook"`
	PaymentProvider  bool `json:"paymentProvider"`
	PaymentWebhook   bool `json:"paymentWebhook"`
	SMTP             bool `json:"smtp"`
	AppURL           bool `json:"appUrl"`
}

// MustLoad загружает конфиг из файла, указанного в CONFIG_PATH.
// Отсутствие файла, строки подключения к базе или секретов проверки
// подписи и сессии — фатальная ошибка конфигурации, не per-request.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	if cfg.StorageConnectionString == "" {
		log.Fatal("storage_connection_string is not set")
	}
	if cfg.IdentityWebhookSecret == "" {
		log.Fatal("identity_provider.webhook_secret is not set")
	}
	if cfg.SessionSecret == "" {
		log.Fatal("identity_provider.session_secret is not set")
	}
	if cfg.PaymentWebhookSecret == "" {
		log.Fatal("payment_provider.webhook_secret is not set")
	}
	return &cfg
}

// ConfigStatus возвращает флаги заполненности конфигурации для health.
func (c *Config) ConfigStatus() Status {
	return Status{
		Database:         c.StorageConnectionString != "",
		IdentityProvider: c.IdentityAPIKey != "",
		IdentityWebhook:  c.IdentityWebhookSecret != "",
		PaymentProvider:  c.PaymentSecretKey != "",
		PaymentWebhook:   c.PaymentWebhookSecret != "",
		SMTP:             c.SMTPHost != "" && c.SMTPPort != "",
		AppURL:           c.AppURL != "",
	}
}
