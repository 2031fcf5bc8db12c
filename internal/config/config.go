// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string        `yaml:"env" env-default:"local"`
	GRPCAuthAddress         string        `yaml:"grpc_auth_address"`
	StorageConnectionString string        `yaml:"storage_connection_string"`
	StorageTimeout          time.Duration `yaml:"storage_timeout" env-default:"5s"`
	WebhookSecret           string        `yaml:"webhook_secret" env:"WEBHOOK_SECRET"`
	RabbitConnection        `yaml:"rabbit_connection"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	SMTPConnection          `yaml:"smtp_connection"`
	DigestGateway           `yaml:"digest_gateway"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RabbitConnection структура для настройки подключения к RabbitMQ
type RabbitConnection struct {
	RabbitMQURL        string        `yaml:"rabbitmq_url"`
	RabbitMQMaxRetries int           `yaml:"rabbitmq_max_retries" env-default:"5"`
	RabbitMQRetryDelay time.Duration `yaml:"rabbitmq_retry_delay" env-default:"2s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key" env:"JWT_SECRET_KEY"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

// SMTPConnection структура для настройки отправки почты
type SMTPConnection struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort string `yaml:"smtp_port"`
	SMTPUser string `yaml:"smtp_user"`
	SMTPPass string `yaml:"smtp_pass" env:"SMTP_PASS"`
}

// DigestGateway структура для настройки шлюза генерации сводок погоды и новостей
type DigestGateway struct {
	GatewayURL    string        `yaml:"gateway_url" env-default:"https://ai.gateway.lovable.dev/v1"`
	GatewayAPIKey string        `yaml:"gateway_api_key" env:"DIGEST_GATEWAY_API_KEY"`
	GatewayModel  string        `yaml:"gateway_model" env-default:"google/gemini-2.5-flash"`
	DigestTTL     time.Duration `yaml:"digest_ttl" env-default:"30m"`
}

// MustLoad функция для загрузки конфига, путь берется из переменной CONFIG_PATH
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
	return &cfg
}
