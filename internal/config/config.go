package config

import "time"

type Config struct {
	Environment Environment
	Log         Log
	HTTP        HTTPServer
	BaseURL     string `env:"BASE_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	JWT    JWT    `envPrefix:"JWT_"`
	Paymob Paymob `envPrefix:"PAYMOB_"`
	Redis  Redis  `envPrefix:"REDIS_"`
	Kafka  Kafka  `envPrefix:"KAFKA_"`
}

type JWT struct {
	Secret string `env:"SECRET"`
}

type Paymob struct {
	BaseApiURL    string        `env:"BASE_API_URL" envDefault:"https://accept.paymob.com"`
	APIKey        string        `env:"API_KEY"`
	IntegrationID string        `env:"INTEGRATION_ID"`
	IframeID      string        `env:"IFRAME_ID"`
	Timeout       time.Duration `env:"TIMEOUT" envDefault:"15s"`
}

type Redis struct {
	Addr     string        `env:"ADDR"`
	Password string        `env:"PASSWORD"`
	DB       int           `env:"DB" envDefault:"0"`
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"5m"`
}

type Kafka struct {
	// Comma-separated broker list; empty disables event publishing.
	Brokers string `env:"BROKERS"`
	Topic   string `env:"TOPIC" envDefault:"orders.created"`
}

type Environment struct {
	Name string `env:"ENVIRONMENT" envDefault:"development"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

type HTTPServer struct {
	Host string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port string `env:"HTTP_PORT" envDefault:"8080"`
}
