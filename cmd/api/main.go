package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/iti-open-source/oceanlibrary-api/internal/cache"
	"github.com/iti-open-source/oceanlibrary-api/internal/client"
	"github.com/iti-open-source/oceanlibrary-api/internal/config"
	"github.com/iti-open-source/oceanlibrary-api/internal/events"
	"github.com/iti-open-source/oceanlibrary-api/internal/logger"
	"github.com/iti-open-source/oceanlibrary-api/internal/repository"
	"github.com/iti-open-source/oceanlibrary-api/internal/server"
	"github.com/iti-open-source/oceanlibrary-api/internal/service"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)

	db, err := client.InitMysqlClient(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database init failed")
	}

	var catalogCache cache.CatalogCache = cache.Disabled{}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		catalogCache = cache.NewCatalogCache(rdb, cfg.Redis.CacheTTL)
	}

	publisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if publisher != nil {
		defer publisher.Close()
	}

	paymobClient := client.NewPaymobClient(&cfg.Paymob)

	bookRepo := repository.NewBookRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	catalogService := service.NewCatalogService(bookRepo, catalogCache)
	cartService := service.NewCartService(db, bookRepo, cartRepo)
	checkoutService := service.NewCheckoutService(
		db, bookRepo, cartRepo, orderRepo,
		paymobClient, cfg.Paymob.Timeout,
		catalogCache, publisher, log,
	)
	orderService := service.NewOrderService(orderRepo, paymobClient, cfg.Paymob.Timeout, catalogCache)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	srv := server.NewServer(catalogService, cartService, checkoutService, orderService, cfg.JWT.Secret, log)

	log.Info().Str("addr", serverAddr).Msg("starting HTTP server")
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Info().Msg("signal received, starting graceful shutdown")

	if err := srv.Shutdown(); err != nil {
		log.Fatal().Err(err).Msg("HTTP server shutdown error")
	}
}
