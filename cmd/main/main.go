package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"pincode_service/internal/api"
	"pincode_service/internal/cache"
	"pincode_service/internal/config"
	"pincode_service/internal/database"
	"pincode_service/internal/kafka"
	"pincode_service/internal/metrics"
	"pincode_service/internal/region"
	"pincode_service/internal/shipping"
	"pincode_service/internal/tracing"
	"syscall"
)

func main() {
	cfg := config.Get()

	// Метрики и трассировка
	metrics.Init()
	shutdownTracer := tracing.InitTracerProvider("pincode-service")
	defer shutdownTracer()

	// Инициализация хранилища покрытия
	// Путь указывает на папку с миграциями
	storage, err := database.New(cfg.Postgres.URL, "./internal/database/migrations")
	if err != nil {
		log.Fatalf("Ошибка инициализации хранилища: %v", err)
	}
	defer storage.Close()

	// Загрузка тарифов: ошибки конфигурации фатальны при старте,
	// неверные цены не должны дожить до первого запроса.
	classifier, err := region.Load(cfg.Rates.Path)
	if err != nil {
		log.Fatalf("Ошибка загрузки тарифов: %v", err)
	}

	resolver := shipping.NewResolver(storage, classifier, cfg.Lookup.Timeout)

	// Инициализация кэша котировок
	quoteCache := cache.NewLRUCache(cfg.Cache.Size)
	if err := cache.WarmUp(context.Background(), storage, resolver, quoteCache); err != nil {
		log.Printf("Ошибка при прогреве кэша: %v", err)
	}

	// Запуск Kafka Consumer (фид обновлений покрытия)
	ctx, cancel := context.WithCancel(context.Background())
	consumer := kafka.NewConsumer(cfg.Kafka, storage, quoteCache, resolver)
	go consumer.Run(ctx)

	// Запуск HTTP-сервера
	server := api.NewServer(cfg.HTTP.Port, resolver, quoteCache)
	go func() {
		if err := server.Run(); err != nil {
			log.Fatalf("Ошибка запуска HTTP-сервера: %v", err)
		}
	}()

	// Ожидание сигнала для корректного завершения работы
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	log.Println("Сервис останавливается...")
	cancel()
	log.Println("Сервис успешно остановлен.")
}
