package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/deliverus-app/order-service/internal/config"
	kafkax "github.com/deliverus-app/order-service/internal/kafka"
	"github.com/deliverus-app/order-service/internal/notify"
	"github.com/deliverus-app/order-service/internal/orders"
	"github.com/deliverus-app/order-service/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &notify.Service{Redis: rdb, ServiceName: "order-notifier"}

	topics := []string{
		orders.TopicOrderCreated,
		orders.TopicOrderConfirmed,
		orders.TopicOrderSent,
		orders.TopicOrderDelivered,
	}
	consumer := kafkax.NewConsumer(cfg.KafkaBrokers, "order-notifier", topics, 4)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("shutting down...")
		cancel()
	}()

	log.Printf("consuming %v", topics)
	if err := consumer.Start(ctx, svc.HandleLifecycleEvent); err != nil {
		log.Fatalf("consumer: %v", err)
	}
}
