package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/deliverus-app/order-service/internal/config"
	"github.com/deliverus-app/order-service/internal/httpx"
	kafkax "github.com/deliverus-app/order-service/internal/kafka"
	"github.com/deliverus-app/order-service/internal/orders"
	"github.com/deliverus-app/order-service/internal/postgres"
	"github.com/deliverus-app/order-service/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// one producer per lifecycle topic
	producers := map[string]*kafkax.Producer{
		orders.TopicOrderCreated:   kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024),
		orders.TopicOrderConfirmed: kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderConfirmed, 256),
		orders.TopicOrderSent:      kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderSent, 256),
		orders.TopicOrderDelivered: kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderDelivered, 256),
	}
	for _, p := range producers {
		p.Start(ctx)
	}

	repo := &orders.Repo{DB: db}
	router := httpx.NewRouter()
	oh := &httpx.OrdersHandler{
		Repo:              repo,
		Redis:             rdb,
		Service:           cfg.ServiceName,
		ProducerCreated:   producers[orders.TopicOrderCreated],
		ProducerConfirmed: producers[orders.TopicOrderConfirmed],
		ProducerSent:      producers[orders.TopicOrderSent],
		ProducerDelivered: producers[orders.TopicOrderDelivered],
	}
	oh.Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)

	for _, p := range producers {
		p.Close()
	}
	cancel()
	for _, p := range producers {
		p.WaitClosed()
	}
}
