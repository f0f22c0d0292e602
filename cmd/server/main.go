package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carbid/internal/config"
	"carbid/internal/handler"
	"carbid/internal/infrastructure/cache"
	"carbid/internal/infrastructure/database"
	"carbid/internal/infrastructure/lock"
	"carbid/internal/infrastructure/mq"
	"carbid/internal/job"
	"carbid/internal/service"
	"carbid/pkg/idgen"

	log "github.com/sirupsen/logrus"
)

func main() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetOutput(os.Stdout)

	cfg := config.LoadConfig("config/config.yaml")

	idgen.Init(1)

	db := database.InitMySQL(&cfg.MySQL)
	redisClient := cache.InitRedis(&cfg.Redis)
	locker := lock.NewRedisLocker(redisClient)

	mq.InitKafka(&cfg.Kafka)
	defer mq.CloseKafka()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	settlementSvc := service.NewSettlementService(db, locker, cfg.Business, cfg.Kafka.Topic.SettlementResult)
	outcomeSvc := service.NewOutcomeService(db, settlementSvc)

	outboxSender := job.NewOutboxSender(db, cfg)
	go outboxSender.Start(ctx)

	retryJob := job.NewSettlementRetryJob(db, settlementSvc, cfg)
	go retryJob.Start(ctx)

	consumerGroup, err := mq.NewConsumerGroup(&cfg.Kafka)
	if err != nil {
		log.Fatalf("create kafka consumer group: %v", err)
	}
	defer consumerGroup.Close()

	outcomeConsumer := job.NewOutcomeConsumer(consumerGroup, &cfg.Kafka, outcomeSvc)
	go outcomeConsumer.Start(ctx)

	router := handler.SetupRouter(db, locker, cfg)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.WithField("port", cfg.Server.Port).Info("server started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}

	log.Info("server stopped")
}
