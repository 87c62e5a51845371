package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"pedido-service/config"
	"pedido-service/consumers"
	"pedido-service/controllers"
	"pedido-service/database"
	"pedido-service/inflight"
	"pedido-service/rabbitmq"
	"pedido-service/repositories"
	"pedido-service/services"
)

func main() {
	// 加载配置
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化数据库
	db, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.DBDriver); err != nil {
		log.Fatalf("Database migration failed: %v", err)
	}

	orders := repositories.NewOrderRepository(db)
	products := repositories.NewProductRepository(db)

	var publisher controllers.EventPublisher = rabbitmq.NopPublisher{}
	if cfg.RabbitMQURL != "" {
		// 初始化RabbitMQ
		rmq, err := rabbitmq.NewRabbitMQ(cfg)
		if err != nil {
			log.Fatalf("RabbitMQ initialization failed: %v", err)
		}
		defer rmq.Close()

		// 设置队列和交换机
		if err := rmq.SetupQueues(); err != nil {
			log.Fatalf("Failed to setup RabbitMQ queues: %v", err)
		}

		// 启动消息消费者
		if err := consumers.StartOrderConsumer(ctx, rmq.AMQPChannel(), cfg, orders); err != nil {
			log.Fatalf("Failed to start order consumer: %v", err)
		}
		publisher = rmq
	} else {
		log.Printf("RABBITMQ_URL not set, order events are disabled")
	}

	var guard inflight.Guard = inflight.NewLocal()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Redis initialization failed: %v", err)
		}
		guard = inflight.NewRedis(rdb, cfg.SubmissionTTL)
	}

	// 创建Gin路由
	r := gin.Default()
	controllers.RegisterRoutes(r,
		controllers.NewOrderController(orders, publisher, guard),
		controllers.NewProductController(services.NewCatalogService(products)),
		cfg.JWTSecret,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown failed: %v", err)
		}
	}()

	// 启动服务器
	log.Printf("Pedido service starting on port %s", cfg.HTTPPort)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
}
