package main

import (
	"context"
	"fmt"
	"log"

	"flag"

	"socialgraph/api/middleware"
	"socialgraph/api/routes"
	"socialgraph/config"
	"socialgraph/db"
	"socialgraph/services"

	"github.com/gin-gonic/gin"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	err := config.LoadConfig(configPath)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	log.Println("Starting server...")

	err = db.ConnectDB()
	if err != nil {
		panic("Failed to connect to the database: " + err.Error())
	}

	ctx := context.Background()

	if err := services.InitRedis(); err != nil {
		log.Printf("WARNING: redis unavailable, feed cache and counters disabled: %v", err)
	} else {
		services.InitQueueService(services.NewPostService(services.NewVisibilityService()))
		services.QueueServiceInstance.StartWorkers(ctx)
	}

	if err := services.InitRabbitMQ(); err != nil {
		log.Printf("WARNING: rabbitmq unavailable, notifications fall back to direct push: %v", err)
	} else if err := services.StartNotifyEventConsumer(ctx, "notify_ws_push"); err != nil {
		log.Printf("WARNING: notify consumer not started: %v", err)
	}

	router := gin.Default()

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.PrometheusMiddleware("socialgraph"))

	routes.PublicApi(router)

	addr := fmt.Sprintf("%s:%d", config.AppConfig.Backend.Host, config.AppConfig.Backend.Port)
	if err := router.Run(addr); err != nil {
		panic(err)
	}
}
