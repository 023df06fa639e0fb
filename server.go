package main

import (
	"context"
	"flag"
	"fmt"
	"wishlist/api/handlers"
	"wishlist/api/middleware"
	"wishlist/api/routes"
	"wishlist/config"
	"wishlist/db"
	"wishlist/logging"
	"wishlist/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	if err := config.LoadConfig(configPath); err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	logging.Setup(config.AppConfig.Logs.Level)
	log.Println("Starting server...")

	if err := db.ConnectDB(); err != nil {
		panic("Failed to connect to the database: " + err.Error())
	}

	ctx := context.Background()

	// Redis и RabbitMQ не обязательны для старта: без них теряются
	// только пуши и живые события, основной API работает
	redisOK := true
	if err := services.InitRedis(); err != nil {
		log.Printf("Redis unavailable, push delivery disabled: %v", err)
		redisOK = false
	}
	if err := services.InitRabbitMQ(); err != nil {
		log.Printf("RabbitMQ unavailable, live events disabled: %v", err)
	} else if err := services.StartSocialEventConsumer(ctx, "social_events_ws"); err != nil {
		log.Printf("Failed to start social event consumer: %v", err)
	}

	var firebaseClient services.FirebaseAuth
	fc, err := services.NewFirebaseClient(ctx, config.AppConfig.Firebase.KeyPath, config.AppConfig.Firebase.ProjectID)
	if err != nil {
		log.Printf("Firebase unavailable, token auth disabled: %v", err)
	} else {
		firebaseClient = fc
	}

	var pushGateway services.PushGateway
	gw, err := services.NewFCMGateway(ctx, config.AppConfig.Firebase.KeyPath, config.AppConfig.Firebase.ProjectID)
	if err != nil {
		log.Printf("FCM gateway unavailable, pushes will be dropped: %v", err)
	} else {
		pushGateway = gw
	}

	services.InitPushQueue(pushGateway)
	if redisOK {
		services.PushQueueInstance.StartWorkers(ctx)
	}

	vkClient := services.NewVKClient(config.AppConfig.VK.ServiceKey)
	handlers.Init(
		services.NewAuthService(firebaseClient, vkClient),
		services.NewUserService(firebaseClient),
		services.NewWishService(),
		services.NewFollowService(services.PushQueueInstance),
	)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(middleware.PrometheusMiddleware("wishlist-api"))

	routes.SystemApi(router)
	routes.PublicApi(router, firebaseClient)

	mediaRoot := config.AppConfig.Media.Root
	if mediaRoot == "" {
		mediaRoot = "media"
	}
	router.Static("/media", mediaRoot)

	addr := fmt.Sprintf("%s:%d", config.AppConfig.Backend.Host, config.AppConfig.Backend.Port)
	if err := router.Run(addr); err != nil {
		panic(err)
	}
}
