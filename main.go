package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"corvex/config"
	"corvex/cron"
	"corvex/handlers"
	"corvex/middleware"
	"corvex/routes"
	"corvex/services/booking"
	"corvex/services/conversation"
	"corvex/services/tasks"
	"corvex/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	utils.InitSessionCache()
	utils.InitBookingCache()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	sessionTTL := time.Duration(config.AppConfig.SessionTTLMinutes) * time.Minute

	// Stores.
	sessionStore := conversation.NewRedisSessionStore(utils.GetSessionCacheClient(), sessionTTL)
	bookingStore := booking.NewRedisBookingStore(utils.GetBookingCacheClient(), sessionTTL)

	// Collaborator service clients.
	chatBackend := conversation.NewHTTPChatBackend(config.AppConfig.BackendBaseURL, config.AppConfig.ClientKey)
	schedBackend := booking.NewHTTPSchedulingBackend(config.AppConfig.BackendBaseURL, config.AppConfig.ClientKey)

	// Reminder queue.
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer asynqClient.Close()
	reminderScheduler := tasks.NewAsynqReminderScheduler(asynqClient)
	cron.InitReminderWorker()

	// Services.
	conversationService := conversation.NewConversationService(
		sessionStore, chatBackend, chatBackend, config.AppConfig.ClientKey)
	bookingService := booking.NewBookingService(
		bookingStore, schedBackend, schedBackend, reminderScheduler, config.AppConfig.AvailabilityDays)

	// Handlers and routes.
	chatHandler := handlers.NewChatHandler(conversationService)
	bookingHandler := handlers.NewBookingHandler(bookingService, conversationService)
	routes.RegisterRoutes(router, chatHandler, bookingHandler)

	utils.StartHealthMonitor([]*redis.Client{
		utils.GetSessionCacheClient(),
		utils.GetBookingCacheClient(),
	})

	srv := &http.Server{
		Addr:    ":" + config.AppConfig.AppPort,
		Handler: router,
	}

	go func() {
		logger.Info("server listening", zap.String("port", config.AppConfig.AppPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server error: %v", err)
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", zap.Error(err))
	}
}
