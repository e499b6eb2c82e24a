package main

import (
	"EmotionStream/internal/config"
	"EmotionStream/pkg/log"
	"EmotionStream/pkg/redis"
	"EmotionStream/pkg/s3"
	websocketPkg "EmotionStream/pkg/websocket"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
)

func main() {
	logger := log.NewLogger()
	if err := godotenv.Load(); err != nil {
		logger.Warnf("No .env file loaded: %v", err)
	}

	shutdownWait := 5 * time.Second
	if raw := os.Getenv("STREAM_SHUTDOWN_WAIT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			logger.Fatalf("Invalid STREAM_SHUTDOWN_WAIT %q: %v", raw, err)
		}
		shutdownWait = d
	}

	fiberApp := config.NewFiber(logger)
	validator := config.NewValidator()
	redisServer := redis.New()
	landmarkClient := websocketPkg.NewLandmarkClient(logger, websocketPkg.URLFromEnv())

	options := []config.ServerOption{
		config.WithFiber(fiberApp),
		config.WithLogger(logger),
		config.WithValidator(validator),
		config.WithDatabase(),
		config.WithRedisServer(redisServer),
		config.WithLandmarkClient(landmarkClient),
		config.WithMiddleware(),
		config.WithUtils(),
		config.WithMQTT(),
		config.WithShutdownWait(shutdownWait),
	}
	if s3.IsURI(os.Getenv("MODEL_PATH")) {
		options = append(options, config.WithS3Client())
	}
	options = append(options, config.WithClassifier())

	server, err := config.NewServer(options...)
	if err != nil {
		logger.Fatal(err)
	}

	server.RegisterHandler()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.Run(); err != nil {
			logger.Fatalf("Error starting server: %v", err)
		}
	}()

	logger.Info("Server started successfully")

	<-sigChan
	logger.Info("Shutting down server...")

	if err := server.Shutdown(shutdownWait + 5*time.Second); err != nil {
		logger.Errorf("Error during shutdown: %v", err)
	}
}
