package config

import (
	"EmotionStream/database/postgres"
	emotionHandler "EmotionStream/internal/api/emotion/handler"
	emotionRepository "EmotionStream/internal/api/emotion/repository"
	emotionService "EmotionStream/internal/api/emotion/service"
	"EmotionStream/internal/entity"
	"EmotionStream/internal/middleware"
	"EmotionStream/internal/stream"
	"EmotionStream/pkg/classifier"
	"EmotionStream/pkg/log"
	"EmotionStream/pkg/mqtt"
	"EmotionStream/pkg/redis"
	"EmotionStream/pkg/s3"
	"EmotionStream/pkg/utils"
	websocketPkg "EmotionStream/pkg/websocket"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

const defaultModelPath = "./storage/model/emotion_model.json"

type ServerOption func(*Server) error

type Server struct {
	engine         *fiber.App
	db             *sqlx.DB
	log            *logrus.Logger
	middleware     middleware.Middleware
	validator      *validator.Validate
	utils          utils.IUtils
	handlers       []handler
	redisServer    redis.IRedis
	s3Client       s3.ItfS3
	landmarkClient websocketPkg.ILandmarkClient
	classifier     *classifier.Classifier
	publisher      mqtt.IPublisher
	registry       *stream.Registry
	shutdownWait   time.Duration
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{
		registry:     stream.NewRegistry(),
		shutdownWait: stream.DefaultShutdownWait,
	}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.classifier == nil {
		return nil, fmt.Errorf("classifier is required")
	}
	if server.landmarkClient == nil {
		return nil, fmt.Errorf("landmark client is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

func WithRedisServer(redisServer redis.IRedis) ServerOption {
	return func(s *Server) error {
		s.redisServer = redisServer
		return nil
	}
}

func WithLandmarkClient(client websocketPkg.ILandmarkClient) ServerOption {
	return func(s *Server) error {
		s.landmarkClient = client
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithS3Client() ServerOption {
	return func(s *Server) error {
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

// WithClassifier loads the model artifact named by MODEL_PATH, either a local
// file or an s3://bucket/key object. WithS3Client must come first for the
// latter.
func WithClassifier() ServerOption {
	return func(s *Server) error {
		path := os.Getenv("MODEL_PATH")
		if path == "" {
			path = defaultModelPath
		}

		var (
			clf *classifier.Classifier
			err error
		)

		if s3.IsURI(path) {
			if s.s3Client == nil {
				return fmt.Errorf("model %s needs an S3 client", path)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			data, dlErr := s.s3Client.Download(ctx, path)
			if dlErr != nil {
				return fmt.Errorf("failed to download model: %w", dlErr)
			}
			clf, err = classifier.Parse(data, entity.EmotionLabels)
		} else {
			clf, err = classifier.LoadFile(path, entity.EmotionLabels)
		}
		if err != nil {
			return fmt.Errorf("failed to load model %s: %w", path, err)
		}

		if s.log != nil {
			s.log.WithFields(log.Fields{
				"path":         path,
				"version":      clf.Version(),
				"feature_size": clf.FeatureSize(),
				"labels":       clf.Labels(),
			}).Info("Emotion model loaded")
		}

		s.classifier = clf
		return nil
	}
}

// WithMQTT connects the record publisher when MQTT_BROKER is set. A broker
// that cannot be reached is logged and skipped.
func WithMQTT() ServerOption {
	return func(s *Server) error {
		cfg := mqtt.ConfigFromEnv()
		if cfg == nil {
			return nil
		}

		publisher, err := mqtt.New(*cfg, s.log)
		if err != nil {
			if s.log != nil {
				s.log.Warnf("MQTT publisher disabled: %v", err)
			}
			return nil
		}
		s.publisher = publisher
		return nil
	}
}

func WithShutdownWait(d time.Duration) ServerOption {
	return func(s *Server) error {
		if d > 0 {
			s.shutdownWait = d
		}
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() {
	// Emotion Domain
	emotionRepo := emotionRepository.New(s.db, s.log)
	emotionServices := emotionService.NewEmotionService(
		s.log,
		emotionRepo,
		s.landmarkClient,
		s.classifier,
		s.redisServer,
		s.publisher,
		s.registry,
		s.utils,
	)
	pipeline := stream.NewPipeline(
		emotionServices,
		emotionServices,
		s.registry,
		s.utils,
		s.log,
		stream.WithShutdownWait(s.shutdownWait),
	)
	emotionHandlers := emotionHandler.New(s.log, s.validator, s.middleware, emotionServices, pipeline)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, emotionHandlers)
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(s.middleware.NewLoggingMiddleware())
	router := s.engine.Group("/api/v1")

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	return s.engine.Listen(fmt.Sprintf(":%s", port))
}

// Shutdown stops accepting requests, ends the current detection session and
// releases the outbound clients.
func (s *Server) Shutdown(timeout time.Duration) error {
	if current, ok := s.registry.Current(); ok {
		current.Stop()
	}

	err := s.engine.ShutdownWithTimeout(timeout)

	if s.landmarkClient != nil {
		s.landmarkClient.CloseConnection()
	}
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.redisServer != nil {
		if closeErr := s.redisServer.Close(); closeErr != nil {
			s.log.Warnf("Error closing redis client: %v", closeErr)
		}
	}
	if s.db != nil {
		if closeErr := s.db.Close(); closeErr != nil {
			s.log.Warnf("Error closing database: %v", closeErr)
		}
	}

	return err
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
