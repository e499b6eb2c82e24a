package emotionHandler

import (
	emotionService "EmotionStream/internal/api/emotion/service"
	"EmotionStream/internal/middleware"
	"EmotionStream/internal/stream"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

type EmotionHandler struct {
	log            *logrus.Logger
	validator      *validator.Validate
	middleware     middleware.Middleware
	emotionService emotionService.IEmotionService
	pipeline       *stream.Pipeline
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	es emotionService.IEmotionService,
	pipeline *stream.Pipeline,
) *EmotionHandler {
	return &EmotionHandler{
		log:            log,
		validator:      validator,
		middleware:     middleware,
		emotionService: es,
		pipeline:       pipeline,
	}
}

func (h *EmotionHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	emotion := srv.Group("/emotion")
	emotion.Use("/ws", wsMiddleware)
	emotion.Get("/ws", websocket.New(h.handleStream))

	emotion.Post("/register", h.middleware.NewRateLimiter, h.RegisterClient)
	emotion.Post("/stop", h.middleware.NewRateLimiter, h.StopDetection)
	emotion.Get("/session", h.GetSession)

	emotion.Get("/records/:name", h.GetRecords)
	emotion.Get("/latest/:name", h.GetLatestEmotion)
}
