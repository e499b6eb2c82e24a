package config

import (
	"EmotionStream/internal/middleware"
	"EmotionStream/pkg/handlerUtil"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

// NewFiber builds the HTTP engine. Frames travel over the websocket, so
// request bodies stay small.
func NewFiber(logger *logrus.Logger) *fiber.App {
	errHandler := handlerUtil.New(logger)

	app := fiber.New(
		fiber.Config{
			AppName:           "Emotion Stream",
			BodyLimit:         1 * 1024 * 1024,
			DisableKeepalive:  false,
			StrictRouting:     true,
			CaseSensitive:     true,
			EnablePrintRoutes: false,
			ReadTimeout:       15 * time.Second,
			IdleTimeout:       60 * time.Second,
			JSONEncoder:       jsoniter.Marshal,
			JSONDecoder:       jsoniter.Unmarshal,
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				requestID, _ := c.Locals(middleware.RequestIDKey).(string)
				if requestID == "" {
					requestID = "unknown"
				}
				return errHandler.Handle(c, requestID, err, c.Path(), "fiber")
			},
		})

	return app
}
