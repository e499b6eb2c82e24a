package emotionHandler

import (
	"EmotionStream/internal/api/emotion"
	contextPkg "EmotionStream/pkg/context"
	"EmotionStream/pkg/handlerUtil"
	"EmotionStream/pkg/log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

func (h *EmotionHandler) RegisterClient(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c := contextPkg.FromFiberCtx(ctx)

	errHandler := handlerUtil.New(h.log)

	var req emotion.RegisterRequest
	if err := ctx.BodyParser(&req); err != nil {
		return errHandler.Handle(ctx, requestID, emotion.ErrInvalidRequest, ctx.Path(), "parse_request_body")
	}

	req.Name = strings.TrimSpace(req.Name)

	if err := h.validator.Struct(req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	name, err := h.emotionService.RegisterClient(c, req.Name)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "register_client")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, emotion.RegisterResponse{
		Message: "Client registered",
		Name:    name,
	})
}

func (h *EmotionHandler) StopDetection(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c := contextPkg.FromFiberCtx(ctx)

	errHandler := handlerUtil.New(h.log)

	if err := h.emotionService.StopDetection(c); err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "stop_detection")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, emotion.MessageResponse{
		Message: "Detection stopped",
	})
}

func (h *EmotionHandler) GetSession(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c := contextPkg.FromFiberCtx(ctx)

	errHandler := handlerUtil.New(h.log)

	status, err := h.emotionService.CurrentSession(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "current_session")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"session_id": status.ID,
		"dropped":    status.Dropped,
	}).Debug("Session status served")

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, status)
}
