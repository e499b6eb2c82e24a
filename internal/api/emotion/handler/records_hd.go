package emotionHandler

import (
	"EmotionStream/internal/api/emotion"
	contextPkg "EmotionStream/pkg/context"
	"EmotionStream/pkg/handlerUtil"
	"EmotionStream/pkg/log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

func (h *EmotionHandler) GetRecords(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	name := ctx.Params("name")

	limit := emotion.DefaultRecordsLimit
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return errHandler.Handle(ctx, requestID, emotion.ErrInvalidLimit, ctx.Path(), "parse_limit")
		}
		limit = parsed
	}

	records, err := h.emotionService.GetRecords(c, name, limit)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_records")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"client":     name,
			"count":      len(records),
		}).Debug("Emotion records fetched")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, emotion.RecordsResponse{
			Data:  records,
			Count: len(records),
		})
	}
}

func (h *EmotionHandler) GetLatestEmotion(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 5*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	name := ctx.Params("name")

	latest, err := h.emotionService.GetLatestEmotion(c, name)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_latest_emotion")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, emotion.LatestEmotionResponse{
		ClientName: name,
		Emotion:    latest,
	})
}
