package emotion

import (
	"EmotionStream/pkg/response"
	"net/http"
)

var (
	ErrNoActiveSession     = response.NewError(http.StatusConflict, "no active detection session")
	ErrLatestNotFound      = response.NewError(http.StatusNotFound, "no emotion recorded for client")
	ErrInvalidRequest      = response.NewError(http.StatusBadRequest, "invalid request body")
	ErrInvalidLimit        = response.NewError(http.StatusBadRequest, "invalid limit")
	ErrInvalidFrame        = response.NewError(http.StatusBadRequest, "invalid frame")
	ErrInternalServerError = response.NewError(http.StatusInternalServerError, "internal server error")
)
