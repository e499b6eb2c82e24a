package emotion

import "EmotionStream/internal/entity"

type RegisterRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type RegisterResponse struct {
	Message string `json:"message"`
	Name    string `json:"name"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type LatestEmotionResponse struct {
	ClientName string `json:"client_name"`
	Emotion    string `json:"emotion"`
}

type RecordsResponse struct {
	Data  []entity.EmotionRecord `json:"data"`
	Count int                    `json:"count"`
}

const (
	DefaultRecordsLimit = 50
	MaxRecordsLimit     = 500
)
