package entity

import "time"

// EmotionLabels is the label set the classifier was trained with. Class index
// i of the model means EmotionLabels[i]; the order is part of the model.
var EmotionLabels = []string{"Feliz", "Triste", "Sorprendido"}

// DetectionResult is sent back for every processed frame. Emotion is nil
// when no face was found.
type DetectionResult struct {
	Emotion *string `json:"emotion"`
}

type EmotionRecord struct {
	ID         string    `json:"id"`
	ClientName string    `json:"client_name"`
	Emotion    string    `json:"emotion"`
	CreatedAt  time.Time `json:"created_at"`
}
