package emotionService

import (
	"EmotionStream/internal/api/emotion"
	"EmotionStream/pkg/response"
	"fmt"

	"golang.org/x/net/context"
)

// Detect decodes one frame, extracts its landmarks and classifies them.
// It returns nil when the frame holds no face.
func (s *emotionService) Detect(ctx context.Context, frame []byte) (*string, error) {
	img, _, err := s.utils.DecodeFrame(frame)
	if err != nil {
		return nil, response.Wrap(emotion.ErrInvalidFrame, "%v", err)
	}

	payload, err := s.utils.EncodeForLandmarks(img)
	if err != nil {
		return nil, response.Wrap(emotion.ErrInvalidFrame, "encode for landmarks: %v", err)
	}

	features, err := s.landmarks.ExtractLandmarks(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("extract landmarks: %w", err)
	}
	if len(features) == 0 {
		return nil, nil
	}

	index, err := s.classifier.Predict(features)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	label, err := s.classifier.Label(index)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	return &label, nil
}
