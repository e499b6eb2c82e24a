package emotionService

import (
	"EmotionStream/internal/api/emotion"
	"EmotionStream/internal/entity"
	"EmotionStream/pkg/log"
	"EmotionStream/pkg/redis"
	"errors"
	"fmt"

	"golang.org/x/net/context"
)

// Record persists one emotion record. The database write decides success;
// the cache and broker copies are best effort.
func (s *emotionService) Record(ctx context.Context, record entity.EmotionRecord) error {
	client, err := s.repo.NewClient(false)
	if err != nil {
		return fmt.Errorf("open repository client: %w", err)
	}

	if err := client.Records.CreateRecord(ctx, record); err != nil {
		return fmt.Errorf("create emotion record: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetLatestEmotion(ctx, record.ClientName, record.Emotion, latestEmotionTTL); err != nil {
			s.log.WithFields(log.Fields{
				"client": record.ClientName,
				"error":  err.Error(),
			}).Warn("Failed to cache latest emotion")
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(record.ClientName, record); err != nil {
			s.log.WithFields(log.Fields{
				"client": record.ClientName,
				"error":  err.Error(),
			}).Warn("Failed to publish emotion record")
		}
	}

	s.log.WithFields(log.Fields{
		"client":  record.ClientName,
		"emotion": record.Emotion,
	}).Debug("Emotion recorded")

	return nil
}

func (s *emotionService) GetRecords(ctx context.Context, clientName string, limit int) ([]entity.EmotionRecord, error) {
	if limit <= 0 || limit > emotion.MaxRecordsLimit {
		return nil, emotion.ErrInvalidLimit
	}

	client, err := s.repo.NewClient(false)
	if err != nil {
		return nil, err
	}

	return client.Records.GetRecordsByClient(ctx, clientName, limit)
}

func (s *emotionService) GetLatestEmotion(ctx context.Context, clientName string) (string, error) {
	if s.cache == nil {
		return "", emotion.ErrLatestNotFound
	}

	value, err := s.cache.GetLatestEmotion(ctx, clientName)
	if errors.Is(err, redis.ErrNotFound) {
		return "", emotion.ErrLatestNotFound
	}
	if err != nil {
		return "", err
	}

	return value, nil
}
