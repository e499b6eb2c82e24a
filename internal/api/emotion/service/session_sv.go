package emotionService

import (
	"EmotionStream/internal/api/emotion"
	"EmotionStream/internal/stream"
	contextPkg "EmotionStream/pkg/context"
	"EmotionStream/pkg/log"

	"golang.org/x/net/context"
)

func (s *emotionService) RegisterClient(ctx context.Context, name string) (string, error) {
	session, ok := s.registry.Current()
	if !ok {
		return "", emotion.ErrNoActiveSession
	}

	session.Register(name)

	s.log.WithFields(log.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"session_id": session.ID(),
		"client":     name,
	}).Info("Client registered")

	return name, nil
}

func (s *emotionService) StopDetection(ctx context.Context) error {
	session, ok := s.registry.Current()
	if !ok {
		return emotion.ErrNoActiveSession
	}

	session.Stop()

	s.log.WithFields(log.Fields{
		"request_id": contextPkg.GetRequestID(ctx),
		"session_id": session.ID(),
	}).Info("Detection stopped")

	return nil
}

func (s *emotionService) CurrentSession(ctx context.Context) (stream.SessionStatus, error) {
	session, ok := s.registry.Current()
	if !ok {
		return stream.SessionStatus{}, emotion.ErrNoActiveSession
	}
	return session.Status(), nil
}
