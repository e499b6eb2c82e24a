package emotionService

import (
	emotionRepository "EmotionStream/internal/api/emotion/repository"
	"EmotionStream/internal/entity"
	"EmotionStream/internal/stream"
	"EmotionStream/pkg/mqtt"
	"EmotionStream/pkg/redis"
	"EmotionStream/pkg/utils"
	websocketPkg "EmotionStream/pkg/websocket"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const latestEmotionTTL = 24 * time.Hour

// Classifier maps a landmark feature vector to an index into the label set.
type Classifier interface {
	Predict(features []float64) (int, error)
	Label(index int) (string, error)
}

type IEmotionService interface {
	Detect(ctx context.Context, frame []byte) (*string, error)
	Record(ctx context.Context, record entity.EmotionRecord) error
	RegisterClient(ctx context.Context, name string) (string, error)
	StopDetection(ctx context.Context) error
	CurrentSession(ctx context.Context) (stream.SessionStatus, error)
	GetRecords(ctx context.Context, clientName string, limit int) ([]entity.EmotionRecord, error)
	GetLatestEmotion(ctx context.Context, clientName string) (string, error)
}

type emotionService struct {
	log        *logrus.Logger
	repo       emotionRepository.Repository
	landmarks  websocketPkg.ILandmarkClient
	classifier Classifier
	cache      redis.IRedis
	publisher  mqtt.IPublisher
	registry   *stream.Registry
	utils      utils.IUtils
}

// NewEmotionService wires the detection collaborators. cache and publisher
// are optional and may be nil.
func NewEmotionService(
	log *logrus.Logger,
	repo emotionRepository.Repository,
	landmarks websocketPkg.ILandmarkClient,
	classifier Classifier,
	cache redis.IRedis,
	publisher mqtt.IPublisher,
	registry *stream.Registry,
	utils utils.IUtils,
) IEmotionService {
	return &emotionService{
		log:        log,
		repo:       repo,
		landmarks:  landmarks,
		classifier: classifier,
		cache:      cache,
		publisher:  publisher,
		registry:   registry,
		utils:      utils,
	}
}
