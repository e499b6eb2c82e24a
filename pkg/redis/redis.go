package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var ErrNotFound = errors.New("key not found")

const latestEmotionPrefix = "emotion:latest:"

type IRedis interface {
	SetLatestEmotion(ctx context.Context, clientName string, emotion string, expiration time.Duration) error
	GetLatestEmotion(ctx context.Context, clientName string) (string, error)
	Close() error
}

type redisClient struct {
	client *redis.Client
}

func New() IRedis {
	db, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	redisAddr := os.Getenv("REDIS_ADDRESS")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	return NewWithOptions(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	})
}

func NewWithOptions(opts *redis.Options) IRedis {
	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", opts.Addr))

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	return &redisClient{client: client}
}

func latestEmotionKey(clientName string) string {
	return latestEmotionPrefix + clientName
}

func (r *redisClient) SetLatestEmotion(ctx context.Context, clientName string, emotion string, expiration time.Duration) error {
	key := latestEmotionKey(clientName)
	logrus.Debug(fmt.Sprintf("Setting latest emotion for key %s with expiration %v", key, expiration))
	if err := r.client.Set(ctx, key, emotion, expiration).Err(); err != nil {
		logrus.Error(fmt.Sprintf("Error setting latest emotion for key %s: %v", key, err))
		return err
	}
	return nil
}

func (r *redisClient) GetLatestEmotion(ctx context.Context, clientName string) (string, error) {
	key := latestEmotionKey(clientName)
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		logrus.Debug(fmt.Sprintf("Latest emotion not found for key %s", key))
		return "", ErrNotFound
	} else if err != nil {
		logrus.Error(fmt.Sprintf("Error getting latest emotion for key %s: %v", key, err))
		return "", err
	}
	return val, nil
}

func (r *redisClient) Close() error {
	return r.client.Close()
}
