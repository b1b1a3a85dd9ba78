package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PollinatorTracker/internal/entity"
	"PollinatorTracker/pkg/cache"

	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const keyPrefix = "detections:"

type Config struct {
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type redisClient struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and returns it as a detection cache. A failed ping
// is logged, not returned: lookups simply miss until Redis is reachable.
func New(cfg Config) cache.IDetectionCache {
	logrus.Info(fmt.Sprintf("Connecting to Redis at %s...", cfg.Address))

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		logrus.Error(fmt.Sprintf("Failed to connect to Redis: %v", err))
	} else {
		logrus.Info("Successfully connected to Redis")
	}

	return NewWithClient(client, cfg.TTL)
}

func NewWithClient(client *redis.Client, ttl time.Duration) cache.IDetectionCache {
	return &redisClient{client: client, ttl: ttl}
}

func (r *redisClient) Get(ctx context.Context, key string) ([]entity.Detection, bool) {
	val, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	} else if err != nil {
		logrus.Error(fmt.Sprintf("Error getting detections for key %s: %v", key, err))
		return nil, false
	}

	var dets []entity.Detection
	if err := jsoniter.Unmarshal(val, &dets); err != nil {
		logrus.Error(fmt.Sprintf("Error decoding cached detections for key %s: %v", key, err))
		return nil, false
	}
	if dets == nil {
		dets = []entity.Detection{}
	}

	return dets, true
}

func (r *redisClient) Close() error {
	return r.client.Close()
}

func (r *redisClient) Set(ctx context.Context, key string, detections []entity.Detection) {
	if detections == nil {
		detections = []entity.Detection{}
	}

	val, err := jsoniter.Marshal(detections)
	if err != nil {
		logrus.Error(fmt.Sprintf("Error encoding detections for key %s: %v", key, err))
		return
	}

	if err := r.client.Set(ctx, keyPrefix+key, val, r.ttl).Err(); err != nil {
		logrus.Error(fmt.Sprintf("Error setting detections for key %s: %v", key, err))
		return
	}
	logrus.Debug(fmt.Sprintf("Cached %d detections for key %s", len(detections), key))
}
