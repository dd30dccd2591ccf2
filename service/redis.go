package service

import (
	"context"
	"errors"
	"time"

	"github.com/alihoumani6/instastage-backend/config"
	"github.com/alihoumani6/instastage-backend/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const stagedPrefix = "staged:"

type RedisService struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisService(cfg *config.RedisConfig) *RedisService {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	return &RedisService{
		client: client,
		ttl:    cfg.TTL,
	}
}

// NewRedisServiceWithClient 使用已有客户端，便于测试
func NewRedisServiceWithClient(client *redis.Client, ttl time.Duration) *RedisService {
	return &RedisService{client: client, ttl: ttl}
}

func (s *RedisService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// GetStaged 按键读取已布置的 JPEG，未命中返回 nil, nil
func (s *RedisService) GetStaged(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, stagedPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // 缓存未命中
		}
		utils.Logger.Error("failed to read staged result",
			zap.String("key", key), zap.Error(err))
		return nil, err
	}
	return data, nil
}

// SetStaged 写入已布置的 JPEG
func (s *RedisService) SetStaged(ctx context.Context, key string, jpegBytes []byte) error {
	return s.client.Set(ctx, stagedPrefix+key, jpegBytes, s.ttl).Err()
}

func (s *RedisService) Close() error {
	return s.client.Close()
}
