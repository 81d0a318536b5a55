package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	HFavorites      string = "favorites"
	KFavoritesOrder string = "favorites:seq"
)

var _ FavoritesStorage = (*redisFavoritesStorage)(nil)

type redisFavoritesStorage struct {
	logger *zap.Logger
	client *redis.Client
}

// NewRedisFavoritesStorage provides an instance of redis-based favorites mirror.
func NewRedisFavoritesStorage(logger *zap.Logger, client *redis.Client) FavoritesStorage {
	return &redisFavoritesStorage{
		logger: logger,
		client: client,
	}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
		PoolSize:     config.Redis.PoolSize,
		PoolTimeout:  config.Redis.PoolTimeout,
		Password:     config.Redis.Password,
		Username:     config.Redis.Username,
		DB:           config.Redis.DatabaseIndex,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

// Add stores the book with the next order sequence. HSETNX keeps the
// first position of a book already stored.
func (rs *redisFavoritesStorage) Add(ctx context.Context, book BookRecord) error {
	seq, err := rs.client.Incr(ctx, KFavoritesOrder).Result()
	if err != nil {
		return err
	}
	entryBytes, err := json.Marshal(FavoriteEntry{Book: book, Position: uint64(seq)})
	if err != nil {
		return err
	}
	return rs.client.HSetNX(ctx, HFavorites, book.ID, entryBytes).Err()
}

// Delete removes a favorite based on its book id.
func (rs *redisFavoritesStorage) Delete(ctx context.Context, id string) error {
	err := rs.client.HDel(ctx, HFavorites, id).Err()
	if err == redis.Nil {
		return nil
	}
	return err
}

// GetAll retrieves every stored favorite in no particular order.
func (rs *redisFavoritesStorage) GetAll(ctx context.Context) ([]FavoriteEntry, error) {
	values, err := rs.client.HVals(ctx, HFavorites).Result()
	if err != nil {
		return nil, err
	}
	entries := []FavoriteEntry{}
	for _, entryJSONString := range values {
		var entry FavoriteEntry
		if err = json.Unmarshal([]byte(entryJSONString), &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// DeleteAll removes the favorites hash and its order sequence.
func (rs *redisFavoritesStorage) DeleteAll(ctx context.Context) error {
	return rs.client.Del(ctx, HFavorites, KFavoritesOrder).Err()
}
