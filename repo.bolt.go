package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

var _ FavoritesStorage = (*boltFavoritesStorage)(nil)

type boltFavoritesStorage struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
}

// GetBoltDBClient setup the database and the bucket then provides a ready to use client.
func GetBoltDBClient(config *Config) (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(config.BoltDB.FilePath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create the database folder, %v", err)
	}
	db, err := bolt.Open(config.BoltDB.FilePath, 0o600, &bolt.Options{Timeout: config.BoltDB.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BoltDB.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %v", config.BoltDB.BucketName, errB)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %v", err)
	}
	return db, nil
}

// NewBoltFavoritesStorage provides an instance of bolt-based favorites mirror.
func NewBoltFavoritesStorage(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) FavoritesStorage {
	return &boltFavoritesStorage{
		logger: logger,
		client: client,
		config: boltConfig,
	}
}

// Add stores the book under its id with the next bucket sequence as position.
// A book already stored is left untouched.
func (bs *boltFavoritesStorage) Add(_ context.Context, book BookRecord) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bs.config.BucketName))
		if b.Get([]byte(book.ID)) != nil {
			return nil
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		entryBytes, err := json.Marshal(FavoriteEntry{Book: book, Position: seq})
		if err != nil {
			return err
		}
		return b.Put([]byte(book.ID), entryBytes)
	})
}

// Delete removes a favorite based on its book id. Missing ids are ignored.
func (bs *boltFavoritesStorage) Delete(_ context.Context, id string) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bs.config.BucketName)).Delete([]byte(id))
	})
}

// GetAll retrieves all stored favorites. They come in key order,
// callers sort them by position.
func (bs *boltFavoritesStorage) GetAll(_ context.Context) ([]FavoriteEntry, error) {
	tx, err := bs.client.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c := tx.Bucket([]byte(bs.config.BucketName)).Cursor()

	entries := []FavoriteEntry{}
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var entry FavoriteEntry
		if err = json.Unmarshal(v, &entry); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// DeleteAll drops and recreates the favorites bucket.
func (bs *boltFavoritesStorage) DeleteAll(_ context.Context) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bs.config.BucketName)); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket([]byte(bs.config.BucketName))
		return err
	})
}
