// Package store is the gorm backed credential, session and token store used
// by the auth workflow.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicate        = errors.New("record already exists")
	ErrTokenAlreadyUsed = errors.New("token was used already")
)

const (
	readRetries = 3
	readBackoff = 25 * time.Millisecond
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB { return s.db }

// Transaction runs fn with a Store bound to a single transaction. Everything
// fn does through tx is committed together or not at all.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// read retries transient failures of idempotent lookups. Missing rows are
// an answer, not a failure, so they're returned straight away.
func (s *Store) read(ctx context.Context, fn func(db *gorm.DB) error) error {
	b := retry.WithMaxRetries(readRetries-1, retry.NewExponential(readBackoff))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := translate(fn(s.db.WithContext(ctx)))
		if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return retry.RetryableError(err)
	})
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Join(ErrDuplicate, err)
	default:
		return err
	}
}
