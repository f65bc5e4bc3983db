package store

import (
	"context"
	"errors"
	"time"

	"github.com/marketloom/user-api/internal/metrics"
	"github.com/marketloom/user-api/internal/models"
)

// InstrumentedStore decorates a UserStore with Prometheus metrics per
// operation.
type InstrumentedStore struct {
	inner UserStore
}

// Instrument wraps a store with operation metrics.
func Instrument(inner UserStore) *InstrumentedStore {
	return &InstrumentedStore{inner: inner}
}

func record(operation string, start time.Time, err error) {
	status := "success"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case errors.Is(err, ErrEmailExists):
		status = "conflict"
	case err != nil:
		status = "failure"
	}
	metrics.RecordStoreOperation(operation, status, time.Since(start))
}

func (s *InstrumentedStore) Insert(ctx context.Context, user *models.User) error {
	start := time.Now()
	err := s.inner.Insert(ctx, user)
	record("insert", start, err)
	return err
}

func (s *InstrumentedStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	start := time.Now()
	user, err := s.inner.FindByID(ctx, id)
	record("find_by_id", start, err)
	return user, err
}

func (s *InstrumentedStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	start := time.Now()
	user, err := s.inner.FindByEmail(ctx, email)
	record("find_by_email", start, err)
	return user, err
}

func (s *InstrumentedStore) List(ctx context.Context) ([]models.User, error) {
	start := time.Now()
	users, err := s.inner.List(ctx)
	record("list", start, err)
	return users, err
}

func (s *InstrumentedStore) UpdateByID(ctx context.Context, id string, patch UserPatch) (UpdateResult, error) {
	start := time.Now()
	result, err := s.inner.UpdateByID(ctx, id, patch)
	record("update", start, err)
	return result, err
}

func (s *InstrumentedStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	start := time.Now()
	matched, err := s.inner.DeleteByID(ctx, id)
	record("delete", start, err)
	return matched, err
}
