package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"recordsmaster/internal/domain"
	"recordsmaster/internal/notify"
	"recordsmaster/internal/repository"
	"recordsmaster/internal/store"

	"go.uber.org/zap"
)

// requestedCacheTTL bounds staleness of the pending-requests dashboard.
const requestedCacheTTL = 30 * time.Second

// LifecycleService drives a record through its custody states:
// Available -> Requested -> (ReadyForPickup) -> CheckedOut -> Available.
type LifecycleService interface {
	Request(ctx context.Context, recordID, userID string) error
	MarkReadyForPickup(ctx context.Context, recordID string) error
	Checkout(ctx context.Context, recordID, userID string) error
	CheckIn(ctx context.Context, recordID string) error

	ListRequested(ctx context.Context) ([]*domain.RecordItem, error)
	History(ctx context.Context, recordID string) ([]*domain.CheckoutHistoryEntry, error)
}

type lifecycleService struct {
	records  repository.RecordsRepository
	cache    store.KV
	notifier notify.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewLifecycleService(
	records repository.RecordsRepository,
	cache store.KV,
	notifier notify.Notifier,
	logger *zap.Logger,
) LifecycleService {
	return &lifecycleService{
		records:  records,
		cache:    cache,
		notifier: notifier,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Request flags a record for retrieval from storage. Refused while the record
// is out: the repository's conditional update is the arbiter, not a prior read.
func (s *lifecycleService) Request(ctx context.Context, recordID, userID string) error {
	if err := s.records.MarkRequested(ctx, recordID); err != nil {
		return err
	}
	s.logger.Info("record requested",
		zap.String("record_id", recordID),
		zap.String("user_id", userID),
	)
	s.invalidateRequested(ctx)
	return nil
}

// MarkReadyForPickup is the clerk's signal that a requested record has been
// pulled from the shelf.
func (s *lifecycleService) MarkReadyForPickup(ctx context.Context, recordID string) error {
	if err := s.records.MarkReadyForPickup(ctx, recordID); err != nil {
		return err
	}
	s.logger.Info("record ready for pickup", zap.String("record_id", recordID))
	s.invalidateRequested(ctx)
	return nil
}

// Checkout hands the record to userID and opens a custody history entry.
// Exactly one of any set of concurrent callers wins; the rest receive
// domain.ErrAlreadyCheckedOut.
func (s *lifecycleService) Checkout(ctx context.Context, recordID, userID string) error {
	if err := s.records.Checkout(ctx, recordID, userID, s.now()); err != nil {
		return err
	}
	s.logger.Info("record checked out",
		zap.String("record_id", recordID),
		zap.String("user_id", userID),
	)
	s.invalidateRequested(ctx)
	s.notifier.Notify(ctx, notify.EventRecordCheckedOut, map[string]any{
		"record_id": recordID,
		"user_id":   userID,
	})
	return nil
}

// CheckIn returns the record to the shelf, clears every custody flag and
// closes the open history entry.
func (s *lifecycleService) CheckIn(ctx context.Context, recordID string) error {
	if err := s.records.CheckIn(ctx, recordID, s.now()); err != nil {
		return err
	}
	s.logger.Info("record checked in", zap.String("record_id", recordID))
	s.invalidateRequested(ctx)
	return nil
}

// ListRequested serves the pending-requests dashboard, cache-first.
func (s *lifecycleService) ListRequested(ctx context.Context) ([]*domain.RecordItem, error) {
	if cached, err := s.cache.Get(ctx, store.KeyRequestedRecords); err == nil {
		var records []*domain.RecordItem
		if err := json.Unmarshal([]byte(cached), &records); err == nil {
			return records, nil
		}
		// Poisoned entry: drop it and fall through to the database.
		_ = s.cache.Delete(ctx, store.KeyRequestedRecords)
	} else if err != store.ErrMiss {
		s.logger.Warn("requested-records cache read failed", zap.Error(err))
	}

	records, _, err := s.records.ListRecords(ctx, repository.RecordFilters{Requested: true}, 1, 1000)
	if err != nil {
		return nil, fmt.Errorf("list requested records: %w", err)
	}

	if raw, err := json.Marshal(records); err == nil {
		if err := s.cache.Set(ctx, store.KeyRequestedRecords, string(raw), requestedCacheTTL); err != nil {
			s.logger.Warn("requested-records cache write failed", zap.Error(err))
		}
	}
	return records, nil
}

func (s *lifecycleService) History(ctx context.Context, recordID string) ([]*domain.CheckoutHistoryEntry, error) {
	if _, err := s.records.GetRecord(ctx, recordID); err != nil {
		return nil, err
	}
	return s.records.HistoryFor(ctx, recordID)
}

func (s *lifecycleService) invalidateRequested(ctx context.Context) {
	if err := s.cache.Delete(ctx, store.KeyRequestedRecords); err != nil {
		s.logger.Warn("requested-records cache invalidation failed", zap.Error(err))
	}
}
