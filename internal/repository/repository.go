// Package repository implements per-entity-type storage on top of a
// key-value store. The store has no scan, so each type keeps its own index:
// an ordered list of ids under "<type>_index".
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Shivanand-hulikatti/event-rsvp/internal/database"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/metrics"
	"github.com/Shivanand-hulikatti/event-rsvp/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrStoreUnavailable wraps any failure of the underlying key-value store.
var ErrStoreUnavailable = errors.New("store unavailable")

// Store persists one entity type. All operations on a Store are serialized,
// so index read-modify-write cycles never interleave.
type Store[T model.Record] struct {
	kv       database.KV
	typeName string

	mu sync.Mutex
}

// NewStore constructs a Store whose records live under "<typeName>:<id>".
func NewStore[T model.Record](kv database.KV, typeName string) *Store[T] {
	return &Store[T]{kv: kv, typeName: typeName}
}

// NewEventRepository constructs the event store.
func NewEventRepository(kv database.KV) *Store[model.Event] {
	return NewStore[model.Event](kv, "event")
}

// NewRegistrationRepository constructs the registration store.
func NewRegistrationRepository(kv database.KV) *Store[model.Registration] {
	return NewStore[model.Registration](kv, "registration")
}

func (s *Store[T]) recordKey(id string) string { return s.typeName + ":" + id }

func (s *Store[T]) indexKey() string { return s.typeName + "_index" }

// Create writes rec and appends its id to the index.
//
// The record and the index are two separate writes. If the process dies
// between them the record exists but is not listed; List tolerates the
// reverse case (an indexed id without a record).
func (s *Store[T]) Create(ctx context.Context, rec T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.putRecord(ctx, rec); err != nil {
		return err
	}

	index, err := s.readIndex(ctx)
	if err != nil {
		return err
	}
	index = append(index, rec.RecordID())
	return s.writeIndex(ctx, index)
}

// Get returns the record stored under id or ErrNotFound.
func (s *Store[T]) Get(ctx context.Context, id string) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getRecord(ctx, id)
}

// Update loads the record, applies mutate and writes it back.
// The index is left untouched.
func (s *Store[T]) Update(ctx context.Context, id string, mutate func(*T) error) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.getRecord(ctx, id)
	if err != nil {
		return rec, err
	}
	if err := mutate(&rec); err != nil {
		var zero T
		return zero, err
	}
	if err := s.putRecord(ctx, rec); err != nil {
		var zero T
		return zero, err
	}
	return rec, nil
}

// Delete removes the record and then rewrites the index without id.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getRecord(ctx, id); err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, s.recordKey(id)); err != nil {
		return s.unavailable("delete", err)
	}

	index, err := s.readIndex(ctx)
	if err != nil {
		return err
	}
	index = slices.DeleteFunc(index, func(v string) bool { return v == id })
	return s.writeIndex(ctx, index)
}

// Clear deletes every indexed record, then writes an empty index so ids
// left behind by an interrupted delete go too. It returns how many records
// existed.
func (s *Store[T]) Clear(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.readIndex(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, id := range index {
		if _, err := s.getRecord(ctx, id); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return deleted, err
		}
		if err := s.kv.Delete(ctx, s.recordKey(id)); err != nil {
			return deleted, s.unavailable("delete", err)
		}
		deleted++
	}
	return deleted, s.writeIndex(ctx, nil)
}

// List returns every indexed record in insertion order. Ids whose record
// is missing are skipped.
func (s *Store[T]) List(ctx context.Context) ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	index, err := s.readIndex(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]T, 0, len(index))
	for _, id := range index {
		rec, err := s.getRecord(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Count returns the number of records List would return.
func (s *Store[T]) Count(ctx context.Context) (int, error) {
	records, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (s *Store[T]) getRecord(ctx context.Context, id string) (T, error) {
	var rec T
	data, err := s.kv.Get(ctx, s.recordKey(id))
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return rec, ErrNotFound
		}
		return rec, s.unavailable("get", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decode %s %s: %w", s.typeName, id, err)
	}
	return rec, nil
}

func (s *Store[T]) putRecord(ctx context.Context, rec T) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", s.typeName, rec.RecordID(), err)
	}
	if err := s.kv.Put(ctx, s.recordKey(rec.RecordID()), data); err != nil {
		return s.unavailable("put", err)
	}
	return nil
}

func (s *Store[T]) readIndex(ctx context.Context) ([]string, error) {
	data, err := s.kv.Get(ctx, s.indexKey())
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, s.unavailable("get", err)
	}
	var index []string
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.indexKey(), err)
	}
	return index, nil
}

func (s *Store[T]) writeIndex(ctx context.Context, index []string) error {
	if index == nil {
		index = []string{}
	}
	data, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("encode %s: %w", s.indexKey(), err)
	}
	if err := s.kv.Put(ctx, s.indexKey(), data); err != nil {
		return s.unavailable("put", err)
	}
	return nil
}

func (s *Store[T]) unavailable(op string, err error) error {
	metrics.StoreErrors.WithLabelValues(op).Inc()
	return fmt.Errorf("%w: %s %s: %v", ErrStoreUnavailable, op, s.typeName, err)
}
