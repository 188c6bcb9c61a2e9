// Package calllog implements the shared call log read by the display.
//
// The log lives in a single slot of a SlotStore as a JSON array ordered
// most-recent-first. Every mutation loads the whole slot, edits it and saves
// it back. Two processes writing the same slot can therefore race; the
// Strategy decides whether the second writer silently wins (single-writer
// deployments) or is rejected with ErrVersionConflict (optimistic).
package calllog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"clinic-call-queue/internal/models"
)

// Strategy selects how concurrent writers to the slot are handled
type Strategy string

const (
	// StrategySingleWriter assumes one operator process owns the slot; last write wins
	StrategySingleWriter Strategy = "single-writer"
	// StrategyOptimistic saves with compare-and-set on the slot version
	StrategyOptimistic Strategy = "optimistic"
)

// ParseStrategy parses a configured strategy name
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategySingleWriter:
		return StrategySingleWriter, nil
	case StrategyOptimistic:
		return StrategyOptimistic, nil
	default:
		return "", fmt.Errorf("unknown call log strategy %q: must be %q or %q", s, StrategySingleWriter, StrategyOptimistic)
	}
}

type Log struct {
	store    SlotStore
	strategy Strategy
	mu       sync.Mutex
}

func New(store SlotStore, strategy Strategy) *Log {
	if strategy == "" {
		strategy = StrategySingleWriter
	}
	return &Log{store: store, strategy: strategy}
}

// Strategy returns the write strategy in use
func (l *Log) Strategy() Strategy {
	return l.strategy
}

// ReadAll returns the current records, most recent first.
// A missing or empty slot reads as an empty log.
func (l *Log) ReadAll(ctx context.Context) ([]models.CallRecord, error) {
	records, _, err := l.load(ctx, "read")
	return records, err
}

// Version returns the slot version, 0 if the slot was never written
func (l *Log) Version(ctx context.Context) (int64, error) {
	_, version, err := l.store.Load(ctx)
	if err != nil {
		return 0, &PersistenceError{Op: "read", Err: err}
	}
	return version, nil
}

// Append puts rec at the front of the log and persists the result.
// The timestamp is raised to the current head's if the clock went backwards,
// so timestamps never decrease from tail to head. The stored record is returned.
func (l *Log) Append(ctx context.Context, rec models.CallRecord) (models.CallRecord, error) {
	err := l.mutate(ctx, "append", func(records []models.CallRecord) ([]models.CallRecord, bool, error) {
		for _, r := range records {
			if r.PatientName == rec.PatientName {
				return nil, false, fmt.Errorf("%w: %s", ErrDuplicateRecord, rec.PatientName)
			}
		}
		if len(records) > 0 && rec.Timestamp < records[0].Timestamp {
			rec.Timestamp = records[0].Timestamp
		}

		next := make([]models.CallRecord, 0, len(records)+1)
		next = append(next, rec)
		next = append(next, records...)
		return next, true, nil
	})
	if err != nil {
		return models.CallRecord{}, err
	}
	return rec, nil
}

// RemoveByPatient deletes the record for name, if any, and persists the result.
// It reports whether a record was removed; nothing is written when none matched.
func (l *Log) RemoveByPatient(ctx context.Context, name string) (bool, error) {
	removed := false
	err := l.mutate(ctx, "remove", func(records []models.CallRecord) ([]models.CallRecord, bool, error) {
		next := make([]models.CallRecord, 0, len(records))
		for _, r := range records {
			if r.PatientName == name {
				removed = true
				continue
			}
			next = append(next, r)
		}
		return next, removed, nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

func (l *Log) mutate(ctx context.Context, op string, edit func([]models.CallRecord) ([]models.CallRecord, bool, error)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, version, err := l.load(ctx, op)
	if err != nil {
		return err
	}

	next, changed, err := edit(records)
	if err != nil || !changed {
		return err
	}

	data, err := json.Marshal(next)
	if err != nil {
		return &PersistenceError{Op: op, Err: fmt.Errorf("encode: %w", err)}
	}

	expected := AnyVersion
	if l.strategy == StrategyOptimistic {
		expected = version
	}
	if _, err := l.store.Save(ctx, data, expected); err != nil {
		return &PersistenceError{Op: op, Err: err}
	}
	return nil
}

func (l *Log) load(ctx context.Context, op string) ([]models.CallRecord, int64, error) {
	data, version, err := l.store.Load(ctx)
	if err != nil {
		return nil, 0, &PersistenceError{Op: op, Err: err}
	}

	records, err := decode(data)
	if err != nil {
		return nil, 0, &PersistenceError{Op: op, Err: err}
	}
	return records, version, nil
}

func decode(data []byte) ([]models.CallRecord, error) {
	records := []models.CallRecord{}
	if len(bytes.TrimSpace(data)) == 0 {
		return records, nil
	}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if records == nil {
		records = []models.CallRecord{}
	}
	return records, nil
}
