package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"clinic-call-queue/internal/calllog"
	"clinic-call-queue/internal/models"
	"clinic-call-queue/internal/queue"

	"github.com/rs/zerolog"
)

var (
	// ErrMissingRoom is returned when a call is attempted without a destination room
	ErrMissingRoom = errors.New("room is required before calling a patient")
	// ErrAuditDisabled is returned when no audit trail is configured
	ErrAuditDisabled = errors.New("audit trail is not enabled")
)

// Auditor records operator commands. It is optional.
type Auditor interface {
	CreateAuditLog(ctx context.Context, action, patientName, room, details string) error
	ListRecent(ctx context.Context, limit int) ([]models.AuditLog, error)
}

// CallResult is the outcome of a successful call command
type CallResult struct {
	Patient models.Patient    `json:"patient"`
	Record  models.CallRecord `json:"record"`
}

// QueueSnapshot is the operator's view of the queue
type QueueSnapshot struct {
	Waiting      []models.Patient `json:"waiting"`
	Called       []models.Patient `json:"called"`
	WaitingCount int              `json:"waiting_count"`
	CalledCount  int              `json:"called_count"`
	CanCallNext  bool             `json:"can_call_next"`
}

// QueueService is the only writer of the queue and the call log. Each command
// updates both or neither: when the log write fails the status change is
// rolled back before the error is returned.
type QueueService struct {
	mu      sync.Mutex
	queue   *queue.Store
	calls   *calllog.Log
	auditor Auditor
	logger  zerolog.Logger
	now     func() time.Time
}

// NewQueueService creates the queue coordinator. auditor may be nil.
func NewQueueService(
	queueStore *queue.Store,
	callLog *calllog.Log,
	auditor Auditor,
	logger zerolog.Logger,
) *QueueService {
	return &QueueService{
		queue:   queueStore,
		calls:   callLog,
		auditor: auditor,
		logger:  logger.With().Str("component", "queue").Logger(),
		now:     time.Now,
	}
}

// Reconcile brings the roster in line with a call log that outlived the
// previous process: every roster patient with a record is marked Called so
// the operator can revert or leave them. It returns how many were marked.
// Records for names missing from the roster are left in the log.
func (s *QueueService) Reconcile(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.calls.ReadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile queue: %w", err)
	}

	marked := 0
	for _, rec := range records {
		p, err := s.queue.Get(rec.PatientName)
		if err != nil {
			s.logger.Warn().Str("patient", rec.PatientName).Str("room", rec.Room).Msg("call record for a patient outside the roster")
			continue
		}
		if p.Status == models.StatusCalled {
			continue
		}
		if err := s.queue.MarkCalled(rec.PatientName); err != nil {
			return marked, err
		}
		marked++
	}

	if marked > 0 {
		s.logger.Info().Int("patients", marked).Msg("restored called patients from the call log")
	}
	return marked, nil
}

// Snapshot returns both partitions of the roster
func (s *QueueService) Snapshot() QueueSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	waiting := s.queue.WaitingList()
	called := s.queue.CalledList()
	return QueueSnapshot{
		Waiting:      waiting,
		Called:       called,
		WaitingCount: len(waiting),
		CalledCount:  len(called),
		CanCallNext:  len(waiting) > 0,
	}
}

// CallNext calls the earliest-arrival waiting patient into room.
// The boolean is false when nobody is waiting; that is not an error.
func (s *QueueService) CallNext(ctx context.Context, room string) (CallResult, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := s.queue.FirstWaiting()
	if !ok {
		return CallResult{}, false, nil
	}

	result, err := s.call(ctx, next.Name, room)
	if err != nil {
		return CallResult{}, false, err
	}
	return result, true, nil
}

// CallPatient calls a specific waiting patient into room
func (s *QueueService) CallPatient(ctx context.Context, name, room string) (CallResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.call(ctx, name, room)
}

func (s *QueueService) call(ctx context.Context, name, room string) (CallResult, error) {
	room = strings.TrimSpace(room)
	if room == "" {
		return CallResult{}, ErrMissingRoom
	}

	if err := s.queue.MarkCalled(name); err != nil {
		return CallResult{}, err
	}

	record, err := s.calls.Append(ctx, models.CallRecord{
		PatientName: name,
		Room:        room,
		Timestamp:   s.now().UnixMilli(),
	})
	if err != nil {
		if rbErr := s.queue.MarkWaiting(name); rbErr != nil {
			s.logger.Error().Err(rbErr).Str("patient", name).Msg("failed to roll back call")
		}
		return CallResult{}, fmt.Errorf("failed to call patient %s: %w", name, err)
	}

	patient, err := s.queue.Get(name)
	if err != nil {
		return CallResult{}, err
	}

	s.logger.Info().Str("patient", name).Str("room", room).Int64("timestamp", record.Timestamp).Msg("patient called")
	s.audit(ctx, "patient_called", name, room, fmt.Sprintf("Called %s to room %s", name, room))

	return CallResult{Patient: patient, Record: record}, nil
}

// RevertPatient puts a called patient back in the waiting list and removes
// the patient's record from the call log
func (s *QueueService) RevertPatient(ctx context.Context, name string) (models.Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.queue.MarkWaiting(name); err != nil {
		return models.Patient{}, err
	}

	removed, err := s.calls.RemoveByPatient(ctx, name)
	if err != nil {
		if rbErr := s.queue.MarkCalled(name); rbErr != nil {
			s.logger.Error().Err(rbErr).Str("patient", name).Msg("failed to roll back revert")
		}
		return models.Patient{}, fmt.Errorf("failed to revert patient %s: %w", name, err)
	}
	if !removed {
		s.logger.Warn().Str("patient", name).Msg("reverted patient had no call record")
	}

	patient, err := s.queue.Get(name)
	if err != nil {
		return models.Patient{}, err
	}

	s.logger.Info().Str("patient", name).Msg("patient returned to waiting")
	s.audit(ctx, "patient_reverted", name, "", fmt.Sprintf("Returned %s to the waiting list", name))

	return patient, nil
}

// Activity returns the most recent audited commands
func (s *QueueService) Activity(ctx context.Context, limit int) ([]models.AuditLog, error) {
	if s.auditor == nil {
		return nil, ErrAuditDisabled
	}
	return s.auditor.ListRecent(ctx, limit)
}

// audit is best effort; a failed audit write never undoes a command
func (s *QueueService) audit(ctx context.Context, action, name, room, details string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.CreateAuditLog(ctx, action, name, room, details); err != nil {
		s.logger.Warn().Err(err).Str("action", action).Msg("failed to write audit log")
	}
}
