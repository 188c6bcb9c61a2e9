package service

import (
	"context"
	"sync"

	"clinic-call-queue/internal/models"
	"clinic-call-queue/internal/notify"
)

type MockSlotStore struct {
	LoadFunc func(ctx context.Context) ([]byte, int64, error)
	SaveFunc func(ctx context.Context, data []byte, expected int64) (int64, error)
}

func (m *MockSlotStore) Load(ctx context.Context) ([]byte, int64, error) {
	return m.LoadFunc(ctx)
}

func (m *MockSlotStore) Save(ctx context.Context, data []byte, expected int64) (int64, error) {
	return m.SaveFunc(ctx, data, expected)
}

type MockAuditor struct {
	mu      sync.Mutex
	Actions []string
	Err     error
	Recent  []models.AuditLog
}

func (m *MockAuditor) CreateAuditLog(_ context.Context, action, patientName, room, details string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Actions = append(m.Actions, action+":"+patientName)
	return m.Err
}

func (m *MockAuditor) ListRecent(_ context.Context, limit int) ([]models.AuditLog, error) {
	if limit > 0 && len(m.Recent) > limit {
		return m.Recent[:limit], nil
	}
	return m.Recent, nil
}

type MockReader struct {
	ReadAllFunc func(ctx context.Context) ([]models.CallRecord, error)
	VersionFunc func(ctx context.Context) (int64, error)
}

func (m *MockReader) ReadAll(ctx context.Context) ([]models.CallRecord, error) {
	return m.ReadAllFunc(ctx)
}

func (m *MockReader) Version(ctx context.Context) (int64, error) {
	return m.VersionFunc(ctx)
}

type MockPublisher struct {
	Events []notify.Event
	Err    error
}

func (m *MockPublisher) Publish(_ context.Context, event notify.Event) error {
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, event)
	return nil
}
