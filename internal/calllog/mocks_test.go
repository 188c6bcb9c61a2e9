package calllog

import "context"

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
