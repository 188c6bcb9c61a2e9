package repository

import (
	"context"
	"errors"
	"testing"

	"clinic-call-queue/internal/calllog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func TestNextSlotVersion(t *testing.T) {
	tests := []struct {
		name     string
		exists   bool
		current  int64
		expected int64
		want     int64
		conflict bool
	}{
		{"create unconditionally", false, 0, calllog.AnyVersion, 1, false},
		{"create expecting empty slot", false, 0, 0, 1, false},
		{"create expecting a version that never existed", false, 0, 3, 0, true},
		{"overwrite unconditionally", true, 4, calllog.AnyVersion, 5, false},
		{"update at expected version", true, 4, 4, 5, false},
		{"update after another writer", true, 5, 4, 0, true},
		{"create races an existing slot", true, 1, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nextSlotVersion(tt.exists, tt.current, tt.expected)
			if tt.conflict {
				if !errors.Is(err, calllog.ErrVersionConflict) {
					t.Fatalf("expected ErrVersionConflict, got %d, %v", got, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("expected version %d, got %d, %v", tt.want, got, err)
			}
		})
	}
}

type MockCollection struct {
	FindOneFunc          func(ctx context.Context, filter interface{}) *mongo.SingleResult
	FindOneAndUpdateFunc func(ctx context.Context, filter, update interface{}) *mongo.SingleResult
	InsertOneFunc        func(ctx context.Context, document interface{}) (*mongo.InsertOneResult, error)
	UpdateOneFunc        func(ctx context.Context, filter, update interface{}) (*mongo.UpdateResult, error)
}

func (m *MockCollection) FindOne(ctx context.Context, filter interface{}, _ ...*options.FindOneOptions) *mongo.SingleResult {
	return m.FindOneFunc(ctx, filter)
}

func (m *MockCollection) FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, _ ...*options.FindOneAndUpdateOptions) *mongo.SingleResult {
	return m.FindOneAndUpdateFunc(ctx, filter, update)
}

func (m *MockCollection) InsertOne(ctx context.Context, document interface{}, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	return m.InsertOneFunc(ctx, document)
}

func (m *MockCollection) UpdateOne(ctx context.Context, filter interface{}, update interface{}, _ ...*options.UpdateOptions) (*mongo.UpdateResult, error) {
	return m.UpdateOneFunc(ctx, filter, update)
}

var duplicateKey = mongo.WriteException{
	WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}},
}

func TestMongoSlotRepository_Load(t *testing.T) {
	ctx := context.Background()

	repo := &MongoSlotRepository{name: "chamadas", coll: &MockCollection{
		FindOneFunc: func(ctx context.Context, filter interface{}) *mongo.SingleResult {
			return mongo.NewSingleResultFromDocument(bson.M{}, mongo.ErrNoDocuments, nil)
		},
	}}
	data, version, err := repo.Load(ctx)
	if err != nil || data != nil || version != 0 {
		t.Fatalf("expected missing slot to read as empty, got %q v%d %v", data, version, err)
	}

	repo.coll = &MockCollection{
		FindOneFunc: func(ctx context.Context, filter interface{}) *mongo.SingleResult {
			if filter.(bson.M)["_id"] != "chamadas" {
				t.Fatalf("unexpected filter %v", filter)
			}
			return mongo.NewSingleResultFromDocument(mongoSlot{Name: "chamadas", Payload: "[]", Version: 6}, nil, nil)
		},
	}
	data, version, err = repo.Load(ctx)
	if err != nil || string(data) != "[]" || version != 6 {
		t.Fatalf("expected [] at v6, got %q v%d %v", data, version, err)
	}
}

func TestMongoSlotRepository_Save(t *testing.T) {
	tests := []struct {
		name     string
		expected int64
		coll     *MockCollection
		want     int64
		conflict bool
	}{
		{
			name:     "unconditional upsert",
			expected: calllog.AnyVersion,
			coll: &MockCollection{
				FindOneAndUpdateFunc: func(ctx context.Context, filter, update interface{}) *mongo.SingleResult {
					return mongo.NewSingleResultFromDocument(mongoSlot{Name: "chamadas", Version: 9}, nil, nil)
				},
			},
			want: 9,
		},
		{
			name:     "create empty slot",
			expected: 0,
			coll: &MockCollection{
				InsertOneFunc: func(ctx context.Context, document interface{}) (*mongo.InsertOneResult, error) {
					if doc := document.(mongoSlot); doc.Version != 1 {
						t.Fatalf("expected version 1 on insert, got %d", doc.Version)
					}
					return &mongo.InsertOneResult{InsertedID: "chamadas"}, nil
				},
			},
			want: 1,
		},
		{
			name:     "create races another writer",
			expected: 0,
			coll: &MockCollection{
				InsertOneFunc: func(ctx context.Context, document interface{}) (*mongo.InsertOneResult, error) {
					return nil, duplicateKey
				},
			},
			conflict: true,
		},
		{
			name:     "update at expected version",
			expected: 4,
			coll: &MockCollection{
				UpdateOneFunc: func(ctx context.Context, filter, update interface{}) (*mongo.UpdateResult, error) {
					if filter.(bson.M)["version"] != int64(4) {
						t.Fatalf("expected the version in the filter, got %v", filter)
					}
					return &mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
				},
			},
			want: 5,
		},
		{
			name:     "update after another writer",
			expected: 4,
			coll: &MockCollection{
				UpdateOneFunc: func(ctx context.Context, filter, update interface{}) (*mongo.UpdateResult, error) {
					return &mongo.UpdateResult{MatchedCount: 0}, nil
				},
			},
			conflict: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &MongoSlotRepository{name: "chamadas", coll: tt.coll}
			got, err := repo.Save(context.Background(), []byte("[]"), tt.expected)
			if tt.conflict {
				if !errors.Is(err, calllog.ErrVersionConflict) {
					t.Fatalf("expected ErrVersionConflict, got %d, %v", got, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("expected version %d, got %d, %v", tt.want, got, err)
			}
		})
	}
}

func TestMongoSlotRepository_SaveError(t *testing.T) {
	boom := errors.New("no primary")
	repo := &MongoSlotRepository{name: "chamadas", coll: &MockCollection{
		UpdateOneFunc: func(ctx context.Context, filter, update interface{}) (*mongo.UpdateResult, error) {
			return nil, boom
		},
	}}
	if _, err := repo.Save(context.Background(), []byte("[]"), 2); !errors.Is(err, boom) || errors.Is(err, calllog.ErrVersionConflict) {
		t.Fatalf("expected the driver error, got %v", err)
	}
}
