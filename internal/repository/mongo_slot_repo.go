package repository

import (
	"context"
	"errors"
	"time"

	"clinic-call-queue/internal/calllog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const callLogCollection = "call_log_slots"

type mongoSlot struct {
	Name      string    `bson:"_id"`
	Payload   string    `bson:"payload"`
	Version   int64     `bson:"version"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// slotCollection is the part of *mongo.Collection the slot store uses
type slotCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// MongoSlotRepository stores the call log as one document keyed by slot name.
// It implements calllog.SlotStore.
type MongoSlotRepository struct {
	coll slotCollection
	name string
}

func NewMongoSlotRepo(db *mongo.Database, name string) *MongoSlotRepository {
	return &MongoSlotRepository{
		coll: db.Collection(callLogCollection),
		name: name,
	}
}

// Load returns the slot payload and version; a missing document reads as empty
func (r *MongoSlotRepository) Load(ctx context.Context) ([]byte, int64, error) {
	var doc mongoSlot
	err := r.coll.FindOne(ctx, bson.M{"_id": r.name}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	return []byte(doc.Payload), doc.Version, nil
}

// Save writes the payload. Version checks are done in the update filter so
// the whole compare-and-set is one server-side operation.
func (r *MongoSlotRepository) Save(ctx context.Context, data []byte, expected int64) (int64, error) {
	now := time.Now().UTC()

	switch {
	case expected < 0:
		opts := options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After)
		update := bson.M{
			"$set": bson.M{"payload": string(data), "updated_at": now},
			"$inc": bson.M{"version": 1},
		}
		var doc mongoSlot
		if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": r.name}, update, opts).Decode(&doc); err != nil {
			return 0, err
		}
		return doc.Version, nil

	case expected == 0:
		_, err := r.coll.InsertOne(ctx, mongoSlot{
			Name:      r.name,
			Payload:   string(data),
			Version:   1,
			UpdatedAt: now,
		})
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return 0, calllog.ErrVersionConflict
			}
			return 0, err
		}
		return 1, nil

	default:
		filter := bson.M{"_id": r.name, "version": expected}
		update := bson.M{"$set": bson.M{
			"payload":    string(data),
			"version":    expected + 1,
			"updated_at": now,
		}}
		res, err := r.coll.UpdateOne(ctx, filter, update)
		if err != nil {
			return 0, err
		}
		if res.MatchedCount == 0 {
			return 0, calllog.ErrVersionConflict
		}
		return expected + 1, nil
	}
}
