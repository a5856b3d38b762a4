package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// LeaseTTL is the shortest lease. Holders with a longer deadline get a
	// lease that outlives it by leaseGrace.
	LeaseTTL          = 15 * time.Second
	leaseGrace        = 5 * time.Second
	leaseAttempts     = 5
	leaseRetryBackoff = 50 * time.Millisecond
)

// BookingLock is the per-resource document writers serialize on. Inside a
// transaction Seq is bumped to force write conflicts; without transactions the
// document is a lease owned by LeaseToken until ExpiresAt.
type BookingLock struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	Seq        int64              `bson:"seq,omitempty" json:"seq,omitempty"`
	LeaseToken string             `bson:"leaseToken,omitempty" json:"leaseToken,omitempty"`
	ExpiresAt  *time.Time         `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	UpdatedAt  time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type ResourceLocker interface {
	// WithResourceLock runs fn while no other writer can book the same
	// resource. Repository calls inside fn must use the ctx passed to fn.
	WithResourceLock(ctx context.Context, resourceID primitive.ObjectID, fn func(ctx context.Context) error) error
}

func (mdb *MongodbRepo) WithResourceLock(ctx context.Context, resourceID primitive.ObjectID, fn func(ctx context.Context) error) error {
	if mdb.transactions {
		return mdb.RunInTx(ctx, func(txCtx context.Context) error {
			if err := mdb.bumpLock(txCtx, resourceID); err != nil {
				return err
			}
			return fn(txCtx)
		})
	}

	token, err := mdb.acquireLease(ctx, resourceID)
	if err != nil {
		return err
	}
	defer mdb.releaseLease(ctx, resourceID, token)

	return fn(ctx)
}

func (mdb *MongodbRepo) bumpLock(ctx context.Context, resourceID primitive.ObjectID) error {
	col, err := mdb.GetCollection(BookingLocksColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	update := bson.M{
		"$inc": bson.M{"seq": 1},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}
	_, err = col.UpdateOne(ctx, bson.M{"_id": resourceID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("error locking resource: %w", err)
	}
	return nil
}

func (mdb *MongodbRepo) acquireLease(ctx context.Context, resourceID primitive.ObjectID) (string, error) {
	col, err := mdb.GetCollection(BookingLocksColName)
	if err != nil {
		return "", fmt.Errorf("error getting collection: %w", err)
	}

	token := uuid.NewString()
	for attempt := 1; attempt <= leaseAttempts; attempt++ {
		ok, err := tryLease(ctx, col, resourceID, token, leaseTTL(ctx, time.Now()))
		if err != nil {
			return "", err
		}
		if ok {
			return token, nil
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrResourceBusy, ctx.Err())
		case <-time.After(time.Duration(attempt) * leaseRetryBackoff):
		}
	}
	return "", ErrResourceBusy
}

// leaseTTL keeps the lease alive until the holder's context expires, after
// which the holder can no longer write.
func leaseTTL(ctx context.Context, now time.Time) time.Duration {
	ttl := LeaseTTL
	if deadline, ok := ctx.Deadline(); ok {
		if d := deadline.Sub(now) + leaseGrace; d > ttl {
			ttl = d
		}
	}
	return ttl
}

func tryLease(ctx context.Context, col *mongo.Collection, resourceID primitive.ObjectID, token string, ttl time.Duration) (bool, error) {
	now := time.Now().UTC()
	expires := now.Add(ttl)

	_, err := col.InsertOne(ctx, BookingLock{
		ID:         resourceID,
		LeaseToken: token,
		ExpiresAt:  &expires,
		UpdatedAt:  now,
	})
	if err == nil {
		return true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return false, fmt.Errorf("error acquiring lease: %w", err)
	}

	// Take over a lease whose holder died before releasing it.
	filter := bson.M{
		"_id": resourceID,
		"$or": bson.A{
			bson.M{"expiresAt": bson.M{"$lte": now}},
			bson.M{"expiresAt": bson.M{"$exists": false}},
		},
	}
	update := bson.M{"$set": bson.M{"leaseToken": token, "expiresAt": expires, "updatedAt": now}}
	err = col.FindOneAndUpdate(ctx, filter, update).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("error taking over lease: %w", err)
	}
	return true, nil
}

func (mdb *MongodbRepo) releaseLease(ctx context.Context, resourceID primitive.ObjectID, token string) {
	col, err := mdb.GetCollection(BookingLocksColName)
	if err != nil {
		return
	}
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	_, _ = col.DeleteOne(releaseCtx, bson.M{"_id": resourceID, "leaseToken": token})
}
