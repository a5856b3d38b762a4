package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/mongo"
)

var Validate = validator.New()

const (
	DefaultDBName       = "unibook"
	ResourcesColName    = "resources"
	BookingsColName     = "bookings"
	TicketsColName      = "tickets"
	PassesColName       = "passes"
	UsersColName        = "users"
	BookingLocksColName = "booking_locks"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrDuplicate     = errors.New("duplicate key")
	ErrResourceBusy  = errors.New("resource is locked by another booking")
	ErrNotRedeemable = errors.New("record is not in a redeemable state")
)

// TxRunner runs fn so that every repository call made with the ctx it receives
// commits or aborts together. Without transaction support fn runs as is.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
	SupportsTransactions() bool
}

type MongodbRepo struct {
	mongodbClient *mongo.Client
	dbName        string
	transactions  bool
}

func MongodbNewRepo(mongodbClient *mongo.Client, dbName string, transactions bool) *MongodbRepo {
	if dbName == "" {
		dbName = DefaultDBName
	}
	return &MongodbRepo{
		mongodbClient: mongodbClient,
		dbName:        dbName,
		transactions:  transactions,
	}
}

func (mdb *MongodbRepo) GetCollection(colName string) (*mongo.Collection, error) {
	if mdb.mongodbClient == nil {
		return nil, fmt.Errorf("mongodb client is not initialized")
	}
	return mdb.mongodbClient.Database(mdb.dbName).Collection(colName), nil
}

func (mdb *MongodbRepo) SupportsTransactions() bool {
	return mdb.transactions
}

func (mdb *MongodbRepo) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !mdb.transactions {
		return fn(ctx)
	}
	if mdb.mongodbClient == nil {
		return fmt.Errorf("mongodb client is not initialized")
	}

	sess, err := mdb.mongodbClient.StartSession()
	if err != nil {
		return fmt.Errorf("error starting session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// mapWriteError turns driver duplicate key errors into ErrDuplicate.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func mapFindError(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
