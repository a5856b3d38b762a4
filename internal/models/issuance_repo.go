package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TicketRepo interface {
	InsertTickets(ctx context.Context, tickets []*Ticket) error
	GetTicketByID(ctx context.Context, id primitive.ObjectID) (*Ticket, error)
	RedeemTicket(ctx context.Context, id primitive.ObjectID) (*Ticket, error)
}

type PassRepo interface {
	InsertPasses(ctx context.Context, passes []*Pass) error
	GetPassByID(ctx context.Context, id primitive.ObjectID) (*Pass, error)
	RedeemPass(ctx context.Context, id primitive.ObjectID) (*Pass, error)
}

func (mdb *MongodbRepo) insertMany(ctx context.Context, colName string, docs []interface{}) error {
	if len(docs) == 0 {
		return nil
	}
	col, err := mdb.GetCollection(colName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	if _, err := col.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("error inserting into %s: %w", colName, mapWriteError(err))
	}
	return nil
}

func (mdb *MongodbRepo) InsertTickets(ctx context.Context, tickets []*Ticket) error {
	docs := make([]interface{}, len(tickets))
	for i, t := range tickets {
		docs[i] = t
	}
	return mdb.insertMany(ctx, TicketsColName, docs)
}

func (mdb *MongodbRepo) InsertPasses(ctx context.Context, passes []*Pass) error {
	docs := make([]interface{}, len(passes))
	for i, p := range passes {
		docs[i] = p
	}
	return mdb.insertMany(ctx, PassesColName, docs)
}

func (mdb *MongodbRepo) GetTicketByID(ctx context.Context, id primitive.ObjectID) (*Ticket, error) {
	col, err := mdb.GetCollection(TicketsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var ticket Ticket
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&ticket); err != nil {
		return nil, mapFindError(err)
	}
	return &ticket, nil
}

func (mdb *MongodbRepo) GetPassByID(ctx context.Context, id primitive.ObjectID) (*Pass, error) {
	col, err := mdb.GetCollection(PassesColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var pass Pass
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&pass); err != nil {
		return nil, mapFindError(err)
	}
	return &pass, nil
}

// redeem flips status valid -> used in one conditional write. A miss is
// reported as ErrNotFound or ErrNotRedeemable depending on whether the
// document exists.
func (mdb *MongodbRepo) redeem(ctx context.Context, colName string, id primitive.ObjectID, out interface{}) error {
	col, err := mdb.GetCollection(colName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	filter := bson.M{"_id": id, "status": CodeValid}
	update := bson.M{"$set": bson.M{"status": CodeUsed, "updatedAt": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	err = col.FindOneAndUpdate(ctx, filter, update, opts).Decode(out)
	if err == nil {
		return nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("error redeeming %s: %w", colName, err)
	}

	n, err := col.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("error redeeming %s: %w", colName, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrNotRedeemable
}

func (mdb *MongodbRepo) RedeemTicket(ctx context.Context, id primitive.ObjectID) (*Ticket, error) {
	var ticket Ticket
	if err := mdb.redeem(ctx, TicketsColName, id, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (mdb *MongodbRepo) RedeemPass(ctx context.Context, id primitive.ObjectID) (*Pass, error) {
	var pass Pass
	if err := mdb.redeem(ctx, PassesColName, id, &pass); err != nil {
		return nil, err
	}
	return &pass, nil
}
