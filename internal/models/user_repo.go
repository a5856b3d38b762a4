package models

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserRepo interface {
	CreateUser(ctx context.Context, user *User) (*User, error)
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, offset, limit int) ([]*User, error)
	CountUsers(ctx context.Context) (int64, error)
}

func (mdb *MongodbRepo) CreateUser(ctx context.Context, user *User) (*User, error) {
	col, err := mdb.GetCollection(UsersColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if _, err := col.InsertOne(ctx, user); err != nil {
		return nil, fmt.Errorf("error inserting user: %w", mapWriteError(err))
	}
	return user, nil
}

func (mdb *MongodbRepo) GetUserByID(ctx context.Context, id primitive.ObjectID) (*User, error) {
	col, err := mdb.GetCollection(UsersColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var user User
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, mapFindError(err)
	}
	return &user, nil
}

func (mdb *MongodbRepo) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	col, err := mdb.GetCollection(UsersColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var user User
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email))}
	if err := col.FindOne(ctx, filter).Decode(&user); err != nil {
		return nil, mapFindError(err)
	}
	return &user, nil
}

// ListUsers never loads password hashes.
func (mdb *MongodbRepo) ListUsers(ctx context.Context, offset, limit int) ([]*User, error) {
	col, err := mdb.GetCollection(UsersColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	opts := options.Find().
		SetProjection(bson.M{"password": 0}).
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(offset))
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding users: %w", err)
	}
	defer cursor.Close(ctx)

	users := make([]*User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("error decoding users: %w", err)
	}
	return users, nil
}

func (mdb *MongodbRepo) CountUsers(ctx context.Context) (int64, error) {
	col, err := mdb.GetCollection(UsersColName)
	if err != nil {
		return 0, fmt.Errorf("error getting collection: %w", err)
	}
	return col.CountDocuments(ctx, bson.M{})
}
