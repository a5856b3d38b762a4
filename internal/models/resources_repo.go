package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ResourceRepo interface {
	CreateResource(ctx context.Context, resource *Resource) (*Resource, error)
	GetResourceByID(ctx context.Context, id primitive.ObjectID) (*Resource, error)
	ListResources(ctx context.Context, filter ResourceFilter) ([]*Resource, int64, error)
	UpdateResource(ctx context.Context, id primitive.ObjectID, update *ResourceUpdate) (*Resource, error)
	DeleteResource(ctx context.Context, id primitive.ObjectID) error
}

func (mdb *MongodbRepo) CreateResource(ctx context.Context, resource *Resource) (*Resource, error) {
	col, err := mdb.GetCollection(ResourcesColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	if resource.ID.IsZero() {
		resource.ID = primitive.NewObjectID()
	}
	if _, err := col.InsertOne(ctx, resource); err != nil {
		return nil, fmt.Errorf("error inserting resource: %w", mapWriteError(err))
	}
	return resource, nil
}

func (mdb *MongodbRepo) GetResourceByID(ctx context.Context, id primitive.ObjectID) (*Resource, error) {
	col, err := mdb.GetCollection(ResourcesColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var resource Resource
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&resource); err != nil {
		return nil, mapFindError(err)
	}
	return &resource, nil
}

func (mdb *MongodbRepo) ListResources(ctx context.Context, filter ResourceFilter) ([]*Resource, int64, error) {
	col, err := mdb.GetCollection(ResourcesColName)
	if err != nil {
		return nil, 0, fmt.Errorf("error getting collection: %w", err)
	}

	query := bson.M{}
	if filter.Type != "" {
		query["resourceType"] = filter.Type
	}
	if filter.Query != "" {
		query["$text"] = bson.M{"$search": filter.Query}
	}

	total, err := col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting resources: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(filter.Offset))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("error finding resources: %w", err)
	}
	defer cursor.Close(ctx)

	resources := make([]*Resource, 0)
	for cursor.Next(ctx) {
		var r Resource
		if err := cursor.Decode(&r); err != nil {
			return nil, 0, fmt.Errorf("error decoding resource: %w", err)
		}
		resources = append(resources, &r)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, fmt.Errorf("cursor error: %w", err)
	}

	return resources, total, nil
}

func (mdb *MongodbRepo) UpdateResource(ctx context.Context, id primitive.ObjectID, update *ResourceUpdate) (*Resource, error) {
	col, err := mdb.GetCollection(ResourcesColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Price != nil {
		set["price"] = *update.Price
	}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.Photos != nil {
		set["photos"] = update.Photos
	}
	if update.Details != nil {
		set["details"] = update.Details
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var result Resource
	err = col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&result)
	if err != nil {
		return nil, mapFindError(err)
	}
	return &result, nil
}

func (mdb *MongodbRepo) DeleteResource(ctx context.Context, id primitive.ObjectID) error {
	col, err := mdb.GetCollection(ResourcesColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	res, err := col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("error deleting resource: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
