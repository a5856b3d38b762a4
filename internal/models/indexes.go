package models

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the repositories rely on. It is safe to
// call on every start.
func (mdb *MongodbRepo) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		ResourcesColName: {
			{
				Keys: bson.D{
					{Key: "name", Value: "text"},
					{Key: "description", Value: "text"},
				},
				Options: options.Index().SetName("resource_text_idx"),
			},
			{
				Keys:    bson.D{{Key: "resourceType", Value: 1}},
				Options: options.Index().SetName("resource_type_idx"),
			},
		},
		BookingsColName: {
			{
				Keys: bson.D{
					{Key: "resourceId", Value: 1},
					{Key: "bookingType", Value: 1},
					{Key: "status", Value: 1},
				},
				Options: options.Index().SetName("resource_type_status_idx"),
			},
			// One garden event per resource per day.
			{
				Keys: bson.D{
					{Key: "resourceId", Value: 1},
					{Key: "details.gardenBooking.eventDate", Value: 1},
				},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"bookingType": ResourceGarden}).
					SetName("garden_event_date_unique"),
			},
			{
				Keys: bson.D{
					{Key: "userId", Value: 1},
					{Key: "createdAt", Value: -1},
				},
				Options: options.Index().SetName("user_created_at_idx"),
			},
		},
		TicketsColName: {
			{
				Keys:    bson.D{{Key: "bookingId", Value: 1}},
				Options: options.Index().SetName("ticket_booking_idx"),
			},
		},
		PassesColName: {
			{
				Keys:    bson.D{{Key: "bookingId", Value: 1}},
				Options: options.Index().SetName("pass_booking_idx"),
			},
		},
		UsersColName: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("email_unique"),
			},
		},
		BookingLocksColName: {
			// Abandoned leases disappear on their own.
			{
				Keys: bson.D{{Key: "expiresAt", Value: 1}},
				Options: options.Index().
					SetExpireAfterSeconds(0).
					SetName("expires_at_ttl"),
			},
		},
	}

	for colName, indexes := range specs {
		col, err := mdb.GetCollection(colName)
		if err != nil {
			return fmt.Errorf("error getting collection: %w", err)
		}
		if _, err := col.Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("error creating indexes on %s: %w", colName, err)
		}
	}
	return nil
}
