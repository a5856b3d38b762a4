package models

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BookingRepo interface {
	InsertBooking(ctx context.Context, booking *Booking) error
	GetBookingByID(ctx context.Context, id primitive.ObjectID) (*Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]*Booking, int64, error)
	UpdateBookingStatus(ctx context.Context, id primitive.ObjectID, status BookingStatus, paymentStatus PaymentStatus) error
	HasRoomOverlap(ctx context.Context, resourceID primitive.ObjectID, checkIn, checkOut time.Time, exclude primitive.ObjectID) (bool, error)
	HasGardenBookingOn(ctx context.Context, resourceID primitive.ObjectID, eventDate time.Time, exclude primitive.ObjectID) (bool, error)
	AppendPassIDs(ctx context.Context, bookingID primitive.ObjectID, ids []primitive.ObjectID) error
	AppendTicketIDs(ctx context.Context, bookingID primitive.ObjectID, ids []primitive.ObjectID) error
	DiscardBooking(ctx context.Context, id primitive.ObjectID) error
}

func (mdb *MongodbRepo) InsertBooking(ctx context.Context, booking *Booking) error {
	col, err := mdb.GetCollection(BookingsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	if _, err := col.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("error inserting booking: %w", mapWriteError(err))
	}
	return nil
}

func (mdb *MongodbRepo) GetBookingByID(ctx context.Context, id primitive.ObjectID) (*Booking, error) {
	col, err := mdb.GetCollection(BookingsColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %w", err)
	}

	var booking Booking
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&booking); err != nil {
		return nil, mapFindError(err)
	}
	return &booking, nil
}

func bookingQuery(filter BookingFilter) bson.M {
	query := bson.M{}
	if !filter.UserID.IsZero() {
		query["userId"] = filter.UserID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.BookingType != "" {
		query["bookingType"] = filter.BookingType
	}
	return query
}

func (mdb *MongodbRepo) ListBookings(ctx context.Context, filter BookingFilter) ([]*Booking, int64, error) {
	col, err := mdb.GetCollection(BookingsColName)
	if err != nil {
		return nil, 0, fmt.Errorf("error getting collection: %w", err)
	}

	query := bookingQuery(filter)
	total, err := col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("error counting bookings: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(filter.Offset))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("error finding bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := make([]*Booking, 0)
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, 0, fmt.Errorf("error decoding bookings: %w", err)
	}
	return bookings, total, nil
}

func (mdb *MongodbRepo) UpdateBookingStatus(ctx context.Context, id primitive.ObjectID, status BookingStatus, paymentStatus PaymentStatus) error {
	col, err := mdb.GetCollection(BookingsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	set := bson.M{
		"status":    status,
		"updatedAt": time.Now().UTC(),
	}
	if paymentStatus != "" {
		set["paymentStatus"] = paymentStatus
	}

	res, err := col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("error updating booking: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// HasRoomOverlap reports whether a pending or confirmed room booking on the
// resource intersects [checkIn, checkOut). Touching intervals do not overlap.
// A non-zero exclude leaves that booking out of the count.
func (mdb *MongodbRepo) HasRoomOverlap(ctx context.Context, resourceID primitive.ObjectID, checkIn, checkOut time.Time, exclude primitive.ObjectID) (bool, error) {
	col, err := mdb.GetCollection(BookingsColName)
	if err != nil {
		return false, fmt.Errorf("error getting collection: %w", err)
	}

	query := bson.M{
		"resourceId":  resourceID,
		"bookingType": ResourceRoom,
		"status":      bson.M{"$in": []BookingStatus{BookingConfirmed, BookingPending}},

		"details.roomBooking.checkInDate":  bson.M{"$lt": checkOut},
		"details.roomBooking.checkOutDate": bson.M{"$gt": checkIn},
	}
	if !exclude.IsZero() {
		query["_id"] = bson.M{"$ne": exclude}
	}

	n, err := col.CountDocuments(ctx, query, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("error checking room availability: %w", err)
	}
	return n > 0, nil
}

// HasGardenBookingOn matches garden bookings of any status on the same day.
func (mdb *MongodbRepo) HasGardenBookingOn(ctx context.Context, resourceID primitive.ObjectID, eventDate time.Time, exclude primitive.ObjectID) (bool, error) {
	col, err := mdb.GetCollection(BookingsColName)
	if err != nil {
		return false, fmt.Errorf("error getting collection: %w", err)
	}

	query := bson.M{
		"resourceId":  resourceID,
		"bookingType": ResourceGarden,

		"details.gardenBooking.eventDate": eventDate,
	}
	if !exclude.IsZero() {
		query["_id"] = bson.M{"$ne": exclude}
	}

	n, err := col.CountDocuments(ctx, query, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("error checking garden availability: %w", err)
	}
	return n > 0, nil
}

func (mdb *MongodbRepo) appendIDs(ctx context.Context, bookingID primitive.ObjectID, field string, ids []primitive.ObjectID) error {
	col, err := mdb.GetCollection(BookingsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}

	update := bson.M{
		"$push": bson.M{field: bson.M{"$each": ids}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := col.UpdateOne(ctx, bson.M{"_id": bookingID}, update)
	if err != nil {
		return fmt.Errorf("error linking records to booking: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (mdb *MongodbRepo) AppendPassIDs(ctx context.Context, bookingID primitive.ObjectID, ids []primitive.ObjectID) error {
	return mdb.appendIDs(ctx, bookingID, "passIds", ids)
}

func (mdb *MongodbRepo) AppendTicketIDs(ctx context.Context, bookingID primitive.ObjectID, ids []primitive.ObjectID) error {
	return mdb.appendIDs(ctx, bookingID, "details.waterParkBooking.ticketIds", ids)
}

// DiscardBooking removes a booking whose dependent writes failed. It is only
// used as compensation when transactions are unavailable.
func (mdb *MongodbRepo) DiscardBooking(ctx context.Context, id primitive.ObjectID) error {
	col, err := mdb.GetCollection(BookingsColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %w", err)
	}
	_, err = col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
