package models

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestGetBookingByIDNotFound(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("missing booking maps to ErrNotFound", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, "unibook", false)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "unibook.bookings", mtest.FirstBatch))

		_, err := repo.GetBookingByID(context.Background(), primitive.NewObjectID())
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

// countFilter returns the $match stage of the CountDocuments aggregate the
// repository just sent.
func countFilter(mt *mtest.T) bson.Raw {
	mt.Helper()
	evt := mt.GetStartedEvent()
	if evt == nil || evt.CommandName != "aggregate" {
		mt.Fatalf("expected an aggregate command, got %+v", evt)
	}
	match, ok := evt.Command.Lookup("pipeline", "0", "$match").DocumentOK()
	if !ok {
		mt.Fatalf("aggregate has no $match stage: %s", evt.Command)
	}
	return match
}

func TestHasRoomOverlap(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	checkIn := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	checkOut := checkIn.AddDate(0, 0, 3)

	mt.Run("existing overlap", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, "unibook", false)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "unibook.bookings", mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}))

		overlap, err := repo.HasRoomOverlap(context.Background(), primitive.NewObjectID(), checkIn, checkOut, primitive.NilObjectID)
		if err != nil {
			t.Fatalf("HasRoomOverlap() error = %v", err)
		}
		if !overlap {
			t.Error("expected overlap")
		}
	})

	mt.Run("no overlap", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, "unibook", false)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "unibook.bookings", mtest.FirstBatch))

		overlap, err := repo.HasRoomOverlap(context.Background(), primitive.NewObjectID(), checkIn, checkOut, primitive.NilObjectID)
		if err != nil {
			t.Fatalf("HasRoomOverlap() error = %v", err)
		}
		if overlap {
			t.Error("expected no overlap")
		}
	})

	mt.Run("filter is a half-open interval test on active bookings", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, "unibook", false)
		resourceID := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "unibook.bookings", mtest.FirstBatch))

		if _, err := repo.HasRoomOverlap(context.Background(), resourceID, checkIn, checkOut, primitive.NilObjectID); err != nil {
			t.Fatalf("HasRoomOverlap() error = %v", err)
		}
		match := countFilter(mt)

		if got, ok := match.Lookup("resourceId").ObjectIDOK(); !ok || got != resourceID {
			t.Errorf("resourceId = %v, want %v", got, resourceID)
		}
		if got, ok := match.Lookup("bookingType").StringValueOK(); !ok || got != string(ResourceRoom) {
			t.Errorf("bookingType = %q", got)
		}
		if got, ok := match.Lookup("details.roomBooking.checkInDate", "$lt").TimeOK(); !ok || !got.Equal(checkOut) {
			t.Errorf("checkInDate $lt = %v, want %v", got, checkOut)
		}
		if got, ok := match.Lookup("details.roomBooking.checkOutDate", "$gt").TimeOK(); !ok || !got.Equal(checkIn) {
			t.Errorf("checkOutDate $gt = %v, want %v", got, checkIn)
		}

		statuses, ok := match.Lookup("status", "$in").ArrayOK()
		if !ok {
			t.Fatalf("status filter missing: %s", match)
		}
		values, err := statuses.Values()
		if err != nil {
			t.Fatalf("status values: %v", err)
		}
		seen := map[string]bool{}
		for _, v := range values {
			seen[v.StringValue()] = true
		}
		if len(seen) != 2 || !seen[string(BookingConfirmed)] || !seen[string(BookingPending)] {
			t.Errorf("status $in = %v, want confirmed and pending", seen)
		}
		if _, err := match.LookupErr("_id"); err == nil {
			t.Error("unexpected _id filter without an excluded booking")
		}
	})

	mt.Run("excluded booking is left out", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, "unibook", false)
		self := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "unibook.bookings", mtest.FirstBatch))

		if _, err := repo.HasRoomOverlap(context.Background(), primitive.NewObjectID(), checkIn, checkOut, self); err != nil {
			t.Fatalf("HasRoomOverlap() error = %v", err)
		}
		if got, ok := countFilter(mt).Lookup("_id", "$ne").ObjectIDOK(); !ok || got != self {
			t.Errorf("_id $ne = %v, want %v", got, self)
		}
	})
}

func TestHasGardenBookingOnFilter(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	eventDate := time.Date(2025, 12, 12, 0, 0, 0, 0, time.UTC)

	mt.Run("any status on the same date", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, "unibook", false)
		self := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "unibook.bookings", mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}))

		taken, err := repo.HasGardenBookingOn(context.Background(), primitive.NewObjectID(), eventDate, self)
		if err != nil {
			t.Fatalf("HasGardenBookingOn() error = %v", err)
		}
		if !taken {
			t.Error("expected date to be taken")
		}

		match := countFilter(mt)
		if got, ok := match.Lookup("details.gardenBooking.eventDate").TimeOK(); !ok || !got.Equal(eventDate) {
			t.Errorf("eventDate = %v, want %v", got, eventDate)
		}
		if _, err := match.LookupErr("status"); err == nil {
			t.Error("garden dates must match regardless of status")
		}
		if got, ok := match.Lookup("_id", "$ne").ObjectIDOK(); !ok || got != self {
			t.Errorf("_id $ne = %v, want %v", got, self)
		}
	})
}

func TestInsertBookingDuplicate(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("duplicate key maps to ErrDuplicate", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, "unibook", false)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: unibook.bookings index: garden_event_date_unique",
		}))

		err := repo.InsertBooking(context.Background(), &Booking{ID: primitive.NewObjectID()})
		if !errors.Is(err, ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})
}

func TestUpdateBookingStatusMissing(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("no match", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, "unibook", false)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 0},
			bson.E{Key: "nModified", Value: 0},
		))

		err := repo.UpdateBookingStatus(context.Background(), primitive.NewObjectID(), BookingConfirmed, PaymentPaid)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestRedeemPassAlreadyUsed(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("existing but not valid", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, "unibook", false)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, "unibook.passes", mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)

		_, err := repo.RedeemPass(context.Background(), primitive.NewObjectID())
		if !errors.Is(err, ErrNotRedeemable) {
			t.Fatalf("expected ErrNotRedeemable, got %v", err)
		}
	})
}

func TestWithResourceLockLease(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("fresh lease runs fn", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, "unibook", false)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		called := false
		err := repo.WithResourceLock(context.Background(), primitive.NewObjectID(), func(ctx context.Context) error {
			called = true
			return nil
		})
		if err != nil {
			t.Fatalf("WithResourceLock() error = %v", err)
		}
		if !called {
			t.Error("fn was not called")
		}
	})

	mt.Run("expired lease is taken over", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, "unibook", false)
		resourceID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{{Key: "_id", Value: resourceID}}}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		called := false
		err := repo.WithResourceLock(context.Background(), resourceID, func(ctx context.Context) error {
			called = true
			return nil
		})
		if err != nil {
			t.Fatalf("WithResourceLock() error = %v", err)
		}
		if !called {
			t.Error("fn was not called")
		}
	})

	mt.Run("fn error is returned", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, "unibook", false)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		want := errors.New("boom")
		err := repo.WithResourceLock(context.Background(), primitive.NewObjectID(), func(ctx context.Context) error {
			return want
		})
		if !errors.Is(err, want) {
			t.Fatalf("expected fn error, got %v", err)
		}
	})
}

func TestLeaseTTLCoversDeadline(t *testing.T) {
	now := time.Now()

	if got := leaseTTL(context.Background(), now); got != LeaseTTL {
		t.Errorf("no deadline: ttl = %v, want %v", got, LeaseTTL)
	}

	short, cancel := context.WithDeadline(context.Background(), now.Add(2*time.Second))
	defer cancel()
	if got := leaseTTL(short, now); got != LeaseTTL {
		t.Errorf("short deadline: ttl = %v, want %v", got, LeaseTTL)
	}

	long, cancel2 := context.WithDeadline(context.Background(), now.Add(time.Minute))
	defer cancel2()
	if got := leaseTTL(long, now); got != time.Minute+leaseGrace {
		t.Errorf("long deadline: ttl = %v, want %v", got, time.Minute+leaseGrace)
	}
}

func TestWithResourceLockLeaseOutlivesDeadline(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("lease expiry follows a long timeout", func(mt *mtest.T) {
		repo := MongodbNewRepo(mt.Client, "unibook", false)
		resourceID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateWriteErrorsResponse(mtest.WriteError{Index: 0, Code: 11000, Message: "duplicate key"}),
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{{Key: "_id", Value: resourceID}}}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)

		ctx, cancel := context.WithTimeout(context.Background(), 40*time.Second)
		defer cancel()
		deadline, _ := ctx.Deadline()

		if err := repo.WithResourceLock(ctx, resourceID, func(context.Context) error { return nil }); err != nil {
			t.Fatalf("WithResourceLock() error = %v", err)
		}

		mt.GetStartedEvent() // insert
		evt := mt.GetStartedEvent()
		if evt == nil || evt.CommandName != "findAndModify" {
			t.Fatalf("expected lease takeover, got %+v", evt)
		}
		expires, ok := evt.Command.Lookup("update", "$set", "expiresAt").TimeOK()
		if !ok {
			t.Fatalf("takeover sets no expiresAt: %s", evt.Command)
		}
		if !expires.After(deadline) {
			t.Errorf("lease expires at %v, before the holder's deadline %v", expires, deadline)
		}
	})
}
