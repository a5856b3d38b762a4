package services

import (
	"context"
	"sync"

	"github.com/joshua-takyi/unibook/internal/mq"
	"github.com/joshua-takyi/unibook/internal/storetest"
)

type memStore = storetest.Store

func newMemStore() *memStore {
	return storetest.NewStore()
}

// rawCodes skips image rendering; the payload is unique per record already.
func rawCodes(payload string) (string, error) {
	return "data:text/plain," + payload, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (r *recordingNotifier) NotifyBookingCreated(ctx context.Context, ev mq.BookingCreatedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev.BookingID)
	return r.err
}
