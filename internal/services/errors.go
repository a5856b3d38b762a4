package services

import (
	"context"
	"errors"
	"time"

	"github.com/joshua-takyi/unibook/internal/apperror"
	"github.com/joshua-takyi/unibook/internal/models"
	"go.mongodb.org/mongo-driver/mongo"
)

const defaultTimeout = 10 * time.Second

// storeError converts repository failures into client-facing errors.
// entity names the thing that was looked up, for not-found messages.
func storeError(entity string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apperror.Error
	if errors.As(err, &ae) {
		return err
	}

	switch {
	case errors.Is(err, models.ErrNotFound):
		return apperror.NotFound(entity)
	case errors.Is(err, models.ErrResourceBusy):
		return apperror.Unavailable("resource is busy, please retry", err)
	case errors.Is(err, context.DeadlineExceeded), mongo.IsTimeout(err), mongo.IsNetworkError(err):
		return apperror.Unavailable("database unavailable, please retry", err)
	default:
		return apperror.Unexpected("database error", err)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
