package interfaces

import (
	"context"
	"time"

	"plotforge/internal/models"
)

// SlotLocker serializes version creation for a chapter slot. Acquire returns
// models.ErrSlotBusy when another advance holds the lease; the storage-layer
// compare-and-swap stays in place as the final guard either way.
//
//go:generate mockery --name SlotLocker --output ../mocks --outpkg mocks --case=underscore
type SlotLocker interface {
	// Acquire takes the lease for ttl and returns an opaque release token.
	Acquire(ctx context.Context, slot models.ChapterSlot, ttl time.Duration) (token string, err error)

	// Release frees the lease if token still owns it. Releasing an expired
	// or foreign lease is a no-op.
	Release(ctx context.Context, slot models.ChapterSlot, token string) error
}
