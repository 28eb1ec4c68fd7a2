package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"webshare/room-api/internal/model"
	"webshare/room-api/pkg/util"

	"github.com/benbjohnson/clock"
	"gorm.io/gorm"
)

const DefaultMaxSize = 100 << 20

// Rooms owns the room table. The clock is injected so expiry checks can be
// driven deterministically in tests.
type Rooms struct {
	db  *gorm.DB
	clk clock.Clock
}

func NewRooms(db *gorm.DB, clk clock.Clock) *Rooms {
	return &Rooms{db: db, clk: clk}
}

type CreateRoomOpts struct {
	// CustomID is optional. When empty a random 15 character id is generated.
	CustomID     string
	CodeStrength string
	TTLMinutes   int
	// MaxSize of 0 means the default quota.
	MaxSize int64
}

// Create inserts a new active room, or reactivates an inactive row with the
// same id instead of inserting a fresh one. A currently active room with the
// requested id, or a code collision, surfaces as ErrConflict. Code generation
// is not retried here; the caller can simply try again.
func (r *Rooms) Create(ctx context.Context, opts CreateRoomOpts) (*model.Room, error) {
	id := opts.CustomID
	if id == "" {
		id = util.NewRoomID()
	}

	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	now := r.clk.Now()
	room := &model.Room{
		ID:          id,
		Code:        util.NewCode(opts.CodeStrength),
		CreatedAt:   now,
		ExpiresAt:   now.Add(time.Duration(opts.TTLMinutes) * time.Minute),
		MaxSize:     maxSize,
		CurrentSize: 0,
		IsActive:    true,
	}

	var existing model.Room
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&existing).Error

	switch {
	case err == nil && existing.IsActive:
		return nil, fmt.Errorf("room id %s: %w", id, ErrConflict)

	case err == nil:
		// Inactive row with the same id: reactivate it in place instead of
		// inserting, which keeps history and avoids unique-key churn.
		err = r.db.WithContext(ctx).Model(&model.Room{}).
			Where("id = ? AND is_active = ?", id, false).
			Updates(map[string]any{
				"code":         room.Code,
				"created_at":   room.CreatedAt,
				"expires_at":   room.ExpiresAt,
				"max_size":     room.MaxSize,
				"current_size": 0,
				"is_active":    true,
			}).Error

	case errors.Is(err, gorm.ErrRecordNotFound):
		err = r.db.WithContext(ctx).Create(room).Error

	default:
		return nil, fmt.Errorf("failed to look up room %s, %w", id, err)
	}

	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("code collision, retry: %w", ErrConflict)
		}
		return nil, fmt.Errorf("failed to create room %s, %w", id, err)
	}

	return r.FindByID(ctx, id)
}

// FindByID returns the active room with the given id, or ErrNotFound.
// Inactive rows are invisible here.
func (r *Rooms) FindByID(ctx context.Context, id string) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query room %s, %w", id, err)
	}
	return &room, nil
}

// FindByCode returns the active room carrying the given access code.
func (r *Rooms) FindByCode(ctx context.Context, code string) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).
		Where("code = ? AND is_active = ?", code, true).
		First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query room by code, %w", err)
	}
	return &room, nil
}

// Now returns the registry's notion of current time. Expiry decisions made
// outside the registry go through this so they stay on the injected clock.
func (r *Rooms) Now() time.Time {
	return r.clk.Now()
}

// ValidateAccess checks id, code and expiry in that order. A room past its
// expiry is rejected with ErrExpired even while is_active is still set,
// because deactivation is the scheduler's job and runs asynchronously.
func (r *Rooms) ValidateAccess(ctx context.Context, id, code string) (*model.Room, error) {
	room, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if room.Code != code {
		return nil, ErrForbidden
	}

	if r.clk.Now().After(room.ExpiresAt) {
		return nil, ErrExpired
	}

	return room, nil
}

// UpdateSize applies a size delta as a single conditional update, so two
// concurrent uploads can't race past the quota. Returns ErrQuotaExceeded
// without changing anything when the delta doesn't fit. Negative deltas are
// fine; driving the counter below zero is a bug in the caller, not a
// user-facing error.
func (r *Rooms) UpdateSize(ctx context.Context, room *model.Room, delta int64) (*model.Room, error) {
	res := r.db.WithContext(ctx).Model(&model.Room{}).
		Where("id = ? AND is_active = ? AND current_size + ? <= max_size", room.ID, true, delta).
		Update("current_size", gorm.Expr("current_size + ?", delta))
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update room size, %w", res.Error)
	}

	if res.RowsAffected == 0 {
		// Zero rows matched means either the room was deactivated under us or
		// the delta doesn't fit. Tell the cases apart so callers don't report
		// a quota problem for a room that no longer exists.
		if _, err := r.FindByID(ctx, room.ID); err != nil {
			return nil, err
		}
		return nil, ErrQuotaExceeded
	}

	return r.FindByID(ctx, room.ID)
}

// ResetSize overwrites current_size, used by the reconciliation pass that
// recomputes usage from file rows.
func (r *Rooms) ResetSize(ctx context.Context, id string, size int64) error {
	err := r.db.WithContext(ctx).Model(&model.Room{}).
		Where("id = ?", id).
		Update("current_size", size).Error
	if err != nil {
		return fmt.Errorf("failed to reset room size, %w", err)
	}
	return nil
}

// Deactivate flips is_active off. Idempotent, doesn't touch files.
func (r *Rooms) Deactivate(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Model(&model.Room{}).
		Where("id = ?", id).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate room %s, %w", id, err)
	}
	return nil
}

// Remove hard-deletes the row regardless of active state. Used by explicit
// room deletion after the cascade has run.
func (r *Rooms) Remove(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Room{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete room %s, %w", id, err)
	}
	return nil
}

// Active returns every active room. The scheduler scans this on start and on
// each poll cycle.
func (r *Rooms) Active(ctx context.Context) ([]model.Room, error) {
	var rooms []model.Room
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active rooms, %w", err)
	}
	return rooms, nil
}
