package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"webshare/room-api/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A one hour poll keeps the ticker quiet in tests that only exercise timers.
const quietPoll = time.Hour

func (e *testEnv) roomGone(id string) func() bool {
	return func() bool {
		_, err := e.rooms.FindByID(context.Background(), id)
		return errors.Is(err, registry.ErrNotFound)
	}
}

func TestSchedulerTimerFiresCascade(t *testing.T) {
	e := newTestEnv(t)
	e.makeRoom(t, "r1", 3, 2)

	s := NewScheduler(e.rooms, e.cleaner, e.clk, quietPoll)
	s.Start()
	defer s.Stop()

	status := s.GetStatus()
	assert.True(t, status.Running)
	assert.Equal(t, []string{"r1"}, status.TrackedRooms)

	// One second early: nothing happens
	e.clk.Add(3*time.Minute - time.Second)
	_, err := e.rooms.FindByID(context.Background(), "r1")
	require.NoError(t, err)

	e.clk.Add(2 * time.Second)
	waitFor(t, e.roomGone("r1"))

	list, err := e.files.FindByRoom(context.Background(), "r1")
	require.NoError(t, err)
	assert.Empty(t, list)

	assert.Zero(t, s.GetStatus().ActiveTimers)

	// Time marching on does not fire the cascade again
	e.clk.Add(10 * time.Minute)
	assert.Zero(t, s.GetStatus().ActiveTimers)
}

func TestSchedulerDeletesAlreadyExpiredOnStart(t *testing.T) {
	e := newTestEnv(t)
	e.makeRoom(t, "r1", 3, 1)

	// The room expires before any scheduler exists, as after a restart
	e.clk.Add(5 * time.Minute)

	s := NewScheduler(e.rooms, e.cleaner, e.clk, quietPoll)
	s.Start()
	defer s.Stop()

	waitFor(t, e.roomGone("r1"))
	assert.Zero(t, s.GetStatus().ActiveTimers)
}

func TestSchedulerPollPicksUpNewRooms(t *testing.T) {
	e := newTestEnv(t)

	s := NewScheduler(e.rooms, e.cleaner, e.clk, 5*time.Second)
	s.Start()
	defer s.Stop()

	// Created behind the scheduler's back, no Schedule call
	e.makeRoom(t, "r1", 10, 0)
	assert.Zero(t, s.GetStatus().ActiveTimers)

	e.clk.Add(5 * time.Second)
	waitFor(t, func() bool { return s.GetStatus().ActiveTimers == 1 })
	assert.Equal(t, []string{"r1"}, s.GetStatus().TrackedRooms)
}

func TestSchedulerStopCancelsTimers(t *testing.T) {
	e := newTestEnv(t)
	e.makeRoom(t, "r1", 3, 1)

	s := NewScheduler(e.rooms, e.cleaner, e.clk, quietPoll)
	s.Start()
	require.Equal(t, 1, s.GetStatus().ActiveTimers)

	s.Stop()
	assert.False(t, s.GetStatus().Running)
	assert.Zero(t, s.GetStatus().ActiveTimers)

	e.clk.Add(10 * time.Minute)

	room, err := e.rooms.FindByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, room.IsActive, "no deletion may fire after Stop")
}

func TestSchedulerStopDrainsInFlightDeletion(t *testing.T) {
	e := newTestEnv(t)
	e.makeRoom(t, "r1", 3, 2)

	s := NewScheduler(e.rooms, e.cleaner, e.clk, quietPoll)
	s.Start()

	// The timer fires while Stop is on its way; whatever state Stop observes
	// on return is final
	e.clk.Add(3 * time.Minute)
	s.Stop()

	_, errAtStop := e.rooms.FindByID(context.Background(), "r1")
	time.Sleep(50 * time.Millisecond)
	_, errLater := e.rooms.FindByID(context.Background(), "r1")

	assert.Equal(t, errAtStop == nil, errLater == nil,
		"no deletion may still be running after Stop returns")
}

func TestSchedulerStartStopIdempotent(t *testing.T) {
	e := newTestEnv(t)

	s := NewScheduler(e.rooms, e.cleaner, e.clk, quietPoll)
	s.Start()
	s.Start()
	assert.True(t, s.GetStatus().Running)

	s.Stop()
	s.Stop()
	assert.False(t, s.GetStatus().Running)
}

func TestSchedulerCancelRoomTimer(t *testing.T) {
	e := newTestEnv(t)
	e.makeRoom(t, "r1", 3, 0)

	s := NewScheduler(e.rooms, e.cleaner, e.clk, quietPoll)
	s.Start()
	defer s.Stop()

	assert.True(t, s.CancelRoomTimer("r1"))
	assert.False(t, s.CancelRoomTimer("r1"))

	e.clk.Add(10 * time.Minute)

	// The cancelled timer never fires; the room outlives its expiry until
	// the next poll scan finds it again
	room, err := e.rooms.FindByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, room.IsActive)
}

func TestSchedulerTriggerRoomDeletion(t *testing.T) {
	e := newTestEnv(t)
	e.makeRoom(t, "r1", 30, 2)

	s := NewScheduler(e.rooms, e.cleaner, e.clk, quietPoll)
	s.Start()
	defer s.Stop()

	require.NoError(t, s.TriggerRoomDeletion(context.Background(), "r1"))

	_, err := e.rooms.FindByID(context.Background(), "r1")
	assert.ErrorIs(t, err, registry.ErrNotFound)
	assert.Zero(t, s.GetStatus().ActiveTimers)

	// Triggering again converges on the same deleted state
	require.NoError(t, s.TriggerRoomDeletion(context.Background(), "r1"))
}

func TestSchedulerScheduleReplacesTimer(t *testing.T) {
	e := newTestEnv(t)
	e.makeRoom(t, "r1", 3, 0)

	s := NewScheduler(e.rooms, e.cleaner, e.clk, quietPoll)
	s.Start()
	defer s.Stop()

	// Rearm further out, as a TTL extension would
	s.Schedule("r1", 10*time.Minute)
	assert.Equal(t, 1, s.GetStatus().ActiveTimers)

	e.clk.Add(5 * time.Minute)
	room, err := e.rooms.FindByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.True(t, room.IsActive, "original timer must not fire")
}
