package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"webshare/room-api/internal/registry"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Scheduler arms one timer per active room so each room is torn down at
// (very close to) its exact expiry instant, and re-scans the room table on a
// fixed poll cycle to pick up rooms created behind its back. The poll bounds
// the worst-case delay for such rooms to one interval; the timers give
// sub-second precision for everything it already knows about.
type Scheduler struct {
	rooms   *registry.Rooms
	cleaner *Cleaner
	clk     clock.Clock
	poll    time.Duration

	mu      sync.Mutex
	running bool
	timers  map[string]*clock.Timer
	ticker  *clock.Ticker
	done    chan struct{}
	wg      sync.WaitGroup
}

// Status is a snapshot of the scheduler for the admin endpoint.
type Status struct {
	Running      bool          `json:"running"`
	PollInterval time.Duration `json:"pollInterval"`
	ActiveTimers int           `json:"activeTimers"`
	TrackedRooms []string      `json:"trackedRooms"`
}

func NewScheduler(rooms *registry.Rooms, cleaner *Cleaner, clk clock.Clock, poll time.Duration) *Scheduler {
	return &Scheduler{
		rooms:   rooms,
		cleaner: cleaner,
		clk:     clk,
		poll:    poll,
		timers:  make(map[string]*clock.Timer),
	}
}

// Start scans existing rooms, arms their timers and begins the poll loop.
// Calling it while running is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		zap.L().Debug("Scheduler already running")
		return
	}
	s.running = true
	s.done = make(chan struct{})
	s.ticker = s.clk.Ticker(s.poll)
	s.mu.Unlock()

	zap.L().Info("Scheduler starting", zap.Duration("poll_every", s.poll))

	s.scan()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.done:
				return
			case <-s.ticker.C:
				s.scan()
			}
		}
	}()
}

// Stop cancels every outstanding timer, halts the poll loop and waits for any
// deletion already in flight, so nothing mutates state after it returns.
// Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.ticker.Stop()
	close(s.done)

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
	zap.L().Info("Scheduler stopped")
}

// scan arms a timer for every active room that isn't tracked yet. Rooms
// already past their expiry are deleted on the spot.
func (s *Scheduler) scan() {
	rooms, err := s.rooms.Active(context.Background())
	if err != nil {
		zap.L().Error("Failed to scan active rooms", zap.Error(err))
		return
	}

	now := s.clk.Now()
	for i := range rooms {
		id := rooms[i].ID

		s.mu.Lock()
		_, tracked := s.timers[id]
		running := s.running
		s.mu.Unlock()

		if !running {
			return
		}
		if tracked {
			continue
		}

		if remaining := rooms[i].ExpiresAt.Sub(now); remaining > 0 {
			s.Schedule(id, remaining)
		} else {
			zap.L().Info("Found already expired room, deleting now", zap.String("room", id))
			s.deleteRoom(id)
		}
	}
}

// Schedule arms (or replaces) the one-shot timer for the room. A room is
// never tracked twice: an existing timer is cancelled first.
func (s *Scheduler) Schedule(roomID string, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	if t, ok := s.timers[roomID]; ok {
		t.Stop()
	}

	zap.L().Debug("Room scheduled for deletion",
		zap.String("room", roomID),
		zap.Duration("in", d))

	s.timers[roomID] = s.clk.AfterFunc(d, func() {
		s.fire(roomID)
	})
}

func (s *Scheduler) fire(roomID string) {
	s.mu.Lock()
	// Stop may have run between the timer firing and this callback getting
	// the lock, in which case the deletion must not happen.
	if !s.running {
		s.mu.Unlock()
		return
	}
	delete(s.timers, roomID)
	// Joined under the lock so Stop either sees !running here, or waits for
	// this deletion to finish.
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	s.deleteRoom(roomID)
}

// deleteRoom runs the cascade and swallows failures: the room stays active in
// the database, so the next poll cycle finds it untracked and expired, and
// retries. One bad room never halts the scheduler.
func (s *Scheduler) deleteRoom(roomID string) {
	if err := s.cleaner.DeleteRoom(context.Background(), roomID); err != nil {
		zap.L().Error("Failed to delete expired room, will retry on next poll",
			zap.String("room", roomID),
			zap.Error(err))
	}
}

// CancelRoomTimer drops the room's pending timer, reporting whether one
// existed. Explicit deletions call this first to avoid a double-delete race
// with the timer (the cascade is idempotent regardless).
func (s *Scheduler) CancelRoomTimer(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.timers[roomID]
	if !ok {
		return false
	}

	t.Stop()
	delete(s.timers, roomID)
	return true
}

// TriggerRoomDeletion cancels any pending timer and runs the cascade now.
func (s *Scheduler) TriggerRoomDeletion(ctx context.Context, roomID string) error {
	s.CancelRoomTimer(roomID)
	return s.cleaner.DeleteRoom(ctx, roomID)
}

// GetStatus reports the running flag, poll interval and tracked room ids.
func (s *Scheduler) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.timers))
	for id := range s.timers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return Status{
		Running:      s.running,
		PollInterval: s.poll,
		ActiveTimers: len(ids),
		TrackedRooms: ids,
	}
}
