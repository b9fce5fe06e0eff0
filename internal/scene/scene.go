// Package scene holds the simulator's entity registry and monotonic clock
// (Scene), plus the sorted list of timed events that drive a run (Script).
package scene

import (
	"fmt"
	"sort"
	"sync"

	"eve-dispatch/internal/domain"
)

// Scene is the shared registry of live couriers and orders, plus the
// simulation's monotonic clock. All access is synchronized: agents running
// on independent mailbox goroutines query it concurrently.
type Scene struct {
	mu            sync.Mutex
	couriers      []*domain.Courier
	orders        []*domain.Order
	time          float64
	messageCount  int64
}

// New returns an empty Scene with its clock at zero.
func New() *Scene {
	return &Scene{}
}

// AddCourier registers a new courier entity.
func (s *Scene) AddCourier(c *domain.Courier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.couriers = append(s.couriers, c)
}

// AddOrder registers a new order entity.
func (s *Scene) AddOrder(o *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o)
}

// RemoveCourierByName deletes the named courier from the registry (the
// caller is responsible for tearing down its agent first). Reports
// whether a courier was found.
func (s *Scene) RemoveCourierByName(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.couriers {
		if c.Name == name {
			s.couriers = append(s.couriers[:i], s.couriers[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveOrderByName deletes the named order from the registry.
func (s *Scene) RemoveOrderByName(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, o := range s.orders {
		if o.Name == name {
			s.orders = append(s.orders[:i], s.orders[i+1:]...)
			return true
		}
	}
	return false
}

// Couriers returns every courier not currently being torn down.
func (s *Scene) Couriers() []*domain.Courier {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*domain.Courier, 0, len(s.couriers))
	for _, c := range s.couriers {
		if !c.IsDeleting {
			result = append(result, c)
		}
	}
	return result
}

// Orders returns every order not currently being torn down.
func (s *Scene) Orders() []*domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if !o.IsDeleting {
			result = append(result, o)
		}
	}
	return result
}

// CouriersAcceptingType returns couriers not being torn down that accept
// orderType.
func (s *Scene) CouriersAcceptingType(orderType string) []*domain.Courier {
	var result []*domain.Courier
	for _, c := range s.Couriers() {
		if c.AcceptsOrderType(orderType) {
			result = append(result, c)
		}
	}
	return result
}

// Time returns the scene's current clock value.
func (s *Scene) Time() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.time
}

// Advance moves the clock forward to t, returning an error if t would move
// it backwards -- the clock is monotonic by invariant.
func (s *Scene) Advance(t float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t < s.time {
		return fmt.Errorf("scene: clock cannot move backwards from %v to %v", s.time, t)
	}
	s.time = t
	return nil
}

// CountMessage increments the scene's lifetime message counter, used for
// end-of-run statistics.
func (s *Scene) CountMessage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messageCount++
}

// MessageCount returns the total number of messages counted so far.
func (s *Scene) MessageCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageCount
}

// EventType identifies the kind of entity mutation a ScriptEvent requests.
type EventType string

const (
	NewOrder       EventType = "new_order"
	RemoveOrder    EventType = "remove_order"
	NewCourier     EventType = "new_courier"
	DeletedCourier EventType = "deleted_courier"
)

// ScriptEvent is one scheduled mutation to the scene: either an entity
// appearing or disappearing at Time.
type ScriptEvent struct {
	Time       float64
	Type       EventType
	OrderSpec  *domain.Order
	CourierSpec *domain.Courier
	Name       string // for RemoveOrder/DeletedCourier, the entity name to remove
}

// Script is the time-sorted sequence of events that drive one simulation
// run.
type Script struct {
	events []ScriptEvent
}

// NewScript returns an empty Script.
func NewScript() *Script {
	return &Script{}
}

// Add appends event and keeps the script sorted by time.
func (s *Script) Add(event ScriptEvent) {
	s.events = append(s.events, event)
	sort.SliceStable(s.events, func(i, j int) bool { return s.events[i].Time < s.events[j].Time })
}

// EventsDuring returns every event with start <= time < end, in time order.
func (s *Script) EventsDuring(start, end float64) []ScriptEvent {
	var result []ScriptEvent
	for _, e := range s.events {
		if e.Time >= start && e.Time < end {
			result = append(result, e)
		}
	}
	return result
}

// Len reports the total number of scheduled events.
func (s *Script) Len() int {
	return len(s.events)
}
