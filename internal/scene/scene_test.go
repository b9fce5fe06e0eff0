package scene

import (
	"testing"

	"eve-dispatch/internal/domain"
)

func TestAdvanceRejectsBackwardsClock(t *testing.T) {
	s := New()
	if err := s.Advance(5); err != nil {
		t.Fatalf("unexpected error advancing forward: %v", err)
	}
	if err := s.Advance(3); err == nil {
		t.Errorf("expected error moving clock backwards")
	}
	if s.Time() != 5 {
		t.Errorf("clock should remain at 5 after rejected advance, got %v", s.Time())
	}
}

func TestCouriersExcludesDeleting(t *testing.T) {
	s := New()
	live := &domain.Courier{Name: "live"}
	dying := &domain.Courier{Name: "dying", IsDeleting: true}
	s.AddCourier(live)
	s.AddCourier(dying)

	couriers := s.Couriers()
	if len(couriers) != 1 || couriers[0].Name != "live" {
		t.Fatalf("expected only the live courier, got %+v", couriers)
	}
}

func TestCouriersAcceptingType(t *testing.T) {
	s := New()
	s.AddCourier(&domain.Courier{Name: "any"})
	s.AddCourier(&domain.Courier{Name: "picky", Types: []string{"food"}})

	accepting := s.CouriersAcceptingType("food")
	if len(accepting) != 2 {
		t.Fatalf("expected both couriers to accept 'food', got %d", len(accepting))
	}
	accepting = s.CouriersAcceptingType("parcel")
	if len(accepting) != 1 || accepting[0].Name != "any" {
		t.Fatalf("expected only the unrestricted courier to accept 'parcel', got %+v", accepting)
	}
}

func TestScriptEventsDuringIsTimeOrderedAndHalfOpen(t *testing.T) {
	s := NewScript()
	s.Add(ScriptEvent{Time: 5, Type: NewOrder})
	s.Add(ScriptEvent{Time: 1, Type: NewCourier})
	s.Add(ScriptEvent{Time: 3, Type: NewOrder})

	due := s.EventsDuring(0, 4)
	if len(due) != 2 {
		t.Fatalf("expected 2 events in [0,4), got %d", len(due))
	}
	if due[0].Time != 1 || due[1].Time != 3 {
		t.Errorf("expected events in time order, got %+v", due)
	}

	none := s.EventsDuring(5, 5)
	if len(none) != 0 {
		t.Errorf("expected empty half-open interval to yield nothing, got %+v", none)
	}
}

func TestRemoveCourierByName(t *testing.T) {
	s := New()
	s.AddCourier(&domain.Courier{Name: "c1"})
	s.AddCourier(&domain.Courier{Name: "c2"})

	if !s.RemoveCourierByName("c1") {
		t.Fatalf("expected removal of c1 to succeed")
	}
	if s.RemoveCourierByName("missing") {
		t.Errorf("expected removal of unknown courier to report false")
	}
	remaining := s.Couriers()
	if len(remaining) != 1 || remaining[0].Name != "c2" {
		t.Fatalf("expected only c2 to remain, got %+v", remaining)
	}
}
