package domain

import "testing"

func TestDeliveryDataIsAssigned(t *testing.T) {
	var empty DeliveryData
	if empty.IsAssigned() {
		t.Errorf("zero-value DeliveryData should not be assigned")
	}
	assigned := DeliveryData{Courier: &Courier{Name: "C1"}, Price: 10}
	if !assigned.IsAssigned() {
		t.Errorf("DeliveryData with a courier should be assigned")
	}
}

func TestCourierAcceptsOrderType(t *testing.T) {
	any := &Courier{}
	if !any.AcceptsOrderType("A") {
		t.Errorf("courier with no declared types should accept any order type")
	}
	picky := &Courier{Types: []string{"A", "B"}}
	if !picky.AcceptsOrderType("B") {
		t.Errorf("expected picky courier to accept declared type B")
	}
	if picky.AcceptsOrderType("C") {
		t.Errorf("expected picky courier to reject undeclared type C")
	}
}

func TestSnapshotScheduleIsIndependent(t *testing.T) {
	c := &Courier{
		Schedule: []ScheduleItem{
			{RecType: MoveWithLoad, Cost: 10, Params: map[string]any{"variant_name": "asap"}},
		},
	}
	snap := c.SnapshotSchedule()
	c.Schedule[0].Cost = 999
	c.Schedule[0].Params["variant_name"] = "jit"

	if snap[0].Cost == 999 {
		t.Errorf("snapshot should not observe later mutation of courier schedule")
	}
	if snap[0].Params["variant_name"] != "asap" {
		t.Errorf("snapshot params should not observe later mutation")
	}

	c.RestoreSchedule(snap)
	if c.Schedule[0].Cost != 10 {
		t.Errorf("restore should bring back snapshot cost, got %v", c.Schedule[0].Cost)
	}
}
