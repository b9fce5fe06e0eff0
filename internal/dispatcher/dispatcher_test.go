package dispatcher

import (
	"testing"

	"eve-dispatch/internal/domain"
	"eve-dispatch/internal/geometry"
	"eve-dispatch/internal/messaging"
	"eve-dispatch/internal/scene"
)

func TestAddCourierThenOrderNegotiatesToCommit(t *testing.T) {
	sc := scene.New()
	sub := messaging.NewSubstrate(64)
	d := New(sc, sub, nil)

	courier := &domain.Courier{
		Name: "c1", InitPoint: geometry.Point{X: 0, Y: 0},
		Rate: 1, Speed: 10, MaxMass: 100, Capacity: 1000,
		ChargeVelocity: 50, FlightDischarge: 1, LoadDischargeA: 0.01, LoadDischargeB: 0.01,
	}
	order := &domain.Order{
		Name: "o1", Mass: 1, Price: 20,
		PickupPoint: geometry.Point{X: 30, Y: 0}, DeliveryPoint: geometry.Point{X: 30, Y: 40},
		TimeFrom: 5, TimeTo: 100,
	}

	d.AddCourier(courier)
	d.AddOrder(order)
	sub.Quiesce()

	if !order.DeliveryData.IsAssigned() {
		t.Fatalf("expected order to be committed after dispatcher wiring, got %+v", order.DeliveryData)
	}
	if d.AgentCount() != 2 {
		t.Fatalf("expected 2 live agents, got %d", d.AgentCount())
	}
}

func TestRemoveCourierNotifiesOrdersAndClearsAssignment(t *testing.T) {
	sc := scene.New()
	sub := messaging.NewSubstrate(64)
	d := New(sc, sub, nil)

	courier := &domain.Courier{
		Name: "c1", InitPoint: geometry.Point{X: 0, Y: 0},
		Rate: 1, Speed: 10, MaxMass: 100, Capacity: 1000,
		ChargeVelocity: 50, FlightDischarge: 1, LoadDischargeA: 0.01, LoadDischargeB: 0.01,
	}
	order := &domain.Order{
		Name: "o1", Mass: 1, Price: 20,
		PickupPoint: geometry.Point{X: 30, Y: 0}, DeliveryPoint: geometry.Point{X: 30, Y: 40},
		TimeFrom: 5, TimeTo: 100,
	}
	d.AddCourier(courier)
	d.AddOrder(order)
	sub.Quiesce()
	if !order.DeliveryData.IsAssigned() {
		t.Fatalf("setup: expected order committed before removal, got %+v", order.DeliveryData)
	}

	if !d.RemoveCourier("c1") {
		t.Fatalf("expected RemoveCourier to find c1")
	}
	sub.Quiesce()

	if order.DeliveryData.IsAssigned() {
		t.Errorf("expected order's assignment to be cleared after its courier was removed, got %+v", order.DeliveryData)
	}
	if d.AgentCount() != 1 {
		t.Fatalf("expected only the order agent left, got %d", d.AgentCount())
	}
	if d.RemoveCourier("missing") {
		t.Errorf("expected removing an unknown courier to report false")
	}
}
