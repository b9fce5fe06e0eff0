package simulator

import (
	"testing"

	"eve-dispatch/internal/config"
	"eve-dispatch/internal/domain"
	"eve-dispatch/internal/geometry"
	"eve-dispatch/internal/scene"
	"eve-dispatch/internal/store"
)

func TestRunCommitsScriptedOrderToScriptedCourier(t *testing.T) {
	script := scene.NewScript()
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
	script.Add(scene.ScriptEvent{Time: 0, Type: scene.NewCourier, CourierSpec: courier})
	script.Add(scene.ScriptEvent{Time: 0, Type: scene.NewOrder, OrderSpec: order})

	cfg := config.Default()
	cfg.TickSize = 1
	cfg.TimeStop = 3

	var ticks []Stats
	sim := New(script, cfg, nil, func(st Stats) { ticks = append(ticks, st) })
	sim.Run()

	if !order.DeliveryData.IsAssigned() {
		t.Fatalf("expected order committed by end of run, got %+v", order.DeliveryData)
	}
	if order.DeliveryData.Courier != courier {
		t.Fatalf("expected order committed to the scripted courier, got %v", order.DeliveryData.Courier)
	}
	if len(ticks) == 0 {
		t.Fatalf("expected the callback to fire at least once")
	}
	if got := len(AllScheduleRecords(sim.Scene())); got == 0 {
		t.Fatalf("expected the courier's committed schedule to surface via AllScheduleRecords")
	}
}

func TestRunAppliesRemoveOrderEvent(t *testing.T) {
	script := scene.NewScript()
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
	script.Add(scene.ScriptEvent{Time: 0, Type: scene.NewCourier, CourierSpec: courier})
	script.Add(scene.ScriptEvent{Time: 0, Type: scene.NewOrder, OrderSpec: order})
	script.Add(scene.ScriptEvent{Time: 2, Type: scene.RemoveOrder, Name: "o1"})

	cfg := config.Default()
	cfg.TickSize = 1
	cfg.TimeStop = 4

	sim := New(script, cfg, nil, nil)
	sim.Run()

	if sim.Dispatcher().AgentCount() != 1 {
		t.Fatalf("expected only the courier agent left after the order was removed, got %d", sim.Dispatcher().AgentCount())
	}
}

func TestRunPersistsScheduleAndEventsToStore(t *testing.T) {
	script := scene.NewScript()
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
	script.Add(scene.ScriptEvent{Time: 0, Type: scene.NewCourier, CourierSpec: courier})
	script.Add(scene.ScriptEvent{Time: 0, Type: scene.NewOrder, OrderSpec: order})

	cfg := config.Default()
	cfg.TickSize = 1
	cfg.TimeStop = 3

	st, err := store.Open("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	sim := New(script, cfg, st, nil)
	sim.Run()

	rows, err := st.ListScheduleItems()
	if err != nil {
		t.Fatalf("list schedule items: %v", err)
	}
	if len(rows) == 0 {
		t.Fatalf("expected the committed schedule to be persisted")
	}
}
