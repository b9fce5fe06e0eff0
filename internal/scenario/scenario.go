// Package scenario generates randomized orders and couriers for ad hoc
// simulation runs. It is explicitly non-core (spec.md §1 lists "random
// scenario generators" as an out-of-scope external collaborator): nothing
// in internal/agents, internal/schedule, internal/dispatcher, or
// internal/simulator imports this package, and it is used only by tests
// and by main.go, which always builds its run from generated records.
package scenario

import (
	"fmt"
	"math/rand"

	"eve-dispatch/internal/domain"
	"eve-dispatch/internal/geometry"
	"eve-dispatch/internal/scene"
)

// MapSize bounds the square region random coordinates are drawn from.
type MapSize struct {
	Width, Height float64
}

// OrderParams configures GenerateOrders, mirroring
// original_source/utils/generators.py's generate_orders keyword arguments.
type OrderParams struct {
	Count              int
	UrgentPercentage   float64
	Map                MapSize
	MaxAppearanceTime  float64
	AvgCourierSpeed    float64
	OrderTypes         []string
}

// GenerateOrders returns Count randomly placed orders, urgentPercentage of
// them given a tight delivery deadline and the rest a looser one, in the
// same proportions as the teacher's generate_orders.
func GenerateOrders(r *rand.Rand, p OrderParams) []*domain.Order {
	if p.AvgCourierSpeed <= 0 {
		p.AvgCourierSpeed = 10
	}
	if len(p.OrderTypes) == 0 {
		p.OrderTypes = []string{"A", "B"}
	}
	numUrgent := int(float64(p.Count) * (p.UrgentPercentage / 100.0))

	orders := make([]*domain.Order, p.Count)
	for i := 0; i < p.Count; i++ {
		pickup := geometry.Point{X: r.Float64() * p.Map.Width, Y: r.Float64() * p.Map.Height}
		var delivery geometry.Point
		for {
			delivery = geometry.Point{X: r.Float64() * p.Map.Width, Y: r.Float64() * p.Map.Height}
			if !delivery.Equal(pickup) {
				break
			}
		}

		distance := geometry.Distance(pickup, delivery)
		minDuration := distance / p.AvgCourierSpeed

		appearance := r.Float64() * p.MaxAppearanceTime
		pickupTime := appearance + 1 + r.Float64()*9

		var deadline float64
		if i < numUrgent {
			deadline = pickupTime + minDuration*(1.1+r.Float64()*0.4)
		} else {
			deadline = pickupTime + minDuration*(2.0+r.Float64()*2.0)
		}

		orders[i] = &domain.Order{
			Number:         int64(i + 1),
			Name:           fmt.Sprintf("order-%d", i+1),
			Mass:           1 + r.Float64()*14,
			Volume:         0.1 + r.Float64()*1.9,
			Price:          100 + r.Float64()*1900,
			PickupPoint:    pickup,
			DeliveryPoint:  delivery,
			TimeFrom:       pickupTime,
			TimeTo:         deadline,
			OrderType:           p.OrderTypes[r.Intn(len(p.OrderTypes))],
			AppearanceTime:      appearance,
			IsUrgent:            i < numUrgent,
			WaitResponseTimeout: 2 + r.Float64()*3,
		}
	}

	r.Shuffle(len(orders), func(i, j int) { orders[i], orders[j] = orders[j], orders[i] })
	return orders
}

// CourierParams configures GenerateCouriers, mirroring
// original_source/utils/generators.py's generate_couriers.
type CourierParams struct {
	Count          int
	Map            MapSize
	SpeedRange     [2]float64
	PayloadRange   [2]float64
}

// GenerateCouriers returns Count randomly placed, randomly specced couriers.
// Couriers carry no appearance time; BuildScript introduces each at time 0.
func GenerateCouriers(r *rand.Rand, p CourierParams) []*domain.Courier {
	if p.SpeedRange == ([2]float64{}) {
		p.SpeedRange = [2]float64{8, 15}
	}
	if p.PayloadRange == ([2]float64{}) {
		p.PayloadRange = [2]float64{10, 20}
	}

	couriers := make([]*domain.Courier, p.Count)
	for i := 0; i < p.Count; i++ {
		speed := p.SpeedRange[0] + r.Float64()*(p.SpeedRange[1]-p.SpeedRange[0])
		payload := p.PayloadRange[0] + r.Float64()*(p.PayloadRange[1]-p.PayloadRange[0])

		couriers[i] = &domain.Courier{
			Number:          int64(i + 1),
			Name:            fmt.Sprintf("courier-%d", i+1),
			InitPoint:       geometry.Point{X: r.Float64() * p.Map.Width, Y: r.Float64() * p.Map.Height},
			DeploymentCost:  100 + r.Float64()*400,
			Rate:            10 + r.Float64()*20,
			ChargeVelocity:  1 + r.Float64()*4,
			FlightDischarge: 0.5 + r.Float64()*1.5,
			LoadDischargeA:  1.2,
			LoadDischargeB:  1.5,
			Capacity:        100 + r.Float64()*100,
			InitTime:        0.5,
			Speed:           speed,
			MaxMass:         payload,
		}
	}
	return couriers
}

// BuildScript assembles a scene.Script that introduces every courier at
// time 0 and every order at its own AppearanceTime, the same pairing
// original_source/utils/script.py's load_couriers_from_dicts /
// load_orders_from_dicts perform over generated dicts.
func BuildScript(orders []*domain.Order, couriers []*domain.Courier) *scene.Script {
	script := scene.NewScript()
	for _, c := range couriers {
		script.Add(scene.ScriptEvent{Time: 0, Type: scene.NewCourier, CourierSpec: c})
	}
	for _, o := range orders {
		script.Add(scene.ScriptEvent{Time: o.AppearanceTime, Type: scene.NewOrder, OrderSpec: o})
	}
	return script
}
