package agents

import (
	"eve-dispatch/internal/domain"
	"eve-dispatch/internal/geometry"
	"eve-dispatch/internal/messaging"
	"eve-dispatch/internal/schedule"
)

// CourierAgent quotes variants for incoming orders and commits the one the
// order eventually settles on. It owns the only code path that mutates its
// bound courier's schedule, which is what makes that mutation atomic: every
// Handle call runs strictly after the previous one finishes, on the same
// mailbox goroutine.
type CourierAgent struct {
	ctx    Context
	entity *domain.Courier
}

// NewCourierAgent binds a CourierAgent to courier. The returned Handle
// method is what the dispatcher spawns on the substrate.
func NewCourierAgent(ctx Context, courier *domain.Courier) *CourierAgent {
	return &CourierAgent{ctx: ctx, entity: courier}
}

// Handle dispatches one message to the appropriate handler.
func (a *CourierAgent) Handle(msg messaging.Message) {
	switch msg.Type {
	case messaging.InitMessage:
		a.handleInit()
	case messaging.PriceRequest:
		a.handlePriceRequest(msg)
	case messaging.PlanningRequest:
		a.handlePlanningRequest(msg)
	case messaging.TickMessage:
		// Reserved for future self-improvement hooks; no-op today.
	case messaging.ExitRequest:
		a.handleExit()
	}
}

func (a *CourierAgent) handleInit() {
	for _, order := range a.ctx.Scene.Orders() {
		if !a.entity.AcceptsOrderType(order.OrderType) {
			continue
		}
		addr := a.ctx.Directory.AddressForOrder(order)
		a.ctx.send(addr, messaging.NewCourier, a.entity)
	}
}

func (a *CourierAgent) handleExit() {
	a.entity.IsDeleting = true
	for _, order := range a.ctx.Scene.Orders() {
		addr := a.ctx.Directory.AddressForOrder(order)
		a.ctx.send(addr, messaging.DeletedCourier, a.entity)
	}
}

func (a *CourierAgent) handlePriceRequest(msg messaging.Message) {
	order, ok := msg.Body.(*domain.Order)
	if !ok {
		logErrf("courier", "%s dropped malformed price request: %+v", a.entity, msg)
		return
	}
	variants := a.generateVariants(order)
	a.ctx.send(msg.Sender, messaging.PriceResponse, variants)
}

type planningResult struct {
	Variant Variant
	Success bool
}

func (a *CourierAgent) handlePlanningRequest(msg messaging.Message) {
	variant, ok := msg.Body.(Variant)
	if !ok {
		logErrf("courier", "%s dropped malformed planning request: %+v", a.entity, msg)
		return
	}
	success := a.commit(variant)
	logf("courier", "%s planning request for %s (%s) -> %v", a.entity, variant.Order, variant.Kind, success)
	a.ctx.send(msg.Sender, messaging.PlanningResponse, planningResult{Variant: variant, Success: success})
}

// commit applies variant atomically: on any failure the courier's schedule
// is left exactly as it was found.
func (a *CourierAgent) commit(variant Variant) bool {
	snapshot := a.entity.SnapshotSchedule()

	switch variant.Kind {
	case variantConflict:
		ok := a.commitConflict(variant)
		if !ok {
			a.entity.RestoreSchedule(snapshot)
		}
		return ok
	case variantReschedule:
		ok := a.commitReschedule(variant)
		if !ok {
			a.entity.RestoreSchedule(snapshot)
		}
		return ok
	default:
		params := map[string]any{"variant_name": string(variant.Kind)}
		ok := schedule.AddOrderToSchedule(a.entity, variant.Order, variant.TimeFrom, variant.TimeTo, variant.Price, params)
		if !ok {
			a.entity.RestoreSchedule(snapshot)
		}
		return ok
	}
}

func (a *CourierAgent) commitConflict(variant Variant) bool {
	conflicts := schedule.GetConflicts(a.entity, variant.TimeFrom, variant.TimeTo)
	conflictedOrders := uniqueOrders(conflicts)
	if len(conflictedOrders) > 1 {
		return false
	}

	schedule.DeleteOrder(a.entity, variant.ConflictOrder)
	params := map[string]any{"variant_name": string(variant.Kind)}
	if !schedule.AddOrderToSchedule(a.entity, variant.Order, variant.TimeFrom, variant.TimeTo, variant.Price, params) {
		return false
	}

	addr := a.ctx.Directory.AddressForOrder(variant.ConflictOrder)
	a.ctx.send(addr, messaging.RemoveOrder, a.entity)
	return true
}

func (a *CourierAgent) commitReschedule(variant Variant) bool {
	for _, link := range variant.ShiftChain {
		schedule.DeleteOrder(a.entity, link.Order)
	}

	params := map[string]any{"variant_name": string(variant.Kind)}
	if !schedule.AddOrderToSchedule(a.entity, variant.Order, variant.TimeFrom, variant.TimeTo, variant.Price, params) {
		return false
	}

	for _, link := range variant.ShiftChain {
		if !schedule.AddOrderToSchedule(a.entity, link.Order, link.NewStart, link.NewEnd, link.OriginalCost, link.OriginalParams) {
			return false
		}
	}

	for _, link := range variant.ShiftChain {
		addr := a.ctx.Directory.AddressForOrder(link.Order)
		a.ctx.send(addr, messaging.RescheduleNotice, rescheduleNotice{
			Courier: a.entity, TimeFrom: link.NewStart, TimeTo: link.NewEnd,
		})
	}
	return true
}

// rescheduleNotice carries a shifted order's new committed window. It omits
// Price: a cascade reschedule never changes what an order pays, only when
// it is served.
type rescheduleNotice struct {
	Courier  *domain.Courier
	TimeFrom float64
	TimeTo   float64
}

// generateVariants builds up to three offers for order: asap always, jit
// and a displacement/reschedule pair when the ideal JIT slot is occupied.
// Mirrors the teacher's __get_params, extended with battery-aware ASAP
// inflation and the reschedule shift chain neither legacy courier agent
// implements.
func (a *CourierAgent) generateVariants(order *domain.Order) []Variant {
	if order.Mass > a.entity.MaxMass {
		return nil
	}

	now := a.ctx.Scene.Time()
	pickup := order.PickupPoint
	delivery := order.DeliveryPoint
	distanceWithOrder := geometry.Distance(pickup, delivery)
	timeWithOrder := distanceWithOrder / nonZeroSpeed(a.entity.Speed)

	asapVariant := a.buildASAP(order, now, timeWithOrder)
	variants := []Variant{asapVariant}

	if asapVariant.TimeFrom >= order.TimeFrom {
		// Already at or past the ideal pickup time; no room for a JIT/
		// displacement/reschedule variant.
		return variants
	}

	distanceToOrder := geometry.Distance(schedule.LastPoint(a.entity), pickup)
	timeToOrder := distanceToOrder / nonZeroSpeed(a.entity.Speed)
	jitTimeFrom := order.TimeFrom - timeToOrder
	jitTimeTo := jitTimeFrom + timeToOrder + timeWithOrder
	price := (timeToOrder + timeWithOrder) * a.entity.Rate

	if jitTimeFrom < now {
		return variants
	}

	conflicts := schedule.GetConflicts(a.entity, jitTimeFrom, jitTimeTo)
	if len(conflicts) == 0 {
		variants = append(variants, Variant{
			Courier: a.entity, Order: order, Kind: variantJIT,
			TimeFrom: jitTimeFrom, TimeTo: jitTimeTo, Price: price,
		})
		return variants
	}

	conflictedOrders := uniqueOrders(conflicts)

	if v, ok := a.buildConflictVariant(order, conflictedOrders, pickup, timeWithOrder); ok {
		variants = append(variants, v)
	}
	if v, ok := a.buildRescheduleVariant(order, now, jitTimeFrom, jitTimeTo, price); ok {
		variants = append(variants, v)
	}

	return variants
}

func (a *CourierAgent) buildASAP(order *domain.Order, now, timeWithOrder float64) Variant {
	asapStart := max(schedule.LastTime(a.entity, true), now)
	lastPt := schedule.LastPoint(a.entity)

	distanceToOrder := geometry.Distance(lastPt, order.PickupPoint)
	timeToOrder := distanceToOrder / nonZeroSpeed(a.entity.Speed)
	price := (timeToOrder + timeWithOrder) * a.entity.Rate

	chargeAtStart := schedule.ChargeAtTime(a.entity, asapStart)
	consumeToPickup := schedule.ConsumptionByTime(a.entity, timeToOrder, nil)
	consumeWithLoad := schedule.ConsumptionByTime(a.entity, timeWithOrder, order)
	returnDistance := geometry.Distance(order.DeliveryPoint, a.entity.InitPoint)
	returnDuration := returnDistance / nonZeroSpeed(a.entity.Speed)
	consumeReturn := schedule.ConsumptionByTime(a.entity, returnDuration, nil)

	projected := chargeAtStart - consumeToPickup - consumeWithLoad - consumeReturn
	if projected < a.entity.MinCharge {
		deficit := a.entity.MinCharge - projected
		needWindow := deficit / nonZeroSpeed(a.entity.ChargeVelocity)
		homeDuration := geometry.Distance(lastPt, a.entity.InitPoint) / nonZeroSpeed(a.entity.Speed)
		extraTravel := 2 * homeDuration

		asapStart += needWindow + extraTravel
		price += extraTravel * a.entity.Rate

		distanceToOrder = geometry.Distance(a.entity.InitPoint, order.PickupPoint)
		timeToOrder = distanceToOrder / nonZeroSpeed(a.entity.Speed)
	}

	asapEnd := asapStart + timeToOrder + timeWithOrder
	return Variant{
		Courier: a.entity, Order: order, Kind: variantASAP,
		TimeFrom: asapStart, TimeTo: asapEnd, Price: price,
	}
}

func (a *CourierAgent) buildConflictVariant(order *domain.Order, conflictedOrders []*domain.Order, pickup geometry.Point, timeWithOrder float64) (Variant, bool) {
	var cheaper []*domain.Order
	for _, o := range conflictedOrders {
		if o.Price < order.Price {
			cheaper = append(cheaper, o)
		}
	}
	if len(cheaper) == 0 {
		return Variant{}, false
	}
	cheapest := cheaper[0]
	for _, o := range cheaper[1:] {
		if o.Price < cheapest.Price {
			cheapest = o
		}
	}

	records := schedule.GetAllOrderRecords(a.entity, cheapest)
	if len(records) == 0 {
		return Variant{}, false
	}
	startRecord := records[0]
	for _, r := range records[1:] {
		if r.StartTime < startRecord.StartTime {
			startRecord = r
		}
	}

	conflictedDistance := geometry.Distance(startRecord.PointFrom, pickup)
	conflictedTimeToOrder := conflictedDistance / nonZeroSpeed(a.entity.Speed)
	conflictedFinish := startRecord.StartTime + conflictedTimeToOrder + timeWithOrder

	newConflicts := schedule.GetConflicts(a.entity, startRecord.StartTime, conflictedFinish)
	for _, rec := range newConflicts {
		if rec.Order != cheapest {
			return Variant{}, false
		}
	}

	conflictedPrice := (conflictedTimeToOrder + timeWithOrder) * a.entity.Rate
	return Variant{
		Courier: a.entity, Order: order, Kind: variantConflict,
		TimeFrom: startRecord.StartTime, TimeTo: conflictedFinish, Price: conflictedPrice,
		ConflictOrder: cheapest,
	}, true
}

// buildRescheduleVariant walks the schedule forward from the JIT slot,
// shifting each displaceable order it meets by the minimum amount needed to
// make room, and aborts (no variant) if any shifted order would miss its
// own deadline or cannot be displaced at all.
func (a *CourierAgent) buildRescheduleVariant(order *domain.Order, now, jitTimeFrom, jitTimeTo, price float64) (Variant, bool) {
	var chain []shiftLink
	prevEnd := jitTimeTo
	seen := map[*domain.Order]bool{}

	pending := schedule.GetConflicts(a.entity, jitTimeFrom, prevEnd)
	for {
		var next *domain.Order
		for _, rec := range pending {
			if rec.Order == nil || seen[rec.Order] {
				continue
			}
			if next == nil || rec.StartTime < earliestStart(a.entity, next) {
				next = rec.Order
			}
		}
		if next == nil {
			break
		}
		seen[next] = true

		if !schedule.IsOrderDisplaceable(a.entity, next, now) {
			return Variant{}, false
		}

		records := schedule.GetAllOrderRecords(a.entity, next)
		var originalCost float64
		var originalParams map[string]any
		for _, r := range records {
			originalCost += r.Cost
			if r.RecType == domain.MoveWithLoad {
				originalParams = r.Params
			}
		}
		duration := next.TimeTo - next.TimeFrom
		if next.DeliveryData.IsAssigned() {
			duration = next.DeliveryData.TimeTo - next.DeliveryData.TimeFrom
		}

		newStart := prevEnd
		newEnd := newStart + duration
		if newEnd > next.TimeTo+1e-7 {
			return Variant{}, false
		}

		chain = append(chain, shiftLink{
			Order: next, NewStart: newStart, NewEnd: newEnd,
			OriginalCost: originalCost, OriginalParams: originalParams,
		})
		prevEnd = newEnd

		pending = schedule.GetConflicts(a.entity, newStart, newEnd)
	}

	if len(chain) == 0 {
		return Variant{}, false
	}
	return Variant{
		Courier: a.entity, Order: order, Kind: variantReschedule,
		TimeFrom: jitTimeFrom, TimeTo: jitTimeTo, Price: price,
		ShiftChain: chain,
	}, true
}

func earliestStart(c *domain.Courier, order *domain.Order) float64 {
	records := schedule.GetAllOrderRecords(c, order)
	if len(records) == 0 {
		return 0
	}
	start := records[0].StartTime
	for _, r := range records[1:] {
		if r.StartTime < start {
			start = r.StartTime
		}
	}
	return start
}

func uniqueOrders(items []domain.ScheduleItem) []*domain.Order {
	seen := map[*domain.Order]bool{}
	var result []*domain.Order
	for _, it := range items {
		if it.Order == nil || seen[it.Order] {
			continue
		}
		seen[it.Order] = true
		result = append(result, it.Order)
	}
	return result
}

func nonZeroSpeed(speed float64) float64 {
	if speed == 0 {
		return 1
	}
	return speed
}
