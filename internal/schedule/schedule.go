// Package schedule implements the courier schedule engine: the set of pure
// and mutating operations that insert, query, repair, and remove timed
// movement records on a domain.Courier's timeline.
//
// All operations here are single-courier and assume the caller already
// holds whatever exclusivity the courier's agent provides (see
// internal/agents and internal/messaging) -- nothing in this package is
// goroutine-safe on its own.
package schedule

import (
	"errors"
	"math"
	"sort"

	"eve-dispatch/internal/domain"
	"eve-dispatch/internal/geometry"
)

// epsilon is the tolerance used throughout for float64 time and distance
// comparisons, matching the negotiation protocol's own tolerance.
const epsilon = 1e-7

// ErrAmbiguousTime is returned by PointAtTime when the requested time falls
// strictly inside an active (non-zero-duration) schedule item, so no single
// point answers the query.
var ErrAmbiguousTime = errors.New("schedule: time falls inside an active item")

func isIdle(rt domain.RecordType) bool {
	return rt == domain.Idle || rt == domain.IdleWithLoad
}

func sortSchedule(c *domain.Courier) {
	sort.SliceStable(c.Schedule, func(i, j int) bool {
		return c.Schedule[i].StartTime < c.Schedule[j].StartTime
	})
}

func cloneParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	clone := make(map[string]any, len(params))
	for k, v := range params {
		clone[k] = v
	}
	return clone
}

// DischargeRate returns the battery discharge rate (charge units per time
// unit) for the courier while carrying order. A nil order means the courier
// is flying empty.
func DischargeRate(c *domain.Courier, order *domain.Order) float64 {
	if order == nil {
		return c.FlightDischarge
	}
	loadTerm := order.Mass*c.LoadDischargeA*order.Mass*c.LoadDischargeA + order.Mass*c.LoadDischargeB
	return loadTerm + c.FlightDischarge
}

// ConsumptionByTime returns the battery consumed by duration time units of
// flight carrying order (nil for empty flight).
func ConsumptionByTime(c *domain.Courier, duration float64, order *domain.Order) float64 {
	if duration <= 0 {
		return 0
	}
	return duration * DischargeRate(c, order)
}

// ConsumptionByDistance returns the battery consumed covering distance at
// the courier's cruise speed, carrying order (nil for empty flight).
func ConsumptionByDistance(c *domain.Courier, distance float64, order *domain.Order) float64 {
	if c.Speed == 0 {
		return 0
	}
	return ConsumptionByTime(c, distance/c.Speed, order)
}

// LastPoint returns the point new work departs from: the destination of
// the courier's last productive move. A trailing MoveToCharge is always
// synthetic -- AutoAddCharge regenerates it on every mutation -- so it is
// ignored here and the point before it is reported instead; the charge leg
// itself is re-derived once the new order has actually been inserted.
func LastPoint(c *domain.Courier) geometry.Point {
	if len(c.Schedule) == 0 {
		return c.InitPoint
	}
	last := c.Schedule[len(c.Schedule)-1]
	if last.IsMoveToCharge() {
		if len(c.Schedule) >= 2 {
			return c.Schedule[len(c.Schedule)-2].PointTo
		}
		return c.InitPoint
	}
	return last.PointTo
}

// LastTime returns the time at which the courier becomes free again. When
// considerCharge is false and the schedule's final item is a MoveToCharge,
// the charge leg is ignored and the time just before it (when the courier
// finished its last productive work) is returned instead -- this is the
// time new work may be committed from, since a trailing charge is always
// regenerated by AutoAddCharge.
func LastTime(c *domain.Courier, considerCharge bool) float64 {
	if len(c.Schedule) == 0 {
		return 0
	}
	last := c.Schedule[len(c.Schedule)-1]
	if !considerCharge && last.IsMoveToCharge() {
		if len(c.Schedule) >= 2 {
			return c.Schedule[len(c.Schedule)-2].EndTime
		}
		return 0
	}
	return last.EndTime
}

// GetConflicts returns every schedule item whose [start, end) interval
// overlaps [start, end), excluding idle records (Idle and IdleWithLoad
// never conflict with anything) and excluding zero-length intervals on
// either side.
func GetConflicts(c *domain.Courier, start, end float64) []domain.ScheduleItem {
	var result []domain.ScheduleItem
	for _, item := range c.Schedule {
		if isIdle(item.RecType) {
			continue
		}
		if intervalsOverlap(item.StartTime, item.EndTime, start, end) {
			result = append(result, item)
		}
	}
	return result
}

func intervalsOverlap(aStart, aEnd, bStart, bEnd float64) bool {
	if aEnd-aStart <= epsilon || bEnd-bStart <= epsilon {
		return false
	}
	return aStart < bEnd-epsilon && bStart < aEnd-epsilon
}

// GetAllOrderRecords returns every schedule item belonging to order, in
// schedule order.
func GetAllOrderRecords(c *domain.Courier, order *domain.Order) []domain.ScheduleItem {
	var result []domain.ScheduleItem
	for _, item := range c.Schedule {
		if item.Order == order {
			result = append(result, item)
		}
	}
	return result
}

// ChargeAtTime walks the schedule from a full battery at InitPoint/time
// zero and reports the charge level at time t. While the courier is
// logically at base (no productive move has started yet, or the previous
// leg returned it to base) charge rises at ChargeVelocity between records,
// capped at Capacity; otherwise idle time between records still drains the
// battery at the empty-flight rate. Floored at zero. Only records that have
// finished by t are counted: when t falls inside a record or a gap, the
// level at the end of the last finished record is reported.
func ChargeAtTime(c *domain.Courier, t float64) float64 {
	charge := c.Capacity
	lastPoint := c.InitPoint
	lastTime := 0.0

	for _, rec := range c.Schedule {
		if rec.StartTime <= t && t < rec.EndTime {
			return charge
		}
		if rec.StartTime > t {
			return charge
		}

		if lastPoint.Equal(c.InitPoint) {
			charge += c.ChargeVelocity * (rec.StartTime - lastTime)
			if charge > c.Capacity {
				charge = c.Capacity
			}
		} else {
			charge -= ConsumptionByTime(c, rec.StartTime-lastTime, nil)
		}

		var order *domain.Order
		if rec.RecType == domain.MoveWithLoad {
			order = rec.Order
		}
		charge -= ConsumptionByDistance(c, geometry.Distance(rec.PointFrom, rec.PointTo), order)
		if charge < 0 {
			charge = 0
		}

		lastPoint = rec.PointTo
		lastTime = rec.EndTime
	}
	return charge
}

// PointAtTime returns the point the courier occupies at time t. It returns
// ErrAmbiguousTime if t falls strictly inside an active schedule item,
// since the courier is then mid-transit and has no single resting point.
func PointAtTime(c *domain.Courier, t float64) (geometry.Point, error) {
	previous := c.InitPoint
	for _, rec := range c.Schedule {
		if rec.StartTime <= t && t < rec.EndTime {
			return geometry.Point{}, ErrAmbiguousTime
		}
		if t < rec.StartTime {
			return previous, nil
		}
		previous = rec.PointTo
	}
	return previous, nil
}

// AddOrderToSchedule attempts to atomically insert order's pickup and
// delivery legs starting at startTime and finishing at endTime for cost,
// with params attached to the created items for later inspection. It
// succeeds only if:
//
//  1. startTime is not before the courier's current LastTime.
//  2. endTime equals startTime + distance(lastPoint, pickup)/speed +
//     distance(pickup, delivery)/speed, within epsilon.
//  3. The insertion window has no conflicts. A trailing MoveToCharge is not
//     counted, since AutoAddCharge regenerates it after the insertion.
//
// On success it appends a MoveToPickup (cost 0), a MoveWithLoad (cost),
// and -- if a positive gap remains between the natural arrival and
// endTime -- an IdleWithLoad, then re-derives all automatic charging legs
// via AutoAddCharge. On failure, the schedule is left untouched.
func AddOrderToSchedule(c *domain.Courier, order *domain.Order, startTime, endTime, cost float64, params map[string]any) bool {
	if startTime-LastTime(c, false) < -epsilon {
		return false
	}
	if c.Speed <= 0 {
		return false
	}

	lastPoint := LastPoint(c)
	distanceToPickup := geometry.Distance(lastPoint, order.PickupPoint)
	distanceWithOrder := geometry.Distance(order.PickupPoint, order.DeliveryPoint)
	timeToPickup := distanceToPickup / c.Speed
	timeWithOrder := distanceWithOrder / c.Speed
	naturalFinish := startTime + timeToPickup + timeWithOrder

	if math.Abs(naturalFinish-endTime) > epsilon {
		return false
	}
	trailingChargeStart := math.Inf(1)
	if n := len(c.Schedule); n > 0 && c.Schedule[n-1].IsMoveToCharge() {
		trailingChargeStart = c.Schedule[n-1].StartTime
	}
	for _, item := range GetConflicts(c, startTime, endTime) {
		if item.IsMoveToCharge() && item.StartTime >= trailingChargeStart {
			continue
		}
		return false
	}

	pickupEnd := startTime + timeToPickup
	moveEnd := pickupEnd + timeWithOrder

	var newItems []domain.ScheduleItem
	if timeToPickup > epsilon {
		newItems = append(newItems, domain.ScheduleItem{
			Order: order, RecType: domain.MoveToPickup,
			StartTime: startTime, EndTime: pickupEnd,
			PointFrom: lastPoint, PointTo: order.PickupPoint,
			Cost: 0, Params: cloneParams(params),
		})
	}
	newItems = append(newItems, domain.ScheduleItem{
		Order: order, RecType: domain.MoveWithLoad,
		StartTime: pickupEnd, EndTime: moveEnd,
		PointFrom: order.PickupPoint, PointTo: order.DeliveryPoint,
		Cost: cost, Params: cloneParams(params),
	})
	if endTime-moveEnd > epsilon {
		newItems = append(newItems, domain.ScheduleItem{
			Order: order, RecType: domain.IdleWithLoad,
			StartTime: moveEnd, EndTime: endTime,
			PointFrom: order.DeliveryPoint, PointTo: order.DeliveryPoint,
			Cost: 0, Params: cloneParams(params),
		})
	}

	c.Schedule = append(c.Schedule, newItems...)
	sortSchedule(c)
	AutoAddCharge(c)
	return true
}

// deliveryBlock is the durable, charge-independent unit of committed work:
// one order's MoveWithLoad leg plus its optional trailing IdleWithLoad.
// Every MoveToPickup and MoveToCharge leg is derived from a sequence of
// blocks fresh on every AutoAddCharge call, which is what makes repeated
// calls idempotent.
type deliveryBlock struct {
	order     *domain.Order
	moveStart float64
	moveEnd   float64
	idleEnd   float64
	pickup    geometry.Point
	delivery  geometry.Point
	cost      float64
	params    map[string]any
}

func extractBlocks(c *domain.Courier) []deliveryBlock {
	idleByOrder := make(map[*domain.Order]domain.ScheduleItem)
	var moves []domain.ScheduleItem
	for _, item := range c.Schedule {
		switch item.RecType {
		case domain.MoveWithLoad:
			moves = append(moves, item)
		case domain.IdleWithLoad:
			idleByOrder[item.Order] = item
		}
	}
	sort.SliceStable(moves, func(i, j int) bool { return moves[i].StartTime < moves[j].StartTime })

	blocks := make([]deliveryBlock, 0, len(moves))
	for _, m := range moves {
		b := deliveryBlock{
			order: m.Order, moveStart: m.StartTime, moveEnd: m.EndTime,
			idleEnd: m.EndTime, pickup: m.PointFrom, delivery: m.PointTo,
			cost: m.Cost, params: m.Params,
		}
		if idle, ok := idleByOrder[m.Order]; ok {
			b.idleEnd = idle.EndTime
		}
		blocks = append(blocks, b)
	}
	return blocks
}

// AutoAddCharge re-derives every automatic MoveToPickup and MoveToCharge
// leg on the courier's schedule from its durable delivery blocks.
//
// For each block, if it is the last one, a MoveToCharge back to InitPoint
// is appended unconditionally (when the trip has positive length). For any
// other block, a detour to base is inserted between it and the next block
// when the charge gained during the resulting pause exceeds the charge
// spent making the detour:
//
//	pause                    = next.moveStart - thisBlockEnd
//	durationToBase           = distance(thisBlockEnd point, base) / speed
//	durationBaseToNextArrival = distance(base, next.delivery) / speed
//	gain = ChargeVelocity * (pause - durationToBase - durationBaseToNextArrival)
//	cost = consumption for (durationToBase + durationBaseToNextArrival) of empty flight
//
// durationBaseToNextArrival intentionally measures to the next block's
// delivery point rather than its pickup point: it is a conservative
// (over-)estimate of the side trip's energy cost, not the geometry of the
// leg actually inserted. The inserted MoveToPickup leg itself always
// targets the next block's real pickup point, preserving point-to-point
// continuity.
//
// Returns the net change in total charging cost (can be negative).
func AutoAddCharge(c *domain.Courier) float64 {
	oldChargeCost := 0.0
	for _, item := range c.Schedule {
		if item.RecType == domain.MoveToCharge || (item.RecType == domain.MoveToPickup && item.Cost != 0) {
			oldChargeCost += item.Cost
		}
	}

	blocks := extractBlocks(c)
	var rebuilt []domain.ScheduleItem
	newChargeCost := 0.0
	currentPoint := c.InitPoint
	viaCharge := false

	for i, blk := range blocks {
		timeToPickup := geometry.Distance(currentPoint, blk.pickup) / nonZero(c.Speed)
		pickupStart := blk.moveStart - timeToPickup
		if timeToPickup > epsilon {
			pickupCost := 0.0
			if viaCharge {
				// A pickup leg departing straight from a just-inserted
				// charge detour is itself billed at the courier's rate,
				// matching how the charge-repair step prices the leg it
				// regenerates; an ordinary continuous-flight pickup leg
				// stays free.
				pickupCost = c.Rate * timeToPickup
			}
			rebuilt = append(rebuilt, domain.ScheduleItem{
				Order: blk.order, RecType: domain.MoveToPickup,
				StartTime: pickupStart, EndTime: blk.moveStart,
				PointFrom: currentPoint, PointTo: blk.pickup,
				Cost: pickupCost, Params: cloneParams(blk.params),
			})
			newChargeCost += pickupCost
		}
		viaCharge = false
		rebuilt = append(rebuilt, domain.ScheduleItem{
			Order: blk.order, RecType: domain.MoveWithLoad,
			StartTime: blk.moveStart, EndTime: blk.moveEnd,
			PointFrom: blk.pickup, PointTo: blk.delivery,
			Cost: blk.cost, Params: cloneParams(blk.params),
		})
		if blk.idleEnd-blk.moveEnd > epsilon {
			rebuilt = append(rebuilt, domain.ScheduleItem{
				Order: blk.order, RecType: domain.IdleWithLoad,
				StartTime: blk.moveEnd, EndTime: blk.idleEnd,
				PointFrom: blk.delivery, PointTo: blk.delivery,
				Cost: 0, Params: cloneParams(blk.params),
			})
		}
		currentPoint = blk.delivery

		if i == len(blocks)-1 {
			duration := geometry.Distance(currentPoint, c.InitPoint) / nonZero(c.Speed)
			if duration > epsilon {
				cost := c.Rate * duration
				rebuilt = append(rebuilt, domain.ScheduleItem{
					RecType: domain.MoveToCharge,
					StartTime: blk.idleEnd, EndTime: blk.idleEnd + duration,
					PointFrom: currentPoint, PointTo: c.InitPoint,
					Cost: cost,
				})
				newChargeCost += cost
			}
			continue
		}

		next := blocks[i+1]
		pause := next.moveStart - blk.idleEnd
		durationToBase := geometry.Distance(currentPoint, c.InitPoint) / nonZero(c.Speed)
		durationBaseToNextArrival := geometry.Distance(c.InitPoint, next.delivery) / nonZero(c.Speed)
		lostCharge := ConsumptionByTime(c, durationToBase+durationBaseToNextArrival, nil)
		gainedCharge := c.ChargeVelocity * (pause - durationToBase - durationBaseToNextArrival)

		if gainedCharge > lostCharge && durationToBase > epsilon {
			cost := c.Rate * durationToBase
			rebuilt = append(rebuilt, domain.ScheduleItem{
				RecType: domain.MoveToCharge,
				StartTime: blk.idleEnd, EndTime: blk.idleEnd + durationToBase,
				PointFrom: currentPoint, PointTo: c.InitPoint,
				Cost: cost,
			})
			newChargeCost += cost
			currentPoint = c.InitPoint
			viaCharge = true
		}
	}

	c.Schedule = rebuilt
	sortSchedule(c)
	return newChargeCost - oldChargeCost
}

func nonZero(speed float64) float64 {
	if speed == 0 {
		return 1
	}
	return speed
}

// IsOrderDisplaceable reports whether order may still be evicted from the
// courier's schedule as of now: true whenever now is strictly before the
// earliest start time across all of the order's schedule records (i.e.
// the courier has not yet begun moving towards it).
func IsOrderDisplaceable(c *domain.Courier, order *domain.Order, now float64) bool {
	records := GetAllOrderRecords(c, order)
	if len(records) == 0 {
		return true
	}
	minStart := records[0].StartTime
	for _, r := range records[1:] {
		if r.StartTime < minStart {
			minStart = r.StartTime
		}
	}
	return now < minStart-epsilon
}

// DeleteOrder removes every schedule item belonging to order, re-derives
// charging legs via AutoAddCharge, and returns the net cost change: the
// order's own removed cost (always taken away) combined with whatever
// charging cost AutoAddCharge added or removed as a result.
func DeleteOrder(c *domain.Courier, order *domain.Order) float64 {
	var removedCost float64
	filtered := make([]domain.ScheduleItem, 0, len(c.Schedule))
	for _, item := range c.Schedule {
		if item.Order == order {
			removedCost += item.Cost
			continue
		}
		filtered = append(filtered, item)
	}
	c.Schedule = filtered
	chargeDelta := AutoAddCharge(c)
	return -removedCost + chargeDelta
}
