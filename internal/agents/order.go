package agents

import (
	"eve-dispatch/internal/domain"
	"eve-dispatch/internal/messaging"
)

// OrderAgent broadcasts price requests, collects variants from every
// matching courier, scores them, and commits to the best one. It re-plans
// whenever its assignment is evicted or a new courier of a matching type
// appears.
type OrderAgent struct {
	ctx    Context
	entity *domain.Order

	unchecked    map[string]bool
	variants     []Variant
	receiveStart float64
	awaiting     bool
}

// NewOrderAgent binds an OrderAgent to order.
func NewOrderAgent(ctx Context, order *domain.Order) *OrderAgent {
	return &OrderAgent{ctx: ctx, entity: order, unchecked: map[string]bool{}}
}

// Handle dispatches one message to the appropriate handler.
func (a *OrderAgent) Handle(msg messaging.Message) {
	switch msg.Type {
	case messaging.InitMessage:
		a.sendParamsRequest()
	case messaging.PriceResponse:
		a.handlePriceResponse(msg)
	case messaging.PlanningResponse:
		a.handlePlanningResponse(msg)
	case messaging.RemoveOrder:
		a.handleRemove()
	case messaging.NewCourier:
		a.handleNewCourier()
	case messaging.DeletedCourier:
		a.handleDeletedCourier(msg)
	case messaging.RescheduleNotice:
		a.handleRescheduleNotice(msg)
	case messaging.TickMessage:
		a.checkTimeout()
	case messaging.ExitRequest:
		a.entity.IsDeleting = true
	}
}

func (a *OrderAgent) handleRemove() {
	logf("order", "%s evicted, clearing assignment and re-negotiating", a.entity)
	a.entity.ClearAssignment()
	a.variants = nil
	a.sendParamsRequest()
}

func (a *OrderAgent) handleNewCourier() {
	if a.entity.DeliveryData.IsAssigned() {
		return
	}
	a.variants = nil
	a.sendParamsRequest()
}

func (a *OrderAgent) handleDeletedCourier(msg messaging.Message) {
	courier, ok := msg.Body.(*domain.Courier)
	if !ok {
		logErrf("order", "%s dropped malformed deleted-courier notice: %+v", a.entity, msg)
		return
	}
	if a.entity.DeliveryData.Courier != courier {
		return
	}
	a.handleRemove()
}

// handleRescheduleNotice applies a cascade reschedule's new window in
// place. Unlike handleRemove this never clears the assignment or
// re-enters negotiation: the order is still served by the same courier at
// the same price, just at a different time.
func (a *OrderAgent) handleRescheduleNotice(msg messaging.Message) {
	notice, ok := msg.Body.(rescheduleNotice)
	if !ok {
		logErrf("order", "%s dropped malformed reschedule notice: %+v", a.entity, msg)
		return
	}
	a.entity.DeliveryData.TimeFrom = notice.TimeFrom
	a.entity.DeliveryData.TimeTo = notice.TimeTo
	logf("order", "%s shifted to [%v, %v) by cascade reschedule", a.entity, notice.TimeFrom, notice.TimeTo)
}

func (a *OrderAgent) handlePlanningResponse(msg messaging.Message) {
	result, ok := msg.Body.(planningResult)
	if !ok {
		logErrf("order", "%s dropped malformed planning response: %+v", a.entity, msg)
		return
	}
	if result.Success {
		a.entity.DeliveryData = domain.DeliveryData{
			Courier:  result.Variant.Courier,
			Price:    result.Variant.Price,
			TimeFrom: result.Variant.TimeFrom,
			TimeTo:   result.Variant.TimeTo,
		}
		logf("order", "%s committed to %s", a.entity, result.Variant.Courier)
		return
	}

	a.dropVariant(result.Variant)
	if len(a.variants) == 0 {
		a.sendParamsRequest()
		return
	}
	a.runPlanning()
}

func (a *OrderAgent) dropVariant(stale Variant) {
	for i, v := range a.variants {
		if v.Courier == stale.Courier && v.Kind == stale.Kind {
			a.variants = append(a.variants[:i], a.variants[i+1:]...)
			return
		}
	}
}

func (a *OrderAgent) sendParamsRequest() {
	a.unchecked = map[string]bool{}
	couriers := a.ctx.Scene.CouriersAcceptingType(a.entity.OrderType)
	for _, c := range couriers {
		addr := a.ctx.Directory.AddressForCourier(c)
		if addr == nil {
			continue
		}
		a.ctx.send(addr, messaging.PriceRequest, a.entity)
		a.unchecked[addr.ID()] = true
	}
	a.receiveStart = a.ctx.Scene.Time()
	a.awaiting = len(a.unchecked) > 0
	if !a.awaiting {
		a.runPlanning()
	}
}

func (a *OrderAgent) handlePriceResponse(msg messaging.Message) {
	if !a.awaiting {
		// Stale quote: we already committed or moved on. Drop it per the
		// FIFO-per-pair ordering guarantee that lets responses outlive their
		// relevance.
		return
	}
	offered, ok := msg.Body.([]Variant)
	if !ok {
		logErrf("order", "%s dropped malformed price response: %+v", a.entity, msg)
		return
	}
	a.variants = append(a.variants, offered...)
	if msg.Sender != nil {
		delete(a.unchecked, msg.Sender.ID())
	}
	if len(a.unchecked) == 0 {
		a.awaiting = false
		a.runPlanning()
	}
}

// checkTimeout proceeds with whatever variants have arrived once
// wait_response_timeout has elapsed since the request went out, even if some
// couriers never answered.
func (a *OrderAgent) checkTimeout() {
	if !a.awaiting {
		return
	}
	if a.ctx.Scene.Time()-a.receiveStart < a.entity.WaitResponseTimeout {
		return
	}
	a.awaiting = false
	a.runPlanning()
}

func (a *OrderAgent) runPlanning() {
	if len(a.variants) == 0 {
		return
	}
	scoreVariants(a.variants, a.ctx.weights())
	chosen := a.variants[best(a.variants)]

	addr := a.ctx.Directory.AddressForCourier(chosen.Courier)
	a.ctx.send(addr, messaging.PlanningRequest, chosen)
}
