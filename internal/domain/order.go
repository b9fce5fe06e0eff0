package domain

import "eve-dispatch/internal/geometry"

// DeliveryData is an order's currently accepted assignment, or the
// null-assignment record when the order is unassigned.
type DeliveryData struct {
	Courier  *Courier
	Price    float64
	TimeFrom float64
	TimeTo   float64
}

// IsAssigned reports whether this DeliveryData represents a committed
// assignment rather than the null-assignment record.
func (d DeliveryData) IsAssigned() bool {
	return d.Courier != nil
}

// Order is an immutable delivery request plus its mutable current
// assignment state. Appearance time <= TimeFrom <= TimeTo is an invariant
// maintained by whoever constructs an Order.
type Order struct {
	Number      int64
	Name        string
	Mass        float64
	Volume      float64
	Price       float64
	PickupPoint geometry.Point
	DeliveryPoint geometry.Point

	// TimeFrom is the earliest pickup time, TimeTo the delivery deadline.
	TimeFrom float64
	TimeTo   float64

	OrderType           string
	AppearanceTime      float64
	IsUrgent            bool
	WaitResponseTimeout float64

	// DeliveryData holds the current accepted assignment, mutated only by
	// the order's own agent handler.
	DeliveryData DeliveryData

	// IsDeleting is set by the order's own agent when it handles its
	// ExitRequest, so concurrent entity lookups skip it.
	IsDeleting bool
}

// String renders the order for log lines.
func (o *Order) String() string {
	return "Order " + o.Name
}

// ClearAssignment resets DeliveryData to the null-assignment record.
func (o *Order) ClearAssignment() {
	o.DeliveryData = DeliveryData{}
}
