package domain

import "eve-dispatch/internal/geometry"

// Courier is an immutable delivery resource plus its mutable schedule.
type Courier struct {
	Number int64
	Name   string

	// InitPoint is both the courier's starting position and its charging base.
	InitPoint geometry.Point

	DeploymentCost float64
	// Rate is the per-time-unit work cost used to price moves and charging.
	Rate  float64
	Speed float64

	MaxMass float64
	// Types is the set of order-type tags this courier will accept. An
	// empty slice means "accepts everything" per the input schema's
	// optional types field.
	Types []string

	Capacity        float64
	MinCharge       float64
	ChargeVelocity  float64
	FlightDischarge float64
	LoadDischargeA  float64
	LoadDischargeB  float64
	InitTime        float64

	// Schedule is the ordered, non-overlapping list of timed movement and
	// charging records. Mutated only inside this courier's own agent
	// handlers (see internal/schedule and internal/agents).
	Schedule []ScheduleItem

	// IsDeleting is set by the courier's own agent when it handles its
	// ExitRequest, so concurrent entity lookups skip it.
	IsDeleting bool
}

// String renders the courier for log lines.
func (c *Courier) String() string {
	return "Courier " + c.Name
}

// AcceptsOrderType reports whether this courier will carry the given order
// type. An empty Types list accepts any order type.
func (c *Courier) AcceptsOrderType(orderType string) bool {
	if len(c.Types) == 0 {
		return true
	}
	for _, t := range c.Types {
		if t == orderType {
			return true
		}
	}
	return false
}

// SnapshotSchedule returns a deep-enough copy of the current schedule,
// suitable for restoring via RestoreSchedule if a planning attempt must be
// rolled back atomically.
func (c *Courier) SnapshotSchedule() []ScheduleItem {
	snap := make([]ScheduleItem, len(c.Schedule))
	for i, item := range c.Schedule {
		snap[i] = item.Clone()
	}
	return snap
}

// RestoreSchedule replaces the courier's schedule with a previously taken
// snapshot.
func (c *Courier) RestoreSchedule(snapshot []ScheduleItem) {
	c.Schedule = snapshot
}
