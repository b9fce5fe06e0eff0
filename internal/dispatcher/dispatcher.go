// Package dispatcher owns the reference book binding every live courier and
// order entity to its agent's mailbox address, and the lifecycle operations
// (spawn, tick, tear down) that keep the two in sync with the scene.
package dispatcher

import (
	"fmt"
	"sync"

	"eve-dispatch/internal/agents"
	"eve-dispatch/internal/config"
	"eve-dispatch/internal/domain"
	"eve-dispatch/internal/logger"
	"eve-dispatch/internal/messaging"
	"eve-dispatch/internal/scene"
)

// Dispatcher creates and tears down agents, and is the concrete
// agents.Directory every agent resolves peer addresses through.
type Dispatcher struct {
	scene     *scene.Scene
	substrate *messaging.Substrate
	weights   agents.Weights

	mu       sync.Mutex
	couriers map[*domain.Courier]*messaging.Address
	orders   map[*domain.Order]*messaging.Address
}

// New returns a Dispatcher wired to sc and running agents on sub, scoring
// variants with cfg's weights. A nil cfg falls back to agents.DefaultWeights.
func New(sc *scene.Scene, sub *messaging.Substrate, cfg *config.Config) *Dispatcher {
	weights := agents.DefaultWeights
	if cfg != nil {
		weights = agents.Weights{Finish: cfg.FinishWeight, Start: cfg.StartWeight, Price: cfg.PriceWeight}
	}
	return &Dispatcher{
		scene:     sc,
		substrate: sub,
		weights:   weights,
		couriers:  map[*domain.Courier]*messaging.Address{},
		orders:    map[*domain.Order]*messaging.Address{},
	}
}

// AddressForCourier implements agents.Directory.
func (d *Dispatcher) AddressForCourier(c *domain.Courier) *messaging.Address {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.couriers[c]
}

// AddressForOrder implements agents.Directory.
func (d *Dispatcher) AddressForOrder(o *domain.Order) *messaging.Address {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.orders[o]
}

func (d *Dispatcher) context(self *messaging.Address) agents.Context {
	return agents.Context{Scene: d.scene, Directory: d, Substrate: d.substrate, Self: self, Weights: d.weights}
}

// AddCourier registers courier with the scene, spawns its agent, and sends
// it the init message that kicks off its negotiation with existing orders.
func (d *Dispatcher) AddCourier(courier *domain.Courier) {
	var agent *agents.CourierAgent
	addr := d.substrate.Spawn(func(msg messaging.Message) { agent.Handle(msg) })
	agent = agents.NewCourierAgent(d.context(addr), courier)

	d.mu.Lock()
	d.couriers[courier] = addr
	d.mu.Unlock()

	d.scene.AddCourier(courier)
	logger.Info("dispatcher", fmt.Sprintf("spawned courier agent for %s", courier))
	d.substrate.Send(addr, messaging.Message{Type: messaging.InitMessage})
}

// AddOrder registers order with the scene, spawns its agent, and sends it
// the init message that starts price discovery.
func (d *Dispatcher) AddOrder(order *domain.Order) {
	var agent *agents.OrderAgent
	addr := d.substrate.Spawn(func(msg messaging.Message) { agent.Handle(msg) })
	agent = agents.NewOrderAgent(d.context(addr), order)

	d.mu.Lock()
	d.orders[order] = addr
	d.mu.Unlock()

	d.scene.AddOrder(order)
	logger.Info("dispatcher", fmt.Sprintf("spawned order agent for %s", order))
	d.substrate.Send(addr, messaging.Message{Type: messaging.InitMessage})
}

// RemoveCourier tears down the named courier's agent: it is sent
// ExitRequest (which notifies every order of its disappearance) and dropped
// from both the reference book and the scene, so nothing can address or
// schedule it again.
func (d *Dispatcher) RemoveCourier(name string) bool {
	d.mu.Lock()
	var target *domain.Courier
	for c := range d.couriers {
		if c.Name == name {
			target = c
			break
		}
	}
	if target == nil {
		d.mu.Unlock()
		return false
	}
	addr := d.couriers[target]
	delete(d.couriers, target)
	d.mu.Unlock()

	// ExitRequest is left to the agent's own mailbox goroutine to process
	// (it flips IsDeleting and notifies every order); Stop is deliberately
	// not called here, since it would race that still-pending message --
	// Substrate.Quiesce's caller only needs the reference book entry gone
	// so nothing addresses this courier again, not its goroutine reaped.
	d.substrate.Send(addr, messaging.Message{Type: messaging.ExitRequest})
	d.scene.RemoveCourierByName(name)
	return true
}

// RemoveOrder tears down the named order's agent the same way RemoveCourier
// tears down a courier (no Stop; see RemoveCourier).
func (d *Dispatcher) RemoveOrder(name string) bool {
	d.mu.Lock()
	var target *domain.Order
	for o := range d.orders {
		if o.Name == name {
			target = o
			break
		}
	}
	if target == nil {
		d.mu.Unlock()
		return false
	}
	addr := d.orders[target]
	delete(d.orders, target)
	d.mu.Unlock()

	d.substrate.Send(addr, messaging.Message{Type: messaging.ExitRequest})
	d.scene.RemoveOrderByName(name)
	return true
}

// TickAgents sends every registered agent a reserved tick message.
func (d *Dispatcher) TickAgents() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, addr := range d.couriers {
		d.substrate.Send(addr, messaging.Message{Type: messaging.TickMessage})
	}
	for _, addr := range d.orders {
		d.substrate.Send(addr, messaging.Message{Type: messaging.TickMessage})
	}
}

// AgentCount reports how many courier and order agents are currently live.
func (d *Dispatcher) AgentCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.couriers) + len(d.orders)
}
