// Package messaging implements the actor substrate the simulator runs on:
// typed messages, per-agent single-threaded mailboxes, and a quiescence
// signal the simulator waits on between ticks.
//
// Every agent gets one mailbox goroutine that drains its channel strictly
// in arrival order -- the no-reentrancy invariant a courier or order agent
// relies on to mutate its own entity without a lock. Delivery between any
// given sender/receiver pair preserves FIFO order because sends from one
// goroutine to one channel are themselves ordered by the channel.
package messaging

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"eve-dispatch/internal/logger"
)

// Type identifies the kind of payload a Message carries.
type Type string

const (
	InitMessage       Type = "init"
	PriceRequest      Type = "price_request"
	PriceResponse     Type = "price_response"
	PlanningRequest   Type = "planning_request"
	PlanningResponse  Type = "planning_response"
	RemoveOrder       Type = "remove_order"
	NewCourier        Type = "new_courier"
	DeletedCourier    Type = "deleted_courier"
	TickMessage       Type = "tick"
	ExitRequest       Type = "exit_request"

	// RescheduleNotice tells an order its committed window moved as part of
	// a cascade reschedule -- unlike RemoveOrder it is not an eviction, so
	// the order agent updates its assignment in place instead of
	// re-entering negotiation. The legacy source's protocol has no
	// equivalent message because it never implements cascade reschedule.
	RescheduleNotice Type = "reschedule_notice"
)

// Message is the unit of communication between agents.
type Message struct {
	ID     string
	Type   Type
	Body   any
	Sender *Address
}

// Address is a handle to an agent's mailbox. The zero Address is invalid;
// use Substrate.Spawn to create one.
type Address struct {
	id     string
	inbox  chan Message
	closed chan struct{}
}

// ID returns the address's stable identifier, used for reference-book
// lookups and log lines.
func (a *Address) ID() string {
	if a == nil {
		return ""
	}
	return a.id
}

// Handler processes one message delivered to an agent's mailbox. It is
// invoked only from that agent's single mailbox goroutine, so handlers may
// freely mutate state owned by the agent without additional locking.
type Handler func(msg Message)

// Substrate owns every agent's mailbox goroutine and the WaitGroup used to
// detect quiescence: the moment every mailbox has drained and no agent is
// mid-handler.
type Substrate struct {
	active      sync.WaitGroup
	mailboxSize int
}

// NewSubstrate returns a Substrate whose mailboxes buffer up to
// mailboxSize pending messages before Send blocks its caller. A size of 0
// means unbounded-ish (a generously large buffer), since no agent should
// ever be made to block the sender that dispatched a tick.
func NewSubstrate(mailboxSize int) *Substrate {
	if mailboxSize <= 0 {
		mailboxSize = 4096
	}
	return &Substrate{mailboxSize: mailboxSize}
}

// Spawn starts a new agent mailbox goroutine that calls handle for every
// message delivered to the returned Address, in arrival order, until
// Stop is called on that address.
//
// Each message is counted "in flight" on the substrate's WaitGroup from
// the moment Send enqueues it until handle returns for it, with no gap in
// between -- that is what makes Quiesce a reliable drain barrier rather
// than a racy approximation.
func (s *Substrate) Spawn(handle Handler) *Address {
	addr := &Address{
		id:     uuid.NewString(),
		inbox:  make(chan Message, s.mailboxSize),
		closed: make(chan struct{}),
	}
	go func() {
		for {
			select {
			case msg, ok := <-addr.inbox:
				if !ok {
					return
				}
				s.dispatch(addr, handle, msg)
			case <-addr.closed:
				// Drain whatever is still buffered so Quiesce never blocks
				// on a mailbox that was torn down mid-flight.
				for {
					select {
					case <-addr.inbox:
						s.active.Done()
					default:
						return
					}
				}
			}
		}
	}()
	return addr
}

// dispatch runs handle for msg, recovering from any panic the handler
// raises so one bad message or a handler bug never takes down an agent's
// mailbox goroutine -- the §7 invariant that handlers must not propagate
// exceptions out to the substrate. Mirrors agent_base.py's
// try/except around self.handlers[...](msg, sender).
func (s *Substrate) dispatch(addr *Address, handle Handler, msg Message) {
	defer s.active.Done()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("messaging", fmt.Sprintf("agent %s panicked handling %s: %v", addr.ID(), msg.Type, r))
		}
	}()
	handle(msg)
}

// Send delivers msg to dst's mailbox without blocking the caller on
// dst's processing; it only blocks if dst's mailbox buffer is full, which
// signals a runaway producer rather than ordinary backpressure.
func (s *Substrate) Send(dst *Address, msg Message) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	s.active.Add(1)
	select {
	case dst.inbox <- msg:
	case <-dst.closed:
		s.active.Done()
	}
}

// Stop closes dst's mailbox; its goroutine exits once any in-flight
// handler call finishes, draining (and discounting) anything still
// buffered.
func (s *Substrate) Stop(dst *Address) {
	close(dst.closed)
}

// Quiesce blocks until every mailbox is empty and no handler is
// currently executing -- the simulator's signal that a tick's cascade of
// negotiation messages has fully settled. It replaces a fixed sleep with
// an exact drain barrier.
func (s *Substrate) Quiesce() {
	s.active.Wait()
}
