// Package simulator runs the tick-driven loop that drives a scripted
// scenario to completion: dispatch scripted events, tick every agent, wait
// for the negotiation cascade to settle, report, repeat.
package simulator

import (
	"fmt"
	"sync/atomic"

	"github.com/dustin/go-humanize"

	"eve-dispatch/internal/config"
	"eve-dispatch/internal/dispatcher"
	"eve-dispatch/internal/domain"
	"eve-dispatch/internal/logger"
	"eve-dispatch/internal/messaging"
	"eve-dispatch/internal/scene"
	"eve-dispatch/internal/store"
)

// Callback receives a Stats snapshot once per completed tick.
type Callback func(Stats)

// Stats is the per-tick progress report spec.md §4.H's loop invokes its
// callback with.
type Stats struct {
	Time        float64
	TickCounter int
	TickSize    float64
}

// Simulator owns one run: a Scene, a Script of timed events, and the
// Dispatcher that turns those events into live agents.
type Simulator struct {
	script     *scene.Script
	scene      *scene.Scene
	substrate  *messaging.Substrate
	dispatcher *dispatcher.Dispatcher
	cfg        *config.Config
	store      *store.Store

	tickCounter int
	callback    Callback
	stopped     atomic.Bool
}

// New returns a Simulator ready to Run script under cfg. A nil cfg uses
// config.Default(). st is optional: when non-nil, Run persists every
// courier's final schedule and a per-order commit summary into it once the
// run completes.
func New(script *scene.Script, cfg *config.Config, st *store.Store, callback Callback) *Simulator {
	if cfg == nil {
		cfg = config.Default()
	}
	sc := scene.New()
	sub := messaging.NewSubstrate(cfg.MailboxSize)
	return &Simulator{
		script:     script,
		scene:      sc,
		substrate:  sub,
		dispatcher: dispatcher.New(sc, sub, cfg),
		cfg:        cfg,
		store:      st,
		callback:   callback,
	}
}

// Scene exposes the run's scene, mainly so a host can inspect couriers'
// final schedules after Run returns.
func (s *Simulator) Scene() *scene.Scene { return s.scene }

// Dispatcher exposes the run's dispatcher, mainly for a host that wants to
// inject ad hoc entities outside the script.
func (s *Simulator) Dispatcher() *dispatcher.Dispatcher { return s.dispatcher }

// Stop requests that Run return early, after finishing whatever tick is
// currently in flight. Safe to call from another goroutine (e.g. a signal
// handler).
func (s *Simulator) Stop() {
	s.stopped.Store(true)
}

// Run drives the simulation from time 0 until the configured TimeStop (or
// until Stop is called), exactly per spec.md §4.H's loop.
func (s *Simulator) Run() {
	logger.Section("simulation run")
	logger.Stats("tick size", s.cfg.TickSize)
	logger.Stats("time stop", s.cfg.TimeStop)

	for s.scene.Time() <= s.cfg.TimeStop && !s.stopped.Load() {
		start := s.scene.Time()
		end := start + s.cfg.TickSize
		events := s.script.EventsDuring(start, end)

		if err := s.scene.Advance(end); err != nil {
			logger.Error("simulator", fmt.Sprintf("clock advance failed: %v", err))
			return
		}

		s.tick(events)
	}

	logger.Section("run complete")
	s.summarize()
	s.persist()
}

// persist writes every courier's final schedule and a commit summary for
// every order into the run's store, if one was supplied. Failures are
// logged, not fatal: the in-memory run result stands regardless.
func (s *Simulator) persist() {
	if s.store == nil {
		return
	}
	for _, c := range s.scene.Couriers() {
		for _, item := range c.Schedule {
			if err := s.store.RecordScheduleItem(c.Name, item); err != nil {
				logger.Error("store", fmt.Sprintf("record schedule item for %s: %v", c.Name, err))
			}
		}
	}
	for _, o := range s.scene.Orders() {
		detail := "unassigned"
		if o.DeliveryData.IsAssigned() {
			detail = fmt.Sprintf("committed to %s at price %v", o.DeliveryData.Courier.Name, o.DeliveryData.Price)
		}
		if err := s.store.RecordEvent(s.scene.Time(), "final_state", fmt.Sprintf("%s: %s", o.Name, detail)); err != nil {
			logger.Error("store", fmt.Sprintf("record final state for %s: %v", o.Name, err))
		}
	}
}

// tick dispatches one tick's worth of scripted events, ticks every agent,
// and waits for the resulting negotiation cascade to quiesce before
// reporting progress.
func (s *Simulator) tick(events []scene.ScriptEvent) {
	for _, event := range events {
		s.dispatchEvent(event)
	}

	s.dispatcher.TickAgents()
	s.substrate.Quiesce()

	if s.callback != nil {
		s.callback(Stats{Time: s.scene.Time(), TickCounter: s.tickCounter, TickSize: s.cfg.TickSize})
	}
	s.tickCounter++
}

func (s *Simulator) dispatchEvent(event scene.ScriptEvent) {
	switch event.Type {
	case scene.NewCourier:
		logger.Info("simulator", fmt.Sprintf("new courier: %s", event.CourierSpec))
		s.dispatcher.AddCourier(event.CourierSpec)
	case scene.NewOrder:
		logger.Info("simulator", fmt.Sprintf("new order: %s", event.OrderSpec))
		s.dispatcher.AddOrder(event.OrderSpec)
	case scene.RemoveOrder:
		logger.Info("simulator", fmt.Sprintf("removing order: %s", event.Name))
		s.dispatcher.RemoveOrder(event.Name)
	case scene.DeletedCourier:
		logger.Info("simulator", fmt.Sprintf("removing courier: %s", event.Name))
		s.dispatcher.RemoveCourier(event.Name)
	default:
		logger.Warn("simulator", fmt.Sprintf("unrecognized event type: %s", event.Type))
	}
}

// summarize prints the run's headline numbers: tick count, total messages
// exchanged, and how many orders ended up committed.
func (s *Simulator) summarize() {
	logger.Stats("ticks run", humanize.Comma(int64(s.tickCounter)))
	logger.Stats("messages exchanged", humanize.Comma(s.scene.MessageCount()))

	orders := s.scene.Orders()
	assigned := 0
	var totalPrice float64
	for _, o := range orders {
		if o.DeliveryData.IsAssigned() {
			assigned++
			totalPrice += o.DeliveryData.Price
		}
	}
	logger.Stats("orders committed", fmt.Sprintf("%d/%d", assigned, len(orders)))
	logger.Stats("total committed price", humanize.FormatFloat("#,###.##", totalPrice))
}

// AllScheduleRecords flattens every live courier's schedule into one slice,
// mirroring the teacher original's get_all_schedule_records.
func AllScheduleRecords(sc *scene.Scene) []domain.ScheduleItem {
	var all []domain.ScheduleItem
	for _, c := range sc.Couriers() {
		all = append(all, c.Schedule...)
	}
	return all
}
