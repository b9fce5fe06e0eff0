// Package agents implements the two negotiating actors of the simulation:
// CourierAgent (quotes variants, commits atomically) and OrderAgent
// (collects quotes, scores them, commits to the best one). Both are plain
// Handler functions bound to an entity and a Context; all the concurrency
// and mailbox plumbing lives in internal/messaging.
package agents

import (
	"fmt"

	"eve-dispatch/internal/domain"
	"eve-dispatch/internal/logger"
	"eve-dispatch/internal/messaging"
	"eve-dispatch/internal/scene"
)

// Directory resolves the mailbox address bound to a given entity. It is
// implemented by internal/dispatcher, which owns the reference book; this
// package only ever consumes it, which keeps agents free of a dependency
// cycle on the package that constructs agents.
type Directory interface {
	AddressForCourier(c *domain.Courier) *messaging.Address
	AddressForOrder(o *domain.Order) *messaging.Address
}

// Context is the shared environment an agent needs to act: the scene it
// queries, the directory it resolves peer addresses through, the substrate
// it sends on, and its own address (so it can stamp outgoing messages as
// the sender and so couriers/orders can reply to it).
type Context struct {
	Scene     *scene.Scene
	Directory Directory
	Substrate *messaging.Substrate
	Self      *messaging.Address

	// Weights are the variant-scoring coefficients. The zero Weights is
	// treated as "unset" and falls back to DefaultWeights so tests that
	// build a Context by hand don't need to populate it.
	Weights Weights
}

// weights returns ctx.Weights, or DefaultWeights if it was left at its
// zero value.
func (ctx Context) weights() Weights {
	if ctx.Weights == (Weights{}) {
		return DefaultWeights
	}
	return ctx.Weights
}

// send is a small wrapper that stamps the context's own address as sender
// and counts the message against the scene's lifetime counter, mirroring
// the teacher agent base's send() override.
func (ctx Context) send(dst *messaging.Address, msgType messaging.Type, body any) {
	if dst == nil {
		return
	}
	ctx.Scene.CountMessage()
	ctx.Substrate.Send(dst, messaging.Message{Type: msgType, Body: body, Sender: ctx.Self})
}

func logf(tag, format string, args ...any) {
	logger.Info(tag, fmt.Sprintf(format, args...))
}

// logErrf logs a malformed-message or handler-error condition at error
// level, per §7: such messages are logged and dropped, never allowed to
// crash the agent.
func logErrf(tag, format string, args ...any) {
	logger.Error(tag, fmt.Sprintf(format, args...))
}
