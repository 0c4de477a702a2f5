// Package lifecycle is the order state machine. It decides which status
// changes are legal and makes sure the stock ledger runs exactly once for each
// change that concludes or reverses fulfillment.
package lifecycle

import (
	"errors"
	"fmt"

	"github.com/bestdog-pos/api/internal/domain"
	"github.com/bestdog-pos/api/internal/enum"
	"github.com/bestdog-pos/api/internal/inventory"
)

// Errors returned by Next and Machine.Fire.
var (
	ErrUnknownEvent      = errors.New("unknown event")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Transition is one row of the transition table.
type Transition struct {
	From  domain.Status  `json:"from"`
	Event domain.Event   `json:"event"`
	To    domain.Status  `json:"to"`
	Stock inventory.Sign `json:"stock,omitempty"` // 0 when the ledger is not involved
	Topic string         `json:"topic"`           // event type handed to hooks
}

// StockAffecting reports whether the transition moves stock.
func (t Transition) StockAffecting() bool { return t.Stock != 0 }

type key struct {
	from  domain.Status
	event domain.Event
}

// table lists every legal transition. Terminal states never lead back to
// Pending.
var table = map[key]Transition{
	{domain.StatusPending, domain.EventComplete}: {
		From: domain.StatusPending, Event: domain.EventComplete, To: domain.StatusCompleted,
		Stock: inventory.Decrement, Topic: enum.EventOrderCompleted,
	},
	{domain.StatusPending, domain.EventCancel}: {
		From: domain.StatusPending, Event: domain.EventCancel, To: domain.StatusCancelled,
		Topic: enum.EventOrderCancelled,
	},
	{domain.StatusPending, domain.EventAdvance}: {
		From: domain.StatusPending, Event: domain.EventAdvance, To: domain.StatusOutForDelivery,
		Topic: enum.EventOrderOutForDelivery,
	},
	{domain.StatusOutForDelivery, domain.EventComplete}: {
		From: domain.StatusOutForDelivery, Event: domain.EventComplete, To: domain.StatusCompleted,
		Stock: inventory.Decrement, Topic: enum.EventOrderCompleted,
	},
	{domain.StatusCompleted, domain.EventReturn}: {
		From: domain.StatusCompleted, Event: domain.EventReturn, To: domain.StatusCancelled,
		Stock: inventory.Increment, Topic: enum.EventOrderReturned,
	},
}

var knownEvents = []domain.Event{domain.EventComplete, domain.EventCancel, domain.EventAdvance, domain.EventReturn}

// Next looks up the transition for event fired from status from.
func Next(from domain.Status, event domain.Event) (Transition, error) {
	if !validEvent(event) {
		return Transition{}, fmt.Errorf("%w: %q", ErrUnknownEvent, event)
	}
	t, ok := table[key{from, event}]
	if !ok {
		return Transition{}, fmt.Errorf("%w: cannot %s an order that is %s", ErrInvalidTransition, event, from)
	}
	return t, nil
}

// Events returns the events that may be fired from status, in a fixed order.
func Events(from domain.Status) []domain.Event {
	var out []domain.Event
	for _, e := range knownEvents {
		if _, ok := table[key{from, e}]; ok {
			out = append(out, e)
		}
	}
	return out
}

func validEvent(e domain.Event) bool {
	for _, k := range knownEvents {
		if e == k {
			return true
		}
	}
	return false
}
