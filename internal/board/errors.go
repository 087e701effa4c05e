package board

import (
	"errors"
	"fmt"

	"github.com/kingrea/bargain/internal/envelope"
)

var (
	// ErrActionNotAvailable is returned when an action is not legal in the
	// current phase.
	ErrActionNotAvailable = errors.New("board: action not available in this phase")
	// ErrAwaitingEcho is returned while the same action is still in flight.
	ErrAwaitingEcho = errors.New("board: previous submission still in flight")
	// ErrUnexpectedDeal is returned when a partner deal arrives outside chat.
	ErrUnexpectedDeal = errors.New("board: partner deal outside of chat")
	// ErrStalePending is returned when settling a submission twice.
	ErrStalePending = errors.New("board: submission already settled")
)

// ValidationError rejects a submission locally. Nothing was sent.
type ValidationError struct {
	Action  envelope.Action
	Rule    Reason
	Detail  string
	Reasons []Reason
	Err     error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("board: %s rejected: %s", e.Action, e.Rule)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// DeliveryError reports that the transport failed to deliver an envelope.
// The in-flight flag is already cleared so the user can retry.
type DeliveryError struct {
	Action envelope.Action
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("board: deliver %s: %v", e.Action, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
