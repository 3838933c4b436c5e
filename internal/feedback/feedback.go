// Package feedback applies user actions to the tracked state and learns
// per-sender weights from them.
package feedback

import (
	"math"
	"time"

	"followup-tracker/internal/config"
	"followup-tracker/internal/model"
)

// Outcome tells the caller whether an action touched the state.
type Outcome string

const (
	Applied  Outcome = "applied"
	NotFound Outcome = "not_found"
)

// Result reports what ApplyAction did and the sender weight it left behind.
type Result struct {
	Outcome   Outcome               `json:"outcome"`
	Message   *model.TrackedMessage `json:"message,omitempty"`
	SenderKey string                `json:"sender_key,omitempty"`
	Weight    float64               `json:"weight"`
}

// ApplyAction records kind against the message with the given id. An unknown
// id leaves state untouched and yields NotFound. Persisting the state is the
// caller's job.
func ApplyAction(state *model.TrackedState, messageID string, kind model.ActionKind, now time.Time, tunables config.Tunables) Result {
	msg := state.FindMessage(messageID)
	if msg == nil {
		return Result{Outcome: NotFound}
	}

	msg.Actions = append(msg.Actions, model.ActionRecord{Kind: kind, Timestamp: now})

	// Only completion changes status; every other action just touches LastUpdated.
	if kind == model.ActionCompleted {
		msg.Status = model.StatusCompleted
	} else {
		msg.LastUpdated = now
	}

	if state.Weights.Senders == nil {
		state.Weights.Senders = make(map[string]float64)
	}
	key := msg.SenderKey()
	weight := state.Weights.Senders[key] + Delta(kind, tunables)
	weight = clamp(weight, tunables.WeightFloor, tunables.WeightCeiling)
	state.Weights.Senders[key] = weight

	state.ActionLog = append(state.ActionLog, model.GlobalActionRecord{
		MessageID: messageID,
		Kind:      kind,
		Timestamp: now,
	})

	return Result{Outcome: Applied, Message: msg, SenderKey: key, Weight: weight}
}

// Delta is the weight adjustment learned from one action.
func Delta(kind model.ActionKind, tunables config.Tunables) float64 {
	switch kind {
	case model.ActionCompleted:
		return tunables.CompletedDelta
	case model.ActionSnooze:
		return tunables.SnoozeDelta
	case model.ActionReplied:
		return tunables.RepliedDelta
	case model.ActionForwarded:
		return tunables.ForwardedDelta
	default:
		return 0
	}
}

// clamp is a no-op unless bounds are configured.
func clamp(v float64, floor, ceiling *float64) float64 {
	if floor != nil {
		v = math.Max(v, *floor)
	}
	if ceiling != nil {
		v = math.Min(v, *ceiling)
	}
	return v
}
