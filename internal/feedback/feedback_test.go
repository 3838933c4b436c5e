package feedback

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"followup-tracker/internal/config"
	"followup-tracker/internal/model"
)

var (
	received = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	now      = time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
)

func newState() *model.TrackedState {
	state := model.NewTrackedState()
	state.Messages = append(state.Messages,
		model.NewTrackedMessage("msg_1", "Budget", "Bob", "Bob@Example.com", "please approve", received, received),
		model.NewTrackedMessage("msg_2", "Lunch", "Carol", "carol@example.com", "", received, received),
	)
	return state
}

func TestApplyActionUnknownIDLeavesStateUntouched(t *testing.T) {
	state := newState()
	before := state.Clone()

	result := ApplyAction(state, "missing", model.ActionCompleted, now, config.DefaultTunables())

	assert.Equal(t, NotFound, result.Outcome)
	assert.Nil(t, result.Message)
	assert.Equal(t, before, state)
}

func TestApplyActionCompleted(t *testing.T) {
	state := newState()

	result := ApplyAction(state, "msg_1", model.ActionCompleted, now, config.DefaultTunables())

	require.Equal(t, Applied, result.Outcome)
	msg := state.FindMessage("msg_1")
	assert.Equal(t, model.StatusCompleted, msg.Status)
	// completion does not advance LastUpdated
	assert.Equal(t, received, msg.LastUpdated)
	assert.Equal(t, []model.ActionRecord{{Kind: model.ActionCompleted, Timestamp: now}}, msg.Actions)
	assert.Equal(t, 5.0, state.Weights.Senders["bob@example.com"])
	assert.Equal(t, "bob@example.com", result.SenderKey)
	assert.Equal(t, []model.GlobalActionRecord{{MessageID: "msg_1", Kind: model.ActionCompleted, Timestamp: now}}, state.ActionLog)
}

func TestApplyActionSnoozeLowersWeightAndKeepsStatus(t *testing.T) {
	state := newState()

	ApplyAction(state, "msg_2", model.ActionSnooze, now, config.DefaultTunables())

	msg := state.FindMessage("msg_2")
	assert.Equal(t, model.StatusPending, msg.Status)
	assert.Equal(t, now, msg.LastUpdated)
	assert.Equal(t, -3.0, state.Weights.Senders["carol@example.com"])
}

func TestApplyActionRepliedAndForwardedOnlyTouch(t *testing.T) {
	state := newState()

	ApplyAction(state, "msg_2", model.ActionReplied, now, config.DefaultTunables())
	later := now.Add(time.Hour)
	ApplyAction(state, "msg_2", model.ActionForwarded, later, config.DefaultTunables())

	msg := state.FindMessage("msg_2")
	assert.Equal(t, model.StatusPending, msg.Status)
	assert.Equal(t, later, msg.LastUpdated)
	assert.Len(t, msg.Actions, 2)
	assert.Len(t, state.ActionLog, 2)

	weight, ok := state.Weights.Senders["carol@example.com"]
	assert.True(t, ok, "weight entry is initialized even when unchanged")
	assert.Equal(t, 0.0, weight)
}

func TestApplyActionRepeatedCompletionsAreUnbounded(t *testing.T) {
	state := newState()
	tunables := config.DefaultTunables()

	for i := 1; i <= 30; i++ {
		result := ApplyAction(state, "msg_1", model.ActionCompleted, now, tunables)
		assert.Equal(t, float64(5*i), result.Weight)
	}
	assert.Equal(t, 150.0, state.Weights.Senders["bob@example.com"])
}

func TestApplyActionClampWhenConfigured(t *testing.T) {
	state := newState()
	tunables := config.DefaultTunables()
	ceiling, floor := 12.0, -4.0
	tunables.WeightCeiling = &ceiling
	tunables.WeightFloor = &floor

	for i := 0; i < 5; i++ {
		ApplyAction(state, "msg_1", model.ActionCompleted, now, tunables)
		ApplyAction(state, "msg_2", model.ActionSnooze, now, tunables)
	}

	assert.Equal(t, 12.0, state.Weights.Senders["bob@example.com"])
	assert.Equal(t, -4.0, state.Weights.Senders["carol@example.com"])
}

func TestApplyActionInitializesMissingWeightTable(t *testing.T) {
	state := newState()
	state.Weights.Senders = nil

	result := ApplyAction(state, "msg_1", model.ActionCompleted, now, config.DefaultTunables())

	assert.Equal(t, Applied, result.Outcome)
	assert.Equal(t, 5.0, state.Weights.Senders["bob@example.com"])
}
