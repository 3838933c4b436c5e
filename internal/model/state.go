package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidSnapshot marks stored bytes that do not decode into a state.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// DefaultTimeDecay is stored with the weights but not applied to scores yet.
const DefaultTimeDecay = 0.95

// LearningWeights holds the per-sender bias learned from user actions.
type LearningWeights struct {
	Senders   map[string]float64 `json:"senders"`
	Keywords  map[string]float64 `json:"keywords"`
	TimeDecay float64            `json:"time_decay"`
}

func NewLearningWeights() LearningWeights {
	return LearningWeights{
		Senders:   make(map[string]float64),
		Keywords:  make(map[string]float64),
		TimeDecay: DefaultTimeDecay,
	}
}

// SenderWeight returns the adjustment for a sender key, 0 when unknown.
func (w LearningWeights) SenderWeight(key string) float64 {
	return w.Senders[key]
}

// GlobalActionRecord is the audit trail entry kept independently of message history.
type GlobalActionRecord struct {
	MessageID string     `json:"message_id"`
	Kind      ActionKind `json:"kind"`
	Timestamp time.Time  `json:"timestamp"`
}

// TrackedState is the aggregate persisted as a single snapshot.
type TrackedState struct {
	Messages  []*TrackedMessage    `json:"messages"`
	ActionLog []GlobalActionRecord `json:"action_log"`
	Weights   LearningWeights      `json:"weights"`
}

func NewTrackedState() *TrackedState {
	return &TrackedState{
		Messages:  []*TrackedMessage{},
		ActionLog: []GlobalActionRecord{},
		Weights:   NewLearningWeights(),
	}
}

// FindMessage returns the message with the given id, or nil.
func (s *TrackedState) FindMessage(id string) *TrackedMessage {
	for _, msg := range s.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// Clone returns a deep copy so callers can read it outside the owner's lock.
func (s *TrackedState) Clone() *TrackedState {
	clone := &TrackedState{
		Messages:  make([]*TrackedMessage, 0, len(s.Messages)),
		ActionLog: append([]GlobalActionRecord{}, s.ActionLog...),
		Weights: LearningWeights{
			Senders:   make(map[string]float64, len(s.Weights.Senders)),
			Keywords:  make(map[string]float64, len(s.Weights.Keywords)),
			TimeDecay: s.Weights.TimeDecay,
		},
	}
	for _, msg := range s.Messages {
		copied := *msg
		copied.Actions = append([]ActionRecord{}, msg.Actions...)
		clone.Messages = append(clone.Messages, &copied)
	}
	for k, v := range s.Weights.Senders {
		clone.Weights.Senders[k] = v
	}
	for k, v := range s.Weights.Keywords {
		clone.Weights.Keywords[k] = v
	}
	return clone
}

// normalize fills nil collections left by older or hand-edited snapshots.
func (s *TrackedState) normalize() {
	if s.Messages == nil {
		s.Messages = []*TrackedMessage{}
	}
	if s.ActionLog == nil {
		s.ActionLog = []GlobalActionRecord{}
	}
	if s.Weights.Senders == nil {
		s.Weights.Senders = make(map[string]float64)
	}
	if s.Weights.Keywords == nil {
		s.Weights.Keywords = make(map[string]float64)
	}
	for _, msg := range s.Messages {
		if msg.Actions == nil {
			msg.Actions = []ActionRecord{}
		}
	}
}

// MarshalSnapshot serializes the state into the stored JSON form.
func MarshalSnapshot(s *TrackedState) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalSnapshot parses a stored snapshot.
func UnmarshalSnapshot(data []byte) (*TrackedState, error) {
	state := &TrackedState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	state.normalize()
	return state, nil
}
