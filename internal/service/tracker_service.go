package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"followup-tracker/internal/config"
	"followup-tracker/internal/feedback"
	"followup-tracker/internal/logger"
	"followup-tracker/internal/model"
	"followup-tracker/internal/repository"
	"followup-tracker/internal/scoring"
	"followup-tracker/internal/view"
)

// messageIDNamespace scopes ids synthesized for messages the source did not identify.
var messageIDNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("followup-tracker/message"))

type trackerService struct {
	repo     repository.SnapshotRepository
	source   MailboxSource
	tunables config.Tunables
	scorer   *scoring.Scorer
	logger   *logger.Logger
	now      func() time.Time

	// mutex guards state; every read-modify-write of the aggregate holds it.
	mutex sync.Mutex
	state *model.TrackedState

	listenersMux sync.RWMutex
	listeners    []func(Change)
}

type Option func(*trackerService)

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *trackerService) {
		s.now = now
	}
}

// NewTrackerService builds the service around an empty state; call Load to
// restore the persisted snapshot. source may be nil when no mailbox is configured.
func NewTrackerService(
	repo repository.SnapshotRepository,
	source MailboxSource,
	tunables config.Tunables,
	logger *logger.Logger,
	opts ...Option,
) TrackerService {
	s := &trackerService{
		repo:     repo,
		source:   source,
		tunables: tunables,
		scorer:   scoring.NewScorer(tunables),
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.state = s.freshState()
	return s
}

func (s *trackerService) freshState() *model.TrackedState {
	state := model.NewTrackedState()
	if s.tunables.TimeDecay > 0 {
		state.Weights.TimeDecay = s.tunables.TimeDecay
	}
	return state
}

func (s *trackerService) Load(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	state, err := s.repo.Load(ctx)
	switch {
	case err == nil:
		s.state = state
		s.logger.Info("Restored", len(state.Messages), "tracked messages from snapshot")
	case errors.Is(err, repository.ErrSnapshotNotFound):
		s.state = s.freshState()
		s.logger.Info("No snapshot found, starting with an empty state")
	case errors.Is(err, model.ErrInvalidSnapshot):
		s.state = s.freshState()
		s.logger.Error("Discarding unreadable snapshot:", err)
	default:
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	return nil
}

func (s *trackerService) Refresh(ctx context.Context) (RefreshResult, error) {
	if s.source == nil {
		return RefreshResult{}, fmt.Errorf("%w: no mailbox source configured", ErrMailboxUnavailable)
	}

	// The fetch runs without the lock; nothing is touched if it fails.
	raws, err := s.source.FetchMessages(ctx)
	if err != nil {
		s.logger.Error("Failed to fetch messages:", err)
		return RefreshResult{}, fmt.Errorf("%w: %v", ErrMailboxUnavailable, err)
	}

	return s.Ingest(ctx, raws)
}

func (s *trackerService) Ingest(ctx context.Context, raws []model.RawMessage) (RefreshResult, error) {
	s.mutex.Lock()
	result := RefreshResult{Fetched: len(raws)}
	now := s.now()
	seen := make(map[string]bool, len(raws))

	// Work on a copy; the live state only changes once the snapshot is saved.
	working := s.state.Clone()
	for _, raw := range raws {
		incoming := s.normalize(raw, now, seen)
		existing := working.FindMessage(incoming.ID)

		switch {
		case existing == nil:
			incoming.Priority = s.scorer.Priority(incoming, working.Weights, now)
			working.Messages = append(working.Messages, incoming)
			result.Added++
		case existing.IsActive() && mergeHostAttributes(existing, incoming):
			existing.LastUpdated = now
			result.Updated++
		default:
			result.Unchanged++
		}
	}
	s.rescore(working, now)

	if err := s.repo.Save(ctx, working); err != nil {
		s.mutex.Unlock()
		s.logger.Error("Failed to save snapshot:", err)
		return RefreshResult{}, fmt.Errorf("failed to save snapshot: %w", err)
	}
	s.state = working
	summary := view.Summarize(s.state, view.FilterAll)
	s.mutex.Unlock()

	s.logger.Info("Ingested", result.Fetched, "messages:", result.Added, "added,", result.Updated, "updated")
	s.notify(Change{Reason: "refresh", Summary: summary})
	return result, nil
}

// normalize turns a raw record into a fresh tracked message. Ids the source
// left empty are derived from the content so refreshes stay idempotent;
// identical content within one batch gets a counter suffix.
func (s *trackerService) normalize(raw model.RawMessage, now time.Time, seen map[string]bool) *model.TrackedMessage {
	from := raw.Originator()
	received := parseReceived(raw.ReceivedTime, now)

	id := strings.TrimSpace(raw.ID)
	if id == "" {
		base := uuid.NewSHA1(messageIDNamespace, []byte(strings.Join([]string{
			strings.ToLower(from.Address), from.Name, raw.Subject, raw.ReceivedTime, raw.Text(),
		}, "\x00"))).String()
		id = base
		for n := 2; seen[id]; n++ {
			id = fmt.Sprintf("%s-%d", base, n)
		}
	}
	seen[id] = true

	msg := model.NewTrackedMessage(id, raw.Subject, from.Name, from.Address, raw.Text(), received, now)
	msg.HasAttachments = model.BoolValue(raw.HasAttachments)
	msg.IsFlagged = model.BoolValue(raw.IsFlagged)
	msg.Importance = model.ParseImportance(raw.Importance)
	return msg
}

// receivedLayouts are tried in order. Layouts without an offset read as UTC.
var receivedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// parseReceived falls back to now, which scores as zero age.
func parseReceived(value string, now time.Time) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return now
	}
	for _, layout := range receivedLayouts {
		if received, err := time.Parse(layout, value); err == nil {
			return received
		}
	}
	return now
}

// mergeHostAttributes copies host-owned fields and reports whether any changed.
// Status, actions and the received time belong to the tracker and are kept.
func mergeHostAttributes(dst, src *model.TrackedMessage) bool {
	changed := dst.Subject != src.Subject ||
		dst.SenderName != src.SenderName ||
		dst.SenderAddress != src.SenderAddress ||
		dst.Body != src.Body ||
		dst.HasAttachments != src.HasAttachments ||
		dst.Importance != src.Importance ||
		dst.IsFlagged != src.IsFlagged

	dst.Subject = src.Subject
	dst.SenderName = src.SenderName
	dst.SenderAddress = src.SenderAddress
	dst.Body = src.Body
	dst.HasAttachments = src.HasAttachments
	dst.Importance = src.Importance
	dst.IsFlagged = src.IsFlagged
	return changed
}

// rescore recomputes the tier of every active message; age and learned
// weights both move over time. Completed messages keep their last tier.
func (s *trackerService) rescore(state *model.TrackedState, now time.Time) {
	for _, msg := range state.Messages {
		if msg.IsActive() {
			msg.Priority = s.scorer.Priority(msg, state.Weights, now)
		}
	}
}

func (s *trackerService) MarkAction(ctx context.Context, messageID string, kind model.ActionKind) (feedback.Result, error) {
	s.mutex.Lock()
	now := s.now()
	working := s.state.Clone()
	result := feedback.ApplyAction(working, messageID, kind, now, s.tunables)
	if result.Outcome == feedback.NotFound {
		s.mutex.Unlock()
		s.logger.Warn("Ignoring", kind, "for unknown message:", messageID)
		return result, nil
	}
	s.rescore(working, now)
	result.Message = copyMessage(result.Message)

	if err := s.repo.Save(ctx, working); err != nil {
		s.mutex.Unlock()
		s.logger.Error("Failed to save snapshot:", err)
		return feedback.Result{}, fmt.Errorf("failed to save snapshot: %w", err)
	}
	s.state = working
	summary := view.Summarize(s.state, view.FilterAll)
	s.mutex.Unlock()

	s.logger.Info("Applied", kind, "to", messageID, "sender", result.SenderKey, "weight now", result.Weight)
	s.notify(Change{Reason: "action", Summary: summary})
	return result, nil
}

func (s *trackerService) View(filter view.Filter) []MessageDetail {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	s.rescore(s.state, now)

	messages := view.View(s.state, filter)
	details := make([]MessageDetail, 0, len(messages))
	for _, msg := range messages {
		details = append(details, s.detail(msg, now))
	}
	return details
}

func (s *trackerService) Stats(filter view.Filter) view.Summary {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.rescore(s.state, s.now())
	return view.Summarize(s.state, filter)
}

func (s *trackerService) Message(messageID string) (MessageDetail, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	msg := s.state.FindMessage(messageID)
	if msg == nil {
		return MessageDetail{}, ErrMessageNotFound
	}
	now := s.now()
	s.rescore(s.state, now)
	return s.detail(msg, now), nil
}

// Preview scores a raw record against the learned weights without tracking it.
func (s *trackerService) Preview(raw model.RawMessage) MessageDetail {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := s.now()
	msg := s.normalize(raw, now, map[string]bool{})
	msg.Priority = s.scorer.Priority(msg, s.state.Weights, now)
	return s.detail(msg, now)
}

// detail must be called with the mutex held.
func (s *trackerService) detail(msg *model.TrackedMessage, now time.Time) MessageDetail {
	return MessageDetail{
		TrackedMessage: copyMessage(msg),
		Breakdown:      s.scorer.Score(msg, s.state.Weights, now),
		Recommendation: scoring.Recommend(msg.Body),
	}
}

func copyMessage(msg *model.TrackedMessage) *model.TrackedMessage {
	if msg == nil {
		return nil
	}
	copied := *msg
	copied.Actions = append([]model.ActionRecord{}, msg.Actions...)
	return &copied
}

func (s *trackerService) ClearAll(ctx context.Context) error {
	s.mutex.Lock()
	if err := s.repo.Delete(ctx); err != nil {
		s.mutex.Unlock()
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	s.state = s.freshState()
	summary := view.Summarize(s.state, view.FilterAll)
	s.mutex.Unlock()

	s.logger.Info("Cleared all tracked messages")
	s.notify(Change{Reason: "cleared", Summary: summary})
	return nil
}

func (s *trackerService) OnChange(listener func(Change)) {
	s.listenersMux.Lock()
	defer s.listenersMux.Unlock()

	s.listeners = append(s.listeners, listener)
}

func (s *trackerService) notify(change Change) {
	s.listenersMux.RLock()
	defer s.listenersMux.RUnlock()

	for _, listener := range s.listeners {
		listener(change)
	}
}
