package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"followup-tracker/internal/config"
	"followup-tracker/internal/feedback"
	"followup-tracker/internal/logger"
	"followup-tracker/internal/mailbox"
	"followup-tracker/internal/model"
	"followup-tracker/internal/repository/memory"
	"followup-tracker/internal/scoring"
	"followup-tracker/internal/view"
)

var fixedNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func newTestTracker(t *testing.T, source MailboxSource) (TrackerService, *memory.InMemorySnapshotRepository) {
	t.Helper()
	repo := memory.NewInMemorySnapshotRepository()
	svc := NewTrackerService(repo, source, config.DefaultTunables(), logger.New(), WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, svc.Load(context.Background()))
	return svc, repo
}

func sampleBatch() []model.RawMessage {
	return []model.RawMessage{
		{
			ID:             "urgent",
			Subject:        "URGENT: contract",
			From:           &model.Address{Name: "Boss", Address: "Boss@Example.com"},
			ReceivedTime:   fixedNow.Add(-120 * time.Hour).Format(time.RFC3339),
			Importance:     "high",
			IsFlagged:      model.Bool(true),
			HasAttachments: model.Bool(true),
			Body:           "Please review and approve ASAP",
		},
		{
			ID:           "newsletter",
			Subject:      "Weekly digest",
			From:         &model.Address{Address: "news@example.com"},
			ReceivedTime: fixedNow.Add(-1 * time.Hour).Format(time.RFC3339),
			BodyPreview:  "Stories of the week",
		},
	}
}

func TestTrackerServiceIngestScoresAndPersists(t *testing.T) {
	svc, repo := newTestTracker(t, nil)
	ctx := context.Background()

	result, err := svc.Ingest(ctx, sampleBatch())
	require.NoError(t, err)
	assert.Equal(t, RefreshResult{Fetched: 2, Added: 2}, result)

	items := svc.View(view.FilterAll)
	require.Len(t, items, 2)
	assert.Equal(t, "urgent", items[0].ID)
	assert.Equal(t, model.PriorityHigh, items[0].Priority)
	assert.Equal(t, model.PriorityLow, items[1].Priority)
	assert.Equal(t, "Stories of the week", items[1].Body)
	assert.Equal(t, scoring.RecommendReview, items[0].Recommendation)
	assert.InDelta(t, 175.0, items[0].Breakdown.Total, 1e-9)

	stored, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, stored.Messages, 2)
}

func TestTrackerServiceIngestIsIdempotent(t *testing.T) {
	svc, _ := newTestTracker(t, nil)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, sampleBatch())
	require.NoError(t, err)

	result, err := svc.Ingest(ctx, sampleBatch())
	require.NoError(t, err)
	assert.Equal(t, RefreshResult{Fetched: 2, Unchanged: 2}, result)
	assert.Equal(t, 2, svc.Stats(view.FilterAll).Total)
}

func TestTrackerServiceIngestUpdatesHostAttributes(t *testing.T) {
	svc, _ := newTestTracker(t, nil)
	ctx := context.Background()

	batch := sampleBatch()
	_, err := svc.Ingest(ctx, batch)
	require.NoError(t, err)
	_, err = svc.MarkAction(ctx, "newsletter", model.ActionReplied)
	require.NoError(t, err)

	batch[1].IsFlagged = model.Bool(true)
	result, err := svc.Ingest(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)

	detail, err := svc.Message("newsletter")
	require.NoError(t, err)
	assert.True(t, detail.IsFlagged)
	assert.Len(t, detail.Actions, 1)
}

func TestTrackerServiceSynthesizesStableIDs(t *testing.T) {
	svc, _ := newTestTracker(t, nil)
	ctx := context.Background()

	raw := model.RawMessage{
		Subject:      "Same",
		From:         &model.Address{Address: "a@example.com"},
		ReceivedTime: "not a timestamp",
		Body:         "same body",
	}

	result, err := svc.Ingest(ctx, []model.RawMessage{raw, raw})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Added)

	first := svc.View(view.FilterAll)
	require.Len(t, first, 2)
	assert.NotEqual(t, first[0].ID, first[1].ID)
	// malformed timestamps are treated as "now"
	assert.Equal(t, fixedNow, first[0].ReceivedAt)
	assert.Zero(t, first[0].Breakdown.Age)

	result, err = svc.Ingest(ctx, []model.RawMessage{raw, raw})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Added)
	assert.Equal(t, 2, result.Unchanged)
}

func TestTrackerServiceMarkActionLearnsSenderWeight(t *testing.T) {
	svc, repo := newTestTracker(t, nil)
	ctx := context.Background()
	_, err := svc.Ingest(ctx, sampleBatch())
	require.NoError(t, err)

	result, err := svc.MarkAction(ctx, "urgent", model.ActionCompleted)
	require.NoError(t, err)
	assert.Equal(t, feedback.Applied, result.Outcome)
	assert.Equal(t, "boss@example.com", result.SenderKey)
	assert.Equal(t, 5.0, result.Weight)
	assert.Equal(t, model.StatusCompleted, result.Message.Status)

	items := svc.View(view.FilterAll)
	require.Len(t, items, 1)
	assert.Equal(t, "newsletter", items[0].ID)

	stats := svc.Stats(view.FilterAll)
	assert.Equal(t, view.Summary{Total: 2, Pending: 1, HighPriority: 0, Filter: view.FilterAll}, stats)

	stored, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5.0, stored.Weights.Senders["boss@example.com"])
	require.Len(t, stored.ActionLog, 1)
	assert.Equal(t, fixedNow, stored.ActionLog[0].Timestamp)
}

func TestTrackerServiceSnoozeLowersTierOfSender(t *testing.T) {
	svc, _ := newTestTracker(t, nil)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, []model.RawMessage{{
		ID:           "m1",
		From:         &model.Address{Address: "peer@example.com"},
		ReceivedTime: fixedNow.Add(-72 * time.Hour).Format(time.RFC3339),
	}})
	require.NoError(t, err)

	detail, err := svc.Message("m1")
	require.NoError(t, err)
	assert.Equal(t, model.PriorityMedium, detail.Priority)

	_, err = svc.MarkAction(ctx, "m1", model.ActionSnooze)
	require.NoError(t, err)

	detail, err = svc.Message("m1")
	require.NoError(t, err)
	assert.Equal(t, model.PriorityLow, detail.Priority)
	assert.Equal(t, model.StatusPending, detail.Status)
	assert.Equal(t, -3.0, detail.Breakdown.Learning)
}

func TestTrackerServiceMarkActionUnknownID(t *testing.T) {
	svc, repo := newTestTracker(t, nil)
	ctx := context.Background()

	result, err := svc.MarkAction(ctx, "missing", model.ActionCompleted)
	require.NoError(t, err)
	assert.Equal(t, feedback.NotFound, result.Outcome)

	_, err = repo.Load(ctx)
	assert.Error(t, err)
}

func TestTrackerServiceRefreshFailureLeavesStateUntouched(t *testing.T) {
	source := mailbox.NewMockSource()
	svc, _ := newTestTracker(t, source)
	ctx := context.Background()

	source.FetchMessagesFunc = func(ctx context.Context) ([]model.RawMessage, error) {
		return sampleBatch(), nil
	}
	_, err := svc.Refresh(ctx)
	require.NoError(t, err)

	source.FetchMessagesFunc = func(ctx context.Context) ([]model.RawMessage, error) {
		return nil, errors.New("401 unauthorized")
	}
	_, err = svc.Refresh(ctx)
	assert.ErrorIs(t, err, ErrMailboxUnavailable)
	assert.Equal(t, 2, svc.Stats(view.FilterAll).Total)
}

func TestTrackerServiceRefreshWithoutSource(t *testing.T) {
	svc, _ := newTestTracker(t, nil)

	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrMailboxUnavailable)
}

func TestTrackerServiceLoadCorruptSnapshotStartsEmpty(t *testing.T) {
	repo := memory.NewInMemorySnapshotRepository()
	repo.SetRaw([]byte("{corrupt"))

	svc := NewTrackerService(repo, nil, config.DefaultTunables(), logger.New())
	require.NoError(t, svc.Load(context.Background()))
	assert.Equal(t, 0, svc.Stats(view.FilterAll).Total)
}

func TestTrackerServiceLoadRestoresSnapshot(t *testing.T) {
	svc, repo := newTestTracker(t, nil)
	ctx := context.Background()
	_, err := svc.Ingest(ctx, sampleBatch())
	require.NoError(t, err)

	restored := NewTrackerService(repo, nil, config.DefaultTunables(), logger.New(), WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, restored.Load(ctx))
	assert.Equal(t, 2, restored.Stats(view.FilterAll).Total)
	assert.Equal(t, 1, restored.Stats(view.FilterHigh).HighPriority)
}

func TestTrackerServiceClearAll(t *testing.T) {
	svc, repo := newTestTracker(t, nil)
	ctx := context.Background()
	_, err := svc.Ingest(ctx, sampleBatch())
	require.NoError(t, err)

	var changes []Change
	svc.OnChange(func(c Change) { changes = append(changes, c) })

	require.NoError(t, svc.ClearAll(ctx))
	assert.Empty(t, svc.View(view.FilterAll))
	_, err = repo.Load(ctx)
	assert.Error(t, err)

	require.Len(t, changes, 1)
	assert.Equal(t, "cleared", changes[0].Reason)
	assert.Equal(t, 0, changes[0].Summary.Total)
}

func TestTrackerServiceMessageNotFound(t *testing.T) {
	svc, _ := newTestTracker(t, nil)

	_, err := svc.Message("nope")
	assert.ErrorIs(t, err, ErrMessageNotFound)
}

func TestTrackerServiceConcurrentActions(t *testing.T) {
	svc, _ := newTestTracker(t, nil)
	ctx := context.Background()
	_, err := svc.Ingest(ctx, sampleBatch())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.MarkAction(ctx, "newsletter", model.ActionReplied)
			_ = svc.View(view.FilterPending)
		}()
	}
	wg.Wait()

	detail, err := svc.Message("newsletter")
	require.NoError(t, err)
	assert.Len(t, detail.Actions, 20)
}

func TestTrackerServicePreviewDoesNotTrack(t *testing.T) {
	svc, _ := newTestTracker(t, nil)

	detail := svc.Preview(model.RawMessage{
		Subject:      "Waiting for your feedback",
		ReceivedTime: fixedNow.Add(-48 * time.Hour).Format(time.RFC3339),
	})
	assert.NotEmpty(t, detail.ID)
	assert.InDelta(t, 55.0, detail.Breakdown.Total, 1e-9)
	assert.Equal(t, model.PriorityMedium, detail.Priority)
	assert.Equal(t, scoring.RecommendDefault, detail.Recommendation)
	assert.Equal(t, 0, svc.Stats(view.FilterAll).Total)
}

func TestParseReceivedLayouts(t *testing.T) {
	cases := []struct {
		name  string
		value string
		want  time.Time
	}{
		{"rfc3339", "2024-05-07T12:00:00Z", time.Date(2024, 5, 7, 12, 0, 0, 0, time.UTC)},
		{"rfc3339 offset", "2024-05-07T14:00:00+02:00", time.Date(2024, 5, 7, 12, 0, 0, 0, time.UTC)},
		{"no offset reads as utc", "2024-05-07T12:00:00", time.Date(2024, 5, 7, 12, 0, 0, 0, time.UTC)},
		{"basic offset", "2024-05-07T12:00:00.000+0000", time.Date(2024, 5, 7, 12, 0, 0, 0, time.UTC)},
		{"date only", "2024-05-07", time.Date(2024, 5, 7, 0, 0, 0, 0, time.UTC)},
		{"garbage", "last tuesday", fixedNow},
		{"empty", "", fixedNow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, tc.want.Equal(parseReceived(tc.value, fixedNow)), "got %v", parseReceived(tc.value, fixedNow))
		})
	}
}

func TestTrackerServicePreviewAgesOffsetlessTimestamps(t *testing.T) {
	svc, _ := newTestTracker(t, nil)

	for _, received := range []string{"2024-05-07T12:00:00Z", "2024-05-07T12:00:00", "2024-05-07T12:00:00.000+0000"} {
		detail := svc.Preview(model.RawMessage{Subject: "status", ReceivedTime: received})
		assert.InDelta(t, 30.0, detail.Breakdown.Age, 1e-9, received)
		assert.Equal(t, model.PriorityMedium, detail.Priority, received)
	}
}

// saveFailingRepository stores nothing and fails every Save with SaveErr.
type saveFailingRepository struct {
	*memory.InMemorySnapshotRepository
	SaveErr error
}

func (r *saveFailingRepository) Save(ctx context.Context, state *model.TrackedState) error {
	if r.SaveErr != nil {
		return r.SaveErr
	}
	return r.InMemorySnapshotRepository.Save(ctx, state)
}

func TestTrackerServiceSaveFailureLeavesStateUntouched(t *testing.T) {
	repo := &saveFailingRepository{InMemorySnapshotRepository: memory.NewInMemorySnapshotRepository()}
	svc := NewTrackerService(repo, nil, config.DefaultTunables(), logger.New(), WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, svc.Load(context.Background()))
	ctx := context.Background()

	_, err := svc.Ingest(ctx, sampleBatch())
	require.NoError(t, err)

	repo.SaveErr = errors.New("disk full")

	_, err = svc.MarkAction(ctx, "urgent", model.ActionCompleted)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	msg, err := svc.Message("urgent")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, msg.Status)
	assert.Empty(t, msg.Actions)
	assert.InDelta(t, 0.0, msg.Breakdown.Learning, 1e-9)

	_, err = svc.Ingest(ctx, []model.RawMessage{{ID: "late", Subject: "New", ReceivedTime: fixedNow.Format(time.RFC3339)}})
	require.Error(t, err)
	assert.Equal(t, 2, svc.Stats(view.FilterAll).Total)

	// once storage recovers, a retry applies the action exactly once
	repo.SaveErr = nil
	result, err := svc.MarkAction(ctx, "urgent", model.ActionCompleted)
	require.NoError(t, err)
	assert.Equal(t, 5.0, result.Weight)
	assert.Len(t, result.Message.Actions, 1)
}
