package mailbox

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"followup-tracker/internal/logger"
	"followup-tracker/internal/model"
)

const sampleMbox = "From alice@example.com Mon May  6 09:00:00 2024\n" +
	"Message-ID: <one@example.com>\n" +
	"From: Alice <alice@example.com>\n" +
	"Subject: Meeting tomorrow\n" +
	"Date: Mon, 06 May 2024 09:00:00 +0000\n" +
	"Status: RO\n" +
	"X-Status: F\n" +
	"\n" +
	"Can we schedule a call?\n" +
	"\n" +
	"From bob@example.com Tue May  7 10:00:00 2024\n" +
	"Message-ID: <two@example.com>\n" +
	"From: bob@example.com\n" +
	"Subject: Lunch\n" +
	"Date: Tue, 07 May 2024 10:00:00 +0000\n" +
	"\n" +
	"Hungry?\n"

func writeMbox(t *testing.T) string {
	path := filepath.Join(t.TempDir(), "inbox.mbox")
	require.NoError(t, os.WriteFile(path, []byte(sampleMbox), 0600))
	return path
}

func TestReadMbox(t *testing.T) {
	messages, err := ReadMbox(context.Background(), strings.NewReader(sampleMbox), logger.New())
	require.NoError(t, err)
	require.Len(t, messages, 2)

	first := messages[0]
	assert.Equal(t, "one@example.com", first.ID)
	assert.Equal(t, "Meeting tomorrow", first.Subject)
	assert.True(t, model.BoolValue(first.IsRead))
	assert.True(t, model.BoolValue(first.IsFlagged))
	assert.Contains(t, first.Body, "schedule a call")

	second := messages[1]
	assert.Equal(t, "two@example.com", second.ID)
	assert.False(t, model.BoolValue(second.IsRead))
	assert.False(t, model.BoolValue(second.IsFlagged))
}

func TestMboxSourceKeepsNewest(t *testing.T) {
	source := NewMboxSource(writeMbox(t), 1, logger.New())

	messages, err := source.FetchMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "two@example.com", messages[0].ID)
}

func TestMboxSourceMissingFile(t *testing.T) {
	source := NewMboxSource(filepath.Join(t.TempDir(), "missing.mbox"), 0, logger.New())

	_, err := source.FetchMessages(context.Background())
	assert.Error(t, err)
}

func TestReadMboxHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadMbox(ctx, strings.NewReader(sampleMbox), logger.New())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFromIMAPAppliesFlags(t *testing.T) {
	internal := time.Date(2024, 5, 6, 12, 0, 0, 0, time.UTC)
	body := "From: carol@example.com\r\nSubject: Hi\r\n\r\nbody\r\n"

	raw, err := FromIMAP(strings.NewReader(body), []string{"\\Seen", "\\Flagged"}, internal)
	require.NoError(t, err)

	assert.True(t, model.BoolValue(raw.IsRead))
	assert.True(t, model.BoolValue(raw.IsFlagged))
	assert.Equal(t, "2024-05-06T12:00:00Z", raw.ReceivedTime)
}
