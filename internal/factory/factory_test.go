package factory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"followup-tracker/internal/config"
	"followup-tracker/internal/logger"
	"followup-tracker/internal/mailbox"
	"followup-tracker/internal/model"
)

func TestNewStorageMemory(t *testing.T) {
	storage, err := NewStorage(&config.Config{StorageDriver: config.DriverAuto})
	require.NoError(t, err)
	defer storage.Close()

	assert.Equal(t, config.DriverMemory, storage.Driver)
	require.NoError(t, storage.Snapshots.Save(context.Background(), model.NewTrackedState()))
}

func TestNewStorageBolt(t *testing.T) {
	cfg := &config.Config{StorageDriver: config.DriverAuto, BoltPath: filepath.Join(t.TempDir(), "tracker.db")}

	storage, err := NewStorage(cfg)
	require.NoError(t, err)
	assert.Equal(t, config.DriverBolt, storage.Driver)

	require.NoError(t, storage.Snapshots.Save(context.Background(), model.NewTrackedState()))
	require.NoError(t, storage.Close())
}

func TestNewStorageUnknownDriver(t *testing.T) {
	_, err := NewStorage(&config.Config{StorageDriver: "cassandra"})
	assert.Error(t, err)
}

func TestNewMailboxSource(t *testing.T) {
	log := logger.New()

	source, err := NewMailboxSource(&config.Config{MailboxSource: config.SourceMbox, MboxPath: "inbox.mbox"}, nil, log)
	require.NoError(t, err)
	assert.IsType(t, &mailbox.MboxSource{}, source)

	source, err = NewMailboxSource(&config.Config{MailboxSource: config.SourceIMAP, IMAPServer: "imap.example.com", IMAPPort: 993}, nil, log)
	require.NoError(t, err)
	assert.IsType(t, &mailbox.IMAPSource{}, source)

	source, err = NewMailboxSource(&config.Config{MailboxSource: config.SourceGmail, MaxFetchMessages: 5, GmailRPS: 2}, nil, log)
	require.NoError(t, err)
	assert.IsType(t, &mailbox.GmailSource{}, source)

	source, err = NewMailboxSource(&config.Config{MailboxSource: config.SourceNone}, nil, log)
	require.NoError(t, err)
	assert.Nil(t, source)

	_, err = NewMailboxSource(&config.Config{MailboxSource: "pop3"}, nil, log)
	assert.Error(t, err)
}
