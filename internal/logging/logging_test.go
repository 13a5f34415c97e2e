package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockLoggerRecordsEntries(t *testing.T) {
	mock := &MockLogger{}

	mock.Info("import staged", Field{Key: "candidates", Value: 2})
	mock.Warn("row skipped")

	require.Len(t, mock.Entries, 2)
	assert.True(t, mock.HasEntry("INFO", "import staged"))
	assert.True(t, mock.HasEntry("WARN", "row skipped"))
	assert.False(t, mock.HasEntry("ERROR", "row skipped"))
	assert.Equal(t, "candidates", mock.Entries[0].Fields[0].Key)
}

func TestMockLoggerDerivedLoggersShareSink(t *testing.T) {
	mock := &MockLogger{}
	boom := errors.New("boom")

	mock.WithError(boom).Error("reconcile failed")
	mock.WithField("account", "HDFC Savings").Info("reconciled")

	require.Len(t, mock.Entries, 2)
	assert.Equal(t, boom, mock.Entries[0].Error)
	assert.Equal(t, "account", mock.Entries[1].Fields[0].Key)
	assert.True(t, mock.HasEntry("ERROR", "reconcile failed"))
}

func TestLogrusAdapterLevels(t *testing.T) {
	logger := NewLogrusAdapter("debug", "json")
	require.NotNil(t, logger)

	// Invalid level falls back to info rather than failing.
	fallback := NewLogrusAdapter("shouting", "text")
	require.NotNil(t, fallback)

	derived := logger.WithField("component", "store").WithError(errors.New("x"))
	assert.NotNil(t, derived)
}

func TestSetDefault(t *testing.T) {
	original := GetLogger()
	defer SetDefault(original)

	mock := &MockLogger{}
	SetDefault(mock)
	assert.Same(t, mock, GetLogger())

	SetDefault(nil)
	assert.Same(t, mock, GetLogger())
}
