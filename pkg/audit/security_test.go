package audit

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// setupTestLogger creates a test logger with an observer to capture log entries.
func setupTestLogger(t *testing.T) (*zap.Logger, *observer.ObservedLogs) {
	t.Helper()
	core, recorded := observer.New(zapcore.DebugLevel)
	return zap.New(core), recorded
}

func decodeEvent(t *testing.T, entry observer.LoggedEntry) SecurityEvent {
	t.Helper()
	eventJSON, ok := entry.ContextMap()["event_json"].(string)
	require.True(t, ok, "event_json should be a string")

	var event SecurityEvent
	require.NoError(t, json.Unmarshal([]byte(eventJSON), &event), "event_json should be valid JSON")
	return event
}

func TestNewSecurityAuditor(t *testing.T) {
	assert.NotNil(t, NewSecurityAuditor(nil).logger)
}

func TestLogInjectionAttempt(t *testing.T) {
	tests := []struct {
		name     string
		rejected bool
		level    zapcore.Level
		severity string
	}{
		{"allowed", false, zapcore.WarnLevel, "warning"},
		{"rejected", true, zapcore.ErrorLevel, "critical"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, recorded := setupTestLogger(t)
			auditor := NewSecurityAuditor(logger)
			ctx := WithClientIP(context.Background(), "192.168.1.100")

			auditor.LogInjectionAttempt(ctx, "[dbo].[Customers]", SQLInjectionDetails{
				Column:      "CompanyName",
				Value:       "'; DROP TABLE users--",
				Fingerprint: "s&1c",
				Rejected:    tt.rejected,
			})

			logs := recorded.All()
			require.Len(t, logs, 1, "Expected exactly one log entry")
			entry := logs[0]
			assert.Equal(t, tt.level, entry.Level)
			assert.Equal(t, "SQL injection attempt detected", entry.Message)

			fields := entry.ContextMap()
			assert.Equal(t, "[dbo].[Customers]", fields["table"])
			assert.Equal(t, "CompanyName", fields["column"])
			assert.Equal(t, "s&1c", fields["fingerprint"])
			assert.Equal(t, tt.rejected, fields["rejected"])
			assert.Equal(t, "192.168.1.100", fields["client_ip"])
			assert.Equal(t, tt.severity, fields["severity"])

			event := decodeEvent(t, entry)
			assert.Equal(t, EventSQLInjectionAttempt, event.EventType)
			assert.Equal(t, event.EventID.String(), fields["event_id"])
			assert.Equal(t, tt.severity, event.Severity)

			details, ok := event.Details.(map[string]any)
			require.True(t, ok, "Details should be a map")
			assert.Equal(t, "CompanyName", details["column"])
			assert.Equal(t, "'; DROP TABLE users--", details["value"])
		})
	}
}

func TestLogInjectionAttempt_TruncatesValue(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	auditor.LogInjectionAttempt(context.Background(), "[dbo].[Notes]", SQLInjectionDetails{
		Column: "Body",
		Value:  "1' OR '1'='1" + strings.Repeat("x", 500),
	})

	details := decodeEvent(t, recorded.All()[0]).Details.(map[string]any)
	assert.Less(t, len(details["value"].(string)), 100)
}

func TestLogRowWrite(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	auditor.now = func() time.Time { return fixed }

	index := int64(77)
	auditor.LogRowWrite(context.Background(), "[dbo].[Products]", RowWriteDetails{
		Operation: "insert", RowsAffected: 1, Index: &index,
	})
	auditor.LogRowWrite(context.Background(), "[dbo].[Products]", RowWriteDetails{
		Operation: "delete", RowsAffected: 1,
	})

	logs := recorded.All()
	require.Len(t, logs, 2)

	insert := logs[0]
	assert.Equal(t, zapcore.InfoLevel, insert.Level)
	assert.Equal(t, "Row write", insert.Message)
	assert.Equal(t, "insert", insert.ContextMap()["operation"])
	assert.Equal(t, int64(77), insert.ContextMap()["index"])
	assert.Equal(t, "", insert.ContextMap()["client_ip"])

	event := decodeEvent(t, insert)
	assert.Equal(t, EventRowWrite, event.EventType)
	assert.Equal(t, "info", event.Severity)
	assert.True(t, fixed.Equal(event.Timestamp))

	assert.NotContains(t, logs[1].ContextMap(), "index")
	assert.NotEqual(t, event.EventID, decodeEvent(t, logs[1]).EventID)
}

func TestClientIPFromContext(t *testing.T) {
	assert.Equal(t, "", ClientIPFromContext(context.Background()))
	assert.Equal(t, "10.0.0.1:5123", ClientIPFromContext(WithClientIP(context.Background(), "10.0.0.1:5123")))
}

func TestLoggerNamespace(t *testing.T) {
	logger, recorded := setupTestLogger(t)
	auditor := NewSecurityAuditor(logger)

	auditor.LogRowWrite(context.Background(), "[dbo].[Shippers]", RowWriteDetails{Operation: "update", RowsAffected: 1})

	logs := recorded.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "security_audit", logs[0].LoggerName)
}
