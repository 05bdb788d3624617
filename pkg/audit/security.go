// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant grid events in structured JSON format for easy
// parsing and integration with security information and event management
// systems.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-grid/pkg/logging"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSQLInjectionAttempt is logged when libinjection flags a cell value.
	EventSQLInjectionAttempt SecurityEventType = "sql_injection_attempt"
	// EventRowWrite is logged for every committed insert, update or delete.
	EventRowWrite SecurityEventType = "row_write"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	EventID   uuid.UUID         `json:"event_id"`
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	Table     string            `json:"table"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// SQLInjectionDetails contains specifics of a flagged cell value.
type SQLInjectionDetails struct {
	Column      string `json:"column"`
	Value       string `json:"value"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
	Rejected    bool   `json:"rejected"`
}

// RowWriteDetails describes a committed row write.
type RowWriteDetails struct {
	Operation    string `json:"operation"` // insert, update, delete
	RowsAffected int64  `json:"rows_affected"`
	// Index is the new row's 0-based position; set for inserts only.
	Index *int64 `json:"index,omitempty"`
}

type clientIPKey struct{}

// WithClientIP returns a context carrying the caller's address.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIPFromContext returns the address stored by WithClientIP, or "".
func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
// The logger is named "security_audit" for easy filtering in SIEM systems.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SecurityAuditor{logger: logger.Named("security_audit"), now: time.Now}
}

func (a *SecurityAuditor) newEvent(ctx context.Context, eventType SecurityEventType, table, severity string, details any) SecurityEvent {
	return SecurityEvent{
		EventID:   uuid.New(),
		Timestamp: a.now().UTC(),
		EventType: eventType,
		Table:     table,
		ClientIP:  ClientIPFromContext(ctx),
		Details:   details,
		Severity:  severity,
	}
}

// LogInjectionAttempt records a flagged cell value. A rejected write is
// logged at ERROR with "critical" severity; an allowed one at WARN.
// The value is truncated before logging.
//
// Example usage:
//
//	auditor.LogInjectionAttempt(ctx, "[dbo].[Customers]",
//	    audit.SQLInjectionDetails{
//	        Column:      "CompanyName",
//	        Value:       "'; DROP TABLE users--",
//	        Fingerprint: "s&1c",
//	    },
//	)
func (a *SecurityAuditor) LogInjectionAttempt(ctx context.Context, table string, details SQLInjectionDetails) {
	details.Value = logging.SanitizeValue(details.Value)

	severity, level := "warning", zap.WarnLevel
	if details.Rejected {
		severity, level = "critical", zap.ErrorLevel
	}
	event := a.newEvent(ctx, EventSQLInjectionAttempt, table, severity, details)

	// Marshaling known types cannot fail.
	eventJSON, _ := json.Marshal(event)

	ce := a.logger.Check(level, "SQL injection attempt detected")
	if ce == nil {
		return
	}
	ce.Write(
		zap.String("event_json", string(eventJSON)),
		zap.String("event_id", event.EventID.String()),
		zap.String("table", table),
		zap.String("column", details.Column),
		zap.String("fingerprint", details.Fingerprint),
		zap.Bool("rejected", details.Rejected),
		zap.String("client_ip", event.ClientIP),
		zap.String("severity", severity),
	)
}

// LogRowWrite records a committed row write at INFO level.
// Note: This generates one entry per edited row.
func (a *SecurityAuditor) LogRowWrite(ctx context.Context, table string, details RowWriteDetails) {
	event := a.newEvent(ctx, EventRowWrite, table, "info", details)
	eventJSON, _ := json.Marshal(event)

	fields := []zap.Field{
		zap.String("event_json", string(eventJSON)),
		zap.String("event_id", event.EventID.String()),
		zap.String("table", table),
		zap.String("operation", details.Operation),
		zap.Int64("rows_affected", details.RowsAffected),
		zap.String("client_ip", event.ClientIP),
	}
	if details.Index != nil {
		fields = append(fields, zap.Int64("index", *details.Index))
	}
	a.logger.Info("Row write", fields...)
}
