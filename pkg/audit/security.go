// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy
// parsing and integration with security information and event management
// systems. Offending raw text is never included in any event.
package audit

import (
	"encoding/json"
	"time"

	libinjection "github.com/corazawaf/libinjection-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventGuardRejection is logged when the sensitive-data guard blocks a
	// value from being persisted.
	EventGuardRejection SecurityEventType = "sensitive_data_rejected"
	// EventSQLInjectionAttempt is logged when libinjection flags SQL
	// injection patterns in free-text reviewer input.
	EventSQLInjectionAttempt SecurityEventType = "sql_injection_attempt"
)

// SecurityEvent represents an auditable security event with all relevant
// context for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	UpdateID  uuid.UUID         `json:"update_id,omitempty"`
	Actor     string            `json:"actor,omitempty"`
	Details   any               `json:"details"`
	Severity  string            `json:"severity"` // info, warning, critical
}

// GuardRejectionDetails identifies a blocked value by rule and structural
// location, never by content.
type GuardRejectionDetails struct {
	RuleName  string `json:"rule_name"`
	JSONPath  string `json:"json_path"`
	Operation string `json:"operation"`
}

// InjectionDetails contains specifics of a detected injection attempt.
type InjectionDetails struct {
	FieldName   string `json:"field_name"`
	Fingerprint string `json:"fingerprint"` // libinjection fingerprint for pattern analysis
}

// SecurityAuditor logs security events for SIEM consumption.
type SecurityAuditor struct {
	logger *zap.Logger
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger
// namespace for easy filtering in SIEM systems.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{logger: logger.Named("security_audit")}
}

// LogGuardRejection records a sensitive-data guard rejection. Logged at
// ERROR level with "critical" severity: unredacted data almost reached
// persisted state.
func (a *SecurityAuditor) LogGuardRejection(updateID uuid.UUID, actor string, details GuardRejectionDetails) {
	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventGuardRejection,
		UpdateID:  updateID,
		Actor:     actor,
		Details:   details,
		Severity:  "critical",
	}

	// Ignoring error as marshaling known types should never fail
	eventJSON, _ := json.Marshal(event)

	a.logger.Error("Sensitive data rejected by guard",
		zap.String("event_json", string(eventJSON)),
		zap.String("update_id", updateID.String()),
		zap.String("rule_name", details.RuleName),
		zap.String("json_path", details.JSONPath),
		zap.String("operation", details.Operation),
		zap.String("actor", actor),
		zap.String("severity", "critical"),
	)
}

// AuditFreeText runs libinjection over free-text user input and logs an
// injection attempt when it fingerprints as SQLi. Detection is log-only:
// the redaction guard remains the enforcement gate, this exists so SIEM
// tooling sees probing attempts against the review surface.
func (a *SecurityAuditor) AuditFreeText(updateID uuid.UUID, actor, fieldName, text string) {
	if text == "" {
		return
	}

	isSQLi, fingerprint := libinjection.IsSQLi(text)
	if !isSQLi {
		return
	}

	event := SecurityEvent{
		Timestamp: time.Now().UTC(),
		EventType: EventSQLInjectionAttempt,
		UpdateID:  updateID,
		Actor:     actor,
		Details: InjectionDetails{
			FieldName:   fieldName,
			Fingerprint: fingerprint,
		},
		Severity: "warning",
	}

	eventJSON, _ := json.Marshal(event)

	a.logger.Warn("SQL injection pattern in free-text input",
		zap.String("event_json", string(eventJSON)),
		zap.String("update_id", updateID.String()),
		zap.String("field_name", fieldName),
		zap.String("fingerprint", fingerprint),
		zap.String("actor", actor),
		zap.String("severity", "warning"),
	)
}
