package models

import (
	"encoding/json"
	"time"
)

// AuditAction constants represent state changes recorded in the audit trail.
const (
	AuditActionAlertCreate      = "ALERT_CREATE"
	AuditActionAlertAcknowledge = "ALERT_ACKNOWLEDGE"
	AuditActionAlertResolve     = "ALERT_RESOLVE"
	AuditActionAlertDismiss     = "ALERT_DISMISS"
	AuditActionAlertEscalate    = "ALERT_ESCALATE"
	AuditActionTaskCreate       = "TASK_CREATE"
	AuditActionTaskComplete     = "TASK_COMPLETE"
	AuditActionTaskCancel       = "TASK_CANCEL"
)

// Audit entity type discriminators.
const (
	AuditEntityAlert = "ALERT"
	AuditEntityTask  = "SCHEDULED_TASK"
)

// FieldChange records an old/new pair for a single mutated field.
type FieldChange struct {
	Field string `json:"field"`
	Old   string `json:"old"`
	New   string `json:"new"`
}

// AuditLog is an append-only record of a single state change. Entries are
// never updated, deleted, or compacted.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	Action     string    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   string    `db:"entity_id" json:"entity_id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Details    string    `db:"details" json:"details"`
	Changes    []byte    `db:"changes" json:"changes,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// SetChanges serialises field-level changes onto the entry.
func (l *AuditLog) SetChanges(changes []FieldChange) error {
	if len(changes) == 0 {
		l.Changes = nil
		return nil
	}
	raw, err := json.Marshal(changes)
	if err != nil {
		return err
	}
	l.Changes = raw
	return nil
}

// AuditLogFilter captures filtering criteria for reading the audit trail.
type AuditLogFilter struct {
	EntityType string
	EntityID   string
	Action     string
	UserID     string
	Page       int
	PageSize   int
}
