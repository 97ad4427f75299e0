package models

import "time"

// AlertType classifies the compliance condition that raised an alert.
type AlertType string

const (
	AlertTypeExpiryReminder      AlertType = "EXPIRY_REMINDER"
	AlertTypeComplianceBreach    AlertType = "COMPLIANCE_BREACH"
	AlertTypeDeadlineApproaching AlertType = "DEADLINE_APPROACHING"
	AlertTypeOverdueTask         AlertType = "OVERDUE_TASK"
	AlertTypeAuditDue            AlertType = "AUDIT_DUE"
	AlertTypeDocumentMissing     AlertType = "DOCUMENT_MISSING"
	AlertTypeValidationRequired  AlertType = "VALIDATION_REQUIRED"
	AlertTypeEscalation          AlertType = "ESCALATION"
)

// AlertSeverity is ordered from LOW to CRITICAL.
type AlertSeverity string

const (
	SeverityLow      AlertSeverity = "LOW"
	SeverityMedium   AlertSeverity = "MEDIUM"
	SeverityHigh     AlertSeverity = "HIGH"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// Rank returns the sort weight of a severity; unknown values sort lowest.
func (s AlertSeverity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// DashboardType is the portal partition an alert or task belongs to.
type DashboardType string

const (
	DashboardStudent  DashboardType = "STUDENT"
	DashboardTrainer  DashboardType = "TRAINER"
	DashboardProvider DashboardType = "PROVIDER"
	DashboardRTO      DashboardType = "RTO"
	DashboardAdmin    DashboardType = "ADMIN"
)

// AllDashboardTypes enumerates every portal partition the evaluator scans.
func AllDashboardTypes() []DashboardType {
	return []DashboardType{DashboardStudent, DashboardTrainer, DashboardProvider, DashboardRTO, DashboardAdmin}
}

// AlertStatus tracks the alert lifecycle.
type AlertStatus string

const (
	AlertStatusActive       AlertStatus = "ACTIVE"
	AlertStatusAcknowledged AlertStatus = "ACKNOWLEDGED"
	AlertStatusResolved     AlertStatus = "RESOLVED"
	AlertStatusEscalated    AlertStatus = "ESCALATED"
	AlertStatusDismissed    AlertStatus = "DISMISSED"
)

// Terminal reports whether no further transitions are allowed.
func (s AlertStatus) Terminal() bool {
	return s == AlertStatusResolved || s == AlertStatusDismissed
}

// AlertCategory groups alerts for filtering and severity policy.
type AlertCategory string

const (
	CategoryCompliance    AlertCategory = "COMPLIANCE"
	CategorySafety        AlertCategory = "SAFETY"
	CategoryDocumentation AlertCategory = "DOCUMENTATION"
	CategoryAssessment    AlertCategory = "ASSESSMENT"
	CategoryPlacement     AlertCategory = "PLACEMENT"
	CategoryAudit         AlertCategory = "AUDIT"
	CategorySystem        AlertCategory = "SYSTEM"
)

// Alert represents one detected compliance condition requiring attention.
type Alert struct {
	ID              string        `db:"id" json:"id"`
	Type            AlertType     `db:"type" json:"type"`
	Severity        AlertSeverity `db:"severity" json:"severity"`
	DashboardType   DashboardType `db:"dashboard_type" json:"dashboard_type"`
	EntityID        string        `db:"entity_id" json:"entity_id"`
	EntityName      string        `db:"entity_name" json:"entity_name"`
	Title           string        `db:"title" json:"title"`
	Message         string        `db:"message" json:"message"`
	DueDate         time.Time     `db:"due_date" json:"due_date"`
	Status          AlertStatus   `db:"status" json:"status"`
	Category        AlertCategory `db:"category" json:"category"`
	EscalationLevel int           `db:"escalation_level" json:"escalation_level"`
	ReminderDays    int           `db:"reminder_days" json:"reminder_days"`
	SourceAlertID   *string       `db:"source_alert_id" json:"source_alert_id,omitempty"`
	AcknowledgedAt  *time.Time    `db:"acknowledged_at" json:"acknowledged_at,omitempty"`
	AcknowledgedBy  *string       `db:"acknowledged_by" json:"acknowledged_by,omitempty"`
	ResolvedAt      *time.Time    `db:"resolved_at" json:"resolved_at,omitempty"`
	ResolvedBy      *string       `db:"resolved_by" json:"resolved_by,omitempty"`
	Notes           *string       `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// AlertFilter captures filtering criteria for listing alerts.
type AlertFilter struct {
	DashboardType *DashboardType
	EntityID      string
	Status        *AlertStatus
	Severity      *AlertSeverity
	Category      *AlertCategory
	Type          *AlertType
	DueWithinDays *int
	Page          int
	PageSize      int
}
