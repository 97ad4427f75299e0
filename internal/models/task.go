package models

import "time"

// TaskType classifies a recurring compliance obligation.
type TaskType string

const (
	TaskTypeAudit      TaskType = "AUDIT"
	TaskTypeValidation TaskType = "VALIDATION"
	TaskTypeRenewal    TaskType = "RENEWAL"
	TaskTypeReview     TaskType = "REVIEW"
	TaskTypeReporting  TaskType = "REPORTING"
	TaskTypeAssessment TaskType = "ASSESSMENT"
	TaskTypeModeration TaskType = "MODERATION"
)

// TaskFrequency describes how often a task recurs.
type TaskFrequency string

const (
	FrequencyOnce         TaskFrequency = "ONCE"
	FrequencyDaily        TaskFrequency = "DAILY"
	FrequencyWeekly       TaskFrequency = "WEEKLY"
	FrequencyMonthly      TaskFrequency = "MONTHLY"
	FrequencyQuarterly    TaskFrequency = "QUARTERLY"
	FrequencySemiAnnually TaskFrequency = "SEMI_ANNUALLY"
	FrequencyAnnually     TaskFrequency = "ANNUALLY"
	FrequencyCustom       TaskFrequency = "CUSTOM"
)

// TaskStatus tracks the task lifecycle. OVERDUE is derived at query time and
// never written by a background sweeper.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusOverdue    TaskStatus = "OVERDUE"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

// ScheduledTask represents a recurring or one-off compliance obligation.
type ScheduledTask struct {
	ID                 string        `db:"id" json:"id"`
	Title              string        `db:"title" json:"title"`
	Description        string        `db:"description" json:"description"`
	Type               TaskType      `db:"type" json:"type"`
	Frequency          TaskFrequency `db:"frequency" json:"frequency"`
	CustomIntervalDays *int          `db:"custom_interval_days" json:"custom_interval_days,omitempty"`
	DashboardType      DashboardType `db:"dashboard_type" json:"dashboard_type"`
	EntityID           string        `db:"entity_id" json:"entity_id"`
	EntityName         string        `db:"entity_name" json:"entity_name"`
	AssignedTo         *string       `db:"assigned_to" json:"assigned_to,omitempty"`
	DueDate            time.Time     `db:"due_date" json:"due_date"`
	NextDueDate        time.Time     `db:"next_due_date" json:"next_due_date"`
	Status             TaskStatus    `db:"status" json:"status"`
	LastCompleted      *time.Time    `db:"last_completed" json:"last_completed,omitempty"`
	CreatedAt          time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at" json:"updated_at"`
}

// EffectiveStatus derives the externally visible status: a pending or
// in-progress task whose due date has passed reads as OVERDUE.
func (t *ScheduledTask) EffectiveStatus(now time.Time) TaskStatus {
	if (t.Status == TaskStatusPending || t.Status == TaskStatusInProgress) && t.DueDate.Before(now) {
		return TaskStatusOverdue
	}
	return t.Status
}

// Completable reports whether the task may be marked done.
func (t *ScheduledTask) Completable(now time.Time) bool {
	switch t.EffectiveStatus(now) {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusOverdue:
		return true
	default:
		return false
	}
}

// NextOccurrence advances a due date by one frequency period.
func (f TaskFrequency) NextOccurrence(from time.Time, customIntervalDays *int) time.Time {
	switch f {
	case FrequencyDaily:
		return from.AddDate(0, 0, 1)
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyMonthly:
		return from.AddDate(0, 1, 0)
	case FrequencyQuarterly:
		return from.AddDate(0, 3, 0)
	case FrequencySemiAnnually:
		return from.AddDate(0, 6, 0)
	case FrequencyAnnually:
		return from.AddDate(1, 0, 0)
	case FrequencyCustom:
		if customIntervalDays != nil && *customIntervalDays > 0 {
			return from.AddDate(0, 0, *customIntervalDays)
		}
		return from.AddDate(0, 1, 0)
	default:
		return from
	}
}

// Recurring reports whether completing the task schedules another occurrence.
func (f TaskFrequency) Recurring() bool {
	return f != FrequencyOnce && f != ""
}

// TaskFilter captures filtering criteria for listing scheduled tasks.
type TaskFilter struct {
	DashboardType *DashboardType
	EntityID      string
	Status        *TaskStatus
	Type          *TaskType
	DueWithinDays *int
	Page          int
	PageSize      int
}
