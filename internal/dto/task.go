package dto

import "time"

// CreateTaskRequest is the payload for manual scheduled task creation.
type CreateTaskRequest struct {
	Title              string    `json:"title" validate:"required,max=255"`
	Description        string    `json:"description" validate:"max=2000"`
	Type               string    `json:"type" validate:"required,oneof=AUDIT VALIDATION RENEWAL REVIEW REPORTING ASSESSMENT MODERATION"`
	Frequency          string    `json:"frequency" validate:"required,oneof=ONCE DAILY WEEKLY MONTHLY QUARTERLY SEMI_ANNUALLY ANNUALLY CUSTOM"`
	CustomIntervalDays *int      `json:"custom_interval_days" validate:"omitempty,gt=0"`
	DashboardType      string    `json:"dashboard_type" validate:"required,oneof=STUDENT TRAINER PROVIDER RTO ADMIN"`
	EntityID           string    `json:"entity_id" validate:"required"`
	EntityName         string    `json:"entity_name" validate:"required,max=255"`
	AssignedTo         *string   `json:"assigned_to" validate:"omitempty,max=255"`
	DueDate            time.Time `json:"due_date" validate:"required"`
}
