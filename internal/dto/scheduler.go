package dto

// Scheduler actions accepted by the run endpoint.
const (
	SchedulerActionGenerateExpiryAlerts = "generate-expiry-alerts"
	SchedulerActionProcessEscalations   = "process-escalations"
)

// SchedulerRunRequest selects which scheduled job to trigger manually.
type SchedulerRunRequest struct {
	Action string `json:"action" validate:"required"`
}

// SchedulerRunResponse reports the outcome of a manually triggered job.
type SchedulerRunResponse struct {
	Action string `json:"action"`
	Count  int    `json:"count"`
}
