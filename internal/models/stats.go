package models

import "time"

// AlertStats aggregates alert counts for one dashboard. Computed on demand.
type AlertStats struct {
	Total     int `db:"total" json:"total"`
	Active    int `db:"active" json:"active"`
	Escalated int `db:"escalated" json:"escalated"`
	Critical  int `db:"critical" json:"critical"`
	Overdue   int `db:"overdue" json:"overdue"`
}

// TaskStats aggregates scheduled task counts for one dashboard.
type TaskStats struct {
	Total    int `db:"total" json:"total"`
	Overdue  int `db:"overdue" json:"overdue"`
	Upcoming int `db:"upcoming" json:"upcoming"`
}

// DashboardStats is the combined on-demand stats payload. It is never cached;
// every read reflects current storage.
type DashboardStats struct {
	DashboardType DashboardType `json:"dashboard_type"`
	Alerts        AlertStats    `json:"alerts"`
	Tasks         TaskStats     `json:"tasks"`
	GeneratedAt   time.Time     `json:"generated_at"`
}
