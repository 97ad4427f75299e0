package models

import "time"

// TrackedItem is a dated credential, document, contract, or internal audit
// the expiry evaluator watches. Items live in their own table so the
// evaluator stays parameterised over its data source.
type TrackedItem struct {
	ID            string        `db:"id" json:"id"`
	DashboardType DashboardType `db:"dashboard_type" json:"dashboard_type"`
	EntityID      string        `db:"entity_id" json:"entity_id"`
	EntityName    string        `db:"entity_name" json:"entity_name"`
	Name          string        `db:"name" json:"name"`
	Category      AlertCategory `db:"category" json:"category"`
	ExpiryDate    time.Time     `db:"expiry_date" json:"expiry_date"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
}
