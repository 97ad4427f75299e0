package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/placetrack/compliance-api/internal/models"
)

// TrackedItemRepository reads the dated items the expiry evaluator scans.
type TrackedItemRepository struct {
	db *sqlx.DB
}

// NewTrackedItemRepository creates the repository.
func NewTrackedItemRepository(db *sqlx.DB) *TrackedItemRepository {
	return &TrackedItemRepository{db: db}
}

// ListByDashboardType returns tracked items for one portal partition, soonest
// expiry first so scans surface the most urgent items even when truncated.
func (r *TrackedItemRepository) ListByDashboardType(ctx context.Context, dashboardType models.DashboardType) ([]models.TrackedItem, error) {
	const query = `SELECT id, dashboard_type, entity_id, entity_name, name, category, expiry_date, created_at
FROM tracked_items WHERE dashboard_type = $1 ORDER BY expiry_date ASC`
	var items []models.TrackedItem
	if err := r.db.SelectContext(ctx, &items, query, dashboardType); err != nil {
		return nil, fmt.Errorf("list tracked items: %w", err)
	}
	return items, nil
}
