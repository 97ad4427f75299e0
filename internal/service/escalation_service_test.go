package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placetrack/compliance-api/internal/models"
)

// escalationStoreStub mimics the guarded transition: only alerts still ACTIVE
// escalate, exactly once.
type escalationStoreStub struct {
	alerts    map[string]*models.Alert
	followUps []models.Alert
	entries   []models.AuditLog
	listErr   error
	afterList func()
}

func newEscalationStoreStub(alerts ...*models.Alert) *escalationStoreStub {
	s := &escalationStoreStub{alerts: map[string]*models.Alert{}}
	for _, alert := range alerts {
		s.alerts[alert.ID] = alert
	}
	return s
}

func (s *escalationStoreStub) ListActiveOlderThan(_ context.Context, cutoff time.Time) ([]models.Alert, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []models.Alert
	for _, alert := range s.alerts {
		if alert.Status == models.AlertStatusActive && alert.CreatedAt.Before(cutoff) {
			out = append(out, *alert)
		}
	}
	if s.afterList != nil {
		s.afterList()
	}
	return out, nil
}

func (s *escalationStoreStub) Escalate(_ context.Context, original, followUp *models.Alert, entries []*models.AuditLog) (bool, error) {
	stored, ok := s.alerts[original.ID]
	if !ok || stored.Status != models.AlertStatusActive {
		return false, nil
	}
	*stored = *original
	s.alerts[followUp.ID] = followUp
	s.followUps = append(s.followUps, *followUp)
	for _, entry := range entries {
		s.entries = append(s.entries, *entry)
	}
	return true, nil
}

func TestEscalationServiceEscalatesStaleActiveAlert(t *testing.T) {
	t0 := date("2025-09-01")
	original := &models.Alert{
		ID:            "alert-1",
		Type:          models.AlertTypeExpiryReminder,
		Severity:      models.SeverityMedium,
		DashboardType: models.DashboardStudent,
		EntityID:      "STU002",
		Title:         "WWCC expires in 10 days",
		Status:        models.AlertStatusActive,
		Category:      models.CategoryCompliance,
		CreatedAt:     t0,
	}
	store := newEscalationStoreStub(original)
	svc := NewEscalationService(store, 14*24*time.Hour, nil, nil)
	svc.now = func() time.Time { return t0.AddDate(0, 0, 15) }

	escalated, err := svc.Process(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, escalated)

	assert.Equal(t, models.AlertStatusEscalated, store.alerts["alert-1"].Status)
	assert.Equal(t, 1, store.alerts["alert-1"].EscalationLevel)

	require.Len(t, store.followUps, 1)
	followUp := store.followUps[0]
	assert.Equal(t, models.AlertTypeEscalation, followUp.Type)
	assert.Equal(t, models.SeverityCritical, followUp.Severity)
	assert.Equal(t, models.DashboardAdmin, followUp.DashboardType)
	assert.Equal(t, models.AlertStatusActive, followUp.Status)
	require.NotNil(t, followUp.SourceAlertID)
	assert.Equal(t, "alert-1", *followUp.SourceAlertID)

	// The sweep stamps the follow-up itself; a zero creation time would make
	// the next sweep treat the follow-up as a stale candidate.
	assert.Equal(t, t0.AddDate(0, 0, 15), followUp.CreatedAt)
	assert.Equal(t, t0.AddDate(0, 0, 15), followUp.UpdatedAt)
}

func TestEscalationServiceIsOneShot(t *testing.T) {
	t0 := date("2025-09-01")
	original := &models.Alert{
		ID:        "alert-1",
		Status:    models.AlertStatusActive,
		CreatedAt: t0,
	}
	store := newEscalationStoreStub(original)
	svc := NewEscalationService(store, 14*24*time.Hour, nil, nil)
	svc.now = func() time.Time { return t0.AddDate(0, 0, 15) }

	escalated, err := svc.Process(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, escalated)

	escalated, err = svc.Process(context.Background())
	require.NoError(t, err)
	assert.Zero(t, escalated, "an escalated alert must not escalate again")
	assert.Len(t, store.followUps, 1)
}

func TestEscalationServiceIgnoresFreshAlerts(t *testing.T) {
	t0 := date("2025-09-01")
	store := newEscalationStoreStub(&models.Alert{
		ID:        "alert-1",
		Status:    models.AlertStatusActive,
		CreatedAt: t0,
	})
	svc := NewEscalationService(store, 14*24*time.Hour, nil, nil)
	svc.now = func() time.Time { return t0.AddDate(0, 0, 10) }

	escalated, err := svc.Process(context.Background())
	require.NoError(t, err)
	assert.Zero(t, escalated)
}

func TestEscalationServiceSkipsConcurrentlyTransitionedAlert(t *testing.T) {
	t0 := date("2025-09-01")
	original := &models.Alert{ID: "alert-1", Status: models.AlertStatusActive, CreatedAt: t0}
	store := newEscalationStoreStub(original)
	svc := NewEscalationService(store, 14*24*time.Hour, nil, nil)
	svc.now = func() time.Time { return t0.AddDate(0, 0, 15) }

	// Another writer acknowledges between candidate listing and the guarded
	// update. The stub flips the status after listing; the sweep skips quietly.
	store.afterList = func() {
		original.Status = models.AlertStatusAcknowledged
	}

	escalated, err := svc.Process(context.Background())
	require.NoError(t, err)
	assert.Zero(t, escalated)
	assert.Empty(t, store.followUps)
}

func TestEscalationServiceWritesBothAuditEntries(t *testing.T) {
	t0 := date("2025-09-01")
	store := newEscalationStoreStub(&models.Alert{ID: "alert-1", Status: models.AlertStatusActive, CreatedAt: t0})
	svc := NewEscalationService(store, 14*24*time.Hour, nil, nil)
	svc.now = func() time.Time { return t0.AddDate(0, 0, 15) }

	_, err := svc.Process(context.Background())
	require.NoError(t, err)

	require.Len(t, store.entries, 2)
	assert.Equal(t, models.AuditActionAlertEscalate, store.entries[0].Action)
	assert.Equal(t, "alert-1", store.entries[0].EntityID)
	assert.Equal(t, models.AuditActionAlertCreate, store.entries[1].Action)
	assert.Equal(t, store.followUps[0].ID, store.entries[1].EntityID)
}
