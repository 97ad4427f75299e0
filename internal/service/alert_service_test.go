package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placetrack/compliance-api/internal/models"
	appErrors "github.com/placetrack/compliance-api/pkg/errors"
)

type alertLifecycleStub struct {
	alerts  map[string]*models.Alert
	entries []models.AuditLog
	listed  []models.Alert
	listErr error
}

func newAlertLifecycleStub(alerts ...*models.Alert) *alertLifecycleStub {
	s := &alertLifecycleStub{alerts: map[string]*models.Alert{}}
	for _, alert := range alerts {
		s.alerts[alert.ID] = alert
	}
	return s
}

func (s *alertLifecycleStub) List(_ context.Context, _ models.AlertFilter) ([]models.Alert, int, error) {
	if s.listErr != nil {
		return nil, 0, s.listErr
	}
	return s.listed, len(s.listed), nil
}

func (s *alertLifecycleStub) GetByID(_ context.Context, id string) (*models.Alert, error) {
	alert, ok := s.alerts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *alert
	return &copied, nil
}

func (s *alertLifecycleStub) Transition(_ context.Context, alert *models.Alert, from []models.AlertStatus, entry *models.AuditLog) (bool, error) {
	stored, ok := s.alerts[alert.ID]
	if !ok {
		return false, nil
	}
	if !statusIn(stored.Status, from) {
		return false, nil
	}
	*stored = *alert
	entry.EntityID = alert.ID
	s.entries = append(s.entries, *entry)
	return true, nil
}

func activeAlert(id string) *models.Alert {
	return &models.Alert{
		ID:            id,
		Type:          models.AlertTypeExpiryReminder,
		Severity:      models.SeverityMedium,
		DashboardType: models.DashboardStudent,
		EntityID:      "STU002",
		Status:        models.AlertStatusActive,
		CreatedAt:     date("2025-10-01"),
	}
}

func newAlertServiceForTest(store *alertLifecycleStub) *AlertService {
	svc := NewAlertService(store, nil, nil, nil)
	svc.now = func() time.Time { return date("2025-10-10") }
	return svc
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return appErrors.FromError(err).Code
}

func TestAlertServiceAcknowledgeFromActive(t *testing.T) {
	store := newAlertLifecycleStub(activeAlert("alert-1"))
	svc := newAlertServiceForTest(store)

	notes := "looking into it"
	alert, err := svc.Acknowledge(context.Background(), "alert-1", "user-7", &notes)
	require.NoError(t, err)

	assert.Equal(t, models.AlertStatusAcknowledged, alert.Status)
	require.NotNil(t, alert.AcknowledgedAt)
	require.NotNil(t, alert.AcknowledgedBy)
	assert.Equal(t, "user-7", *alert.AcknowledgedBy)
	require.NotNil(t, alert.Notes)
	assert.Equal(t, notes, *alert.Notes)
}

func TestAlertServiceReacknowledgeIsInvalidState(t *testing.T) {
	store := newAlertLifecycleStub(activeAlert("alert-1"))
	svc := newAlertServiceForTest(store)

	_, err := svc.Acknowledge(context.Background(), "alert-1", "user-7", nil)
	require.NoError(t, err)

	_, err = svc.Acknowledge(context.Background(), "alert-1", "user-7", nil)
	assert.Equal(t, "INVALID_STATE", errCode(t, err))
}

func TestAlertServiceAcknowledgeFromEscalated(t *testing.T) {
	alert := activeAlert("alert-1")
	alert.Status = models.AlertStatusEscalated
	store := newAlertLifecycleStub(alert)
	svc := newAlertServiceForTest(store)

	result, err := svc.Acknowledge(context.Background(), "alert-1", "user-7", nil)
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusAcknowledged, result.Status)
}

func TestAlertServiceUnknownIDIsNotFound(t *testing.T) {
	svc := newAlertServiceForTest(newAlertLifecycleStub())

	_, err := svc.Acknowledge(context.Background(), "missing", "user-7", nil)
	assert.Equal(t, "NOT_FOUND", errCode(t, err))
}

func TestAlertServiceResolveLegality(t *testing.T) {
	cases := []struct {
		status models.AlertStatus
		legal  bool
	}{
		{models.AlertStatusActive, true},
		{models.AlertStatusAcknowledged, true},
		{models.AlertStatusEscalated, true},
		{models.AlertStatusResolved, false},
		{models.AlertStatusDismissed, false},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			alert := activeAlert("alert-1")
			alert.Status = tc.status
			svc := newAlertServiceForTest(newAlertLifecycleStub(alert))

			result, err := svc.Resolve(context.Background(), "alert-1", "user-7", nil)
			if !tc.legal {
				assert.Equal(t, "INVALID_STATE", errCode(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.AlertStatusResolved, result.Status)
			require.NotNil(t, result.ResolvedBy)
			assert.Equal(t, "user-7", *result.ResolvedBy)
		})
	}
}

func TestAlertServiceDismissIsTerminal(t *testing.T) {
	store := newAlertLifecycleStub(activeAlert("alert-1"))
	svc := newAlertServiceForTest(store)

	_, err := svc.Dismiss(context.Background(), "alert-1", "user-7", nil)
	require.NoError(t, err)

	_, err = svc.Resolve(context.Background(), "alert-1", "user-7", nil)
	assert.Equal(t, "INVALID_STATE", errCode(t, err))
}

func TestAlertServiceEveryTransitionWritesOneAuditEntry(t *testing.T) {
	store := newAlertLifecycleStub(activeAlert("alert-1"), activeAlert("alert-2"), activeAlert("alert-3"))
	svc := newAlertServiceForTest(store)
	ctx := context.Background()

	_, err := svc.Acknowledge(ctx, "alert-1", "user-7", nil)
	require.NoError(t, err)
	_, err = svc.Resolve(ctx, "alert-2", "user-7", nil)
	require.NoError(t, err)
	_, err = svc.Dismiss(ctx, "alert-3", "user-7", nil)
	require.NoError(t, err)

	require.Len(t, store.entries, 3)
	assert.Equal(t, models.AuditActionAlertAcknowledge, store.entries[0].Action)
	assert.Equal(t, "alert-1", store.entries[0].EntityID)
	assert.Equal(t, models.AuditActionAlertResolve, store.entries[1].Action)
	assert.Equal(t, models.AuditActionAlertDismiss, store.entries[2].Action)
	for _, entry := range store.entries {
		require.NotNil(t, entry.UserID)
		assert.Equal(t, "user-7", *entry.UserID)
		assert.NotEmpty(t, entry.Changes)
	}
}

func TestAlertServiceListWithoutCache(t *testing.T) {
	store := newAlertLifecycleStub()
	store.listed = []models.Alert{*activeAlert("alert-1")}
	svc := newAlertServiceForTest(store)

	alerts, pagination, cacheHit, err := svc.List(context.Background(), models.AlertFilter{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.False(t, cacheHit)
	assert.Len(t, alerts, 1)
	require.NotNil(t, pagination)
	assert.Equal(t, 1, pagination.TotalCount)
}
