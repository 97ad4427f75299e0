package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placetrack/compliance-api/internal/dto"
	"github.com/placetrack/compliance-api/internal/models"
	appErrors "github.com/placetrack/compliance-api/pkg/errors"
)

type scannerStub struct {
	count int
	err   error
	calls int
}

func (s *scannerStub) Scan(context.Context) (int, error) {
	s.calls++
	return s.count, s.err
}

type processorStub struct {
	count int
	err   error
	calls int
}

func (s *processorStub) Process(context.Context) (int, error) {
	s.calls++
	return s.count, s.err
}

type alertStatsStub struct {
	stats models.AlertStats
	err   error
}

func (s *alertStatsStub) Stats(context.Context, models.DashboardType) (*models.AlertStats, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &s.stats, nil
}

type taskStatsStub struct {
	stats models.TaskStats
}

func (s *taskStatsStub) Stats(context.Context, models.DashboardType) (*models.TaskStats, error) {
	return &s.stats, nil
}

type invalidatorSpy struct {
	patterns []string
}

func (s *invalidatorSpy) Invalidate(pattern string) {
	s.patterns = append(s.patterns, pattern)
}

func TestSchedulerServiceRunDispatchesGenerate(t *testing.T) {
	scanner := &scannerStub{count: 3}
	svc := NewSchedulerService(scanner, &processorStub{}, &alertStatsStub{}, &taskStatsStub{}, nil, nil)

	result, err := svc.Run(context.Background(), dto.SchedulerActionGenerateExpiryAlerts)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Count)
	assert.Equal(t, dto.SchedulerActionGenerateExpiryAlerts, result.Action)
	assert.Equal(t, 1, scanner.calls)
}

func TestSchedulerServiceRunDispatchesEscalations(t *testing.T) {
	processor := &processorStub{count: 2}
	svc := NewSchedulerService(&scannerStub{}, processor, &alertStatsStub{}, &taskStatsStub{}, nil, nil)

	result, err := svc.Run(context.Background(), dto.SchedulerActionProcessEscalations)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Count)
	assert.Equal(t, 1, processor.calls)
}

func TestSchedulerServiceRunRejectsUnknownAction(t *testing.T) {
	svc := NewSchedulerService(&scannerStub{}, &processorStub{}, &alertStatsStub{}, &taskStatsStub{}, nil, nil)

	_, err := svc.Run(context.Background(), "compact-alerts")
	assert.Equal(t, "VALIDATION_ERROR", errCode(t, err))
}

func TestSchedulerServiceRunKeepsTypedErrorCode(t *testing.T) {
	scanner := &scannerStub{err: appErrors.Clone(appErrors.ErrStorageUnavailable, "alerts table unreachable")}
	svc := NewSchedulerService(scanner, &processorStub{}, &alertStatsStub{}, &taskStatsStub{}, nil, nil)

	_, err := svc.Run(context.Background(), dto.SchedulerActionGenerateExpiryAlerts)
	require.Error(t, err)
	assert.Equal(t, "STORAGE_UNAVAILABLE", errCode(t, err))
}

func TestSchedulerServiceInvalidatesCacheAfterCreation(t *testing.T) {
	spy := &invalidatorSpy{}
	svc := NewSchedulerService(&scannerStub{count: 1}, &processorStub{}, &alertStatsStub{}, &taskStatsStub{}, spy, nil)

	_, err := svc.GenerateExpiryAlerts(context.Background())
	require.NoError(t, err)
	require.Len(t, spy.patterns, 1)
	assert.Equal(t, "compliance:alerts:*", spy.patterns[0])
}

func TestSchedulerServiceSkipsInvalidationWhenNothingCreated(t *testing.T) {
	spy := &invalidatorSpy{}
	svc := NewSchedulerService(&scannerStub{count: 0}, &processorStub{}, &alertStatsStub{}, &taskStatsStub{}, spy, nil)

	_, err := svc.GenerateExpiryAlerts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, spy.patterns)
}

func TestSchedulerServiceDashboardStats(t *testing.T) {
	svc := NewSchedulerService(&scannerStub{}, &processorStub{},
		&alertStatsStub{stats: models.AlertStats{Total: 10, Active: 4, Critical: 2, Overdue: 1}},
		&taskStatsStub{stats: models.TaskStats{Total: 5, Overdue: 2, Upcoming: 1}}, nil, nil)

	stats, err := svc.DashboardStats(context.Background(), models.DashboardRTO)
	require.NoError(t, err)
	assert.Equal(t, models.DashboardRTO, stats.DashboardType)
	assert.Equal(t, 4, stats.Alerts.Active)
	assert.Equal(t, 2, stats.Tasks.Overdue)
	assert.False(t, stats.GeneratedAt.IsZero())
}

func TestSchedulerServiceDashboardStatsPropagatesStorageErrors(t *testing.T) {
	svc := NewSchedulerService(&scannerStub{}, &processorStub{},
		&alertStatsStub{err: errors.New("connection refused")}, &taskStatsStub{}, nil, nil)

	_, err := svc.DashboardStats(context.Background(), models.DashboardRTO)
	assert.Equal(t, "STORAGE_UNAVAILABLE", errCode(t, err))
}
