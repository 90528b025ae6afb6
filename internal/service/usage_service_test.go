package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docuflow/internal/service"
	"docuflow/mocks"
)

func newUsageService() (service.UsageService, *mocks.MockUsageRepo, *mocks.MockBilling) {
	usageRepo := new(mocks.MockUsageRepo)
	billing := new(mocks.MockBilling)
	return service.NewUsageService(usageRepo, billing), usageRepo, billing
}

func TestGetStats_MidPeriod(t *testing.T) {
	svc, usageRepo, billing := newUsageService()
	tenantID := uuid.New()

	usageRepo.On("PagesUsedSince", mock.Anything, tenantID, mock.MatchedBy(func(since time.Time) bool {
		// Period starts at the first instant of the current month, UTC.
		now := time.Now().UTC()
		return since.Day() == 1 && since.Month() == now.Month() &&
			since.Year() == now.Year() && since.Hour() == 0
	})).Return(25, nil)
	billing.On("QuotaCeiling", mock.Anything, tenantID).Return(100, nil)

	stats, err := svc.GetStats(context.Background(), tenantID)
	require.NoError(t, err)

	assert.Equal(t, 25, stats.PagesUsed)
	assert.Equal(t, 100, stats.PageLimit)
	assert.Equal(t, 25.0, stats.PercentageUsed)
	assert.Equal(t, 75, stats.RemainingPages)
}

func TestGetStats_OverCeilingClampsRemaining(t *testing.T) {
	svc, usageRepo, billing := newUsageService()
	tenantID := uuid.New()

	usageRepo.On("PagesUsedSince", mock.Anything, tenantID, mock.AnythingOfType("time.Time")).Return(120, nil)
	billing.On("QuotaCeiling", mock.Anything, tenantID).Return(100, nil)

	stats, err := svc.GetStats(context.Background(), tenantID)
	require.NoError(t, err)

	assert.Equal(t, 120.0, stats.PercentageUsed)
	assert.Equal(t, 0, stats.RemainingPages)
}

func TestGetStats_ZeroCeiling(t *testing.T) {
	svc, usageRepo, billing := newUsageService()
	tenantID := uuid.New()

	usageRepo.On("PagesUsedSince", mock.Anything, tenantID, mock.AnythingOfType("time.Time")).Return(0, nil)
	billing.On("QuotaCeiling", mock.Anything, tenantID).Return(0, nil)

	stats, err := svc.GetStats(context.Background(), tenantID)
	require.NoError(t, err)

	assert.Equal(t, 0.0, stats.PercentageUsed)
	assert.Equal(t, 0, stats.RemainingPages)
}
