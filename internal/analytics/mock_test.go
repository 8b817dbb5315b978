package analytics

import (
	"UTMTrack-Backend/internal/domain"
	"context"

	"github.com/stretchr/testify/mock"
)

// MockForwarder is a mock implementation of Forwarder
type MockForwarder struct {
	mock.Mock
}

func (m *MockForwarder) Name() string { return "mock" }

func (m *MockForwarder) SendClickEvent(ctx context.Context, link *domain.TrackingLink, click *domain.ClickEvent) error {
	args := m.Called(ctx, link, click)
	return args.Error(0)
}

func (m *MockForwarder) SendConversionEvent(ctx context.Context, conv *domain.ConversionEvent, link *domain.TrackingLink) error {
	args := m.Called(ctx, conv, link)
	return args.Error(0)
}

func (m *MockForwarder) FetchAnalytics(ctx context.Context, window Window) (*Report, error) {
	args := m.Called(ctx, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Report), args.Error(1)
}

func (m *MockForwarder) HealthCheck(ctx context.Context) Health {
	args := m.Called(ctx)
	return args.Get(0).(Health)
}

func (m *MockForwarder) Status() ProviderStatus {
	return ProviderStatus{Provider: m.Name(), Configured: true, CanQuery: true}
}
