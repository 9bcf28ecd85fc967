package mocks

import (
	"context"
	"time"

	"github.com/ganot/atelier/internal/domain/history"
	"github.com/stretchr/testify/mock"
)

// ViewRepository is a mock for history.ViewRepository.
type ViewRepository struct {
	mock.Mock
}

func (m *ViewRepository) Record(ctx context.Context, userID, productID string, at time.Time, limit int) error {
	args := m.Called(ctx, userID, productID, at, limit)
	return args.Error(0)
}

func (m *ViewRepository) Recent(ctx context.Context, userID string, limit int) ([]history.Product, error) {
	args := m.Called(ctx, userID, limit)
	if list, ok := args.Get(0).([]history.Product); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ViewRepository) Clear(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

// ProductRepository is a mock for history.ProductRepository.
type ProductRepository struct {
	mock.Mock
}

func (m *ProductRepository) Upsert(ctx context.Context, p *history.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *ProductRepository) Get(ctx context.Context, id string) (*history.Product, error) {
	args := m.Called(ctx, id)
	if p, ok := args.Get(0).(*history.Product); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

// ChangeNotifier is a mock for history.ChangeNotifier.
type ChangeNotifier struct {
	mock.Mock
}

func (m *ChangeNotifier) Notify(userID string) {
	m.Called(userID)
}
