package history_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ganot/atelier/internal/domain/history"
	"github.com/ganot/atelier/internal/domain/viewed"
	"github.com/ganot/atelier/internal/repository"
	"github.com/ganot/atelier/internal/repository/mocks"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var jacket = &history.Product{ID: "p1", Name: "Linen jacket", Price: 420, Image: "/img/p1.jpg", Link: "/products/p1"}

func TestHistoryService_RecordViewNotifies(t *testing.T) {
	ctx := context.Background()
	views := &mocks.ViewRepository{}
	products := &mocks.ProductRepository{}
	notifier := &mocks.ChangeNotifier{}

	products.On("Get", ctx, "p1").Return(jacket, nil)
	views.On("Record", ctx, "u1", "p1", mock.AnythingOfType("time.Time"), viewed.MaxItems).Return(nil)
	notifier.On("Notify", "u1").Return()

	svc := history.NewService(views, products, nil)
	svc.SetNotifier(notifier)
	require.NoError(t, svc.RecordView(ctx, "u1", "p1"))

	views.AssertExpectations(t)
	notifier.AssertExpectations(t)
}

func TestHistoryService_RecordViewUnknownProduct(t *testing.T) {
	ctx := context.Background()
	views := &mocks.ViewRepository{}
	products := &mocks.ProductRepository{}
	products.On("Get", ctx, "ghost").Return(nil, repository.ErrNotFound)

	svc := history.NewService(views, products, nil)
	err := svc.RecordView(ctx, "u1", "ghost")
	require.ErrorIs(t, err, history.ErrProductNotFound)
	views.AssertNotCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHistoryService_RecordViewInvalidInput(t *testing.T) {
	svc := history.NewService(&mocks.ViewRepository{}, &mocks.ProductRepository{}, nil)
	require.ErrorIs(t, svc.RecordView(context.Background(), "", "p1"), history.ErrInvalidInput)
	require.ErrorIs(t, svc.RecordView(context.Background(), "u1", " "), history.ErrInvalidInput)
}

func TestHistoryService_RecentNeverNil(t *testing.T) {
	ctx := context.Background()
	views := &mocks.ViewRepository{}
	views.On("Recent", ctx, "u1", viewed.MaxItems).Return(nil, nil)

	svc := history.NewService(views, &mocks.ProductRepository{}, nil)
	items, err := svc.Recent(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, items)
	require.Empty(t, items)
}

func TestHistoryService_RecentMapsProducts(t *testing.T) {
	ctx := context.Background()
	views := &mocks.ViewRepository{}
	views.On("Recent", ctx, "u1", viewed.MaxItems).Return([]history.Product{*jacket}, nil)

	svc := history.NewService(views, &mocks.ProductRepository{}, nil)
	items, err := svc.Recent(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, []viewed.TrackedItem{{ID: "p1", Name: "Linen jacket", Price: 420, Image: "/img/p1.jpg", Link: "/products/p1"}}, items)
}

func TestHistoryService_ClearWrapsErrors(t *testing.T) {
	ctx := context.Background()
	views := &mocks.ViewRepository{}
	boom := errors.New("disk full")
	views.On("Clear", ctx, "u1").Return(boom)

	svc := history.NewService(views, &mocks.ProductRepository{}, nil)
	require.ErrorIs(t, svc.Clear(ctx, "u1"), boom)
}

func TestHistoryService_UpsertProductValidates(t *testing.T) {
	ctx := context.Background()
	products := &mocks.ProductRepository{}
	products.On("Upsert", ctx, mock.AnythingOfType("*history.Product")).Return(nil)

	svc := history.NewService(&mocks.ViewRepository{}, products, nil)

	_, err := svc.UpsertProduct(ctx, history.Product{ID: "p2", Name: "Tie", Price: -1, Image: "/i", Link: "/l"})
	require.ErrorIs(t, err, history.ErrInvalidInput)

	_, err = svc.UpsertProduct(ctx, history.Product{ID: "p2", Name: "", Price: 10, Image: "/i", Link: "/l"})
	require.ErrorIs(t, err, history.ErrInvalidInput)

	p, err := svc.UpsertProduct(ctx, history.Product{ID: "p2", Name: "Tie", Price: 0, Image: "/i", Link: "/l"})
	require.NoError(t, err)
	require.False(t, p.UpdatedAt.IsZero())
	products.AssertNumberOfCalls(t, "Upsert", 1)
}
