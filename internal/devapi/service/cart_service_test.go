package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/leedontbeshy/unimerch-client/internal/devapi/repository"
)

func newCartService(t *testing.T) (*CartService, *countingCarts, *mockCache) {
	t.Helper()
	carts := &countingCarts{MemoryCartRepository: repository.NewMemoryCartRepository()}
	c := newMockCache()
	return NewCartService(carts, newMockProducts(), c, zap.NewNop()), carts, c
}

func TestGetCart_NoCartIsEmpty(t *testing.T) {
	svc, _, _ := newCartService(t)

	view, err := svc.GetCart(context.Background(), 1)

	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.True(t, view.Summary.TotalAmount.IsZero())
}

func TestAddItem_InsertOrIncrementWithServerTotals(t *testing.T) {
	svc, _, _ := newCartService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 1, 7, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, 1, 8, 2)
	require.NoError(t, err)
	view, err := svc.AddItem(ctx, 1, 7, 1)
	require.NoError(t, err)

	require.Len(t, view.Items, 2)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(80000).Equal(view.Items[1].Subtotal))
	require.NotNil(t, view.Items[1].ProductImage)
	assert.Nil(t, view.Items[0].ProductImage)
	assert.Equal(t, 4, view.Summary.TotalItems)
	assert.Equal(t, 2, view.Summary.ItemCount)
	assert.True(t, decimal.NewFromInt(380000).Equal(view.Summary.TotalAmount))
}

func TestAddItem_Validation(t *testing.T) {
	svc, _, _ := newCartService(t)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, 1, 7, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AddItem(ctx, 1, 404, 1)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)

	_, err = svc.AddItem(ctx, 1, 9, 1)
	assert.ErrorIs(t, err, ErrProductUnavailable)

	_, err = svc.AddItem(ctx, 1, 7, 8)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, 1, 7, 3)
	var stockErr *StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 11, stockErr.Requested)
	assert.Equal(t, 10, stockErr.Available)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestUpdateQuantity(t *testing.T) {
	svc, _, _ := newCartService(t)
	ctx := context.Background()
	_, err := svc.AddItem(ctx, 1, 7, 1)
	require.NoError(t, err)

	view, err := svc.UpdateQuantity(ctx, 1, 7, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, view.Items[0].Quantity)

	_, err = svc.UpdateQuantity(ctx, 1, 8, 2)
	assert.ErrorIs(t, err, repository.ErrItemNotFound)

	_, err = svc.UpdateQuantity(ctx, 1, 7, 50)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	view, err = svc.UpdateQuantity(ctx, 1, 7, 0)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestRemoveAndClear(t *testing.T) {
	svc, _, _ := newCartService(t)
	ctx := context.Background()

	_, err := svc.RemoveItem(ctx, 1, 7)
	assert.ErrorIs(t, err, repository.ErrItemNotFound)

	_, err = svc.AddItem(ctx, 1, 7, 1)
	require.NoError(t, err)
	view, err := svc.ClearCart(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	view, err = svc.ClearCart(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, view.Items)
}

func TestGetCart_ServedFromCache(t *testing.T) {
	svc, carts, c := newCartService(t)
	ctx := context.Background()
	_, err := svc.AddItem(ctx, 1, 7, 2)
	require.NoError(t, err)
	readsAfterAdd := carts.Reads()

	_, err = svc.GetCart(ctx, 1)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, err := c.Get(ctx, 1)
		return err == nil
	}, time.Second, 10*time.Millisecond)

	view, err := svc.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.Equal(t, readsAfterAdd+1, carts.Reads())
}

func TestMutationInvalidatesCache(t *testing.T) {
	svc, _, c := newCartService(t)
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, 1, &repository.Cart{UserID: 1}))

	view, err := svc.AddItem(ctx, 1, 8, 1)

	require.NoError(t, err)
	assert.Len(t, view.Items, 1)
	assert.Equal(t, 1, c.deletes)
}

func TestGetCart_ConcurrentMissesShareRead(t *testing.T) {
	svc, carts, _ := newCartService(t)
	ctx := context.Background()
	require.NoError(t, carts.MemoryCartRepository.AddItem(ctx, 1, 7, 1))
	carts.gate = make(chan struct{})

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			view, err := svc.GetCart(ctx, 1)
			assert.NoError(t, err)
			assert.Len(t, view.Items, 1)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(carts.gate)
	wg.Wait()

	assert.Equal(t, 1, carts.Reads())
}

func TestView_SkipsMissingProducts(t *testing.T) {
	svc, carts, _ := newCartService(t)
	ctx := context.Background()
	require.NoError(t, carts.MemoryCartRepository.AddItem(ctx, 1, 404, 1))
	require.NoError(t, carts.MemoryCartRepository.AddItem(ctx, 1, 7, 1))

	view, err := svc.GetCart(ctx, 1)

	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, int64(7), view.Items[0].ProductID)
}
