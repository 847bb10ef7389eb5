package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	perrors "github.com/abgdnv/productcatalog/internal/errors"
	"github.com/abgdnv/productcatalog/internal/events"
	"github.com/abgdnv/productcatalog/internal/product"
	"github.com/abgdnv/productcatalog/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// recordingObserver keeps every event it receives.
type recordingObserver struct {
	mu        sync.Mutex
	added     []events.ProductEvent
	removed   []events.ProductEvent
	purchased []events.PurchaseEvent
	failed    []events.ErrorEvent
	queried   []events.QueryEvent
}

func (o *recordingObserver) OnProductAdded(_ context.Context, e events.ProductEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.added = append(o.added, e)
}

func (o *recordingObserver) OnProductRemoved(_ context.Context, e events.ProductEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.removed = append(o.removed, e)
}

func (o *recordingObserver) OnProductPurchased(_ context.Context, e events.PurchaseEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.purchased = append(o.purchased, e)
}

func (o *recordingObserver) OnOperationFailed(_ context.Context, e events.ErrorEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, e)
}

func (o *recordingObserver) OnProductsQueried(_ context.Context, e events.QueryEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queried = append(o.queried, e)
}

func (o *recordingObserver) total() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.added) + len(o.removed) + len(o.purchased) + len(o.failed) + len(o.queried)
}

// faultyObserver panics on every callback.
type faultyObserver struct{}

func (faultyObserver) OnProductAdded(context.Context, events.ProductEvent) { panic("added") }
func (faultyObserver) OnProductRemoved(context.Context, events.ProductEvent) { panic("removed") }
func (faultyObserver) OnProductPurchased(context.Context, events.PurchaseEvent) { panic("purchased") }
func (faultyObserver) OnOperationFailed(context.Context, events.ErrorEvent) { panic("failed") }
func (faultyObserver) OnProductsQueried(context.Context, events.QueryEvent) { panic("queried") }

func newTestService(t *testing.T) (*Service, *recordingObserver) {
	t.Helper()
	s := NewService(store.NewInMemoryStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	o := &recordingObserver{}
	require.NoError(t, s.AddObserver(o))
	return s, o
}

func Test_Service_AddAndGetIgnoringCase(t *testing.T) {
	// given
	s, o := newTestService(t)
	ctx := context.Background()
	// when
	added, err := s.AddProduct(ctx, "  Gaming Mouse ", 15, "", nil)
	require.NoError(t, err)
	got, getErr := s.GetProduct(ctx, "GAMING MOUSE")
	// then
	require.NoError(t, getErr)
	assert.Equal(t, product.Product{Name: "Gaming Mouse", Quantity: 15, Category: "General", Tags: []string{}}, added)
	assert.Equal(t, added, got)
	require.Len(t, o.added, 1)
	assert.Equal(t, "Gaming Mouse", o.added[0].ProductName)
	assert.Equal(t, 15, o.added[0].Quantity)
	assert.Equal(t, events.OperationAdded, o.added[0].Operation)
	require.Len(t, o.queried, 1)
	assert.Equal(t, OpGetProduct, o.queried[0].QueryType)
	assert.Equal(t, 1, o.queried[0].ResultCount)
	assert.Equal(t, "Gaming Mouse", o.queried[0].ProductName)
}

func Test_Service_InvalidArgumentsEmitNoEvents(t *testing.T) {
	s, o := newTestService(t)
	ctx := context.Background()
	_, err := s.AddProduct(ctx, "Pen", 1, "", nil)
	require.NoError(t, err)
	before := o.total()

	tests := []struct {
		name string
		call func() error
	}{
		{name: "add blank name", call: func() error { _, err := s.AddProduct(ctx, " ", 1, "", nil); return err }},
		{name: "add negative quantity", call: func() error { _, err := s.AddProduct(ctx, "Ink", -1, "", nil); return err }},
		{name: "remove blank name", call: func() error { _, err := s.RemoveProduct(ctx, ""); return err }},
		{name: "purchase blank name", call: func() error { _, err := s.PurchaseProduct(ctx, "\t", 1); return err }},
		{name: "purchase zero", call: func() error { _, err := s.PurchaseProduct(ctx, "Pen", 0); return err }},
		{name: "get blank name", call: func() error { _, err := s.GetProduct(ctx, "  "); return err }},
		{name: "blank category", call: func() error { _, err := s.SearchByCategory(ctx, ""); return err }},
		{name: "blank tag", call: func() error { _, err := s.SearchByTag(ctx, " "); return err }},
		{name: "nil tags", call: func() error { _, err := s.SearchByTags(ctx, nil); return err }},
		{name: "blank tags", call: func() error { _, err := s.SearchByTags(ctx, []string{"", " "}); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// when
			err := tt.call()
			// then
			assert.ErrorIs(t, err, perrors.ErrInvalidArgument)
			assert.Equal(t, before, o.total())
		})
	}
}

func Test_Service_FailuresEmitOneErrorEvent(t *testing.T) {
	// given
	s, o := newTestService(t)
	ctx := context.Background()
	_, err := s.AddProduct(ctx, "Laptop", 5, "Electronics", []string{"work"})
	require.NoError(t, err)
	// when
	_, dupErr := s.AddProduct(ctx, "LAPTOP", 1, "", nil)
	_, purchaseErr := s.PurchaseProduct(ctx, " Tablet ", 1)
	_, removeErr := s.RemoveProduct(ctx, "Phone")
	_, getErr := s.GetProduct(ctx, "laptop")
	list, listErr := s.ListProductsByQuantity(ctx)
	// then
	assert.ErrorIs(t, dupErr, perrors.ErrProductAlreadyExists)
	assert.ErrorIs(t, purchaseErr, perrors.ErrProductNotFound)
	assert.ErrorIs(t, removeErr, perrors.ErrProductNotFound)
	require.NoError(t, getErr)
	require.NoError(t, listErr)
	assert.Len(t, list, 1)

	require.Len(t, o.failed, 3)
	assert.Equal(t, OpAddProduct, o.failed[0].Operation)
	assert.Equal(t, "AlreadyExists", o.failed[0].Kind)
	assert.Equal(t, "LAPTOP", o.failed[0].ProductName)
	assert.Equal(t, OpPurchaseProduct, o.failed[1].Operation)
	assert.Equal(t, "NotFound", o.failed[1].Kind)
	assert.Equal(t, "Tablet", o.failed[1].ProductName)
	assert.Equal(t, "Product 'Tablet' not found in catalog.", o.failed[1].Message)
	assert.Equal(t, OpRemoveProduct, o.failed[2].Operation)

	require.Len(t, o.queried, 2)
	assert.Equal(t, OpGetProduct, o.queried[0].QueryType)
	assert.Equal(t, OpListProductsByQuantity, o.queried[1].QueryType)
	assert.Empty(t, o.queried[1].ProductName)
	assert.Equal(t, 1, o.queried[1].ResultCount)
}

func Test_Service_PurchaseProduct(t *testing.T) {
	tests := []struct {
		name              string
		quantity          int
		expectedErr       error
		expectedRemaining int
	}{
		{name: "partial purchase", quantity: 4, expectedRemaining: 6},
		{name: "exact remaining amount", quantity: 10, expectedRemaining: 0},
		{name: "insufficient stock", quantity: 11, expectedErr: perrors.ErrInsufficientQuantity, expectedRemaining: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			s, o := newTestService(t)
			ctx := context.Background()
			_, err := s.AddProduct(ctx, "Keyboard", 10, "", nil)
			require.NoError(t, err)
			// when
			result, err := s.PurchaseProduct(ctx, "keyboard", tt.quantity)
			// then
			got, getErr := s.GetProduct(ctx, "Keyboard")
			require.NoError(t, getErr)
			assert.Equal(t, tt.expectedRemaining, got.Quantity)
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				require.Len(t, o.failed, 1)
				assert.Equal(t, "InsufficientQuantity", o.failed[0].Kind)
				assert.Empty(t, o.purchased)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedRemaining, result.Remaining)
			require.Len(t, o.purchased, 1)
			assert.Equal(t, "Keyboard", o.purchased[0].ProductName)
			assert.Equal(t, tt.quantity, o.purchased[0].PurchasedQuantity)
			assert.Equal(t, tt.expectedRemaining, o.purchased[0].RemainingQuantity)
			assert.Equal(t, 10, o.purchased[0].OriginalQuantity)
		})
	}
}

func Test_Service_ListProductsByQuantity(t *testing.T) {
	tests := []struct {
		name     string
		products map[string]int
		expected []string
	}{
		{name: "by quantity", products: map[string]int{"Low": 5, "High": 20, "Medium": 10}, expected: []string{"High", "Medium", "Low"}},
		{name: "ties by name", products: map[string]int{"Charlie": 10, "Alpha": 10, "Beta": 10}, expected: []string{"Alpha", "Beta", "Charlie"}},
		{name: "empty catalog", products: map[string]int{}, expected: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// given
			s, _ := newTestService(t)
			ctx := context.Background()
			for name, qty := range tt.products {
				_, err := s.AddProduct(ctx, name, qty, "", nil)
				require.NoError(t, err)
			}
			// when
			list, err := s.ListProductsByQuantity(ctx)
			// then
			require.NoError(t, err)
			require.NotNil(t, list)
			got := make([]string, len(list))
			for i, p := range list {
				got[i] = p.Name
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func Test_Service_Searches(t *testing.T) {
	// given
	s, o := newTestService(t)
	ctx := context.Background()
	seed := []struct {
		name     string
		qty      int
		category string
		tags     []string
	}{
		{"Headset", 8, "Audio", []string{"gaming", "wireless"}},
		{"Desk Lamp", 3, "Office", []string{"office"}},
		{"Monitor", 5, "electronics", []string{"Office", "gaming"}},
		{"Speaker", 2, "Audio", []string{"home"}},
	}
	for _, p := range seed {
		_, err := s.AddProduct(ctx, p.name, p.qty, p.category, p.tags)
		require.NoError(t, err)
	}
	// when
	byTags, tagsErr := s.SearchByTags(ctx, []string{"gaming", "office"})
	byTag, tagErr := s.SearchByTag(ctx, "WIRELESS")
	byCategory, catErr := s.SearchByCategory(ctx, "audio")
	categories, categoriesErr := s.GetAllCategories(ctx)
	tags, allTagsErr := s.GetAllTags(ctx)
	// then
	require.NoError(t, errors.Join(tagsErr, tagErr, catErr, categoriesErr, allTagsErr))
	assert.Equal(t, []string{"Headset", "Monitor", "Desk Lamp"}, productNames(byTags))
	assert.Equal(t, []string{"Headset"}, productNames(byTag))
	assert.Equal(t, []string{"Headset", "Speaker"}, productNames(byCategory))
	assert.Equal(t, []string{"Audio", "electronics", "Office"}, categories)
	assert.Equal(t, []string{"gaming", "home", "office", "wireless"}, tags)

	require.Len(t, o.queried, 5)
	queryTypes := make([]string, len(o.queried))
	for i, q := range o.queried {
		queryTypes[i] = q.QueryType
	}
	assert.Equal(t, []string{OpSearchByTags, OpSearchByTag, OpSearchByCategory, OpGetAllCategories, OpGetAllTags}, queryTypes)
	assert.Equal(t, 3, o.queried[0].ResultCount)
}

func Test_Service_GetProductCountEmitsNoEvent(t *testing.T) {
	// given
	s, o := newTestService(t)
	ctx := context.Background()
	_, err := s.AddProduct(ctx, "Pen", 1, "", nil)
	require.NoError(t, err)
	before := o.total()
	// when
	count, err := s.GetProductCount(ctx)
	// then
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, before, o.total())
}

func Test_Service_AddRemoveRoundTrip(t *testing.T) {
	// given
	s, o := newTestService(t)
	ctx := context.Background()
	_, err := s.AddProduct(ctx, "Existing", 1, "", nil)
	require.NoError(t, err)
	// when
	_, err = s.AddProduct(ctx, "Temp", 7, "Misc", []string{"x"})
	require.NoError(t, err)
	removed, err := s.RemoveProduct(ctx, "TEMP")
	require.NoError(t, err)
	// then
	count, _ := s.GetProductCount(ctx)
	assert.Equal(t, 1, count)
	assert.Equal(t, "Temp", removed.Name)
	_, err = s.GetProduct(ctx, "temp")
	assert.ErrorIs(t, err, perrors.ErrProductNotFound)
	require.Len(t, o.removed, 1)
	assert.Equal(t, 7, o.removed[0].Quantity)
	assert.Equal(t, events.OperationRemoved, o.removed[0].Operation)
}

func Test_Service_FaultyObserverDoesNotAffectOperations(t *testing.T) {
	// given
	s := NewService(store.NewInMemoryStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, s.AddObserver(faultyObserver{}))
	healthy := &recordingObserver{}
	require.NoError(t, s.AddObserver(healthy))
	ctx := context.Background()
	// when
	_, addErr := s.AddProduct(ctx, "Pen", 3, "", nil)
	_, purchaseErr := s.PurchaseProduct(ctx, "Pen", 1)
	_, getErr := s.GetProduct(ctx, "Pen")
	_, missingErr := s.GetProduct(ctx, "Ghost")
	_, removeErr := s.RemoveProduct(ctx, "Pen")
	// then
	assert.NoError(t, addErr)
	assert.NoError(t, purchaseErr)
	assert.NoError(t, getErr)
	assert.ErrorIs(t, missingErr, perrors.ErrProductNotFound)
	assert.NoError(t, removeErr)
	assert.Equal(t, 5, healthy.total())
}

func Test_Service_Observers(t *testing.T) {
	// given
	s, first := newTestService(t)
	second := &recordingObserver{}
	ctx := context.Background()
	require.NoError(t, s.AddObserver(second))
	require.NoError(t, s.AddObserver(second))
	// when
	_, err := s.AddProduct(ctx, "A", 1, "", nil)
	require.NoError(t, err)
	s.RemoveObserver(second)
	s.RemoveObserver(nil)
	_, err = s.AddProduct(ctx, "B", 1, "", nil)
	require.NoError(t, err)
	nilErr := s.AddObserver(nil)
	// then
	assert.Len(t, first.added, 2)
	assert.Len(t, second.added, 1)
	assert.ErrorIs(t, nilErr, perrors.ErrInvalidArgument)
	assert.Equal(t, "Observer cannot be nil.", nilErr.Error())
}

// mockStore is a testify mock of store.ProductStore.
type mockStore struct {
	mock.Mock
}

func (m *mockStore) Create(ctx context.Context, p product.Product) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockStore) Delete(ctx context.Context, name string) (product.Product, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(product.Product), args.Error(1)
}

func (m *mockStore) Purchase(ctx context.Context, name string, quantity int) (store.PurchaseResult, error) {
	args := m.Called(ctx, name, quantity)
	return args.Get(0).(store.PurchaseResult), args.Error(1)
}

func (m *mockStore) FindByName(ctx context.Context, name string) (product.Product, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(product.Product), args.Error(1)
}

func (m *mockStore) FindAll(ctx context.Context) ([]product.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]product.Product), args.Error(1)
}

func (m *mockStore) FindByCategory(ctx context.Context, category string) ([]product.Product, error) {
	args := m.Called(ctx, category)
	return args.Get(0).([]product.Product), args.Error(1)
}

func (m *mockStore) FindByTags(ctx context.Context, tags []string) ([]product.Product, error) {
	args := m.Called(ctx, tags)
	return args.Get(0).([]product.Product), args.Error(1)
}

func (m *mockStore) Categories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockStore) Tags(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockStore) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func Test_Service_StorageFailures(t *testing.T) {
	// given
	ctx := context.Background()
	cause := errors.New("connection refused")
	failure := perrors.NewStorageFailure("list", cause)
	ms := &mockStore{}
	ms.On("FindAll", ctx).Return([]product.Product(nil), failure)
	ms.On("FindByTags", ctx, []string{"gaming"}).Return([]product.Product(nil), failure)
	ms.On("Purchase", ctx, "Pen", 2).Return(store.PurchaseResult{}, failure)
	s := NewService(ms, slog.New(slog.NewTextHandler(io.Discard, nil)))
	o := &recordingObserver{}
	require.NoError(t, s.AddObserver(o))
	// when
	_, listErr := s.ListProductsByQuantity(ctx)
	_, tagErr := s.SearchByTag(ctx, " gaming ")
	_, purchaseErr := s.PurchaseProduct(ctx, " Pen", 2)
	// then
	for _, err := range []error{listErr, tagErr, purchaseErr} {
		assert.ErrorIs(t, err, perrors.ErrStorageFailure)
		assert.ErrorIs(t, err, cause)
	}
	require.Len(t, o.failed, 3)
	assert.Equal(t, OpListProductsByQuantity, o.failed[0].Operation)
	assert.Equal(t, OpSearchByTag, o.failed[1].Operation)
	assert.Equal(t, OpPurchaseProduct, o.failed[2].Operation)
	assert.Equal(t, "Pen", o.failed[2].ProductName)
	for _, e := range o.failed {
		assert.Equal(t, "StorageFailure", e.Kind)
	}
	assert.Empty(t, o.queried)
	ms.AssertExpectations(t)
}

func Test_Service_ConcurrentOperations(t *testing.T) {
	// given
	s, o := newTestService(t)
	ctx := context.Background()
	_, err := s.AddProduct(ctx, "Stock", 50, "", nil)
	require.NoError(t, err)
	var wg sync.WaitGroup
	// when
	for range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.PurchaseProduct(ctx, "stock", 1)
		}()
		go func() {
			defer wg.Done()
			_, _ = s.ListProductsByQuantity(ctx)
		}()
	}
	wg.Wait()
	// then
	got, err := s.GetProduct(ctx, "Stock")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)
	assert.Len(t, o.purchased, 50)
	assert.Len(t, o.queried, 51)
}

func productNames(products []product.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}
