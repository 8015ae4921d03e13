package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"shop_backend/internal/models"
	"shop_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type seedItem struct {
	product  models.Product
	quantity int
}

func seedOrder(t *testing.T, db *gorm.DB, number, name, phone string, status models.OrderStatus, items ...seedItem) *models.Order {
	t.Helper()
	ctx := context.Background()
	repos := NewRepositories(db)

	order := &models.Order{OrderNumber: number, Subtotal: 100, DeliveryCharge: 60, TotalPrice: 160, Status: status}
	require.NoError(t, repos.Orders.Create(ctx, order))

	batch := make([]*models.OrderItem, 0, len(items))
	for _, it := range items {
		batch = append(batch, &models.OrderItem{
			OrderID:      order.ID,
			ProductID:    it.product.ID,
			Quantity:     it.quantity,
			Attributes:   []models.Attribute{{Title: "Size", Value: "M"}},
			Price:        it.product.Price,
			SellingPrice: it.product.Price,
			Subtotal:     it.product.Price * float64(it.quantity),
		})
	}
	created, err := repos.OrderItems.CreateBatch(ctx, batch)
	require.NoError(t, err)
	require.EqualValues(t, len(batch), created)

	address := &models.Address{OrderID: order.ID, Name: name, Phone: phone, Address: "House 7, Road 3, Dhaka"}
	require.NoError(t, repos.Addresses.Create(ctx, address))
	require.NoError(t, repos.Orders.AttachAddress(ctx, order.ID, address.ID))
	return order
}

func TestOrderCreateDuplicateNumberKeepsTransactionUsable(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	err := NewUnitOfWork(db).Do(ctx, func(repos Repositories) error {
		require.NoError(t, repos.Orders.Create(ctx, &models.Order{OrderNumber: "000001", Status: models.OrderPending}))

		dupErr := repos.Orders.Create(ctx, &models.Order{OrderNumber: "000001", Status: models.OrderPending})
		require.Error(t, dupErr)
		assert.True(t, errors.Is(dupErr, gorm.ErrDuplicatedKey) ||
			strings.Contains(strings.ToLower(dupErr.Error()), "unique"), "got %v", dupErr)

		return repos.Orders.Create(ctx, &models.Order{OrderNumber: "000002", Status: models.OrderPending})
	})
	require.NoError(t, err)

	var numbers []string
	require.NoError(t, db.Model(&models.Order{}).Order("order_number").Pluck("order_number", &numbers).Error)
	assert.Equal(t, []string{"000001", "000002"}, numbers)
}

func TestUnitOfWorkRollsBackOnError(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := NewUnitOfWork(db).Do(ctx, func(repos Repositories) error {
		require.NoError(t, repos.Orders.Create(ctx, &models.Order{OrderNumber: "000010", Status: models.OrderPending}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestGetDetailedLoadsAggregate(t *testing.T) {
	db := testutil.NewDB(t)
	shirt := testutil.CreateProduct(t, db, "Blue Shirt", "SH-1", 500)
	hat := testutil.CreateProduct(t, db, "Red Cap", "CP-2", 200)
	order := seedOrder(t, db, "000100", "Karim", "01700000000", models.OrderPending,
		seedItem{shirt, 2}, seedItem{hat, 1})

	require.NoError(t, db.Delete(&models.Product{}, hat.ID).Error)

	got, err := NewOrderRepository(db).GetDetailed(context.Background(), order.ID)
	require.NoError(t, err)

	require.NotNil(t, got.Address)
	assert.Equal(t, "Karim", got.Address.Name)
	require.Len(t, got.OrderItems, 2)
	require.NotNil(t, got.OrderItems[0].Product)
	assert.Equal(t, "Blue Shirt", got.OrderItems[0].Product.Title)
	assert.Nil(t, got.OrderItems[1].Product, "deleted product should resolve to nil")
	assert.Equal(t, []models.Attribute{{Title: "Size", Value: "M"}}, []models.Attribute(got.OrderItems[0].Attributes))
}

func TestGetByIDNotFound(t *testing.T) {
	db := testutil.NewDB(t)
	_, err := NewOrderRepository(db).GetByID(context.Background(), 42)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestAttachAddressUnknownOrder(t *testing.T) {
	db := testutil.NewDB(t)
	err := NewOrderRepository(db).AttachAddress(context.Background(), 99, 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUpdateStatusComparesPreviousStatus(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewOrderRepository(db)
	ctx := context.Background()
	order := seedOrder(t, db, "000200", "Rahim", "01800000000", models.OrderPending)

	ok, err := repo.UpdateStatus(ctx, order.ID, models.OrderProcessing, models.OrderCompleted)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.UpdateStatus(ctx, order.ID, models.OrderPending, models.OrderProcessing)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderProcessing, got.Status)
}

func TestListSearch(t *testing.T) {
	db := testutil.NewDB(t)
	shirt := testutil.CreateProduct(t, db, "Blue Shirt", "SH-1", 500)
	hat := testutil.CreateProduct(t, db, "Red Cap", "CP-2", 200)
	seedOrder(t, db, "000301", "Karim Uddin", "01711111111", models.OrderPending, seedItem{shirt, 1})
	seedOrder(t, db, "000302", "Rahim", "01822222222", models.OrderPending, seedItem{hat, 1})
	seedOrder(t, db, "000303", "Sadia", "01933333333", models.OrderCompleted)

	repo := NewOrderRepository(db)
	ctx := context.Background()

	cases := []struct {
		name   string
		search string
		want   []string
	}{
		{name: "address name case insensitive", search: "karim", want: []string{"000301"}},
		{name: "phone", search: "018222", want: []string{"000302"}},
		{name: "order number", search: "000303", want: []string{"000303"}},
		{name: "product title", search: "red CAP", want: []string{"000302"}},
		{name: "product code", search: "sh-1", want: []string{"000301"}},
		{name: "address text matches all", search: "dhaka", want: []string{"000303", "000302", "000301"}},
		{name: "no match", search: "xyz-nonexistent", want: nil},
		{name: "wildcards are literal", search: "%", want: nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			orders, total, err := repo.List(ctx, OrderListFilter{Search: tc.search, Limit: 10, Desc: true})
			require.NoError(t, err)
			assert.EqualValues(t, len(tc.want), total)

			var got []string
			for _, o := range orders {
				got = append(got, o.OrderNumber)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestListStatusFilterAndHydration(t *testing.T) {
	db := testutil.NewDB(t)
	shirt := testutil.CreateProduct(t, db, "Blue Shirt", "SH-1", 500)
	seedOrder(t, db, "000401", "Karim", "017", models.OrderPending, seedItem{shirt, 1})
	seedOrder(t, db, "000402", "Karim", "017", models.OrderCompleted, seedItem{shirt, 3})

	orders, total, err := NewOrderRepository(db).List(context.Background(), OrderListFilter{
		Search: "karim",
		Status: models.OrderCompleted,
		Limit:  10,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, orders, 1)
	assert.Equal(t, "000402", orders[0].OrderNumber)
	require.NotNil(t, orders[0].Address)
	require.Len(t, orders[0].OrderItems, 1)
	require.NotNil(t, orders[0].OrderItems[0].Product)
	assert.Equal(t, 3, orders[0].OrderItems[0].Quantity)
}

func TestListPagination(t *testing.T) {
	db := testutil.NewDB(t)
	for i := 1; i <= 25; i++ {
		seedOrder(t, db, fmt.Sprintf("%06d", i), "Customer", "01700000000", models.OrderPending)
	}
	repo := NewOrderRepository(db)
	ctx := context.Background()

	seen := map[string]bool{}
	for page, want := range []int{10, 10, 5} {
		orders, total, err := repo.List(ctx, OrderListFilter{Offset: page * 10, Limit: 10, SortBy: "order_number"})
		require.NoError(t, err)
		assert.EqualValues(t, 25, total)
		require.Len(t, orders, want)
		for _, o := range orders {
			assert.False(t, seen[o.OrderNumber], "order %s returned twice", o.OrderNumber)
			seen[o.OrderNumber] = true
		}
	}
	assert.Len(t, seen, 25)

	first, _, err := repo.List(ctx, OrderListFilter{Offset: 0, Limit: 3, SortBy: "order_number"})
	require.NoError(t, err)
	assert.Equal(t, "000001", first[0].OrderNumber)

	beyond, total, err := repo.List(ctx, OrderListFilter{Offset: 30, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 25, total)
	assert.Empty(t, beyond)
}

func TestDeleteByOrderID(t *testing.T) {
	db := testutil.NewDB(t)
	shirt := testutil.CreateProduct(t, db, "Blue Shirt", "SH-1", 500)
	order := seedOrder(t, db, "000500", "Karim", "017", models.OrderPending, seedItem{shirt, 1}, seedItem{shirt, 2})
	ctx := context.Background()
	repos := NewRepositories(db)

	countFor := func(model any) int64 {
		var n int64
		require.NoError(t, db.Model(model).Where("order_id = ?", order.ID).Count(&n).Error)
		return n
	}
	require.EqualValues(t, 2, countFor(&models.OrderItem{}))

	removed, err := repos.OrderItems.DeleteByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)
	assert.Zero(t, countFor(&models.OrderItem{}))

	removed, err = repos.Addresses.DeleteByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
	assert.Zero(t, countFor(&models.Address{}))

	removed, err = repos.Orders.Delete(ctx, order.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
}

func TestProductGetByIDs(t *testing.T) {
	db := testutil.NewDB(t)
	shirt := testutil.CreateProduct(t, db, "Blue Shirt", "SH-1", 500)
	repo := NewProductRepository(db)

	found, err := repo.GetByIDs(context.Background(), []uint{shirt.ID, shirt.ID + 100})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, "Blue Shirt", found[shirt.ID].Title)

	empty, err := repo.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestBestSellersCountsCompletedOrdersOnly(t *testing.T) {
	db := testutil.NewDB(t)
	p1 := testutil.CreateProduct(t, db, "P1", "P-1", 100)
	p2 := testutil.CreateProduct(t, db, "P2", "P-2", 100)
	gone := testutil.CreateProduct(t, db, "Gone", "G-1", 100)

	seedOrder(t, db, "000601", "A", "1", models.OrderCompleted, seedItem{p1, 3}, seedItem{p2, 1})
	seedOrder(t, db, "000602", "B", "2", models.OrderPending, seedItem{p1, 5})
	seedOrder(t, db, "000603", "C", "3", models.OrderCompleted, seedItem{p2, 1}, seedItem{gone, 9})
	require.NoError(t, db.Delete(&models.Product{}, gone.ID).Error)

	rows, err := NewReportRepository(db).BestSellers(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, p1.ID, rows[0].ID)
	assert.EqualValues(t, 3, rows[0].TotalQuantity)
	assert.EqualValues(t, 1, rows[0].TotalOrders)
	assert.Equal(t, p2.ID, rows[1].ID)
	assert.EqualValues(t, 2, rows[1].TotalQuantity)
	assert.EqualValues(t, 2, rows[1].TotalOrders)
}

func TestBestSellersEmpty(t *testing.T) {
	db := testutil.NewDB(t)
	rows, err := NewReportRepository(db).BestSellers(context.Background(), 5)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "50!% off!_now!!", escapeLike("50% off_now!"))
}
