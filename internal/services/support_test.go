package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shop_backend/internal/models"
	"shop_backend/internal/repository"
	"shop_backend/internal/testutil"
	"shop_backend/pkg/fbconversion"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitionTable(t *testing.T) {
	allowed := map[models.OrderStatus][]models.OrderStatus{
		models.OrderPending:    {models.OrderProcessing, models.OrderCompleted, models.OrderCancelled, models.OrderReturned},
		models.OrderProcessing: {models.OrderCompleted, models.OrderCancelled, models.OrderReturned},
		models.OrderCompleted:  {models.OrderReturned},
	}
	for _, from := range models.OrderStatuses {
		for _, to := range models.OrderStatuses {
			want := false
			for _, s := range allowed[from] {
				if s == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.True(t, IsTerminal(models.OrderCancelled))
	assert.True(t, IsTerminal(models.OrderReturned))
	assert.False(t, IsTerminal(models.OrderCompleted))
}

func TestClockOrderNumbers(t *testing.T) {
	now := time.UnixMilli(1_700_000_042_007)
	gen := ClockOrderNumbers(func() time.Time { return now })

	number, err := gen.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "042007", number)

	number, err = gen.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "042008", number, "same millisecond moves past the last number")

	now = time.UnixMilli(1_700_000_000_005)
	number, err = gen.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "042009", number, "a clock step back never repeats a number")

	now = time.UnixMilli(1_700_000_100_000)
	number, err = gen.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "100000", number)
}

func TestConvertValue(t *testing.T) {
	assert.Equal(t, 11.45, ConvertValue(1260, 110))
	assert.Equal(t, 0.01, ConvertValue(1, 110))
	assert.Equal(t, 12.35, ConvertValue(12.345, 0))
}

func TestFacebookTrackerMapsPurchase(t *testing.T) {
	var got struct {
		Data []fbconversion.Event `json:"data"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"events_received":1}`))
	}))
	defer srv.Close()

	tracker := NewFacebookTracker(fbconversion.NewClient(srv.URL, "v19.0", "pixel", "token"))
	err := tracker.TrackPurchase(context.Background(), PurchaseEvent{
		EventID:  "000042",
		Time:     time.Unix(1_700_000_000, 0),
		Value:    11.45,
		Currency: "USD",
		Contents: []PurchaseContent{{ProductID: 9, Quantity: 2}},
		Client:   ClientInfo{IPAddress: "10.0.0.1", UserAgent: "ua", FBP: "fb.1", SourceURL: "https://shop.example"},
	})
	require.NoError(t, err)

	require.Len(t, got.Data, 1)
	event := got.Data[0]
	assert.Equal(t, "Purchase", event.EventName)
	assert.Equal(t, "000042", event.EventID)
	assert.EqualValues(t, 1_700_000_000, event.EventTime)
	assert.Equal(t, "https://shop.example", event.EventSourceURL)
	assert.Equal(t, "10.0.0.1", event.UserData.ClientIPAddress)
	assert.Equal(t, "fb.1", event.UserData.FBP)
	assert.Equal(t, 11.45, event.CustomData.Value)
	assert.Equal(t, []fbconversion.Content{{ID: "9", Quantity: 2}}, event.CustomData.Contents)
}

func TestFacebookTrackerWithoutCredentials(t *testing.T) {
	tracker := NewFacebookTracker(fbconversion.NewClient("https://graph.facebook.com", "v19.0", "", ""))
	err := tracker.TrackPurchase(context.Background(), PurchaseEvent{EventID: "1"})
	assert.ErrorIs(t, err, fbconversion.ErrNotConfigured)
}

func TestAdminAuthenticator(t *testing.T) {
	hash, err := HashAdminKey("s3cret")
	require.NoError(t, err)

	auth := NewAdminAuthenticator(hash)
	assert.True(t, auth.Enabled())
	assert.NoError(t, auth.Verify("s3cret"))
	assert.ErrorIs(t, auth.Verify("wrong"), ErrAdminKeyInvalid)
	assert.ErrorIs(t, auth.Verify(""), ErrAdminKeyInvalid)

	disabled := NewAdminAuthenticator("")
	assert.False(t, disabled.Enabled())
	assert.NoError(t, disabled.Verify(""))

	_, err = HashAdminKey(" ")
	assert.Error(t, err)
}

func TestProductServiceBestSellers(t *testing.T) {
	db := testutil.NewDB(t)
	f := &serviceFixture{db: db}
	p1 := testutil.CreateProduct(t, db, "P1", "P-1", 100)
	f.products = []models.Product{p1, testutil.CreateProduct(t, db, "P2", "P-2", 80)}

	orders, err := NewOrderService(OrderServiceDeps{
		DB:           db,
		OrderNumbers: sequenceNumbers("000001", "000002"),
		Async:        func(func()) {},
	})
	require.NoError(t, err)
	ctx := context.Background()

	completed, err := orders.CreateOrder(ctx, f.input("A"))
	require.NoError(t, err)
	_, err = orders.Complete(ctx, completed.ID)
	require.NoError(t, err)
	_, err = orders.CreateOrder(ctx, f.input("B"))
	require.NoError(t, err)

	svc, err := NewProductService(repository.NewReportRepository(db))
	require.NoError(t, err)

	rows, err := svc.BestSellers(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, p1.ID, rows[0].ID)
	assert.EqualValues(t, 2, rows[0].TotalQuantity)
	assert.EqualValues(t, 1, rows[0].TotalOrders)

	_, err = NewProductService(nil)
	assert.Error(t, err)
}
