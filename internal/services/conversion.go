package services

import (
	"context"
	"strconv"
	"time"

	"shop_backend/pkg/fbconversion"

	"github.com/shopspring/decimal"
)

const purchaseEventName = "Purchase"

// ClientInfo describes the browser that placed an order. It is only used for
// conversion tracking.
type ClientInfo struct {
	IPAddress string
	UserAgent string
	FBP       string
	FBC       string
	SourceURL string
}

type PurchaseContent struct {
	ProductID uint
	Quantity  int
}

// PurchaseEvent is reported to the ad platform after an order is committed.
type PurchaseEvent struct {
	EventID  string
	Time     time.Time
	Value    float64
	Currency string
	Contents []PurchaseContent
	Client   ClientInfo
}

// ConversionTracker receives purchase events. Implementations may be slow or
// fail; the order service never waits on them.
type ConversionTracker interface {
	TrackPurchase(ctx context.Context, event PurchaseEvent) error
}

// ConvertValue converts an amount in shop currency to the reporting currency,
// rounded to two decimals. A non-positive rate leaves the amount unchanged.
func ConvertValue(amount, rate float64) float64 {
	value := decimal.NewFromFloat(amount)
	if rate > 0 {
		value = value.Div(decimal.NewFromFloat(rate))
	}
	return value.Round(2).InexactFloat64()
}

type facebookTracker struct {
	client *fbconversion.Client
}

// NewFacebookTracker sends purchase events to the Conversions API.
func NewFacebookTracker(client *fbconversion.Client) ConversionTracker {
	return &facebookTracker{client: client}
}

func (t *facebookTracker) TrackPurchase(ctx context.Context, event PurchaseEvent) error {
	contents := make([]fbconversion.Content, 0, len(event.Contents))
	for _, c := range event.Contents {
		contents = append(contents, fbconversion.Content{
			ID:       strconv.FormatUint(uint64(c.ProductID), 10),
			Quantity: c.Quantity,
		})
	}

	return t.client.SendEvent(ctx, fbconversion.Event{
		EventName:      purchaseEventName,
		EventTime:      event.Time.Unix(),
		EventID:        event.EventID,
		EventSourceURL: event.Client.SourceURL,
		UserData: fbconversion.UserData{
			ClientIPAddress: event.Client.IPAddress,
			ClientUserAgent: event.Client.UserAgent,
			FBP:             event.Client.FBP,
			FBC:             event.Client.FBC,
		},
		CustomData: fbconversion.CustomData{
			Currency: event.Currency,
			Value:    event.Value,
			Contents: contents,
		},
	})
}
