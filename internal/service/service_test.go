package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/iti-open-source/oceanlibrary-api/internal/client"
	"github.com/iti-open-source/oceanlibrary-api/internal/events"
	"github.com/iti-open-source/oceanlibrary-api/internal/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single conn keeps every query on the one in-memory database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, client.Migrate(db))
	return db
}

func seedBook(t *testing.T, db *gorm.DB, title, price string, stock int) *model.Book {
	t.Helper()

	book := &model.Book{
		Title: title,
		Price: decimal.RequireFromString(price),
		Stock: stock,
		Image: "/covers/" + title + ".jpg",
	}
	require.NoError(t, db.Create(book).Error)
	return book
}

func seedCart(t *testing.T, db *gorm.DB, identity string, quantities map[uint]int) *model.Cart {
	t.Helper()

	cart := &model.Cart{Identity: identity}
	require.NoError(t, db.Create(cart).Error)
	for bookID, qty := range quantities {
		require.NoError(t, db.Create(&model.CartItem{
			CartID:   cart.ID,
			BookID:   bookID,
			Quantity: qty,
		}).Error)
	}
	return cart
}

func bookStock(t *testing.T, db *gorm.DB, bookID uint) int {
	t.Helper()

	var book model.Book
	require.NoError(t, db.First(&book, bookID).Error)
	return book.Stock
}

func countRows(t *testing.T, db *gorm.DB, value interface{}) int64 {
	t.Helper()

	var count int64
	require.NoError(t, db.Model(value).Count(&count).Error)
	return count
}

// fakeGateway stands in for Paymob; unset funcs behave like a healthy
// gateway.
type fakeGateway struct {
	mu           sync.Mutex
	linkCalls    int
	settledCalls int
	linkFn       func(ctx context.Context, amount decimal.Decimal) (*client.PaymentLink, error)
	settledFn    func(ctx context.Context, gatewayOrderID string) (bool, error)
}

func (f *fakeGateway) RequestPaymentLink(ctx context.Context, amount decimal.Decimal) (*client.PaymentLink, error) {
	f.mu.Lock()
	f.linkCalls++
	f.mu.Unlock()

	if f.linkFn != nil {
		return f.linkFn(ctx, amount)
	}
	return &client.PaymentLink{
		GatewayOrderID: "gw-1001",
		IframeURL:      "https://accept.example.com/iframes/42?payment_token=tok",
	}, nil
}

func (f *fakeGateway) IsSettled(ctx context.Context, gatewayOrderID string) (bool, error) {
	f.mu.Lock()
	f.settledCalls++
	f.mu.Unlock()

	if f.settledFn != nil {
		return f.settledFn(ctx, gatewayOrderID)
	}
	return false, nil
}

func (f *fakeGateway) SettledCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settledCalls
}

// recordingCache implements cache.CatalogCache in memory and counts
// invalidations.
type recordingCache struct {
	mu            sync.Mutex
	invalidations int
	version       int
	store         map[string][]byte
}

func newRecordingCache() *recordingCache {
	return &recordingCache{store: map[string][]byte{}}
}

func (c *recordingCache) key(key string) string {
	return fmt.Sprintf("v%d:%s", c.version, key)
}

func (c *recordingCache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	payload, ok := c.store[c.key(key)]
	return payload, ok
}

func (c *recordingCache) Set(ctx context.Context, key string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[c.key(key)] = payload
}

func (c *recordingCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidations++
	c.version++
	return nil
}

func (c *recordingCache) Invalidations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.invalidations
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderCreated
}

func (p *recordingPublisher) PublishOrderCreated(ctx context.Context, event events.OrderCreated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Events() []events.OrderCreated {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.OrderCreated, len(p.events))
	copy(out, p.events)
	return out
}
