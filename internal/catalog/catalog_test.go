package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbfinder/internal/market"
)

func product(id string, created time.Time, monitors map[market.Marketplace]string) market.Product {
	return market.Product{
		ID:       id,
		Name:     "Product " + id,
		Category: "electronics",
		URLs: map[market.Marketplace]string{
			market.Amazon:  "https://www.amazon.com/dp/" + id,
			market.BestBuy: "https://www.bestbuy.com/site/" + id,
		},
		MonitorIDs: monitors,
		CreatedAt:  created,
	}
}

func TestAddGetRemove(t *testing.T) {
	c := New()
	c.Add(product("p1", time.Now(), map[market.Marketplace]string{market.Amazon: "m-a", market.BestBuy: "m-b"}))

	got, err := c.Get("p1")
	require.NoError(t, err)
	assert.Equal(t, "Product p1", got.Name)

	id, ok := c.ResolveMonitor("m-b")
	require.True(t, ok)
	assert.Equal(t, "p1", id)

	removed, err := c.Remove("p1")
	require.NoError(t, err)
	assert.Equal(t, "m-a", removed.MonitorIDs[market.Amazon])

	_, ok = c.ResolveMonitor("m-a")
	assert.False(t, ok, "reverse index must be cleared on removal")

	_, err = c.Get("p1")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = c.Remove("p1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetMonitorReplacesIndexEntry(t *testing.T) {
	c := New()
	c.Add(product("p1", time.Now(), nil))

	require.NoError(t, c.SetMonitor("p1", market.Amazon, "m1"))
	require.NoError(t, c.SetMonitor("p1", market.Amazon, "m2"))

	_, ok := c.ResolveMonitor("m1")
	assert.False(t, ok)
	id, ok := c.ResolveMonitor("m2")
	require.True(t, ok)
	assert.Equal(t, "p1", id)

	assert.ErrorIs(t, c.SetMonitor("missing", market.Amazon, "m3"), ErrNotFound)
}

func TestGetReturnsCopy(t *testing.T) {
	c := New()
	c.Add(product("p1", time.Now(), map[market.Marketplace]string{market.Amazon: "m-a"}))

	got, err := c.Get("p1")
	require.NoError(t, err)
	got.MonitorIDs[market.Amazon] = "tampered"

	again, _ := c.Get("p1")
	assert.Equal(t, "m-a", again.MonitorIDs[market.Amazon])
}

func TestListOrderedByCreation(t *testing.T) {
	c := New()
	now := time.Now()
	c.Add(product("late", now.Add(time.Minute), nil))
	c.Add(product("early", now, nil))

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "early", list[0].ID)
	assert.Equal(t, "late", list[1].ID)
	assert.Equal(t, []string{"early", "late"}, c.IDs())
	assert.Equal(t, 2, c.Len())
}

func TestMarkScanned(t *testing.T) {
	c := New()
	c.Add(product("p1", time.Now(), nil))
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	c.MarkScanned("p1", at)
	c.MarkScanned("missing", at)

	got, _ := c.Get("p1")
	require.NotNil(t, got.LastScanned)
	assert.Equal(t, at, *got.LastScanned)
}
