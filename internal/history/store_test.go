package history

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbfinder/internal/market"
)

func observation(productID string, m market.Marketplace, seq int) market.PriceObservation {
	return market.PriceObservation{
		ID:          fmt.Sprintf("%s-%d", productID, seq),
		ProductID:   productID,
		Marketplace: m,
		Price:       decimal.NewFromInt(int64(seq)),
		ObservedAt:  time.Unix(int64(seq), 0).UTC(),
	}
}

func TestAppendEvictsOldestFirstAcrossMarketplaces(t *testing.T) {
	s := NewStore(DefaultCapacity)

	for i := 0; i < 130; i++ {
		m := market.Amazon
		if i%2 == 1 {
			m = market.BestBuy
		}
		s.Append("p1", observation("p1", m, i))
		require.LessOrEqual(t, s.Len("p1"), DefaultCapacity)
	}

	all := s.List("p1", 0)
	require.Len(t, all, DefaultCapacity)
	assert.Equal(t, "p1-30", all[0].ID)
	assert.Equal(t, "p1-129", all[len(all)-1].ID)
}

func TestAppendBatchLargerThanCapacity(t *testing.T) {
	s := NewStore(3)

	s.Append("p1",
		observation("p1", market.Amazon, 1),
		observation("p1", market.BestBuy, 2),
		observation("p1", market.Amazon, 3),
		observation("p1", market.BestBuy, 4),
	)

	got := s.List("p1", 0)
	require.Len(t, got, 3)
	assert.Equal(t, "p1-2", got[0].ID)
	assert.Equal(t, "p1-4", got[2].ID)
}

func TestListLimitReturnsMostRecentChronologically(t *testing.T) {
	s := NewStore(10)
	for i := 0; i < 6; i++ {
		s.Append("p1", observation("p1", market.Amazon, i))
	}

	got := s.List("p1", 2)
	require.Len(t, got, 2)
	assert.Equal(t, "p1-4", got[0].ID)
	assert.Equal(t, "p1-5", got[1].ID)

	assert.Empty(t, s.List("unknown", 10))
}

func TestListReturnsCopy(t *testing.T) {
	s := NewStore(10)
	s.Append("p1", observation("p1", market.Amazon, 1))

	got := s.List("p1", 0)
	got[0].ID = "mutated"

	assert.Equal(t, "p1-1", s.List("p1", 0)[0].ID)
}

func TestLatestPerMarketplace(t *testing.T) {
	s := NewStore(10)
	s.Append("p1", observation("p1", market.Amazon, 1), observation("p1", market.BestBuy, 2), observation("p1", market.Amazon, 3))

	latest, ok := s.Latest("p1", market.Amazon)
	require.True(t, ok)
	assert.Equal(t, "p1-3", latest.ID)

	latest, ok = s.Latest("p1", market.BestBuy)
	require.True(t, ok)
	assert.Equal(t, "p1-2", latest.ID)

	_, ok = s.Latest("p2", market.Amazon)
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	s := NewStore(10)
	s.Append("p1", observation("p1", market.Amazon, 1))
	s.Append("p2", observation("p2", market.Amazon, 1))

	s.Remove("p1")

	assert.Equal(t, 0, s.Len("p1"))
	assert.Equal(t, 1, s.Len("p2"))
}

func TestConcurrentAppendsStayBounded(t *testing.T) {
	s := NewStore(50)
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Append(fmt.Sprintf("p%d", w%2), observation("p", market.Amazon, i))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len("p0"))
	assert.Equal(t, 50, s.Len("p1"))
}
