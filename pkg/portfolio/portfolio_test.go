package portfolio

import (
	"testing"

	"agentterm/pkg/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowsDropDust(t *testing.T) {
	rows := Rows(models.Portfolio{"PEPE": 0.0000005, "DUST": DustThreshold, "ETH": 1.0},
		Pricing{Prices: models.MarketPrices{"eth": 2000}, Stable: "USDC"})

	require.Len(t, rows, 1)
	assert.Equal(t, "ETH", rows[0].Asset)
	assert.True(t, rows[0].Priced)
	assert.True(t, decimal.NewFromInt(2000).Equal(rows[0].Value))
}

func TestRowsUnknownPriceIsPending(t *testing.T) {
	rows := Rows(models.Portfolio{"LINK": 1.0, "UNI": 2.0},
		Pricing{Prices: models.MarketPrices{"uni": 0}, Stable: "USDC"})

	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.False(t, r.Priced, r.Asset)
	}

	out := Render(rows, 4, 2)
	assert.Contains(t, out, Pending)
	assert.NotContains(t, out, "$0.00")
}

func TestRowsStablecoinFixedAtOne(t *testing.T) {
	rows := Rows(models.Portfolio{"usdc": 100}, Pricing{Prices: models.MarketPrices{"usdc": 0.98}, Stable: "USDC"})

	require.Len(t, rows, 1)
	assert.True(t, rows[0].Priced)
	assert.True(t, decimal.NewFromInt(100).Equal(rows[0].Value))
}

func TestPriceLookupIgnoresCase(t *testing.T) {
	p := Pricing{Prices: models.MarketPrices{"sol": 150}}

	price, ok := p.Price("SOL")
	assert.True(t, ok)
	assert.True(t, decimal.NewFromInt(150).Equal(price))

	_, ok = p.Price("BTC")
	assert.False(t, ok)
}

func TestRowsSortedBySymbol(t *testing.T) {
	rows := Rows(models.Portfolio{"UNI": 1, "ETH": 1, "AAVE": 1}, Pricing{})

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"AAVE", "ETH", "UNI"}, []string{rows[0].Asset, rows[1].Asset, rows[2].Asset})
}

func TestOverlayDoesNotMutate(t *testing.T) {
	stored := models.Portfolio{"ETH": 0.5, "USDC": 10}
	live := decimal.RequireFromString("1.25")

	shown := Overlay(stored, "ETH", &live)

	assert.Equal(t, 1.25, shown["ETH"])
	assert.Equal(t, 10.0, shown["USDC"])
	assert.Equal(t, 0.5, stored["ETH"])

	assert.Equal(t, stored, Overlay(stored, "ETH", nil))
}

func TestAUM(t *testing.T) {
	pricing := Pricing{Prices: models.MarketPrices{"eth": 2000, "uni": 5}, Stable: "USDC"}
	live := decimal.RequireFromString("0.5")
	p := models.Portfolio{"ETH": 3, "USDC": 100, "UNI": 2, "LINK": 4}

	total := AUM(p, pricing, "ETH", &live)

	// 0.5*2000 + 100 + 2*5; stored ETH ignored, LINK unpriced.
	assert.Equal(t, "1110", total.String())
}

func TestAUMWithoutLiveBalance(t *testing.T) {
	pricing := Pricing{Prices: models.MarketPrices{"eth": 2000}, Stable: "USDC"}

	total := AUM(models.Portfolio{"ETH": 3, "USDC": 100}, pricing, "ETH", nil)

	assert.Equal(t, "100", total.String())
}

func TestRenderTable(t *testing.T) {
	out := Render([]Row{{Asset: "ETH", Quantity: decimal.RequireFromString("1.5"), Value: decimal.RequireFromString("3000"), Priced: true}}, 4, 2)

	assert.Contains(t, out, "ASSET")
	assert.Contains(t, out, "ETH")
	assert.Contains(t, out, "1.5")
	assert.Contains(t, out, "$3,000.00")

	assert.Contains(t, Render(nil, 4, 2), "No holdings")
}
