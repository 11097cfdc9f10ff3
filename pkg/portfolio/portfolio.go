// Package portfolio values holdings against market prices and renders
// the holdings table.
package portfolio

import (
	"sort"
	"strings"

	"agentterm/pkg/models"
	"agentterm/pkg/utils"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
)

// DustThreshold hides holdings at or below this quantity.
const DustThreshold = 1e-6

// Pending is shown instead of a value when no price is known.
const Pending = "pending"

var dust = decimal.NewFromFloat(DustThreshold)

// Pricing resolves USD prices for asset symbols.
type Pricing struct {
	Prices models.MarketPrices
	// Stable is priced at exactly 1 regardless of Prices.
	Stable string
}

// Price returns the unit price of asset. Lookups ignore case. A missing
// or non-positive price is reported as unknown.
func (p Pricing) Price(asset string) (decimal.Decimal, bool) {
	if p.Stable != "" && strings.EqualFold(asset, p.Stable) {
		return decimal.NewFromInt(1), true
	}
	price, ok := p.Prices[strings.ToLower(asset)]
	if !ok || price <= 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(price), true
}

// Row is one displayed holding.
type Row struct {
	Asset    string
	Quantity decimal.Decimal
	Value    decimal.Decimal
	Priced   bool
}

// Rows returns the holdings above the dust threshold sorted by symbol.
func Rows(p models.Portfolio, pricing Pricing) []Row {
	rows := make([]Row, 0, len(p))
	for asset, qty := range p {
		q := decimal.NewFromFloat(qty)
		if q.LessThanOrEqual(dust) {
			continue
		}
		row := Row{Asset: asset, Quantity: q}
		if price, ok := pricing.Price(asset); ok {
			row.Value = q.Mul(price)
			row.Priced = true
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Asset < rows[j].Asset })
	return rows
}

// Overlay returns a copy of p whose native entry is the live balance.
// p itself is left untouched.
func Overlay(p models.Portfolio, native string, live *decimal.Decimal) models.Portfolio {
	out := p.Clone()
	if live != nil {
		out[native] = live.InexactFloat64()
	}
	return out
}

// AUM totals the live native balance and every non-native holding.
// The backend-reported native quantity is ignored in favour of live.
func AUM(p models.Portfolio, pricing Pricing, native string, live *decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	if live != nil {
		if price, ok := pricing.Price(native); ok {
			total = total.Add(live.Mul(price))
		}
	}
	for asset, qty := range p {
		if strings.EqualFold(asset, native) {
			continue
		}
		if price, ok := pricing.Price(asset); ok {
			total = total.Add(decimal.NewFromFloat(qty).Mul(price))
		}
	}
	return total
}

var (
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FAFAFA")).Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true).Padding(0, 1)
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#874BFD"))
)

// Render draws rows as a table of asset, quantity and USD value.
func Render(rows []Row, qtyDecimals, fiatDecimals int) string {
	if len(rows) == 0 {
		return pendingStyle.Render("No holdings")
	}
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		value := Pending
		if r.Priced {
			value = utils.FormatUSD(r.Value, fiatDecimals)
		}
		data = append(data, []string{r.Asset, utils.FormatQuantity(r.Quantity, qtyDecimals), value})
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("ASSET", "QTY", "VALUE").
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 2 && row >= 0 && row < len(rows) && !rows[row].Priced {
				return pendingStyle
			}
			if col > 0 {
				return cellStyle.Align(lipgloss.Right)
			}
			return cellStyle
		})
	return t.String()
}
