package eventmodels

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type PositionKind string

const (
	PositionKindStock PositionKind = "stock"
	PositionKindCall  PositionKind = "call"
	PositionKindPut   PositionKind = "put"
)

// Position is one reconciled row of the live position view. Recomputed on
// every reconciliation pass, never persisted.
type Position struct {
	Ticker          StockSymbol  `json:"ticker"`
	Kind            PositionKind `json:"kind"`
	Quantity        float64      `json:"qty"`
	Strike          float64      `json:"strike,omitempty"`
	Expiry          string       `json:"expiry,omitempty"`
	DaysToExpiry    int          `json:"dte,omitempty"`
	AvgCost         float64      `json:"avg_cost"`
	CurrentPrice    float64      `json:"current_price"`
	UnderlyingPrice float64      `json:"underlying_price,omitempty"`
	Greeks          OptionGreeks `json:"greeks"`
	UnrealizedPnl   float64      `json:"unrealized_pnl"`
	DailyPnl        float64      `json:"daily_pnl"`
	Account         string       `json:"account"`
}

func (p Position) Multiplier() float64 {
	if p.Kind == PositionKindStock {
		return 1
	}

	return 100
}

// PositionsView is the full payload served to the calling layer: every
// reconciled position, the distinct accounts observed, and the per-account
// summaries.
type PositionsView struct {
	Accounts  []string                  `json:"accounts"`
	Positions []Position                `json:"positions"`
	Summary   map[string]AccountSummary `json:"summary"`
}

// NewEmptyPositionsView is what a disconnected session serves: well-formed,
// never nil maps or slices.
func NewEmptyPositionsView() PositionsView {
	return PositionsView{
		Accounts:  []string{},
		Positions: []Position{},
		Summary:   map[string]AccountSummary{},
	}
}

func (v PositionsView) String() string {
	display := &strings.Builder{}
	p := message.NewPrinter(language.English)

	table := tablewriter.NewWriter(display)
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetColumnSeparator("")
	table.SetHeader([]string{"Account", "Ticker", "Kind", "Qty", "Avg Cost", "Price", "Unrlzd P&L", "Daily P&L"})

	for _, pos := range v.Positions {
		ticker := string(pos.Ticker)
		if pos.Kind != PositionKindStock {
			ticker = fmt.Sprintf("%s %s %s %.2f", pos.Ticker, pos.Expiry, strings.ToUpper(string(pos.Kind)), pos.Strike)
		}

		table.Append([]string{
			pos.Account,
			ticker,
			string(pos.Kind),
			p.Sprintf("%.0f", pos.Quantity),
			p.Sprintf("%.2f", pos.AvgCost),
			p.Sprintf("%.2f", pos.CurrentPrice),
			p.Sprintf("%.2f", pos.UnrealizedPnl),
			p.Sprintf("%.2f", pos.DailyPnl),
		})
	}

	table.Render()
	return display.String()
}
