package eventmodels

import (
	"sort"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// OptionChainQuote is the assembled per-contract quote of the chain view.
type OptionChainQuote struct {
	Bid          float64 `json:"bid"`
	Ask          float64 `json:"ask"`
	Last         float64 `json:"last"`
	Mid          float64 `json:"mid"`
	Volume       float64 `json:"volume"`
	OpenInterest float64 `json:"open_interest"`
	Delta        float64 `json:"delta"`
	Gamma        float64 `json:"gamma"`
	Theta        float64 `json:"theta"`
	Vega         float64 `json:"vega"`
	IV           float64 `json:"iv"`
}

// OptionChain groups calls and puts by expiration date, keyed inside each
// expiration by the formatted strike.
type OptionChain struct {
	UnderlyingPrice float64                                `json:"underlying_price"`
	Expirations     []string                               `json:"expirations"`
	Strikes         []float64                              `json:"strikes"`
	Calls           map[string]map[string]OptionChainQuote `json:"calls"`
	Puts            map[string]map[string]OptionChainQuote `json:"puts"`
}

func NewEmptyOptionChain() OptionChain {
	return OptionChain{
		Expirations: []string{},
		Strikes:     []float64{},
		Calls:       map[string]map[string]OptionChainQuote{},
		Puts:        map[string]map[string]OptionChainQuote{},
	}
}

// FormatStrike renders a strike as a stable map key: fixed two decimals so
// 420 and 420.0 collapse to the same contract.
func FormatStrike(strike float64) string {
	return strconv.FormatFloat(strike, 'f', 2, 64)
}

func (c OptionChain) String() string {
	display := &strings.Builder{}
	p := message.NewPrinter(language.English)

	table := tablewriter.NewWriter(display)
	table.SetAlignment(tablewriter.ALIGN_CENTER)
	table.SetColumnSeparator("")
	table.SetHeader([]string{"Expiration", "Strike", "Call Bid", "Call Ask", "Call IV", "Put Bid", "Put Ask", "Put IV"})

	strikes := append([]float64{}, c.Strikes...)
	sort.Float64s(strikes)

	for _, expiration := range c.Expirations {
		for _, strike := range strikes {
			key := FormatStrike(strike)
			call, hasCall := c.Calls[expiration][key]
			put, hasPut := c.Puts[expiration][key]
			if !hasCall && !hasPut {
				continue
			}

			table.Append([]string{
				expiration,
				p.Sprintf("%.2f", strike),
				p.Sprintf("%.2f", call.Bid),
				p.Sprintf("%.2f", call.Ask),
				p.Sprintf("%.1f%%", call.IV),
				p.Sprintf("%.2f", put.Bid),
				p.Sprintf("%.2f", put.Ask),
				p.Sprintf("%.1f%%", put.IV),
			})
		}
	}

	table.Render()
	return display.String()
}
