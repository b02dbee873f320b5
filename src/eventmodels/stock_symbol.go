package eventmodels

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"
)

type StockSymbol string

func (s StockSymbol) String() string {
	return strings.ToUpper(string(s))
}

func (s StockSymbol) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Validate accepts exchange tickers, tolerating class shares (BRK.B) and
// preferred notations (BF-B).
func (s StockSymbol) Validate() error {
	cleaned := strings.TrimSpace(s.String())
	if cleaned == "" {
		return fmt.Errorf("StockSymbol: Validate: symbol is empty")
	}

	stripped := strings.NewReplacer(".", "", "-", "").Replace(cleaned)
	if stripped == "" {
		return fmt.Errorf("StockSymbol: Validate: invalid symbol: %s", cleaned)
	}

	for _, r := range stripped {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return fmt.Errorf("StockSymbol: Validate: invalid symbol: %s", cleaned)
		}
	}

	return nil
}

func NewStockSymbol(s string) StockSymbol {
	return StockSymbol(strings.ToUpper(strings.TrimSpace(s)))
}
