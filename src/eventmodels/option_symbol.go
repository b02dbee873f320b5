package eventmodels

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type OptionSymbol string

// OptionSymbolComponents holds the parsed parts of an OCC option symbol.
type OptionSymbolComponents struct {
	Underlying  string
	Expiration  time.Time
	OptionType  string
	StrikePrice float64
	Symbol      OptionSymbol
}

func (s OptionSymbol) NoPrefix() string {
	if strings.HasPrefix(string(s), "O:") {
		return string(s)[2:]
	}

	return string(s)
}

func (s OptionSymbol) Description() (string, error) {
	components, err := NewOptionSymbolComponents(s)
	if err != nil {
		return "", fmt.Errorf("OptionSymbol.Description: failed to parse option symbol: %w", err)
	}

	expiration := components.Expiration.Format("Jan 2 2006")
	strikePrice := fmt.Sprintf("%.2f", components.StrikePrice)

	optionType := "Call"
	if components.OptionType == "P" {
		optionType = "Put"
	}

	return fmt.Sprintf("%s %s $%s %s", components.Underlying, expiration, strikePrice, optionType), nil
}

func NewOptionSymbol(option OptionSymbolComponents) (OptionSymbol, error) {
	if option.OptionType != "C" && option.OptionType != "P" {
		return "", fmt.Errorf("invalid option type: %s", option.OptionType)
	}

	year := option.Expiration.Year() % 100
	month := int(option.Expiration.Month())
	day := option.Expiration.Day()

	// OCC strike field is the price times 1000, zero-padded to 8 digits
	strikePrice := fmt.Sprintf("%08d", int(option.StrikePrice*1000))

	ticker := fmt.Sprintf("%s%02d%02d%02d%s%s",
		option.Underlying, year, month, day, option.OptionType, strikePrice)

	return OptionSymbol(ticker), nil
}

// NewOptionSymbolComponents parses an OCC option symbol. The last 15
// characters are fixed width: 6 for the expiration date, 1 for the right and
// 8 for the strike in thousandths; everything before them is the underlying.
func NewOptionSymbolComponents(symbol OptionSymbol) (*OptionSymbolComponents, error) {
	raw := symbol.NoPrefix()
	if len(raw) <= 15 {
		return nil, fmt.Errorf("NewOptionSymbolComponents: symbol too short: %s", raw)
	}

	underlying := raw[:len(raw)-15]
	suffix := raw[len(raw)-15:]

	expiration, err := time.Parse("060102", suffix[:6])
	if err != nil {
		return nil, fmt.Errorf("NewOptionSymbolComponents: failed to parse expiration %s: %w", suffix[:6], err)
	}

	right := string(suffix[6])
	if right != "C" && right != "P" {
		return nil, fmt.Errorf("NewOptionSymbolComponents: invalid right %s in %s", right, raw)
	}

	strikeRaw, err := strconv.Atoi(suffix[7:])
	if err != nil {
		return nil, fmt.Errorf("NewOptionSymbolComponents: failed to parse strike %s: %w", suffix[7:], err)
	}

	return &OptionSymbolComponents{
		Underlying:  underlying,
		Expiration:  expiration,
		OptionType:  right,
		StrikePrice: float64(strikeRaw) / 1000.0,
		Symbol:      symbol,
	}, nil
}
