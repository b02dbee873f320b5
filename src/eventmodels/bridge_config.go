package eventmodels

import "fmt"

// BridgeConfigYAML is the daemon configuration file. Secrets (API keys,
// bearer tokens) stay in the environment; this file only selects variants
// and endpoints.
type BridgeConfigYAML struct {
	Broker       string            `yaml:"broker"`
	DataProvider string            `yaml:"data_provider"`
	Gateway      GatewayConfigYAML `yaml:"gateway"`
	Alpaca       AlpacaConfigYAML  `yaml:"alpaca"`

	AccountCurrency string `yaml:"account_currency"`
	BaseCurrency    string `yaml:"base_currency"`

	MaxStrikes int `yaml:"max_strikes"`
}

type GatewayConfigYAML struct {
	URL string `yaml:"url"`

	// ClientID 0 requests a random id on connect.
	ClientID int `yaml:"client_id"`
}

type AlpacaConfigYAML struct {
	BaseURL string `yaml:"base_url"`
}

func (c *BridgeConfigYAML) ApplyDefaults() {
	if c.Broker == "" {
		c.Broker = "ibkr"
	}

	if c.DataProvider == "" {
		c.DataProvider = "polygon"
	}

	if c.Gateway.URL == "" {
		c.Gateway.URL = "wss://127.0.0.1:7496/ws"
	}

	if c.Alpaca.BaseURL == "" {
		c.Alpaca.BaseURL = "https://paper-api.alpaca.markets"
	}

	if c.AccountCurrency == "" {
		c.AccountCurrency = "USD"
	}

	if c.BaseCurrency == "" {
		c.BaseCurrency = "USD"
	}

	if c.MaxStrikes == 0 {
		c.MaxStrikes = 20
	}
}

func (c *BridgeConfigYAML) Validate() error {
	if c.MaxStrikes < 0 {
		return fmt.Errorf("BridgeConfigYAML: Validate: max_strikes must not be negative")
	}

	if c.Gateway.ClientID < 0 {
		return fmt.Errorf("BridgeConfigYAML: Validate: gateway client_id must not be negative")
	}

	return nil
}
