package eventmodels

import (
	"fmt"
	"strings"
)

type OptionType string

const (
	OptionTypeCall OptionType = "call"
	OptionTypePut  OptionType = "put"
)

func (o OptionType) Validate() error {
	if o != OptionTypeCall && o != OptionTypePut {
		return fmt.Errorf("OptionType: Validate: invalid option type: %s", o)
	}

	return nil
}

// GatewayRight returns the single-letter right token the gateway expects.
func (o OptionType) GatewayRight() string {
	if o == OptionTypePut {
		return "P"
	}

	return "C"
}

// NewOptionTypeFromRight maps the caller-facing right tokens (CALL, PUT, C, P)
// to an OptionType.
func NewOptionTypeFromRight(right string) (OptionType, error) {
	switch strings.ToUpper(strings.TrimSpace(right)) {
	case "CALL", "C":
		return OptionTypeCall, nil
	case "PUT", "P":
		return OptionTypePut, nil
	default:
		return "", fmt.Errorf("NewOptionTypeFromRight: invalid right: %s", right)
	}
}
