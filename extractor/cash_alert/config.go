package cash_alert

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DefaultFieldMarker is the label every transaction block of an alert starts with.
const DefaultFieldMarker = "Amount: "

// Strategy selects how the amount of a block is located.
type Strategy string

const (
	// StrategyBlock takes the first numeral+currency in the block.
	StrategyBlock Strategy = "block"
	// StrategyLabel prefers a numeral+currency right after an "Amount:" or "Amount -" label.
	StrategyLabel Strategy = "label"
)

// ParseStrategy maps config and flag values onto a Strategy. "lenient" and
// "strict" are accepted as aliases.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "block", "lenient":
		return StrategyBlock, nil
	case "label", "strict":
		return StrategyLabel, nil
	}
	return "", fmt.Errorf("unknown extraction strategy %q", s)
}

type Config struct {
	FieldMarker        string
	Strategy           Strategy
	RequireAccountCode bool
}

func DefaultConfig() Config {
	return Config{
		FieldMarker: DefaultFieldMarker,
		Strategy:    StrategyBlock,
	}
}

// LoadConfig reads the extraction.* keys, falling back to DefaultConfig for
// anything unset or invalid.
func LoadConfig() Config {
	cfg := DefaultConfig()
	if marker := viper.GetString("extraction.field_marker"); marker != "" {
		cfg.FieldMarker = marker
	}
	if strategy, err := ParseStrategy(viper.GetString("extraction.strategy")); err == nil {
		cfg.Strategy = strategy
	}
	cfg.RequireAccountCode = viper.GetBool("extraction.require_account_code")
	return cfg
}
