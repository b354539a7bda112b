package parsers

import (
	"fmt"
	"sort"

	"github.com/agnivade/levenshtein"

	"github.com/modelrank/judgekit/internal/domain"
	"github.com/modelrank/judgekit/internal/ports"
)

// Strategy names accepted by the registry. These form a closed set resolved
// at startup; there is no dynamic loading.
const (
	// StrategyTagged selects the LABEL:/REASONING: protocol.
	StrategyTagged = "tagged"
	// StrategyGraded selects the JSON score-field protocol.
	StrategyGraded = "json-field"
)

// Config carries strategy construction parameters.
type Config struct {
	// Field is the JSON score field name for the json-field strategy.
	// Empty selects the default "O". Ignored by other strategies.
	Field string
}

// factory builds a parser from its configuration.
type factory func(cfg Config) (ports.ResponseParser, error)

// factories is the static strategy registry. The map is populated once and
// never mutated at runtime, keeping strategy resolution statically
// verifiable while remaining pluggable by config.
var factories = map[string]factory{
	StrategyTagged: func(Config) (ports.ResponseParser, error) {
		return NewTaggedParser(), nil
	},
	StrategyGraded: func(cfg Config) (ports.ResponseParser, error) {
		return NewGradedParser(cfg.Field)
	},
}

// maxSuggestionDistance bounds how far a typo may be from a known strategy
// name before the registry stops suggesting it.
const maxSuggestionDistance = 3

// New resolves a strategy name to a configured parser. Unknown names fail
// fast with domain.ErrUnknownStrategy, including a nearest-name suggestion
// for likely typos.
func New(strategy string, cfg Config) (ports.ResponseParser, error) {
	f, ok := factories[strategy]
	if !ok {
		if suggestion := nearestStrategy(strategy); suggestion != "" {
			return nil, fmt.Errorf("%w: %q (did you mean %q? known strategies: %v)",
				domain.ErrUnknownStrategy, strategy, suggestion, Strategies())
		}
		return nil, fmt.Errorf("%w: %q (known strategies: %v)",
			domain.ErrUnknownStrategy, strategy, Strategies())
	}
	return f(cfg)
}

// Strategies returns the known strategy names in sorted order.
func Strategies() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// nearestStrategy returns the known strategy closest to name by edit
// distance, or "" when nothing is plausibly close.
func nearestStrategy(name string) string {
	best := ""
	bestDist := maxSuggestionDistance + 1
	for _, candidate := range Strategies() {
		if d := levenshtein.ComputeDistance(name, candidate); d < bestDist {
			best = candidate
			bestDist = d
		}
	}
	return best
}
