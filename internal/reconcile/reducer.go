// Package reconcile turns grouped tokens and their fetched balances into a
// progressively updated reconciliation view.
package reconcile

import (
	"github.com/shopspring/decimal"

	"bridgeScope/internal/amount"
	"bridgeScope/internal/model"
)

// Event is a state transition for one load cycle.
type Event interface {
	generation() string
}

// GroupingReset replaces the whole state with freshly grouped tokens.
type GroupingReset struct {
	Generation string
	Tokens     []model.GroupedTokenStat
}

// AssetResolved carries the escrowed balance of one token.
type AssetResolved struct {
	Generation string
	Key        string
	Amount     string
	Failed     bool
}

// LiabilityResolved carries the supply of one liability entry.
type LiabilityResolved struct {
	Generation string
	Key        string
	Index      int
	Amount     string
	Failed     bool
}

func (e GroupingReset) generation() string     { return e.Generation }
func (e AssetResolved) generation() string     { return e.Generation }
func (e LiabilityResolved) generation() string { return e.Generation }

// State is an immutable snapshot of one load cycle. Reduce never mutates its
// input.
type State struct {
	Generation string
	Tokens     []model.GroupedTokenStat
	index      map[string]int
}

// NewState builds a state for generation, copying tokens.
func NewState(generation string, tokens []model.GroupedTokenStat) State {
	out := State{
		Generation: generation,
		Tokens:     make([]model.GroupedTokenStat, len(tokens)),
		index:      make(map[string]int, len(tokens)),
	}
	for i, tok := range tokens {
		out.Tokens[i] = tok.Clone()
		out.index[tok.Key] = i
	}
	return out
}

// Token looks a token up by key.
func (s State) Token(key string) (model.GroupedTokenStat, bool) {
	i, ok := s.index[key]
	if !ok {
		return model.GroupedTokenStat{}, false
	}
	return s.Tokens[i], true
}

// Reduce applies ev to s. The boolean is false when ev was ignored because it
// belongs to another generation, names an unknown field, or targets a field
// that already resolved.
func Reduce(s State, ev Event) (State, bool) {
	switch e := ev.(type) {
	case GroupingReset:
		return NewState(e.Generation, e.Tokens), true
	case AssetResolved:
		i, ok := s.lookup(e.Generation, e.Key)
		if !ok || s.Tokens[i].AssetResolved {
			return s, false
		}
		return s.replace(i, ApplyAsset(s.Tokens[i], e.Amount, e.Failed)), true
	case LiabilityResolved:
		i, ok := s.lookup(e.Generation, e.Key)
		if !ok {
			return s, false
		}
		tok := s.Tokens[i]
		if e.Index < 0 || e.Index >= len(tok.Liabilities) || tok.Liabilities[e.Index].Resolved {
			return s, false
		}
		return s.replace(i, ApplyLiability(tok, e.Index, e.Amount, e.Failed)), true
	default:
		return s, false
	}
}

func (s State) lookup(generation, key string) (int, bool) {
	if generation != s.Generation {
		return 0, false
	}
	i, ok := s.index[key]
	return i, ok
}

func (s State) replace(i int, tok model.GroupedTokenStat) State {
	tokens := make([]model.GroupedTokenStat, len(s.Tokens))
	copy(tokens, s.Tokens)
	tokens[i] = tok
	return State{Generation: s.Generation, Tokens: tokens, index: s.index}
}

// ApplyAsset records the asset balance of tok and recomputes its derived
// fields.
func ApplyAsset(tok model.GroupedTokenStat, raw string, failed bool) model.GroupedTokenStat {
	next := tok.Clone()
	next.AssetBalance = canonical(raw, failed)
	next.AssetResolved = true
	next.AssetFailed = failed
	recompute(&next)
	return next
}

// ApplyLiability records the supply of entry idx and recomputes the derived
// fields of tok.
func ApplyLiability(tok model.GroupedTokenStat, idx int, raw string, failed bool) model.GroupedTokenStat {
	next := tok.Clone()
	if idx < 0 || idx >= len(next.Liabilities) {
		return next
	}
	next.Liabilities[idx].Amount = canonical(raw, failed)
	next.Liabilities[idx].Resolved = true
	next.Liabilities[idx].Failed = failed
	recompute(&next)
	return next
}

// pendingTokens copies tokens with every fetched amount discarded. The
// copies are pending until a new grouping replaces them.
func pendingTokens(tokens []model.GroupedTokenStat) []model.GroupedTokenStat {
	out := make([]model.GroupedTokenStat, len(tokens))
	for i, tok := range tokens {
		next := tok.Clone()
		next.AssetBalance = "0"
		next.AssetResolved = false
		next.AssetFailed = false
		for j := range next.Liabilities {
			next.Liabilities[j].Amount = "0"
			next.Liabilities[j].Resolved = false
			next.Liabilities[j].Failed = false
		}
		recompute(&next)
		next.State = model.LoadPending
		out[i] = next
	}
	return out
}

// AssetValue is the asset balance of tok in token units.
func AssetValue(tok model.GroupedTokenStat) decimal.Decimal {
	return amount.FromBaseUnits(tok.AssetBalance, int(tok.Decimals))
}

func recompute(tok *model.GroupedTokenStat) {
	total := decimal.Zero
	for _, entry := range tok.Liabilities {
		total = total.Add(amount.FromBaseUnits(entry.Amount, int(tok.Decimals)))
	}
	tok.TotalLiabilities = total
	tok.Difference = AssetValue(*tok).Sub(total)
	tok.IsBalanced = !tok.Difference.IsNegative()
	if tok.Complete() {
		tok.State = model.LoadComplete
	} else {
		tok.State = model.LoadLoading
	}
}

func canonical(raw string, failed bool) string {
	if failed {
		return "0"
	}
	return amount.Parse(raw).String()
}
