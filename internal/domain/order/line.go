package order

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"comanda/internal/domain/money"
)

// OptionSelection is a chosen option value with the extra price captured at
// resolution time. Later catalog price changes never affect it.
type OptionSelection struct {
	GroupID    string
	GroupName  string
	Value      string
	Label      string
	ExtraPrice decimal.Decimal
}

// equal reports structural equality: same group, same value and label
// compared case-insensitively.
func (s OptionSelection) equal(other OptionSelection) bool {
	return s.GroupID == other.GroupID &&
		strings.EqualFold(s.Value, other.Value) &&
		strings.EqualFold(s.Label, other.Label)
}

// Line is an immutable priced dish line within an order. Every mutation
// returns a new Line with UnitPrice and LineTotal recomputed from the
// retained base price, so prices of already-added lines are stable even if
// the catalog changes afterwards.
type Line struct {
	ID        string
	DishID    string
	Name      string
	Quantity  int
	BasePrice decimal.Decimal
	Options   []OptionSelection
	TakeAway  bool
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// NewLine builds a priced line from its parts. The unit price is the base
// price plus all option extras; the line total is unit price times quantity,
// both at canonical precision. Quantity below 1 is rejected by the callers
// (a zero-quantity line means "removed" and is never represented).
func NewLine(id, dishID, name string, quantity int, basePrice decimal.Decimal, options []OptionSelection, takeAway bool) Line {
	l := Line{
		ID:        id,
		DishID:    dishID,
		Name:      name,
		Quantity:  quantity,
		BasePrice: basePrice,
		Options:   append([]OptionSelection(nil), options...),
		TakeAway:  takeAway,
	}
	l.reprice()
	return l
}

// reprice recomputes UnitPrice and LineTotal from the retained parts.
func (l *Line) reprice() {
	unit := l.BasePrice
	for _, opt := range l.Options {
		unit = unit.Add(opt.ExtraPrice)
	}
	l.UnitPrice = money.Round(unit)
	l.LineTotal = money.Round(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
}

// WithQuantity returns a copy of the line at the given quantity.
func (l Line) WithQuantity(quantity int) Line {
	l.Quantity = quantity
	l.Options = append([]OptionSelection(nil), l.Options...)
	l.reprice()
	return l
}

// WithTakeAway returns a copy of the line with the take-away flag changed.
func (l Line) WithTakeAway(takeAway bool) Line {
	l.TakeAway = takeAway
	l.Options = append([]OptionSelection(nil), l.Options...)
	l.reprice()
	return l
}

// WithOptions returns a copy of the line with a different option selection,
// repriced from the retained base price.
func (l Line) WithOptions(options []OptionSelection) Line {
	l.Options = append([]OptionSelection(nil), options...)
	l.reprice()
	return l
}

// Matches reports whether another line is the same orderable unit: same
// dish, same take-away flag, and set-equal options regardless of order.
// Matching lines are merged by summing quantities instead of appended.
func (l Line) Matches(other Line) bool {
	if l.DishID != other.DishID || l.TakeAway != other.TakeAway {
		return false
	}
	if len(l.Options) != len(other.Options) {
		return false
	}

	a := sortedOptions(l.Options)
	b := sortedOptions(other.Options)
	for i := range a {
		if !a[i].equal(b[i]) {
			return false
		}
	}
	return true
}

// sortedOptions returns a copy ordered by (group id, lowercased value) so
// selection order never affects matching.
func sortedOptions(options []OptionSelection) []OptionSelection {
	out := append([]OptionSelection(nil), options...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].GroupID != out[j].GroupID {
			return out[i].GroupID < out[j].GroupID
		}
		return strings.ToLower(out[i].Value) < strings.ToLower(out[j].Value)
	})
	return out
}
