package order

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"comanda/internal/domain/catalog"
	"comanda/internal/domain/money"
)

// Sentinel errors for option resolution.
var (
	// ErrOptionNotFound is returned when a requested option group is not
	// offered by the dish.
	ErrOptionNotFound = errors.New("option not found")
	// ErrOptionValueNotFound is returned when a requested value does not
	// exist within its option group.
	ErrOptionValueNotFound = errors.New("option value not found")
	// ErrInvalidQuantity is returned for a non-positive requested quantity.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
)

// OptionRef identifies a requested option by group (id, or name as a
// fallback) and item value.
type OptionRef struct {
	Group string
	Value string
}

// PriceLineRequest holds the input for pricing a single dish line.
type PriceLineRequest struct {
	DishID   string
	Options  []OptionRef
	Quantity int
	TakeAway bool
}

// Pricer resolves a dish plus requested options against the current catalog
// into a priced Line. It is a pure function over catalog state: option
// extras are baked into the line at resolution time.
type Pricer struct {
	catalog catalog.Repository
}

// NewPricer creates a Pricer reading from the given catalog.
func NewPricer(c catalog.Repository) *Pricer {
	return &Pricer{catalog: c}
}

// PriceLine loads the dish, batch-loads its option groups in one call, and
// resolves every requested option case-insensitively. The unit price is
// accumulated with exact decimal arithmetic and stored at canonical
// precision; binary floating point is never involved.
func (p *Pricer) PriceLine(ctx context.Context, req PriceLineRequest) (Line, error) {
	if req.Quantity <= 0 {
		return Line{}, ErrInvalidQuantity
	}

	dish, err := p.catalog.GetDish(ctx, req.DishID)
	if err != nil {
		return Line{}, errors.Wrapf(err, "get dish %q", req.DishID)
	}

	if len(req.Options) == 0 {
		return NewLine(uuid.New().String(), dish.ID, dish.Name, req.Quantity, money.Round(dish.BasePrice), nil, req.TakeAway), nil
	}

	groups, err := p.catalog.GetOptionGroups(ctx, dish.OptionGroupIDs)
	if err != nil {
		return Line{}, errors.Wrap(err, "get option groups")
	}

	byID := make(map[string]catalog.OptionGroup, len(groups))
	for _, g := range groups {
		byID[g.ID] = g
	}

	selections := make([]OptionSelection, 0, len(req.Options))
	for _, ref := range req.Options {
		group, ok := resolveGroup(byID, groups, ref.Group)
		if !ok {
			return Line{}, errors.Wrapf(ErrOptionNotFound, "group %q", ref.Group)
		}

		item, ok := resolveItem(group, ref.Value)
		if !ok {
			return Line{}, errors.Wrapf(ErrOptionValueNotFound, "group %q value %q", ref.Group, ref.Value)
		}

		selections = append(selections, OptionSelection{
			GroupID:    group.ID,
			GroupName:  group.Name,
			Value:      item.Value,
			Label:      item.Label,
			ExtraPrice: item.ExtraPrice,
		})
	}

	return NewLine(uuid.New().String(), dish.ID, dish.Name, req.Quantity, money.Round(dish.BasePrice), selections, req.TakeAway), nil
}

// resolveGroup looks the group up by id first, then by case-insensitive
// name among the dish's groups.
func resolveGroup(byID map[string]catalog.OptionGroup, groups []catalog.OptionGroup, ref string) (catalog.OptionGroup, bool) {
	if g, ok := byID[ref]; ok {
		return g, true
	}
	for _, g := range groups {
		if strings.EqualFold(g.Name, ref) {
			return g, true
		}
	}
	return catalog.OptionGroup{}, false
}

// resolveItem matches an item by case-insensitive value within the group.
func resolveItem(group catalog.OptionGroup, value string) (catalog.OptionItem, bool) {
	for _, item := range group.Items {
		if strings.EqualFold(item.Value, value) {
			return item, true
		}
	}
	return catalog.OptionItem{}, false
}
