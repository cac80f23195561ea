// Package catalog holds the read-only dish and option catalog the pricing
// engine resolves against.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrDishNotFound is returned when a requested dish does not exist.
	ErrDishNotFound = errors.New("dish not found")
	// ErrOptionGroupNotFound is returned when a referenced option group
	// does not exist.
	ErrOptionGroupNotFound = errors.New("option group not found")
)

// Dish represents a menu item available for ordering.
type Dish struct {
	ID             string
	Name           string
	BasePrice      decimal.Decimal
	Category       string
	OptionGroupIDs []string
}

// OptionGroup is a named set of selectable variants for a dish, e.g.
// "Size" with small/medium/large items.
type OptionGroup struct {
	ID    string
	Name  string
	Items []OptionItem
}

// OptionItem is a single selectable value within a group. ExtraPrice is
// added to the dish base price when the item is selected.
type OptionItem struct {
	Value      string
	Label      string
	ExtraPrice decimal.Decimal
}

// Repository defines read operations for the dish catalog.
type Repository interface {
	ListDishes(ctx context.Context) ([]Dish, error)
	GetDish(ctx context.Context, id string) (*Dish, error)
	GetOptionGroups(ctx context.Context, ids []string) ([]OptionGroup, error)
}
