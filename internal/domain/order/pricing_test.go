package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comanda/internal/domain/catalog"
	"comanda/internal/domain/money"
)

func TestPriceLine_InvalidQuantity(t *testing.T) {
	p := NewPricer(newTestCatalog())

	_, err := p.PriceLine(context.Background(), PriceLineRequest{DishID: "tiramisu", Quantity: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = p.PriceLine(context.Background(), PriceLineRequest{DishID: "tiramisu", Quantity: -1})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestPriceLine_DishNotFound(t *testing.T) {
	p := NewPricer(newTestCatalog())

	_, err := p.PriceLine(context.Background(), PriceLineRequest{DishID: "nope", Quantity: 1})
	require.ErrorIs(t, err, catalog.ErrDishNotFound)
}

func TestPriceLine_NoOptions(t *testing.T) {
	p := NewPricer(newTestCatalog())

	l, err := p.PriceLine(context.Background(), PriceLineRequest{DishID: "tiramisu", Quantity: 2})
	require.NoError(t, err)

	assert.NotEmpty(t, l.ID)
	assert.Equal(t, "tiramisu", l.DishID)
	assert.Equal(t, "Tiramisu", l.Name)
	assert.Empty(t, l.Options)
	assert.Equal(t, "6.500000", money.Format(l.UnitPrice))
	assert.Equal(t, "13.000000", money.Format(l.LineTotal))
}

func TestPriceLine_WithOptionExtra(t *testing.T) {
	p := NewPricer(newTestCatalog())

	l, err := p.PriceLine(context.Background(), PriceLineRequest{
		DishID:   "margherita",
		Options:  []OptionRef{{Group: "pizza-size", Value: "large"}},
		Quantity: 3,
	})
	require.NoError(t, err)

	require.Len(t, l.Options, 1)
	assert.Equal(t, "Large (32cm)", l.Options[0].Label)
	assert.Equal(t, "2.500000", money.Format(l.Options[0].ExtraPrice))
	assert.Equal(t, "12.500000", money.Format(l.UnitPrice))
	assert.Equal(t, "37.500000", money.Format(l.LineTotal))
}

func TestPriceLine_GroupByNameCaseInsensitive(t *testing.T) {
	p := NewPricer(newTestCatalog())

	l, err := p.PriceLine(context.Background(), PriceLineRequest{
		DishID:   "margherita",
		Options:  []OptionRef{{Group: "SIZE", Value: "LARGE"}},
		Quantity: 1,
	})
	require.NoError(t, err)

	require.Len(t, l.Options, 1)
	// The canonical catalog spelling is stored, not the request spelling.
	assert.Equal(t, "large", l.Options[0].Value)
	assert.Equal(t, "pizza-size", l.Options[0].GroupID)
}

func TestPriceLine_UnknownGroup(t *testing.T) {
	p := NewPricer(newTestCatalog())

	_, err := p.PriceLine(context.Background(), PriceLineRequest{
		DishID:   "margherita",
		Options:  []OptionRef{{Group: "toppings", Value: "ham"}},
		Quantity: 1,
	})
	require.ErrorIs(t, err, ErrOptionNotFound)
}

func TestPriceLine_UnknownValue(t *testing.T) {
	p := NewPricer(newTestCatalog())

	_, err := p.PriceLine(context.Background(), PriceLineRequest{
		DishID:   "margherita",
		Options:  []OptionRef{{Group: "pizza-size", Value: "xxl"}},
		Quantity: 1,
	})
	require.ErrorIs(t, err, ErrOptionValueNotFound)
}

func TestPriceLine_Idempotent(t *testing.T) {
	p := NewPricer(newTestCatalog())
	req := PriceLineRequest{
		DishID:   "margherita",
		Options:  []OptionRef{{Group: "pizza-size", Value: "large"}},
		Quantity: 2,
	}

	a, err := p.PriceLine(context.Background(), req)
	require.NoError(t, err)
	b, err := p.PriceLine(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, money.Format(a.UnitPrice), money.Format(b.UnitPrice))
	assert.Equal(t, money.Format(a.LineTotal), money.Format(b.LineTotal))
	assert.True(t, a.Matches(b))
}
