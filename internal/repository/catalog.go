package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"comanda/internal/domain/catalog"
	"comanda/internal/domain/money"
)

const (
	listDishesSQL = `SELECT id, name, base_price, category, option_group_ids
		FROM dishes ORDER BY id`

	getDishByIDSQL = `SELECT id, name, base_price, category, option_group_ids
		FROM dishes WHERE id = $1`

	getOptionGroupsByIDsSQL = `SELECT id, name, items
		FROM option_groups WHERE id = ANY($1) ORDER BY id`
)

var _ catalog.Repository = (*CatalogRepository)(nil)

// CatalogRepository implements catalog.Repository backed by PostgreSQL.
// Option group items are stored as JSONB with extra prices as six-digit
// decimal strings.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// ListDishes returns all dishes ordered by ID.
func (r *CatalogRepository) ListDishes(ctx context.Context) ([]catalog.Dish, error) {
	rows, err := r.pool.Query(ctx, listDishesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing dishes: %w", err)
	}
	return pgx.CollectRows(rows, scanDish)
}

// GetDish returns a single dish or catalog.ErrDishNotFound.
func (r *CatalogRepository) GetDish(ctx context.Context, id string) (*catalog.Dish, error) {
	rows, err := r.pool.Query(ctx, getDishByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting dish %q: %w", id, err)
	}

	d, err := pgx.CollectExactlyOneRow(rows, scanDish)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrDishNotFound
		}
		return nil, fmt.Errorf("getting dish %q: %w", id, err)
	}
	return &d, nil
}

// GetOptionGroups returns option groups matching any of the given IDs in a
// single query.
func (r *CatalogRepository) GetOptionGroups(ctx context.Context, ids []string) ([]catalog.OptionGroup, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, getOptionGroupsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting option groups: %w", err)
	}
	return pgx.CollectRows(rows, scanOptionGroup)
}

func scanDish(row pgx.CollectableRow) (catalog.Dish, error) {
	var d catalog.Dish
	err := row.Scan(&d.ID, &d.Name, &d.BasePrice, &d.Category, &d.OptionGroupIDs)
	return d, err
}

// optionItemRecord is the JSONB representation of one option group item.
type optionItemRecord struct {
	Value      string `json:"value"`
	Label      string `json:"label"`
	ExtraPrice string `json:"extraPrice"`
}

func scanOptionGroup(row pgx.CollectableRow) (catalog.OptionGroup, error) {
	var (
		g         catalog.OptionGroup
		itemsJSON []byte
	)
	if err := row.Scan(&g.ID, &g.Name, &itemsJSON); err != nil {
		return catalog.OptionGroup{}, err
	}

	var records []optionItemRecord
	if err := json.Unmarshal(itemsJSON, &records); err != nil {
		return catalog.OptionGroup{}, fmt.Errorf("unmarshaling items of group %q: %w", g.ID, err)
	}

	g.Items = make([]catalog.OptionItem, len(records))
	for i, rec := range records {
		extra, err := money.Parse(rec.ExtraPrice)
		if err != nil {
			return catalog.OptionGroup{}, fmt.Errorf("group %q item %q: %w", g.ID, rec.Value, err)
		}
		g.Items[i] = catalog.OptionItem{Value: rec.Value, Label: rec.Label, ExtraPrice: extra}
	}
	return g, nil
}
