package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"comanda/internal/domain/money"
	"comanda/internal/domain/order"
)

const (
	upsertOrderSQL = `INSERT INTO orders
			(id, type, linked_order_id, created_by, table_name, status, note, customer_count, lines, total, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			table_name = EXCLUDED.table_name,
			status = EXCLUDED.status,
			note = EXCLUDED.note,
			customer_count = EXCLUDED.customer_count,
			lines = EXCLUDED.lines,
			total = EXCLUDED.total,
			updated_at = EXCLUDED.updated_at`

	getOrderByIDSQL = `SELECT id, type, COALESCE(linked_order_id, ''), created_by, table_name, status, note, customer_count, lines, total, created_at, updated_at
		FROM orders WHERE id = $1`

	getLinkedChildrenSQL = `SELECT id, type, COALESCE(linked_order_id, ''), created_by, table_name, status, note, customer_count, lines, total, created_at, updated_at
		FROM orders WHERE linked_order_id = $1 ORDER BY created_at`

	deleteOrderSQL = `DELETE FROM orders WHERE id = $1`
)

var _ order.Store = (*OrderStore)(nil)

// OrderStore implements order.Store backed by PostgreSQL. The whole
// aggregate is written on every save; lines live in a JSONB column with
// monetary fields serialized as six-digit decimal strings.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// lineRecord is the JSONB representation of an order line.
type lineRecord struct {
	ID        string            `json:"id"`
	DishID    string            `json:"dishId"`
	Name      string            `json:"name"`
	Quantity  int               `json:"quantity"`
	BasePrice string            `json:"basePrice"`
	Options   []selectionRecord `json:"options,omitempty"`
	TakeAway  bool              `json:"takeAway"`
	UnitPrice string            `json:"unitPrice"`
	LineTotal string            `json:"lineTotal"`
}

type selectionRecord struct {
	GroupID    string `json:"groupId"`
	GroupName  string `json:"groupName"`
	Value      string `json:"value"`
	Label      string `json:"label"`
	ExtraPrice string `json:"extraPrice"`
}

// Save upserts the order aggregate.
func (s *OrderStore) Save(ctx context.Context, o *order.Order) error {
	linesJSON, err := json.Marshal(toLineRecords(o.Lines))
	if err != nil {
		return fmt.Errorf("marshaling order lines: %w", err)
	}

	_, err = s.pool.Exec(ctx, upsertOrderSQL,
		o.ID, string(o.Type), o.LinkedOrderID, o.CreatedBy, o.Table,
		string(o.Status), o.Note, o.CustomerCount, linesJSON, o.Total,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("saving order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order or order.ErrOrderNotFound.
func (s *OrderStore) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := s.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// GetLinkedChildren returns all SUB orders referencing the given MAIN.
func (s *OrderStore) GetLinkedChildren(ctx context.Context, mainID string) ([]order.Order, error) {
	rows, err := s.pool.Query(ctx, getLinkedChildrenSQL, mainID)
	if err != nil {
		return nil, fmt.Errorf("getting linked orders of %q: %w", mainID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// Delete removes an order, reporting whether a row was deleted.
func (s *OrderStore) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := s.pool.Exec(ctx, deleteOrderSQL, id)
	if err != nil {
		return false, fmt.Errorf("deleting order %q: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		typ       string
		status    string
		linesJSON []byte
		createdAt time.Time
		updatedAt time.Time
	)
	err := row.Scan(
		&o.ID, &typ, &o.LinkedOrderID, &o.CreatedBy, &o.Table,
		&status, &o.Note, &o.CustomerCount, &linesJSON, &o.Total,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return order.Order{}, err
	}

	o.Type = order.Type(typ)
	o.Status = order.Status(status)
	o.CreatedAt = createdAt
	o.UpdatedAt = updatedAt

	var records []lineRecord
	if err := json.Unmarshal(linesJSON, &records); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling order lines: %w", err)
	}
	o.Lines, err = fromLineRecords(records)
	return o, err
}

func toLineRecords(lines []order.Line) []lineRecord {
	records := make([]lineRecord, len(lines))
	for i, l := range lines {
		options := make([]selectionRecord, len(l.Options))
		for j, opt := range l.Options {
			options[j] = selectionRecord{
				GroupID:    opt.GroupID,
				GroupName:  opt.GroupName,
				Value:      opt.Value,
				Label:      opt.Label,
				ExtraPrice: money.Format(opt.ExtraPrice),
			}
		}
		records[i] = lineRecord{
			ID:        l.ID,
			DishID:    l.DishID,
			Name:      l.Name,
			Quantity:  l.Quantity,
			BasePrice: money.Format(l.BasePrice),
			Options:   options,
			TakeAway:  l.TakeAway,
			UnitPrice: money.Format(l.UnitPrice),
			LineTotal: money.Format(l.LineTotal),
		}
	}
	return records
}

func fromLineRecords(records []lineRecord) ([]order.Line, error) {
	if len(records) == 0 {
		return nil, nil
	}
	lines := make([]order.Line, len(records))
	for i, rec := range records {
		base, err := money.Parse(rec.BasePrice)
		if err != nil {
			return nil, fmt.Errorf("line %q: %w", rec.ID, err)
		}
		options := make([]order.OptionSelection, len(rec.Options))
		for j, opt := range rec.Options {
			extra, err := money.Parse(opt.ExtraPrice)
			if err != nil {
				return nil, fmt.Errorf("line %q option %q: %w", rec.ID, opt.Value, err)
			}
			options[j] = order.OptionSelection{
				GroupID:    opt.GroupID,
				GroupName:  opt.GroupName,
				Value:      opt.Value,
				Label:      opt.Label,
				ExtraPrice: extra,
			}
		}
		// NewLine re-derives unit price and line total; the stored copies
		// are display artifacts, not a source of truth.
		lines[i] = order.NewLine(rec.ID, rec.DishID, rec.Name, rec.Quantity, base, options, rec.TakeAway)
	}
	return lines, nil
}
