// Package order implements the order pricing and reconciliation engine:
// priced dish lines, the order aggregate with its merge and total rules,
// catalog-backed pricing, and the MAIN/SUB total reconciliation protocol.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"comanda/internal/domain/money"
)

// Type distinguishes a standalone/parent order from a linked child order.
type Type string

const (
	// TypeMain is a top-level order. It may be referenced by SUB orders.
	TypeMain Type = "MAIN"
	// TypeSub is a child order linked to exactly one MAIN order.
	TypeSub Type = "SUB"
)

// Status is the kitchen/front-of-house lifecycle state of an order.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusCooking   Status = "COOKING"
	StatusReady     Status = "READY"
	StatusPaid      Status = "PAID"
	StatusCancelled Status = "CANCELLED"
)

// InvalidTransitionError indicates a status change not permitted by the
// order lifecycle.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return "invalid status transition " + string(e.From) + " -> " + string(e.To)
}

// IndexOutOfRangeError indicates a line index outside the order's lines.
type IndexOutOfRangeError struct {
	Index int
	Len   int
}

func (e *IndexOutOfRangeError) Error() string {
	return errors.Errorf("line index %d out of range (order has %d lines)", e.Index, e.Len).Error()
}

// Order is the aggregate holding an ordered list of priced lines and a
// cached total. Lines have value semantics: every mutation replaces the
// slice, and the total is recomputed as the sum of line totals.
//
// A MAIN order with SUB children may carry a total that exceeds the sum of
// its own lines; that override is only ever written by the Reconciler.
type Order struct {
	ID            string
	Type          Type
	LinkedOrderID string
	CreatedBy     string
	Table         string
	Status        Status
	Note          string
	CustomerCount int
	Lines         []Line
	Total         decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// New constructs an empty DRAFT order. For SUB orders linkedID references
// the parent MAIN; callers validate that the parent exists before calling.
func New(id string, typ Type, linkedID, createdBy, table string, customerCount int) *Order {
	now := time.Now().UTC()
	return &Order{
		ID:            id,
		Type:          typ,
		LinkedOrderID: linkedID,
		CreatedBy:     createdBy,
		Table:         table,
		Status:        StatusDraft,
		CustomerCount: customerCount,
		Total:         money.Zero,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AddLine merges the new line into an existing matching line (same dish,
// take-away flag, and option set) by summing quantities, or appends it.
// The total is recomputed afterwards. For a MAIN order carrying a
// reconciled total the recomputed value is transiently wrong; callers must
// follow up with Reconciler.RecalculateMainTotal.
func (o *Order) AddLine(line Line) {
	lines := append([]Line(nil), o.Lines...)

	merged := false
	for i, existing := range lines {
		if existing.Matches(line) {
			lines[i] = existing.WithQuantity(existing.Quantity + line.Quantity)
			merged = true
			break
		}
	}
	if !merged {
		lines = append(lines, line)
	}

	o.Lines = lines
	o.recomputeTotal()
}

// UpdateLineQuantity replaces the line at index with a requantified copy.
// A quantity of zero or less removes the line entirely.
func (o *Order) UpdateLineQuantity(index, quantity int) error {
	if index < 0 || index >= len(o.Lines) {
		return &IndexOutOfRangeError{Index: index, Len: len(o.Lines)}
	}
	if quantity <= 0 {
		return o.RemoveLine(index)
	}

	lines := append([]Line(nil), o.Lines...)
	lines[index] = lines[index].WithQuantity(quantity)
	o.Lines = lines
	o.recomputeTotal()
	return nil
}

// RemoveLine deletes the line at index and recomputes the total.
func (o *Order) RemoveLine(index int) error {
	if index < 0 || index >= len(o.Lines) {
		return &IndexOutOfRangeError{Index: index, Len: len(o.Lines)}
	}
	lines := append([]Line(nil), o.Lines[:index]...)
	lines = append(lines, o.Lines[index+1:]...)
	o.Lines = lines
	o.recomputeTotal()
	return nil
}

// LineByID returns the stored line with the given id, or nil.
func (o *Order) LineByID(id string) *Line {
	for i := range o.Lines {
		if o.Lines[i].ID == id {
			return &o.Lines[i]
		}
	}
	return nil
}

// UpdateStatus applies a lifecycle transition. The forward chain is
// DRAFT -> COOKING -> READY -> PAID; CANCELLED is reachable from any
// non-terminal state; READY -> COOKING is the only backward step.
func (o *Order) UpdateStatus(next Status) error {
	if !validTransition(o.Status, next) {
		return &InvalidTransitionError{From: o.Status, To: next}
	}
	o.Status = next
	o.touch()
	return nil
}

func validTransition(from, to Status) bool {
	switch from {
	case StatusDraft:
		return to == StatusCooking || to == StatusCancelled
	case StatusCooking:
		return to == StatusReady || to == StatusCancelled
	case StatusReady:
		return to == StatusPaid || to == StatusCooking || to == StatusCancelled
	default: // PAID, CANCELLED are terminal
		return false
	}
}

// Closed reports whether the order is in a terminal state. Line mutations
// on closed orders are rejected at the use-case layer.
func (o *Order) Closed() bool {
	return o.Status == StatusPaid || o.Status == StatusCancelled
}

// UpdateTable moves the order to another table. No effect on totals.
func (o *Order) UpdateTable(table string) {
	o.Table = table
	o.touch()
}

// UpdateNote replaces the free-form note. No effect on totals.
func (o *Order) UpdateNote(note string) {
	o.Note = note
	o.touch()
}

// SetReconciledTotal overrides the cached total with a reconciled family
// total. Reserved for the Reconciler; everything else must let
// recomputeTotal derive the total from the lines.
func (o *Order) SetReconciledTotal(total decimal.Decimal) {
	o.Total = money.Round(total)
	o.touch()
}

// recomputeTotal derives the total as the sum of line totals at canonical
// precision.
func (o *Order) recomputeTotal() {
	sum := money.Zero
	for _, l := range o.Lines {
		sum = sum.Add(l.LineTotal)
	}
	o.Total = money.Round(sum)
	o.touch()
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}

// Store defines persistence operations for orders. Save is an upsert over
// the whole aggregate; there is no field-level locking, so concurrent
// writers follow last-write-wins semantics.
type Store interface {
	GetByID(ctx context.Context, id string) (*Order, error)
	GetLinkedChildren(ctx context.Context, mainID string) ([]Order, error)
	Save(ctx context.Context, o *Order) error
	Delete(ctx context.Context, id string) (bool, error)
}

// Notifier receives order lifecycle events. Delivery is fire-and-forget:
// implementations log failures and never surface them to the caller.
type Notifier interface {
	OrderCreated(ctx context.Context, o *Order)
	OrderUpdated(ctx context.Context, o *Order)
	OrderDeleted(ctx context.Context, id string)
}
