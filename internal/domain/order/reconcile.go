package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"comanda/internal/domain/money"
)

// Reconciler recomputes a MAIN order's total as the sum of its own lines
// plus the independently recomputed totals of all linked SUB orders.
//
// Totals are re-derived strictly from base price times quantity, never from
// stored line totals or cached child totals, so repeated reconciliation is
// self-healing after lost updates. Option extra prices are excluded from
// this derivation; that mirrors the established billing behaviour and is
// kept for compatibility.
type Reconciler struct {
	orders   Store
	notifier Notifier
}

// NewReconciler creates a Reconciler over the given store and notifier.
func NewReconciler(orders Store, notifier Notifier) *Reconciler {
	return &Reconciler{orders: orders, notifier: notifier}
}

// RecalculateMainTotal loads the MAIN order and all its children, re-derives
// every total from scratch, persists the MAIN order with the grand total,
// and fires a best-effort order-updated notification. A notification
// failure never rolls back the persisted total.
func (r *Reconciler) RecalculateMainTotal(ctx context.Context, mainID string) (*Order, error) {
	main, err := r.orders.GetByID(ctx, mainID)
	if err != nil {
		return nil, errors.Wrapf(err, "get main order %q", mainID)
	}

	children, err := r.orders.GetLinkedChildren(ctx, mainID)
	if err != nil {
		return nil, errors.Wrapf(err, "get linked orders of %q", mainID)
	}

	total := baseOnlyTotal(main.Lines)
	for _, child := range children {
		total = total.Add(baseOnlyTotal(child.Lines))
	}

	main.SetReconciledTotal(total)
	if err := r.orders.Save(ctx, main); err != nil {
		return nil, errors.Wrapf(err, "save main order %q", mainID)
	}

	r.notifier.OrderUpdated(ctx, main)
	return main, nil
}

// baseOnlyTotal sums base price times quantity across lines, rounded to
// canonical precision per order before family summation.
func baseOnlyTotal(lines []Line) decimal.Decimal {
	sum := money.Zero
	for _, l := range lines {
		sum = sum.Add(l.BasePrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return money.Round(sum)
}
