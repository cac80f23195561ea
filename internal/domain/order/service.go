package order

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"comanda/internal/domain/money"
)

// Sentinel errors for order use-cases.
var (
	// ErrOrderNotFound is returned when an order id resolves to nothing.
	ErrOrderNotFound = errors.New("order not found")
	// ErrHasLinkedOrders rejects deleting a MAIN order that still has SUB
	// orders pointing at it.
	ErrHasLinkedOrders = errors.New("order has linked sub orders")
	// ErrOrderClosed rejects line mutations on PAID or CANCELLED orders.
	ErrOrderClosed = errors.New("order is closed")
	// ErrLinkRequired is returned when a SUB order is created without a
	// parent reference.
	ErrLinkRequired = errors.New("sub order requires a linked main order")
	// ErrLinkForbidden is returned when a MAIN order carries a parent
	// reference.
	ErrLinkForbidden = errors.New("main order must not reference a parent")
)

// TamperError indicates an update request whose priced fields diverge from
// the stored order: a client attempted to rewrite a base price or an option
// label instead of going through the pricing service.
type TamperError struct {
	LineID string
	Field  string
}

func (e *TamperError) Error() string {
	return fmt.Sprintf("tampered %s on line %s", e.Field, e.LineID)
}

// Service is the use-case layer over the order aggregate: it owns the
// load-mutate-save cycle, the closed-order and referential-integrity
// checks, tamper validation on updates, and reconciliation triggering.
type Service struct {
	orders     Store
	pricer     *Pricer
	reconciler *Reconciler
	notifier   Notifier
}

// NewService creates an order Service with its collaborators.
func NewService(orders Store, pricer *Pricer, reconciler *Reconciler, notifier Notifier) *Service {
	return &Service{
		orders:     orders,
		pricer:     pricer,
		reconciler: reconciler,
		notifier:   notifier,
	}
}

// CreateOrderRequest holds the input for creating an order. Items are
// optional initial lines, priced through the catalog like any other add.
type CreateOrderRequest struct {
	Type          Type
	LinkedOrderID string
	CreatedBy     string
	Table         string
	Note          string
	CustomerCount int
	Items         []PriceLineRequest
}

// CreateOrder validates the MAIN/SUB link before construction, prices any
// initial items, persists the order, and reconciles the parent family when
// a SUB order is created.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	switch req.Type {
	case TypeMain:
		if req.LinkedOrderID != "" {
			return nil, ErrLinkForbidden
		}
	case TypeSub:
		if req.LinkedOrderID == "" {
			return nil, ErrLinkRequired
		}
		parent, err := s.orders.GetByID(ctx, req.LinkedOrderID)
		if err != nil {
			return nil, errors.Wrapf(err, "get parent order %q", req.LinkedOrderID)
		}
		if parent.Type != TypeMain {
			return nil, errors.Wrapf(ErrLinkRequired, "order %q is not a main order", parent.ID)
		}
	default:
		return nil, errors.Errorf("unsupported order type %q", req.Type)
	}

	o := New(uuid.New().String(), req.Type, req.LinkedOrderID, req.CreatedBy, req.Table, req.CustomerCount)
	o.Note = req.Note

	for _, item := range req.Items {
		line, err := s.pricer.PriceLine(ctx, item)
		if err != nil {
			return nil, err
		}
		o.AddLine(line)
	}

	if err := s.orders.Save(ctx, o); err != nil {
		return nil, errors.Wrap(err, "save order")
	}
	s.notifier.OrderCreated(ctx, o)

	if o.Type == TypeSub {
		if _, err := s.reconciler.RecalculateMainTotal(ctx, o.LinkedOrderID); err != nil {
			return nil, errors.Wrap(err, "reconcile parent")
		}
	}
	return o, nil
}

// GetOrder loads a single order by id.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	return o, nil
}

// AddItem prices the requested dish line and merges it into the order, then
// persists and reconciles the family.
func (s *Service) AddItem(ctx context.Context, orderID string, req PriceLineRequest) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", orderID)
	}
	if o.Closed() {
		return nil, errors.Wrapf(ErrOrderClosed, "order %q is %s", o.ID, o.Status)
	}

	line, err := s.pricer.PriceLine(ctx, req)
	if err != nil {
		return nil, err
	}
	o.AddLine(line)

	if err := s.orders.Save(ctx, o); err != nil {
		return nil, errors.Wrap(err, "save order")
	}
	return s.finishMutation(ctx, o)
}

// UpdateLineQuantity requantifies (or removes, when quantity <= 0) the line
// at the given index, persists the order, and reconciles the family.
func (s *Service) UpdateLineQuantity(ctx context.Context, orderID string, index, quantity int) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", orderID)
	}
	if o.Closed() {
		return nil, errors.Wrapf(ErrOrderClosed, "order %q is %s", o.ID, o.Status)
	}

	if err := o.UpdateLineQuantity(index, quantity); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, errors.Wrap(err, "save order")
	}
	return s.finishMutation(ctx, o)
}

// LineChange is one entry of an update request's dishes change set. A
// populated LineID references a stored line whose priced fields must match
// byte-for-byte; an empty or unknown LineID introduces a new line that is
// priced fresh from the catalog.
type LineChange struct {
	LineID    string
	DishID    string
	BasePrice string
	Quantity  int
	TakeAway  bool
	Options   []OptionChange
}

// OptionChange is a selected option as echoed back by the client.
type OptionChange struct {
	Group string
	Value string
	Label string
}

// UpdateOrderRequest is a patch over mutable order fields. Nil pointers
// leave the field untouched; a non-empty Dishes set is validated
// line-by-line against the stored order.
type UpdateOrderRequest struct {
	Status *Status
	Table  *string
	Note   *string
	Dishes []LineChange
}

// UpdateOrder applies field updates and the dishes change set. Existing
// lines are tamper-checked: the echoed base price and every option label
// must be byte-identical to the stored values, otherwise the update fails
// without persisting anything. Totals are never writable directly.
func (s *Service) UpdateOrder(ctx context.Context, orderID string, req UpdateOrderRequest) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", orderID)
	}

	if req.Status != nil {
		if err := o.UpdateStatus(*req.Status); err != nil {
			return nil, err
		}
	}
	if req.Table != nil {
		o.UpdateTable(*req.Table)
	}
	if req.Note != nil {
		o.UpdateNote(*req.Note)
	}

	if len(req.Dishes) > 0 {
		if o.Closed() {
			return nil, errors.Wrapf(ErrOrderClosed, "order %q is %s", o.ID, o.Status)
		}
		if err := s.applyLineChanges(ctx, o, req.Dishes); err != nil {
			return nil, err
		}
	}

	if err := s.orders.Save(ctx, o); err != nil {
		return nil, errors.Wrap(err, "save order")
	}
	return s.finishMutation(ctx, o)
}

// applyLineChanges validates and applies a dishes change set. The change
// set is a patch: stored lines not mentioned are kept as-is.
func (s *Service) applyLineChanges(ctx context.Context, o *Order, changes []LineChange) error {
	for _, change := range changes {
		stored := o.LineByID(change.LineID)
		if stored == nil {
			// Unknown line: price it fresh, ignoring any client-supplied
			// price or label fields.
			line, err := s.pricer.PriceLine(ctx, PriceLineRequest{
				DishID:   change.DishID,
				Options:  optionRefs(change.Options),
				Quantity: change.Quantity,
				TakeAway: change.TakeAway,
			})
			if err != nil {
				return err
			}
			o.AddLine(line)
			continue
		}

		if err := verifyLineUntampered(stored, change); err != nil {
			return err
		}

		idx := lineIndex(o, stored.ID)
		if change.Quantity <= 0 {
			if err := o.RemoveLine(idx); err != nil {
				return err
			}
			continue
		}
		updated := stored.WithQuantity(change.Quantity).WithTakeAway(change.TakeAway)
		o.Lines = append([]Line(nil), o.Lines...)
		o.Lines[idx] = updated
		o.recomputeTotal()
	}
	return nil
}

// verifyLineUntampered checks that the echoed priced fields of an existing
// line are byte-identical to what is stored.
func verifyLineUntampered(stored *Line, change LineChange) error {
	if change.DishID != "" && change.DishID != stored.DishID {
		return &TamperError{LineID: stored.ID, Field: "dishId"}
	}
	if change.BasePrice != money.Format(stored.BasePrice) {
		return &TamperError{LineID: stored.ID, Field: "basePrice"}
	}
	if len(change.Options) != len(stored.Options) {
		return &TamperError{LineID: stored.ID, Field: "options"}
	}
	for _, opt := range change.Options {
		match, ok := findSelection(stored.Options, opt)
		if !ok {
			return &TamperError{LineID: stored.ID, Field: "options"}
		}
		if opt.Label != match.Label {
			return &TamperError{LineID: stored.ID, Field: "optionLabel"}
		}
	}
	return nil
}

// DeleteOrder removes an order. A MAIN order with linked children is
// rejected to prevent orphaned SUB orders; deleting a SUB order triggers
// reconciliation of its former parent.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "get order %q", id)
	}

	children, err := s.orders.GetLinkedChildren(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "get linked orders of %q", id)
	}
	if len(children) > 0 {
		return errors.Wrapf(ErrHasLinkedOrders, "order %q has %d linked orders", id, len(children))
	}

	deleted, err := s.orders.Delete(ctx, id)
	if err != nil {
		return errors.Wrapf(err, "delete order %q", id)
	}
	if !deleted {
		return errors.Wrapf(ErrOrderNotFound, "order %q", id)
	}
	s.notifier.OrderDeleted(ctx, id)

	if o.Type == TypeSub {
		if _, err := s.reconciler.RecalculateMainTotal(ctx, o.LinkedOrderID); err != nil {
			return errors.Wrap(err, "reconcile former parent")
		}
	}
	return nil
}

// finishMutation triggers reconciliation for the order's family and returns
// the freshest view of the mutated order.
//
// A SUB mutation reconciles its parent; a MAIN mutation reconciles itself
// only when children exist, so childless orders keep the invariant that the
// total equals the sum of line totals (base-only reconciliation would break
// it). Orders outside any family just get the updated notification.
func (s *Service) finishMutation(ctx context.Context, o *Order) (*Order, error) {
	if o.Type == TypeSub {
		if _, err := s.reconciler.RecalculateMainTotal(ctx, o.LinkedOrderID); err != nil {
			return nil, errors.Wrap(err, "reconcile parent")
		}
		return o, nil
	}

	children, err := s.orders.GetLinkedChildren(ctx, o.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "get linked orders of %q", o.ID)
	}
	if len(children) > 0 {
		return s.reconciler.RecalculateMainTotal(ctx, o.ID)
	}

	s.notifier.OrderUpdated(ctx, o)
	return o, nil
}

func lineIndex(o *Order, lineID string) int {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return i
		}
	}
	return -1
}

func optionRefs(changes []OptionChange) []OptionRef {
	refs := make([]OptionRef, len(changes))
	for i, c := range changes {
		refs[i] = OptionRef{Group: c.Group, Value: c.Value}
	}
	return refs
}

// findSelection locates the stored selection matching an echoed option by
// group id (or name) and case-insensitive value.
func findSelection(stored []OptionSelection, opt OptionChange) (OptionSelection, bool) {
	for _, sel := range stored {
		if (sel.GroupID == opt.Group || sel.GroupName == opt.Group) && strings.EqualFold(sel.Value, opt.Value) {
			return sel, true
		}
	}
	return OptionSelection{}, false
}
