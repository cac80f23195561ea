package handler

import (
	"time"

	"github.com/go-faster/jx"

	"comanda/internal/domain/catalog"
	"comanda/internal/domain/money"
	"comanda/internal/domain/order"
)

// --- Request decoding ---

func decodeCreateOrderRequest(body []byte) (order.CreateOrderRequest, error) {
	var req order.CreateOrderRequest
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "type":
			var v string
			v, err = d.Str()
			req.Type = order.Type(v)
		case "linkedOrderId":
			req.LinkedOrderID, err = d.Str()
		case "createdBy":
			req.CreatedBy, err = d.Str()
		case "table":
			req.Table, err = d.Str()
		case "note":
			req.Note, err = d.Str()
		case "customerCount":
			req.CustomerCount, err = d.Int()
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				item, err := decodeItemRequest(d)
				if err != nil {
					return err
				}
				req.Items = append(req.Items, item)
				return nil
			})
		default:
			return d.Skip()
		}
		return err
	})
	return req, err
}

func decodeItemRequestBody(body []byte) (order.PriceLineRequest, error) {
	return decodeItemRequest(jx.DecodeBytes(body))
}

func decodeItemRequest(d *jx.Decoder) (order.PriceLineRequest, error) {
	var req order.PriceLineRequest
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "dishId":
			req.DishID, err = d.Str()
		case "quantity":
			req.Quantity, err = d.Int()
		case "takeAway":
			req.TakeAway, err = d.Bool()
		case "options":
			return d.Arr(func(d *jx.Decoder) error {
				var ref order.OptionRef
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "group":
						ref.Group, err = d.Str()
					case "value":
						ref.Value, err = d.Str()
					default:
						return d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				req.Options = append(req.Options, ref)
				return nil
			})
		default:
			return d.Skip()
		}
		return err
	})
	return req, err
}

func decodeUpdateOrderRequest(body []byte) (order.UpdateOrderRequest, error) {
	var req order.UpdateOrderRequest
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "status":
			var v string
			if v, err = d.Str(); err == nil {
				status := order.Status(v)
				req.Status = &status
			}
		case "table":
			var v string
			if v, err = d.Str(); err == nil {
				req.Table = &v
			}
		case "note":
			var v string
			if v, err = d.Str(); err == nil {
				req.Note = &v
			}
		case "dishes":
			return d.Arr(func(d *jx.Decoder) error {
				change, err := decodeLineChange(d)
				if err != nil {
					return err
				}
				req.Dishes = append(req.Dishes, change)
				return nil
			})
		default:
			return d.Skip()
		}
		return err
	})
	return req, err
}

func decodeLineChange(d *jx.Decoder) (order.LineChange, error) {
	var change order.LineChange
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "lineId":
			change.LineID, err = d.Str()
		case "dishId":
			change.DishID, err = d.Str()
		case "basePrice":
			change.BasePrice, err = d.Str()
		case "quantity":
			change.Quantity, err = d.Int()
		case "takeAway":
			change.TakeAway, err = d.Bool()
		case "options":
			return d.Arr(func(d *jx.Decoder) error {
				var opt order.OptionChange
				if err := d.Obj(func(d *jx.Decoder, key string) error {
					var err error
					switch key {
					case "group":
						opt.Group, err = d.Str()
					case "value":
						opt.Value, err = d.Str()
					case "label":
						opt.Label, err = d.Str()
					default:
						return d.Skip()
					}
					return err
				}); err != nil {
					return err
				}
				change.Options = append(change.Options, opt)
				return nil
			})
		default:
			return d.Skip()
		}
		return err
	})
	return change, err
}

func decodeQuantityBody(body []byte) (int, error) {
	quantity := 0
	d := jx.DecodeBytes(body)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "quantity":
			quantity, err = d.Int()
		default:
			return d.Skip()
		}
		return err
	})
	return quantity, err
}

// --- Response encoding ---

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("type", func(e *jx.Encoder) { e.Str(string(o.Type)) })
		if o.LinkedOrderID != "" {
			e.Field("linkedOrderId", func(e *jx.Encoder) { e.Str(o.LinkedOrderID) })
		}
		e.Field("createdBy", func(e *jx.Encoder) { e.Str(o.CreatedBy) })
		e.Field("table", func(e *jx.Encoder) { e.Str(o.Table) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		if o.Note != "" {
			e.Field("note", func(e *jx.Encoder) { e.Str(o.Note) })
		}
		e.Field("customerCount", func(e *jx.Encoder) { e.Int(o.CustomerCount) })
		e.Field("lines", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for i := range o.Lines {
					encodeLine(e, &o.Lines[i])
				}
			})
		})
		e.Field("totalAmount", func(e *jx.Encoder) { e.Str(money.Format(o.Total)) })
		e.Field("createdAt", func(e *jx.Encoder) { e.Str(o.CreatedAt.Format(time.RFC3339Nano)) })
		e.Field("updatedAt", func(e *jx.Encoder) { e.Str(o.UpdatedAt.Format(time.RFC3339Nano)) })
	})
}

func encodeLine(e *jx.Encoder, l *order.Line) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(l.ID) })
		e.Field("dishId", func(e *jx.Encoder) { e.Str(l.DishID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
		e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
		e.Field("basePrice", func(e *jx.Encoder) { e.Str(money.Format(l.BasePrice)) })
		e.Field("takeAway", func(e *jx.Encoder) { e.Bool(l.TakeAway) })
		if len(l.Options) > 0 {
			e.Field("options", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, opt := range l.Options {
						encodeSelection(e, opt)
					}
				})
			})
		}
		e.Field("unitPrice", func(e *jx.Encoder) { e.Str(money.Format(l.UnitPrice)) })
		e.Field("lineTotal", func(e *jx.Encoder) { e.Str(money.Format(l.LineTotal)) })
	})
}

func encodeSelection(e *jx.Encoder, opt order.OptionSelection) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("groupId", func(e *jx.Encoder) { e.Str(opt.GroupID) })
		e.Field("groupName", func(e *jx.Encoder) { e.Str(opt.GroupName) })
		e.Field("value", func(e *jx.Encoder) { e.Str(opt.Value) })
		e.Field("label", func(e *jx.Encoder) { e.Str(opt.Label) })
		e.Field("extraPrice", func(e *jx.Encoder) { e.Str(money.Format(opt.ExtraPrice)) })
	})
}

func encodeDish(e *jx.Encoder, d catalog.Dish) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(d.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(d.Name) })
		e.Field("basePrice", func(e *jx.Encoder) { e.Str(money.Format(d.BasePrice)) })
		e.Field("category", func(e *jx.Encoder) { e.Str(d.Category) })
		if len(d.OptionGroupIDs) > 0 {
			e.Field("optionGroupIds", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, id := range d.OptionGroupIDs {
						e.Str(id)
					}
				})
			})
		}
	})
}
