//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"testing"
)

const testAPIKey = "integration-test-key"

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func createOrder(t *testing.T, req createOrderRequest) orderResponse {
	t.Helper()

	resp := doJSON(t, http.MethodPost, "/api/orders", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create order: expected 201, got %d", resp.StatusCode)
	}
	return decodeJSON[orderResponse](t, resp)
}

func TestCreateOrder_NoAuth(t *testing.T) {
	req := createOrderRequest{
		Type:  "MAIN",
		Items: []itemRequest{{DishID: "margherita", Quantity: 1}},
	}
	resp := doJSON(t, http.MethodPost, "/api/orders", req, "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_InvalidKey(t *testing.T) {
	req := createOrderRequest{
		Type:  "MAIN",
		Items: []itemRequest{{DishID: "margherita", Quantity: 1}},
	}
	resp := doJSON(t, http.MethodPost, "/api/orders", req, "wrong-key")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_Main(t *testing.T) {
	order := createOrder(t, createOrderRequest{
		Type:      "MAIN",
		CreatedBy: "waiter-1",
		Table:     "12",
		Items: []itemRequest{{
			DishID:   "diavola",
			Quantity: 3,
			Options:  []optionRequest{{Group: "pizza-size", Value: "large"}},
		}},
	})

	if !uuidPattern.MatchString(order.ID) {
		t.Errorf("order ID %q is not a valid UUID", order.ID)
	}
	if order.Status != "DRAFT" {
		t.Errorf("status: got %q, want DRAFT", order.Status)
	}
	if len(order.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(order.Lines))
	}
	line := order.Lines[0]
	if line.BasePrice != "12.500000" {
		t.Errorf("basePrice: got %q, want 12.500000", line.BasePrice)
	}
	// 12.50 base + 2.50 large size = 15.00 per unit.
	if line.UnitPrice != "15.000000" {
		t.Errorf("unitPrice: got %q, want 15.000000", line.UnitPrice)
	}
	if order.TotalAmount != "45.000000" {
		t.Errorf("totalAmount: got %q, want 45.000000", order.TotalAmount)
	}
}

func TestCreateOrder_UnknownDish(t *testing.T) {
	req := createOrderRequest{
		Type:  "MAIN",
		Items: []itemRequest{{DishID: "no-such-dish", Quantity: 1}},
	}
	resp := doJSON(t, http.MethodPost, "/api/orders", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_ZeroQuantity(t *testing.T) {
	req := createOrderRequest{
		Type:  "MAIN",
		Items: []itemRequest{{DishID: "margherita", Quantity: 0}},
	}
	resp := doJSON(t, http.MethodPost, "/api/orders", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestCreateOrder_SubWithoutLink(t *testing.T) {
	req := createOrderRequest{
		Type:  "SUB",
		Items: []itemRequest{{DishID: "cola", Quantity: 1}},
	}
	resp := doJSON(t, http.MethodPost, "/api/orders", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetOrder(t *testing.T) {
	created := createOrder(t, createOrderRequest{
		Type:  "MAIN",
		Items: []itemRequest{{DishID: "tiramisu", Quantity: 2}},
	})

	resp := doGet(t, "/api/orders/"+created.ID)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if order.ID != created.ID {
		t.Errorf("id: got %q, want %q", order.ID, created.ID)
	}
	if order.TotalAmount != "13.000000" {
		t.Errorf("totalAmount: got %q, want 13.000000", order.TotalAmount)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	resp := doGet(t, "/api/orders/00000000-0000-0000-0000-000000000000")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	errResp := decodeJSON[errorResponse](t, resp)
	if errResp.Code != 404 {
		t.Errorf("error code: got %d, want 404", errResp.Code)
	}
}

func TestAddItem_MergesMatchingLine(t *testing.T) {
	created := createOrder(t, createOrderRequest{
		Type:  "MAIN",
		Items: []itemRequest{{DishID: "margherita", Quantity: 1}},
	})

	resp := doJSON(t, http.MethodPost, "/api/orders/"+created.ID+"/items",
		itemRequest{DishID: "margherita", Quantity: 2}, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if len(order.Lines) != 1 {
		t.Fatalf("expected merged single line, got %d lines", len(order.Lines))
	}
	if order.Lines[0].Quantity != 3 {
		t.Errorf("quantity: got %d, want 3", order.Lines[0].Quantity)
	}
	if order.TotalAmount != "30.000000" {
		t.Errorf("totalAmount: got %q, want 30.000000", order.TotalAmount)
	}
}

func TestAddItem_TakeAwayStaysSeparate(t *testing.T) {
	created := createOrder(t, createOrderRequest{
		Type:  "MAIN",
		Items: []itemRequest{{DishID: "cheeseburger", Quantity: 1}},
	})

	resp := doJSON(t, http.MethodPost, "/api/orders/"+created.ID+"/items",
		itemRequest{DishID: "cheeseburger", Quantity: 1, TakeAway: true}, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if len(order.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(order.Lines))
	}
}

func TestUpdateLineQuantity_ZeroRemovesLine(t *testing.T) {
	created := createOrder(t, createOrderRequest{
		Type:  "MAIN",
		Items: []itemRequest{{DishID: "caesar-salad", Quantity: 2}},
	})

	resp := doJSON(t, http.MethodPut, "/api/orders/"+created.ID+"/lines/0",
		map[string]int{"quantity": 0}, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if len(order.Lines) != 0 {
		t.Errorf("expected 0 lines, got %d", len(order.Lines))
	}
	if order.TotalAmount != "0.000000" {
		t.Errorf("totalAmount: got %q, want 0.000000", order.TotalAmount)
	}
}

func TestUpdateLineQuantity_IndexOutOfRange(t *testing.T) {
	created := createOrder(t, createOrderRequest{
		Type:  "MAIN",
		Items: []itemRequest{{DishID: "cola", Quantity: 1}},
	})

	resp := doJSON(t, http.MethodPut, "/api/orders/"+created.ID+"/lines/5",
		map[string]int{"quantity": 2}, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestSubOrder_ReconcilesParentTotal(t *testing.T) {
	parent := createOrder(t, createOrderRequest{
		Type:  "MAIN",
		Table: "7",
		Items: []itemRequest{{DishID: "margherita", Quantity: 2}},
	})

	sub := createOrder(t, createOrderRequest{
		Type:          "SUB",
		LinkedOrderID: parent.ID,
		Items:         []itemRequest{{DishID: "tiramisu", Quantity: 1}},
	})
	if sub.LinkedOrderID != parent.ID {
		t.Errorf("linkedOrderId: got %q, want %q", sub.LinkedOrderID, parent.ID)
	}

	resp := doGet(t, "/api/orders/"+parent.ID)
	defer resp.Body.Close()

	got := decodeJSON[orderResponse](t, resp)
	// Family total over base prices: 2x10.00 + 1x6.50 = 26.50.
	if got.TotalAmount != "26.500000" {
		t.Errorf("reconciled totalAmount: got %q, want 26.500000", got.TotalAmount)
	}
}

func TestSubOrder_LinkedToSubRejected(t *testing.T) {
	parent := createOrder(t, createOrderRequest{
		Type:  "MAIN",
		Items: []itemRequest{{DishID: "cola", Quantity: 1}},
	})
	sub := createOrder(t, createOrderRequest{
		Type:          "SUB",
		LinkedOrderID: parent.ID,
		Items:         []itemRequest{{DishID: "cola", Quantity: 1}},
	})

	req := createOrderRequest{
		Type:          "SUB",
		LinkedOrderID: sub.ID,
		Items:         []itemRequest{{DishID: "cola", Quantity: 1}},
	}
	resp := doJSON(t, http.MethodPost, "/api/orders", req, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestUpdateOrder_StatusTransition(t *testing.T) {
	created := createOrder(t, createOrderRequest{
		Type:  "MAIN",
		Items: []itemRequest{{DishID: "margherita", Quantity: 1}},
	})

	resp := doJSON(t, http.MethodPatch, "/api/orders/"+created.ID,
		map[string]string{"status": "COOKING"}, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if order.Status != "COOKING" {
		t.Errorf("status: got %q, want COOKING", order.Status)
	}
}

func TestUpdateOrder_InvalidTransition(t *testing.T) {
	created := createOrder(t, createOrderRequest{
		Type:  "MAIN",
		Items: []itemRequest{{DishID: "margherita", Quantity: 1}},
	})

	// DRAFT cannot jump straight to PAID.
	resp := doJSON(t, http.MethodPatch, "/api/orders/"+created.ID,
		map[string]string{"status": "PAID"}, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
}

func TestUpdateOrder_TamperedBasePriceRejected(t *testing.T) {
	created := createOrder(t, createOrderRequest{
		Type:  "MAIN",
		Items: []itemRequest{{DishID: "diavola", Quantity: 1}},
	})

	resp := doJSON(t, http.MethodPatch, "/api/orders/"+created.ID,
		map[string]any{
			"dishes": []map[string]any{{
				"lineId":    created.Lines[0].ID,
				"dishId":    "diavola",
				"basePrice": "1.000000",
				"quantity":  5,
			}},
		}, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	// Nothing must have been persisted.
	getResp := doGet(t, "/api/orders/"+created.ID)
	defer getResp.Body.Close()
	got := decodeJSON[orderResponse](t, getResp)
	if got.TotalAmount != "12.500000" {
		t.Errorf("totalAmount after rejected update: got %q, want 12.500000", got.TotalAmount)
	}
}

func TestDeleteOrder(t *testing.T) {
	created := createOrder(t, createOrderRequest{
		Type:  "MAIN",
		Items: []itemRequest{{DishID: "cola", Quantity: 1}},
	})

	resp := doJSON(t, http.MethodDelete, "/api/orders/"+created.ID, nil, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}

	getResp := doGet(t, "/api/orders/"+created.ID)
	defer getResp.Body.Close()
	if getResp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", getResp.StatusCode)
	}
}

func TestDeleteOrder_MainWithChildrenRejected(t *testing.T) {
	parent := createOrder(t, createOrderRequest{
		Type:  "MAIN",
		Items: []itemRequest{{DishID: "margherita", Quantity: 1}},
	})
	sub := createOrder(t, createOrderRequest{
		Type:          "SUB",
		LinkedOrderID: parent.ID,
		Items:         []itemRequest{{DishID: "cola", Quantity: 1}},
	})

	resp := doJSON(t, http.MethodDelete, "/api/orders/"+parent.ID, nil, testAPIKey)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}

	// After the SUB is removed the MAIN can be deleted.
	subResp := doJSON(t, http.MethodDelete, "/api/orders/"+sub.ID, nil, testAPIKey)
	subResp.Body.Close()
	if subResp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete sub: expected 204, got %d", subResp.StatusCode)
	}

	retry := doJSON(t, http.MethodDelete, "/api/orders/"+parent.ID, nil, testAPIKey)
	defer retry.Body.Close()
	if retry.StatusCode != http.StatusNoContent {
		t.Fatalf("delete parent retry: expected 204, got %d", retry.StatusCode)
	}
}
