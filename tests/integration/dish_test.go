//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListDishes(t *testing.T) {
	resp := doGet(t, "/api/dishes")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	dishes := decodeJSON[[]dishResponse](t, resp)
	if len(dishes) != 6 {
		t.Fatalf("expected 6 dishes, got %d", len(dishes))
	}
}

func TestListDishes_Fields(t *testing.T) {
	resp := doGet(t, "/api/dishes")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	dishes := decodeJSON[[]dishResponse](t, resp)

	var margherita *dishResponse
	for i := range dishes {
		if dishes[i].ID == "margherita" {
			margherita = &dishes[i]
			break
		}
	}

	if margherita == nil {
		t.Fatal("dish 'margherita' not found")
	}
	if margherita.Name != "Pizza Margherita" {
		t.Errorf("name: got %q, want %q", margherita.Name, "Pizza Margherita")
	}
	if margherita.BasePrice != "10.000000" {
		t.Errorf("basePrice: got %q, want %q", margherita.BasePrice, "10.000000")
	}
	if margherita.Category == "" {
		t.Error("category is empty")
	}
	if len(margherita.OptionGroupIDs) == 0 {
		t.Error("optionGroupIds is empty")
	}
}
