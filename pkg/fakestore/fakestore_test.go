package fakestore

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func catalog() []Product {
	return []Product{
		{ID: 1, Title: "Fjallraven Foldsack Backpack", Price: 109.95, Category: "men's clothing"},
		{ID: 2, Title: "Mens Casual Premium Slim Fit T-Shirts", Price: 22.3, Category: "men's clothing"},
		{ID: 3, Title: "Mens Cotton Jacket", Price: 55.99, Category: "men's clothing"},
		{ID: 4, Title: "Pierced Owl Double Earrings", Price: 10.99, Category: "jewelery"},
	}
}

func TestBestMatchTitle(t *testing.T) {
	t.Parallel()

	got := BestMatch(catalog(), "backpack")
	if got == nil || got.ID != 1 {
		t.Fatalf("BestMatch() = %#v, want backpack product", got)
	}
}

func TestBestMatchCategory(t *testing.T) {
	t.Parallel()

	got := BestMatch(catalog(), "jewelery")
	if got == nil || got.ID != 4 {
		t.Fatalf("BestMatch() = %#v, want jewelery product", got)
	}
}

func TestBestMatchPerWordScoring(t *testing.T) {
	t.Parallel()

	got := BestMatch(catalog(), "cotton jacket")
	if got == nil || got.ID != 3 {
		t.Fatalf("BestMatch() = %#v, want jacket product", got)
	}
}

func TestBestMatchNoScoreReturnsFirst(t *testing.T) {
	t.Parallel()

	got := BestMatch(catalog(), "quantum flux capacitor")
	if got == nil || got.ID != 1 {
		t.Fatalf("no scoring match must return the first product, got %#v", got)
	}
}

func TestBestMatchEmptyCatalog(t *testing.T) {
	t.Parallel()

	if got := BestMatch(nil, "backpack"); got != nil {
		t.Fatalf("empty catalog must return nil, got %#v", got)
	}
}

func TestProducts(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[{"id":1,"title":"Backpack","price":109.95,"category":"men's clothing"}]`))
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	products, err := client.Products(context.Background())
	if err != nil {
		t.Fatalf("Products() error = %v", err)
	}
	if len(products) != 1 || products[0].Title != "Backpack" {
		t.Fatalf("unexpected products: %#v", products)
	}
}

func TestProductsHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if _, err := client.Products(context.Background()); err == nil {
		t.Fatal("expected error for 500 response")
	}
}
