package services

import (
	"context"
	"encoding/json"
	"fmt"
	"mealmates-backend/models"
	"net/http"
	"net/http/httptest"
	"testing"
)

func catalogHandler(t *testing.T, status int, meals []models.MealPayload) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"meals": meals})
	}
}

func TestFetchBatchReturnsCatalogMeals(t *testing.T) {
	var gotOffset, gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotOffset = r.URL.Query().Get("offset")
		gotLimit = r.URL.Query().Get("limit")
		catalogHandler(t, http.StatusOK, stubMeals(12))(w, r)
	}))
	defer srv.Close()

	client := NewRecipeClient(srv.URL)
	meals, err := client.FetchBatch(context.Background(), 400, 12)
	if err != nil {
		t.Fatalf("FetchBatch failed: %v", err)
	}
	if len(meals) != 12 {
		t.Fatalf("meals: expected 12, got %d", len(meals))
	}
	if meals[0].Name != "Meal 1" {
		t.Errorf("unexpected first meal: %+v", meals[0])
	}
	if gotOffset != "400" || gotLimit != "12" {
		t.Errorf("query: offset=%s limit=%s", gotOffset, gotLimit)
	}
}

func TestFetchBatchTruncatesOversizedResponse(t *testing.T) {
	srv := httptest.NewServer(catalogHandler(t, http.StatusOK, stubMeals(25)))
	defer srv.Close()

	client := NewRecipeClient(srv.URL)
	meals, err := client.FetchBatch(context.Background(), 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(meals) != 10 {
		t.Errorf("meals: expected 10, got %d", len(meals))
	}
}

func TestFetchBatchRetriesAtSmallerOffset(t *testing.T) {
	var offsets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("offset")
		offsets = append(offsets, offset)
		if offset == "800" {
			// Deep offset past the catalog's end
			json.NewEncoder(w).Encode(map[string]any{"meals": []models.MealPayload{}})
			return
		}
		catalogHandler(t, http.StatusOK, stubMeals(8))(w, r)
	}))
	defer srv.Close()

	client := NewRecipeClient(srv.URL)
	meals, err := client.FetchBatch(context.Background(), 800, 8)
	if err != nil {
		t.Fatal(err)
	}
	if len(meals) != 8 {
		t.Fatalf("meals: expected 8 from the retry, got %d", len(meals))
	}
	if fmt.Sprint(offsets) != "[800 200]" {
		t.Errorf("expected retry at offset/4, got offsets %v", offsets)
	}
}

func TestFetchBatchFallsBackOnServerError(t *testing.T) {
	srv := httptest.NewServer(catalogHandler(t, http.StatusInternalServerError, nil))
	defer srv.Close()

	client := NewRecipeClient(srv.URL)
	meals, err := client.FetchBatch(context.Background(), 300, 6)
	if err != nil {
		t.Fatalf("fallback path must not error: %v", err)
	}
	if len(meals) != 6 {
		t.Fatalf("fallback meals: expected 6, got %d", len(meals))
	}
	for _, m := range meals {
		if m.ID == "" || m.Name == "" {
			t.Errorf("fallback meal missing fields: %+v", m)
		}
	}
}

func TestFetchBatchFallsBackWhenUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // refuse connections

	client := NewRecipeClient(srv.URL)
	meals, err := client.FetchBatch(context.Background(), 250, 3)
	if err != nil {
		t.Fatalf("fallback path must not error: %v", err)
	}
	if len(meals) != 3 {
		t.Fatalf("fallback meals: expected 3, got %d", len(meals))
	}
}

func TestFallbackMealsRespectsCount(t *testing.T) {
	if got := len(FallbackMeals(4)); got != 4 {
		t.Errorf("FallbackMeals(4): expected 4, got %d", got)
	}
	// Asking beyond the sample set returns the whole set
	if got := len(FallbackMeals(50)); got != 6 {
		t.Errorf("FallbackMeals(50): expected 6, got %d", got)
	}
	if got := len(FallbackMeals(0)); got != 6 {
		t.Errorf("FallbackMeals(0): expected 6, got %d", got)
	}
}

func TestVoteOffsetStaysOutsideBrowseRange(t *testing.T) {
	for i := 0; i < 200; i++ {
		offset := VoteOffset()
		if offset < browseOffsetMax || offset >= browseOffsetMax+voteOffsetSpan {
			t.Fatalf("VoteOffset() = %d, outside [%d, %d)", offset, browseOffsetMax, browseOffsetMax+voteOffsetSpan)
		}
	}
}
