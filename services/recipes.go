package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"mealmates-backend/models"
	"net/http"
	"time"
)

// RecipeSource fetches batches of candidate meals from an external catalog.
type RecipeSource interface {
	FetchBatch(ctx context.Context, offset, count int) ([]models.MealPayload, error)
}

// Offset ranges. The browse feed pages through the low range; vote sessions
// pick a random offset in the high range so the two rarely overlap.
const (
	browseOffsetMax = 200
	voteOffsetSpan  = 800
)

// VoteOffset returns a randomized catalog offset outside the browse range.
func VoteOffset() int {
	return browseOffsetMax + rand.Intn(voteOffsetSpan)
}

// RecipeClient talks to the meal catalog HTTP API.
type RecipeClient struct {
	baseURL string
	http    *http.Client
}

func NewRecipeClient(baseURL string) *RecipeClient {
	return &RecipeClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type catalogResponse struct {
	Meals []models.MealPayload `json:"meals"`
}

// FetchBatch returns up to count meals starting at offset. On a failed or
// empty primary fetch it retries once at a smaller offset, then falls back to
// the static sample set so downstream logic never receives an empty list.
func (c *RecipeClient) FetchBatch(ctx context.Context, offset, count int) ([]models.MealPayload, error) {
	meals, err := c.fetchOnce(ctx, offset, count)
	if err == nil && len(meals) > 0 {
		return meals, nil
	}
	if err != nil {
		log.Printf("⚠️  Catalog fetch at offset %d failed: %v", offset, err)
	}

	// Secondary fetch at a smaller offset; deep offsets can run past the
	// catalog's end.
	meals, err = c.fetchOnce(ctx, offset/4, count)
	if err == nil && len(meals) > 0 {
		return meals, nil
	}

	log.Printf("⚠️  Catalog unreachable, using fallback meals")
	return FallbackMeals(count), nil
}

func (c *RecipeClient) fetchOnce(ctx context.Context, offset, count int) ([]models.MealPayload, error) {
	url := fmt.Sprintf("%s/meals?offset=%d&limit=%d", c.baseURL, offset, count)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var body catalogResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	if len(body.Meals) > count {
		body.Meals = body.Meals[:count]
	}
	return body.Meals, nil
}

var sampleMeals = []models.MealPayload{
	{ID: "sample-1", Name: "Spaghetti Bolognese", EstimatedMinutes: 40, Description: "Classic pasta with a rich meat sauce"},
	{ID: "sample-2", Name: "Chicken Stir-Fry", EstimatedMinutes: 25, Description: "Quick wok-fried chicken and vegetables"},
	{ID: "sample-3", Name: "Margherita Pizza", EstimatedMinutes: 35, Description: "Tomato, mozzarella and basil"},
	{ID: "sample-4", Name: "Beef Tacos", EstimatedMinutes: 30, Description: "Seasoned beef with fresh toppings"},
	{ID: "sample-5", Name: "Vegetable Curry", EstimatedMinutes: 45, Description: "Coconut curry with seasonal vegetables"},
	{ID: "sample-6", Name: "Caesar Salad", EstimatedMinutes: 15, Description: "Romaine, parmesan and croutons"},
}

// FallbackMeals returns a shuffled copy of the static sample set, at most
// count entries but never fewer than the full set allows.
func FallbackMeals(count int) []models.MealPayload {
	meals := make([]models.MealPayload, len(sampleMeals))
	copy(meals, sampleMeals)
	rand.Shuffle(len(meals), func(i, j int) {
		meals[i], meals[j] = meals[j], meals[i]
	})
	if count > 0 && count < len(meals) {
		meals = meals[:count]
	}
	return meals
}
