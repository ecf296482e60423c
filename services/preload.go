package services

import (
	"context"
	"encoding/json"
	"log"
	"mealmates-backend/models"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	preloadBatchSize = 25
	preloadKeyPrefix = "preload:meals:"
	preloadTTL       = 2 * time.Hour
)

// PreloadCache speculatively holds a pre-fetched batch of candidate meals per
// group so vote sessions can open without request-time catalog latency.
// Batches live in Redis when available, else in an in-process map. Not
// authoritative: a missing entry simply means the caller fetches directly.
type PreloadCache struct {
	redis  *redis.Client // nil when Redis is unavailable
	source RecipeSource

	mu    sync.Mutex
	local map[uuid.UUID][]models.MealPayload
}

func NewPreloadCache(rdb *redis.Client, source RecipeSource) *PreloadCache {
	return &PreloadCache{
		redis:  rdb,
		source: source,
		local:  make(map[uuid.UUID][]models.MealPayload),
	}
}

// Warm fetches a batch for every given group concurrently. Individual fetch
// failures are logged and do not abort the others. Callers pass only groups
// without an active vote session.
func (p *PreloadCache) Warm(ctx context.Context, groupIDs []uuid.UUID) {
	var wg sync.WaitGroup
	for _, groupID := range groupIDs {
		wg.Add(1)
		go func(gid uuid.UUID) {
			defer wg.Done()
			meals, err := p.source.FetchBatch(ctx, VoteOffset(), preloadBatchSize)
			if err != nil || len(meals) == 0 {
				log.Printf("⚠️  Preload fetch for group %s failed: %v", gid, err)
				return
			}
			p.put(ctx, gid, meals)
		}(groupID)
	}
	wg.Wait()
}

// Take returns and clears the group's cached batch (consume-once). Returns nil
// when nothing is cached or the cache backend errors.
func (p *PreloadCache) Take(ctx context.Context, groupID uuid.UUID) []models.MealPayload {
	if p.redis != nil {
		raw, err := p.redis.GetDel(ctx, preloadKeyPrefix+groupID.String()).Bytes()
		if err != nil {
			return nil
		}
		var meals []models.MealPayload
		if err := json.Unmarshal(raw, &meals); err != nil {
			return nil
		}
		return meals
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	meals := p.local[groupID]
	delete(p.local, groupID)
	return meals
}

func (p *PreloadCache) put(ctx context.Context, groupID uuid.UUID, meals []models.MealPayload) {
	if p.redis != nil {
		raw, err := json.Marshal(meals)
		if err != nil {
			return
		}
		if err := p.redis.Set(ctx, preloadKeyPrefix+groupID.String(), raw, preloadTTL).Err(); err != nil {
			log.Printf("⚠️  Preload cache write for group %s failed: %v", groupID, err)
		}
		return
	}

	p.mu.Lock()
	p.local[groupID] = meals
	p.mu.Unlock()
}
