package services

import (
	"context"
	"log"
	"time"

	"github.com/AnshRaj112/wayfarer-backend/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	// popularSearchKey is the Redis sorted set mirroring popular_search
	// (member = normalized keyword, score = count).
	popularSearchKey   = "popular_search"
	leaderboardTimeout = 2 * time.Second
	// leaderboardWarmSize is how many store documents a miss loads.
	leaderboardWarmSize = 1000
)

// SearchLeaderboard mirrors global keyword counts into a Redis sorted set so
// the popular list is a single ZREVRANGE. A nil client disables it and every
// call becomes a miss.
type SearchLeaderboard struct {
	client *redis.Client
}

func NewSearchLeaderboard(client *redis.Client) *SearchLeaderboard {
	return &SearchLeaderboard{client: client}
}

// Enabled reports whether a Redis client is configured.
func (l *SearchLeaderboard) Enabled() bool {
	return l != nil && l.client != nil
}

// recordScript writes the stored count of a keyword, but only into a set
// that has been warmed. GT keeps a higher score written by a concurrent call.
var recordScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return redis.call("ZADD", KEYS[1], "GT", ARGV[1], ARGV[2])
end
return -1
`)

// Record mirrors the count read back from the document store after an
// increment. An absent set is left alone so Top misses and the caller warms
// it from the store.
func (l *SearchLeaderboard) Record(ctx context.Context, keyword string, count int64) {
	if !l.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, leaderboardTimeout)
	defer cancel()

	if err := recordScript.Run(ctx, l.client, []string{popularSearchKey}, count, keyword).Err(); err != nil {
		log.Printf("search_cache: record failed for %q: %v", keyword, err)
	}
}

// Top returns the highest scored keywords. Returns (nil, false) on a miss.
func (l *SearchLeaderboard) Top(ctx context.Context, limit int64) ([]models.PopularSearch, bool) {
	if !l.Enabled() {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, leaderboardTimeout)
	defer cancel()

	entries, err := l.client.ZRevRangeWithScores(ctx, popularSearchKey, 0, limit-1).Result()
	if err != nil || len(entries) == 0 {
		return nil, false
	}

	out := make([]models.PopularSearch, 0, len(entries))
	for _, z := range entries {
		kw, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, models.PopularSearch{Keyword: kw, Count: int64(z.Score)})
	}
	return out, true
}

// Warm loads counts read from the document store into the sorted set.
// Keywords beyond the warmed ones only enter the set through Record, so the
// set is exact for any top list shorter than the warm size.
func (l *SearchLeaderboard) Warm(ctx context.Context, list []models.PopularSearch) {
	if !l.Enabled() || len(list) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, leaderboardTimeout)
	defer cancel()

	members := make([]redis.Z, 0, len(list))
	for _, p := range list {
		members = append(members, redis.Z{Score: float64(p.Count), Member: p.Keyword})
	}

	// GT keeps scores recorded since the store read
	err := l.client.ZAddArgs(ctx, popularSearchKey, redis.ZAddArgs{GT: true, Members: members}).Err()
	if err != nil {
		log.Printf("search_cache: warm failed: %v", err)
	}
}
