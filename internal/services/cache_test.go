package services

import (
	"context"
	"testing"
	"time"

	"github.com/AnshRaj112/wayfarer-backend/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func newRedisApp(t *testing.T, store *countingStore, client *redis.Client) *AppContext {
	t.Helper()
	return NewAppContext(AppOptions{
		Store:           store,
		IdentityCache:   &MemoryIdentityStore{},
		Device:          testDevice("hw-redis"),
		FingerprintMode: FingerprintDeviceID,
		Redis:           client,
		ReadyRetries:    1,
		ReadyDelay:      time.Millisecond,
	})
}

func searchTimes(t *testing.T, app *AppContext, keyword string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if !app.UserData.AddSearchKeyword(context.Background(), keyword) {
			t.Fatalf("AddSearchKeyword(%q) failed", keyword)
		}
	}
}

func TestLeaderboard_EnabledAfterStoreHasCounts(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()

	// Counts collected while Redis was not configured
	offline := newTestApp(t, store, &MemoryIdentityStore{}, testDevice("hw-offline"))
	searchTimes(t, offline, "sushi", 5)
	searchTimes(t, offline, "pizza", 3)

	mr, client := newMiniRedis(t)
	app := newRedisApp(t, store, client)

	searchTimes(t, app, "pizza", 1)
	if mr.Exists(popularSearchKey) {
		t.Fatal("an unwarmed leaderboard must not be written by a search")
	}

	got := app.UserData.GetPopularSearches(ctx, 10)
	if len(got) != 2 || got[0].Keyword != "sushi" || got[0].Count != 5 || got[1].Keyword != "pizza" || got[1].Count != 4 {
		t.Fatalf("popular = %+v", got)
	}
	if score, err := mr.ZScore(popularSearchKey, "sushi"); err != nil || score != 5 {
		t.Fatalf("leaderboard not warmed: score %v, err %v", score, err)
	}

	// Once warmed, searches keep Redis in step with the store
	searchTimes(t, app, "pizza", 3)
	if score, _ := mr.ZScore(popularSearchKey, "pizza"); score != 7 {
		t.Errorf("pizza score = %v, want 7", score)
	}
	got = app.UserData.GetPopularSearches(ctx, 1)
	if len(got) != 1 || got[0].Keyword != "pizza" || got[0].Count != 7 {
		t.Errorf("popular after more searches = %+v", got)
	}
}

func TestLeaderboard_RewarmsAfterFlush(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniRedis(t)
	app := newRedisApp(t, newCountingStore(), client)

	searchTimes(t, app, "museum", 2)
	app.UserData.GetPopularSearches(ctx, 10)
	mr.FlushAll()

	searchTimes(t, app, "museum", 1)
	got := app.UserData.GetPopularSearches(ctx, 10)
	if len(got) != 1 || got[0].Count != 3 {
		t.Errorf("popular after flush = %+v", got)
	}
}

func TestLeaderboard_WarmKeepsHigherScores(t *testing.T) {
	ctx := context.Background()
	mr, client := newMiniRedis(t)
	l := NewSearchLeaderboard(client)

	l.Warm(ctx, []models.PopularSearch{{Keyword: "tapas", Count: 2}})
	l.Record(ctx, "tapas", 4)
	l.Warm(ctx, []models.PopularSearch{{Keyword: "tapas", Count: 3}})
	if score, _ := mr.ZScore(popularSearchKey, "tapas"); score != 4 {
		t.Errorf("tapas score = %v, want 4", score)
	}
}

func TestRecoveryBroadcaster_DeliversToOtherProcesses(t *testing.T) {
	_, client := newMiniRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := NewRecoveryBroadcaster(client)
	cli := NewRecoveryBroadcaster(client)

	received := make(chan IdentityChange, 4)
	server.Listen(ctx, func(c IdentityChange) {
		select {
		case received <- c:
		default:
		}
	})
	// Own messages are dropped
	cli.Listen(ctx, func(c IdentityChange) { t.Errorf("publisher got its own change: %+v", c) })

	deadline := time.After(3 * time.Second)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case c := <-received:
			if c.Type != EventClear || c.Identity != "anon_1_abcdef012" {
				t.Fatalf("unexpected change %+v", c)
			}
			return
		case <-tick.C:
			// The subscription may not be live yet
			if err := cli.Publish(ctx, IdentityChange{Type: EventClear, Identity: "anon_1_abcdef012"}); err != nil {
				t.Fatalf("publish: %v", err)
			}
		case <-deadline:
			t.Fatal("change was not delivered")
		}
	}
}

func TestSleepCtx_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if sleepCtx(ctx, 30*time.Second) {
		t.Fatal("sleep should report cancellation")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancelled sleep took %v", elapsed)
	}
	if !sleepCtx(context.Background(), time.Millisecond) {
		t.Error("uncancelled sleep should complete")
	}
}
