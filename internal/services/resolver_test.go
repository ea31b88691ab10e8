package services

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/AnshRaj112/wayfarer-backend/internal/database"
)

var identityPattern = regexp.MustCompile(`^anon_\d{13}_[0-9a-f]{9}$`)

func TestMintIdentity(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	a, b := mintIdentity(now), mintIdentity(now)
	if !identityPattern.MatchString(a) {
		t.Fatalf("unexpected identity format: %s", a)
	}
	if a == b {
		t.Error("two minted identities collided")
	}
}

func TestResolver_FreshInstall(t *testing.T) {
	store := newCountingStore()
	app := newTestApp(t, store, &MemoryIdentityStore{}, testDevice("hw-fresh"))

	res := app.Resolver.Resolve(context.Background())
	if res.Recovered {
		t.Error("fresh install must not be reported as recovered")
	}
	if !identityPattern.MatchString(res.Identity) {
		t.Fatalf("unexpected identity: %q", res.Identity)
	}
	if res.Err != nil {
		t.Errorf("unexpected error: %v", res.Err)
	}

	mapped, found, err := app.Mappings.Lookup(context.Background(), res.Fingerprint)
	if err != nil || !found || mapped != res.Identity {
		t.Fatalf("mapping not written: %q %v %v", mapped, found, err)
	}
}

func TestResolver_IdempotentWithCachedIdentity(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	cache := &MemoryIdentityStore{}
	if err := cache.Set(ctx, "anon_1700000000000_aaaaaaaaa"); err != nil {
		t.Fatal(err)
	}
	app := newTestApp(t, store, cache, testDevice("hw-1"))

	first := app.Resolver.Resolve(ctx)
	app.Resolver.Reset()
	store.resetCounts()
	second := app.Resolver.Resolve(ctx)

	if first.Identity != "anon_1700000000000_aaaaaaaaa" || second.Identity != first.Identity {
		t.Fatalf("identities differ: %q vs %q", first.Identity, second.Identity)
	}
	if lookups, upserts := store.counts(); lookups != 0 || upserts != 0 {
		t.Errorf("expected no mapping traffic, got %d lookups %d upserts", lookups, upserts)
	}
	if first.Recovered || second.Recovered {
		t.Error("cached identity must not be reported as recovered")
	}
}

func TestResolver_MemoizesResult(t *testing.T) {
	store := newCountingStore()
	app := newTestApp(t, store, &MemoryIdentityStore{}, testDevice("hw-1"))

	first := app.Resolver.Resolve(context.Background())
	store.resetCounts()
	second := app.Resolver.Resolve(context.Background())

	if first.Identity != second.Identity {
		t.Fatalf("identities differ: %q vs %q", first.Identity, second.Identity)
	}
	if lookups, _ := store.counts(); lookups != 0 {
		t.Errorf("second call looked up the mapping %d times", lookups)
	}
}

func TestResolver_RecoveryRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newCountingStore()
	cache := NewFileIdentityStore(filepath.Join(t.TempDir(), "identity.json"), nil)

	first := newTestApp(t, store, cache, testDevice("hw-round-trip")).Resolver.Resolve(ctx)
	if first.Recovered {
		t.Fatal("first resolution should mint")
	}

	// Local storage wiped, remote mapping kept
	if err := cache.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	second := newTestApp(t, store, cache, testDevice("hw-round-trip")).Resolver.Resolve(ctx)

	if second.Identity != first.Identity {
		t.Fatalf("expected recovered identity %q, got %q", first.Identity, second.Identity)
	}
	if !second.Recovered {
		t.Error("expected recovered=true")
	}
	if got, ok, _ := cache.Get(ctx); !ok || got != first.Identity {
		t.Errorf("recovered identity not cached: %q", got)
	}
}

func TestResolver_FingerprintFailureMints(t *testing.T) {
	store := newCountingStore()
	app := newTestApp(t, store, &MemoryIdentityStore{}, failingDevice{})

	res := app.Resolver.Resolve(context.Background())
	if !identityPattern.MatchString(res.Identity) || res.Recovered {
		t.Fatalf("unexpected resolution: %+v", res)
	}
	if !errors.Is(res.Err, ErrFingerprintUnavailable) {
		t.Errorf("expected ErrFingerprintUnavailable in Err, got %v", res.Err)
	}
	if lookups, upserts := store.counts(); lookups != 0 || upserts != 0 {
		t.Errorf("no mapping traffic expected, got %d lookups %d upserts", lookups, upserts)
	}
}

func TestResolver_LookupFailureDoesNotOverwriteMapping(t *testing.T) {
	store := newCountingStore()
	boom := errors.New("backend down")
	store.setFail("get", database.CollectionDeviceMappings, boom)
	app := newTestApp(t, store, &MemoryIdentityStore{}, testDevice("hw-1"))

	res := app.Resolver.Resolve(context.Background())
	if !identityPattern.MatchString(res.Identity) || res.Recovered {
		t.Fatalf("unexpected resolution: %+v", res)
	}
	if !errors.Is(res.Err, boom) {
		t.Errorf("expected lookup error in Err, got %v", res.Err)
	}
	if _, upserts := store.counts(); upserts != 0 {
		t.Errorf("mapping must not be written after a failed lookup, got %d upserts", upserts)
	}
}

func TestResolver_UpsertFailureStillResolves(t *testing.T) {
	store := newCountingStore()
	store.setFail("apply", database.CollectionDeviceMappings, errors.New("write refused"))
	cache := &MemoryIdentityStore{}
	app := newTestApp(t, store, cache, testDevice("hw-1"))

	res := app.Resolver.Resolve(context.Background())
	if res.Identity == "" || res.Err == nil {
		t.Fatalf("expected identity with recorded error, got %+v", res)
	}
	if got, _, _ := cache.Get(context.Background()); got != res.Identity {
		t.Errorf("identity not cached: %q", got)
	}
}

type brokenCache struct{}

func (brokenCache) Get(ctx context.Context) (string, bool, error) {
	return "", false, ErrIdentityCacheCorrupt
}
func (brokenCache) Set(ctx context.Context, identity string) error { return errors.New("disk full") }
func (brokenCache) Clear(ctx context.Context) error                { return nil }

func TestResolver_CacheErrorsAreNotFatal(t *testing.T) {
	store := newCountingStore()
	app := newTestApp(t, store, brokenCache{}, testDevice("hw-1"))

	res := app.Resolver.Resolve(context.Background())
	if !identityPattern.MatchString(res.Identity) {
		t.Fatalf("unexpected identity: %q", res.Identity)
	}
	if !errors.Is(res.Err, ErrIdentityCacheCorrupt) {
		t.Errorf("expected cache read error in Err, got %v", res.Err)
	}
	if lookups, _ := store.counts(); lookups != 1 {
		t.Errorf("cache read error should fall through to one lookup, got %d", lookups)
	}
}

func TestResolver_ConcurrentSingleFlight(t *testing.T) {
	store := newCountingStore()
	app := newTestApp(t, store, &MemoryIdentityStore{}, testDevice("hw-concurrent"))

	const callers = 16
	var wg sync.WaitGroup
	start := make(chan struct{})
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = app.Resolver.Resolve(context.Background()).Identity
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 1; i < callers; i++ {
		if results[i] != results[0] {
			t.Fatalf("caller %d got %q, caller 0 got %q", i, results[i], results[0])
		}
	}
	if _, upserts := store.counts(); upserts != 1 {
		t.Errorf("expected exactly one mapping upsert, got %d", upserts)
	}
}

func TestResolver_NotCancelledByCaller(t *testing.T) {
	app := newTestApp(t, newCountingStore(), &MemoryIdentityStore{}, testDevice("hw-1"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := app.Resolver.Resolve(ctx)
	if res.Err != nil {
		t.Fatalf("resolution affected by caller cancellation: %v", res.Err)
	}
}
