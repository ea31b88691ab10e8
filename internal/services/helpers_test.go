package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/AnshRaj112/wayfarer-backend/internal/database"
	"github.com/AnshRaj112/wayfarer-backend/internal/models"
)

// countingStore wraps the in-memory store, counts device mapping traffic
// and can be told to fail operations per collection.
type countingStore struct {
	*database.MemoryDocStore

	mu         sync.Mutex
	lookups    int
	upserts    int
	failGet    map[string]error
	failApply  map[string]error
	failDelete map[string]error
}

func newCountingStore() *countingStore {
	return &countingStore{
		MemoryDocStore: database.NewMemoryDocStore(),
		failGet:        map[string]error{},
		failApply:      map[string]error{},
		failDelete:     map[string]error{},
	}
}

func (s *countingStore) Get(ctx context.Context, collection, id string, dest any) error {
	s.mu.Lock()
	if collection == database.CollectionDeviceMappings {
		s.lookups++
	}
	err := s.failGet[collection]
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryDocStore.Get(ctx, collection, id, dest)
}

func (s *countingStore) Apply(ctx context.Context, collection, id string, m database.Mutation) error {
	s.mu.Lock()
	if collection == database.CollectionDeviceMappings {
		s.upserts++
	}
	err := s.failApply[collection]
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryDocStore.Apply(ctx, collection, id, m)
}

func (s *countingStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	err := s.failDelete[collection]
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryDocStore.Delete(ctx, collection, id)
}

func (s *countingStore) counts() (lookups, upserts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookups, s.upserts
}

func (s *countingStore) resetCounts() {
	s.mu.Lock()
	s.lookups, s.upserts = 0, 0
	s.mu.Unlock()
}

func (s *countingStore) setFail(kind, collection string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case "get":
		s.failGet[collection] = err
	case "apply":
		s.failApply[collection] = err
	case "delete":
		s.failDelete[collection] = err
	}
}

type failingDevice struct{}

func (failingDevice) DeviceInfo() (models.DeviceInfo, error) {
	return models.DeviceInfo{}, errDeviceRead
}

type testError string

func (e testError) Error() string { return string(e) }

const errDeviceRead = testError("device info read failed")

func testDevice(deviceID string) StaticDeviceInfo {
	return StaticDeviceInfo{
		DeviceID:    deviceID,
		DeviceModel: "Pixel 8",
		OSVersion:   "14",
		AppVersion:  "1.0.0",
		BuildNumber: "42",
	}
}

func newTestApp(t *testing.T, store database.DocStore, cache IdentityStore, device DeviceInfoSource) *AppContext {
	t.Helper()
	return NewAppContext(AppOptions{
		Store:           store,
		IdentityCache:   cache,
		Device:          device,
		FingerprintMode: FingerprintDeviceID,
		ReadyRetries:    1,
		ReadyDelay:      time.Millisecond,
	})
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
