package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/AnshRaj112/wayfarer-backend/internal/models"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// Resolution is the outcome of resolving the identity of this install.
// Err carries non-fatal problems met on the way; Identity is always usable.
type Resolution struct {
	Identity    string
	Recovered   bool
	Fingerprint string
	DeviceInfo  models.DeviceInfo
	ResolvedAt  time.Time
	Err         error
}

// IdentityResolver decides which anonymous identity this install uses:
// the cached one, the one mapped to the device fingerprint, or a new one.
// Concurrent callers share one in-flight resolution and the result is kept
// until Reset or Adopt.
type IdentityResolver struct {
	cache        IdentityStore
	fingerprints *FingerprintGenerator
	mappings     *DeviceMappingService
	now          func() time.Time

	group singleflight.Group

	mu   sync.Mutex
	memo *Resolution
	gen  uint64
}

func NewIdentityResolver(cache IdentityStore, fingerprints *FingerprintGenerator, mappings *DeviceMappingService) *IdentityResolver {
	return &IdentityResolver{
		cache:        cache,
		fingerprints: fingerprints,
		mappings:     mappings,
		now:          time.Now,
	}
}

const resolveKey = "resolve"

// Resolve returns the identity of this install. The first call does the
// work; later calls return the same Resolution. Cancelling ctx does not stop
// a resolution that is already running.
//
// A clean miss mints a new identity and stores the device mapping. When the
// lookup itself fails, a new identity is still minted but the mapping is
// left untouched, so a later session on this device can recover the old one.
func (r *IdentityResolver) Resolve(ctx context.Context) Resolution {
	if res, ok := r.Current(); ok {
		return res
	}

	v, _, _ := r.group.Do(resolveKey, func() (any, error) {
		r.mu.Lock()
		if r.memo != nil {
			res := *r.memo
			r.mu.Unlock()
			return res, nil
		}
		gen := r.gen
		r.mu.Unlock()

		res := r.resolve(context.WithoutCancel(ctx))

		r.mu.Lock()
		if r.gen == gen {
			r.memo = &res
		}
		r.mu.Unlock()
		return res, nil
	})
	return v.(Resolution)
}

// Current returns the memoized resolution, if any.
func (r *IdentityResolver) Current() (Resolution, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.memo == nil {
		return Resolution{}, false
	}
	return *r.memo, true
}

// Adopt replaces the current resolution, used when the identity is switched
// explicitly.
func (r *IdentityResolver) Adopt(res Resolution) {
	r.mu.Lock()
	r.memo = &res
	r.gen++
	r.mu.Unlock()
	r.group.Forget(resolveKey)
}

// Reset drops the memoized resolution so the next call resolves again.
func (r *IdentityResolver) Reset() {
	r.mu.Lock()
	r.memo = nil
	r.gen++
	r.mu.Unlock()
	r.group.Forget(resolveKey)
}

func (r *IdentityResolver) resolve(ctx context.Context) Resolution {
	res := Resolution{}

	cached, ok, err := r.cache.Get(ctx)
	switch {
	case err != nil:
		log.Printf("resolver: identity cache read failed, treating as empty: %v", err)
		res.Err = err
	case ok:
		res.Identity = cached
		res.ResolvedAt = r.now().UTC()
		return res
	}

	fp, info, err := r.fingerprints.Generate()
	if err != nil {
		log.Printf("resolver: %v, minting a new identity", err)
		res.Err = errors.Join(res.Err, err)
		res.Identity = mintIdentity(r.now())
		return r.persist(ctx, res)
	}
	res.Fingerprint = fp
	res.DeviceInfo = info

	mapped, found, err := r.mappings.Lookup(ctx, fp)
	switch {
	case err != nil:
		// The mapping could not be read, so it must not be overwritten.
		res.Err = errors.Join(res.Err, fmt.Errorf("mapping lookup: %w", err))
		res.Identity = mintIdentity(r.now())
	case found:
		res.Identity = mapped
		res.Recovered = true
		log.Printf("✅ resolver: recovered identity %s from device mapping", mapped)
	default:
		res.Identity = mintIdentity(r.now())
		if err := r.mappings.Upsert(ctx, fp, res.Identity); err != nil {
			res.Err = errors.Join(res.Err, fmt.Errorf("mapping upsert: %w", err))
		}
	}
	return r.persist(ctx, res)
}

func (r *IdentityResolver) persist(ctx context.Context, res Resolution) Resolution {
	if err := r.cache.Set(ctx, res.Identity); err != nil {
		log.Printf("resolver: identity cache write failed: %v", err)
		res.Err = errors.Join(res.Err, fmt.Errorf("identity cache write: %w", err))
	}
	res.ResolvedAt = r.now().UTC()
	return res
}

// mintIdentity returns anon_<unixMillis>_<9 random lowercase hex chars>.
func mintIdentity(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("anon_%d_%s", now.UnixMilli(), suffix)
}
