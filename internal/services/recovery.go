package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/AnshRaj112/wayfarer-backend/internal/database"
)

// RecoveryStatus is what the rest of the app sees of the last recovery run.
type RecoveryStatus struct {
	IsRecovering bool      `json:"is_recovering"`
	WasRecovered bool      `json:"was_recovered"`
	Identity     string    `json:"identity"`
	LastError    string    `json:"recovery_error,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}

// userScopedCollections are deleted by ClearAllData. popular_search is
// global and stays.
var userScopedCollections = []string{
	database.CollectionUsers,
	database.CollectionUserFilters,
	database.CollectionSearchHistory,
	database.CollectionUserLocations,
	database.CollectionReferredPlaces,
}

// RecoveryController runs identity resolution for the app, switches to a
// recovered identity on request and wipes all data of the current identity.
type RecoveryController struct {
	resolver     *IdentityResolver
	cache        IdentityStore
	fingerprints *FingerprintGenerator
	mappings     *DeviceMappingService
	store        database.DocStore
	gate         *ReadinessGate
	session      *Session
	audit        RecoveryAudit
	broadcaster  *RecoveryBroadcaster
	now          func() time.Time

	mu     sync.RWMutex
	status RecoveryStatus
	subs   map[chan RecoveryStatus]struct{}
}

type RecoveryDeps struct {
	Resolver     *IdentityResolver
	Cache        IdentityStore
	Fingerprints *FingerprintGenerator
	Mappings     *DeviceMappingService
	Store        database.DocStore
	Gate         *ReadinessGate
	Session      *Session
	Audit        RecoveryAudit
	Broadcaster  *RecoveryBroadcaster // optional
}

func NewRecoveryController(d RecoveryDeps) *RecoveryController {
	audit := d.Audit
	if audit == nil {
		audit = NewMemoryRecoveryAudit()
	}
	session := d.Session
	if session == nil {
		session = NewSession()
	}
	return &RecoveryController{
		resolver:     d.Resolver,
		cache:        d.Cache,
		fingerprints: d.Fingerprints,
		mappings:     d.Mappings,
		store:        d.Store,
		gate:         d.Gate,
		session:      session,
		audit:        audit,
		broadcaster:  d.Broadcaster,
		now:          time.Now,
		subs:         make(map[chan RecoveryStatus]struct{}),
	}
}

// CheckRecovery resolves the identity and reports whether it was recovered
// from a device mapping. Errors are recorded in the status, never returned.
func (c *RecoveryController) CheckRecovery(ctx context.Context) bool {
	ctx = context.WithoutCancel(ctx)
	c.update(func(s *RecoveryStatus) { s.IsRecovering = true })

	c.gate.Wait(ctx)
	res := c.resolver.Resolve(ctx)
	c.session.Bind(res.Identity, res.Recovered)

	c.update(func(s *RecoveryStatus) {
		s.IsRecovering = false
		s.WasRecovered = res.Recovered
		s.Identity = res.Identity
		s.LastError = errString(res.Err)
		s.CheckedAt = c.now().UTC()
	})
	c.audit.Record(ctx, RecoveryEvent{
		Type:        EventCheck,
		Identity:    res.Identity,
		Fingerprint: res.Fingerprint,
		Recovered:   res.Recovered,
		Error:       errString(res.Err),
	})

	if res.Err != nil {
		log.Printf("⚠️  recovery: resolved %s with errors: %v", res.Identity, res.Err)
	}
	return res.Recovered
}

// ForceRecovery looks up the device mapping regardless of the cached
// identity. When a mapping exists the session switches to it and the cache
// is overwritten. Otherwise the current identity is left alone.
func (c *RecoveryController) ForceRecovery(ctx context.Context) bool {
	ctx = context.WithoutCancel(ctx)
	c.update(func(s *RecoveryStatus) { s.IsRecovering = true })

	ok, fp, identity, err := c.forceRecovery(ctx)

	c.update(func(s *RecoveryStatus) {
		s.IsRecovering = false
		s.LastError = errString(err)
		s.CheckedAt = c.now().UTC()
		if ok {
			s.WasRecovered = true
			s.Identity = identity
		}
	})
	c.audit.Record(ctx, RecoveryEvent{
		Type:        EventForce,
		Identity:    identity,
		Fingerprint: fp,
		Recovered:   ok,
		Error:       errString(err),
	})
	if ok {
		c.publish(ctx, IdentityChange{Type: EventForce, Identity: identity})
	}
	return ok
}

func (c *RecoveryController) forceRecovery(ctx context.Context) (bool, string, string, error) {
	c.gate.Wait(ctx)

	fp, info, err := c.fingerprints.Generate()
	if err != nil {
		log.Printf("recovery: force recovery impossible: %v", err)
		return false, "", "", err
	}

	identity, found, err := c.mappings.Lookup(ctx, fp)
	if err != nil {
		return false, fp, "", err
	}
	if !found {
		log.Printf("recovery: no device mapping for this device")
		return false, fp, "", nil
	}

	if err := c.cache.Set(ctx, identity); err != nil {
		log.Printf("recovery: could not cache recovered identity: %v", err)
		return false, fp, identity, fmt.Errorf("identity cache write: %w", err)
	}
	c.resolver.Adopt(Resolution{
		Identity:    identity,
		Recovered:   true,
		Fingerprint: fp,
		DeviceInfo:  info,
		ResolvedAt:  c.now().UTC(),
	})
	c.session.Bind(identity, true)
	log.Printf("✅ recovery: switched to identity %s", identity)
	return true, fp, identity, nil
}

// ClearAllData deletes every user-scoped document of the current identity
// and the device mapping. Only when all remote deletes succeeded is the
// local cache cleared and the session torn down, so the next resolution
// mints a new identity.
func (c *RecoveryController) ClearAllData(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	c.gate.Wait(ctx)

	identity := c.resolver.Resolve(ctx).Identity
	fp, _, err := c.fingerprints.Generate()
	if err != nil {
		err = fmt.Errorf("clear data: %w", err)
		c.recordClear(ctx, identity, "", err)
		return err
	}

	var errs []error
	for _, coll := range userScopedCollections {
		if err := c.store.Delete(ctx, coll, identity); err != nil {
			errs = append(errs, fmt.Errorf("delete %s/%s: %w", coll, identity, err))
		}
	}
	if err := c.mappings.Delete(ctx, fp); err != nil {
		errs = append(errs, fmt.Errorf("delete device mapping: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		c.recordClear(ctx, identity, fp, err)
		return err
	}

	if err := c.cache.Clear(ctx); err != nil {
		err = fmt.Errorf("clear identity cache: %w", err)
		c.recordClear(ctx, identity, fp, err)
		return err
	}
	c.resolver.Reset()
	c.session.Teardown()
	c.recordClear(ctx, identity, fp, nil)
	c.publish(ctx, IdentityChange{Type: EventClear, Identity: identity})

	log.Printf("✅ recovery: cleared all data of %s", identity)
	return nil
}

func (c *RecoveryController) recordClear(ctx context.Context, identity, fp string, err error) {
	c.update(func(s *RecoveryStatus) {
		if err == nil {
			*s = RecoveryStatus{}
		}
		s.LastError = errString(err)
		s.CheckedAt = c.now().UTC()
	})
	c.audit.Record(ctx, RecoveryEvent{
		Type:        EventClear,
		Identity:    identity,
		Fingerprint: fp,
		Error:       errString(err),
	})
}

// Listen applies identity changes made by other processes on this install
// until ctx is done. A remote clear drops the memoized identity. A remote
// force recovery adopts the recovered identity, which the other process has
// already written to the shared cache.
func (c *RecoveryController) Listen(ctx context.Context) {
	c.broadcaster.Listen(ctx, c.applyRemote)
}

func (c *RecoveryController) applyRemote(change IdentityChange) {
	switch change.Type {
	case EventClear:
		if current := c.session.Identity(); current != "" && current != change.Identity {
			return
		}
		c.resolver.Reset()
		c.session.Teardown()
		c.update(func(s *RecoveryStatus) {
			*s = RecoveryStatus{CheckedAt: c.now().UTC()}
		})
		log.Printf("recovery: %s was cleared by another process", change.Identity)
	case EventForce:
		if change.Identity == "" {
			return
		}
		c.resolver.Adopt(Resolution{Identity: change.Identity, Recovered: true, ResolvedAt: c.now().UTC()})
		c.session.Bind(change.Identity, true)
		c.update(func(s *RecoveryStatus) {
			s.WasRecovered = true
			s.Identity = change.Identity
			s.LastError = ""
			s.CheckedAt = c.now().UTC()
		})
		log.Printf("recovery: switched to %s after recovery in another process", change.Identity)
	}
}

func (c *RecoveryController) publish(ctx context.Context, change IdentityChange) {
	if err := c.broadcaster.Publish(ctx, change); err != nil {
		log.Printf("⚠️  recovery: could not publish %s: %v", change.Type, err)
	}
}

// Status returns a snapshot of the recovery status.
func (c *RecoveryController) Status() RecoveryStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Subscribe returns a channel receiving every status change. Slow readers
// only see the latest status. Call cancel to stop receiving.
func (c *RecoveryController) Subscribe() (<-chan RecoveryStatus, func()) {
	ch := make(chan RecoveryStatus, 1)
	c.mu.Lock()
	c.subs[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, ch)
			c.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Audit returns the audit log the controller writes to.
func (c *RecoveryController) Audit() RecoveryAudit {
	return c.audit
}

func (c *RecoveryController) update(fn func(s *RecoveryStatus)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fn(&c.status)
	snapshot := c.status
	for ch := range c.subs {
		select {
		case ch <- snapshot:
		default:
			// Replace the unread status with the newer one
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
