package services

import (
	"time"

	"github.com/AnshRaj112/wayfarer-backend/internal/database"
	"github.com/redis/go-redis/v9"
)

// AppOptions are the collaborators an AppContext is built from.
type AppOptions struct {
	Store           database.DocStore
	IdentityCache   IdentityStore
	Device          DeviceInfoSource
	FingerprintMode FingerprintMode
	Redis           *redis.Client // optional
	Audit           RecoveryAudit // optional, in-memory when nil
	ReadyRetries    int           // per facade call, DefaultReadyRetries when 0
	ReadyDelay      time.Duration // DefaultReadyDelay when 0
}

// AppContext holds the identity and user data services of one running app.
// It is built once at startup and handed to whoever needs it.
type AppContext struct {
	Fingerprints *FingerprintGenerator
	Mappings     *DeviceMappingService
	Resolver     *IdentityResolver
	Recovery     *RecoveryController
	UserData     *UserDataService
	Session      *Session
}

func NewAppContext(opts AppOptions) *AppContext {
	retries, delay := opts.ReadyRetries, opts.ReadyDelay
	if retries <= 0 {
		retries = DefaultReadyRetries
	}
	if delay <= 0 {
		delay = DefaultReadyDelay
	}
	callGate := NewReadinessGate(opts.Store, retries, delay)
	recoveryGate := NewReadinessGate(opts.Store, RecoveryReadyRetries, RecoveryReadyDelay)

	fingerprints := NewFingerprintGenerator(opts.Device, opts.FingerprintMode)
	mappings := NewDeviceMappingService(opts.Store, callGate)
	resolver := NewIdentityResolver(opts.IdentityCache, fingerprints, mappings)
	session := NewSession()

	recovery := NewRecoveryController(RecoveryDeps{
		Resolver:     resolver,
		Cache:        opts.IdentityCache,
		Fingerprints: fingerprints,
		Mappings:     mappings,
		Store:        opts.Store,
		Gate:         recoveryGate,
		Session:      session,
		Audit:        opts.Audit,
		Broadcaster:  NewRecoveryBroadcaster(opts.Redis),
	})

	return &AppContext{
		Fingerprints: fingerprints,
		Mappings:     mappings,
		Resolver:     resolver,
		Recovery:     recovery,
		UserData:     NewUserDataService(resolver, session, opts.Store, callGate, NewSearchLeaderboard(opts.Redis)),
		Session:      session,
	}
}
