package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/AnshRaj112/wayfarer-backend/internal/database"
	"github.com/AnshRaj112/wayfarer-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// DeviceMappingService stores the fingerprint -> identity pointer in
// device_mappings/{fingerprint}.
type DeviceMappingService struct {
	store database.DocStore
	gate  *ReadinessGate
	now   func() time.Time
}

func NewDeviceMappingService(store database.DocStore, gate *ReadinessGate) *DeviceMappingService {
	return &DeviceMappingService{store: store, gate: gate, now: time.Now}
}

// Lookup returns the identity mapped to fingerprint. A document without a
// userId counts as no mapping. Errors are logged and returned so callers can
// tell an outage from a clean miss; both mean "no mapping".
func (s *DeviceMappingService) Lookup(ctx context.Context, fingerprint string) (string, bool, error) {
	s.gate.Wait(ctx)

	var m models.DeviceMapping
	err := s.store.Get(ctx, database.CollectionDeviceMappings, fingerprint, &m)
	if errors.Is(err, database.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		log.Printf("device_mapping: lookup failed for %s: %v", shortFingerprint(fingerprint), err)
		return "", false, err
	}
	if m.UserID == "" {
		return "", false, nil
	}
	return m.UserID, true, nil
}

// Upsert points fingerprint at identity. Re-running it with the same pair
// only bumps updatedAt.
func (s *DeviceMappingService) Upsert(ctx context.Context, fingerprint, identity string) error {
	now := s.now().UTC()
	return s.gate.Run(ctx, "device_mapping: upsert", func(ctx context.Context) error {
		return s.store.Apply(ctx, database.CollectionDeviceMappings, fingerprint, database.Mutation{
			Set:         bson.M{"userId": identity, "updatedAt": now},
			SetOnInsert: bson.M{"createdAt": now},
		})
	})
}

// Delete removes the mapping entry of fingerprint.
func (s *DeviceMappingService) Delete(ctx context.Context, fingerprint string) error {
	return s.gate.Run(ctx, "device_mapping: delete", func(ctx context.Context) error {
		return s.store.Delete(ctx, database.CollectionDeviceMappings, fingerprint)
	})
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}
