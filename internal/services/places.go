package services

import (
	"context"
	"log"
	"sort"
	"strings"

	"github.com/AnshRaj112/wayfarer-backend/internal/database"
	"github.com/AnshRaj112/wayfarer-backend/internal/models"
	"github.com/AnshRaj112/wayfarer-backend/pkg/utils"
	"go.mongodb.org/mongo-driver/bson"
)

// Referred places of an identity live in one document,
// referred_places/{identity}, with one top-level field per place id.

// AddReferredPlace stores or replaces a referred place.
func (s *UserDataService) AddReferredPlace(ctx context.Context, place models.ReferredPlace) bool {
	place.PlaceID = strings.TrimSpace(place.PlaceID)
	if place.PlaceID == "" || place.PlaceID == "_id" {
		return false
	}
	id := s.ensureIdentity(ctx)
	now := s.now().UTC()
	if place.ReferredAt.IsZero() {
		place.ReferredAt = now
	}
	place.UpdatedAt = now

	err := s.gate.Run(ctx, "user_data: add referred place", func(ctx context.Context) error {
		return s.store.Apply(ctx, database.CollectionReferredPlaces, id, database.Mutation{
			Set: bson.M{placeField(place.PlaceID): place},
		})
	})
	return err == nil
}

// RemoveReferredPlace deletes a referred place. Removing a place that is
// not there succeeds.
func (s *UserDataService) RemoveReferredPlace(ctx context.Context, placeID string) bool {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return false
	}
	id := s.ensureIdentity(ctx)
	err := s.gate.Run(ctx, "user_data: remove referred place", func(ctx context.Context) error {
		return s.store.Apply(ctx, database.CollectionReferredPlaces, id, database.Mutation{
			Unset: []string{placeField(placeID)},
		})
	})
	return err == nil
}

// MarkPlaceVisited flags a referred place as visited. Returns false when
// the place was never referred.
func (s *UserDataService) MarkPlaceVisited(ctx context.Context, placeID string) bool {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return false
	}
	places := s.referredPlaces(ctx)
	if _, ok := places[placeID]; !ok {
		return false
	}

	id := s.ensureIdentity(ctx)
	field := placeField(placeID)
	err := s.gate.Run(ctx, "user_data: mark place visited", func(ctx context.Context) error {
		return s.store.Apply(ctx, database.CollectionReferredPlaces, id, database.Mutation{
			Set: bson.M{field + ".isVisited": true, field + ".updatedAt": s.now().UTC()},
		})
	})
	return err == nil
}

// IsReferredPlace reports whether placeID was referred to this identity.
func (s *UserDataService) IsReferredPlace(ctx context.Context, placeID string) bool {
	_, ok := s.referredPlaces(ctx)[strings.TrimSpace(placeID)]
	return ok
}

// GetReferredPlaces returns all referred places, most recently referred
// first.
func (s *UserDataService) GetReferredPlaces(ctx context.Context) []models.ReferredPlace {
	places := s.referredPlaces(ctx)
	out := make([]models.ReferredPlace, 0, len(places))
	for _, p := range places {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReferredAt.Equal(out[j].ReferredAt) {
			return out[i].ReferredAt.After(out[j].ReferredAt)
		}
		return out[i].PlaceID < out[j].PlaceID
	})
	return out
}

// referredPlaces decodes the map document keyed by place id. Entries that
// are not documents are skipped.
func (s *UserDataService) referredPlaces(ctx context.Context) map[string]models.ReferredPlace {
	id := s.ensureIdentity(ctx)
	var raw map[string]bson.RawValue
	if !s.get(ctx, "user_data: get referred places", database.CollectionReferredPlaces, id, &raw) {
		return map[string]models.ReferredPlace{}
	}

	out := make(map[string]models.ReferredPlace, len(raw))
	for key, val := range raw {
		if key == "_id" || val.Type != bson.TypeEmbeddedDocument {
			continue
		}
		var p models.ReferredPlace
		if err := val.Unmarshal(&p); err != nil {
			log.Printf("user_data: skipping malformed referred place %q: %v", key, err)
			continue
		}
		placeID := utils.FromFieldKey(key)
		if p.PlaceID == "" {
			p.PlaceID = placeID
		}
		out[placeID] = p
	}
	return out
}

func placeField(placeID string) string {
	return utils.FieldKey(placeID)
}
