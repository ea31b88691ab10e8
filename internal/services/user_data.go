package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/AnshRaj112/wayfarer-backend/internal/database"
	"github.com/AnshRaj112/wayfarer-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrUnknownFilter is returned for a filter id outside the taxonomy.
var ErrUnknownFilter = errors.New("unknown filter option")

// ClientInfo is what the app shell reports about the install on startup.
type ClientInfo struct {
	DeviceInfo models.DeviceInfo
	AppVersion string
	Platform   string
}

// UserDataService stores the data of the resolved identity. Every operation
// resolves the identity first and runs behind the readiness gate. Backend
// errors are logged and turned into empty results or false.
type UserDataService struct {
	resolver    *IdentityResolver
	session     *Session
	store       database.DocStore
	gate        *ReadinessGate
	leaderboard *SearchLeaderboard
	now         func() time.Time
}

func NewUserDataService(resolver *IdentityResolver, session *Session, store database.DocStore, gate *ReadinessGate, leaderboard *SearchLeaderboard) *UserDataService {
	return &UserDataService{
		resolver:    resolver,
		session:     session,
		store:       store,
		gate:        gate,
		leaderboard: leaderboard,
		now:         time.Now,
	}
}

// ensureIdentity resolves the identity and binds it to the session when
// the session has none yet, as after a clear.
func (s *UserDataService) ensureIdentity(ctx context.Context) string {
	gen := s.session.Generation()
	res := s.resolver.Resolve(ctx)
	if s.session.Identity() != res.Identity {
		s.session.BindAt(gen, res.Identity, res.Recovered)
	}
	return res.Identity
}

// get reads collection/id into dest. Missing and undecodable documents both
// report false.
func (s *UserDataService) get(ctx context.Context, op, collection, id string, dest any) bool {
	found := false
	err := s.gate.Run(ctx, op, func(ctx context.Context) error {
		err := s.store.Get(ctx, collection, id, dest)
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		found = err == nil
		return err
	})
	return err == nil && found
}

// InitializeUser resolves the identity and writes its users/{id} profile.
// The identity is returned even if the profile write failed.
func (s *UserDataService) InitializeUser(ctx context.Context, info ClientInfo) (string, error) {
	id := s.ensureIdentity(ctx)
	now := s.now().UTC()

	device := info.DeviceInfo
	device.DeviceID = ""

	err := s.gate.Run(ctx, "user_data: initialize user", func(ctx context.Context) error {
		return s.store.Apply(ctx, database.CollectionUsers, id, database.Mutation{
			Set: bson.M{
				"userId":      id,
				"deviceInfo":  device,
				"appVersion":  info.AppVersion,
				"platform":    info.Platform,
				"updatedAt":   now,
				"lastLoginAt": now,
			},
			SetOnInsert: bson.M{"createdAt": now},
		})
	})
	if err != nil {
		return id, fmt.Errorf("initialize user: %w", err)
	}
	return id, nil
}

// GetProfile returns the users/{id} document, or nil.
func (s *UserDataService) GetProfile(ctx context.Context) *models.UserProfile {
	id := s.ensureIdentity(ctx)
	var p models.UserProfile
	if !s.get(ctx, "user_data: get profile", database.CollectionUsers, id, &p) {
		return nil
	}
	return &p
}

// UpdateLastLogin stamps lastLoginAt on the profile.
func (s *UserDataService) UpdateLastLogin(ctx context.Context) bool {
	id := s.ensureIdentity(ctx)
	now := s.now().UTC()
	err := s.gate.Run(ctx, "user_data: update last login", func(ctx context.Context) error {
		return s.store.Apply(ctx, database.CollectionUsers, id, database.Mutation{
			Set:         bson.M{"lastLoginAt": now, "updatedAt": now},
			SetOnInsert: bson.M{"userId": id, "createdAt": now},
		})
	})
	return err == nil
}

// ValidateFilters returns ErrUnknownFilter for the first id outside the
// taxonomy.
func ValidateFilters(opts []models.FilterOption) error {
	for _, o := range opts {
		if !o.Valid() {
			return fmt.Errorf("%w: %q", ErrUnknownFilter, string(o))
		}
	}
	return nil
}

// SaveFilters replaces the selected filters. Unknown ids reject the whole
// write.
func (s *UserDataService) SaveFilters(ctx context.Context, opts []models.FilterOption) bool {
	if err := ValidateFilters(opts); err != nil {
		log.Printf("user_data: save filters: %v", err)
		return false
	}
	id := s.ensureIdentity(ctx)
	filters := models.NormalizeFilters(opts)
	ids := make([]string, len(filters))
	for i, f := range filters {
		ids[i] = string(f)
	}

	err := s.gate.Run(ctx, "user_data: save filters", func(ctx context.Context) error {
		return s.store.Apply(ctx, database.CollectionUserFilters, id, database.Mutation{
			Set: bson.M{"userId": id, "filters": ids, "updatedAt": s.now().UTC()},
		})
	})
	return err == nil
}

// GetFilters returns the selected filters. Ids no longer in the taxonomy
// are dropped.
func (s *UserDataService) GetFilters(ctx context.Context) []models.FilterOption {
	id := s.ensureIdentity(ctx)
	var doc models.UserFilters
	if !s.get(ctx, "user_data: get filters", database.CollectionUserFilters, id, &doc) {
		return []models.FilterOption{}
	}
	opts := make([]models.FilterOption, len(doc.Filters))
	for i, f := range doc.Filters {
		opts[i] = models.FilterOption(f)
	}
	return models.NormalizeFilters(opts)
}

// SetLastLocation stores the last known location.
func (s *UserDataService) SetLastLocation(ctx context.Context, loc models.Location) bool {
	if !validCoordinates(loc.Latitude, loc.Longitude) {
		log.Printf("user_data: set location: coordinates out of range (%f, %f)", loc.Latitude, loc.Longitude)
		return false
	}
	id := s.ensureIdentity(ctx)
	err := s.gate.Run(ctx, "user_data: set location", func(ctx context.Context) error {
		return s.store.Apply(ctx, database.CollectionUserLocations, id, database.Mutation{
			Set: bson.M{
				"userId":    id,
				"latitude":  loc.Latitude,
				"longitude": loc.Longitude,
				"accuracy":  loc.Accuracy,
				"address":   loc.Address,
				"updatedAt": s.now().UTC(),
			},
		})
	})
	return err == nil
}

// GetLastLocation returns the last known location, or nil.
func (s *UserDataService) GetLastLocation(ctx context.Context) *models.Location {
	id := s.ensureIdentity(ctx)
	var loc models.Location
	if !s.get(ctx, "user_data: get location", database.CollectionUserLocations, id, &loc) {
		return nil
	}
	return &loc
}
