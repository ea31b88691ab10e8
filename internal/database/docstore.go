package database

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
)

// Collection names of the remote document store.
const (
	CollectionUsers          = "users"
	CollectionUserFilters    = "user_filters"
	CollectionSearchHistory  = "user_search_history"
	CollectionPopularSearch  = "popular_search"
	CollectionUserLocations  = "user_locations"
	CollectionReferredPlaces = "referred_places"
	CollectionDeviceMappings = "device_mappings"
	CollectionPlaces         = "places"
)

// ErrNotFound is returned by Get when the document does not exist.
var ErrNotFound = errors.New("document not found")

// Mutation is an upsert against a single document. Field names may be dotted
// paths into nested documents.
type Mutation struct {
	Set         bson.M
	SetOnInsert bson.M // applied only when the document is created
	Inc         bson.M
	Unset       []string
}

func (m Mutation) empty() bool {
	return len(m.Set) == 0 && len(m.SetOnInsert) == 0 && len(m.Inc) == 0 && len(m.Unset) == 0
}

// upserts reports whether applying the mutation may create the document.
// An unset-only mutation never creates anything.
func (m Mutation) upserts() bool {
	return len(m.Set) > 0 || len(m.SetOnInsert) > 0 || len(m.Inc) > 0
}

// DocStore is the remote document store the identity core and the user data
// facade are written against. Documents are addressed by (collection, id).
type DocStore interface {
	Ping(ctx context.Context) error
	// Get decodes the document into dest, or returns ErrNotFound.
	Get(ctx context.Context, collection, id string, dest any) error
	// Apply upserts the document with the given mutation.
	Apply(ctx context.Context, collection, id string, m Mutation) error
	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// Top decodes up to limit documents with the highest numeric field into
	// dest, which must be a pointer to a slice.
	Top(ctx context.Context, collection, field string, limit int64, dest any) error
	// Range decodes every document whose numeric field lies in [lo, hi]
	// into dest, which must be a pointer to a slice.
	Range(ctx context.Context, collection, field string, lo, hi float64, dest any) error
}
