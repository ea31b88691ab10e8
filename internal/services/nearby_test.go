package services

import (
	"context"
	"testing"

	"github.com/AnshRaj112/wayfarer-backend/internal/database"
	"github.com/AnshRaj112/wayfarer-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

var berlin = models.Location{Latitude: 52.520, Longitude: 13.405}

func seedPlace(t *testing.T, store database.DocStore, id, name, category string, lat, lng float64, rank int) {
	t.Helper()
	err := store.Apply(context.Background(), database.CollectionPlaces, id, database.Mutation{
		Set: bson.M{
			"name":      name,
			"address":   name + " Strasse 1",
			"category":  category,
			"latitude":  lat,
			"longitude": lng,
			"rank":      rank,
		},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func seedBerlin(t *testing.T, store database.DocStore) {
	t.Helper()
	seedPlace(t, store, "p-trattoria", "Trattoria Roma", "italian", 52.521, 13.406, 3)
	seedPlace(t, store, "p-kino", "Kino Central", "cinemas", 52.515, 13.400, 1)
	seedPlace(t, store, "p-bar", "Bar Italia", "drinks", 52.530, 13.410, 2)
	// Inside the latitude band but too far east
	seedPlace(t, store, "p-east", "Osteria Est", "italian", 52.520, 13.500, 0)
	// Outside the latitude band
	seedPlace(t, store, "p-north", "Nordpizza", "italian", 52.600, 13.405, 0)
}

func placeIDs(places []models.Place) []string {
	ids := make([]string, len(places))
	for i, p := range places {
		ids[i] = p.ID
	}
	return ids
}

func TestNearbyPlaces_BoxAndRank(t *testing.T) {
	ctx := context.Background()
	app, store, _ := newFacade(t)
	seedBerlin(t, store)

	got := placeIDs(app.UserData.NearbyPlaces(ctx, berlin, 0))
	want := []string{"p-kino", "p-bar", "p-trattoria"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	if got := app.UserData.NearbyPlaces(ctx, berlin, 2); len(got) != 2 {
		t.Errorf("limit not applied: %v", placeIDs(got))
	}
	if got := app.UserData.NearbyPlaces(ctx, models.Location{Latitude: 95}, 0); len(got) != 0 {
		t.Errorf("invalid location returned places: %v", placeIDs(got))
	}
}

func TestNearbyPlaces_MarksReferred(t *testing.T) {
	ctx := context.Background()
	app, store, _ := newFacade(t)
	seedBerlin(t, store)

	if !app.UserData.AddReferredPlace(ctx, models.ReferredPlace{PlaceID: "p-bar", Name: "Bar Italia"}) {
		t.Fatal("AddReferredPlace failed")
	}
	for _, p := range app.UserData.NearbyPlaces(ctx, berlin, 0) {
		if p.IsReferred != (p.ID == "p-bar") {
			t.Errorf("%s: IsReferred = %v", p.ID, p.IsReferred)
		}
	}
}

func TestFilteredPlaces(t *testing.T) {
	ctx := context.Background()
	app, store, _ := newFacade(t)
	seedBerlin(t, store)

	got := app.UserData.FilteredPlaces(ctx, berlin, []models.FilterOption{models.FilterItalian, "nightlife"}, 0)
	if len(got) != 1 || got[0].ID != "p-trattoria" {
		t.Errorf("italian filter: got %v", placeIDs(got))
	}
	if got := app.UserData.FilteredPlaces(ctx, berlin, nil, 0); len(got) != 0 {
		t.Errorf("no filters should give no places, got %v", placeIDs(got))
	}
}

func TestSearchPlaces(t *testing.T) {
	ctx := context.Background()
	app, store, _ := newFacade(t)
	seedBerlin(t, store)

	// "Bar Italia" by name, the trattoria by its "italian" category
	got := app.UserData.SearchPlaces(ctx, berlin, "  ITALIA ", 0)
	if len(got) != 2 || got[0].ID != "p-bar" || got[1].ID != "p-trattoria" {
		t.Errorf("name search: got %v", placeIDs(got))
	}
	// Category match
	got = app.UserData.SearchPlaces(ctx, berlin, "cinema", 0)
	if len(got) != 1 || got[0].ID != "p-kino" {
		t.Errorf("category search: got %v", placeIDs(got))
	}
	if got := app.UserData.SearchPlaces(ctx, berlin, "", 0); len(got) != 3 {
		t.Errorf("empty search should match every nearby place, got %v", placeIDs(got))
	}
}
