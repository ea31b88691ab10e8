package models

// Place is a document of the shared places collection. Places are written by
// the catalogue import, never by an identity.
type Place struct {
	ID          string  `bson:"_id" json:"id"`
	Name        string  `bson:"name" json:"name"`
	Address     string  `bson:"address" json:"address"`
	Description string  `bson:"description" json:"description"`
	Category    string  `bson:"category" json:"category"`
	Website     string  `bson:"website" json:"website"`
	OpenTime    string  `bson:"openTime" json:"open_time"`
	Rating      float64 `bson:"rating" json:"rating"`
	Latitude    float64 `bson:"latitude" json:"latitude"`
	Longitude   float64 `bson:"longitude" json:"longitude"`
	Rank        int     `bson:"rank" json:"rank"`
	Image       string  `bson:"image" json:"image"`
	ImageFull   string  `bson:"imageFull" json:"image_full"`

	// IsReferred is filled in per identity when the place is served.
	IsReferred bool `bson:"-" json:"is_referred"`
}
