package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Location types shown on the campus map.
const (
	LocationAcademic = "academic"
	LocationHostel   = "hostel"
	LocationDining   = "dining"
	LocationLibrary  = "library"
	LocationSports   = "sports"
	LocationAdmin    = "admin"
	LocationMedical  = "medical"
	LocationParking  = "parking"
	LocationLandmark = "landmark"
	LocationOther    = "other"
)

// LocationTypes lists every accepted Location.Type value.
var LocationTypes = []string{
	LocationAcademic,
	LocationHostel,
	LocationDining,
	LocationLibrary,
	LocationSports,
	LocationAdmin,
	LocationMedical,
	LocationParking,
	LocationLandmark,
	LocationOther,
}

// IsLocationType reports whether t is one of LocationTypes.
func IsLocationType(t string) bool {
	for _, v := range LocationTypes {
		if v == t {
			return true
		}
	}
	return false
}

// Coordinates is a WGS84 point. Both fields are required.
type Coordinates struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lng float64 `bson:"lng" json:"lng"`
}

// Location is a place on the campus map.
type Location struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"-"` // folded, unique
	Type        string             `bson:"type" json:"type"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Coordinates Coordinates        `bson:"coordinates" json:"coordinates"`
	Tags        []string           `bson:"tags,omitempty" json:"tags,omitempty"`

	// BuildingID is a lookup-only reference to the enclosing building.
	BuildingID *primitive.ObjectID `bson:"building_id,omitempty" json:"building_id,omitempty"`

	Meta map[string]string `bson:"meta,omitempty" json:"meta,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
