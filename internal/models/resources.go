package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ResourceType string

const (
	ResourceRoom      ResourceType = "room"
	ResourceGarden    ResourceType = "marriageGarden"
	ResourceWaterPark ResourceType = "waterPark"
)

func (t ResourceType) Valid() bool {
	switch t {
	case ResourceRoom, ResourceGarden, ResourceWaterPark:
		return true
	}
	return false
}

func (t ResourceType) Label() string {
	switch t {
	case ResourceRoom:
		return "Room"
	case ResourceGarden:
		return "Marriage Garden"
	case ResourceWaterPark:
		return "Water Park"
	}
	return string(t)
}

type RoomDetails struct {
	Beds     int `bson:"beds,omitempty" json:"beds,omitempty" validate:"omitempty,min=0"`
	Capacity int `bson:"capacity,omitempty" json:"capacity,omitempty" validate:"omitempty,min=0"`
}

type GardenDetails struct {
	MaxCapacity int      `bson:"maxCapacity,omitempty" json:"maxCapacity,omitempty" validate:"omitempty,min=0"`
	Features    []string `bson:"features,omitempty" json:"features,omitempty"`
}

type WaterParkDetails struct {
	DailyCapacity int      `bson:"dailyCapacity,omitempty" json:"dailyCapacity,omitempty" validate:"omitempty,min=0"`
	Sections      []string `bson:"sections,omitempty" json:"sections,omitempty"`
}

type ResourceDetails struct {
	Room      *RoomDetails      `bson:"roomDetails,omitempty" json:"roomDetails,omitempty"`
	Garden    *GardenDetails    `bson:"gardenDetails,omitempty" json:"gardenDetails,omitempty"`
	WaterPark *WaterParkDetails `bson:"waterParkDetails,omitempty" json:"waterParkDetails,omitempty"`
}

// Resource is a bookable item. Price is per night for rooms and a flat fee for
// gardens; water park tickets carry their own prices.
type Resource struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ResourceType ResourceType       `bson:"resourceType" json:"resourceType" validate:"required,oneof=room marriageGarden waterPark"`
	Name         string             `bson:"name" json:"name" validate:"required,min=2,max=120"`
	Price        float64            `bson:"price" json:"price" validate:"gte=0"`
	Description  string             `bson:"description,omitempty" json:"description,omitempty" validate:"max=2000"`
	Photos       []string           `bson:"photos,omitempty" json:"photos,omitempty"`
	Details      ResourceDetails    `bson:"details" json:"details"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type ResourceFilter struct {
	Type   ResourceType
	Query  string
	Offset int
	Limit  int
}

// ResourceUpdate holds the fields an admin may change. Nil fields are left alone.
type ResourceUpdate struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,min=2,max=120"`
	Price       *float64         `json:"price,omitempty" validate:"omitempty,gte=0"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Photos      []string         `json:"photos,omitempty"`
	Details     *ResourceDetails `json:"details,omitempty"`
}
