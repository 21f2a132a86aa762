package model

import (
	"time"
)

// Room types accepted on listing creation.
const (
	RoomTypeSingle    = "single"
	RoomTypeShared    = "shared"
	RoomTypeApartment = "apartment"
	RoomTypePG        = "pg"
)

type Room struct {
	ID      string `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	OwnerID string `json:"owner_id" bson:"owner_id" validate:"required"`

	Title       string `json:"title" bson:"title" validate:"required,min=3,max=150"`
	Description string `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=5000"`
	RoomType    string `json:"room_type" bson:"room_type" validate:"required,oneof=single shared apartment pg"`

	City    string `json:"city" bson:"city" validate:"required,min=2,max=80"`
	State   string `json:"state,omitempty" bson:"state,omitempty" validate:"omitempty,max=80"`
	Address string `json:"address,omitempty" bson:"address,omitempty" validate:"omitempty,max=300"`

	// ContactPhone is stored in E.164 form; normalization happens on create.
	ContactPhone string `json:"contact_phone,omitempty" bson:"contact_phone,omitempty" validate:"omitempty,e164"`

	MonthlyRent        float64 `json:"monthly_rent" bson:"monthly_rent" validate:"required,gt=0"`
	SecurityDeposit    float64 `json:"security_deposit" bson:"security_deposit" validate:"gte=0"`
	MaintenanceCharges float64 `json:"maintenance_charges" bson:"maintenance_charges" validate:"gte=0"`

	Amenities []string `json:"amenities,omitempty" bson:"amenities,omitempty" validate:"omitempty,dive,max=80"`
	// ImageURLs reference pre-uploaded images; at least one is required on
	// creation.
	ImageURLs []string `json:"image_urls" bson:"image_urls" validate:"required,min=1,dive,url"`

	Available bool `json:"available" bson:"available"`
	Verified  bool `json:"verified" bson:"verified"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// RoomFilter narrows a listing search.
type RoomFilter struct {
	City          string
	RoomType      string
	MinPrice      *float64
	MaxPrice      *float64
	AvailableOnly bool
}
