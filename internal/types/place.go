package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DayHours is a same-day opening window for one weekday.
type DayHours struct {
	Open  string `json:"open" validate:"required"`
	Close string `json:"close" validate:"required"`
}

// Place is a catalog entry as stored in the places table.
type Place struct {
	ID                  uuid.UUID           `json:"id"`
	Name                string              `json:"name"`
	Description         string              `json:"description"`
	Category            string              `json:"category"`
	Tags                []string            `json:"tags"`
	Latitude            float64             `json:"latitude"`
	Longitude           float64             `json:"longitude"`
	Address             string              `json:"address"`
	ImageURL            *string             `json:"imageUrl,omitempty"`
	IsHiddenGem         bool                `json:"isHiddenGem"`
	OpeningTime         *string             `json:"openingTime,omitempty"`
	ClosingTime         *string             `json:"closingTime,omitempty"`
	TourDuration        *int                `json:"tourDuration,omitempty"`
	ClosedDays          []string            `json:"closedDays,omitempty"`
	ScheduleByDay       map[string]DayHours `json:"scheduleByDay,omitempty"`
	CrowdInfo           json.RawMessage     `json:"crowdInfo,omitempty"`
	NarrativeDocumentID *string             `json:"narrativeDocumentId,omitempty"`
	NarrativeStoreID    *string             `json:"narrativeStoreId,omitempty"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt"`
	DeletedAt           *time.Time          `json:"deletedAt,omitempty"`
}

// HasNarrative reports whether a narrative document is attached.
func (p Place) HasNarrative() bool {
	return p.NarrativeDocumentID != nil && *p.NarrativeDocumentID != ""
}

type CreatePlaceRequest struct {
	Name          string              `json:"name" validate:"required,max=255"`
	Description   string              `json:"description" validate:"required"`
	Category      string              `json:"category" validate:"required,max=100"`
	Tags          []string            `json:"tags" validate:"omitempty,dive,required,max=100"`
	Latitude      *float64            `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude     *float64            `json:"longitude" validate:"required,gte=-180,lte=180"`
	Address       string              `json:"address" validate:"required"`
	ImageURL      *string             `json:"imageUrl,omitempty" validate:"omitempty,url,max=500"`
	IsHiddenGem   *bool               `json:"isHiddenGem,omitempty"`
	OpeningTime   *string             `json:"openingTime,omitempty"`
	ClosingTime   *string             `json:"closingTime,omitempty"`
	TourDuration  *int                `json:"tourDuration,omitempty" validate:"omitempty,min=1"`
	ClosedDays    []string            `json:"closedDays,omitempty"`
	ScheduleByDay map[string]DayHours `json:"scheduleByDay,omitempty" validate:"omitempty,dive"`
	CrowdInfo     json.RawMessage     `json:"crowdInfo,omitempty"`
}

// ToPlace builds the record to insert. Required pointers must already be validated.
func (r CreatePlaceRequest) ToPlace() Place {
	p := Place{
		Name:          r.Name,
		Description:   r.Description,
		Category:      r.Category,
		Tags:          r.Tags,
		Address:       r.Address,
		ImageURL:      r.ImageURL,
		OpeningTime:   r.OpeningTime,
		ClosingTime:   r.ClosingTime,
		TourDuration:  r.TourDuration,
		ClosedDays:    r.ClosedDays,
		ScheduleByDay: r.ScheduleByDay,
		CrowdInfo:     r.CrowdInfo,
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if r.Latitude != nil {
		p.Latitude = *r.Latitude
	}
	if r.Longitude != nil {
		p.Longitude = *r.Longitude
	}
	if r.IsHiddenGem != nil {
		p.IsHiddenGem = *r.IsHiddenGem
	}
	return p
}

type CreatePlacesBulkRequest struct {
	Places []CreatePlaceRequest `json:"places" validate:"required,min=1,max=100,dive"`
}

// UpdatePlaceRequest is a partial update: nil fields are left untouched.
// An empty openingTime or closingTime clears the stored value.
type UpdatePlaceRequest struct {
	Name          *string              `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description   *string              `json:"description,omitempty" validate:"omitempty,min=1"`
	Category      *string              `json:"category,omitempty" validate:"omitempty,min=1,max=100"`
	Tags          *[]string            `json:"tags,omitempty" validate:"omitempty,dive,required,max=100"`
	Latitude      *float64             `json:"latitude,omitempty" validate:"omitempty,gte=-90,lte=90"`
	Longitude     *float64             `json:"longitude,omitempty" validate:"omitempty,gte=-180,lte=180"`
	Address       *string              `json:"address,omitempty" validate:"omitempty,min=1"`
	ImageURL      *string              `json:"imageUrl,omitempty" validate:"omitempty,url,max=500"`
	IsHiddenGem   *bool                `json:"isHiddenGem,omitempty"`
	OpeningTime   *string              `json:"openingTime,omitempty"`
	ClosingTime   *string              `json:"closingTime,omitempty"`
	TourDuration  *int                 `json:"tourDuration,omitempty" validate:"omitempty,min=1"`
	ClosedDays    *[]string            `json:"closedDays,omitempty"`
	ScheduleByDay *map[string]DayHours `json:"scheduleByDay,omitempty" validate:"omitempty"`
	CrowdInfo     json.RawMessage      `json:"crowdInfo,omitempty"`
}

// PlaceFilter drives the paginated listing.
type PlaceFilter struct {
	Search      string
	Category    string
	Tags        []string
	IsHiddenGem *bool
	Latitude    *float64 `validate:"omitempty,gte=-90,lte=90"`
	Longitude   *float64 `validate:"omitempty,gte=-180,lte=180"`
	Radius      *float64
	SortBy      string `validate:"omitempty,oneof=name category createdAt distance"`
	SortOrder   string `validate:"omitempty,oneof=ASC DESC asc desc"`
	Page        int    `validate:"gte=0"`
	Limit       int    `validate:"gte=0"`
}

// HasProximity reports whether the whole origin plus radius triple is set.
func (f PlaceFilter) HasProximity() bool {
	return f.Latitude != nil && f.Longitude != nil && f.Radius != nil
}

type NearbySearchRequest struct {
	Latitude        *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude       *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
	Radius          *float64 `json:"radius,omitempty"`
	Limit           *int     `json:"limit,omitempty"`
	OpeningTime     *string  `json:"openingTime,omitempty"`
	ClosingTime     *string  `json:"closingTime,omitempty"`
	Day             *string  `json:"day,omitempty"`
	MinTourDuration *int     `json:"minTourDuration,omitempty" validate:"omitempty,min=1"`
	MaxTourDuration *int     `json:"maxTourDuration,omitempty" validate:"omitempty,min=1"`
}

type AvailableNowRequest struct {
	Latitude  *float64 `validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64 `validate:"omitempty,gte=-180,lte=180"`
	Radius    *float64
	Category  string
	Limit     *int
}

type PlaceResponse struct {
	ID                  uuid.UUID           `json:"id"`
	Name                string              `json:"name"`
	Description         string              `json:"description"`
	Category            string              `json:"category"`
	Tags                []string            `json:"tags"`
	Latitude            float64             `json:"latitude"`
	Longitude           float64             `json:"longitude"`
	Address             string              `json:"address"`
	ImageURL            *string             `json:"imageUrl,omitempty"`
	IsHiddenGem         bool                `json:"isHiddenGem"`
	OpeningTime         *string             `json:"openingTime,omitempty"`
	ClosingTime         *string             `json:"closingTime,omitempty"`
	TourDuration        *int                `json:"tourDuration,omitempty"`
	ClosedDays          []string            `json:"closedDays,omitempty"`
	ScheduleByDay       map[string]DayHours `json:"scheduleByDay,omitempty"`
	CrowdInfo           json.RawMessage     `json:"crowdInfo,omitempty"`
	NarrativeDocumentID *string             `json:"narrativeDocumentId,omitempty"`
	NarrativeStoreID    *string             `json:"narrativeStoreId,omitempty"`
	OpenStatus          string              `json:"openStatus"`
	Distance            *float64            `json:"distance,omitempty"`
	CreatedAt           time.Time           `json:"createdAt"`
	UpdatedAt           time.Time           `json:"updatedAt"`
}

type PaginationMeta struct {
	Page        int  `json:"page"`
	Limit       int  `json:"limit"`
	Total       int  `json:"total"`
	TotalPages  int  `json:"totalPages"`
	HasPrevious bool `json:"hasPrevious"`
	HasNext     bool `json:"hasNext"`
}

// NewPaginationMeta derives page flags from the total row count.
func NewPaginationMeta(page, limit, total int) PaginationMeta {
	totalPages := 0
	if limit > 0 {
		totalPages = (total + limit - 1) / limit
	}
	return PaginationMeta{
		Page:        page,
		Limit:       limit,
		Total:       total,
		TotalPages:  totalPages,
		HasPrevious: page > 1,
		HasNext:     page < totalPages,
	}
}

type PaginatedResponse[T any] struct {
	Data []T            `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

type BulkCreateResponse struct {
	Created int             `json:"created"`
	Places  []PlaceResponse `json:"places"`
}

type DeleteResponse struct {
	ID      uuid.UUID `json:"id"`
	Deleted bool      `json:"deleted"`
}

type DeleteAllResponse struct {
	DeletedCount int64 `json:"deletedCount"`
}

// DaySchedule is one weekday of a resolved weekly schedule.
type DaySchedule struct {
	Day    string `json:"day"`
	Status string `json:"status"`
	Source string `json:"source"`
	Open   string `json:"open,omitempty"`
	Close  string `json:"close,omitempty"`
}

type ScheduleResponse struct {
	PlaceID    uuid.UUID     `json:"placeId"`
	Name       string        `json:"name"`
	Weekday    string        `json:"weekday"`
	Time       string        `json:"time"`
	OpenStatus string        `json:"openStatus"`
	Week       []DaySchedule `json:"week"`
	Display    []string      `json:"display"`
}
