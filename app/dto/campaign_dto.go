package dto

import (
	"time"
)

// TargetingRequest is the audience selection entered by an operator
type TargetingRequest struct {
	Gender *string `json:"gender,omitempty" validate:"omitempty,oneof=male female all"`
	AgeMin *int    `json:"age_min,omitempty" validate:"omitempty,min=0,max=100"`
	AgeMax *int    `json:"age_max,omitempty" validate:"omitempty,min=0,max=100"`

	Regions   []string `json:"regions,omitempty" validate:"omitempty,max=50,dive,required,max=64"`
	Districts []string `json:"districts,omitempty" validate:"omitempty,max=500,dive,required,max=32"`
	Carriers  []string `json:"carriers,omitempty" validate:"omitempty,max=10,dive,required,max=32"`
	Devices   []string `json:"devices,omitempty" validate:"omitempty,max=10,dive,required,max=32"`

	ShoppingCategories []string `json:"shopping_categories,omitempty" validate:"omitempty,max=200,dive,required,max=32"`
	AppCategories      []string `json:"app_categories,omitempty" validate:"omitempty,max=200,dive,required,max=32"`
	CallCategories     []string `json:"call_categories,omitempty" validate:"omitempty,max=200,dive,required,max=32"`
	LocationCategories []string `json:"location_categories,omitempty" validate:"omitempty,max=200,dive,required,max=32"`
	MobilityCategories []string `json:"mobility_categories,omitempty" validate:"omitempty,max=200,dive,required,max=32"`

	GeofenceIDs []string `json:"geofence_ids,omitempty" validate:"omitempty,max=100,dive,required,max=64"`
}

// CreateCampaignRequest represents the request to create a new draft campaign
type CreateCampaignRequest struct {
	Title        string           `json:"title" validate:"required,max=255"`
	Message      string           `json:"message" validate:"required,max=2000"`
	SenderNumber *string          `json:"sender_number,omitempty" validate:"omitempty,numeric,max=20"`
	Environment  *string          `json:"environment,omitempty" validate:"omitempty,oneof=sandbox production"`
	Targeting    TargetingRequest `json:"targeting"`
}

// UpdateTargetingRequest replaces the targeting of a draft campaign
type UpdateTargetingRequest struct {
	Targeting TargetingRequest `json:"targeting"`
}

// RegisterCampaignRequest registers a draft at the gateway
type RegisterCampaignRequest struct {
	// RequestedSendAt is legalized; omitted means as soon as allowed
	RequestedSendAt *time.Time `json:"requested_send_at,omitempty"`
}

// TestSendRequest represents a test delivery to a few recipients
type TestSendRequest struct {
	Recipients []string `json:"recipients" validate:"required,min=1,max=20,dive,required"`
}

// TestSendResponse represents the result of a test delivery
type TestSendResponse struct {
	Message    string   `json:"message"`
	Recipients []string `json:"recipients"`
}

// CampaignResponse is the operator view of a campaign
type CampaignResponse struct {
	ID                    uint             `json:"id"`
	UUID                  string           `json:"uuid"`
	Title                 string           `json:"title"`
	Message               string           `json:"message"`
	SenderNumber          *string          `json:"sender_number,omitempty"`
	StatusCode            int              `json:"status_code"`
	Status                string           `json:"status"`
	RemoteStatusCode      *int             `json:"remote_status_code,omitempty"`
	RemoteID              *string          `json:"remote_id,omitempty"`
	Environment           string           `json:"environment"`
	Targeting             TargetingRequest `json:"targeting"`
	FilterDescription     *string          `json:"filter_description,omitempty"`
	UnresolvedRegions     []string         `json:"unresolved_regions,omitempty"`
	ScheduledSendAt       *string          `json:"scheduled_send_at,omitempty"`
	LastError             *string          `json:"last_error,omitempty"`
	RegistrationUncertain bool             `json:"registration_uncertain"`
	SentCount             *int64           `json:"sent_count,omitempty"`
	TargetCount           *int64           `json:"target_count,omitempty"`
	SendReason            *string          `json:"send_reason,omitempty"`
	Version               uint             `json:"version"`
	CreatedAt             string           `json:"created_at"`
	UpdatedAt             *string          `json:"updated_at,omitempty"`
}

// CampaignStatsResponse carries the gateway delivery counters of a campaign
type CampaignStatsResponse struct {
	UUID         string `json:"uuid"`
	RemoteID     string `json:"remote_id"`
	TargetCount  int64  `json:"target_count"`
	SentCount    int64  `json:"sent_count"`
	SuccessCount int64  `json:"success_count"`
	FailCount    int64  `json:"fail_count"`
	ClickCount   int64  `json:"click_count"`
	Simulated    bool   `json:"simulated,omitempty"`
	FetchedAt    string `json:"fetched_at"`
}

// GatewayMetaResponse wraps a targeting metadata catalog
type GatewayMetaResponse struct {
	Kind        string `json:"kind"`
	Environment string `json:"environment"`
	Cached      bool   `json:"cached"`
	Data        any    `json:"data"`
}
