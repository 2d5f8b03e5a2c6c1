package models

import (
	"time"

	"github.com/amirphl/gateway-campaign-broker/utils"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Campaign is the local record of a gateway campaign
type Campaign struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid" json:"uuid"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	Message      string    `gorm:"type:text;not null" json:"message"`
	SenderNumber *string   `gorm:"size:32" json:"sender_number,omitempty"`

	StatusCode       StatusCode     `gorm:"not null;default:5;index:idx_campaigns_status_code" json:"status_code"`
	Status           CampaignStatus `gorm:"size:32;not null;default:'draft'" json:"status"`
	RemoteStatusCode *int           `json:"remote_status_code,omitempty"`

	RemoteID    *string            `gorm:"size:64;uniqueIndex:uk_campaigns_remote_id" json:"remote_id,omitempty"`
	Environment GatewayEnvironment `gorm:"size:16;not null;default:'sandbox'" json:"environment"`

	Targeting         TargetingSpec   `gorm:"type:jsonb;not null" json:"targeting"`
	CompiledFilter    *CompiledFilter `gorm:"type:jsonb" json:"compiled_filter,omitempty"`
	UnresolvedRegions pq.StringArray  `gorm:"type:text[]" json:"unresolved_regions,omitempty"`

	ScheduledSendAt       *time.Time `json:"scheduled_send_at,omitempty"`
	LastError             *string    `gorm:"type:text" json:"last_error,omitempty"`
	RegistrationUncertain bool       `gorm:"not null;default:false" json:"registration_uncertain"`

	SentCount   *int64  `json:"sent_count,omitempty"`
	TargetCount *int64  `json:"target_count,omitempty"`
	SendReason  *string `gorm:"type:text" json:"send_reason,omitempty"`

	Version   uint           `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "gateway_campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Status == "" {
		c.Status = c.StatusCode.Status()
	}
	if c.Environment == "" {
		c.Environment = GatewayEnvironmentSandbox
	}
	if c.Version == 0 {
		c.Version = 1
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// SetStatusCode sets the code and keeps the label in sync
func (c *Campaign) SetStatusCode(code StatusCode) {
	c.StatusCode = code
	c.Status = code.Status()
}

// IsRegistered reports whether the gateway has assigned an identifier
func (c *Campaign) IsRegistered() bool {
	return c.RemoteID != nil && *c.RemoteID != ""
}

// IsTerminal reports whether the campaign reached a final state
func (c *Campaign) IsTerminal() bool {
	return c.StatusCode.IsTerminal()
}

// IsEditable checks if targeting and content can still change
func (c *Campaign) IsEditable() bool {
	return c.StatusCode == StatusCodeDraft && !c.IsRegistered()
}

// IsDeletable checks if the campaign can be deleted
func (c *Campaign) IsDeletable() bool {
	if c.RegistrationUncertain {
		return false
	}
	return !c.IsRegistered() || c.StatusCode == StatusCodeTempRegistered
}

// SetTargeting replaces the targeting and drops any stale compilation
func (c *Campaign) SetTargeting(spec TargetingSpec) {
	c.Targeting = spec
	c.CompiledFilter = nil
	c.UnresolvedRegions = nil
}

// RecordError stores the last failure message, nil clears it
func (c *Campaign) RecordError(err error) {
	if err == nil {
		c.LastError = nil
		return
	}
	msg := err.Error()
	c.LastError = &msg
}

// CampaignFilter represents filter criteria for campaigns
type CampaignFilter struct {
	ID            *uint               `json:"id,omitempty"`
	UUID          *uuid.UUID          `json:"uuid,omitempty"`
	RemoteID      *string             `json:"remote_id,omitempty"`
	StatusCode    *StatusCode         `json:"status_code,omitempty"`
	Environment   *GatewayEnvironment `json:"environment,omitempty"`
	Uncertain     *bool               `json:"registration_uncertain,omitempty"`
	CreatedAfter  *time.Time          `json:"created_after,omitempty"`
	CreatedBefore *time.Time          `json:"created_before,omitempty"`
}
