// Package models contains the persisted entities of the campaign broker
package models

import (
	"encoding/json"
	"time"
)

type AuditLog struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	CampaignID   *uint           `gorm:"index:idx_audit_campaign_id" json:"campaign_id,omitempty"`
	Action       string          `gorm:"size:64;not null;index:idx_audit_action" json:"action"`
	Operator     *string         `gorm:"size:255" json:"operator,omitempty"`
	Description  *string         `gorm:"type:text" json:"description,omitempty"`
	IPAddress    *string         `gorm:"size:64" json:"ip_address,omitempty"`
	UserAgent    *string         `gorm:"type:text" json:"user_agent,omitempty"`
	RequestID    *string         `gorm:"size:255;index:idx_audit_request_id" json:"request_id,omitempty"`
	Metadata     json.RawMessage `gorm:"type:jsonb" json:"metadata,omitempty"`
	Success      *bool           `gorm:"default:true;index:idx_audit_success" json:"success"`
	ErrorMessage *string         `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"default:CURRENT_TIMESTAMP;index:idx_audit_created_at" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_log"
}

// Audit action constants
const (
	AuditActionCampaignCreated            = "campaign_created"
	AuditActionCampaignTargetingUpdated   = "campaign_targeting_updated"
	AuditActionCampaignRegistered         = "campaign_registered"
	AuditActionCampaignRegistrationFailed = "campaign_registration_failed"
	AuditActionCampaignReconciled         = "campaign_reconciled"
	AuditActionCampaignApprovalRequested  = "campaign_approval_requested"
	AuditActionCampaignTestSent           = "campaign_test_sent"
	AuditActionCampaignDeleted            = "campaign_deleted"
	AuditActionCampaignStatusRefreshed    = "campaign_status_refreshed"
	AuditActionCallbackApplied            = "callback_applied"
	AuditActionCallbackIgnored            = "callback_ignored"
)

// AuditLogFilter represents filter criteria for audit log queries
type AuditLogFilter struct {
	ID            *uint
	CampaignID    *uint
	Action        *string
	Success       *bool
	RequestID     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

func (a *AuditLog) IsFailed() bool {
	return a.Success != nil && !*a.Success
}
