package businessflow

import (
	"time"

	"github.com/amirphl/gateway-campaign-broker/app/dto"
	"github.com/amirphl/gateway-campaign-broker/models"
)

// ClientMetadata holds client information for audit logging
type ClientMetadata struct {
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
	RequestID string `json:"request_id,omitempty"`
	Operator  string `json:"operator,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetOperator sets the authenticated operator
func (cm *ClientMetadata) SetOperator(operator string) {
	cm.Operator = operator
}

func toTargetingSpec(req dto.TargetingRequest) models.TargetingSpec {
	return models.TargetingSpec{
		Gender:             req.Gender,
		AgeMin:             req.AgeMin,
		AgeMax:             req.AgeMax,
		Regions:            req.Regions,
		Districts:          req.Districts,
		Carriers:           req.Carriers,
		Devices:            req.Devices,
		ShoppingCategories: req.ShoppingCategories,
		AppCategories:      req.AppCategories,
		CallCategories:     req.CallCategories,
		LocationCategories: req.LocationCategories,
		MobilityCategories: req.MobilityCategories,
		GeofenceIDs:        req.GeofenceIDs,
	}
}

func toTargetingDTO(spec models.TargetingSpec) dto.TargetingRequest {
	return dto.TargetingRequest{
		Gender:             spec.Gender,
		AgeMin:             spec.AgeMin,
		AgeMax:             spec.AgeMax,
		Regions:            spec.Regions,
		Districts:          spec.Districts,
		Carriers:           spec.Carriers,
		Devices:            spec.Devices,
		ShoppingCategories: spec.ShoppingCategories,
		AppCategories:      spec.AppCategories,
		CallCategories:     spec.CallCategories,
		LocationCategories: spec.LocationCategories,
		MobilityCategories: spec.MobilityCategories,
		GeofenceIDs:        spec.GeofenceIDs,
	}
}

// ToCampaignResponse converts a campaign model to its operator view
func ToCampaignResponse(c *models.Campaign) *dto.CampaignResponse {
	resp := &dto.CampaignResponse{
		ID:                    c.ID,
		UUID:                  c.UUID.String(),
		Title:                 c.Title,
		Message:               c.Message,
		SenderNumber:          c.SenderNumber,
		StatusCode:            int(c.StatusCode),
		Status:                string(c.StatusCode.Status()),
		RemoteStatusCode:      c.RemoteStatusCode,
		RemoteID:              c.RemoteID,
		Environment:           string(c.Environment),
		Targeting:             toTargetingDTO(c.Targeting),
		UnresolvedRegions:     c.UnresolvedRegions,
		LastError:             c.LastError,
		RegistrationUncertain: c.RegistrationUncertain,
		SentCount:             c.SentCount,
		TargetCount:           c.TargetCount,
		SendReason:            c.SendReason,
		Version:               c.Version,
		CreatedAt:             c.CreatedAt.Format(time.RFC3339),
	}
	if c.CompiledFilter != nil {
		desc := c.CompiledFilter.Description
		resp.FilterDescription = &desc
	}
	if c.ScheduledSendAt != nil {
		s := c.ScheduledSendAt.Format(time.RFC3339)
		resp.ScheduledSendAt = &s
	}
	if c.UpdatedAt != nil {
		s := c.UpdatedAt.Format(time.RFC3339)
		resp.UpdatedAt = &s
	}
	return resp
}
