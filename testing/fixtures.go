package testing

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/amirphl/gateway-campaign-broker/models"
	"github.com/amirphl/gateway-campaign-broker/utils"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestCampaign inserts a draft campaign with a small targeting spec
func (tf *TestFixtures) CreateTestCampaign() (*models.Campaign, error) {
	campaign := &models.Campaign{
		UUID:        uuid.New(),
		Title:       fmt.Sprintf("Test campaign %d", rand.IntN(1000000)),
		Message:     "Spring sale starts today",
		Environment: models.GatewayEnvironmentSandbox,
		Targeting: models.TargetingSpec{
			Gender:  utils.ToPtr("male"),
			AgeMin:  utils.ToPtr(25),
			AgeMax:  utils.ToPtr(34),
			Regions: []string{"서울"},
		},
	}
	campaign.SetStatusCode(models.StatusCodeDraft)

	if err := tf.DB.DB.Create(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to create test campaign: %w", err)
	}

	return campaign, nil
}

// CreateRegisteredCampaign inserts a campaign already known to the gateway
func (tf *TestFixtures) CreateRegisteredCampaign(remoteID string, code models.StatusCode) (*models.Campaign, error) {
	campaign, err := tf.CreateTestCampaign()
	if err != nil {
		return nil, err
	}

	campaign.RemoteID = &remoteID
	campaign.SetStatusCode(code)
	if err := tf.DB.DB.Save(campaign).Error; err != nil {
		return nil, fmt.Errorf("failed to register test campaign: %w", err)
	}

	return campaign, nil
}

// CreateTestAuditLog creates a test audit log entry
func (tf *TestFixtures) CreateTestAuditLog(campaignID *uint, action string, success bool) (*models.AuditLog, error) {
	description := fmt.Sprintf("Test %s action", action)
	ipAddress := "127.0.0.1"
	userAgent := "Test User Agent"

	audit := &models.AuditLog{
		CampaignID:  campaignID,
		Action:      action,
		Description: &description,
		Success:     &success,
		IPAddress:   &ipAddress,
		UserAgent:   &userAgent,
	}

	if !success {
		errorMessage := "Test failed action"
		audit.ErrorMessage = &errorMessage
	}

	if err := tf.DB.DB.Create(audit).Error; err != nil {
		return nil, fmt.Errorf("failed to create test audit log: %w", err)
	}

	return audit, nil
}
