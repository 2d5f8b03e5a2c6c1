package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/gateway-campaign-broker/models"
	"github.com/amirphl/gateway-campaign-broker/repository"
	testutil "github.com/amirphl/gateway-campaign-broker/testing"
	"github.com/amirphl/gateway-campaign-broker/utils"
)

// setupDB returns a migrated throwaway database or skips when PostgreSQL is unreachable
func setupDB(t *testing.T) *testutil.TestDB {
	t.Helper()
	db, err := testutil.SetupTestDB()
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
	}
	t.Cleanup(func() { _ = db.TeardownTestDB() })
	return db
}

func TestCampaignRepository_SaveAndLookup(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewCampaignRepository(db.DB)
	ctx := context.Background()

	campaign := &models.Campaign{
		Title:   "Spring",
		Message: "Sale starts today",
		Targeting: models.TargetingSpec{
			Regions: []string{"서울", "부산"},
		},
		UnresolvedRegions: []string{"강원"},
	}
	campaign.SetStatusCode(models.StatusCodeDraft)
	require.NoError(t, repo.Save(ctx, campaign))
	require.NotZero(t, campaign.ID)
	assert.NotEqual(t, uuid.Nil, campaign.UUID)
	assert.Equal(t, uint(1), campaign.Version)

	byID, err := repo.ByID(ctx, campaign.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, campaign.UUID, byID.UUID)
	assert.Equal(t, []string{"서울", "부산"}, byID.Targeting.Regions)
	assert.Equal(t, []string{"강원"}, []string(byID.UnresolvedRegions))
	assert.Equal(t, models.CampaignStatusDraft, byID.Status)

	byUUID, err := repo.ByUUID(ctx, campaign.UUID)
	require.NoError(t, err)
	require.NotNil(t, byUUID)
	assert.Equal(t, campaign.ID, byUUID.ID)

	missing, err := repo.ByUUID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	missing, err = repo.ByID(ctx, campaign.ID+100)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCampaignRepository_ByRemoteID(t *testing.T) {
	db := setupDB(t)
	fixtures := testutil.NewTestFixtures(db)
	repo := repository.NewCampaignRepository(db.DB)
	ctx := context.Background()

	registered, err := fixtures.CreateRegisteredCampaign("R100", models.StatusCodeApprovalRequested)
	require.NoError(t, err)
	_, err = fixtures.CreateTestCampaign()
	require.NoError(t, err)

	found, err := repo.ByRemoteID(ctx, "R100")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, registered.ID, found.ID)
	assert.Equal(t, models.StatusCodeApprovalRequested, found.StatusCode)

	notFound, err := repo.ByRemoteID(ctx, "R999")
	require.NoError(t, err)
	assert.Nil(t, notFound)

	empty, err := repo.ByRemoteID(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestCampaignRepository_UpdateIsOptimistic(t *testing.T) {
	db := setupDB(t)
	fixtures := testutil.NewTestFixtures(db)
	repo := repository.NewCampaignRepository(db.DB)
	ctx := context.Background()

	seed, err := fixtures.CreateTestCampaign()
	require.NoError(t, err)

	first, err := repo.ByID(ctx, seed.ID)
	require.NoError(t, err)
	second, err := repo.ByID(ctx, seed.ID)
	require.NoError(t, err)

	first.RemoteID = utils.ToPtr("R1")
	first.SetStatusCode(models.StatusCodeTempRegistered)
	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, seed.Version+1, first.Version)
	assert.NotNil(t, first.UpdatedAt)

	second.Title = "stale writer"
	err = repo.Update(ctx, second)
	assert.True(t, errors.Is(err, repository.ErrCampaignConflict))

	stored, err := repo.ByID(ctx, seed.ID)
	require.NoError(t, err)
	assert.Equal(t, "R1", utils.DerefString(stored.RemoteID))
	assert.Equal(t, seed.Title, stored.Title)
	assert.Equal(t, models.CampaignStatusTempRegistered, stored.Status)
	assert.Equal(t, first.Version, stored.Version)
}

func TestCampaignRepository_SoftDelete(t *testing.T) {
	db := setupDB(t)
	fixtures := testutil.NewTestFixtures(db)
	repo := repository.NewCampaignRepository(db.DB)
	ctx := context.Background()

	campaign, err := fixtures.CreateTestCampaign()
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, campaign.ID))

	gone, err := repo.ByUUID(ctx, campaign.UUID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	var count int64
	require.NoError(t, db.DB.Unscoped().Model(&models.Campaign{}).Where("id = ?", campaign.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCampaignRepository_FilterAndCount(t *testing.T) {
	db := setupDB(t)
	fixtures := testutil.NewTestFixtures(db)
	repo := repository.NewCampaignRepository(db.DB)
	ctx := context.Background()

	for _, remoteID := range []string{"R1", "R2"} {
		_, err := fixtures.CreateRegisteredCampaign(remoteID, models.StatusCodeRunning)
		require.NoError(t, err)
	}
	_, err := fixtures.CreateTestCampaign()
	require.NoError(t, err)

	running := models.StatusCodeRunning
	rows, err := repo.ByFilter(ctx, models.CampaignFilter{StatusCode: &running}, "id ASC", 10, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "R1", utils.DerefString(rows[0].RemoteID))

	count, err := repo.Count(ctx, models.CampaignFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestWithTransaction_RollsBackOnError(t *testing.T) {
	db := setupDB(t)
	repo := repository.NewCampaignRepository(db.DB)
	ctx := context.Background()

	boom := errors.New("boom")
	err := repository.WithTransaction(ctx, db.DB, func(txCtx context.Context) error {
		campaign := &models.Campaign{Title: "tx", Message: "rolled back"}
		campaign.SetStatusCode(models.StatusCodeDraft)
		if err := repo.Save(txCtx, campaign); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	count, err := repo.Count(ctx, models.CampaignFilter{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestAuditLogRepository_ListByCampaign(t *testing.T) {
	db := setupDB(t)
	fixtures := testutil.NewTestFixtures(db)
	repo := repository.NewAuditLogRepository(db.DB)
	ctx := context.Background()

	campaign, err := fixtures.CreateTestCampaign()
	require.NoError(t, err)

	_, err = fixtures.CreateTestAuditLog(&campaign.ID, models.AuditActionCampaignCreated, true)
	require.NoError(t, err)
	_, err = fixtures.CreateTestAuditLog(&campaign.ID, models.AuditActionCampaignRegistrationFailed, false)
	require.NoError(t, err)
	_, err = fixtures.CreateTestAuditLog(nil, models.AuditActionCallbackIgnored, true)
	require.NoError(t, err)

	logs, err := repo.ListByCampaign(ctx, campaign.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 2)

	failed, err := repo.ListFailedActions(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.True(t, failed[0].IsFailed())
	assert.Equal(t, models.AuditActionCampaignRegistrationFailed, failed[0].Action)

	count, err := repo.Count(ctx, models.AuditLogFilter{CampaignID: &campaign.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
