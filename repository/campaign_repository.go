package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/gateway-campaign-broker/models"
	"github.com/amirphl/gateway-campaign-broker/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CampaignRepositoryImpl implements the CampaignRepository interface
type CampaignRepositoryImpl struct {
	*BaseRepository[models.Campaign, models.CampaignFilter]
}

// NewCampaignRepository creates a new campaign repository
func NewCampaignRepository(db *gorm.DB) CampaignRepository {
	return &CampaignRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Campaign, models.CampaignFilter](db),
	}
}

// ByUUID retrieves a campaign by UUID
func (r *CampaignRepositoryImpl) ByUUID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	return r.first(ctx, models.CampaignFilter{UUID: &id})
}

// ByRemoteID retrieves a campaign by its gateway identifier
func (r *CampaignRepositoryImpl) ByRemoteID(ctx context.Context, remoteID string) (*models.Campaign, error) {
	if remoteID == "" {
		return nil, nil
	}
	return r.first(ctx, models.CampaignFilter{RemoteID: &remoteID})
}

func (r *CampaignRepositoryImpl) first(ctx context.Context, filter models.CampaignFilter) (*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaign models.Campaign
	err := r.applyFilter(db, filter).First(&campaign).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &campaign, nil
}

// Update writes every column of the campaign guarded by its version.
// A stale version yields ErrCampaignConflict and leaves the row untouched.
func (r *CampaignRepositoryImpl) Update(ctx context.Context, campaign *models.Campaign) (err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				err = db.Commit().Error
			}
		}()
	}

	expected := campaign.Version
	now := utils.UTCNow()

	next := *campaign
	next.Version = expected + 1
	next.UpdatedAt = &now

	result := db.Model(&models.Campaign{}).
		Where("id = ? AND version = ?", campaign.ID, expected).
		Select("*").
		Omit("id", "uuid", "created_at", "deleted_at").
		Updates(&next)
	if result.Error != nil {
		return fmt.Errorf("failed to update campaign %d: %w", campaign.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCampaignConflict
	}

	campaign.Version = next.Version
	campaign.UpdatedAt = next.UpdatedAt
	return nil
}

// Delete soft-deletes a campaign
func (r *CampaignRepositoryImpl) Delete(ctx context.Context, id uint) (err error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				err = db.Commit().Error
			}
		}()
	}

	err = db.Delete(&models.Campaign{}, id).Error
	if err != nil {
		return fmt.Errorf("failed to delete campaign %d: %w", id, err)
	}

	return nil
}

// ByFilter retrieves campaigns based on filter criteria
func (r *CampaignRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignFilter, orderBy string, limit, offset int) ([]*models.Campaign, error) {
	db := r.getDB(ctx)

	var campaigns []*models.Campaign
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	err := query.Find(&campaigns).Error
	if err != nil {
		return nil, err
	}

	return campaigns, nil
}

// Count returns the number of campaigns matching the filter
func (r *CampaignRepositoryImpl) Count(ctx context.Context, filter models.CampaignFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	err := r.applyFilter(db.Model(&models.Campaign{}), filter).Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *CampaignRepositoryImpl) applyFilter(db *gorm.DB, filter models.CampaignFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.RemoteID != nil {
		db = db.Where("remote_id = ?", *filter.RemoteID)
	}
	if filter.StatusCode != nil {
		db = db.Where("status_code = ?", *filter.StatusCode)
	}
	if filter.Environment != nil {
		db = db.Where("environment = ?", *filter.Environment)
	}
	if filter.Uncertain != nil {
		db = db.Where("registration_uncertain = ?", *filter.Uncertain)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
