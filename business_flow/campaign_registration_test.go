package businessflow

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/gateway-campaign-broker/app/services"
	"github.com/amirphl/gateway-campaign-broker/models"
)

// deadlineRepo fails every read and write once its context is done, like a real database would
type deadlineRepo struct {
	*fakeCampaignRepo
}

func (r *deadlineRepo) ByID(ctx context.Context, id uint) (*models.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.fakeCampaignRepo.ByID(ctx, id)
}

func (r *deadlineRepo) Update(ctx context.Context, c *models.Campaign) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.fakeCampaignRepo.Update(ctx, c)
}

func (r *deadlineRepo) Delete(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.fakeCampaignRepo.Delete(ctx, id)
}

func TestCampaignFlow_RegisterFailureClassification(t *testing.T) {
	op := services.OpCreateCampaign
	tests := []struct {
		name      string
		err       error
		uncertain bool
	}{
		{"connection dropped after send", &services.GatewayTransportError{Op: op, Err: io.ErrUnexpectedEOF}, true},
		{"bad gateway from proxy", &services.GatewayTransportError{Op: op, StatusCode: 502}, true},
		{"service unavailable", &services.GatewayTransportError{Op: op, StatusCode: 503}, true},
		{"caller canceled", &services.GatewayTransportError{Op: op, Err: context.Canceled}, true},
		{"timeout", &services.GatewayTransportError{Op: op, Timeout: true, Err: context.DeadlineExceeded}, true},
		{"success without campaign id", &services.GatewayTransportError{Op: op, Err: errors.New("response carries no campaign id")}, true},
		{"invalid envelope on 200", &services.GatewayTransportError{Op: op, StatusCode: 200, Err: errors.New("invalid envelope")}, true},
		{"bad request", &services.GatewayTransportError{Op: op, StatusCode: 400}, false},
		{"unprocessable", &services.GatewayTransportError{Op: op, StatusCode: 422}, false},
		{"business rejection", &services.GatewayBusinessError{Op: op, Code: "E1203", Message: "sender number is not approved"}, false},
		{"credential missing", services.ErrGatewayCredentialMissing, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFlowFixture(t)
			draft := fx.draft(t)
			fx.gateway.createErr = tt.err

			_, err := fx.flow.Register(context.Background(), draft.UUID, nil, nil)
			require.Error(t, err)
			fx.assertReleased(t, draft.ID)

			stored := fx.repo.stored(t, draft.ID)
			assert.Equal(t, tt.uncertain, stored.RegistrationUncertain)
			assert.Equal(t, models.StatusCodeDraft, stored.StatusCode)
			assert.Nil(t, stored.RemoteID)
			assert.NotNil(t, stored.LastError)

			_, err = fx.flow.Register(context.Background(), draft.UUID, nil, nil)
			if tt.uncertain {
				assert.True(t, IsPreconditionFailed(err))
				assert.Equal(t, 1, fx.gateway.callCount("create"))
				return
			}
			assert.False(t, IsPreconditionFailed(err))
			assert.Equal(t, 2, fx.gateway.callCount("create"))
		})
	}
}

func TestCampaignFlow_RegisterMarksUncertainBeforeCalling(t *testing.T) {
	fx := newFlowFixture(t)
	draft := fx.draft(t)
	fx.gateway.createErr = &services.GatewayBusinessError{Op: services.OpCreateCampaign, Code: "E1203", Message: "rejected"}

	var flaggedDuringCall bool
	fx.gateway.during = func() {
		flaggedDuringCall = fx.repo.stored(t, draft.ID).RegistrationUncertain
		// the database goes away before the answer can be recorded
		fx.repo.mu.Lock()
		fx.repo.updateErr = errors.New("connection reset by peer")
		fx.repo.mu.Unlock()
	}

	_, err := fx.flow.Register(context.Background(), draft.UUID, nil, nil)
	require.Error(t, err)
	assert.True(t, flaggedDuringCall)
	fx.assertReleased(t, draft.ID)

	stored := fx.repo.stored(t, draft.ID)
	assert.True(t, stored.RegistrationUncertain)

	fx.repo.mu.Lock()
	fx.repo.updateErr = nil
	fx.repo.mu.Unlock()
	_, err = fx.flow.Register(context.Background(), draft.UUID, nil, nil)
	assert.True(t, IsPreconditionFailed(err))
	assert.Equal(t, 1, fx.gateway.callCount("create"))
}

func TestCampaignFlow_RegisterOutcomeOutlivesCallerDeadline(t *testing.T) {
	t.Run("timeout is recorded as uncertain", func(t *testing.T) {
		fx := newFlowFixture(t)
		draft := fx.draft(t)
		fx.flow.campaignRepo = &deadlineRepo{fakeCampaignRepo: fx.repo}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		fx.gateway.createErr = &services.GatewayTransportError{Op: services.OpCreateCampaign, Timeout: true, Err: context.DeadlineExceeded}
		fx.gateway.during = func() { <-ctx.Done() }

		_, err := fx.flow.Register(ctx, draft.UUID, nil, nil)
		require.Error(t, err)
		fx.assertReleased(t, draft.ID)

		stored := fx.repo.stored(t, draft.ID)
		assert.True(t, stored.RegistrationUncertain)
		require.NotNil(t, stored.LastError)
		assert.Contains(t, *stored.LastError, "timed out")
		assert.Contains(t, fx.audit.actions(), models.AuditActionCampaignRegistrationFailed)

		fx.gateway.during = nil
		_, err = fx.flow.Register(context.Background(), draft.UUID, nil, nil)
		assert.True(t, IsPreconditionFailed(err))
		assert.Equal(t, 1, fx.gateway.callCount("create"))
	})

	t.Run("late success keeps the gateway id", func(t *testing.T) {
		fx := newFlowFixture(t)
		draft := fx.draft(t)
		fx.flow.campaignRepo = &deadlineRepo{fakeCampaignRepo: fx.repo}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		fx.gateway.createResult = &services.GatewayCampaign{RemoteID: "R9"}
		fx.gateway.during = func() { <-ctx.Done() }

		resp, err := fx.flow.Register(ctx, draft.UUID, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "R9", *resp.RemoteID)

		stored := fx.repo.stored(t, draft.ID)
		require.NotNil(t, stored.RemoteID)
		assert.Equal(t, "R9", *stored.RemoteID)
		assert.False(t, stored.RegistrationUncertain)
		assert.Equal(t, models.StatusCodeTempRegistered, stored.StatusCode)
		assert.Contains(t, fx.audit.actions(), models.AuditActionCampaignRegistered)
	})

	t.Run("approval result is recorded", func(t *testing.T) {
		fx := newFlowFixture(t)
		c := fx.registered(t, models.StatusCodeTempRegistered)
		fx.flow.campaignRepo = &deadlineRepo{fakeCampaignRepo: fx.repo}

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		fx.gateway.during = func() { <-ctx.Done() }

		_, err := fx.flow.RequestApproval(ctx, c.UUID.String(), nil)
		require.NoError(t, err)
		assert.Equal(t, models.StatusCodeApprovalRequested, fx.repo.stored(t, c.ID).StatusCode)
	})
}

func TestCampaignFlow_DeleteRefusesUncertainRegistration(t *testing.T) {
	fx := newFlowFixture(t)
	draft := fx.draft(t)
	fx.gateway.createErr = &services.GatewayTransportError{Op: services.OpCreateCampaign, Timeout: true, Err: context.DeadlineExceeded}
	_, err := fx.flow.Register(context.Background(), draft.UUID, nil, nil)
	require.Error(t, err)

	err = fx.flow.Delete(context.Background(), draft.UUID, nil)
	assert.True(t, IsPreconditionFailed(err))
	assert.Len(t, fx.repo.rows, 1)
	assert.Zero(t, fx.gateway.callCount("delete"))
	assert.NotContains(t, fx.audit.actions(), models.AuditActionCampaignDeleted)

	// once reconciled as absent the draft may go
	resp, err := fx.flow.ReconcileRegistration(context.Background(), draft.UUID, nil)
	require.NoError(t, err)
	assert.False(t, resp.RegistrationUncertain)
	require.NoError(t, fx.flow.Delete(context.Background(), draft.UUID, nil))
	assert.Empty(t, fx.repo.rows)
}
