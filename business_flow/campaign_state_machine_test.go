package businessflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/gateway-campaign-broker/models"
	"github.com/amirphl/gateway-campaign-broker/utils"
)

func newStateMachine(t *testing.T, version models.ContractVersion) *CampaignStateMachine {
	t.Helper()
	m, err := NewCampaignStateMachine(version)
	require.NoError(t, err)
	return m
}

func campaignIn(code models.StatusCode, remoteID string) *models.Campaign {
	c := &models.Campaign{}
	c.SetStatusCode(code)
	if remoteID != "" {
		c.RemoteID = utils.ToPtr(remoteID)
	}
	return c
}

func TestStateMachine_Guards(t *testing.T) {
	m := newStateMachine(t, models.ContractV2)

	draft := campaignIn(models.StatusCodeDraft, "")
	temp := campaignIn(models.StatusCodeTempRegistered, "R1")
	approved := campaignIn(models.StatusCodeApproved, "R1")
	completed := campaignIn(models.StatusCodeCompleted, "R1")
	uncertain := campaignIn(models.StatusCodeDraft, "")
	uncertain.RegistrationUncertain = true

	tests := []struct {
		name  string
		check func(*models.Campaign) error
		c     *models.Campaign
		ok    bool
	}{
		{"edit draft", m.CanEditTargeting, draft, true},
		{"edit registered", m.CanEditTargeting, temp, false},
		{"register draft", m.CanRegister, draft, true},
		{"register registered", m.CanRegister, temp, false},
		{"register uncertain", m.CanRegister, uncertain, false},
		{"reconcile uncertain", m.CanReconcile, uncertain, true},
		{"reconcile registered", m.CanReconcile, temp, false},
		{"approve draft", m.CanRequestApproval, draft, false},
		{"approve temp", m.CanRequestApproval, temp, true},
		{"approve completed", m.CanRequestApproval, completed, false},
		{"test send approved", m.CanTestSend, approved, true},
		{"test send completed", m.CanTestSend, completed, false},
		{"refresh draft", m.CanRefresh, draft, false},
		{"refresh completed", m.CanRefresh, completed, true},
		{"delete draft", m.CanDelete, draft, true},
		{"delete temp", m.CanDelete, temp, true},
		{"delete approved", m.CanDelete, approved, false},
		{"delete uncertain", m.CanDelete, uncertain, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.check(tt.c)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsPreconditionFailed(err))
			assert.Equal(t, KindStateConflict, KindOf(err))
		})
	}
}

func TestStateMachine_ApplyRegistered(t *testing.T) {
	m := newStateMachine(t, models.ContractV2)

	c := campaignIn(models.StatusCodeDraft, "")
	c.RegistrationUncertain = true
	c.LastError = utils.ToPtr("timeout")

	require.NoError(t, m.ApplyRegistered(c, "R1", 0))
	assert.Equal(t, "R1", *c.RemoteID)
	assert.Equal(t, models.StatusCodeTempRegistered, c.StatusCode)
	assert.Equal(t, models.CampaignStatusTempRegistered, c.Status)
	assert.False(t, c.RegistrationUncertain)
	assert.Nil(t, c.LastError)

	err := m.ApplyRegistered(c, "R2", 0)
	assert.True(t, IsPreconditionFailed(err))
	assert.Equal(t, "R1", *c.RemoteID)

	fresh := campaignIn(models.StatusCodeDraft, "")
	assert.Error(t, m.ApplyRegistered(fresh, "", 0))

	// unknown wire codes still register
	fresh = campaignIn(models.StatusCodeDraft, "")
	require.NoError(t, m.ApplyRegistered(fresh, "R3", 999))
	assert.Equal(t, models.StatusCodeTempRegistered, fresh.StatusCode)
	assert.Equal(t, 999, *fresh.RemoteStatusCode)
}

func TestStateMachine_ApplyRemote(t *testing.T) {
	m := newStateMachine(t, models.ContractV2)

	t.Run("backward move accepted", func(t *testing.T) {
		c := campaignIn(models.StatusCodeApproved, "R1")
		tr := m.ApplyRemote(c, 17)
		assert.False(t, tr.Ignored)
		assert.True(t, tr.Changed)
		assert.Equal(t, models.StatusCodeApproved, tr.From)
		assert.Equal(t, models.StatusCodeRejected, c.StatusCode)
	})

	t.Run("terminal is locked", func(t *testing.T) {
		for _, code := range []models.StatusCode{models.StatusCodeCancelled, models.StatusCodeStopped, models.StatusCodeCompleted} {
			c := campaignIn(code, "R1")
			tr := m.ApplyRemote(c, 30)
			assert.True(t, tr.Ignored)
			assert.Equal(t, code, c.StatusCode)
		}
	})

	t.Run("same code is unchanged", func(t *testing.T) {
		c := campaignIn(models.StatusCodeRunning, "R1")
		c.RemoteStatusCode = utils.ToPtr(30)
		tr := m.ApplyRemote(c, 30)
		assert.False(t, tr.Changed)
	})

	t.Run("unknown wire code", func(t *testing.T) {
		c := campaignIn(models.StatusCodeRunning, "R1")
		tr := m.ApplyRemote(c, 77)
		assert.True(t, tr.Changed)
		assert.Equal(t, models.StatusCodeUnknown, c.StatusCode)
		assert.Equal(t, 77, *c.RemoteStatusCode)
		assert.False(t, c.IsTerminal())
	})
}

func TestStateMachine_LegacyContract(t *testing.T) {
	m := newStateMachine(t, models.ContractV1)

	c := campaignIn(models.StatusCodeApprovalRequested, "R1")
	m.ApplyRemote(c, 7)
	assert.Equal(t, models.StatusCodeCompleted, c.StatusCode)
	assert.Equal(t, 7, *c.RemoteStatusCode)

	c = campaignIn(models.StatusCodeTempRegistered, "R1")
	require.NoError(t, m.ApplyApprovalRequested(c))
	assert.Equal(t, models.StatusCodeApprovalRequested, c.StatusCode)
	assert.Equal(t, 2, *c.RemoteStatusCode)
}
