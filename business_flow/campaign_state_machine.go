package businessflow

import (
	"github.com/amirphl/gateway-campaign-broker/models"
)

// CampaignStateMachine owns the legal moves of a campaign's status code.
// It never performs I/O.
type CampaignStateMachine struct {
	table *models.StatusTable
}

// NewCampaignStateMachine creates a state machine reading wire codes of the given contract version
func NewCampaignStateMachine(version models.ContractVersion) (*CampaignStateMachine, error) {
	table, err := models.StatusTableFor(version)
	if err != nil {
		return nil, err
	}
	return &CampaignStateMachine{table: table}, nil
}

// Translate maps a wire code to the local vocabulary
func (m *CampaignStateMachine) Translate(raw int) models.StatusCode {
	return m.table.FromWire(raw)
}

// CanEditTargeting allows targeting changes only before registration
func (m *CampaignStateMachine) CanEditTargeting(c *models.Campaign) error {
	if !c.IsEditable() {
		return preconditionFailed("edit targeting of", c, "targeting is fixed once the campaign is registered")
	}
	return nil
}

// CanRegister allows registration of an unregistered draft whose previous attempt has a known outcome
func (m *CampaignStateMachine) CanRegister(c *models.Campaign) error {
	switch {
	case c.IsRegistered():
		return preconditionFailed("register", c, "campaign is already registered")
	case c.StatusCode != models.StatusCodeDraft:
		return preconditionFailed("register", c, "only drafts can be registered")
	case c.RegistrationUncertain:
		return preconditionFailed("register", c, "outcome of the previous registration is unknown; reconcile it first")
	}
	return nil
}

// CanReconcile allows a reconciling lookup for a campaign without a gateway identifier
func (m *CampaignStateMachine) CanReconcile(c *models.Campaign) error {
	if c.IsRegistered() {
		return preconditionFailed("reconcile", c, "campaign is already registered")
	}
	return nil
}

// ApplyRegistered records a successful registration. The gateway id is never overwritten.
func (m *CampaignStateMachine) ApplyRegistered(c *models.Campaign, remoteID string, raw int) error {
	if c.IsRegistered() && *c.RemoteID != remoteID {
		return preconditionFailed("register", c, "campaign already carries a different gateway id")
	}
	if remoteID == "" {
		return preconditionFailed("register", c, "gateway returned no campaign id")
	}

	code := models.StatusCodeTempRegistered
	if translated := m.Translate(raw); translated != models.StatusCodeUnknown {
		code = translated
	}

	c.RemoteID = &remoteID
	c.RemoteStatusCode = &raw
	c.SetStatusCode(code)
	c.RegistrationUncertain = false
	c.LastError = nil
	return nil
}

// CanRequestApproval requires a registered, non-terminal campaign
func (m *CampaignStateMachine) CanRequestApproval(c *models.Campaign) error {
	return m.requireLive("request approval for", c)
}

// ApplyApprovalRequested moves the campaign to approval_requested
func (m *CampaignStateMachine) ApplyApprovalRequested(c *models.Campaign) error {
	if err := m.CanRequestApproval(c); err != nil {
		return err
	}
	if raw, ok := m.table.ToWire(models.StatusCodeApprovalRequested); ok {
		c.RemoteStatusCode = &raw
	}
	c.SetStatusCode(models.StatusCodeApprovalRequested)
	c.LastError = nil
	return nil
}

// CanTestSend requires a registered, non-terminal campaign
func (m *CampaignStateMachine) CanTestSend(c *models.Campaign) error {
	return m.requireLive("test-send", c)
}

// CanRefresh requires a gateway identifier
func (m *CampaignStateMachine) CanRefresh(c *models.Campaign) error {
	if !c.IsRegistered() {
		return preconditionFailed("refresh", c, "campaign is not registered at the gateway")
	}
	return nil
}

// CanDelete allows deletion before registration or while temp_registered. A draft whose
// registration outcome is unknown may exist at the gateway and is kept until reconciled.
func (m *CampaignStateMachine) CanDelete(c *models.Campaign) error {
	switch {
	case c.RegistrationUncertain:
		return preconditionFailed("delete", c, "outcome of the previous registration is unknown; reconcile it first")
	case !c.IsDeletable():
		return preconditionFailed("delete", c, "cancel the campaign at the gateway first")
	}
	return nil
}

func (m *CampaignStateMachine) requireLive(op string, c *models.Campaign) error {
	switch {
	case !c.IsRegistered():
		return preconditionFailed(op, c, "campaign is not registered at the gateway")
	case c.IsTerminal():
		return preconditionFailed(op, c, "campaign is in a terminal state")
	}
	return nil
}

// RemoteTransition is the result of applying a gateway-reported status
type RemoteTransition struct {
	From    models.StatusCode
	To      models.StatusCode
	Raw     int
	Ignored bool // campaign was already terminal
	Changed bool
}

// ApplyRemote applies a gateway-reported wire code. The gateway is authoritative for any
// non-terminal campaign, backward moves included; terminal campaigns are never changed.
func (m *CampaignStateMachine) ApplyRemote(c *models.Campaign, raw int) RemoteTransition {
	t := RemoteTransition{From: c.StatusCode, To: c.StatusCode, Raw: raw}
	if c.IsTerminal() {
		t.Ignored = true
		return t
	}

	t.To = m.Translate(raw)
	rawChanged := c.RemoteStatusCode == nil || *c.RemoteStatusCode != raw
	t.Changed = t.To != t.From || rawChanged

	c.SetStatusCode(t.To)
	c.RemoteStatusCode = &raw
	return t
}
