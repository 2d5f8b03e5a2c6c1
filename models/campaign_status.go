package models

import (
	"database/sql/driver"
	"fmt"
)

// StatusCode is the numeric campaign status in the current gateway vocabulary.
// It is the authoritative field; CampaignStatus is derived from it.
type StatusCode int

const (
	StatusCodeUnknown           StatusCode = -1
	StatusCodeTempRegistered    StatusCode = 0
	StatusCodeDraft             StatusCode = 5
	StatusCodeApprovalRequested StatusCode = 10
	StatusCodeApproved          StatusCode = 11
	StatusCodeRejected          StatusCode = 17
	StatusCodeSendReady         StatusCode = 20
	StatusCodeCancelled         StatusCode = 25
	StatusCodeRunning           StatusCode = 30
	StatusCodeStopped           StatusCode = 35
	StatusCodeCompleted         StatusCode = 40
)

// CampaignStatus is the semantic label of a StatusCode
type CampaignStatus string

const (
	CampaignStatusUnknown           CampaignStatus = "unknown"
	CampaignStatusTempRegistered    CampaignStatus = "temp_registered"
	CampaignStatusDraft             CampaignStatus = "draft"
	CampaignStatusApprovalRequested CampaignStatus = "approval_requested"
	CampaignStatusApproved          CampaignStatus = "approved"
	CampaignStatusRejected          CampaignStatus = "rejected"
	CampaignStatusSendReady         CampaignStatus = "send_ready"
	CampaignStatusCancelled         CampaignStatus = "cancelled"
	CampaignStatusRunning           CampaignStatus = "running"
	CampaignStatusStopped           CampaignStatus = "stopped"
	CampaignStatusCompleted         CampaignStatus = "completed"
)

var statusLabels = map[StatusCode]CampaignStatus{
	StatusCodeTempRegistered:    CampaignStatusTempRegistered,
	StatusCodeDraft:             CampaignStatusDraft,
	StatusCodeApprovalRequested: CampaignStatusApprovalRequested,
	StatusCodeApproved:          CampaignStatusApproved,
	StatusCodeRejected:          CampaignStatusRejected,
	StatusCodeSendReady:         CampaignStatusSendReady,
	StatusCodeCancelled:         CampaignStatusCancelled,
	StatusCodeRunning:           CampaignStatusRunning,
	StatusCodeStopped:           CampaignStatusStopped,
	StatusCodeCompleted:         CampaignStatusCompleted,
}

// Status returns the label for the code; codes outside the vocabulary are unknown
func (c StatusCode) Status() CampaignStatus {
	if s, ok := statusLabels[c]; ok {
		return s
	}
	return CampaignStatusUnknown
}

// Known reports whether the code is part of the vocabulary
func (c StatusCode) Known() bool {
	_, ok := statusLabels[c]
	return ok
}

// IsTerminal reports whether no further transition is accepted from c
func (c StatusCode) IsTerminal() bool {
	switch c {
	case StatusCodeCancelled, StatusCodeStopped, StatusCodeCompleted:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status
func (s CampaignStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s CampaignStatus) Valid() bool {
	if s == CampaignStatusUnknown {
		return true
	}
	for _, label := range statusLabels {
		if label == s {
			return true
		}
	}
	return false
}

// Scan implements the sql.Scanner interface for CampaignStatus
func (s *CampaignStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = CampaignStatus(v)
	case []byte:
		*s = CampaignStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignStatus
func (s CampaignStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid CampaignStatus: %s", s)
	}
	return string(s), nil
}

// ContractVersion names a revision of the gateway wire contract
type ContractVersion string

const (
	ContractV1 ContractVersion = "v1"
	ContractV2 ContractVersion = "v2"
)

// StatusTable translates wire status codes of one contract version into StatusCode
type StatusTable struct {
	version ContractVersion
	wire    map[int]StatusCode
}

var statusTables = map[ContractVersion]map[int]StatusCode{
	// v1 is the legacy numbering still sent by older gateway deployments
	ContractV1: {
		0: StatusCodeTempRegistered,
		1: StatusCodeDraft,
		2: StatusCodeApprovalRequested,
		3: StatusCodeApproved,
		4: StatusCodeRejected,
		5: StatusCodeSendReady,
		6: StatusCodeRunning,
		7: StatusCodeCompleted,
		8: StatusCodeStopped,
		9: StatusCodeCancelled,
	},
	ContractV2: {
		0:  StatusCodeTempRegistered,
		5:  StatusCodeDraft,
		10: StatusCodeApprovalRequested,
		11: StatusCodeApproved,
		17: StatusCodeRejected,
		20: StatusCodeSendReady,
		25: StatusCodeCancelled,
		30: StatusCodeRunning,
		35: StatusCodeStopped,
		40: StatusCodeCompleted,
	},
}

// StatusTableFor returns the status table of the given contract version
func StatusTableFor(version ContractVersion) (*StatusTable, error) {
	wire, ok := statusTables[version]
	if !ok {
		return nil, fmt.Errorf("unsupported gateway contract version: %q", version)
	}
	return &StatusTable{version: version, wire: wire}, nil
}

// Version returns the contract version of the table
func (t *StatusTable) Version() ContractVersion {
	return t.version
}

// FromWire maps a wire code to a StatusCode. Unrecognized codes map to StatusCodeUnknown.
func (t *StatusTable) FromWire(raw int) StatusCode {
	if code, ok := t.wire[raw]; ok {
		return code
	}
	return StatusCodeUnknown
}

// ToWire maps a StatusCode back to the wire code of the table's version
func (t *StatusTable) ToWire(code StatusCode) (int, bool) {
	for raw, c := range t.wire {
		if c == code {
			return raw, true
		}
	}
	return 0, false
}
