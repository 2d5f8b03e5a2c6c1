package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// TargetingSpec is the audience definition entered locally for a campaign
type TargetingSpec struct {
	Gender *string `json:"gender,omitempty"`
	AgeMin *int    `json:"age_min,omitempty"`
	AgeMax *int    `json:"age_max,omitempty"`

	Regions   []string `json:"regions,omitempty"`
	Districts []string `json:"districts,omitempty"`
	Carriers  []string `json:"carriers,omitempty"`
	Devices   []string `json:"devices,omitempty"`

	// Category buckets
	ShoppingCategories []string `json:"shopping_categories,omitempty"`
	AppCategories      []string `json:"app_categories,omitempty"`
	CallCategories     []string `json:"call_categories,omitempty"`
	LocationCategories []string `json:"location_categories,omitempty"`
	MobilityCategories []string `json:"mobility_categories,omitempty"`

	GeofenceIDs []string `json:"geofence_ids,omitempty"`
}

// Value implements the driver.Valuer interface for TargetingSpec
func (s TargetingSpec) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface for TargetingSpec
func (s *TargetingSpec) Scan(value any) error {
	if value == nil {
		*s = TargetingSpec{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into TargetingSpec", value)
	}

	return json.Unmarshal(bytes, s)
}

// FilterDataType is the value shape of a filter condition
type FilterDataType string

const (
	FilterDataTypeNumberRange FilterDataType = "NUMBER_RANGE"
	FilterDataTypeCode        FilterDataType = "CODE"
	FilterDataTypeBoolean     FilterDataType = "BOOLEAN"
)

// FilterMetaType groups filter conditions by the gateway dataset they query
type FilterMetaType string

const (
	FilterMetaTypeService  FilterMetaType = "SVC"
	FilterMetaTypeLocation FilterMetaType = "LOC"
	FilterMetaTypeApp      FilterMetaType = "APP"
	FilterMetaTypeBehavior FilterMetaType = "BHV"
)

// FilterCondition is one clause of a gateway filter expression
type FilterCondition struct {
	Data     json.RawMessage `json:"data"`
	DataType FilterDataType  `json:"dataType"`
	MetaType FilterMetaType  `json:"metaType"`
	Code     string          `json:"code"`
	Desc     string          `json:"desc"`
	Not      bool            `json:"not"`
}

// NumberRange is the data of a NUMBER_RANGE condition
type NumberRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// FilterExpression is the conjunction of conditions sent to the gateway
type FilterExpression struct {
	And []FilterCondition `json:"$and"`
}

// MarshalJSON always emits an array for $and, never null
func (e FilterExpression) MarshalJSON() ([]byte, error) {
	type alias FilterExpression
	a := alias(e)
	if a.And == nil {
		a.And = []FilterCondition{}
	}
	return json.Marshal(a)
}

// CompiledFilter is a compiled TargetingSpec ready for registration
type CompiledFilter struct {
	Filter            FilterExpression `json:"filter"`
	Description       string           `json:"description"`
	UnresolvedRegions []string         `json:"unresolved_regions,omitempty"`
}

// Value implements the driver.Valuer interface for CompiledFilter
func (f CompiledFilter) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan implements the sql.Scanner interface for CompiledFilter
func (f *CompiledFilter) Scan(value any) error {
	if value == nil {
		*f = CompiledFilter{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into CompiledFilter", value)
	}

	return json.Unmarshal(bytes, f)
}
