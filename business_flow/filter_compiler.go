package businessflow

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/amirphl/gateway-campaign-broker/models"
	"github.com/amirphl/gateway-campaign-broker/utils"
)

// Field codes of the gateway filter language
const (
	FieldAge      = "AGE"
	FieldGender   = "GENDER"
	FieldRegion   = "REGION"
	FieldDistrict = "DISTRICT"
	FieldCarrier  = "CARRIER"
	FieldDevice   = "DEVICE"
	FieldInterest = "INTEREST"
	FieldBehavior = "BEHAVIOR"
	FieldGeofence = "GEOFENCE"
)

const (
	ageFloor   = 0
	ageCeiling = 100

	descEverything = "전체"
)

// genderCodes holds the binary gender code per contract version
var genderCodes = map[models.ContractVersion]map[string]string{
	models.ContractV1: {"male": "M", "female": "F"},
	models.ContractV2: {"male": "1", "female": "2"},
}

var genderLabels = map[string]string{"male": "남성", "female": "여성"}

// regionCodes maps region names and their aliases to administrative codes.
// 강원 and 전북 use the special self-governing province codes 51 and 52;
// older tables carried 42 and 45.
var regionCodes = map[string]string{
	"서울": "11", "서울시": "11", "서울특별시": "11", "seoul": "11",
	"부산": "26", "부산시": "26", "부산광역시": "26", "busan": "26",
	"대구": "27", "대구시": "27", "대구광역시": "27", "daegu": "27",
	"인천": "28", "인천시": "28", "인천광역시": "28", "incheon": "28",
	"광주": "29", "광주시": "29", "광주광역시": "29", "gwangju": "29",
	"대전": "30", "대전시": "30", "대전광역시": "30", "daejeon": "30",
	"울산": "31", "울산시": "31", "울산광역시": "31", "ulsan": "31",
	"세종": "36", "세종시": "36", "세종특별자치시": "36", "sejong": "36",
	"경기": "41", "경기도": "41", "gyeonggi": "41",
	"강원": "51", "강원도": "51", "강원특별자치도": "51", "gangwon": "51",
	"충북": "43", "충청북도": "43", "chungbuk": "43",
	"충남": "44", "충청남도": "44", "chungnam": "44",
	"전북": "52", "전라북도": "52", "전북특별자치도": "52", "jeonbuk": "52",
	"전남": "46", "전라남도": "46", "jeonnam": "46",
	"경북": "47", "경상북도": "47", "gyeongbuk": "47",
	"경남": "48", "경상남도": "48", "gyeongnam": "48",
	"제주": "50", "제주도": "50", "제주특별자치도": "50", "jeju": "50",
}

// facet is one list-valued part of a TargetingSpec
type facet func(*models.TargetingSpec) []string

// categoryBuckets unions fine-grained category facets into the gateway's broader buckets
var categoryBuckets = []struct {
	code   string
	meta   models.FilterMetaType
	label  string
	facets []facet
}{
	{
		code:  FieldInterest,
		meta:  models.FilterMetaTypeApp,
		label: "관심사",
		facets: []facet{
			func(s *models.TargetingSpec) []string { return s.ShoppingCategories },
			func(s *models.TargetingSpec) []string { return s.AppCategories },
		},
	},
	{
		code:  FieldBehavior,
		meta:  models.FilterMetaTypeBehavior,
		label: "행동",
		facets: []facet{
			func(s *models.TargetingSpec) []string { return s.CallCategories },
			func(s *models.TargetingSpec) []string { return s.LocationCategories },
			func(s *models.TargetingSpec) []string { return s.MobilityCategories },
		},
	},
}

// FilterCompiler turns a TargetingSpec into the gateway filter expression.
// Output is deterministic: conditions follow a fixed field order and code lists are sorted.
type FilterCompiler struct {
	genders map[string]string
}

// NewFilterCompiler creates a compiler for the given contract version
func NewFilterCompiler(version models.ContractVersion) (*FilterCompiler, error) {
	genders, ok := genderCodes[version]
	if !ok {
		return nil, fmt.Errorf("no gender table for gateway contract version %q", version)
	}
	return &FilterCompiler{genders: genders}, nil
}

// Compile builds the filter. Region names missing from the lookup table are left out of the
// filter and reported in UnresolvedRegions.
func (fc *FilterCompiler) Compile(spec models.TargetingSpec) (*models.CompiledFilter, error) {
	conditions := make([]models.FilterCondition, 0)
	var descs []string

	add := func(cond models.FilterCondition) {
		conditions = append(conditions, cond)
		descs = append(descs, cond.Desc)
	}

	if spec.AgeMin != nil || spec.AgeMax != nil {
		cond, err := ageCondition(spec.AgeMin, spec.AgeMax)
		if err != nil {
			return nil, err
		}
		add(cond)
	}

	if spec.Gender != nil {
		cond, ok, err := fc.genderCondition(*spec.Gender)
		if err != nil {
			return nil, err
		}
		if ok {
			add(cond)
		}
	}

	regions, names, unresolved := resolveRegions(spec.Regions)
	if len(regions) > 0 {
		add(codeCondition(FieldRegion, models.FilterMetaTypeLocation, regions, "지역: "+strings.Join(names, ", ")))
	}

	if codes := sortedCodes(spec.Districts); len(codes) > 0 {
		add(codeCondition(FieldDistrict, models.FilterMetaTypeLocation, codes, fmt.Sprintf("시군구 %d곳", len(codes))))
	}
	if codes := sortedCodes(spec.Carriers); len(codes) > 0 {
		add(codeCondition(FieldCarrier, models.FilterMetaTypeService, codes, "통신사: "+strings.Join(codes, ", ")))
	}
	if codes := sortedCodes(spec.Devices); len(codes) > 0 {
		add(codeCondition(FieldDevice, models.FilterMetaTypeService, codes, "단말: "+strings.Join(codes, ", ")))
	}

	for _, b := range categoryBuckets {
		var union []string
		for _, f := range b.facets {
			union = append(union, f(&spec)...)
		}
		if codes := sortedCodes(union); len(codes) > 0 {
			add(codeCondition(b.code, b.meta, codes, fmt.Sprintf("%s %d개", b.label, len(codes))))
		}
	}

	if codes := sortedCodes(spec.GeofenceIDs); len(codes) > 0 {
		add(codeCondition(FieldGeofence, models.FilterMetaTypeLocation, codes, fmt.Sprintf("지오펜스 %d곳", len(codes))))
	}

	description := descEverything
	if len(descs) > 0 {
		description = strings.Join(descs, " / ")
	}

	return &models.CompiledFilter{
		Filter:            models.FilterExpression{And: conditions},
		Description:       description,
		UnresolvedRegions: unresolved,
	}, nil
}

func ageCondition(minAge, maxAge *int) (models.FilterCondition, error) {
	lo, hi := ageFloor, ageCeiling
	if minAge != nil {
		lo = *minAge
	}
	if maxAge != nil {
		hi = *maxAge
	}
	if lo < ageFloor || hi > ageCeiling {
		return models.FilterCondition{}, newValidationError("targeting.age", "age must be within %d-%d", ageFloor, ageCeiling)
	}
	if lo > hi {
		return models.FilterCondition{}, newValidationError("targeting.age", "age_min %d is greater than age_max %d", lo, hi)
	}

	data, _ := json.Marshal(models.NumberRange{Min: lo, Max: hi})
	return models.FilterCondition{
		Data:     data,
		DataType: models.FilterDataTypeNumberRange,
		MetaType: models.FilterMetaTypeService,
		Code:     FieldAge,
		Desc:     fmt.Sprintf("%d~%d세", lo, hi),
	}, nil
}

func (fc *FilterCompiler) genderCondition(gender string) (models.FilterCondition, bool, error) {
	g := strings.ToLower(strings.TrimSpace(gender))
	if g == "" || g == "all" {
		return models.FilterCondition{}, false, nil
	}
	code, ok := fc.genders[g]
	if !ok {
		return models.FilterCondition{}, false, newValidationError("targeting.gender", "unsupported gender %q", gender)
	}
	return codeCondition(FieldGender, models.FilterMetaTypeService, []string{code}, genderLabels[g]), true, nil
}

// resolveRegions returns sorted unique codes, the display names behind them and the unresolved names
func resolveRegions(regions []string) (codes, names, unresolved []string) {
	byCode := make(map[string]string)
	for _, name := range utils.NormalizeCodes(regions) {
		code, ok := regionCodes[strings.ToLower(name)]
		if !ok {
			unresolved = append(unresolved, name)
			continue
		}
		if _, seen := byCode[code]; !seen {
			byCode[code] = name
			codes = append(codes, code)
		}
	}
	slices.Sort(codes)
	for _, code := range codes {
		names = append(names, byCode[code])
	}
	return codes, names, unresolved
}

func sortedCodes(values []string) []string {
	codes := utils.NormalizeCodes(values)
	slices.Sort(codes)
	return codes
}

func codeCondition(field string, meta models.FilterMetaType, codes []string, desc string) models.FilterCondition {
	data, _ := json.Marshal(codes)
	return models.FilterCondition{
		Data:     data,
		DataType: models.FilterDataTypeCode,
		MetaType: meta,
		Code:     field,
		Desc:     desc,
	}
}
