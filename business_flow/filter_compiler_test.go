package businessflow

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirphl/gateway-campaign-broker/models"
	"github.com/amirphl/gateway-campaign-broker/utils"
)

func newCompiler(t *testing.T, version models.ContractVersion) *FilterCompiler {
	t.Helper()
	fc, err := NewFilterCompiler(version)
	require.NoError(t, err)
	return fc
}

func TestFilterCompiler_AgeGenderRegion(t *testing.T) {
	fc := newCompiler(t, models.ContractV2)

	out, err := fc.Compile(models.TargetingSpec{
		Gender:  utils.ToPtr("male"),
		AgeMin:  utils.ToPtr(25),
		AgeMax:  utils.ToPtr(34),
		Regions: []string{"서울"},
	})
	require.NoError(t, err)
	require.Len(t, out.Filter.And, 3)

	age, gender, region := out.Filter.And[0], out.Filter.And[1], out.Filter.And[2]
	assert.Equal(t, FieldAge, age.Code)
	assert.Equal(t, models.FilterDataTypeNumberRange, age.DataType)
	assert.JSONEq(t, `{"min":25,"max":34}`, string(age.Data))

	assert.Equal(t, FieldGender, gender.Code)
	assert.JSONEq(t, `["1"]`, string(gender.Data))

	assert.Equal(t, FieldRegion, region.Code)
	assert.Equal(t, models.FilterMetaTypeLocation, region.MetaType)
	assert.JSONEq(t, `["11"]`, string(region.Data))

	assert.Empty(t, out.UnresolvedRegions)
	assert.Equal(t, "25~34세 / 남성 / 지역: 서울", out.Description)
}

func TestFilterCompiler_EmptySpec(t *testing.T) {
	fc := newCompiler(t, models.ContractV2)

	out, err := fc.Compile(models.TargetingSpec{})
	require.NoError(t, err)

	raw, err := json.Marshal(out.Filter)
	require.NoError(t, err)
	assert.Equal(t, `{"$and":[]}`, string(raw))
	assert.Equal(t, "전체", out.Description)

	var zero models.FilterExpression
	raw, err = json.Marshal(zero)
	require.NoError(t, err)
	assert.Equal(t, `{"$and":[]}`, string(raw))
}

func TestFilterCompiler_Deterministic(t *testing.T) {
	fc := newCompiler(t, models.ContractV2)
	spec := models.TargetingSpec{
		Gender:             utils.ToPtr("female"),
		Regions:            []string{"부산", "서울특별시", "서울", "경기도"},
		Carriers:           []string{"SKT", "KT", "SKT"},
		ShoppingCategories: []string{"C3", "C1"},
		AppCategories:      []string{"C2", "C1"},
		CallCategories:     []string{"B2"},
		MobilityCategories: []string{"B1"},
	}

	first, err := fc.Compile(spec)
	require.NoError(t, err)
	second, err := fc.Compile(spec)
	require.NoError(t, err)

	a, err := json.Marshal(first.Filter)
	require.NoError(t, err)
	b, err := json.Marshal(second.Filter)
	require.NoError(t, err)
	if diff := cmp.Diff(string(a), string(b)); diff != "" {
		t.Fatalf("compiled filters differ (-first +second):\n%s", diff)
	}

	codes := make([]string, 0, len(first.Filter.And))
	for _, c := range first.Filter.And {
		codes = append(codes, c.Code)
	}
	assert.Equal(t, []string{FieldGender, FieldRegion, FieldCarrier, FieldInterest, FieldBehavior}, codes)
	assert.JSONEq(t, `["11","26","41"]`, string(first.Filter.And[1].Data))
	assert.JSONEq(t, `["KT","SKT"]`, string(first.Filter.And[2].Data))
	assert.JSONEq(t, `["C1","C2","C3"]`, string(first.Filter.And[3].Data))
	assert.JSONEq(t, `["B1","B2"]`, string(first.Filter.And[4].Data))
}

func TestFilterCompiler_UnresolvedRegions(t *testing.T) {
	fc := newCompiler(t, models.ContractV2)

	out, err := fc.Compile(models.TargetingSpec{Regions: []string{"강원", "Atlantis", "전북특별자치도"}})
	require.NoError(t, err)
	require.Len(t, out.Filter.And, 1)
	assert.JSONEq(t, `["51","52"]`, string(out.Filter.And[0].Data))
	assert.Equal(t, []string{"Atlantis"}, out.UnresolvedRegions)

	out, err = fc.Compile(models.TargetingSpec{Regions: []string{"Atlantis"}})
	require.NoError(t, err)
	assert.Empty(t, out.Filter.And)
	assert.Equal(t, []string{"Atlantis"}, out.UnresolvedRegions)
}

func TestFilterCompiler_GenderByContractVersion(t *testing.T) {
	tests := []struct {
		name    string
		version models.ContractVersion
		gender  string
		want    string
	}{
		{"v2 male", models.ContractV2, "male", `["1"]`},
		{"v2 female", models.ContractV2, "FEMALE", `["2"]`},
		{"v1 male", models.ContractV1, "male", `["M"]`},
		{"v1 female", models.ContractV1, "female", `["F"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := newCompiler(t, tt.version).Compile(models.TargetingSpec{Gender: utils.ToPtr(tt.gender)})
			require.NoError(t, err)
			require.Len(t, out.Filter.And, 1)
			assert.JSONEq(t, tt.want, string(out.Filter.And[0].Data))
		})
	}

	out, err := newCompiler(t, models.ContractV2).Compile(models.TargetingSpec{Gender: utils.ToPtr("all")})
	require.NoError(t, err)
	assert.Empty(t, out.Filter.And)
}

func TestFilterCompiler_ValidationErrors(t *testing.T) {
	fc := newCompiler(t, models.ContractV2)

	tests := []struct {
		name  string
		spec  models.TargetingSpec
		field string
	}{
		{"min above max", models.TargetingSpec{AgeMin: utils.ToPtr(40), AgeMax: utils.ToPtr(30)}, "targeting.age"},
		{"negative age", models.TargetingSpec{AgeMin: utils.ToPtr(-1)}, "targeting.age"},
		{"age above ceiling", models.TargetingSpec{AgeMax: utils.ToPtr(101)}, "targeting.age"},
		{"unknown gender", models.TargetingSpec{Gender: utils.ToPtr("other")}, "targeting.gender"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fc.Compile(tt.spec)
			require.Error(t, err)
			assert.True(t, IsValidation(err))
			assert.Equal(t, KindValidation, KindOf(err))

			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestFilterCompiler_OpenAgeBounds(t *testing.T) {
	out, err := newCompiler(t, models.ContractV2).Compile(models.TargetingSpec{AgeMin: utils.ToPtr(60)})
	require.NoError(t, err)
	require.Len(t, out.Filter.And, 1)
	assert.JSONEq(t, `{"min":60,"max":100}`, string(out.Filter.And[0].Data))
}

func TestNewFilterCompiler_UnknownVersion(t *testing.T) {
	_, err := NewFilterCompiler("v9")
	assert.Error(t, err)
}
