package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func validDraft() Draft {
	d := NewDraft()
	d.Name = "upstream-1"
	d.Secret = "sk-test"
	d.Models = []string{"gpt-4o", "gpt-4o-mini"}
	return d
}

func TestAssemble_ValidationOrder(t *testing.T) {
	var verr *ValidationError

	// 1. Name and key presence, create mode only.
	d := validDraft()
	d.Name = ""
	_, err := Assemble(d, ModeSingle, false, 0)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ReasonMissingNameOrKey, verr.Reason)

	// Missing name passes in edit mode but then fails on models.
	d = validDraft()
	d.Name = ""
	d.Models = nil
	_, err = Assemble(d, ModeSingle, true, 7)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ReasonNoModelsSelected, verr.Reason)

	// 2. Models beat mapping: both empty models and bad mapping fail on models.
	d = validDraft()
	d.Models = nil
	d.ModelMapping = "{bad"
	_, err = Assemble(d, ModeSingle, false, 0)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ReasonNoModelsSelected, verr.Reason)

	// 3. Groups beat mapping.
	d = validDraft()
	d.Groups = nil
	d.ModelMapping = "{bad"
	_, err = Assemble(d, ModeSingle, false, 0)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ReasonNoGroupsSelected, verr.Reason)

	// 4. Model mapping.
	d = validDraft()
	d.ModelMapping = "{bad"
	_, err = Assemble(d, ModeSingle, false, 0)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ReasonInvalidModelMapping, verr.Reason)

	d = validDraft()
	d.StatusCodeMapping = `[400]`
	_, err = Assemble(d, ModeSingle, false, 0)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ReasonInvalidStatusCodeMapping, verr.Reason)
}

func TestAssemble_BaseURLNormalization(t *testing.T) {
	d := validDraft()
	d.BaseURL = "https://api.example.com/"
	res, err := Assemble(d, ModeSingle, false, 0)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com", res.Channel.BaseURL)
	assert.Empty(t, res.Warnings)

	// Only a single trailing slash is stripped; /v1 stays and warns.
	d.BaseURL = "https://api.example.com/v1"
	res, err = Assemble(d, ModeSingle, false, 0)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1", res.Channel.BaseURL)
	assert.Contains(t, res.Warnings, WarnBaseURLHasV1)

	d.BaseURL = "https://api.example.com//"
	res, err = Assemble(d, ModeSingle, false, 0)
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/", res.Channel.BaseURL)
}

func TestAssemble_TypeDefaultInjection(t *testing.T) {
	d := validDraft()
	d.Type = TypeSpark
	d.Other = ""
	res, err := Assemble(d, ModeSingle, false, 0)
	require.NoError(t, err)
	assert.Equal(t, "v2.1", res.Channel.Other)

	d.Other = "v3.5"
	res, err = Assemble(d, ModeSingle, false, 0)
	require.NoError(t, err)
	assert.Equal(t, "v3.5", res.Channel.Other)
}

func TestAssemble_AuditValidation(t *testing.T) {
	d := validDraft()
	d.AuditEnabled = true
	d.AuditAPIKey = ""
	var verr *ValidationError
	_, err := Assemble(d, ModeSingle, false, 0)
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, ReasonMissingAuditKey, verr.Reason)

	d.AuditAPIKey = "sk-audit"
	d.AuditCategories = `["hate:0.9"]`
	res, err := Assemble(d, ModeSingle, false, 0)
	require.NoError(t, err)
	assert.Equal(t, `["hate:0.9"]`, res.Channel.AuditCategories)
	assert.Equal(t, 1, res.Channel.AuditEnabled)
	assert.Equal(t, DefaultAuditURL, res.Channel.AuditURL)
	assert.Equal(t, DefaultAuditModel, res.Channel.AuditModel)

	// Unparsable audit JSON never blocks submission on its own.
	d.AuditCategories = "{garbage"
	res, err = Assemble(d, ModeSingle, false, 0)
	require.NoError(t, err)
	assert.Equal(t, "[]", res.Channel.AuditCategories)

	// Disabled audit skips the key requirement entirely.
	d.AuditEnabled = false
	d.AuditAPIKey = ""
	_, err = Assemble(d, ModeSingle, false, 0)
	assert.NoError(t, err)
}

func TestAssemble_FlatRecord(t *testing.T) {
	d := validDraft()
	d.Groups = []string{"default", "vip"}
	d.AutoBan = false
	d.ConvertRole = ConvertRoleYes
	d.BillingRows = []BillingRuleRow{
		{TokenCount: "", Multiplied: "2"},
		{TokenCount: "100", Multiplied: "2"},
	}
	res, err := Assemble(d, ModeSingle, false, 0)
	require.NoError(t, err)

	rec := res.Channel
	assert.Equal(t, "gpt-4o,gpt-4o-mini", rec.Models)
	assert.Equal(t, "default,vip", rec.Group)
	assert.Equal(t, 0, rec.AutoBan)
	assert.Equal(t, ConvertRoleYes, rec.IsConvertRole)
	assert.Equal(t, `[{"tokenCount":100,"multiplied":2}]`, rec.BillingSupplement)
	assert.Equal(t, "sk-test", rec.Key)
}

func TestAssemble_CreateBodyModeDiscriminator(t *testing.T) {
	d := validDraft()
	d.Secret = "k1\nk2"
	res, err := Assemble(d, ModeMultiToSingle, false, 0)
	require.NoError(t, err)

	body, err := res.CreateBody()
	require.NoError(t, err)
	assert.Equal(t, "multi_to_single", gjson.GetBytes(body, "mode").String())
	assert.Equal(t, "random", gjson.GetBytes(body, "multi_key_mode").String())
	assert.Equal(t, "upstream-1", gjson.GetBytes(body, "channel.name").String())
	assert.Equal(t, `["k1","k2"]`, gjson.GetBytes(body, "channel.key").String())

	// single and batch modes never carry multi_key_mode.
	for _, mode := range []SubmitMode{ModeSingle, ModeBatch} {
		res, err := Assemble(validDraft(), mode, false, 0)
		require.NoError(t, err)
		body, err := res.CreateBody()
		require.NoError(t, err)
		assert.Equal(t, string(mode), gjson.GetBytes(body, "mode").String())
		assert.False(t, gjson.GetBytes(body, "multi_key_mode").Exists(), "mode %s", mode)
	}
}

func TestAssemble_EditModeUnchangedKey(t *testing.T) {
	d := validDraft()
	d.Secret = ""
	res, err := Assemble(d, ModeSingle, true, 42)
	require.NoError(t, err)
	assert.True(t, res.Bundle.Unchanged())
	assert.Empty(t, res.Channel.Key)
	assert.Equal(t, int64(42), res.Channel.ID)

	body, err := res.UpdateBody()
	require.NoError(t, err)
	assert.Equal(t, int64(42), gjson.GetBytes(body, "id").Int())
	assert.False(t, gjson.GetBytes(body, "key").Exists())
}

func TestAssemble_NoModelsAlwaysFails(t *testing.T) {
	for _, mode := range []SubmitMode{ModeSingle, ModeBatch, ModeMultiToSingle} {
		for _, edit := range []bool{false, true} {
			d := validDraft()
			d.Models = nil
			_, err := Assemble(d, mode, edit, 1)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr, "mode %s edit %v", mode, edit)
			assert.Equal(t, ReasonNoModelsSelected, verr.Reason)
		}
	}
}

func TestAssemble_GroupsRequired(t *testing.T) {
	for _, edit := range []bool{false, true} {
		d := validDraft()
		d.Groups = nil
		_, err := Assemble(d, ModeSingle, edit, 1)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr, "edit %v", edit)
		assert.Equal(t, ReasonNoGroupsSelected, verr.Reason)

		d.Groups = []string{}
		_, err = Assemble(d, ModeSingle, edit, 1)
		require.ErrorAs(t, err, &verr, "edit %v", edit)
		assert.Equal(t, ReasonNoGroupsSelected, verr.Reason)
	}
}

func TestAssemble_ParamOverridePolicies(t *testing.T) {
	d := validDraft()
	d.Setting = "{invalid"
	d.ParamOverride = `{"temperature":0,"stream":false}`
	res, err := Assemble(d, ModeSingle, false, 0)
	require.NoError(t, err, "invalid setting is dropped, not fatal")
	assert.Empty(t, res.Channel.Setting)
	assert.Equal(t, `{"temperature":0}`, res.Channel.ParamOverride)
}
