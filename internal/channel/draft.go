// Copyright 2026 The channelforge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package channel

import (
	"strings"

	json "github.com/goccy/go-json"
)

// ConvertRole is the tri-state assistant-role conversion flag carried on
// the wire: 1 converts assistant to user, 2 leaves roles alone.
const (
	ConvertRoleYes = 1
	ConvertRoleNo  = 2
)

// Draft is the mutable working state of one channel being created or
// edited. It is owned by a Session; nothing outside the engine mutates it
// directly. JSON-bearing fields hold raw operator text until assembly.
type Draft struct {
	Type           ProviderType
	Name           string
	BaseURL        string
	Secret         string
	Files          []CredentialFile
	Other          string
	Organization   string
	MaxInputTokens int
	TestModel      string
	Tag            string

	Models []string
	Groups []string

	ModelMapping      string
	StatusCodeMapping string
	Setting           string
	ParamOverride     string

	AuditEnabled    bool
	AuditCategories string
	AuditAPIKey     string
	AuditURL        string
	AuditModel      string

	BillingRows []BillingRuleRow

	Priority    int
	Weight      int
	AutoBan     bool
	ConvertRole int

	MultiKeyMode AggregationStrategy

	secretShapeOverride *SecretShape
}

// NewDraft returns an empty draft with the create-mode defaults.
func NewDraft() Draft {
	return Draft{
		Type:            TypeOpenAI,
		Groups:          []string{"default"},
		AuditCategories: "[]",
		AutoBan:         true,
		ConvertRole:     ConvertRoleNo,
		MultiKeyMode:    StrategyRandom,
	}
}

// EffectiveSecretShape returns the ingestion shape in force: the manual
// override when the operator switched to plain text entry, otherwise the
// type profile's default.
func (d *Draft) EffectiveSecretShape() SecretShape {
	if d.secretShapeOverride != nil {
		return *d.secretShapeOverride
	}
	return ResolveProfile(d.Type).SecretShape
}

// OverrideSecretShape switches the ingestion shape away from the type
// default (e.g. pasting a raw key for a service-account type). The
// override is discarded when the provider type changes.
func (d *Draft) OverrideSecretShape(s SecretShape) {
	d.secretShapeOverride = &s
}

// ApplyType switches the provider type. Defaults from the new profile are
// applied only when the model list is currently empty; an operator's
// existing selection is never overwritten. Any manual secret-shape
// override is reset to the new type's default.
func (d *Draft) ApplyType(t ProviderType, src ModelSource) {
	d.Type = t
	d.secretShapeOverride = nil
	if len(d.Models) == 0 {
		d.Models = DefaultModelsFor(t, src)
	}
}

// AddModels appends trimmed, comma-separated model names. The whole batch
// is rejected when any name already exists, so a partial add never
// happens.
func (d *Draft) AddModels(commaSeparated string) error {
	if strings.TrimSpace(commaSeparated) == "" {
		return nil
	}
	existing := make(map[string]bool, len(d.Models))
	for _, m := range d.Models {
		existing[m] = true
	}
	var added []string
	for _, m := range strings.Split(commaSeparated, ",") {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if existing[m] {
			return &ValidationError{Reason: ReasonDuplicateModel, Field: "models"}
		}
		existing[m] = true
		added = append(added, m)
	}
	d.Models = append(d.Models, added...)
	return nil
}

// MergeModels unions fetched upstream models into the selection,
// preserving order and dropping duplicates.
func (d *Draft) MergeModels(models []string) {
	seen := make(map[string]bool, len(d.Models))
	for _, m := range d.Models {
		seen[m] = true
	}
	for _, m := range models {
		m = strings.TrimSpace(m)
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		d.Models = append(d.Models, m)
	}
}

// Hydrate fills a draft from a stored channel record (edit mode):
// comma-joined lists are split, the model mapping is pretty-printed for
// editing, legacy audit categories are migrated, and billing rows are
// decoded leniently.
func Hydrate(rec OutboundChannel) Draft {
	d := NewDraft()
	d.Type = ProviderType(rec.Type)
	d.Name = rec.Name
	d.BaseURL = rec.BaseURL
	d.Other = rec.Other
	d.Organization = rec.Organization
	d.MaxInputTokens = rec.MaxInputTokens
	d.TestModel = rec.TestModel
	d.Tag = rec.Tag

	if rec.Models != "" {
		d.Models = strings.Split(rec.Models, ",")
	} else {
		d.Models = nil
	}
	if rec.Group != "" {
		d.Groups = strings.Split(rec.Group, ",")
	} else {
		d.Groups = nil
	}

	d.ModelMapping = prettyJSON(rec.ModelMapping)
	d.StatusCodeMapping = rec.StatusCodeMapping
	d.Setting = rec.Setting
	d.ParamOverride = rec.ParamOverride

	d.AuditEnabled = rec.AuditEnabled == 1
	d.AuditCategories = EncodeAuditCategories(DecodeAuditCategories(rec.AuditCategories))
	d.AuditAPIKey = rec.AuditAPIKey
	d.AuditURL = rec.AuditURL
	d.AuditModel = rec.AuditModel

	d.BillingRows = DecodeBillingRows(rec.BillingSupplement)

	d.Priority = rec.Priority
	d.Weight = rec.Weight
	d.AutoBan = rec.AutoBan == 1
	if rec.IsConvertRole != 0 {
		d.ConvertRole = rec.IsConvertRole
	}
	return d
}

// prettyJSON re-indents a stored JSON value for editing; anything that
// does not parse is returned untouched.
func prettyJSON(s string) string {
	if s == "" {
		return ""
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return s
	}
	return string(out)
}
