// Copyright 2026 The channelforge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package channel

import (
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/sjson"
)

// Audit defaults applied at assembly when the operator left the optional
// audit fields blank.
const (
	DefaultAuditURL   = "https://api.openai.com/v1/moderations"
	DefaultAuditModel = "omni-moderation-latest"
)

// WarnBaseURLHasV1 flags a base URL ending in /v1. The gateway appends
// the version path itself, so this is usually a mistake, but it is a
// confirmation step for the caller, never a hard validation error.
const WarnBaseURLHasV1 = "base_url_ends_with_v1"

// OutboundChannel is the flat wire record for one channel. Updates submit
// it directly (plus the identifier); creation wraps it in an envelope
// carrying the submission mode.
type OutboundChannel struct {
	ID                int64  `json:"id,omitempty"`
	Type              int    `json:"type"`
	Name              string `json:"name"`
	BaseURL           string `json:"base_url"`
	Key               string `json:"key,omitempty"`
	Other             string `json:"other,omitempty"`
	Organization      string `json:"openai_organization,omitempty"`
	MaxInputTokens    int    `json:"max_input_tokens,omitempty"`
	TestModel         string `json:"test_model,omitempty"`
	Tag               string `json:"tag,omitempty"`
	Models            string `json:"models"`
	Group             string `json:"group"`
	ModelMapping      string `json:"model_mapping"`
	StatusCodeMapping string `json:"status_code_mapping"`
	Setting           string `json:"setting,omitempty"`
	ParamOverride     string `json:"param_override,omitempty"`
	AuditEnabled      int    `json:"audit_enabled"`
	AuditCategories   string `json:"audit_categories"`
	AuditAPIKey       string `json:"audit_apikey"`
	AuditURL          string `json:"audit_url"`
	AuditModel        string `json:"audit_model"`
	BillingSupplement string `json:"billing_supplement"`
	Priority          int    `json:"priority"`
	Weight            int    `json:"weight"`
	AutoBan           int    `json:"auto_ban"`
	IsConvertRole     int    `json:"is_convert_role"`
}

// AssembleResult is a successfully validated submission. Warnings are
// non-blocking; FailedFiles lists credential files excluded from the
// bundle during ingestion.
type AssembleResult struct {
	Channel     OutboundChannel
	Mode        SubmitMode
	Strategy    AggregationStrategy
	Bundle      SecretBundle
	Edit        bool
	Warnings    []string
	FailedFiles []string
}

// Keys returns the resolved secrets for persistence-time expansion
// (batch mode creates one record per key).
func (r *AssembleResult) Keys() []string { return r.Bundle.Secrets() }

// CreateBody renders the creation envelope:
//
//	{"mode": "...", "multi_key_mode": "...", "channel": {...}}
//
// multi_key_mode is present only when aggregating.
func (r *AssembleResult) CreateBody() ([]byte, error) {
	flat, err := json.Marshal(r.Channel)
	if err != nil {
		return nil, err
	}
	body := []byte(`{}`)
	if body, err = sjson.SetBytes(body, "mode", string(r.Mode)); err != nil {
		return nil, err
	}
	if r.Mode == ModeMultiToSingle {
		if body, err = sjson.SetBytes(body, "multi_key_mode", string(r.Strategy)); err != nil {
			return nil, err
		}
	}
	return sjson.SetRawBytes(body, "channel", flat)
}

// UpdateBody renders the flat update record with the identifier.
func (r *AssembleResult) UpdateBody() ([]byte, error) {
	return json.Marshal(r.Channel)
}

// Assemble merges the draft into one outbound record, enforcing the
// cross-field invariants. Validation short-circuits: the first failure
// wins and nothing is partially submitted. The order is fixed:
//
//  1. name and key presence (create mode only)
//  2. models non-empty
//  3. groups non-empty
//  4. model mapping validity
//  5. base URL normalization
//  6. type-specific default injection
//  7. audit sub-document re-validation (when enabled)
//  8. secret resolution, honoring "unchanged" semantics in edit mode
func Assemble(d Draft, mode SubmitMode, edit bool, id int64) (*AssembleResult, error) {
	if !edit && (d.Name == "" || (d.Secret == "" && len(d.Files) == 0)) {
		return nil, &ValidationError{Reason: ReasonMissingNameOrKey}
	}

	if len(d.Models) == 0 {
		return nil, &ValidationError{Reason: ReasonNoModelsSelected, Field: "models"}
	}

	if len(d.Groups) == 0 {
		return nil, &ValidationError{Reason: ReasonNoGroupsSelected, Field: "groups"}
	}

	modelMapping, err := NormalizeModelMapping(d.ModelMapping)
	if err != nil {
		return nil, &ValidationError{Reason: ReasonInvalidModelMapping, Field: "model_mapping"}
	}
	statusCodeMapping, err := NormalizeStatusCodeMapping(d.StatusCodeMapping)
	if err != nil {
		return nil, &ValidationError{Reason: ReasonInvalidStatusCodeMapping, Field: "status_code_mapping"}
	}

	var warnings []string
	baseURL := d.BaseURL
	baseURL = strings.TrimSuffix(baseURL, "/")
	if strings.HasSuffix(baseURL, "/v1") {
		warnings = append(warnings, WarnBaseURLHasV1)
	}

	profile := ResolveProfile(d.Type)
	other := d.Other
	if other == "" {
		other = profile.DefaultOther
	}

	auditCategories := "[]"
	auditURL := d.AuditURL
	auditModel := d.AuditModel
	if d.AuditEnabled {
		if strings.TrimSpace(d.AuditAPIKey) == "" {
			return nil, &ValidationError{Reason: ReasonMissingAuditKey, Field: "audit_apikey"}
		}
		auditCategories, err = ValidateAuditCategories(d.AuditCategories)
		if err != nil {
			return nil, err
		}
		if auditURL == "" {
			auditURL = DefaultAuditURL
		}
		if auditModel == "" {
			auditModel = DefaultAuditModel
		}
	}

	bundle, failedFiles, err := Ingest(mode, d.EffectiveSecretShape(), IngestInput{
		Raw:   d.Secret,
		Files: d.Files,
		Edit:  edit,
	})
	if err != nil {
		return nil, err
	}

	autoBan := 0
	if d.AutoBan {
		autoBan = 1
	}
	auditEnabled := 0
	if d.AuditEnabled {
		auditEnabled = 1
	}

	rec := OutboundChannel{
		Type:              int(d.Type),
		Name:              d.Name,
		BaseURL:           baseURL,
		Key:               bundle.KeyField(mode),
		Other:             other,
		Organization:      d.Organization,
		MaxInputTokens:    d.MaxInputTokens,
		TestModel:         d.TestModel,
		Tag:               d.Tag,
		Models:            strings.Join(d.Models, ","),
		Group:             strings.Join(d.Groups, ","),
		ModelMapping:      modelMapping,
		StatusCodeMapping: statusCodeMapping,
		Setting:           NormalizeSetting(d.Setting),
		ParamOverride:     NormalizeParamOverride(d.ParamOverride),
		AuditEnabled:      auditEnabled,
		AuditCategories:   auditCategories,
		AuditAPIKey:       d.AuditAPIKey,
		AuditURL:          auditURL,
		AuditModel:        auditModel,
		BillingSupplement: EncodeBillingRules(FilterBillingRules(d.BillingRows)),
		Priority:          d.Priority,
		Weight:            d.Weight,
		AutoBan:           autoBan,
		IsConvertRole:     d.ConvertRole,
	}
	if edit {
		rec.ID = id
	}

	strategy := d.MultiKeyMode
	if strategy == "" {
		strategy = StrategyRandom
	}

	return &AssembleResult{
		Channel:     rec,
		Mode:        mode,
		Strategy:    strategy,
		Bundle:      bundle,
		Edit:        edit,
		Warnings:    warnings,
		FailedFiles: failedFiles,
	}, nil
}
