// Copyright 2026 The channelforge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package channel implements the channel configuration engine: the rules
// that turn a heterogeneous, type-dependent set of operator-entered fields
// into a single canonical payload for the gateway backend. It covers
// provider type profiles, secret ingestion, the structured field codec,
// and the payload assembler. Rendering, localization, and transport are
// collaborators and live elsewhere.
package channel

// ProviderType identifies an upstream provider family. The numeric codes
// are part of the stored channel record and must stay stable.
type ProviderType int

const (
	TypeOpenAI         ProviderType = 1
	TypeMidjourney     ProviderType = 2
	TypeAzure          ProviderType = 3
	TypeOllama         ProviderType = 4
	TypeMidjourneyPlus ProviderType = 5
	TypeCustomURL      ProviderType = 8
	TypePaLM           ProviderType = 11
	TypeAnthropic      ProviderType = 14
	TypeBaidu          ProviderType = 15
	TypeZhipu          ProviderType = 16
	TypeAli            ProviderType = 17
	TypeSpark          ProviderType = 18
	TypeAI360          ProviderType = 19
	TypeKnowledgeBase  ProviderType = 21
	TypeFastGPT        ProviderType = 22
	TypeTencent        ProviderType = 23
	TypeGemini         ProviderType = 24
	TypeMoonshot       ProviderType = 25
	TypeBaichuan       ProviderType = 26
	TypeMiniMax        ProviderType = 27
	TypeMistral        ProviderType = 28
	TypeGroq           ProviderType = 29
	TypeLingyi         ProviderType = 31
	TypeAWS            ProviderType = 33
	TypeCohere         ProviderType = 34
	TypeSuno           ProviderType = 36
	TypeDify           ProviderType = 37
	TypeJina           ProviderType = 38
	TypeCloudflare     ProviderType = 39
	TypeSiliconFlow    ProviderType = 40
	TypeVertexAI       ProviderType = 41
	TypeDeepSeek       ProviderType = 43
	TypeRerank         ProviderType = 45
)

// SecretShape describes the expected format of the channel secret for a
// provider type.
type SecretShape int

const (
	// SecretPlainKey is a single opaque API key.
	SecretPlainKey SecretShape = iota
	// SecretCompositeDelimited is N segments joined by a delimiter,
	// e.g. "APIKey|SecretKey" or "Ak|Sk|Region".
	SecretCompositeDelimited
	// SecretServiceAccountJSON is a structured JSON credential parsed
	// client-side before transmission (Vertex AI service accounts).
	SecretServiceAccountJSON
	// SecretNone marks types that authenticate out of band.
	SecretNone
)

// FieldID names an optional draft field whose visibility depends on the
// provider type.
type FieldID string

const (
	FieldBaseURL      FieldID = "base_url"
	FieldOther        FieldID = "other"
	FieldOrganization FieldID = "openai_organization"
	FieldTestModel    FieldID = "test_model"
)

// TypeProfile is what ResolveProfile returns for a provider type: the
// default model set, the expected secret shape, which optional fields
// apply, and the secret placeholder hint shown to the operator.
type TypeProfile struct {
	Type          ProviderType
	DefaultModels []string
	SecretShape   SecretShape
	SecretParts   int // segment count for SecretCompositeDelimited
	SecretHint    string
	VisibleFields []FieldID
	// DefaultOther is injected at assembly time when the operator left
	// the type-specific extra field blank (Spark wants a version string).
	DefaultOther string
}

// ModelSource supplies catalog-backed default models for provider types
// that do not hard-code a pseudo-model list.
type ModelSource interface {
	ListModelsForType(t ProviderType) []string
}

const defaultSecretHint = "enter the credential key for this channel"

// midjourneyModels and friends are pseudo-model names, not queryable
// model IDs; the catalog never knows about them.
var midjourneyModels = []string{
	"mj_imagine",
	"mj_variation",
	"mj_reroll",
	"mj_blend",
	"mj_upscale",
	"mj_describe",
	"mj_uploads",
}

var midjourneyPlusModels = []string{
	"swap_face",
	"mj_imagine",
	"mj_variation",
	"mj_reroll",
	"mj_blend",
	"mj_upscale",
	"mj_describe",
	"mj_zoom",
	"mj_shorten",
	"mj_modal",
	"mj_inpaint",
	"mj_custom_zoom",
	"mj_high_variation",
	"mj_low_variation",
	"mj_pan",
	"mj_uploads",
}

var sunoModels = []string{"suno_music", "suno_lyrics"}

var standardFields = []FieldID{FieldBaseURL, FieldTestModel}

// profiles maps provider type codes to their profile. Adding a provider
// is a data change here, not a code change anywhere else.
var profiles = map[ProviderType]TypeProfile{
	TypeOpenAI: {
		Type:          TypeOpenAI,
		VisibleFields: []FieldID{FieldBaseURL, FieldOrganization, FieldTestModel},
	},
	TypeMidjourney: {
		Type:          TypeMidjourney,
		DefaultModels: midjourneyModels,
		VisibleFields: standardFields,
	},
	TypeAzure: {
		Type:          TypeAzure,
		SecretHint:    "enter the Azure OpenAI API key",
		VisibleFields: []FieldID{FieldBaseURL, FieldOther, FieldTestModel},
	},
	TypeMidjourneyPlus: {
		Type:          TypeMidjourneyPlus,
		DefaultModels: midjourneyPlusModels,
		VisibleFields: standardFields,
	},
	TypeCustomURL: {
		Type:          TypeCustomURL,
		VisibleFields: standardFields,
	},
	TypeBaidu: {
		Type:        TypeBaidu,
		SecretShape: SecretCompositeDelimited,
		SecretParts: 2,
		SecretHint:  "format: APIKey|SecretKey",
	},
	TypeSpark: {
		Type:          TypeSpark,
		SecretShape:   SecretCompositeDelimited,
		SecretParts:   3,
		SecretHint:    "format: APPID|APISecret|APIKey",
		VisibleFields: []FieldID{FieldOther},
		DefaultOther:  "v2.1",
	},
	TypeKnowledgeBase: {
		Type:          TypeKnowledgeBase,
		SecretHint:    "format: APIKey-AppId",
		VisibleFields: []FieldID{FieldOther},
	},
	TypeFastGPT: {
		Type:          TypeFastGPT,
		SecretShape:   SecretCompositeDelimited,
		SecretParts:   2,
		SecretHint:    "format: APIKey-AppId, e.g. fastgpt-0sp2gtvfdgyi4k30jwlgwf1i-64f335d84283f05518e9e041",
		VisibleFields: []FieldID{FieldBaseURL},
	},
	TypeTencent: {
		Type:        TypeTencent,
		SecretShape: SecretCompositeDelimited,
		SecretParts: 3,
		SecretHint:  "format: AppId|SecretId|SecretKey",
	},
	TypeAWS: {
		Type:        TypeAWS,
		SecretShape: SecretCompositeDelimited,
		SecretParts: 3,
		SecretHint:  "format: Ak|Sk|Region",
	},
	TypeSuno: {
		Type:          TypeSuno,
		DefaultModels: sunoModels,
		VisibleFields: []FieldID{FieldBaseURL},
	},
	TypeDify: {
		Type:          TypeDify,
		VisibleFields: standardFields,
	},
	TypeCloudflare: {
		Type:          TypeCloudflare,
		VisibleFields: []FieldID{FieldBaseURL, FieldOther, FieldTestModel},
	},
	TypeVertexAI: {
		Type:          TypeVertexAI,
		SecretShape:   SecretServiceAccountJSON,
		SecretHint:    "paste the service account JSON credential",
		VisibleFields: []FieldID{FieldOther},
	},
}

// ResolveProfile returns the profile for the given provider type.
// Types without an explicit entry get a plain-key profile with the
// standard optional fields; their default models come from the catalog.
func ResolveProfile(t ProviderType) TypeProfile {
	if p, ok := profiles[t]; ok {
		if p.SecretHint == "" {
			p.SecretHint = defaultSecretHint
		}
		if p.VisibleFields == nil {
			p.VisibleFields = standardFields
		}
		return p
	}
	return TypeProfile{
		Type:          t,
		SecretShape:   SecretPlainKey,
		SecretHint:    defaultSecretHint,
		VisibleFields: standardFields,
	}
}

// DefaultModelsFor resolves the default model list for a type: the
// hard-coded pseudo-model list when the profile carries one, otherwise a
// catalog lookup. A nil source yields an empty list for catalog-backed
// types.
func DefaultModelsFor(t ProviderType, src ModelSource) []string {
	p := ResolveProfile(t)
	if len(p.DefaultModels) > 0 {
		out := make([]string, len(p.DefaultModels))
		copy(out, p.DefaultModels)
		return out
	}
	if src == nil {
		return nil
	}
	return src.ListModelsForType(t)
}

// HasField reports whether the optional field applies to this profile.
func (p TypeProfile) HasField(f FieldID) bool {
	for _, v := range p.VisibleFields {
		if v == f {
			return true
		}
	}
	return false
}
