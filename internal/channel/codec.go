// Copyright 2026 The channelforge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package channel

import (
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// The five JSON-bearing sub-documents are operator-authored blobs with no
// server-side schema beyond "valid JSON of roughly the right shape". The
// codec is defensive: malformed auxiliary JSON never blocks the primary
// submission, except for the routing-critical mapping fields where
// strictness beats silent data loss. Policy per field:
//
//	model_mapping, status_code_mapping  strict: invalid non-empty input blocks submission
//	setting, param_override             lenient: invalid input is replaced with empty
//	audit_categories                    lenient: falls back to an empty array
//	billing_supplement                  partial rows dropped silently
//
// The empty string is always valid and decodes to "no override".

// NormalizeModelMapping canonicalizes the model remapping sub-document.
// Invalid non-empty input returns a CodecError; callers must block
// submission on it.
func NormalizeModelMapping(s string) (string, error) {
	return normalizeStrictObject("model_mapping", s)
}

// NormalizeStatusCodeMapping canonicalizes the status-code remapping
// sub-document under the same strict policy as model_mapping.
func NormalizeStatusCodeMapping(s string) (string, error) {
	return normalizeStrictObject("status_code_mapping", s)
}

func normalizeStrictObject(field, s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "", nil
	}
	parsed := gjson.Parse(s)
	if !gjson.Valid(s) || !parsed.IsObject() {
		return "", &CodecError{Field: field, Reason: "not a JSON object"}
	}
	return s, nil
}

// NormalizeSetting canonicalizes the channel settings sub-document.
// Lenient: anything that is not a JSON object becomes empty.
func NormalizeSetting(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	if !gjson.Valid(s) || !gjson.Parse(s).IsObject() {
		return ""
	}
	return s
}

// NormalizeParamOverride canonicalizes the parameter override
// sub-document. Lenient like setting, with one extra rule: the override
// must never carry a streaming-control key, so "stream" is stripped.
func NormalizeParamOverride(s string) string {
	s = NormalizeSetting(s)
	if s == "" {
		return ""
	}
	if gjson.Get(s, "stream").Exists() {
		stripped, err := sjson.Delete(s, "stream")
		if err != nil {
			return ""
		}
		s = stripped
	}
	return s
}

// AuditCategories is the fixed vocabulary for content-audit categories.
var AuditCategories = []string{
	"harassment",
	"harassment/threatening",
	"hate",
	"hate/threatening",
	"illicit",
	"illicit/violent",
	"self-harm",
	"self-harm/instructions",
	"self-harm/intent",
	"sexual",
	"sexual/minors",
	"violence",
	"violence/graphic",
}

var auditCategorySet = func() map[string]bool {
	m := make(map[string]bool, len(AuditCategories))
	for _, c := range AuditCategories {
		m[c] = true
	}
	return m
}()

// AuditCategoryEntry is one category:threshold pair. Threshold stays a
// free-text decimal string while editing and is only required to parse
// at submission time.
type AuditCategoryEntry struct {
	Category  string
	Threshold string
}

const legacyAuditThreshold = "0.9"

// EncodeAuditCategories serializes entries as a JSON array of
// "category:threshold" strings, the canonical stored form.
func EncodeAuditCategories(entries []AuditCategoryEntry) string {
	if len(entries) == 0 {
		return "[]"
	}
	items := make([]string, 0, len(entries))
	for _, e := range entries {
		items = append(items, e.Category+":"+e.Threshold)
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

// DecodeAuditCategories parses the stored audit-category value. Legacy
// records hold a comma-separated plain category list; when JSON parsing
// fails, each legacy category is migrated with a default threshold of
// 0.9. The empty string decodes to no entries.
func DecodeAuditCategories(s string) []AuditCategoryEntry {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var items []string
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		// One-time migration path for the legacy comma-separated form.
		for _, cat := range strings.Split(s, ",") {
			cat = strings.TrimSpace(cat)
			if cat != "" {
				items = append(items, cat+":"+legacyAuditThreshold)
			}
		}
	}
	return auditEntriesFromItems(items)
}

func auditEntriesFromItems(items []string) []AuditCategoryEntry {
	entries := make([]AuditCategoryEntry, 0, len(items))
	for _, item := range items {
		cat, thr, found := strings.Cut(item, ":")
		if !found {
			thr = legacyAuditThreshold
		}
		entries = append(entries, AuditCategoryEntry{Category: cat, Threshold: thr})
	}
	return entries
}

// ValidateAuditCategories re-serializes the stored value to guarantee the
// canonical JSON array form at submission. Anything that is not a JSON
// array of strings falls back to an empty array rather than failing the
// submission; the legacy comma-migration never applies here. Individual
// entries must carry a known, unique category and a parsable threshold
// in [0,1].
func ValidateAuditCategories(s string) (string, error) {
	if strings.TrimSpace(s) == "" {
		return "[]", nil
	}
	var items []string
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return "[]", nil
	}
	entries := auditEntriesFromItems(items)
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !auditCategorySet[e.Category] {
			return "", &ValidationError{Reason: ReasonUnknownAuditCategory, Field: "audit_categories"}
		}
		if seen[e.Category] {
			return "", &ValidationError{Reason: ReasonDuplicateAuditCategory, Field: "audit_categories"}
		}
		seen[e.Category] = true
		v, err := strconv.ParseFloat(e.Threshold, 64)
		if err != nil || v < 0 || v > 1 {
			return "", &ValidationError{Reason: ReasonInvalidAuditThreshold, Field: "audit_categories"}
		}
	}
	return EncodeAuditCategories(entries), nil
}

// BillingRuleRow is one editing row of the tiered billing table. Both
// fields are free text while editing; rows missing either value are
// dropped at submission, never persisted partially.
type BillingRuleRow struct {
	TokenCount string `json:"tokenCount"`
	Multiplied string `json:"multiplied"`
}

// BillingSupplementRule is one submitted billing tier.
type BillingSupplementRule struct {
	TokenCount int `json:"tokenCount"`
	Multiplied int `json:"multiplied"`
}

// FilterBillingRules keeps only rows with both a token threshold and a
// multiplier, coercing both to integers. Rows that fail integer parsing
// are dropped like incomplete ones.
func FilterBillingRules(rows []BillingRuleRow) []BillingSupplementRule {
	var rules []BillingSupplementRule
	for _, row := range rows {
		if row.TokenCount == "" || row.Multiplied == "" {
			continue
		}
		tokens, err := strconv.Atoi(row.TokenCount)
		if err != nil {
			continue
		}
		mult, err := strconv.Atoi(row.Multiplied)
		if err != nil {
			continue
		}
		rules = append(rules, BillingSupplementRule{TokenCount: tokens, Multiplied: mult})
	}
	return rules
}

// EncodeBillingRules serializes submitted billing tiers for the payload.
func EncodeBillingRules(rules []BillingSupplementRule) string {
	if rules == nil {
		rules = []BillingSupplementRule{}
	}
	raw, err := json.Marshal(rules)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

// DecodeBillingRows decodes a stored billing supplement value back into
// editing rows. Lenient: anything unparsable yields no rows.
func DecodeBillingRows(s string) []BillingRuleRow {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var rules []BillingSupplementRule
	if err := json.Unmarshal([]byte(s), &rules); err != nil {
		return nil
	}
	rows := make([]BillingRuleRow, 0, len(rules))
	for _, r := range rules {
		rows = append(rows, BillingRuleRow{
			TokenCount: strconv.Itoa(r.TokenCount),
			Multiplied: strconv.Itoa(r.Multiplied),
		})
	}
	return rows
}
