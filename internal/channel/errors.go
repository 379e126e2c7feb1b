// Copyright 2026 The channelforge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package channel

import "fmt"

// Reason codes surfaced to callers. The management layer maps these to
// user-facing text; the engine never localizes.
const (
	ReasonMissingNameOrKey         = "missing_name_or_key"
	ReasonNoModelsSelected         = "no_models_selected"
	ReasonInvalidModelMapping      = "invalid_model_mapping"
	ReasonInvalidStatusCodeMapping = "invalid_status_code_mapping"
	ReasonMissingAuditKey          = "missing_audit_key"
	ReasonInvalidAuditThreshold    = "invalid_audit_threshold"
	ReasonUnknownAuditCategory     = "unknown_audit_category"
	ReasonDuplicateAuditCategory   = "duplicate_audit_category"
	ReasonNoGroupsSelected         = "no_groups_selected"
	ReasonSecretEmpty              = "secret_empty"
	ReasonMalformedCredential      = "malformed_credential"
	ReasonDuplicateModel           = "duplicate_model"
	ReasonSubmitInFlight           = "submit_in_flight"
	ReasonSessionClosed            = "session_closed"
)

// ValidationError blocks a submission. Exactly one is returned per
// assembly attempt; validation short-circuits on the first failure.
type ValidationError struct {
	Reason string
	Field  string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
	}
	return "validation failed: " + e.Reason
}

// IngestionError reports a secret-resolution failure. Files lists the
// names of credential files that could not be parsed, deduplicated.
type IngestionError struct {
	Reason string
	Files  []string
}

func (e *IngestionError) Error() string {
	if len(e.Files) > 0 {
		return fmt.Sprintf("secret ingestion failed: %s (files: %v)", e.Reason, e.Files)
	}
	return "secret ingestion failed: " + e.Reason
}

// CodecError reports a per-field JSON decode failure. Whether it blocks
// submission depends on the field's policy; see codec.go.
type CodecError struct {
	Field  string
	Reason string
}

func (e *CodecError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
