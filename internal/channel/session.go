// Copyright 2026 The channelforge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package channel

import (
	"context"
	"strings"
	"sync"
)

// Persister is the persistence collaborator consumed on submission.
// Transport errors are surfaced verbatim; retries are the collaborator's
// concern, not the engine's.
type Persister interface {
	CreateChannel(ctx context.Context, res *AssembleResult) error
	UpdateChannel(ctx context.Context, res *AssembleResult) error
}

// Session owns one ChannelDraft for the duration of an editing surface.
// All mutation goes through its setters so the invariants stay
// enforceable at the assembly chokepoint. A session is either in create
// mode (empty draft) or edit mode (hydrated from a stored record).
type Session struct {
	mu         sync.Mutex
	draft      Draft
	models     ModelSource
	edit       bool
	id         int64
	closed     bool
	submitting bool
}

// NewSession starts a create-mode session seeded with the default type's
// model list.
func NewSession(models ModelSource) *Session {
	s := &Session{draft: NewDraft(), models: models}
	s.draft.Models = DefaultModelsFor(s.draft.Type, models)
	return s
}

// NewEditSession starts an edit-mode session hydrated from a stored
// record.
func NewEditSession(models ModelSource, rec OutboundChannel) *Session {
	return &Session{draft: Hydrate(rec), models: models, edit: true, id: rec.ID}
}

// Snapshot returns a copy of the current draft state.
func (s *Session) Snapshot() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.draft
	d.Models = append([]string(nil), s.draft.Models...)
	d.Groups = append([]string(nil), s.draft.Groups...)
	d.BillingRows = append([]BillingRuleRow(nil), s.draft.BillingRows...)
	d.Files = append([]CredentialFile(nil), s.draft.Files...)
	return d
}

// Edit reports whether the session edits an existing channel.
func (s *Session) Edit() bool { return s.edit }

// Loading reports whether a submission is in flight; the caller gates
// its submit action on this.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// Close discards the draft. Results of in-flight work delivered after
// Close are dropped, never applied.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Session) mutate(fn func(d *Draft)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	fn(&s.draft)
}

// SetType switches the provider type, seeding default models only when
// the selection is empty and resetting any manual secret-shape override.
func (s *Session) SetType(t ProviderType) {
	s.mutate(func(d *Draft) { d.ApplyType(t, s.models) })
}

func (s *Session) SetName(v string)    { s.mutate(func(d *Draft) { d.Name = v }) }
func (s *Session) SetSecret(v string)  { s.mutate(func(d *Draft) { d.Secret = v }) }
func (s *Session) SetOther(v string)   { s.mutate(func(d *Draft) { d.Other = v }) }
func (s *Session) SetTag(v string)     { s.mutate(func(d *Draft) { d.Tag = v }) }
func (s *Session) SetGroups(v []string) {
	s.mutate(func(d *Draft) { d.Groups = append([]string(nil), v...) })
}
func (s *Session) SetModels(v []string) {
	s.mutate(func(d *Draft) { d.Models = append([]string(nil), v...) })
}
func (s *Session) SetPriority(v int)         { s.mutate(func(d *Draft) { d.Priority = v }) }
func (s *Session) SetWeight(v int)           { s.mutate(func(d *Draft) { d.Weight = v }) }
func (s *Session) SetAutoBan(v bool)         { s.mutate(func(d *Draft) { d.AutoBan = v }) }
func (s *Session) SetConvertRole(v int)      { s.mutate(func(d *Draft) { d.ConvertRole = v }) }
func (s *Session) SetModelMapping(v string)  { s.mutate(func(d *Draft) { d.ModelMapping = v }) }
func (s *Session) SetSetting(v string)       { s.mutate(func(d *Draft) { d.Setting = v }) }
func (s *Session) SetParamOverride(v string) { s.mutate(func(d *Draft) { d.ParamOverride = v }) }
func (s *Session) SetStatusCodeMapping(v string) {
	s.mutate(func(d *Draft) { d.StatusCodeMapping = v })
}
func (s *Session) SetAuditEnabled(v bool)      { s.mutate(func(d *Draft) { d.AuditEnabled = v }) }
func (s *Session) SetAuditAPIKey(v string)     { s.mutate(func(d *Draft) { d.AuditAPIKey = v }) }
func (s *Session) SetAuditURL(v string)        { s.mutate(func(d *Draft) { d.AuditURL = v }) }
func (s *Session) SetAuditModel(v string)      { s.mutate(func(d *Draft) { d.AuditModel = v }) }
func (s *Session) SetAuditCategories(v string) { s.mutate(func(d *Draft) { d.AuditCategories = v }) }
func (s *Session) SetBillingRows(rows []BillingRuleRow) {
	s.mutate(func(d *Draft) { d.BillingRows = append([]BillingRuleRow(nil), rows...) })
}
func (s *Session) SetCredentialFiles(files []CredentialFile) {
	s.mutate(func(d *Draft) { d.Files = append([]CredentialFile(nil), files...) })
}
func (s *Session) SetMultiKeyMode(strategy AggregationStrategy) {
	s.mutate(func(d *Draft) { d.MultiKeyMode = strategy })
}

// SetBaseURL records the URL and reports whether it ends in /v1 so the
// caller can run its confirmation step before keeping the value.
func (s *Session) SetBaseURL(v string) (needsConfirm bool) {
	s.mutate(func(d *Draft) { d.BaseURL = v })
	return strings.HasSuffix(v, "/v1")
}

// AddCustomModels appends operator-typed model names; the whole batch is
// rejected on a duplicate.
func (s *Session) AddCustomModels(commaSeparated string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return &ValidationError{Reason: ReasonSessionClosed}
	}
	return s.draft.AddModels(commaSeparated)
}

// MergeUpstreamModels unions fetched upstream models into the selection.
func (s *Session) MergeUpstreamModels(models []string) {
	s.mutate(func(d *Draft) { d.MergeModels(models) })
}

// ValidateAndAssemble runs the payload assembler against the current
// draft without submitting.
func (s *Session) ValidateAndAssemble(mode SubmitMode) (*AssembleResult, error) {
	return Assemble(s.Snapshot(), mode, s.edit, s.id)
}

// Submit assembles and persists the draft. Exactly one submission may be
// outstanding; a second attempt while one is in flight fails fast. On
// success a create-mode session resets to an empty draft and an
// edit-mode session closes.
func (s *Session) Submit(ctx context.Context, mode SubmitMode, p Persister) (*AssembleResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, &ValidationError{Reason: ReasonSessionClosed}
	}
	if s.submitting {
		s.mu.Unlock()
		return nil, &ValidationError{Reason: ReasonSubmitInFlight}
	}
	s.submitting = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.submitting = false
		s.mu.Unlock()
	}()

	res, err := s.ValidateAndAssemble(mode)
	if err != nil {
		return nil, err
	}

	if s.edit {
		err = p.UpdateChannel(ctx, res)
	} else {
		err = p.CreateChannel(ctx, res)
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		// The surface went away while the request was in flight; drop
		// the result instead of touching a discarded draft.
		return res, nil
	}
	if s.edit {
		s.closed = true
	} else {
		s.draft = NewDraft()
		s.draft.Models = DefaultModelsFor(s.draft.Type, s.models)
	}
	return res, nil
}
