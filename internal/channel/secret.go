// Copyright 2026 The channelforge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package channel

import (
	"strings"
	"sync"

	json "github.com/goccy/go-json"
)

// SubmitMode discriminates how key material is submitted on creation.
type SubmitMode string

const (
	// ModeSingle creates one channel from one secret.
	ModeSingle SubmitMode = "single"
	// ModeBatch creates one channel per secret line.
	ModeBatch SubmitMode = "batch"
	// ModeMultiToSingle creates one channel whose key field is a JSON
	// array of secrets; the backend load-balances across them.
	ModeMultiToSingle SubmitMode = "multi_to_single"
)

// AggregationStrategy selects how the backend picks a key per request
// when a channel aggregates multiple secrets.
type AggregationStrategy string

// StrategyRandom picks uniformly per request. It is the only strategy
// today; the wire field is a free string so new strategies are additive.
const StrategyRandom AggregationStrategy = "random"

type bundleKind int

const (
	bundleSingle bundleKind = iota
	bundleBatch
	bundleCredentialFiles
	// bundleUnchanged means edit mode with a blank secret: the stored
	// key is left as-is.
	bundleUnchanged
)

// SecretBundle is the resolved key material for one submission.
type SecretBundle struct {
	kind    bundleKind
	secrets []string
}

// Secrets returns the resolved secrets in submission order.
func (b SecretBundle) Secrets() []string { return b.secrets }

// Unchanged reports whether the bundle means "leave the stored key as-is"
// (edit mode with a blank secret field).
func (b SecretBundle) Unchanged() bool { return b.kind == bundleUnchanged }

// KeyField folds the bundle into the payload's key field: a JSON array
// for multi-to-single aggregation, newline-joined for batch (persistence
// expands one record per line), otherwise the single secret.
func (b SecretBundle) KeyField(mode SubmitMode) string {
	if b.kind == bundleUnchanged || len(b.secrets) == 0 {
		return ""
	}
	switch mode {
	case ModeMultiToSingle:
		raw, err := json.Marshal(b.secrets)
		if err != nil {
			return ""
		}
		return string(raw)
	case ModeBatch:
		return strings.Join(b.secrets, "\n")
	default:
		return b.secrets[0]
	}
}

// DecodeAggregatedKeys returns the individual secrets when a stored key
// field is a JSON array (multi-to-single channels); otherwise nil.
func DecodeAggregatedKeys(key string) []string {
	if !strings.HasPrefix(strings.TrimSpace(key), "[") {
		return nil
	}
	var keys []string
	if err := json.Unmarshal([]byte(key), &keys); err != nil {
		return nil
	}
	return keys
}

// CredentialFile is one structured credential selected by the operator,
// identified by name for failure reporting.
type CredentialFile struct {
	Name    string
	Content string
}

// IngestInput carries the raw key material for one ingestion pass.
type IngestInput struct {
	Raw   string
	Files []CredentialFile
	// Edit allows a blank secret to mean "leave unchanged".
	Edit bool
}

// Ingest normalizes key material for the given submission mode and secret
// shape. Credential files are parsed concurrently; per-file parse
// failures are reported (deduplicated by name) without aborting the rest
// of the bundle. The cross-cutting arity rule is enforced here: exactly
// one secret outside batch mode, at least one in batch mode.
func Ingest(mode SubmitMode, shape SecretShape, in IngestInput) (SecretBundle, []string, error) {
	if shape == SecretServiceAccountJSON && len(in.Files) > 0 {
		return ingestCredentialFiles(mode, in)
	}

	switch mode {
	case ModeBatch, ModeMultiToSingle:
		var secrets []string
		for _, line := range strings.Split(in.Raw, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				secrets = append(secrets, line)
			}
		}
		if len(secrets) == 0 {
			if in.Edit {
				return SecretBundle{kind: bundleUnchanged}, nil, nil
			}
			return SecretBundle{}, nil, &IngestionError{Reason: ReasonSecretEmpty}
		}
		return SecretBundle{kind: bundleBatch, secrets: secrets}, nil, nil
	default:
		raw := in.Raw
		if raw == "" {
			if in.Edit {
				return SecretBundle{kind: bundleUnchanged}, nil, nil
			}
			return SecretBundle{}, nil, &IngestionError{Reason: ReasonSecretEmpty}
		}
		if shape == SecretServiceAccountJSON && !json.Valid([]byte(raw)) {
			return SecretBundle{}, nil, &IngestionError{Reason: ReasonMalformedCredential}
		}
		return SecretBundle{kind: bundleSingle, secrets: []string{raw}}, nil, nil
	}
}

// ingestCredentialFiles parses each file's text as JSON, fan-out/fan-in.
// A failing file is excluded rather than aborting the whole ingestion;
// the failing names are reported once each so the operator is not warned
// twice for the same file. Outside batch mode only the most recently
// selected file is retained; older selections are dropped silently.
func ingestCredentialFiles(mode SubmitMode, in IngestInput) (SecretBundle, []string, error) {
	files := in.Files
	if mode != ModeBatch && mode != ModeMultiToSingle && len(files) > 1 {
		files = files[len(files)-1:]
	}

	type result struct {
		content string
		ok      bool
	}
	results := make([]result, len(files))

	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func(i int, f CredentialFile) {
			defer wg.Done()
			var parsed map[string]any
			if err := json.Unmarshal([]byte(f.Content), &parsed); err != nil {
				return
			}
			compact, err := json.Marshal(parsed)
			if err != nil {
				return
			}
			results[i] = result{content: string(compact), ok: true}
		}(i, f)
	}
	wg.Wait()

	var secrets []string
	var failed []string
	seen := make(map[string]bool)
	for i, r := range results {
		if r.ok {
			secrets = append(secrets, r.content)
			continue
		}
		name := files[i].Name
		if !seen[name] {
			seen[name] = true
			failed = append(failed, name)
		}
	}

	if len(secrets) == 0 {
		if in.Edit {
			return SecretBundle{kind: bundleUnchanged}, failed, nil
		}
		reason := ReasonSecretEmpty
		if len(failed) > 0 {
			reason = ReasonMalformedCredential
		}
		return SecretBundle{}, failed, &IngestionError{Reason: reason, Files: failed}
	}
	return SecretBundle{kind: bundleCredentialFiles, secrets: secrets}, failed, nil
}
