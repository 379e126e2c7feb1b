package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIngest_Single(t *testing.T) {
	b, failed, err := Ingest(ModeSingle, SecretPlainKey, IngestInput{Raw: "sk-abc"})
	require.NoError(t, err)
	assert.Empty(t, failed)
	assert.Equal(t, []string{"sk-abc"}, b.Secrets())
	assert.Equal(t, "sk-abc", b.KeyField(ModeSingle))
}

func TestIngest_SingleEmpty(t *testing.T) {
	_, _, err := Ingest(ModeSingle, SecretPlainKey, IngestInput{})
	var ierr *IngestionError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, ReasonSecretEmpty, ierr.Reason)

	// Edit mode: blank secret means "leave unchanged".
	b, _, err := Ingest(ModeSingle, SecretPlainKey, IngestInput{Edit: true})
	require.NoError(t, err)
	assert.True(t, b.Unchanged())
	assert.Empty(t, b.KeyField(ModeSingle))
}

func TestIngest_SingleMalformedServiceAccount(t *testing.T) {
	_, _, err := Ingest(ModeSingle, SecretServiceAccountJSON, IngestInput{Raw: "not-json"})
	var ierr *IngestionError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, ReasonMalformedCredential, ierr.Reason)

	_, _, err = Ingest(ModeSingle, SecretServiceAccountJSON, IngestInput{Raw: `{"type":"service_account"}`})
	assert.NoError(t, err)
}

func TestIngest_BatchSplitsLines(t *testing.T) {
	raw := "sk-one\n\n  sk-two  \nsk-three\n"
	b, _, err := Ingest(ModeBatch, SecretPlainKey, IngestInput{Raw: raw})
	require.NoError(t, err)
	assert.Equal(t, []string{"sk-one", "sk-two", "sk-three"}, b.Secrets())
	assert.Equal(t, "sk-one\nsk-two\nsk-three", b.KeyField(ModeBatch))
}

func TestIngest_MultiToSingleKeyFieldIsJSONArray(t *testing.T) {
	b, _, err := Ingest(ModeMultiToSingle, SecretPlainKey, IngestInput{Raw: "k1\nk2"})
	require.NoError(t, err)
	assert.Equal(t, `["k1","k2"]`, b.KeyField(ModeMultiToSingle))
	assert.Equal(t, []string{"k1", "k2"}, DecodeAggregatedKeys(b.KeyField(ModeMultiToSingle)))
	assert.Nil(t, DecodeAggregatedKeys("sk-plain"))
}

func TestIngest_CredentialFilesPartialFailure(t *testing.T) {
	files := []CredentialFile{
		{Name: "a.json", Content: `{"project_id":"a"}`},
		{Name: "b.json", Content: `{broken`},
		{Name: "c.json", Content: `{"project_id":"c"}`},
	}
	b, failed, err := Ingest(ModeBatch, SecretServiceAccountJSON, IngestInput{Files: files})
	require.NoError(t, err)
	assert.Len(t, b.Secrets(), 2)
	assert.Equal(t, []string{"b.json"}, failed)

	// Invoked twice with the same file list: still one notification per file.
	b, failed, err = Ingest(ModeBatch, SecretServiceAccountJSON, IngestInput{Files: files})
	require.NoError(t, err)
	assert.Len(t, b.Secrets(), 2)
	assert.Equal(t, []string{"b.json"}, failed)
}

func TestIngest_CredentialFilesDuplicateNameReportedOnce(t *testing.T) {
	files := []CredentialFile{
		{Name: "dup.json", Content: `{broken`},
		{Name: "ok.json", Content: `{}`},
		{Name: "dup.json", Content: `also broken`},
	}
	b, failed, err := Ingest(ModeBatch, SecretServiceAccountJSON, IngestInput{Files: files})
	require.NoError(t, err)
	assert.Len(t, b.Secrets(), 1)
	assert.Equal(t, []string{"dup.json"}, failed)
}

func TestIngest_CredentialFilesNonBatchKeepsLastOnly(t *testing.T) {
	files := []CredentialFile{
		{Name: "old.json", Content: `{"project_id":"old"}`},
		{Name: "new.json", Content: `{"project_id":"new"}`},
	}
	b, failed, err := Ingest(ModeSingle, SecretServiceAccountJSON, IngestInput{Files: files})
	require.NoError(t, err)
	assert.Empty(t, failed)
	require.Len(t, b.Secrets(), 1)
	assert.Contains(t, b.Secrets()[0], "new")
}

func TestIngest_CredentialFilesAllFailing(t *testing.T) {
	files := []CredentialFile{{Name: "bad.json", Content: "nope"}}
	_, failed, err := Ingest(ModeBatch, SecretServiceAccountJSON, IngestInput{Files: files})
	var ierr *IngestionError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, ReasonMalformedCredential, ierr.Reason)
	assert.Equal(t, []string{"bad.json"}, failed)
}
