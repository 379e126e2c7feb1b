// Copyright 2026 The channelforge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package store provides sqlite-backed persistence for channel records.
// It implements the engine's Persister contract: batch creation expands
// one record per key inside a single transaction, aggregation keeps one
// record whose key field is the serialized key array.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	log "github.com/sirupsen/logrus"

	"github.com/traylinx/channelforge/internal/channel"
)

const schema = `
CREATE TABLE IF NOT EXISTS channels (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type INTEGER NOT NULL,
	name TEXT NOT NULL,
	base_url TEXT NOT NULL DEFAULT '',
	key TEXT NOT NULL DEFAULT '',
	other TEXT NOT NULL DEFAULT '',
	openai_organization TEXT NOT NULL DEFAULT '',
	max_input_tokens INTEGER NOT NULL DEFAULT 0,
	test_model TEXT NOT NULL DEFAULT '',
	tag TEXT NOT NULL DEFAULT '',
	models TEXT NOT NULL DEFAULT '',
	"group" TEXT NOT NULL DEFAULT '',
	model_mapping TEXT NOT NULL DEFAULT '',
	status_code_mapping TEXT NOT NULL DEFAULT '',
	setting TEXT NOT NULL DEFAULT '',
	param_override TEXT NOT NULL DEFAULT '',
	audit_enabled INTEGER NOT NULL DEFAULT 0,
	audit_categories TEXT NOT NULL DEFAULT '[]',
	audit_apikey TEXT NOT NULL DEFAULT '',
	audit_url TEXT NOT NULL DEFAULT '',
	audit_model TEXT NOT NULL DEFAULT '',
	billing_supplement TEXT NOT NULL DEFAULT '[]',
	priority INTEGER NOT NULL DEFAULT 0,
	weight INTEGER NOT NULL DEFAULT 0,
	auto_ban INTEGER NOT NULL DEFAULT 1,
	is_convert_role INTEGER NOT NULL DEFAULT 2
);
CREATE INDEX IF NOT EXISTS idx_channels_type ON channels(type);
CREATE INDEX IF NOT EXISTS idx_channels_tag ON channels(tag);
`

const channelColumns = `type, name, base_url, key, other, openai_organization, max_input_tokens,
	test_model, tag, models, "group", model_mapping, status_code_mapping, setting,
	param_override, audit_enabled, audit_categories, audit_apikey, audit_url,
	audit_model, billing_supplement, priority, weight, auto_ban, is_convert_role`

// ChannelStore persists channel records in sqlite.
type ChannelStore struct {
	db *sql.DB
}

// Open opens (and creates if needed) the sqlite database at path and
// bootstraps the schema.
func Open(path string) (*ChannelStore, error) {
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	log.Debugf("channel store opened at %s", path)
	return &ChannelStore{db: db}, nil
}

// NewWithDB wraps an existing database handle; the schema is assumed to
// exist. Used by tests.
func NewWithDB(db *sql.DB) *ChannelStore {
	return &ChannelStore{db: db}
}

// Close closes the underlying database.
func (s *ChannelStore) Close() error {
	return s.db.Close()
}

func insertArgs(rec channel.OutboundChannel, key string) []any {
	return []any{
		rec.Type, rec.Name, rec.BaseURL, key, rec.Other, rec.Organization,
		rec.MaxInputTokens, rec.TestModel, rec.Tag, rec.Models, rec.Group,
		rec.ModelMapping, rec.StatusCodeMapping, rec.Setting, rec.ParamOverride,
		rec.AuditEnabled, rec.AuditCategories, rec.AuditAPIKey, rec.AuditURL,
		rec.AuditModel, rec.BillingSupplement, rec.Priority, rec.Weight,
		rec.AutoBan, rec.IsConvertRole,
	}
}

const insertQuery = `INSERT INTO channels (` + channelColumns + `) VALUES
	(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// CreateChannel persists an assembled creation. Batch mode expands to one
// row per key inside a single transaction so a failure never leaves a
// partial batch behind.
func (s *ChannelStore) CreateChannel(ctx context.Context, res *channel.AssembleResult) error {
	if res.Mode != channel.ModeBatch {
		_, err := s.db.ExecContext(ctx, insertQuery, insertArgs(res.Channel, res.Channel.Key)...)
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, key := range res.Keys() {
		if _, err := tx.ExecContext(ctx, insertQuery, insertArgs(res.Channel, key)...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// UpdateChannel rewrites the stored record. A blank key means the
// operator left the secret unchanged and the stored value is kept.
func (s *ChannelStore) UpdateChannel(ctx context.Context, res *channel.AssembleResult) error {
	rec := res.Channel
	keyClause := ", key = ?"
	args := []any{
		rec.Type, rec.Name, rec.BaseURL, rec.Other, rec.Organization,
		rec.MaxInputTokens, rec.TestModel, rec.Tag, rec.Models, rec.Group,
		rec.ModelMapping, rec.StatusCodeMapping, rec.Setting, rec.ParamOverride,
		rec.AuditEnabled, rec.AuditCategories, rec.AuditAPIKey, rec.AuditURL,
		rec.AuditModel, rec.BillingSupplement, rec.Priority, rec.Weight,
		rec.AutoBan, rec.IsConvertRole,
	}
	if res.Bundle.Unchanged() {
		keyClause = ""
	} else {
		args = append(args, rec.Key)
	}
	args = append(args, rec.ID)

	query := `UPDATE channels SET type = ?, name = ?, base_url = ?, other = ?,
	openai_organization = ?, max_input_tokens = ?, test_model = ?, tag = ?,
	models = ?, "group" = ?, model_mapping = ?, status_code_mapping = ?,
	setting = ?, param_override = ?, audit_enabled = ?, audit_categories = ?,
	audit_apikey = ?, audit_url = ?, audit_model = ?, billing_supplement = ?,
	priority = ?, weight = ?, auto_ban = ?, is_convert_role = ?` + keyClause + ` WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanChannel(row interface{ Scan(dest ...any) error }) (channel.OutboundChannel, error) {
	var rec channel.OutboundChannel
	err := row.Scan(
		&rec.ID, &rec.Type, &rec.Name, &rec.BaseURL, &rec.Key, &rec.Other,
		&rec.Organization, &rec.MaxInputTokens, &rec.TestModel, &rec.Tag,
		&rec.Models, &rec.Group, &rec.ModelMapping, &rec.StatusCodeMapping,
		&rec.Setting, &rec.ParamOverride, &rec.AuditEnabled, &rec.AuditCategories,
		&rec.AuditAPIKey, &rec.AuditURL, &rec.AuditModel, &rec.BillingSupplement,
		&rec.Priority, &rec.Weight, &rec.AutoBan, &rec.IsConvertRole,
	)
	return rec, err
}

// GetChannel fetches one channel by id.
func (s *ChannelStore) GetChannel(ctx context.Context, id int64) (channel.OutboundChannel, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, `+channelColumns+` FROM channels WHERE id = ?`, id)
	return scanChannel(row)
}

// ListChannels returns all channels ordered by id.
func (s *ChannelStore) ListChannels(ctx context.Context) ([]channel.OutboundChannel, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, `+channelColumns+` FROM channels ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []channel.OutboundChannel
	for rows.Next() {
		rec, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteChannel removes one channel by id.
func (s *ChannelStore) DeleteChannel(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM channels WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
