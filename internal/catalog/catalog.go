// Copyright 2026 The channelforge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package catalog provides the model and group catalogs consumed by the
// channel configuration engine. The file-backed implementation reads a
// YAML catalog and hot-reloads it when the file changes on disk.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/traylinx/channelforge/internal/channel"
)

// ModelCatalog lists the models the gateway knows about.
type ModelCatalog interface {
	ListAvailableModels() []string
	ListModelsForType(t channel.ProviderType) []string
}

// GroupCatalog lists the user groups a channel can serve.
type GroupCatalog interface {
	ListGroups() []string
}

type catalogFile struct {
	Models     []string         `yaml:"models"`
	TypeModels map[int][]string `yaml:"type-models"`
	Groups     []string         `yaml:"groups"`
}

// FileCatalog is a YAML-backed catalog with optional fsnotify reload.
type FileCatalog struct {
	path    string
	mu      sync.RWMutex
	data    catalogFile
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFileCatalog loads the catalog from path. The file must exist and
// parse; reloads after that are best-effort.
func NewFileCatalog(path string) (*FileCatalog, error) {
	c := &FileCatalog{path: path, done: make(chan struct{})}
	if err := c.load(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *FileCatalog) load() error {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return fmt.Errorf("failed to read catalog file: %w", err)
	}
	var data catalogFile
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return fmt.Errorf("failed to parse catalog file: %w", err)
	}
	c.mu.Lock()
	c.data = data
	c.mu.Unlock()
	return nil
}

// Watch starts watching the catalog file's directory and reloads on
// change. A reload that fails keeps the previous catalog.
func (c *FileCatalog) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(c.path)); err != nil {
		watcher.Close()
		return err
	}
	c.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(c.path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := c.load(); err != nil {
					log.Warnf("catalog reload failed, keeping previous catalog: %v", err)
					continue
				}
				log.Debugf("catalog reloaded from %s", c.path)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warnf("catalog watcher error: %v", err)
			case <-c.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the watcher if one is running.
func (c *FileCatalog) Close() {
	close(c.done)
	if c.watcher != nil {
		c.watcher.Close()
	}
}

// ListAvailableModels returns every model in the catalog.
func (c *FileCatalog) ListAvailableModels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.data.Models...)
}

// ListModelsForType returns the default model list for a provider type.
func (c *FileCatalog) ListModelsForType(t channel.ProviderType) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.data.TypeModels[int(t)]...)
}

// ListGroups returns the configured user groups.
func (c *FileCatalog) ListGroups() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.data.Groups...)
}
