// Copyright 2021 The Rode Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package schema

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/rode/es-relation/go/v1beta1/storage/esutil"
	"github.com/rode/es-relation/go/v1beta1/storage/query"
	"github.com/rode/es-relation/go/v1beta1/storage/result"
)

const alreadyExists = "resource_already_exists_exception"

// VersionedMapping is the content of a mapping file: the mapping itself and the version
// that is part of the physical index name.
type VersionedMapping struct {
	Version  string                 `json:"version"`
	Mappings map[string]interface{} `json:"mappings"`
}

// Manager knows the mapping of every index the relations are built on.
type Manager struct {
	logger *zap.Logger
	client esutil.Client

	mu       sync.RWMutex
	mappings map[string]*VersionedMapping
}

func NewManager(logger *zap.Logger, client esutil.Client) *Manager {
	return &Manager{
		logger:   logger,
		client:   client,
		mappings: map[string]*VersionedMapping{},
	}
}

var (
	ioutilReadDir  = ioutil.ReadDir
	ioutilReadFile = ioutil.ReadFile
)

// LoadMappings reads one `<name>.json` file per index. Every unreadable file is reported.
func (m *Manager) LoadMappings(mappingsDir string) error {
	log := m.logger.Named("LoadMappings").With(zap.String("dir", mappingsDir))

	files, err := ioutilReadDir(mappingsDir)
	if err != nil {
		return err
	}

	var loadErr error
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".json" {
			continue
		}

		name := strings.TrimSuffix(file.Name(), filepath.Ext(file.Name()))
		versionedMappingJson, err := ioutilReadFile(filepath.Join(mappingsDir, file.Name()))
		if err != nil {
			loadErr = multierror.Append(loadErr, err)
			continue
		}

		var mapping VersionedMapping
		if err := json.Unmarshal(versionedMappingJson, &mapping); err != nil {
			loadErr = multierror.Append(loadErr, fmt.Errorf("error parsing mapping %s: %s", name, err))
			continue
		}

		m.AddMapping(name, &mapping)
		log.Info("loaded mapping", zap.String("name", name), zap.String("version", mapping.Version))
	}

	return loadErr
}

func (m *Manager) AddMapping(name string, mapping *VersionedMapping) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.mappings[name] = mapping
}

func (m *Manager) Mapping(name string) (*VersionedMapping, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	mapping, ok := m.mappings[name]

	return mapping, ok
}

// IndexName is the physical index behind the alias `name`.
func (m *Manager) IndexName(name string) string {
	mapping, ok := m.Mapping(name)
	if !ok || mapping.Version == "" {
		return name
	}

	return fmt.Sprintf("%s-%s", name, mapping.Version)
}

// Types returns the mapping type of every top level field. Fields that only declare
// properties are objects.
func (m *Manager) Types(name string) map[string]string {
	mapping, ok := m.Mapping(name)
	if !ok {
		return nil
	}

	properties, _ := mapping.Mappings["properties"].(map[string]interface{})
	types := make(map[string]string, len(properties))
	for field, definition := range properties {
		d, _ := definition.(map[string]interface{})
		switch t := d["type"].(type) {
		case string:
			types[field] = t
		default:
			if _, ok := d["properties"]; ok {
				types[field] = "object"
			} else {
				types[field] = ""
			}
		}
	}

	return types
}

// Columns returns the top level fields of an index, sorted.
func (m *Manager) Columns(name string) []string {
	types := m.Types(name)
	columns := make([]string, 0, len(types))
	for column := range types {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	return columns
}

// Casters returns a multicast caster per column, so list values of a field are cast too.
func (m *Manager) Casters(name string) map[string]result.Caster {
	types := m.Types(name)
	casters := make(map[string]result.Caster, len(types))
	for column, mappingType := range types {
		casters[column] = result.MulticastForType(mappingType)
	}

	return casters
}

// CreateIndex creates the physical index with its mapping and the alias `name`. An index
// that already exists is not an error.
func (m *Manager) CreateIndex(ctx context.Context, name string) error {
	index := m.IndexName(name)
	log := m.logger.Named("CreateIndex").With(zap.String("index", index))

	mapping, ok := m.Mapping(name)
	if !ok {
		return fmt.Errorf("no mapping found for %s", name)
	}

	q := query.New(index, query.KindIndexCreate)
	q.Assign("mappings", mapping.Mappings)
	if index != name {
		q.Assign("aliases", map[string]interface{}{
			name: map[string]interface{}{},
		})
	}

	if _, err := m.client.Execute(ctx, q); err != nil {
		var responseErr *esutil.ResponseError
		if errors.As(err, &responseErr) && responseErr.Type == alreadyExists {
			log.Info("index already exists")
			return nil
		}

		return fmt.Errorf("error creating index %s: %w", index, err)
	}

	log.Info("index created")

	return nil
}

func (m *Manager) DeleteIndex(ctx context.Context, name string) error {
	if _, err := m.client.Execute(ctx, query.New(m.IndexName(name), query.KindIndexDelete)); err != nil {
		return fmt.Errorf("error deleting index %s: %w", name, err)
	}

	return nil
}

// Refresh makes recent writes to the index visible to searches.
func (m *Manager) Refresh(ctx context.Context, name string) error {
	if _, err := m.client.Execute(ctx, query.New(name, query.KindIndexRefresh)); err != nil {
		return fmt.Errorf("error refreshing index %s: %w", name, err)
	}

	return nil
}

// FetchMapping reads the live mapping of an index and keeps it under `name`.
func (m *Manager) FetchMapping(ctx context.Context, name string) (*VersionedMapping, error) {
	log := m.logger.Named("FetchMapping").With(zap.String("name", name))

	response, err := m.client.Execute(ctx, query.New(name, query.KindIndexMapping))
	if err != nil {
		return nil, fmt.Errorf("error fetching mapping of %s: %w", name, err)
	}

	// the response is keyed by the physical index, which differs from name for aliases
	for index, value := range response {
		body, _ := value.(map[string]interface{})
		mappings, ok := body["mappings"].(map[string]interface{})
		if !ok {
			continue
		}

		mapping := &VersionedMapping{Mappings: mappings}
		if existing, ok := m.Mapping(name); ok {
			mapping.Version = existing.Version
		}
		m.AddMapping(name, mapping)
		log.Debug("fetched mapping", zap.String("index", index))

		return mapping, nil
	}

	return nil, fmt.Errorf("no mapping returned for %s", name)
}
