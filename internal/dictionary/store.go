// Package dictionary loads and caches the constraint reference data:
// per-field allowed values, cardinality limits, the color taxonomy, and
// per-category generation configs.
package dictionary

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"cardgen/pkg/schema"
)

// Reference file names inside the data directory.
const (
	dictionaryFile = "generation_dictionary.json"
	limitsFile     = "limits.json"
	colorsFile     = "colors.json"
	configsDir     = "charcs"
)

// ConfigMissingError reports a category without a generation config.
// Recoverable by the caller; Available lists the configured categories.
type ConfigMissingError struct {
	CategoryID int64
	Available  []int64
}

func (e *ConfigMissingError) Error() string {
	return fmt.Sprintf("no category config for id %d (%d categories configured)",
		e.CategoryID, len(e.Available))
}

type colorEntry struct {
	Name       string `json:"name"`
	ParentName string `json:"parentName"`
}

// Store is the constraint dictionary loader. Data is read from disk once
// and memoized; Invalidate drops the cache so updated reference files are
// picked up without a restart. Safe for concurrent readers.
type Store struct {
	dataDir string

	mu      sync.RWMutex
	dict    map[string][]string
	limits  map[string]schema.Limit
	colors  []colorEntry
	configs map[int64]*schema.CategoryConfig
}

// NewStore creates a store over a data directory. Nothing is read until
// the first lookup.
func NewStore(dataDir string) *Store {
	return &Store{dataDir: dataDir}
}

// Invalidate drops all cached reference data.
func (s *Store) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dict = nil
	s.limits = nil
	s.colors = nil
	s.configs = nil
}

// AllowedValues returns the allowed-value list for each requested field.
// A field absent from the dictionary maps to an empty list, signaling free
// text. The color field is never included; it has its own taxonomy.
func (s *Store) AllowedValues(names []string) (map[string][]string, error) {
	dict, err := s.dictionary()
	if err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(names))
	for _, name := range names {
		if name == "" || name == schema.ColorField {
			continue
		}
		out[name] = dict[name] // nil for unknown fields: free text
	}
	return out, nil
}

// Limits returns the cardinality limit for each requested field. Fields
// without a configured limit map to the zero Limit (unbounded).
func (s *Store) Limits(names []string) (map[string]schema.Limit, error) {
	limits, err := s.limitTable()
	if err != nil {
		return nil, err
	}

	out := make(map[string]schema.Limit, len(names))
	for _, name := range names {
		if name == "" {
			continue
		}
		out[name] = limits[name]
	}
	return out, nil
}

// Limit returns the cardinality limit for one field.
func (s *Store) Limit(name string) (schema.Limit, error) {
	limits, err := s.limitTable()
	if err != nil {
		return schema.Limit{}, err
	}
	return limits[name], nil
}

// ColorGroups returns the sorted parent color names of the taxonomy.
func (s *Store) ColorGroups() ([]string, error) {
	colors, err := s.colorTable()
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	for _, c := range colors {
		if c.ParentName != "" {
			seen[c.ParentName] = true
		}
	}
	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups, nil
}

// ColorsByGroup returns the concrete color names under a parent group.
func (s *Store) ColorsByGroup(parent string) ([]string, error) {
	colors, err := s.colorTable()
	if err != nil {
		return nil, err
	}

	var names []string
	for _, c := range colors {
		if c.ParentName == parent && c.Name != "" {
			names = append(names, c.Name)
		}
	}
	return names, nil
}

// CategoryConfig returns the generation config for a category, or a
// ConfigMissingError naming the configured categories.
func (s *Store) CategoryConfig(id int64) (*schema.CategoryConfig, error) {
	s.mu.RLock()
	if cfg, ok := s.configs[id]; ok {
		s.mu.RUnlock()
		return cfg, nil
	}
	s.mu.RUnlock()

	path := filepath.Join(s.dataDir, configsDir, fmt.Sprintf("%d.yaml", id))
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		available, _ := s.AvailableCategoryIDs()
		return nil, &ConfigMissingError{CategoryID: id, Available: available}
	}
	if err != nil {
		return nil, fmt.Errorf("read category config %d: %w", id, err)
	}

	var cfg schema.CategoryConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse category config %d: %w", id, err)
	}
	if cfg.CategoryID == 0 {
		cfg.CategoryID = id
	}
	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("category config %d: %w", id, err)
	}

	s.mu.Lock()
	if s.configs == nil {
		s.configs = make(map[int64]*schema.CategoryConfig)
	}
	s.configs[id] = &cfg
	s.mu.Unlock()

	return &cfg, nil
}

// AvailableCategoryIDs lists the category ids that have a config file.
func (s *Store) AvailableCategoryIDs() ([]int64, error) {
	entries, err := os.ReadDir(filepath.Join(s.dataDir, configsDir))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list category configs: %w", err)
	}

	var ids []int64
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".yaml")
		if name == e.Name() {
			continue
		}
		id, err := strconv.ParseInt(name, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// validateConfig rejects malformed conditions. Conditional chains are kept
// single-level: a controlling field must not itself be conditional.
func validateConfig(cfg *schema.CategoryConfig) error {
	conditional := map[string]bool{}
	for _, a := range cfg.Attributes {
		if a.Conditional {
			conditional[a.Name] = true
		}
	}

	for _, a := range cfg.Attributes {
		if !a.Conditional {
			continue
		}
		if a.Condition == nil {
			return fmt.Errorf("attribute %q: is_conditional without a condition", a.Name)
		}
		switch a.Condition.Action {
		case schema.ActionSkip:
		case schema.ActionFill:
			if a.Condition.Field == "" || len(a.Condition.Values) == 0 {
				return fmt.Errorf("attribute %q: fill condition needs field and values", a.Name)
			}
			if conditional[a.Condition.Field] {
				return fmt.Errorf("attribute %q: controlling field %q is itself conditional",
					a.Name, a.Condition.Field)
			}
		default:
			return fmt.Errorf("attribute %q: unknown condition action %q", a.Name, a.Condition.Action)
		}
	}
	return nil
}

func (s *Store) dictionary() (map[string][]string, error) {
	s.mu.RLock()
	if s.dict != nil {
		s.mu.RUnlock()
		return s.dict, nil
	}
	s.mu.RUnlock()

	var dict map[string][]string
	if err := s.readJSON(dictionaryFile, &dict); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.dict = dict
	s.mu.Unlock()
	return dict, nil
}

func (s *Store) limitTable() (map[string]schema.Limit, error) {
	s.mu.RLock()
	if s.limits != nil {
		s.mu.RUnlock()
		return s.limits, nil
	}
	s.mu.RUnlock()

	var limits map[string]schema.Limit
	if err := s.readJSON(limitsFile, &limits); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.limits = limits
	s.mu.Unlock()
	return limits, nil
}

func (s *Store) colorTable() ([]colorEntry, error) {
	s.mu.RLock()
	if s.colors != nil {
		s.mu.RUnlock()
		return s.colors, nil
	}
	s.mu.RUnlock()

	var payload struct {
		Data []colorEntry `json:"data"`
	}
	if err := s.readJSON(colorsFile, &payload); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.colors = payload.Data
	s.mu.Unlock()
	return payload.Data, nil
}

func (s *Store) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dataDir, name))
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}
