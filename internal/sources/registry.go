// Package sources keeps the list of configured app sources and mirrors their
// manifests into the apps root.
package sources

import (
	"fmt"
	"sync"

	"launcher/internal/jsonfile"
	"launcher/internal/paths"
	"launcher/pkg/appspec"
)

// IsReserved reports whether name belongs to the official or local source.
func IsReserved(name string) bool {
	return name == paths.OfficialSource || name == paths.LocalSource
}

// Registry is the in-memory source list, persisted to sources-versioned.json.
// The official source is implicit and never persisted.
type Registry struct {
	layout   paths.Layout
	official appspec.Source

	mu         sync.Mutex
	loaded     bool
	sources    []appspec.Source
	batchDepth int
}

// NewRegistry returns an unloaded registry. Load happens on first use unless
// Load is called explicitly.
func NewRegistry(layout paths.Layout, officialURL string) *Registry {
	return &Registry{
		layout:   layout,
		official: appspec.Source{Name: paths.OfficialSource, URL: officialURL},
	}
}

// Load reads the persisted source list, replacing any in-memory state.
func (r *Registry) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked()
}

func (r *Registry) loadLocked() error {
	var file appspec.VersionedSources
	if _, err := jsonfile.ReadOr(r.layout.SourcesFile, &file); err != nil {
		return fmt.Errorf("load sources: %w", err)
	}

	r.sources = r.sources[:0]
	for _, src := range file.V1 {
		if IsReserved(src.Name) || appspec.CheckName(src.Name) != nil {
			continue
		}
		r.upsertLocked(src)
	}
	r.loaded = true
	return nil
}

func (r *Registry) ensureLoadedLocked() error {
	if r.loaded {
		return nil
	}
	return r.loadLocked()
}

// All returns a snapshot of every source, official first.
func (r *Registry) All() ([]appspec.Source, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoadedLocked(); err != nil {
		return nil, err
	}

	out := make([]appspec.Source, 0, len(r.sources)+1)
	out = append(out, r.official)
	return append(out, r.sources...), nil
}

// Get looks up a source by name.
func (r *Registry) Get(name string) (appspec.Source, bool, error) {
	if name == paths.OfficialSource {
		return r.official, true, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoadedLocked(); err != nil {
		return appspec.Source{}, false, err
	}
	for _, src := range r.sources {
		if src.Name == name {
			return src, true, nil
		}
	}
	return appspec.Source{}, false, nil
}

// Add inserts or replaces a source by name and persists the list.
func (r *Registry) Add(src appspec.Source) error {
	if IsReserved(src.Name) {
		return &ReservedNameError{Op: "add", Name: src.Name}
	}
	if err := appspec.CheckName(src.Name); err != nil {
		return fmt.Errorf("add source: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoadedLocked(); err != nil {
		return err
	}
	r.upsertLocked(src)
	return r.persistLocked()
}

// Remove deletes a source by name and persists the list. Removing an unknown
// source is a no-op.
func (r *Registry) Remove(name string) error {
	if IsReserved(name) {
		return &ReservedNameError{Op: "remove", Name: name}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.ensureLoadedLocked(); err != nil {
		return err
	}
	kept := r.sources[:0]
	for _, src := range r.sources {
		if src.Name != name {
			kept = append(kept, src)
		}
	}
	r.sources = kept
	return r.persistLocked()
}

// Batch runs fn with persistence deferred; the list is written once when fn
// returns, even if fn fails after mutating it.
func (r *Registry) Batch(fn func() error) error {
	r.mu.Lock()
	r.batchDepth++
	r.mu.Unlock()

	fnErr := fn()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.batchDepth--
	persistErr := r.persistLocked()
	if fnErr != nil {
		return fnErr
	}
	return persistErr
}

func (r *Registry) upsertLocked(src appspec.Source) {
	for i := range r.sources {
		if r.sources[i].Name == src.Name {
			r.sources[i] = src
			return
		}
	}
	r.sources = append(r.sources, src)
}

func (r *Registry) persistLocked() error {
	if r.batchDepth > 0 {
		return nil
	}
	file := appspec.VersionedSources{V1: append([]appspec.Source{}, r.sources...)}
	if err := jsonfile.Write(r.layout.SourcesFile, file); err != nil {
		return fmt.Errorf("persist sources: %w", err)
	}
	return nil
}
