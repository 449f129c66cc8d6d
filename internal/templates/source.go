// Package templates loads and validates team templates from YAML files.
// Templates are cached after first load; a file watcher invalidates the
// cache when a template on disk changes.
package templates

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/ShayCichocki/squad/pkg/models"
)

// ErrTemplateNotFound is returned when no template exists for an id.
var ErrTemplateNotFound = errors.New("template not found")

// ErrTemplateInvalid is returned when a template fails validation.
var ErrTemplateInvalid = errors.New("template invalid")

// RoleSet reports whether a role is known. The composer's registry
// satisfies this; the indirection keeps this package free of a composer
// dependency.
type RoleSet interface {
	Known(role string) bool
}

// Source loads templates by id, merging built-in templates with YAML
// files from an optional templates directory. Disk templates shadow
// built-ins with the same id.
type Source struct {
	dir   string
	roles RoleSet

	mu    sync.RWMutex
	cache map[string]*models.Template

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewSource creates a Source over the given directory. An empty dir
// serves built-ins only. The watcher is best-effort: when it cannot be
// created the source still works, it just serves possibly stale cache
// entries until Invalidate is called.
func NewSource(dir string, roles RoleSet) (*Source, error) {
	s := &Source{
		dir:   dir,
		roles: roles,
		cache: make(map[string]*models.Template),
		done:  make(chan struct{}),
	}

	if dir == "" {
		return s, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create templates directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return s, nil
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return s, nil
	}
	s.watcher = watcher
	go s.watch()

	return s, nil
}

// Close stops the file watcher.
func (s *Source) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

// watch invalidates cached templates when their files change.
func (s *Source) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			id := strings.TrimSuffix(filepath.Base(event.Name), ".yaml")
			s.Invalidate(id)
		case <-s.watcher.Errors:
			// Keep watching; a watch error only risks staleness.
		}
	}
}

// Invalidate drops a template from the cache so the next Load re-reads it.
func (s *Source) Invalidate(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, id)
}

// Load returns the validated template for an id. Built-ins are shadowed
// by a same-id file on disk.
func (s *Source) Load(id string) (*models.Template, error) {
	s.mu.RLock()
	if tmpl, ok := s.cache[id]; ok {
		s.mu.RUnlock()
		return tmpl, nil
	}
	s.mu.RUnlock()

	tmpl, err := s.load(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[id] = tmpl
	s.mu.Unlock()
	return tmpl, nil
}

func (s *Source) load(id string) (*models.Template, error) {
	if s.dir != "" {
		path := filepath.Join(s.dir, id+".yaml")
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			tmpl, err := Parse(data)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrTemplateInvalid, id, err)
			}
			if err := Validate(tmpl, s.roles); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrTemplateInvalid, id, err)
			}
			return tmpl, nil
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("read template %s: %w", id, err)
		}
	}

	if tmpl, ok := builtins()[id]; ok {
		if err := Validate(tmpl, s.roles); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrTemplateInvalid, id, err)
		}
		return tmpl, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
}

// List returns summaries for every available template, built-ins included,
// sorted by id.
func (s *Source) List() ([]models.TemplateSummary, error) {
	byID := make(map[string]models.TemplateSummary)
	for id, tmpl := range builtins() {
		byID[id] = summarize(tmpl)
	}

	if s.dir != "" {
		entries, err := os.ReadDir(s.dir)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("list templates: %w", err)
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, ".yaml") {
				continue
			}
			id := strings.TrimSuffix(name, ".yaml")
			tmpl, err := s.Load(id)
			if err != nil {
				// A broken file on disk must not hide the others.
				continue
			}
			byID[id] = summarize(tmpl)
		}
	}

	out := make([]models.TemplateSummary, 0, len(byID))
	for _, sum := range byID {
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func summarize(tmpl *models.Template) models.TemplateSummary {
	return models.TemplateSummary{
		ID:        tmpl.ID,
		Name:      tmpl.Name,
		Strategy:  tmpl.Strategy,
		RuleCount: len(tmpl.Rules),
	}
}
