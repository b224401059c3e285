// Package schemas compiles the stored submission payload schemas and
// validates documents against them.
package schemas

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/garnizeh/pqrs/pkg/repository"
	"github.com/qri-io/jsonschema"
)

// CurrentVersion is the payload schema the receiving endpoint enforces.
const CurrentVersion = "v1"

// Loader loads and caches compiled JSON schemas from the repository.
type Loader struct {
	repo  repository.SchemaRepo
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

func NewLoader(ctx context.Context, r repository.SchemaRepo) (*Loader, error) {
	l := &Loader{
		repo:  r,
		cache: make(map[string]*jsonschema.Schema),
	}
	if err := l.Reload(ctx); err != nil {
		return nil, err
	}

	return l, nil
}

// GetSchema returns a compiled schema for a version.
func (l *Loader) GetSchema(version string) (*jsonschema.Schema, bool) {
	l.mu.RLock()
	s, ok := l.cache[version]
	l.mu.RUnlock()

	return s, ok
}

// Reload loads all schemas from the DB and compiles them.
func (l *Loader) Reload(ctx context.Context) error {
	rows, err := l.repo.ListSchemas(ctx)
	if err != nil {
		return fmt.Errorf("load schemas: %w", err)
	}

	newCache := make(map[string]*jsonschema.Schema, len(rows))
	for _, r := range rows {
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal([]byte(r.SchemaJSON), rs); err != nil {
			return fmt.Errorf("compile schema %s: %w", r.Version, err)
		}
		newCache[r.Version] = rs
	}

	l.mu.Lock()
	l.cache = newCache
	l.mu.Unlock()
	return nil
}

// Validate checks doc against the schema of version and returns one line per
// violation. An empty result means the document is valid.
func (l *Loader) Validate(ctx context.Context, version string, doc []byte) ([]string, error) {
	s, ok := l.GetSchema(version)
	if !ok {
		return nil, fmt.Errorf("unknown payload schema %q", version)
	}

	verrs, err := s.ValidateBytes(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("validate payload: %w", err)
	}

	problems := make([]string, 0, len(verrs))
	for _, ve := range verrs {
		if ve.PropertyPath != "" && ve.PropertyPath != "/" {
			problems = append(problems, ve.PropertyPath+": "+ve.Message)
			continue
		}
		problems = append(problems, ve.Message)
	}
	return problems, nil
}
