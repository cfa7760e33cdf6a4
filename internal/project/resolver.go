// Package project maps caller-supplied project identifiers to on-disk
// directories via a committed index file, without fabricating entries for
// read-only lookups.
package project

import (
	"fmt"
	"path"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/starford/mimir/internal/storage"
)

// IndexFile is the id-to-slug mapping at the storage root.
const IndexFile = "index.yaml"

// projectsDir holds one subdirectory per project.
const projectsDir = "projects"

// Project is a resolved project: the caller-facing identifier plus the slug
// its directory is derived from.
type Project struct {
	ID   string `json:"id" yaml:"id"`
	Slug string `json:"slug" yaml:"slug"`
}

// Dir returns the project directory relative to the storage root.
func (p Project) Dir() string {
	return path.Join(projectsDir, p.Slug)
}

// MainFile returns the path of the project's main instructions document.
func (p Project) MainFile() string {
	return path.Join(p.Dir(), "main.md")
}

// KnowledgeDir returns the project's knowledge directory.
func (p Project) KnowledgeDir() string {
	return path.Join(p.Dir(), "knowledge")
}

// TodoDir returns the project's TODO directory.
func (p Project) TodoDir() string {
	return path.Join(p.Dir(), "TODO")
}

type indexDoc struct {
	Projects map[string]string `yaml:"projects"`
}

// Resolver resolves project identifiers against the committed index. Writes
// to the index are serialized through the shared locker.
type Resolver struct {
	store storage.Provider
	locks *storage.Locker
}

// NewResolver creates a Resolver over the given storage root.
func NewResolver(store storage.Provider, locks *storage.Locker) *Resolver {
	return &Resolver{store: store, locks: locks}
}

// ResolveForRead looks up id in the index without side effects. An unknown
// id returns ok=false; a read must never materialize a project ("no ghost
// entries").
func (r *Resolver) ResolveForRead(id string) (Project, bool, error) {
	idx, err := r.readIndex()
	if err != nil {
		return Project{}, false, err
	}
	slug, ok := idx[id]
	if !ok {
		return Project{}, false, nil
	}
	return Project{ID: id, Slug: slug}, true, nil
}

// ResolveForWrite returns the project for id, creating the index mapping on
// first use. Slugs are made unique by suffixing -1, -2, ... when distinct
// ids slugify identically. The mapping is idempotent: the same id always
// resolves to the same directory.
func (r *Resolver) ResolveForWrite(id string) (Project, error) {
	var p Project
	err := r.locks.WithLock(IndexFile, func() error {
		idx, err := r.readIndex()
		if err != nil {
			return err
		}
		if slug, ok := idx[id]; ok {
			p = Project{ID: id, Slug: slug}
			return nil
		}

		slug := Slugify(id)
		taken := make(map[string]struct{}, len(idx))
		for _, s := range idx {
			taken[s] = struct{}{}
		}
		base := slug
		for n := 1; ; n++ {
			if _, clash := taken[slug]; !clash {
				break
			}
			slug = fmt.Sprintf("%s-%d", base, n)
		}

		idx[id] = slug
		if err := r.writeIndex(idx); err != nil {
			return err
		}
		p = Project{ID: id, Slug: slug}
		return nil
	})
	return p, err
}

// Remove drops the index mapping for id. Missing ids are a no-op; the
// caller decides whether that is an error.
func (r *Resolver) Remove(id string) error {
	return r.locks.WithLock(IndexFile, func() error {
		idx, err := r.readIndex()
		if err != nil {
			return err
		}
		if _, ok := idx[id]; !ok {
			return nil
		}
		delete(idx, id)
		return r.writeIndex(idx)
	})
}

// List returns all known projects sorted by id.
func (r *Resolver) List() ([]Project, error) {
	idx, err := r.readIndex()
	if err != nil {
		return nil, err
	}
	out := make([]Project, 0, len(idx))
	for id, slug := range idx {
		out = append(out, Project{ID: id, Slug: slug})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Resolver) readIndex() (map[string]string, error) {
	ok, err := r.store.Exists(IndexFile)
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[string]string{}, nil
	}
	raw, err := r.store.Read(IndexFile)
	if err != nil {
		return nil, err
	}
	var doc indexDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("project: parse index: %w", err)
	}
	if doc.Projects == nil {
		doc.Projects = map[string]string{}
	}
	return doc.Projects, nil
}

func (r *Resolver) writeIndex(idx map[string]string) error {
	raw, err := yaml.Marshal(indexDoc{Projects: idx})
	if err != nil {
		return fmt.Errorf("project: encode index: %w", err)
	}
	return r.store.Write(IndexFile, raw)
}
