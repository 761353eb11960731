// Package definitions keeps the registries built from a directory of
// definition files.
package definitions

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	settings "github.com/goliatone/go-settings"
)

// Factory builds the registry of a loaded definition.
type Factory func(def *settings.Definition) (*settings.Registry, error)

var extensions = map[string]bool{".json": true, ".yaml": true, ".yml": true, ".hjson": true}

// Catalog maps option groups to registries. Reads and reloads may run
// concurrently.
type Catalog struct {
	dir     string
	factory Factory

	mu         sync.RWMutex
	registries map[string]*settings.Registry
	files      map[string]string

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewCatalog returns an empty catalog reading from dir.
func NewCatalog(dir string, factory Factory) *Catalog {
	if factory == nil {
		factory = func(def *settings.Definition) (*settings.Registry, error) {
			return settings.NewRegistry(def)
		}
	}
	return &Catalog{
		dir:        dir,
		factory:    factory,
		registries: make(map[string]*settings.Registry),
		files:      make(map[string]string),
	}
}

// Dir returns the watched directory.
func (c *Catalog) Dir() string {
	return c.dir
}

// Load reads every definition file in the directory. Broken files are
// reported together; the others stay loaded.
func (c *Catalog) Load() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return fmt.Errorf("definitions: read %s: %w", c.dir, err)
	}
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !supported(entry.Name()) {
			continue
		}
		if err := c.LoadFile(filepath.Join(c.dir, entry.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LoadFile parses one file and installs or replaces its registry.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("definitions: read %s: %w", path, err)
	}
	def, err := settings.LoadDefinition(path, data)
	if err != nil {
		return fmt.Errorf("definitions: %s: %w", filepath.Base(path), err)
	}
	registry, err := c.factory(def)
	if err != nil {
		return fmt.Errorf("definitions: %s: %w", filepath.Base(path), err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if owner, ok := c.fileOf(registry.Group()); ok && owner != path {
		return fmt.Errorf("definitions: option group %q already defined by %s", registry.Group(), filepath.Base(owner))
	}
	if previous, ok := c.files[path]; ok && previous != registry.Group() {
		delete(c.registries, previous)
	}
	c.registries[registry.Group()] = registry
	c.files[path] = registry.Group()

	logrus.WithFields(logrus.Fields{"group": registry.Group(), "file": filepath.Base(path)}).Info("Loaded settings definition")
	return nil
}

// Add installs a registry that was not loaded from a file.
func (c *Catalog) Add(registry *settings.Registry) error {
	if registry == nil {
		return fmt.Errorf("definitions: registry is required")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.registries[registry.Group()]; ok {
		return fmt.Errorf("definitions: option group %q already registered", registry.Group())
	}
	c.registries[registry.Group()] = registry
	return nil
}

// Get returns the registry of group.
func (c *Catalog) Get(group string) (*settings.Registry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	registry, ok := c.registries[group]
	return registry, ok
}

// Groups lists the loaded option groups in order.
func (c *Catalog) Groups() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	groups := make([]string, 0, len(c.registries))
	for group := range c.registries {
		groups = append(groups, group)
	}
	sort.Strings(groups)
	return groups
}

func (c *Catalog) remove(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	group, ok := c.files[path]
	if !ok {
		return
	}
	delete(c.files, path)
	delete(c.registries, group)
	logrus.WithField("group", group).Info("Removed settings definition")
}

func (c *Catalog) fileOf(group string) (string, bool) {
	for path, g := range c.files {
		if g == group {
			return path, true
		}
	}
	if _, ok := c.registries[group]; ok {
		return "", true
	}
	return "", false
}

// Watch reloads files as they change until ctx is done or Close is called.
func (c *Catalog) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("definitions: create watcher: %w", err)
	}
	if err := watcher.Add(c.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("definitions: watch %s: %w", c.dir, err)
	}
	c.watcher = watcher
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				c.handle(event)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logrus.WithError(err).Warn("Definition watcher error")
			}
		}
	}()

	logrus.WithField("dir", c.dir).Info("Watching settings definitions")
	return nil
}

func (c *Catalog) handle(event fsnotify.Event) {
	if !supported(event.Name) {
		return
	}
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		c.remove(event.Name)
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		if err := c.LoadFile(event.Name); err != nil {
			logrus.WithError(err).Warn("Failed to reload settings definition")
		}
	}
}

// Close stops the watcher.
func (c *Catalog) Close() error {
	if c.watcher == nil {
		return nil
	}
	err := c.watcher.Close()
	<-c.done
	c.watcher = nil
	return err
}

func supported(name string) bool {
	return extensions[strings.ToLower(filepath.Ext(name))]
}
