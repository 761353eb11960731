// Package openapi describes the HTTP surface of one option group, its stored
// values included, as an OpenAPI 3 document.
package openapi

import (
	"fmt"
	"strings"

	settings "github.com/goliatone/go-settings"
)

// Generator builds OpenAPI documents. It is immutable after NewGenerator and
// safe for concurrent use.
type Generator struct {
	specVersion string
	title       string
	version     string
	description string
	basePath    string
	root        string
}

// Option configures a Generator.
type Option func(*Generator)

// WithSpecVersion overrides the "openapi" version string, 3.0.3 by default.
func WithSpecVersion(version string) Option {
	return func(g *Generator) {
		if version != "" {
			g.specVersion = version
		}
	}
}

// WithTitle sets info.title.
func WithTitle(title string) Option {
	return func(g *Generator) {
		if title != "" {
			g.title = title
		}
	}
}

// WithVersion sets info.version.
func WithVersion(version string) Option {
	return func(g *Generator) {
		if version != "" {
			g.version = version
		}
	}
}

// WithDescription sets info.description.
func WithDescription(description string) Option {
	return func(g *Generator) { g.description = description }
}

// WithBasePath sets the path the group routes hang from. "{group}" is
// replaced by the option group.
func WithBasePath(path string) Option {
	return func(g *Generator) {
		path = strings.Trim(strings.TrimSpace(path), "/")
		if path != "" {
			g.basePath = "/" + path
		}
	}
}

// WithRootComponent names the values component. The default is the group in
// PascalCase followed by "Settings".
func WithRootComponent(name string) Option {
	return func(g *Generator) { g.root = name }
}

// NewGenerator returns a Generator documenting routes under
// /settings/{group}.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		specVersion: "3.0.3",
		title:       "Settings",
		version:     "1.0.0",
		basePath:    "/settings/{group}",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Generate documents the routes of group with one values property per
// descriptor.
func (g *Generator) Generate(group string, descriptors []settings.FieldDescriptor) (map[string]any, error) {
	if strings.TrimSpace(group) == "" {
		return nil, fmt.Errorf("openapi: option group is required")
	}
	doc := g.document(group, descriptors)
	if err := validateDocument(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// GenerateRegistry documents the option group served by registry.
func (g *Generator) GenerateRegistry(registry *settings.Registry) (map[string]any, error) {
	if registry == nil {
		return nil, fmt.Errorf("openapi: registry is nil")
	}
	return g.Generate(registry.Group(), registry.Describe())
}

func (g *Generator) pathFor(group string) string {
	return strings.ReplaceAll(g.basePath, "{group}", group)
}

func (g *Generator) rootName(group string) string {
	if g.root != "" {
		return g.root
	}
	return pascalCase(group) + "Settings"
}
