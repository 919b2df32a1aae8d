// Package prompt holds the text templates sent to the generation models.
package prompt

import (
	"fmt"
	"strings"
	"sync"
	"text/template"
)

// Manager is a named set of text templates, safe for concurrent use.
type Manager struct {
	mu  sync.RWMutex
	set *template.Template
}

// NewManager returns an empty set.
func NewManager() *Manager {
	return &Manager{set: template.New("prompts")}
}

// RegisterString parses content under name. Names are registered once.
func (m *Manager) RegisterString(name, content string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("template name cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.set.Lookup(name) != nil {
		return fmt.Errorf("template %s already registered", name)
	}
	if _, err := m.set.New(name).Parse(content); err != nil {
		return fmt.Errorf("parse template %s: %w", name, err)
	}
	return nil
}

// Render executes the named template with vars.
func (m *Manager) Render(name string, vars map[string]any) (string, error) {
	m.mu.RLock()
	tmpl := m.set.Lookup(name)
	m.mu.RUnlock()
	if tmpl == nil {
		return "", fmt.Errorf("template %s not found", name)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}

// Builder concatenates prompt fragments.
type Builder struct {
	b strings.Builder
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends part verbatim.
func (b *Builder) Add(part string) *Builder {
	b.b.WriteString(part)
	return b
}

// AddFormat appends a formatted part.
func (b *Builder) AddFormat(format string, args ...any) *Builder {
	fmt.Fprintf(&b.b, format, args...)
	return b
}

// Build returns everything added so far.
func (b *Builder) Build() string {
	return b.b.String()
}
