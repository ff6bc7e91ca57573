package prompt

import (
	"encoding/json"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Manager owns the in-memory template catalog. Reads may run
// concurrently; concurrent writes to the same template id are the
// caller's problem to serialize.
type Manager struct {
	mu        sync.RWMutex
	templates map[string]*Template
	logger    *slog.Logger
	now       func() time.Time
}

// NewManager creates an empty template catalog. A nil logger uses
// slog.Default().
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		templates: make(map[string]*Template),
		logger:    logger,
		now:       time.Now,
	}
}

// Create stores a template, assigning a fresh id and creation timestamp.
func (m *Manager) Create(t Template) *Template {
	t.ID = uuid.New().String()
	t.CreatedAt = m.now()
	t.UpdatedAt = nil
	stored := t.clone()

	m.mu.Lock()
	m.templates[stored.ID] = stored
	m.mu.Unlock()

	return stored.clone()
}

// Get returns the template with the given id.
func (m *Manager) Get(id string) (*Template, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, false
	}
	return t.clone(), true
}

// GetAll returns every template, newest first.
func (m *Manager) GetAll() []*Template {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(*Template) bool { return true })
}

// GetByCategory returns the templates in a category, newest first.
func (m *Manager) GetByCategory(category string) []*Template {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(t *Template) bool { return t.Category == category })
}

// GetByTag returns the templates carrying a tag, newest first.
func (m *Manager) GetByTag(tag string) []*Template {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(t *Template) bool {
		for _, candidate := range t.Tags {
			if candidate == tag {
				return true
			}
		}
		return false
	})
}

// Update merges the partial change into the template, stamping UpdatedAt.
// Returns false if the id is unknown.
func (m *Manager) Update(id string, upd Update) (*Template, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.templates[id]
	if !ok {
		return nil, false
	}
	if upd.Name != nil {
		t.Name = *upd.Name
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Body != nil {
		t.Body = *upd.Body
	}
	if upd.Variables != nil {
		t.Variables = append([]Variable(nil), upd.Variables...)
	}
	if upd.Category != nil {
		t.Category = *upd.Category
	}
	if upd.Tags != nil {
		t.Tags = append([]string(nil), upd.Tags...)
	}
	if upd.ModelID != nil {
		t.ModelID = *upd.ModelID
	}
	if upd.Params != nil {
		p := *upd.Params
		t.Params = &p
	}
	updated := m.now()
	t.UpdatedAt = &updated

	return t.clone(), true
}

// Delete removes a template, reporting whether it existed.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return false
	}
	delete(m.templates, id)
	return true
}

// Render renders the template with the given id against vars. An unknown
// id fails with *NotFoundError.
func (m *Manager) Render(id string, vars map[string]any) (string, error) {
	t, ok := m.Get(id)
	if !ok {
		return "", &NotFoundError{ID: id}
	}
	return m.RenderTemplate(t.Body, vars, t.Variables)
}

// Search returns templates whose name, description, body, or tags contain
// the query, case-insensitively.
func (m *Manager) Search(query string) []*Template {
	q := strings.ToLower(query)

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(t *Template) bool {
		if strings.Contains(strings.ToLower(t.Name), q) ||
			strings.Contains(strings.ToLower(t.Description), q) ||
			strings.Contains(strings.ToLower(t.Body), q) {
			return true
		}
		for _, tag := range t.Tags {
			if strings.Contains(strings.ToLower(tag), q) {
				return true
			}
		}
		return false
	})
}

// Clone copies a template under a fresh id. An empty newName derives
// "<name> (Copy)".
func (m *Manager) Clone(id, newName string) (*Template, bool) {
	src, ok := m.Get(id)
	if !ok {
		return nil, false
	}
	cp := *src.clone()
	if newName != "" {
		cp.Name = newName
	} else {
		cp.Name = src.Name + " (Copy)"
	}
	return m.Create(cp), true
}

// Export serializes a template to JSON. Returns false if the id is unknown.
func (m *Manager) Export(id string) (string, bool) {
	t, ok := m.Get(id)
	if !ok {
		return "", false
	}
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		m.logger.Warn("template export failed", "id", id, "error", err)
		return "", false
	}
	return string(data), true
}

// Import deserializes a template and stores it as a new entry with a
// fresh id. Import is best-effort: a malformed payload logs a diagnostic
// and returns false rather than failing hard.
func (m *Manager) Import(data string) (*Template, bool) {
	var t Template
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		m.logger.Warn("template import failed", "error", err)
		return nil, false
	}
	if t.Name == "" || t.Body == "" {
		m.logger.Warn("template import rejected", "reason", "missing name or template body")
		return nil, false
	}
	return m.Create(t), true
}

// LoadFile bulk-loads a YAML template pack, creating one entry per pack
// item. Returns the number of templates created.
func (m *Manager) LoadFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	var pack struct {
		Templates []Template `yaml:"templates"`
	}
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return 0, err
	}

	for _, t := range pack.Templates {
		m.Create(t)
	}
	return len(pack.Templates), nil
}

// collect gathers matching templates, newest first. Caller holds m.mu.
func (m *Manager) collect(match func(*Template) bool) []*Template {
	var result []*Template
	for _, t := range m.templates {
		if match(t) {
			result = append(result, t.clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}
