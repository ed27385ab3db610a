package grid

import (
	"sync"

	"github.com/google/uuid"
)

// State is the persisted form of a Manager.
type State struct {
	Layout            *Layout `json:"layout"`
	ActiveSectionID   string  `json:"activeSectionId,omitempty"`
	IsGridModeEnabled bool    `json:"isGridModeEnabled"`
}

// SplitResult describes the sections involved in a split.
type SplitResult struct {
	ParentID string
	// KeptID is the child that inherited the split leaf's page. Empty when
	// a child was appended to an existing internal node.
	KeptID string
	NewID  string
}

// Manager owns one grid layout tree. Structurally invalid operations are
// no-ops reported through a false return value.
type Manager struct {
	mu              sync.RWMutex
	layout          *Layout
	activeSectionID string
	enabled         bool
	newID           func() string
}

func NewManager(newID func() string) *Manager {
	if newID == nil {
		newID = func() string { return "section-" + uuid.NewString() }
	}
	return &Manager{newID: newID}
}

// InitializeGrid creates a single-leaf layout. No-op if a layout exists.
func (m *Manager) InitializeGrid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.layout != nil {
		return false
	}
	root := &Section{ID: m.newID()}
	m.layout = &Layout{Sections: []*Section{root}}
	m.activeSectionID = root.ID
	return true
}

// AddSection appends a root leaf and focuses it.
func (m *Manager) AddSection() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.layout == nil {
		return "", false
	}
	s := &Section{ID: m.newID()}
	m.layout.Sections = append(m.layout.Sections, s)
	m.activeSectionID = s.ID
	return s.ID, true
}

// SplitSection turns a leaf into an internal node with two leaves, or appends
// a leaf to an internal node split along the same direction. The new leaf
// becomes active. Splitting an internal node along the other direction is
// refused and reports false; split one of its leaves instead.
func (m *Manager) SplitSection(sectionID string, direction Direction) (SplitResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.layout == nil || !direction.Valid() {
		return SplitResult{}, false
	}
	node, _, _ := locate(m.layout.Sections, nil, sectionID)
	if node == nil {
		return SplitResult{}, false
	}

	if node.IsLeaf() {
		kept := &Section{ID: m.newID(), AssignedURL: node.AssignedURL}
		added := &Section{ID: m.newID()}
		node.Direction = direction
		node.AssignedURL = ""
		node.Children = []*Section{kept, added}
		m.activeSectionID = added.ID
		return SplitResult{ParentID: node.ID, KeptID: kept.ID, NewID: added.ID}, true
	}

	// children of one node never mix orientations
	if node.Direction != direction {
		return SplitResult{}, false
	}
	added := &Section{ID: m.newID()}
	node.Children = append(node.Children, added)
	m.activeSectionID = added.ID
	return SplitResult{ParentID: node.ID, NewID: added.ID}, true
}

// RemoveSection deletes a leaf. A parent left with a single child is replaced
// by that child. The last root section is never removed.
func (m *Manager) RemoveSection(sectionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.layout == nil {
		return false
	}
	node, parent, idx := locate(m.layout.Sections, nil, sectionID)
	if node == nil || !node.IsLeaf() {
		return false
	}

	if parent == nil {
		if len(m.layout.Sections) <= 1 {
			return false
		}
		m.layout.Sections = removeAt(m.layout.Sections, idx)
	} else {
		parent.Children = removeAt(parent.Children, idx)
		if len(parent.Children) == 1 {
			m.collapse(parent)
		}
	}

	if m.activeSectionID == sectionID || !m.isLeaf(m.activeSectionID) {
		m.activeSectionID = m.firstLeaf()
	}
	return true
}

// collapse replaces parent by its only child.
func (m *Manager) collapse(parent *Section) {
	only := parent.Children[0]
	_, grand, idx := locate(m.layout.Sections, nil, parent.ID)
	if grand == nil {
		m.layout.Sections[idx] = only
		return
	}
	grand.Children[idx] = only
}

// AssignPage sets the page hosted by a leaf.
func (m *Manager) AssignPage(sectionID, url string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.layout == nil {
		return false
	}
	node, _, _ := locate(m.layout.Sections, nil, sectionID)
	if node == nil || !node.IsLeaf() {
		return false
	}
	node.AssignedURL = url
	return true
}

func (m *Manager) SetActiveSection(sectionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isLeaf(sectionID) {
		return false
	}
	m.activeSectionID = sectionID
	return true
}

func (m *Manager) ToggleGridMode() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = !m.enabled
	return m.enabled
}

func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

func (m *Manager) ActiveSectionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeSectionID
}

// Layout returns a deep copy of the tree, or nil before initialization.
func (m *Manager) Layout() *Layout {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.layout.Clone()
}

// Find returns a copy of the section with the given id.
func (m *Manager) Find(sectionID string) (*Section, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.layout == nil {
		return nil, false
	}
	node, _, _ := locate(m.layout.Sections, nil, sectionID)
	if node == nil {
		return nil, false
	}
	return node.clone(), true
}

// Leaves lists leaf ids in depth-first order.
func (m *Manager) Leaves() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.layout == nil {
		return nil
	}
	return leaves(m.layout.Sections, nil)
}

func (m *Manager) Depth() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.layout == nil {
		return 0
	}
	return depth(m.layout.Sections)
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return State{
		Layout:            m.layout.Clone(),
		ActiveSectionID:   m.activeSectionID,
		IsGridModeEnabled: m.enabled,
	}
}

// Restore loads persisted state. A structurally invalid layout is dropped
// (the grid will be re-initialized on demand) and the error returned.
func (m *Manager) Restore(s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = s.IsGridModeEnabled
	m.layout = nil
	m.activeSectionID = ""
	if s.Layout == nil {
		return nil
	}
	if err := s.Layout.Validate(); err != nil {
		return err
	}
	m.layout = s.Layout.Clone()
	m.activeSectionID = s.ActiveSectionID
	if !m.isLeaf(m.activeSectionID) {
		m.activeSectionID = m.firstLeaf()
	}
	return nil
}

func (m *Manager) isLeaf(id string) bool {
	if m.layout == nil || id == "" {
		return false
	}
	node, _, _ := locate(m.layout.Sections, nil, id)
	return node != nil && node.IsLeaf()
}

func (m *Manager) firstLeaf() string {
	if m.layout == nil {
		return ""
	}
	if ids := leaves(m.layout.Sections, nil); len(ids) > 0 {
		return ids[0]
	}
	return ""
}

func removeAt(list []*Section, idx int) []*Section {
	out := make([]*Section, 0, len(list)-1)
	out = append(out, list[:idx]...)
	return append(out, list[idx+1:]...)
}
