package tabs

import (
	"fmt"
	"sync"
	"time"
)

// Tab is one open page in tab mode.
type Tab struct {
	ID          string  `json:"id"`
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	CustomTitle *string `json:"customTitle"`
	IsActive    bool    `json:"isActive"`
}

// DisplayTitle prefers the user supplied title.
func (t Tab) DisplayTitle() string {
	if t.CustomTitle != nil && *t.CustomTitle != "" {
		return *t.CustomTitle
	}
	return t.Title
}

// State is the persisted form of a Manager.
type State struct {
	Tabs             []Tab   `json:"tabs"`
	ActiveTabID      *string `json:"activeTabId"`
	IsTabModeEnabled bool    `json:"isTabModeEnabled"`
}

// Manager keeps the ordered tab list and the active-tab pointer.
type Manager struct {
	mu          sync.RWMutex
	tabs        []Tab
	activeTabID *string
	enabled     bool
	now         func() time.Time
}

func NewManager(now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		tabs: []Tab{},
		now:  now,
	}
}

// OpenTab appends a tab for url and activates it. Returns the new tab, or
// false when tab mode is disabled.
func (m *Manager) OpenTab(url, title string) (Tab, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.enabled {
		return Tab{}, false
	}

	tab := Tab{ID: url, URL: url, Title: title}
	if n := m.countURL(url); n > 0 {
		tab.ID = m.uniqueID(url)
		tab.Title = fmt.Sprintf("%s (%d)", title, n+1)
	} else if m.indexOf(url) >= 0 {
		// url equals the disambiguated id of another tab
		tab.ID = m.uniqueID(url)
	}

	m.tabs = append(m.tabs, tab)
	m.activate(tab.ID)
	return m.tabs[len(m.tabs)-1], true
}

// CloseTab removes tabID. When the active tab is closed the tab at
// max(0, index-1) of the remaining list becomes active.
func (m *Manager) CloseTab(tabID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(tabID)
	if idx < 0 {
		return false
	}
	wasActive := m.activeTabID != nil && *m.activeTabID == tabID
	m.tabs = append(m.tabs[:idx], m.tabs[idx+1:]...)

	if !wasActive {
		return true
	}
	if len(m.tabs) == 0 {
		m.activate("")
		return true
	}
	next := idx - 1
	if next < 0 {
		next = 0
	}
	m.activate(m.tabs[next].ID)
	return true
}

// SetActiveTab points the active pointer at tabID even when no tab with that
// id exists; virtual ids such as the grid sentinel rely on this.
func (m *Manager) SetActiveTab(tabID string) {
	m.mu.Lock()
	m.activate(tabID)
	m.mu.Unlock()
}

func (m *Manager) RenameTab(tabID, newTitle string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := m.indexOf(tabID)
	if idx < 0 {
		return false
	}
	title := newTitle
	m.tabs[idx].CustomTitle = &title
	return true
}

func (m *Manager) ReorderTabs(fromIndex, toIndex int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.tabs)
	if fromIndex < 0 || fromIndex >= n || toIndex < 0 || toIndex >= n {
		return false
	}
	if fromIndex == toIndex {
		return true
	}
	moved := m.tabs[fromIndex]
	rest := append(m.tabs[:fromIndex:fromIndex], m.tabs[fromIndex+1:]...)
	out := make([]Tab, 0, n)
	out = append(out, rest[:toIndex]...)
	out = append(out, moved)
	out = append(out, rest[toIndex:]...)
	m.tabs = out
	return true
}

// ToggleTabMode flips tab mode. Disabling it drops every tab and the active
// pointer. The ids of the dropped tabs are returned.
func (m *Manager) ToggleTabMode() (enabled bool, dropped []string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = !m.enabled
	if !m.enabled {
		for _, t := range m.tabs {
			dropped = append(dropped, t.ID)
		}
		m.tabs = []Tab{}
		m.activeTabID = nil
	}
	return m.enabled, dropped
}

func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tabs)
}

func (m *Manager) Tabs() []Tab {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneTabs(m.tabs)
}

func (m *Manager) Get(tabID string) (Tab, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if idx := m.indexOf(tabID); idx >= 0 {
		return cloneTab(m.tabs[idx]), true
	}
	return Tab{}, false
}

func (m *Manager) ActiveTabID() *string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.activeTabID == nil {
		return nil
	}
	id := *m.activeTabID
	return &id
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := State{Tabs: cloneTabs(m.tabs), IsTabModeEnabled: m.enabled}
	if m.activeTabID != nil {
		id := *m.activeTabID
		s.ActiveTabID = &id
	}
	return s
}

// Restore loads persisted state and re-derives IsActive from the pointer.
func (m *Manager) Restore(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled = s.IsTabModeEnabled
	m.tabs = cloneTabs(s.Tabs)
	if m.tabs == nil {
		m.tabs = []Tab{}
	}
	if s.ActiveTabID != nil {
		m.activate(*s.ActiveTabID)
	} else {
		m.activate("")
	}
}

// activate keeps IsActive mirroring activeTabID. Empty id clears both.
func (m *Manager) activate(tabID string) {
	if tabID == "" {
		m.activeTabID = nil
	} else {
		id := tabID
		m.activeTabID = &id
	}
	for i := range m.tabs {
		m.tabs[i].IsActive = tabID != "" && m.tabs[i].ID == tabID
	}
}

func (m *Manager) indexOf(tabID string) int {
	for i, t := range m.tabs {
		if t.ID == tabID {
			return i
		}
	}
	return -1
}

func (m *Manager) countURL(url string) int {
	n := 0
	for _, t := range m.tabs {
		if t.URL == url {
			n++
		}
	}
	return n
}

func (m *Manager) uniqueID(url string) string {
	ts := m.now().UnixMilli()
	for {
		id := fmt.Sprintf("%s-%d", url, ts)
		if m.indexOf(id) < 0 {
			return id
		}
		ts++
	}
}

func cloneTab(t Tab) Tab {
	if t.CustomTitle != nil {
		title := *t.CustomTitle
		t.CustomTitle = &title
	}
	return t
}

func cloneTabs(in []Tab) []Tab {
	if in == nil {
		return nil
	}
	out := make([]Tab, len(in))
	for i, t := range in {
		out[i] = cloneTab(t)
	}
	return out
}
