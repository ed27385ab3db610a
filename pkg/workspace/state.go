package workspace

import (
	"encoding/json"
	"fmt"
	"time"

	"monitoring-workspace-be/pkg/grid"
	"monitoring-workspace-be/pkg/sitecontext"
	"monitoring-workspace-be/pkg/tabs"
)

// StateVersion is bumped whenever the persisted layout changes shape.
const StateVersion = 1

// GlobalSelection is the persisted global site choice.
type GlobalSelection struct {
	SelectedSiteID *int64    `json:"selectedSiteId"`
	LastModified   time.Time `json:"lastModified"`
}

// State is the JSON document stored per user.
type State struct {
	Version             int                          `json:"version"`
	Global              GlobalSelection              `json:"global"`
	TabSiteContexts     map[string]sitecontext.Entry `json:"tabSiteContexts"`
	SectionSiteContexts map[string]sitecontext.Entry `json:"sectionSiteContexts"`
	Tabs                []tabs.Tab                   `json:"tabs"`
	IsTabModeEnabled    bool                         `json:"isTabModeEnabled"`
	ActiveTabID         *string                      `json:"activeTabId"`
	Grid                grid.State                   `json:"grid"`
}

// State snapshots the workspace. Global is left for the caller to fill.
func (w *Workspace) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	ts := w.tabs.State()
	return State{
		Version:             StateVersion,
		TabSiteContexts:     w.tabContexts.Entries(),
		SectionSiteContexts: w.sectionContexts.Entries(),
		Tabs:                ts.Tabs,
		IsTabModeEnabled:    ts.IsTabModeEnabled,
		ActiveTabID:         ts.ActiveTabID,
		Grid:                w.grid.State(),
	}
}

// Restore replaces the workspace content. An invalid grid tree is discarded
// and reported; everything else is still restored.
func (w *Workspace) Restore(s State) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.tabContexts.Restore(s.TabSiteContexts)
	w.sectionContexts.Restore(s.SectionSiteContexts)
	w.tabs.Restore(tabs.State{
		Tabs:             s.Tabs,
		ActiveTabID:      s.ActiveTabID,
		IsTabModeEnabled: s.IsTabModeEnabled,
	})
	if err := w.grid.Restore(s.Grid); err != nil {
		return fmt.Errorf("restoring grid layout: %w", err)
	}
	return nil
}

// Encode serializes a state document.
func Encode(s State) ([]byte, error) {
	if s.Version == 0 {
		s.Version = StateVersion
	}
	return json.Marshal(s)
}

// Decode parses a state document.
func Decode(raw []byte) (State, error) {
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return State{}, fmt.Errorf("decoding workspace state: %w", err)
	}
	if s.Version > StateVersion {
		return State{}, fmt.Errorf("decoding workspace state: unsupported version %d", s.Version)
	}
	return s, nil
}
