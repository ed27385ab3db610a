package workspace

import (
	"sync"
	"time"

	"monitoring-workspace-be/pkg/grid"
	"monitoring-workspace-be/pkg/mode"
	"monitoring-workspace-be/pkg/site"
	"monitoring-workspace-be/pkg/sitecontext"
	"monitoring-workspace-be/pkg/tabs"
)

// Options tune a Workspace. Zero values use the wall clock and uuid ids.
type Options struct {
	Now          func() time.Time
	NewSectionID func() string
}

// Workspace owns the tab list, the grid tree, the tab and section site
// overrides and the mode flags of one user, and keeps them consistent.
type Workspace struct {
	mu              sync.Mutex
	tabs            *tabs.Manager
	grid            *grid.Manager
	tabContexts     *sitecontext.ScopeStore
	sectionContexts *sitecontext.ScopeStore

	subsMu  sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

func New(opts Options) *Workspace {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Workspace{
		tabs:            tabs.NewManager(now),
		grid:            grid.NewManager(opts.NewSectionID),
		tabContexts:     sitecontext.NewScopeStore("tab", now),
		sectionContexts: sitecontext.NewScopeStore("section", now),
		subs:            make(map[int]func(Change)),
	}
}

// Subscribe registers fn for changes. Observers run after the mutation
// completed, outside any lock.
func (w *Workspace) Subscribe(fn func(Change)) (unsubscribe func()) {
	w.subsMu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = fn
	w.subsMu.Unlock()

	return func() {
		w.subsMu.Lock()
		delete(w.subs, id)
		w.subsMu.Unlock()
	}
}

func (w *Workspace) notify(c Change) {
	w.subsMu.Lock()
	fns := make([]func(Change), 0, len(w.subs))
	for _, fn := range w.subs {
		fns = append(fns, fn)
	}
	w.subsMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// --- tabs ---

func (w *Workspace) OpenTab(url, title string) (tabs.Tab, bool) {
	w.mu.Lock()
	tab, ok := w.tabs.OpenTab(url, title)
	w.mu.Unlock()

	if ok {
		w.notify(Change{Kind: ChangeTabs, ScopeID: tab.ID})
	}
	return tab, ok
}

// CloseTab removes the tab and its site override.
func (w *Workspace) CloseTab(tabID string) bool {
	w.mu.Lock()
	ok := w.tabs.CloseTab(tabID)
	if ok {
		w.tabContexts.Clear(tabID)
	}
	w.mu.Unlock()

	if ok {
		w.notify(Change{Kind: ChangeTabs, ScopeID: tabID})
	}
	return ok
}

func (w *Workspace) SetActiveTab(tabID string) {
	w.mu.Lock()
	w.tabs.SetActiveTab(tabID)
	w.mu.Unlock()

	w.notify(Change{Kind: ChangeTabs, ScopeID: tabID})
}

func (w *Workspace) RenameTab(tabID, title string) bool {
	w.mu.Lock()
	ok := w.tabs.RenameTab(tabID, title)
	w.mu.Unlock()

	if ok {
		w.notify(Change{Kind: ChangeTabs, ScopeID: tabID})
	}
	return ok
}

func (w *Workspace) ReorderTabs(from, to int) bool {
	w.mu.Lock()
	ok := w.tabs.ReorderTabs(from, to)
	w.mu.Unlock()

	if ok {
		w.notify(Change{Kind: ChangeTabs})
	}
	return ok
}

// ToggleTabMode flips tab mode. Turning it off drops all tabs and their site
// overrides; callers confirm beforehand via NeedsConfirmation.
func (w *Workspace) ToggleTabMode() bool {
	w.mu.Lock()
	enabled, _ := w.tabs.ToggleTabMode()
	if enabled {
		if w.grid.Enabled() {
			w.tabs.SetActiveTab(mode.GridTabID)
		}
	} else {
		w.tabContexts.ClearAll()
	}
	w.mu.Unlock()

	w.notify(Change{Kind: ChangeMode})
	return enabled
}

// NeedsConfirmation reports whether ToggleTabMode would discard open tabs.
func (w *Workspace) NeedsConfirmation() bool {
	return mode.RequiresConfirmation(w.Flags(), w.tabs.Count())
}

// --- grid ---

func (w *Workspace) InitializeGrid() bool {
	w.mu.Lock()
	ok := w.grid.InitializeGrid()
	w.mu.Unlock()

	if ok {
		w.notify(Change{Kind: ChangeGrid})
	}
	return ok
}

func (w *Workspace) AddSection() (string, bool) {
	w.mu.Lock()
	id, ok := w.grid.AddSection()
	w.mu.Unlock()

	if ok {
		w.notify(Change{Kind: ChangeGrid, ScopeID: id})
	}
	return id, ok
}

// SplitSection splits a section. A site override on a split leaf follows
// its page to the kept child.
func (w *Workspace) SplitSection(sectionID string, direction grid.Direction) (grid.SplitResult, bool) {
	w.mu.Lock()
	res, ok := w.grid.SplitSection(sectionID, direction)
	if ok && res.KeptID != "" && w.sectionContexts.Has(sectionID) {
		w.sectionContexts.SetOverride(res.KeptID, w.sectionContexts.GetOverride(sectionID))
		w.sectionContexts.Clear(sectionID)
	}
	w.mu.Unlock()

	if ok {
		w.notify(Change{Kind: ChangeGrid, ScopeID: res.NewID})
	}
	return res, ok
}

// RemoveSection removes a leaf and its site override. Overrides on a parent
// that collapsed away go with it.
func (w *Workspace) RemoveSection(sectionID string) bool {
	w.mu.Lock()
	ok := w.grid.RemoveSection(sectionID)
	if ok {
		w.sectionContexts.Clear(sectionID)
		for scopeID := range w.sectionContexts.Entries() {
			if _, found := w.grid.Find(scopeID); !found {
				w.sectionContexts.Clear(scopeID)
			}
		}
	}
	w.mu.Unlock()

	if ok {
		w.notify(Change{Kind: ChangeGrid, ScopeID: sectionID})
	}
	return ok
}

func (w *Workspace) AssignPage(sectionID, url string) bool {
	w.mu.Lock()
	ok := w.grid.AssignPage(sectionID, url)
	w.mu.Unlock()

	if ok {
		w.notify(Change{Kind: ChangeGrid, ScopeID: sectionID})
	}
	return ok
}

func (w *Workspace) SetActiveSection(sectionID string) bool {
	w.mu.Lock()
	ok := w.grid.SetActiveSection(sectionID)
	w.mu.Unlock()

	if ok {
		w.notify(Change{Kind: ChangeGrid, ScopeID: sectionID})
	}
	return ok
}

// ToggleGridMode flips grid mode. Enabling it initializes the grid and, in
// tab mode, focuses the grid sentinel tab. Disabling it moves focus off the
// sentinel to the first real tab.
func (w *Workspace) ToggleGridMode() bool {
	w.mu.Lock()
	enabled := w.grid.ToggleGridMode()
	if enabled {
		w.grid.InitializeGrid()
		if w.tabs.Enabled() {
			w.tabs.SetActiveTab(mode.GridTabID)
		}
	} else if active := w.tabs.ActiveTabID(); active != nil && *active == mode.GridTabID {
		next := ""
		if list := w.tabs.Tabs(); len(list) > 0 {
			next = list[0].ID
		}
		w.tabs.SetActiveTab(next)
	}
	w.mu.Unlock()

	w.notify(Change{Kind: ChangeMode})
	return enabled
}

// --- site context ---

func (w *Workspace) SetTabOverride(tabID string, siteID *int64) {
	w.tabContexts.SetOverride(tabID, siteID)
	w.notify(Change{Kind: ChangeTabContext, ScopeID: tabID})
}

func (w *Workspace) SetSectionOverride(sectionID string, siteID *int64) {
	w.sectionContexts.SetOverride(sectionID, siteID)
	w.notify(Change{Kind: ChangeSectionContext, ScopeID: sectionID})
}

// Resolve computes the effective site for the given scope against a
// snapshot of the site directory.
func (w *Workspace) Resolve(sectionID, tabID string, dir site.DirectoryState) sitecontext.Resolution {
	return sitecontext.Resolve(sitecontext.ResolveInput{
		SectionID: sectionID,
		TabID:     tabID,
		Sections:  w.sectionContexts,
		Tabs:      w.tabContexts,
		Global:    dir.SelectedSiteID,
		Sites:     dir.Sites,
		IsLoading: dir.IsLoading,
	})
}

// EvictStale sweeps both override stores and returns the number of removed
// entries.
func (w *Workspace) EvictStale(maxAge time.Duration) int {
	removed := w.tabContexts.EvictStaleEntries(maxAge) + w.sectionContexts.EvictStaleEntries(maxAge)
	if removed > 0 {
		w.notify(Change{Kind: ChangeEvicted})
	}
	return removed
}

// --- reads ---

func (w *Workspace) Flags() mode.Flags {
	return mode.Flags{TabMode: w.tabs.Enabled(), GridMode: w.grid.Enabled()}
}

// Content reconciles the flags with the tab list for the current route.
func (w *Workspace) Content(route string) mode.ContentView {
	w.mu.Lock()
	defer w.mu.Unlock()
	return mode.Resolve(mode.Input{
		Flags:       w.Flags(),
		Tabs:        w.tabs.Tabs(),
		ActiveTabID: w.tabs.ActiveTabID(),
		Route:       route,
	})
}

func (w *Workspace) Tabs() *tabs.Manager {
	return w.tabs
}

func (w *Workspace) Grid() *grid.Manager {
	return w.grid
}

func (w *Workspace) TabContexts() *sitecontext.ScopeStore {
	return w.tabContexts
}

func (w *Workspace) SectionContexts() *sitecontext.ScopeStore {
	return w.sectionContexts
}
