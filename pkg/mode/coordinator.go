package mode

import (
	"strings"

	"monitoring-workspace-be/pkg/tabs"
)

// GridTabID is the reserved tab id that stands for the grid view when tab
// and grid mode are both enabled.
const GridTabID = "grid-tab"

// Flags are the two independent layout switches.
type Flags struct {
	TabMode  bool `json:"isTabModeEnabled"`
	GridMode bool `json:"isGridModeEnabled"`
}

// Name is a readable label for the flag combination.
func (f Flags) Name() string {
	switch {
	case f.TabMode && f.GridMode:
		return "tab+grid"
	case f.TabMode:
		return "tab"
	case f.GridMode:
		return "grid"
	}
	return "normal"
}

// ContentKind says what the content area renders.
type ContentKind string

const (
	ContentRoute ContentKind = "route"
	ContentTab   ContentKind = "tab"
	ContentGrid  ContentKind = "grid"
	ContentEmpty ContentKind = "empty"
)

// ContentView is the outcome of reconciling the mode flags.
type ContentView struct {
	Kind      ContentKind `json:"kind"`
	Mode      string      `json:"mode"`
	TabID     string      `json:"tabId,omitempty"`
	URL       string      `json:"url,omitempty"`
	FullBleed bool        `json:"fullBleed"`
	// ShowGridTab is set when the sentinel tab is part of the tab strip.
	ShowGridTab bool `json:"showGridTab"`
}

// Input is everything Resolve looks at.
type Input struct {
	Flags       Flags
	Tabs        []tabs.Tab
	ActiveTabID *string
	Route       string
}

// Resolve decides what the content area shows. It is evaluated from scratch
// on every call so it holds after any state transition.
func Resolve(in Input) ContentView {
	view := ContentView{Mode: in.Flags.Name()}

	switch {
	case in.Flags.GridMode && !in.Flags.TabMode:
		view.Kind = ContentGrid
		view.FullBleed = true

	case in.Flags.TabMode && !in.Flags.GridMode:
		tab, ok := activeTab(in.Tabs, in.ActiveTabID)
		if !ok {
			view.Kind = ContentEmpty
			return view
		}
		view.Kind = ContentTab
		view.TabID = tab.ID
		view.URL = tab.URL

	case in.Flags.TabMode && in.Flags.GridMode:
		view.ShowGridTab = true
		if tab, ok := activeTab(in.Tabs, in.ActiveTabID); ok {
			view.Kind = ContentTab
			view.TabID = tab.ID
			view.URL = tab.URL
			return view
		}
		view.Kind = ContentGrid
		view.TabID = GridTabID

	default:
		view.Kind = ContentRoute
		view.URL = in.Route
	}
	return view
}

func activeTab(list []tabs.Tab, activeID *string) (tabs.Tab, bool) {
	if activeID == nil || *activeID == GridTabID {
		return tabs.Tab{}, false
	}
	for _, t := range list {
		if t.ID == *activeID {
			return t, true
		}
	}
	return tabs.Tab{}, false
}

// TabMatchesRoute reports whether the tab shows the current route. Query
// strings and trailing slashes are ignored.
func TabMatchesRoute(tab tabs.Tab, route string) bool {
	return normalizePath(tab.URL) == normalizePath(route)
}

// RequiresConfirmation reports whether turning tab mode off would discard
// open tabs. The caller must confirm before toggling.
func RequiresConfirmation(flags Flags, tabCount int) bool {
	return flags.TabMode && tabCount > 0
}

func normalizePath(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	if p == "" {
		return "/"
	}
	return p
}
