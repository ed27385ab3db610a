package dto

import (
	"monitoring-workspace-be/pkg/grid"
	"monitoring-workspace-be/pkg/mode"
	"monitoring-workspace-be/pkg/site"
	"monitoring-workspace-be/pkg/sitecontext"
	"monitoring-workspace-be/pkg/tabs"
)

// --- tabs ---

type OpenTabRequest struct {
	URL   string `json:"url" validate:"required"`
	Title string `json:"title" validate:"required"`
}

type OpenTabResponse struct {
	Tab     tabs.Tab `json:"tab"`
	Created bool     `json:"created"`
}

type CloseTabRequest struct {
	TabID string `json:"tabId" validate:"required"`
}

// ActivateTabRequest may carry an empty id to clear the active tab.
type ActivateTabRequest struct {
	TabID string `json:"tabId"`
}

type RenameTabRequest struct {
	TabID string `json:"tabId" validate:"required"`
	Title string `json:"title" validate:"required"`
}

type ReorderTabsRequest struct {
	FromIndex *int `json:"fromIndex" validate:"required,min=0"`
	ToIndex   *int `json:"toIndex" validate:"required,min=0"`
}

type ToggleModeRequest struct {
	Confirm bool `json:"confirm"`
}

type ToggleModeResponse struct {
	Enabled bool       `json:"enabled"`
	Flags   mode.Flags `json:"flags"`
}

// --- grid ---

type SectionRequest struct {
	SectionID string `json:"sectionId" validate:"required"`
}

type SplitSectionRequest struct {
	SectionID string         `json:"sectionId" validate:"required"`
	Direction grid.Direction `json:"direction" validate:"required,oneof=horizontal vertical"`
}

type SplitSectionResponse struct {
	Applied  bool       `json:"applied"`
	ParentID string     `json:"parentId,omitempty"`
	KeptID   string     `json:"keptId,omitempty"`
	NewID    string     `json:"newId,omitempty"`
	State    grid.State `json:"grid"`
}

// GridMutationResponse reports whether a grid operation changed anything;
// structurally invalid requests leave the layout untouched.
type GridMutationResponse struct {
	Applied bool       `json:"applied"`
	State   grid.State `json:"grid"`
}

type AssignPageRequest struct {
	SectionID string `json:"sectionId" validate:"required"`
	URL       string `json:"url" validate:"required"`
}

type AddSectionResponse struct {
	Applied   bool   `json:"applied"`
	SectionID string `json:"sectionId,omitempty"`
}

// --- site context ---

// SelectSiteRequest carries a nullable site id; null clears the selection.
type SelectSiteRequest struct {
	SiteID *int64 `json:"siteId"`
}

type TabContextRequest struct {
	TabID  string `json:"tabId" validate:"required"`
	SiteID *int64 `json:"siteId"`
}

type SectionContextRequest struct {
	SectionID string `json:"sectionId" validate:"required"`
	SiteID    *int64 `json:"siteId"`
}

type SitesResponse struct {
	site.DirectoryState
	SelectedSite *site.Site `json:"selectedSite"`
}

type ContextResponse = sitecontext.Resolution

// --- snapshot ---

type TabsSnapshot struct {
	Tabs             []tabs.Tab `json:"tabs"`
	ActiveTabID      *string    `json:"activeTabId"`
	IsTabModeEnabled bool       `json:"isTabModeEnabled"`
}

type TabsMutationResponse struct {
	Applied bool `json:"applied"`
	TabsSnapshot
}

type ViewResponse struct {
	Content              mode.ContentView `json:"content"`
	Flags                mode.Flags       `json:"flags"`
	RequiresConfirmation bool             `json:"requiresConfirmation"`
	// RouteTabIDs lists the tabs whose url is the current route.
	RouteTabIDs []string `json:"routeTabIds"`
}

type WorkspaceSnapshot struct {
	Tabs                TabsSnapshot                 `json:"tabs"`
	Grid                grid.State                   `json:"grid"`
	View                ViewResponse                 `json:"view"`
	Global              site.DirectoryState          `json:"global"`
	TabSiteContexts     map[string]sitecontext.Entry `json:"tabSiteContexts"`
	SectionSiteContexts map[string]sitecontext.Entry `json:"sectionSiteContexts"`
}

// WorkspaceChangedMessage travels on the local bus and to websocket clients.
type WorkspaceChangedMessage struct {
	UserID  string `json:"userId"`
	Kind    string `json:"kind"`
	ScopeID string `json:"scopeId,omitempty"`
}
