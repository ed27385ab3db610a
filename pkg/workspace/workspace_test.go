package workspace

import (
	"fmt"
	"testing"
	"time"

	"monitoring-workspace-be/pkg/grid"
	"monitoring-workspace-be/pkg/mode"
	"monitoring-workspace-be/pkg/site"
	"monitoring-workspace-be/pkg/sitecontext"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func newTestWorkspace() (*Workspace, *testClock) {
	clock := &testClock{t: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
	n := 0
	ws := New(Options{
		Now: clock.Now,
		NewSectionID: func() string {
			n++
			return fmt.Sprintf("s%d", n)
		},
	})
	return ws, clock
}

func id(v int64) *int64 { return &v }

func TestWorkspace_ResolveInheritance(t *testing.T) {
	ws, _ := newTestWorkspace()
	dir := site.DirectoryState{
		Sites:          []site.Site{{ID: 5, Name: "Bridge"}, {ID: 7, Name: "Dam"}},
		SelectedSiteID: id(5),
	}

	ws.SetSectionOverride("S1", id(7))
	res := ws.Resolve("S1", "T1", dir)
	assert.Equal(t, int64(7), *res.SiteID)
	assert.Equal(t, sitecontext.ProvenanceSectionIsolated, res.Provenance)

	ws.SetSectionOverride("S1", nil)
	res = ws.Resolve("S1", "T1", dir)
	assert.Equal(t, int64(5), *res.SiteID)
	assert.Equal(t, sitecontext.ProvenanceInheritedFromGlobal, res.Provenance)
	assert.Equal(t, "Bridge", res.Site.Name)
}

func TestWorkspace_CloseTabClearsOverride(t *testing.T) {
	ws, _ := newTestWorkspace()
	ws.ToggleTabMode()
	ws.OpenTab("/sites", "Sites")
	ws.SetTabOverride("/sites", id(3))
	require.True(t, ws.TabContexts().Has("/sites"))

	require.True(t, ws.CloseTab("/sites"))
	assert.False(t, ws.TabContexts().Has("/sites"))
}

func TestWorkspace_RemoveSectionClearsOverride(t *testing.T) {
	ws, _ := newTestWorkspace()
	ws.InitializeGrid()
	res, ok := ws.SplitSection("s1", grid.Horizontal)
	require.True(t, ok)
	ws.SetSectionOverride(res.NewID, id(9))

	require.True(t, ws.RemoveSection(res.NewID))
	assert.False(t, ws.SectionContexts().Has(res.NewID))
}

func TestWorkspace_RemoveSectionClearsCollapsedParentOverride(t *testing.T) {
	ws, _ := newTestWorkspace()
	ws.InitializeGrid()
	res, ok := ws.SplitSection("s1", grid.Horizontal)
	require.True(t, ok)
	ws.SetSectionOverride(res.ParentID, id(5))
	ws.SetSectionOverride(res.KeptID, id(6))

	require.True(t, ws.RemoveSection(res.NewID))
	_, found := ws.Grid().Find(res.ParentID)
	require.False(t, found)
	assert.False(t, ws.SectionContexts().Has(res.ParentID))
	require.True(t, ws.SectionContexts().Has(res.KeptID))
	assert.Equal(t, int64(6), *ws.SectionContexts().GetOverride(res.KeptID))
}

func TestWorkspace_SplitMovesOverrideToKeptChild(t *testing.T) {
	ws, _ := newTestWorkspace()
	ws.InitializeGrid()
	ws.AssignPage("s1", "/sensors")
	ws.SetSectionOverride("s1", id(4))

	res, ok := ws.SplitSection("s1", grid.Vertical)
	require.True(t, ok)

	assert.False(t, ws.SectionContexts().Has("s1"))
	require.NotNil(t, ws.SectionContexts().GetOverride(res.KeptID))
	assert.Equal(t, int64(4), *ws.SectionContexts().GetOverride(res.KeptID))
}

func TestWorkspace_DisableTabModeClearsEverything(t *testing.T) {
	ws, _ := newTestWorkspace()
	ws.ToggleTabMode()
	ws.OpenTab("/a", "A")
	ws.OpenTab("/b", "B")
	ws.OpenTab("/c", "C")
	ws.SetTabOverride("/a", id(1))
	require.True(t, ws.NeedsConfirmation())

	assert.False(t, ws.ToggleTabMode())
	assert.Empty(t, ws.Tabs().Tabs())
	assert.Nil(t, ws.Tabs().ActiveTabID())
	assert.Equal(t, 0, ws.TabContexts().Len())
	assert.False(t, ws.NeedsConfirmation())
}

func TestWorkspace_GridSentinelCoordination(t *testing.T) {
	ws, _ := newTestWorkspace()
	ws.ToggleTabMode()
	ws.OpenTab("/sites", "Sites")

	require.True(t, ws.ToggleGridMode())
	assert.NotNil(t, ws.Grid().Layout(), "enabling grid mode initializes the grid")
	require.NotNil(t, ws.Tabs().ActiveTabID())
	assert.Equal(t, mode.GridTabID, *ws.Tabs().ActiveTabID())
	assert.Equal(t, mode.ContentGrid, ws.Content("/sites").Kind)

	ws.SetActiveTab("/sites")
	view := ws.Content("/sites")
	assert.Equal(t, mode.ContentTab, view.Kind)
	assert.Equal(t, "/sites", view.URL)

	ws.SetActiveTab(mode.GridTabID)
	require.False(t, ws.ToggleGridMode())
	assert.Equal(t, "/sites", *ws.Tabs().ActiveTabID())
	assert.Equal(t, mode.ContentTab, ws.Content("/").Kind)
}

func TestWorkspace_EnableTabModeWhileGridOn(t *testing.T) {
	ws, _ := newTestWorkspace()
	ws.ToggleGridMode()
	assert.Equal(t, mode.ContentGrid, ws.Content("/").Kind)

	ws.ToggleTabMode()
	assert.Equal(t, mode.GridTabID, *ws.Tabs().ActiveTabID())
	view := ws.Content("/")
	assert.Equal(t, mode.ContentGrid, view.Kind)
	assert.True(t, view.ShowGridTab)
}

func TestWorkspace_NormalModeRendersRoute(t *testing.T) {
	ws, _ := newTestWorkspace()
	view := ws.Content("/dataloggers")
	assert.Equal(t, mode.ContentRoute, view.Kind)
	assert.Equal(t, "/dataloggers", view.URL)
}

func TestWorkspace_EvictStale(t *testing.T) {
	ws, clock := newTestWorkspace()
	ws.SetTabOverride("old-tab", id(1))
	ws.SetSectionOverride("old-section", id(2))
	clock.t = clock.t.Add(25 * time.Hour)
	ws.SetTabOverride("new-tab", id(3))

	var changes []Change
	ws.Subscribe(func(c Change) { changes = append(changes, c) })

	assert.Equal(t, 2, ws.EvictStale(sitecontext.DefaultMaxAge))
	assert.True(t, ws.TabContexts().Has("new-tab"))
	assert.Equal(t, []Change{{Kind: ChangeEvicted}}, changes)
}

func TestWorkspace_SubscribeAndUnsubscribe(t *testing.T) {
	ws, _ := newTestWorkspace()
	var got []Change
	unsubscribe := ws.Subscribe(func(c Change) { got = append(got, c) })

	ws.ToggleTabMode()
	ws.OpenTab("/a", "A")
	_, ok := ws.OpenTab("/b", "B")
	require.True(t, ok)
	unsubscribe()
	ws.CloseTab("/a")

	require.Len(t, got, 3)
	assert.Equal(t, ChangeMode, got[0].Kind)
	assert.Equal(t, Change{Kind: ChangeTabs, ScopeID: "/a"}, got[1])
}

func TestWorkspace_StateRoundTrip(t *testing.T) {
	ws, _ := newTestWorkspace()
	ws.ToggleTabMode()
	ws.OpenTab("/a", "A")
	ws.RenameTab("/a", "Alpha")
	ws.SetTabOverride("/a", id(2))
	ws.ToggleGridMode()
	ws.SplitSection("s1", grid.Horizontal)
	ws.SetSectionOverride("s3", nil)

	raw, err := Encode(ws.State())
	require.NoError(t, err)
	decoded, err := Decode(raw)
	require.NoError(t, err)

	restored, _ := newTestWorkspace()
	require.NoError(t, restored.Restore(decoded))

	assert.Equal(t, ws.Tabs().Tabs(), restored.Tabs().Tabs())
	assert.Equal(t, ws.Tabs().ActiveTabID(), restored.Tabs().ActiveTabID())
	assert.Equal(t, ws.Grid().Layout(), restored.Grid().Layout())
	assert.Equal(t, ws.Flags(), restored.Flags())
	assert.Equal(t, int64(2), *restored.TabContexts().GetOverride("/a"))
	assert.True(t, restored.SectionContexts().Has("s3"))
}

func TestDecode_RejectsFutureVersion(t *testing.T) {
	_, err := Decode([]byte(`{"version": 99}`))
	assert.Error(t, err)

	_, err = Decode([]byte(`not json`))
	assert.Error(t, err)
}
