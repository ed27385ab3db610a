package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"monitoring-workspace-be/internal/dto"
	"monitoring-workspace-be/internal/pkg/logger"
	"monitoring-workspace-be/pkg/backend"
	"monitoring-workspace-be/pkg/grid"
	"monitoring-workspace-be/pkg/site"
	"monitoring-workspace-be/pkg/sitecontext"
	"monitoring-workspace-be/pkg/storage"
	"monitoring-workspace-be/pkg/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeFetcher struct {
	mu     sync.Mutex
	sites  []site.Site
	err    error
	calls  int
	tokens []string
}

func (f *fakeFetcher) FetchSites(_ context.Context, token string) ([]site.Site, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.tokens = append(f.tokens, token)
	if f.err != nil {
		return nil, f.err
	}
	return append([]site.Site{}, f.sites...), nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []dto.WorkspaceChangedMessage
}

func (p *recordingPublisher) Publish(_ context.Context, payload []byte) error {
	var m dto.WorkspaceChangedMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return err
	}
	p.mu.Lock()
	p.messages = append(p.messages, m)
	p.mu.Unlock()
	return nil
}

func (p *recordingPublisher) kinds() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.messages))
	for _, m := range p.messages {
		out = append(out, m.Kind)
	}
	return out
}

type fixture struct {
	svc       IWorkspaceService
	store     *storage.MemoryStore
	fetcher   *fakeFetcher
	publisher *recordingPublisher
	clock     *fakeClock
	caller    Caller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: storage.NewMemoryStore(),
		fetcher: &fakeFetcher{sites: []site.Site{
			{ID: 1, Name: "Bridge A", CustomerName: "Acme", SiteType: site.SiteTypeBridge},
			{ID: 2, Name: "Tower B", CustomerName: "Acme", SiteType: site.SiteTypeTower},
		}},
		publisher: &recordingPublisher{},
		clock:     &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		caller:    Caller{UserID: "user-1", AccessToken: "token-1"},
	}
	seq := 0
	f.svc = NewWorkspaceService(WorkspaceServiceConfig{
		StoreName:   "site-context-storage",
		MaxEntryAge: 24 * time.Hour,
		Now:         f.clock.Now,
		NewSectionID: func() string {
			seq++
			return fmt.Sprintf("s%d", seq)
		},
	}, f.store, NewSiteService(f.fetcher), f.publisher, logger.NewNopLogger())
	return f
}

func (f *fixture) storedState(t *testing.T) workspace.State {
	t.Helper()
	raw, err := f.store.Get(context.Background(), storage.Key("site-context-storage", f.caller.UserID))
	require.NoError(t, err)
	state, err := workspace.Decode(raw)
	require.NoError(t, err)
	return state
}

func ptr(v int64) *int64 { return &v }

func TestWorkspaceService_RequiresUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.View(context.Background(), Caller{}, "/")
	assert.ErrorIs(t, err, ErrMissingUser)
}

func TestWorkspaceService_FirstSiteLoadSelectsAndPersists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Sites(ctx, f.caller)
	require.NoError(t, err)
	require.Len(t, res.Sites, 2)
	require.NotNil(t, res.SelectedSiteID)
	assert.Equal(t, int64(1), *res.SelectedSiteID)
	require.NotNil(t, res.SelectedSite)
	assert.Equal(t, "Bridge A", res.SelectedSite.Name)
	assert.Equal(t, []string{"token-1"}, f.fetcher.tokens)

	state := f.storedState(t)
	require.NotNil(t, state.Global.SelectedSiteID)
	assert.Equal(t, int64(1), *state.Global.SelectedSiteID)

	// served from cache while fresh
	_, err = f.svc.Sites(ctx, f.caller)
	require.NoError(t, err)
	assert.Equal(t, 1, f.fetcher.calls)
}

func TestWorkspaceService_SelectSiteAcceptsUnknownID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.SelectSite(ctx, f.caller, &dto.SelectSiteRequest{SiteID: ptr(99)})
	require.NoError(t, err)
	require.NotNil(t, res.SelectedSiteID)
	assert.Equal(t, int64(99), *res.SelectedSiteID)
	assert.Nil(t, res.SelectedSite)
	assert.Contains(t, f.publisher.kinds(), string(workspace.ChangeGlobalContext))

	res, err = f.svc.SelectSite(ctx, f.caller, &dto.SelectSiteRequest{SiteID: nil})
	require.NoError(t, err)
	assert.Nil(t, res.SelectedSiteID)
}

func TestWorkspaceService_BackendErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unauthorized surfaces", func(t *testing.T) {
		f := newFixture(t)
		f.fetcher.err = backend.ErrUnauthorized
		_, err := f.svc.Sites(ctx, f.caller)
		assert.ErrorIs(t, err, ErrBackendUnauthorized)
	})

	t.Run("outage kept in state", func(t *testing.T) {
		f := newFixture(t)
		f.fetcher.err = backend.ErrUnavailable
		res, err := f.svc.Sites(ctx, f.caller)
		require.NoError(t, err)
		assert.Empty(t, res.Sites)
		assert.NotEmpty(t, res.Error)
		assert.Nil(t, res.SelectedSiteID)
	})
}

func TestWorkspaceService_TabsPersistAcrossReload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	toggled, err := f.svc.ToggleTabMode(ctx, f.caller, &dto.ToggleModeRequest{})
	require.NoError(t, err)
	assert.True(t, toggled.Enabled)

	opened, err := f.svc.OpenTab(ctx, f.caller, &dto.OpenTabRequest{URL: "/sites/1", Title: "Overview"})
	require.NoError(t, err)
	require.True(t, opened.Created)

	f.svc.Invalidate(f.caller.UserID)

	snap, err := f.svc.Snapshot(ctx, f.caller, "/sites/1")
	require.NoError(t, err)
	require.Len(t, snap.Tabs.Tabs, 1)
	assert.Equal(t, opened.Tab.ID, snap.Tabs.Tabs[0].ID)
	assert.True(t, snap.Tabs.IsTabModeEnabled)
	require.NotNil(t, snap.Tabs.ActiveTabID)
	assert.Equal(t, opened.Tab.ID, *snap.Tabs.ActiveTabID)
	assert.Equal(t, "tab", string(snap.View.Content.Kind))
	assert.Equal(t, []string{opened.Tab.ID}, snap.View.RouteTabIDs)
}

func TestWorkspaceService_UserLocksAreReleased(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.svc.(*workspaceService)

	users := []string{"user-1", "user-2", "user-3"}
	for _, u := range users {
		_, err := f.svc.ToggleTabMode(ctx, Caller{UserID: u}, &dto.ToggleModeRequest{})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	for _, u := range users {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(userID string) {
				defer wg.Done()
				_, err := f.svc.OpenTab(ctx, Caller{UserID: userID}, &dto.OpenTabRequest{URL: "/sites/1", Title: "Overview"})
				assert.NoError(t, err)
			}(u)
		}
	}
	wg.Wait()

	assert.Equal(t, 0, svc.lockCount())
	for _, u := range users {
		snap, err := f.svc.Snapshot(ctx, Caller{UserID: u}, "")
		require.NoError(t, err)
		assert.Len(t, snap.Tabs.Tabs, 10)
	}
	assert.Equal(t, 0, svc.lockCount())
}

func TestWorkspaceService_DisableTabModeNeedsConfirmation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ToggleTabMode(ctx, f.caller, &dto.ToggleModeRequest{})
	require.NoError(t, err)
	opened, err := f.svc.OpenTab(ctx, f.caller, &dto.OpenTabRequest{URL: "/a", Title: "A"})
	require.NoError(t, err)
	_, err = f.svc.SetTabContext(ctx, f.caller, &dto.TabContextRequest{TabID: opened.Tab.ID, SiteID: ptr(2)})
	require.NoError(t, err)

	view, err := f.svc.View(ctx, f.caller, "/a")
	require.NoError(t, err)
	assert.True(t, view.RequiresConfirmation)

	_, err = f.svc.ToggleTabMode(ctx, f.caller, &dto.ToggleModeRequest{})
	assert.ErrorIs(t, err, ErrConfirmationRequired)

	res, err := f.svc.ToggleTabMode(ctx, f.caller, &dto.ToggleModeRequest{Confirm: true})
	require.NoError(t, err)
	assert.False(t, res.Enabled)

	state := f.storedState(t)
	assert.Empty(t, state.Tabs)
	assert.Empty(t, state.TabSiteContexts)
}

func TestWorkspaceService_TabContextResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.SetTabContext(ctx, f.caller, &dto.TabContextRequest{TabID: "tab-1", SiteID: ptr(2)})
	require.NoError(t, err)
	require.NotNil(t, res.SiteID)
	assert.Equal(t, int64(2), *res.SiteID)
	assert.Equal(t, sitecontext.ProvenanceTabIsolated, res.Provenance)
	require.NotNil(t, res.Site)
	assert.Equal(t, "Tower B", res.Site.Name)

	res, err = f.svc.Resolve(ctx, f.caller, "tab-2", "")
	require.NoError(t, err)
	assert.Equal(t, sitecontext.ProvenanceInheritedFromGlobal, res.Provenance)
	require.NotNil(t, res.SiteID)
	assert.Equal(t, int64(1), *res.SiteID)
}

func TestWorkspaceService_SplitMovesSectionOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	toggled, err := f.svc.ToggleGridMode(ctx, f.caller)
	require.NoError(t, err)
	require.True(t, toggled.Enabled)

	_, err = f.svc.SetSectionContext(ctx, f.caller, &dto.SectionContextRequest{SectionID: "s1", SiteID: ptr(2)})
	require.NoError(t, err)

	split, err := f.svc.SplitSection(ctx, f.caller, &dto.SplitSectionRequest{SectionID: "s1", Direction: grid.Vertical})
	require.NoError(t, err)
	require.True(t, split.Applied)
	assert.Equal(t, "s1", split.ParentID)
	assert.Equal(t, split.NewID, split.State.ActiveSectionID)

	kept, err := f.svc.Resolve(ctx, f.caller, "", split.KeptID)
	require.NoError(t, err)
	assert.Equal(t, sitecontext.ProvenanceSectionIsolated, kept.Provenance)
	assert.Equal(t, int64(2), *kept.SiteID)

	fresh, err := f.svc.Resolve(ctx, f.caller, "", split.NewID)
	require.NoError(t, err)
	assert.Equal(t, sitecontext.ProvenanceInheritedFromGlobal, fresh.Provenance)

	// internal nodes cannot host pages
	assigned, err := f.svc.AssignPage(ctx, f.caller, &dto.AssignPageRequest{SectionID: "s1", URL: "/x"})
	require.NoError(t, err)
	assert.False(t, assigned.Applied)
}

func TestWorkspaceService_RemoveLastSectionIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.InitializeGrid(ctx, f.caller)
	require.NoError(t, err)

	res, err := f.svc.RemoveSection(ctx, f.caller, &dto.SectionRequest{SectionID: "s1"})
	require.NoError(t, err)
	assert.False(t, res.Applied)
	require.NotNil(t, res.State.Layout)
	assert.Len(t, res.State.Layout.Sections, 1)
}

func TestWorkspaceService_SweepEvictsStaleOverrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetTabContext(ctx, f.caller, &dto.TabContextRequest{TabID: "old", SiteID: ptr(1)})
	require.NoError(t, err)
	f.clock.Advance(23 * time.Hour)
	_, err = f.svc.SetTabContext(ctx, f.caller, &dto.TabContextRequest{TabID: "recent", SiteID: ptr(2)})
	require.NoError(t, err)
	f.clock.Advance(2 * time.Hour)

	removed, err := f.svc.SweepStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	state := f.storedState(t)
	assert.NotContains(t, state.TabSiteContexts, "old")
	assert.Contains(t, state.TabSiteContexts, "recent")
	assert.Contains(t, f.publisher.kinds(), string(workspace.ChangeEvicted))
}

func TestWorkspaceService_LoadEvictsStaleOverrides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	now := f.clock.Now()
	doc, err := workspace.Encode(workspace.State{
		TabSiteContexts: map[string]sitecontext.Entry{
			"expired":  {SiteID: ptr(1), LastModified: now.Add(-25 * time.Hour)},
			"boundary": {SiteID: ptr(2), LastModified: now.Add(-24 * time.Hour)},
		},
	})
	require.NoError(t, err)
	require.NoError(t, f.store.Set(ctx, storage.Key("site-context-storage", f.caller.UserID), doc))

	snap, err := f.svc.Snapshot(ctx, f.caller, "/")
	require.NoError(t, err)
	assert.NotContains(t, snap.TabSiteContexts, "expired")
	assert.Contains(t, snap.TabSiteContexts, "boundary")

	state := f.storedState(t)
	assert.NotContains(t, state.TabSiteContexts, "expired")
}

func TestWorkspaceService_UnreadableDocumentStartsFresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, storage.Key("site-context-storage", f.caller.UserID), []byte("{not json")))

	view, err := f.svc.View(ctx, f.caller, "/home")
	require.NoError(t, err)
	assert.Equal(t, "route", string(view.Content.Kind))
	assert.Equal(t, "/home", view.Content.URL)
}

type failingStore struct {
	storage.Store
}

func (failingStore) Set(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func TestWorkspaceService_SaveFailureDropsCachedSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := NewWorkspaceService(WorkspaceServiceConfig{Now: f.clock.Now}, failingStore{Store: f.store},
		NewSiteService(f.fetcher), nil, logger.NewNopLogger())

	_, err := svc.ToggleGridMode(ctx, f.caller)
	require.Error(t, err)

	// the failed mutation is not served from the cache afterwards
	view, err := svc.View(ctx, f.caller, "/")
	require.NoError(t, err)
	assert.False(t, view.Flags.GridMode)
}
