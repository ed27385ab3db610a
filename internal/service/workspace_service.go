package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"monitoring-workspace-be/internal/dto"
	"monitoring-workspace-be/internal/pkg/logger"
	"monitoring-workspace-be/pkg/backend"
	"monitoring-workspace-be/pkg/grid"
	"monitoring-workspace-be/pkg/mode"
	"monitoring-workspace-be/pkg/site"
	"monitoring-workspace-be/pkg/sitecontext"
	"monitoring-workspace-be/pkg/storage"
	"monitoring-workspace-be/pkg/workspace"

	"github.com/patrickmn/go-cache"
)

var (
	// ErrConfirmationRequired is returned when disabling tab mode would
	// discard open tabs and the caller did not confirm.
	ErrConfirmationRequired = errors.New("disabling tab mode closes all open tabs")

	// ErrBackendUnauthorized means the backend rejected the caller's token.
	ErrBackendUnauthorized = errors.New("backend rejected the access token")

	ErrMissingUser = errors.New("missing user id")
)

// Caller identifies the user a request acts for. The access token is
// forwarded to the backend when the site list is fetched.
type Caller struct {
	UserID      string
	AccessToken string
}

type IWorkspaceService interface {
	Snapshot(ctx context.Context, caller Caller, route string) (*dto.WorkspaceSnapshot, error)
	View(ctx context.Context, caller Caller, route string) (*dto.ViewResponse, error)

	Sites(ctx context.Context, caller Caller) (*dto.SitesResponse, error)
	RefreshSites(ctx context.Context, caller Caller) (*dto.SitesResponse, error)
	SelectSite(ctx context.Context, caller Caller, req *dto.SelectSiteRequest) (*dto.SitesResponse, error)

	Resolve(ctx context.Context, caller Caller, tabID, sectionID string) (*dto.ContextResponse, error)
	SetTabContext(ctx context.Context, caller Caller, req *dto.TabContextRequest) (*dto.ContextResponse, error)
	SetSectionContext(ctx context.Context, caller Caller, req *dto.SectionContextRequest) (*dto.ContextResponse, error)

	OpenTab(ctx context.Context, caller Caller, req *dto.OpenTabRequest) (*dto.OpenTabResponse, error)
	CloseTab(ctx context.Context, caller Caller, req *dto.CloseTabRequest) (*dto.TabsMutationResponse, error)
	ActivateTab(ctx context.Context, caller Caller, req *dto.ActivateTabRequest) (*dto.TabsMutationResponse, error)
	RenameTab(ctx context.Context, caller Caller, req *dto.RenameTabRequest) (*dto.TabsMutationResponse, error)
	ReorderTabs(ctx context.Context, caller Caller, req *dto.ReorderTabsRequest) (*dto.TabsMutationResponse, error)
	ToggleTabMode(ctx context.Context, caller Caller, req *dto.ToggleModeRequest) (*dto.ToggleModeResponse, error)

	InitializeGrid(ctx context.Context, caller Caller) (*dto.GridMutationResponse, error)
	AddSection(ctx context.Context, caller Caller) (*dto.AddSectionResponse, error)
	SplitSection(ctx context.Context, caller Caller, req *dto.SplitSectionRequest) (*dto.SplitSectionResponse, error)
	RemoveSection(ctx context.Context, caller Caller, req *dto.SectionRequest) (*dto.GridMutationResponse, error)
	AssignPage(ctx context.Context, caller Caller, req *dto.AssignPageRequest) (*dto.GridMutationResponse, error)
	ActivateSection(ctx context.Context, caller Caller, req *dto.SectionRequest) (*dto.GridMutationResponse, error)
	ToggleGridMode(ctx context.Context, caller Caller) (*dto.ToggleModeResponse, error)

	// SweepStale evicts expired overrides from every cached session.
	SweepStale(ctx context.Context) (int, error)
	// Invalidate drops the cached session so the next access reloads it.
	Invalidate(userID string)
}

type WorkspaceServiceConfig struct {
	StoreName      string
	MaxEntryAge    time.Duration
	SiteStaleAfter time.Duration
	SessionTTL     time.Duration
	Now            func() time.Time
	NewSectionID   func() string
}

type session struct {
	userID    string
	directory *site.Directory
	workspace *workspace.Workspace
	pending   []workspace.Change
}

type workspaceService struct {
	cfg       WorkspaceServiceConfig
	store     storage.Store
	sites     ISiteService
	publisher IPublisherService
	logger    logger.ILogger

	sessions *cache.Cache

	locksMu sync.Mutex
	locks   map[string]*userLock
}

// userLock serializes one user's requests. refs counts holders and waiters
// so the entry can be dropped once nobody needs it.
type userLock struct {
	mu   sync.Mutex
	refs int
}

func NewWorkspaceService(
	cfg WorkspaceServiceConfig,
	store storage.Store,
	sites ISiteService,
	publisher IPublisherService,
	log logger.ILogger,
) IWorkspaceService {
	if cfg.StoreName == "" {
		cfg.StoreName = "site-context-storage"
	}
	if cfg.MaxEntryAge <= 0 {
		cfg.MaxEntryAge = sitecontext.DefaultMaxAge
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &workspaceService{
		cfg:       cfg,
		store:     store,
		sites:     sites,
		publisher: publisher,
		logger:    log,
		sessions:  cache.New(cfg.SessionTTL, 10*time.Minute),
		locks:     make(map[string]*userLock),
	}
}

// --- session handling ---

func (s *workspaceService) lock(userID string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &userLock{}
		s.locks[userID] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, userID)
		}
		s.locksMu.Unlock()
	}
}

func (s *workspaceService) lockCount() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}

// withSession runs fn under the user's lock, then persists and announces
// whatever fn changed.
func (s *workspaceService) withSession(ctx context.Context, caller Caller, fn func(*session) error) error {
	if caller.UserID == "" {
		return ErrMissingUser
	}
	unlock := s.lock(caller.UserID)
	defer unlock()

	sess, err := s.session(ctx, caller.UserID)
	if err != nil {
		return err
	}
	if caller.AccessToken != "" && s.sites != nil {
		sess.directory.SetProvider(s.sites.ProviderFor(caller.AccessToken))
	}

	fnErr := fn(sess)
	if err := s.commit(ctx, sess); err != nil {
		return err
	}
	return fnErr
}

func (s *workspaceService) session(ctx context.Context, userID string) (*session, error) {
	if x, found := s.sessions.Get(userID); found {
		return x.(*session), nil
	}
	sess, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.sessions.Set(userID, sess, cache.DefaultExpiration)
	return sess, nil
}

func (s *workspaceService) newSession(userID string) *session {
	sess := &session{
		userID: userID,
		directory: site.NewDirectory(nil,
			site.WithStaleAfter(s.cfg.SiteStaleAfter),
			site.WithClock(s.cfg.Now),
		),
		workspace: workspace.New(workspace.Options{
			Now:          s.cfg.Now,
			NewSectionID: s.cfg.NewSectionID,
		}),
	}
	// observers run synchronously inside the mutation, under the user lock
	sess.workspace.Subscribe(func(c workspace.Change) {
		sess.pending = append(sess.pending, c)
	})
	return sess
}

func (s *workspaceService) load(ctx context.Context, userID string) (*session, error) {
	sess := s.newSession(userID)

	raw, err := s.store.Get(ctx, storage.Key(s.cfg.StoreName, userID))
	if errors.Is(err, storage.ErrNotFound) {
		return sess, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading workspace of user %s: %w", userID, err)
	}

	state, err := workspace.Decode(raw)
	if err != nil {
		s.logger.Warn("WorkspaceService", "Discarding unreadable workspace document", map[string]interface{}{
			"user_id": userID,
			"error":   err,
		})
		return sess, nil
	}
	if err := sess.workspace.Restore(state); err != nil {
		s.logger.Warn("WorkspaceService", "Stored grid layout rejected", map[string]interface{}{
			"user_id": userID,
			"error":   err,
		})
	}
	sess.directory.RestoreSelection(state.Global.SelectedSiteID, state.Global.LastModified)

	if n := sess.workspace.EvictStale(s.cfg.MaxEntryAge); n > 0 {
		s.logger.Info("WorkspaceService", "Evicted stale site overrides on load", map[string]interface{}{
			"user_id": userID,
			"removed": n,
		})
	}
	return sess, nil
}

func (s *workspaceService) commit(ctx context.Context, sess *session) error {
	if len(sess.pending) == 0 {
		return nil
	}
	changes := sess.pending
	sess.pending = nil

	if err := s.save(ctx, sess); err != nil {
		// the cached copy is ahead of the store now
		s.sessions.Delete(sess.userID)
		return err
	}
	for _, c := range changes {
		s.announce(ctx, sess.userID, c)
	}
	return nil
}

func (s *workspaceService) save(ctx context.Context, sess *session) error {
	state := sess.workspace.State()
	ds := sess.directory.State()
	state.Global = workspace.GlobalSelection{
		SelectedSiteID: ds.SelectedSiteID,
		LastModified:   ds.LastModified,
	}

	raw, err := workspace.Encode(state)
	if err != nil {
		return err
	}
	if err := s.store.Set(ctx, storage.Key(s.cfg.StoreName, sess.userID), raw); err != nil {
		return fmt.Errorf("saving workspace of user %s: %w", sess.userID, err)
	}
	return nil
}

func (s *workspaceService) announce(ctx context.Context, userID string, c workspace.Change) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(dto.WorkspaceChangedMessage{
		UserID:  userID,
		Kind:    string(c.Kind),
		ScopeID: c.ScopeID,
	})
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, payload); err != nil {
		s.logger.Warn("WorkspaceService", "Failed to publish workspace change", map[string]interface{}{
			"user_id": userID,
			"kind":    c.Kind,
			"error":   err,
		})
	}
}

// fetchSites makes sure the directory has a usable list. Backend failures
// other than an auth rejection are kept in the directory state.
func (s *workspaceService) fetchSites(ctx context.Context, sess *session) error {
	return s.loadSites(ctx, sess, func() error {
		_, err := sess.directory.Sites(ctx)
		return err
	})
}

// loadSites runs a directory fetch and records the automatic selection of
// the first site, which the first successful load performs.
func (s *workspaceService) loadSites(ctx context.Context, sess *session, fetch func() error) error {
	before := sess.directory.SelectedSiteID()
	err := fetch()
	if before == nil && sess.directory.SelectedSiteID() != nil {
		sess.pending = append(sess.pending, workspace.Change{Kind: workspace.ChangeGlobalContext})
	}
	return siteError(ctx, err)
}

func siteError(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, backend.ErrUnauthorized):
		return ErrBackendUnauthorized
	case ctx.Err() != nil:
		return ctx.Err()
	}
	return nil
}

func sitesResponse(dir *site.Directory) *dto.SitesResponse {
	state := dir.State()
	return &dto.SitesResponse{
		DirectoryState: state,
		SelectedSite:   site.Lookup(state.Sites, state.SelectedSiteID),
	}
}

func tabsSnapshot(w *workspace.Workspace) dto.TabsSnapshot {
	ts := w.Tabs().State()
	return dto.TabsSnapshot{
		Tabs:             ts.Tabs,
		ActiveTabID:      ts.ActiveTabID,
		IsTabModeEnabled: ts.IsTabModeEnabled,
	}
}

func view(w *workspace.Workspace, route string) dto.ViewResponse {
	matching := []string{}
	for _, tab := range w.Tabs().Tabs() {
		if mode.TabMatchesRoute(tab, route) {
			matching = append(matching, tab.ID)
		}
	}
	return dto.ViewResponse{
		Content:              w.Content(route),
		Flags:                w.Flags(),
		RequiresConfirmation: w.NeedsConfirmation(),
		RouteTabIDs:          matching,
	}
}

// --- reads ---

func (s *workspaceService) Snapshot(ctx context.Context, caller Caller, route string) (*dto.WorkspaceSnapshot, error) {
	var res *dto.WorkspaceSnapshot
	err := s.withSession(ctx, caller, func(sess *session) error {
		if err := s.fetchSites(ctx, sess); err != nil {
			return err
		}
		w := sess.workspace
		res = &dto.WorkspaceSnapshot{
			Tabs:                tabsSnapshot(w),
			Grid:                w.Grid().State(),
			View:                view(w, route),
			Global:              sess.directory.State(),
			TabSiteContexts:     w.TabContexts().Entries(),
			SectionSiteContexts: w.SectionContexts().Entries(),
		}
		return nil
	})
	return res, err
}

func (s *workspaceService) View(ctx context.Context, caller Caller, route string) (*dto.ViewResponse, error) {
	var res dto.ViewResponse
	err := s.withSession(ctx, caller, func(sess *session) error {
		res = view(sess.workspace, route)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// --- sites ---

func (s *workspaceService) Sites(ctx context.Context, caller Caller) (*dto.SitesResponse, error) {
	var res *dto.SitesResponse
	err := s.withSession(ctx, caller, func(sess *session) error {
		if err := s.fetchSites(ctx, sess); err != nil {
			return err
		}
		res = sitesResponse(sess.directory)
		return nil
	})
	return res, err
}

func (s *workspaceService) RefreshSites(ctx context.Context, caller Caller) (*dto.SitesResponse, error) {
	var res *dto.SitesResponse
	err := s.withSession(ctx, caller, func(sess *session) error {
		if err := s.loadSites(ctx, sess, func() error { return sess.directory.Refresh(ctx) }); err != nil {
			return err
		}
		res = sitesResponse(sess.directory)
		return nil
	})
	return res, err
}

// SelectSite stores the global selection as given; ids are not checked
// against the site list.
func (s *workspaceService) SelectSite(ctx context.Context, caller Caller, req *dto.SelectSiteRequest) (*dto.SitesResponse, error) {
	var res *dto.SitesResponse
	err := s.withSession(ctx, caller, func(sess *session) error {
		sess.directory.SetSelectedSiteID(req.SiteID)
		sess.pending = append(sess.pending, workspace.Change{Kind: workspace.ChangeGlobalContext})
		res = sitesResponse(sess.directory)
		return nil
	})
	return res, err
}

// --- site context ---

func (s *workspaceService) resolve(ctx context.Context, sess *session, tabID, sectionID string) (*dto.ContextResponse, error) {
	if err := s.fetchSites(ctx, sess); err != nil {
		return nil, err
	}
	res := sess.workspace.Resolve(sectionID, tabID, sess.directory.State())
	return &res, nil
}

func (s *workspaceService) Resolve(ctx context.Context, caller Caller, tabID, sectionID string) (*dto.ContextResponse, error) {
	var res *dto.ContextResponse
	err := s.withSession(ctx, caller, func(sess *session) (err error) {
		res, err = s.resolve(ctx, sess, tabID, sectionID)
		return err
	})
	return res, err
}

func (s *workspaceService) SetTabContext(ctx context.Context, caller Caller, req *dto.TabContextRequest) (*dto.ContextResponse, error) {
	var res *dto.ContextResponse
	err := s.withSession(ctx, caller, func(sess *session) (err error) {
		sess.workspace.SetTabOverride(req.TabID, req.SiteID)
		res, err = s.resolve(ctx, sess, req.TabID, "")
		return err
	})
	return res, err
}

func (s *workspaceService) SetSectionContext(ctx context.Context, caller Caller, req *dto.SectionContextRequest) (*dto.ContextResponse, error) {
	var res *dto.ContextResponse
	err := s.withSession(ctx, caller, func(sess *session) (err error) {
		sess.workspace.SetSectionOverride(req.SectionID, req.SiteID)
		tabID := ""
		if active := sess.workspace.Tabs().ActiveTabID(); active != nil {
			tabID = *active
		}
		res, err = s.resolve(ctx, sess, tabID, req.SectionID)
		return err
	})
	return res, err
}

// --- tabs ---

func (s *workspaceService) OpenTab(ctx context.Context, caller Caller, req *dto.OpenTabRequest) (*dto.OpenTabResponse, error) {
	var res dto.OpenTabResponse
	err := s.withSession(ctx, caller, func(sess *session) error {
		res.Tab, res.Created = sess.workspace.OpenTab(req.URL, req.Title)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *workspaceService) mutateTabs(ctx context.Context, caller Caller, fn func(w *workspace.Workspace) bool) (*dto.TabsMutationResponse, error) {
	var res dto.TabsMutationResponse
	err := s.withSession(ctx, caller, func(sess *session) error {
		res.Applied = fn(sess.workspace)
		res.TabsSnapshot = tabsSnapshot(sess.workspace)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *workspaceService) CloseTab(ctx context.Context, caller Caller, req *dto.CloseTabRequest) (*dto.TabsMutationResponse, error) {
	return s.mutateTabs(ctx, caller, func(w *workspace.Workspace) bool {
		return w.CloseTab(req.TabID)
	})
}

func (s *workspaceService) ActivateTab(ctx context.Context, caller Caller, req *dto.ActivateTabRequest) (*dto.TabsMutationResponse, error) {
	return s.mutateTabs(ctx, caller, func(w *workspace.Workspace) bool {
		w.SetActiveTab(req.TabID)
		return true
	})
}

func (s *workspaceService) RenameTab(ctx context.Context, caller Caller, req *dto.RenameTabRequest) (*dto.TabsMutationResponse, error) {
	return s.mutateTabs(ctx, caller, func(w *workspace.Workspace) bool {
		return w.RenameTab(req.TabID, req.Title)
	})
}

func (s *workspaceService) ReorderTabs(ctx context.Context, caller Caller, req *dto.ReorderTabsRequest) (*dto.TabsMutationResponse, error) {
	return s.mutateTabs(ctx, caller, func(w *workspace.Workspace) bool {
		return w.ReorderTabs(*req.FromIndex, *req.ToIndex)
	})
}

func (s *workspaceService) ToggleTabMode(ctx context.Context, caller Caller, req *dto.ToggleModeRequest) (*dto.ToggleModeResponse, error) {
	var res dto.ToggleModeResponse
	err := s.withSession(ctx, caller, func(sess *session) error {
		if sess.workspace.NeedsConfirmation() && !req.Confirm {
			return ErrConfirmationRequired
		}
		res.Enabled = sess.workspace.ToggleTabMode()
		res.Flags = sess.workspace.Flags()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// --- grid ---

func (s *workspaceService) mutateGrid(ctx context.Context, caller Caller, fn func(w *workspace.Workspace) bool) (*dto.GridMutationResponse, error) {
	var res dto.GridMutationResponse
	err := s.withSession(ctx, caller, func(sess *session) error {
		res.Applied = fn(sess.workspace)
		res.State = sess.workspace.Grid().State()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *workspaceService) InitializeGrid(ctx context.Context, caller Caller) (*dto.GridMutationResponse, error) {
	return s.mutateGrid(ctx, caller, func(w *workspace.Workspace) bool {
		return w.InitializeGrid()
	})
}

func (s *workspaceService) AddSection(ctx context.Context, caller Caller) (*dto.AddSectionResponse, error) {
	var res dto.AddSectionResponse
	err := s.withSession(ctx, caller, func(sess *session) error {
		res.SectionID, res.Applied = sess.workspace.AddSection()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *workspaceService) SplitSection(ctx context.Context, caller Caller, req *dto.SplitSectionRequest) (*dto.SplitSectionResponse, error) {
	var res dto.SplitSectionResponse
	err := s.withSession(ctx, caller, func(sess *session) error {
		var split grid.SplitResult
		split, res.Applied = sess.workspace.SplitSection(req.SectionID, req.Direction)
		res.ParentID, res.KeptID, res.NewID = split.ParentID, split.KeptID, split.NewID
		res.State = sess.workspace.Grid().State()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *workspaceService) RemoveSection(ctx context.Context, caller Caller, req *dto.SectionRequest) (*dto.GridMutationResponse, error) {
	return s.mutateGrid(ctx, caller, func(w *workspace.Workspace) bool {
		return w.RemoveSection(req.SectionID)
	})
}

func (s *workspaceService) AssignPage(ctx context.Context, caller Caller, req *dto.AssignPageRequest) (*dto.GridMutationResponse, error) {
	return s.mutateGrid(ctx, caller, func(w *workspace.Workspace) bool {
		return w.AssignPage(req.SectionID, req.URL)
	})
}

func (s *workspaceService) ActivateSection(ctx context.Context, caller Caller, req *dto.SectionRequest) (*dto.GridMutationResponse, error) {
	return s.mutateGrid(ctx, caller, func(w *workspace.Workspace) bool {
		return w.SetActiveSection(req.SectionID)
	})
}

func (s *workspaceService) ToggleGridMode(ctx context.Context, caller Caller) (*dto.ToggleModeResponse, error) {
	var res dto.ToggleModeResponse
	err := s.withSession(ctx, caller, func(sess *session) error {
		res.Enabled = sess.workspace.ToggleGridMode()
		res.Flags = sess.workspace.Flags()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// --- maintenance ---

func (s *workspaceService) SweepStale(ctx context.Context) (int, error) {
	total := 0
	var errs []error
	for userID := range s.sessions.Items() {
		n, err := s.sweepOne(ctx, userID)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}

func (s *workspaceService) sweepOne(ctx context.Context, userID string) (int, error) {
	unlock := s.lock(userID)
	defer unlock()

	x, found := s.sessions.Get(userID)
	if !found {
		return 0, nil
	}
	sess := x.(*session)
	n := sess.workspace.EvictStale(s.cfg.MaxEntryAge)
	return n, s.commit(ctx, sess)
}

func (s *workspaceService) Invalidate(userID string) {
	unlock := s.lock(userID)
	defer unlock()
	s.sessions.Delete(userID)
}
