package site

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrSiteFetch wraps any failure of the site list provider.
	ErrSiteFetch = errors.New("site list could not be loaded")

	// ErrStaleResponse is returned when a fetch completed after a newer one started.
	ErrStaleResponse = errors.New("site list response superseded")

	errNoProvider = errors.New("no site provider configured")
)

// DefaultStaleAfter is how long a fetched site list is served without refetching.
const DefaultStaleAfter = 5 * time.Minute

// Provider fetches the sites the current user may access.
type Provider func(ctx context.Context) ([]Site, error)

// DirectoryState is a point-in-time copy of the directory.
type DirectoryState struct {
	Sites          []Site    `json:"sites"`
	SelectedSiteID *int64    `json:"selectedSiteId"`
	LastModified   time.Time `json:"lastModified"`
	IsLoading      bool      `json:"isLoading"`
	Error          string    `json:"error,omitempty"`
	FetchedAt      time.Time `json:"fetchedAt"`
}

// Directory holds the site catalog of one user and the global site selection.
type Directory struct {
	mu         sync.Mutex
	provider   Provider
	staleAfter time.Duration
	now        func() time.Time

	sites      []Site
	fetchedAt  time.Time
	loaded     bool
	stale      bool
	isLoading  bool
	err        error
	generation uint64

	selected   *int64
	selectedAt time.Time
}

type Option func(*Directory)

func WithStaleAfter(d time.Duration) Option {
	return func(dir *Directory) {
		if d > 0 {
			dir.staleAfter = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(dir *Directory) {
		if now != nil {
			dir.now = now
		}
	}
}

func NewDirectory(provider Provider, opts ...Option) *Directory {
	d := &Directory{
		provider:   provider,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
		sites:      []Site{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetProvider swaps the fetch function, e.g. when the caller's access token changed.
func (d *Directory) SetProvider(provider Provider) {
	d.mu.Lock()
	d.provider = provider
	d.mu.Unlock()
}

// Sites returns the cached list, refreshing it first when it is stale.
// On fetch failure the cached list (possibly empty) is returned together
// with an error wrapping ErrSiteFetch.
func (d *Directory) Sites(ctx context.Context) ([]Site, error) {
	d.mu.Lock()
	fresh := d.loaded && !d.stale && d.now().Sub(d.fetchedAt) < d.staleAfter
	d.mu.Unlock()

	if !fresh {
		if err := d.Refresh(ctx); err != nil && !errors.Is(err, ErrStaleResponse) {
			return d.cachedSites(), err
		}
	}
	return d.cachedSites(), nil
}

// Refresh fetches the site list unconditionally. A response is applied only
// if no newer refresh started meanwhile and ctx is still live.
func (d *Directory) Refresh(ctx context.Context) error {
	d.mu.Lock()
	d.generation++
	gen := d.generation
	d.isLoading = true
	provider := d.provider
	d.mu.Unlock()

	var (
		sites []Site
		err   error
	)
	if provider == nil {
		err = errNoProvider
	} else {
		sites, err = provider(ctx)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if gen != d.generation {
		return ErrStaleResponse
	}
	d.isLoading = false
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		d.err = fmt.Errorf("%w: %w", ErrSiteFetch, err)
		return d.err
	}

	if sites == nil {
		sites = []Site{}
	}
	d.sites = sites
	d.fetchedAt = d.now()
	d.loaded = true
	d.stale = false
	d.err = nil

	if d.selected == nil && len(sites) > 0 {
		first := sites[0].ID
		d.selected = &first
		d.selectedAt = d.now()
	}
	return nil
}

// Invalidate forces the next Sites call to refetch.
func (d *Directory) Invalidate() {
	d.mu.Lock()
	d.stale = true
	d.mu.Unlock()
}

func (d *Directory) SelectedSiteID() *int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return copyID(d.selected)
}

// SetSelectedSiteID sets the global selection. The id is not checked against
// the site list; it may reference a site that is not loaded yet.
func (d *Directory) SetSelectedSiteID(id *int64) {
	d.mu.Lock()
	d.selected = copyID(id)
	d.selectedAt = d.now()
	d.mu.Unlock()
}

// RestoreSelection reinstates a persisted selection without touching its timestamp.
func (d *Directory) RestoreSelection(id *int64, lastModified time.Time) {
	d.mu.Lock()
	d.selected = copyID(id)
	d.selectedAt = lastModified
	d.mu.Unlock()
}

func (d *Directory) State() DirectoryState {
	d.mu.Lock()
	defer d.mu.Unlock()

	state := DirectoryState{
		Sites:          append([]Site{}, d.sites...),
		SelectedSiteID: copyID(d.selected),
		LastModified:   d.selectedAt,
		IsLoading:      d.isLoading,
		FetchedAt:      d.fetchedAt,
	}
	if d.err != nil {
		state.Error = d.err.Error()
	}
	return state
}

func (d *Directory) cachedSites() []Site {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Site{}, d.sites...)
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
