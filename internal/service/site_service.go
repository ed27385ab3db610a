package service

import (
	"context"

	"monitoring-workspace-be/pkg/site"
)

// SiteFetcher lists the sites a bearer token may access.
type SiteFetcher interface {
	FetchSites(ctx context.Context, accessToken string) ([]site.Site, error)
}

type ISiteService interface {
	ProviderFor(accessToken string) site.Provider
}

type siteService struct {
	fetcher SiteFetcher
}

func NewSiteService(fetcher SiteFetcher) ISiteService {
	return &siteService{fetcher: fetcher}
}

// ProviderFor binds the caller's token into a directory provider.
func (s *siteService) ProviderFor(accessToken string) site.Provider {
	return func(ctx context.Context) ([]site.Site, error) {
		return s.fetcher.FetchSites(ctx, accessToken)
	}
}
