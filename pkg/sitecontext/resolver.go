package sitecontext

import "monitoring-workspace-be/pkg/site"

// Provenance names the scope an effective selection came from.
type Provenance string

const (
	ProvenanceSectionIsolated     Provenance = "section-isolated"
	ProvenanceTabIsolated         Provenance = "tab-isolated"
	ProvenanceInheritedFromTab    Provenance = "inherited-from-tab"
	ProvenanceInheritedFromGlobal Provenance = "inherited-from-global"
)

// Overrides is the read side of a ScopeStore.
type Overrides interface {
	GetOverride(scopeID string) *int64
}

// ResolveInput carries everything a resolution needs. Empty ids mean the
// scope is not present.
type ResolveInput struct {
	SectionID string
	TabID     string
	Sections  Overrides
	Tabs      Overrides
	Global    *int64
	Sites     []site.Site
	IsLoading bool
}

// Resolution is the effective selection for a (section, tab) pair.
type Resolution struct {
	SiteID     *int64      `json:"siteId"`
	Site       *site.Site  `json:"site"`
	Provenance Provenance  `json:"provenance"`
	Sites      []site.Site `json:"sites"`
	IsLoading  bool        `json:"isLoading"`
}

// Resolve applies section > tab > global precedence. It holds no state and
// reads the stores on every call.
func Resolve(in ResolveInput) Resolution {
	res := Resolution{
		Sites:     in.Sites,
		IsLoading: in.IsLoading,
	}
	if res.Sites == nil {
		res.Sites = []site.Site{}
	}

	switch {
	case in.SectionID != "" && in.Sections != nil && in.Sections.GetOverride(in.SectionID) != nil:
		res.SiteID = in.Sections.GetOverride(in.SectionID)
		res.Provenance = ProvenanceSectionIsolated
	case in.TabID != "" && in.Tabs != nil && in.Tabs.GetOverride(in.TabID) != nil:
		res.SiteID = in.Tabs.GetOverride(in.TabID)
		if in.SectionID == "" {
			res.Provenance = ProvenanceTabIsolated
		} else {
			res.Provenance = ProvenanceInheritedFromTab
		}
	default:
		res.SiteID = copyID(in.Global)
		res.Provenance = ProvenanceInheritedFromGlobal
	}

	res.Site = site.Lookup(res.Sites, res.SiteID)
	return res
}
