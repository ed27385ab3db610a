package sitecontext

import (
	"testing"

	"monitoring-workspace-be/pkg/site"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Precedence(t *testing.T) {
	sites := []site.Site{{ID: 5, Name: "Harbour Bridge"}, {ID: 7, Name: "Tower A"}, {ID: 8, Name: "Tunnel"}}
	tabs := NewScopeStore("tab", nil)
	sections := NewScopeStore("section", nil)
	tabs.SetOverride("T2", id(8))
	sections.SetOverride("S1", id(7))
	sections.SetOverride("S2", nil)

	tests := []struct {
		name           string
		sectionID      string
		tabID          string
		wantSiteID     int64
		wantProvenance Provenance
	}{
		{"section override wins", "S1", "T2", 7, ProvenanceSectionIsolated},
		{"nil section override defers to tab", "S2", "T2", 8, ProvenanceInheritedFromTab},
		{"tab scope without section", "", "T2", 8, ProvenanceTabIsolated},
		{"no overrides falls back to global", "S3", "T1", 5, ProvenanceInheritedFromGlobal},
		{"global scope", "", "", 5, ProvenanceInheritedFromGlobal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Resolve(ResolveInput{
				SectionID: tt.sectionID,
				TabID:     tt.tabID,
				Sections:  sections,
				Tabs:      tabs,
				Global:    id(5),
				Sites:     sites,
			})
			require.NotNil(t, res.SiteID)
			assert.Equal(t, tt.wantSiteID, *res.SiteID)
			assert.Equal(t, tt.wantProvenance, res.Provenance)
			require.NotNil(t, res.Site)
			assert.Equal(t, tt.wantSiteID, res.Site.ID)
		})
	}
}

func TestResolve_ReflectsLatestOverride(t *testing.T) {
	tabs := NewScopeStore("tab", nil)
	sections := NewScopeStore("section", nil)
	in := ResolveInput{SectionID: "S1", TabID: "T1", Sections: sections, Tabs: tabs, Global: id(5)}

	sections.SetOverride("S1", id(7))
	res := Resolve(in)
	assert.Equal(t, int64(7), *res.SiteID)
	assert.Equal(t, ProvenanceSectionIsolated, res.Provenance)

	sections.Clear("S1")
	res = Resolve(in)
	assert.Equal(t, int64(5), *res.SiteID)
	assert.Equal(t, ProvenanceInheritedFromGlobal, res.Provenance)
}

func TestResolve_StaleReferenceKeepsID(t *testing.T) {
	res := Resolve(ResolveInput{Global: id(99), Sites: []site.Site{{ID: 1}}})

	require.NotNil(t, res.SiteID)
	assert.Equal(t, int64(99), *res.SiteID)
	assert.Nil(t, res.Site)
}

func TestResolve_NoSitesNoSelection(t *testing.T) {
	res := Resolve(ResolveInput{IsLoading: true})

	assert.Nil(t, res.SiteID)
	assert.Nil(t, res.Site)
	assert.NotNil(t, res.Sites)
	assert.True(t, res.IsLoading)
	assert.Equal(t, ProvenanceInheritedFromGlobal, res.Provenance)
}
