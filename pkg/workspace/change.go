package workspace

// ChangeKind names the part of the workspace a mutation touched.
type ChangeKind string

const (
	ChangeTabs           ChangeKind = "tabs"
	ChangeGrid           ChangeKind = "grid"
	ChangeMode           ChangeKind = "mode"
	ChangeTabContext     ChangeKind = "tab-context"
	ChangeSectionContext ChangeKind = "section-context"
	ChangeGlobalContext  ChangeKind = "global-context"
	ChangeEvicted        ChangeKind = "evicted"
)

// Change is delivered to subscribers after every completed mutation.
type Change struct {
	Kind    ChangeKind `json:"kind"`
	ScopeID string     `json:"scopeId,omitempty"`
}
