package grid

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("s%d", n)
	}
}

func newGrid(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(sequentialIDs())
	require.True(t, m.InitializeGrid())
	return m
}

func TestInitializeGrid_Idempotent(t *testing.T) {
	m := newGrid(t)
	assert.False(t, m.InitializeGrid())

	layout := m.Layout()
	require.Len(t, layout.Sections, 1)
	assert.Equal(t, "s1", layout.Sections[0].ID)
	assert.Equal(t, "s1", m.ActiveSectionID())
}

func TestOperationsBeforeInitialize(t *testing.T) {
	m := NewManager(sequentialIDs())
	_, ok := m.SplitSection("s1", Horizontal)
	assert.False(t, ok)
	assert.False(t, m.RemoveSection("s1"))
	assert.False(t, m.AssignPage("s1", "/sites"))
	assert.Nil(t, m.Layout())
	assert.Equal(t, 0, m.Depth())
}

func TestSplitSection_Leaf(t *testing.T) {
	m := newGrid(t)
	require.True(t, m.AssignPage("s1", "/dataloggers"))

	res, ok := m.SplitSection("s1", Vertical)
	require.True(t, ok)
	assert.Equal(t, SplitResult{ParentID: "s1", KeptID: "s2", NewID: "s3"}, res)

	parent, _ := m.Find("s1")
	assert.False(t, parent.IsLeaf())
	assert.Equal(t, Vertical, parent.Direction)
	assert.Empty(t, parent.AssignedURL)
	require.Len(t, parent.Children, 2)
	assert.Equal(t, "/dataloggers", parent.Children[0].AssignedURL)
	assert.Equal(t, "s3", m.ActiveSectionID())
	assert.NoError(t, m.Layout().Validate())
}

func TestSplitSection_AppendsAlongExistingDirection(t *testing.T) {
	m := newGrid(t)
	m.SplitSection("s1", Horizontal)

	res, ok := m.SplitSection("s1", Horizontal)
	require.True(t, ok)
	assert.Empty(t, res.KeptID)

	parent, _ := m.Find("s1")
	assert.Len(t, parent.Children, 3)

	_, ok = m.SplitSection("s1", Vertical)
	assert.False(t, ok, "children of one node cannot mix orientations")
	parent, _ = m.Find("s1")
	assert.Len(t, parent.Children, 3)
}

func TestSplitSection_NestedOppositeDirection(t *testing.T) {
	m := newGrid(t)
	m.SplitSection("s1", Horizontal) // s2, s3
	res, ok := m.SplitSection("s3", Vertical)
	require.True(t, ok)

	inner, _ := m.Find("s3")
	assert.Equal(t, Vertical, inner.Direction)
	assert.Equal(t, res.NewID, m.ActiveSectionID())
	assert.Equal(t, 3, m.Depth())
	assert.Equal(t, []string{"s2", "s4", "s5"}, m.Leaves())
}

func TestSplitSection_InternalOtherDirectionRefused(t *testing.T) {
	m := newGrid(t)
	m.SplitSection("s1", Horizontal) // s2, s3

	_, ok := m.SplitSection("s1", Vertical)
	assert.False(t, ok)
	assert.Equal(t, []string{"s2", "s3"}, m.Leaves())
	assert.Equal(t, "s3", m.ActiveSectionID())
}

func TestSplitSection_InvalidInput(t *testing.T) {
	m := newGrid(t)
	_, ok := m.SplitSection("missing", Horizontal)
	assert.False(t, ok)
	_, ok = m.SplitSection("s1", Direction("diagonal"))
	assert.False(t, ok)
}

func TestRemoveSection_LastRootRefused(t *testing.T) {
	m := newGrid(t)
	assert.False(t, m.RemoveSection("s1"))
	assert.Len(t, m.Layout().Sections, 1)
}

func TestRemoveSection_CollapsesParent(t *testing.T) {
	m := newGrid(t)
	m.SplitSection("s1", Horizontal) // s1 -> [s2, s3]
	require.Equal(t, 2, m.Depth())

	require.True(t, m.RemoveSection("s3"))

	layout := m.Layout()
	require.Len(t, layout.Sections, 1)
	assert.Equal(t, "s2", layout.Sections[0].ID)
	assert.True(t, layout.Sections[0].IsLeaf())
	assert.Equal(t, 1, m.Depth())
	assert.Equal(t, "s2", m.ActiveSectionID())
	assert.NoError(t, layout.Validate())
}

func TestRemoveSection_CollapsesNestedParentIntoGrandparent(t *testing.T) {
	m := newGrid(t)
	m.SplitSection("s1", Horizontal) // s1 -> [s2, s3]
	m.SplitSection("s3", Vertical)   // s3 -> [s4, s5]
	m.SetActiveSection("s2")

	require.True(t, m.RemoveSection("s4"))

	root, _ := m.Find("s1")
	require.Len(t, root.Children, 2)
	assert.Equal(t, "s5", root.Children[1].ID)
	_, found := m.Find("s3")
	assert.False(t, found)
	assert.Equal(t, "s2", m.ActiveSectionID(), "focus is kept when another leaf is removed")
	assert.NoError(t, m.Layout().Validate())
}

func TestRemoveSection_RootAmongSeveral(t *testing.T) {
	m := newGrid(t)
	id, ok := m.AddSection()
	require.True(t, ok)
	assert.Equal(t, id, m.ActiveSectionID())

	require.True(t, m.RemoveSection("s1"))
	assert.Equal(t, []string{id}, m.Leaves())
	assert.False(t, m.RemoveSection(id))
}

func TestRemoveSection_InternalNodeRefused(t *testing.T) {
	m := newGrid(t)
	m.SplitSection("s1", Horizontal)
	assert.False(t, m.RemoveSection("s1"))
}

func TestAssignPage_LeafOnly(t *testing.T) {
	m := newGrid(t)
	m.SplitSection("s1", Horizontal)

	assert.False(t, m.AssignPage("s1", "/sensors"))
	assert.True(t, m.AssignPage("s2", "/sensors"))
	leaf, _ := m.Find("s2")
	assert.Equal(t, "/sensors", leaf.AssignedURL)
}

func TestSetActiveSection_LeafOnly(t *testing.T) {
	m := newGrid(t)
	m.SplitSection("s1", Horizontal)
	assert.False(t, m.SetActiveSection("s1"))
	assert.True(t, m.SetActiveSection("s2"))
	assert.Equal(t, "s2", m.ActiveSectionID())
}

func TestPanelAxis_IsTranspose(t *testing.T) {
	assert.Equal(t, Vertical, PanelAxis(Horizontal))
	assert.Equal(t, Horizontal, PanelAxis(Vertical))
}

func TestToggleGridMode(t *testing.T) {
	m := NewManager(nil)
	assert.True(t, m.ToggleGridMode())
	assert.True(t, m.Enabled())
	assert.False(t, m.ToggleGridMode())
}

func TestStateRestore(t *testing.T) {
	m := newGrid(t)
	m.SplitSection("s1", Horizontal)
	m.AssignPage("s2", "/map")
	m.ToggleGridMode()

	raw, err := json.Marshal(m.State())
	require.NoError(t, err)
	var state State
	require.NoError(t, json.Unmarshal(raw, &state))

	restored := NewManager(nil)
	require.NoError(t, restored.Restore(state))
	assert.Equal(t, m.Layout(), restored.Layout())
	assert.Equal(t, m.ActiveSectionID(), restored.ActiveSectionID())
	assert.True(t, restored.Enabled())
}

func TestRestore_RejectsDegenerateTree(t *testing.T) {
	bad := State{Layout: &Layout{Sections: []*Section{
		{ID: "p", Direction: Horizontal, Children: []*Section{{ID: "only"}}},
	}}}

	m := NewManager(nil)
	err := m.Restore(bad)
	assert.ErrorIs(t, err, ErrDegenerateNode)
	assert.Nil(t, m.Layout())
	assert.True(t, m.InitializeGrid())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		layout  *Layout
		wantErr error
	}{
		{"empty", &Layout{}, ErrEmptyLayout},
		{"duplicate", &Layout{Sections: []*Section{{ID: "a"}, {ID: "a"}}}, ErrDuplicateID},
		{"page on internal", &Layout{Sections: []*Section{
			{ID: "p", Direction: Vertical, AssignedURL: "/x", Children: []*Section{{ID: "a"}, {ID: "b"}}},
		}}, ErrPageOnInternal},
		{"missing direction", &Layout{Sections: []*Section{
			{ID: "p", Children: []*Section{{ID: "a"}, {ID: "b"}}},
		}}, ErrInvalidSplit},
		{"valid", &Layout{Sections: []*Section{{ID: "a"}, {ID: "b"}}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.layout.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
