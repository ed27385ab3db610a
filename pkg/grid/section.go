package grid

import (
	"errors"
	"fmt"
)

// Direction is the stored split direction of a section.
type Direction string

const (
	Horizontal Direction = "horizontal"
	Vertical   Direction = "vertical"
)

func (d Direction) Valid() bool {
	return d == Horizontal || d == Vertical
}

func (d Direction) Opposite() Direction {
	switch d {
	case Horizontal:
		return Vertical
	case Vertical:
		return Horizontal
	}
	return d
}

// PanelAxis is the axis along which a section's children are laid out.
// It is the transpose of the stored split direction: a horizontal split
// stacks its children vertically and a vertical split places them side by side.
func PanelAxis(d Direction) Direction {
	return d.Opposite()
}

// TopLevelAxis is the arrangement of the root sections.
const TopLevelAxis = Horizontal

// Section is a node of the layout tree. Leaves host a page; internal nodes
// arrange two or more children along one direction.
type Section struct {
	ID          string     `json:"id"`
	Direction   Direction  `json:"direction,omitempty"`
	Children    []*Section `json:"children,omitempty"`
	AssignedURL string     `json:"assignedUrl,omitempty"`
}

func (s *Section) IsLeaf() bool {
	return len(s.Children) == 0
}

func (s *Section) clone() *Section {
	if s == nil {
		return nil
	}
	out := &Section{ID: s.ID, Direction: s.Direction, AssignedURL: s.AssignedURL}
	if len(s.Children) > 0 {
		out.Children = make([]*Section, len(s.Children))
		for i, c := range s.Children {
			out.Children[i] = c.clone()
		}
	}
	return out
}

// Layout is the ordered list of root sections.
type Layout struct {
	Sections []*Section `json:"sections"`
}

func (l *Layout) Clone() *Layout {
	if l == nil {
		return nil
	}
	out := &Layout{Sections: make([]*Section, len(l.Sections))}
	for i, s := range l.Sections {
		out.Sections[i] = s.clone()
	}
	return out
}

var (
	ErrEmptyLayout      = errors.New("layout has no sections")
	ErrDuplicateID      = errors.New("duplicate section id")
	ErrDegenerateNode   = errors.New("internal section needs at least two children")
	ErrInvalidSplit     = errors.New("internal section has invalid direction")
	ErrPageOnInternal   = errors.New("internal section cannot host a page")
	ErrMissingSectionID = errors.New("section id is empty")
)

// Validate checks the structural invariants of the tree.
func (l *Layout) Validate() error {
	if l == nil || len(l.Sections) == 0 {
		return ErrEmptyLayout
	}
	seen := make(map[string]struct{})
	var walk func(s *Section) error
	walk = func(s *Section) error {
		if s == nil || s.ID == "" {
			return ErrMissingSectionID
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateID, s.ID)
		}
		seen[s.ID] = struct{}{}
		if s.IsLeaf() {
			return nil
		}
		if len(s.Children) < 2 {
			return fmt.Errorf("%w: %s", ErrDegenerateNode, s.ID)
		}
		if !s.Direction.Valid() {
			return fmt.Errorf("%w: %s", ErrInvalidSplit, s.ID)
		}
		if s.AssignedURL != "" {
			return fmt.Errorf("%w: %s", ErrPageOnInternal, s.ID)
		}
		for _, c := range s.Children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	for _, s := range l.Sections {
		if err := walk(s); err != nil {
			return err
		}
	}
	return nil
}

// locate finds id below list. parent is nil for root sections.
func locate(list []*Section, parent *Section, id string) (node, par *Section, idx int) {
	for i, s := range list {
		if s.ID == id {
			return s, parent, i
		}
		if n, p, j := locate(s.Children, s, id); n != nil {
			return n, p, j
		}
	}
	return nil, nil, -1
}

func leaves(list []*Section, out []string) []string {
	for _, s := range list {
		if s.IsLeaf() {
			out = append(out, s.ID)
			continue
		}
		out = leaves(s.Children, out)
	}
	return out
}

func depth(list []*Section) int {
	max := 0
	for _, s := range list {
		d := 1 + depth(s.Children)
		if d > max {
			max = d
		}
	}
	return max
}
