package gedcom

import (
	"errors"
	"fmt"
)

// MaxLevel is the deepest level the two-digit level field can express.
const MaxLevel = 99

var (
	errLevelJump  = errors.New("level jump")
	errEmptyStack = errors.New("nothing to finalize")
)

// Tag is a structural unit built while folding: one input line plus the
// lines nested below it.
type Tag struct {
	Name     string `json:"name"`
	Content  string `json:"content,omitempty"`
	Xref     Xref   `json:"xref,omitzero"`
	Level    int    `json:"level"`
	Line     int    `json:"line"`
	Children []*Tag `json:"children,omitempty"`
}

// newTag converts a tokenized line into an open unit. Reference lines use
// their printed cross-reference as the unit name.
func newTag(l Line) *Tag {
	t := &Tag{Content: l.Content, Level: l.Level, Line: l.Number}
	switch l.Kind {
	case LineData:
		t.Name = l.Tag
	case LineRef:
		t.Name = l.Xref.String()
		t.Xref = l.Xref
	}
	return t
}

// Child returns the first direct child with the given name, or nil.
func (t *Tag) Child(name string) *Tag {
	for _, c := range t.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns every direct child with the given name, in order.
func (t *Tag) ChildrenNamed(name string) []*Tag {
	var out []*Tag
	for _, c := range t.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Folder reduces a stream of leveled units into trees. Units stay on the
// stack until a line at the same or a lower level arrives; they are then
// appended to their parent, so each parent sees its children in input order.
type Folder struct {
	stack     []*Tag
	completed []*Tag
}

// NewFolder returns an empty folder.
func NewFolder() *Folder {
	return &Folder{}
}

// Depth returns the level of the deepest open unit, or -1 if none is open.
func (f *Folder) Depth() int {
	if len(f.stack) == 0 {
		return -1
	}
	return f.stack[len(f.stack)-1].Level
}

// Push opens t. Any open unit at t's level or deeper is folded first.
func (f *Folder) Push(t *Tag) error {
	if t.Level < 0 || t.Level > MaxLevel {
		return fmt.Errorf("%w: level %d out of range", errLevelJump, t.Level)
	}

	depth := f.Depth()
	if depth < 0 && t.Level > 0 {
		return fmt.Errorf("%w: no open unit for level %d", errLevelJump, t.Level)
	}
	if t.Level > depth+1 {
		return fmt.Errorf("%w: %d to %d", errLevelJump, depth, t.Level)
	}

	for f.Depth() >= t.Level {
		f.foldTop()
	}
	f.stack = append(f.stack, t)
	return nil
}

// Drain returns the top-level units completed since the last call.
func (f *Folder) Drain() []*Tag {
	out := f.completed
	f.completed = nil
	return out
}

// Finalize folds every open unit and returns the last completed top-level
// unit. Units completed earlier and not yet drained are dropped, so callers
// drain after every level-0 push.
func (f *Folder) Finalize() (*Tag, error) {
	if len(f.stack) == 0 {
		return nil, errEmptyStack
	}
	for len(f.stack) > 0 {
		f.foldTop()
	}
	done := f.completed
	f.completed = nil
	return done[len(done)-1], nil
}

// foldTop pops the deepest unit and hands it to its parent.
func (f *Folder) foldTop() {
	n := len(f.stack)
	top := f.stack[n-1]
	f.stack[n-1] = nil
	f.stack = f.stack[:n-1]

	if n == 1 {
		f.completed = append(f.completed, top)
		return
	}
	parent := f.stack[n-2]
	parent.Children = append(parent.Children, top)
}
