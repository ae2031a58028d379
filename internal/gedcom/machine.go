package gedcom

import "fmt"

// State is the position of a Machine in the document grammar.
type State int

const (
	StateInitial   State = iota // no header consumed yet
	StateReference              // between blocks, nothing open
	StateRecordTag              // inside a level-0 block
	StateInvalid                // terminal failure
)

func (s State) String() string {
	switch s {
	case StateInitial:
		return "initial"
	case StateReference:
		return "reference"
	case StateRecordTag:
		return "record-tag"
	case StateInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// UnparsedLine is an input line that matched neither grammar.
type UnparsedLine struct {
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Result is what a successful parse hands back.
type Result struct {
	Registry *Registry
	Header   *Tag
	Extra    []*Tag // level-0 data blocks other than the header, e.g. TRLR
	Unparsed []UnparsedLine
	Dangling []Dangling
	Lines    int
}

// Machine consumes tokenized lines and folds them into a Registry. It is
// not safe for concurrent use; one Machine serves one document.
type Machine struct {
	opts     options
	state    State
	folder   *Folder
	registry *Registry
	resolver *Resolver
	header   *Tag
	extra    []*Tag
	unparsed []UnparsedLine
	closed   int
	lines    int
	err      error
}

// NewMachine returns a machine in the Initial state.
func NewMachine(opts ...Option) *Machine {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return newMachine(o)
}

func newMachine(o options) *Machine {
	return &Machine{
		opts:     o,
		state:    StateInitial,
		folder:   NewFolder(),
		registry: NewRegistry(),
		resolver: NewResolver(o.fatherTags, o.motherTags, o.logger),
	}
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Err returns the error that drove the machine to Invalid, if any.
func (m *Machine) Err() error {
	return m.err
}

// CanAdvance reports whether further input will be processed.
func (m *Machine) CanAdvance() bool {
	return m.state != StateInvalid
}

// Successful reports whether the machine is inside a block and has closed
// at least one block before it.
func (m *Machine) Successful() bool {
	return m.state == StateRecordTag && m.closed > 0
}

// Closed returns the number of level-0 blocks finalized so far.
func (m *Machine) Closed() int {
	return m.closed
}

// Next consumes one tokenized line.
func (m *Machine) Next(l Line) {
	if !m.CanAdvance() {
		return
	}
	m.lines++

	switch m.state {
	case StateInitial:
		m.handleInitial(l)
	case StateReference:
		m.handleReference(l)
	case StateRecordTag:
		m.handleTag(l)
	}
}

// Unrecognized records a line that matched neither grammar. Before the
// header, and in strict mode, it is fatal.
func (m *Machine) Unrecognized(number int, text string) {
	if !m.CanAdvance() {
		return
	}
	m.lines++

	switch {
	case m.state == StateInitial:
		m.fail(structuralError(number, "missing header", nil))
	case m.opts.strict:
		m.fail(structuralError(number, fmt.Sprintf("unrecognized line %q", text), nil))
	default:
		m.unparsed = append(m.unparsed, UnparsedLine{Line: number, Text: text})
	}
}

func (m *Machine) handleInitial(l Line) {
	if l.Kind != LineData || l.Level != 0 || l.Tag != m.opts.headerTag || l.Content != "" {
		m.fail(structuralError(l.Number, "missing header", nil))
		return
	}
	m.open(l)
}

func (m *Machine) handleReference(l Line) {
	if l.Level != 0 {
		m.fail(structuralError(l.Number, fmt.Sprintf("level %d line outside of any block", l.Level), errLevelJump))
		return
	}
	m.open(l)
}

func (m *Machine) handleTag(l Line) {
	if err := m.folder.Push(newTag(l)); err != nil {
		m.fail(structuralError(l.Number, "invalid level transition", err))
		return
	}
	if l.Level == 0 {
		for _, done := range m.folder.Drain() {
			if err := m.finalize(done); err != nil {
				m.fail(err)
				return
			}
		}
	}
}

// open starts a new level-0 block on an empty folder.
func (m *Machine) open(l Line) {
	if err := m.folder.Push(newTag(l)); err != nil {
		m.fail(structuralError(l.Number, "invalid level transition", err))
		return
	}
	m.state = StateRecordTag
}

// Flush finalizes the open block, leaving the machine between blocks.
func (m *Machine) Flush() error {
	switch m.state {
	case StateInitial:
		return structuralError(0, "", ErrNotRecognized)
	case StateInvalid:
		return m.err
	case StateReference:
		return nil
	}

	root, err := m.folder.Finalize()
	if err != nil {
		m.fail(structuralError(0, "finalize", err))
		return m.err
	}
	if err := m.finalize(root); err != nil {
		m.fail(err)
		return m.err
	}
	m.state = StateReference
	return nil
}

// Fold ends the document: the open block is finalized, deferred references
// are resolved and the result is returned. Fold fails on a document that
// never got past its header and on an Invalid machine.
func (m *Machine) Fold() (*Result, error) {
	if m.state == StateInitial {
		m.fail(structuralError(0, "", ErrNotRecognized))
	}
	if err := m.Flush(); err != nil {
		return nil, err
	}

	dangling := m.resolver.Finish(m.registry)
	m.opts.logger.Debug("document folded",
		"records", m.registry.Len(), "blocks", m.closed,
		"unparsed", len(m.unparsed), "dangling", len(dangling))

	return &Result{
		Registry: m.registry,
		Header:   m.header,
		Extra:    m.extra,
		Unparsed: m.unparsed,
		Dangling: dangling,
		Lines:    m.lines,
	}, nil
}

// finalize routes a completed level-0 block to its destination.
func (m *Machine) finalize(root *Tag) error {
	m.closed++

	if root.Xref.IsZero() {
		if m.header == nil && root.Name == m.opts.headerTag {
			m.header = root
		} else {
			m.extra = append(m.extra, root)
		}
		m.opts.logger.Debug("block closed", "tag", root.Name, "line", root.Line)
		return nil
	}

	rec := newRecord(root)
	if err := m.registry.Add(rec); err != nil {
		return structuralError(root.Line, "", err)
	}
	m.resolver.Link(m.registry, rec)
	m.opts.logger.Debug("record closed",
		"xref", root.Xref.String(), "keyword", rec.Keyword, "children", len(root.Children))
	return nil
}

func (m *Machine) fail(err error) {
	if m.state == StateInvalid {
		return
	}
	m.opts.logger.Debug("document invalid", "from", m.state.String(), "error", err)
	m.state = StateInvalid
	m.err = err
	m.registry = nil
	m.folder = nil
}
