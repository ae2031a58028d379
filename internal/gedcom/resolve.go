package gedcom

import (
	"log/slog"
	"strings"
)

// Role names the relationship a link establishes.
type Role string

const (
	RoleFather Role = "father" // From is the child, To the father
	RoleMother Role = "mother" // From is the child, To the mother
	RoleChild  Role = "child"  // From is the family, To the child
)

// Reasons attached to a Dangling diagnostic.
const (
	ReasonUnresolved = "unresolved"
	ReasonMalformed  = "malformed"
	ReasonCycle      = "cycle"
)

// Dangling reports a relationship that could not be applied. The fields it
// would have set stay empty.
type Dangling struct {
	Source  Xref   `json:"source"`
	Role    Role   `json:"role"`
	Target  Xref   `json:"target,omitzero"`
	Missing Xref   `json:"missing,omitzero"` // the identifier absent from the registry
	Content string `json:"content,omitempty"`
	Line    int    `json:"line"`
	Reason  string `json:"reason"`
}

// link is one relationship waiting to be applied to the registry.
type link struct {
	from Xref
	role Role
	to   Xref
	line int
}

// Resolver extracts relationship links from completed records and applies
// them to the registry. Links whose endpoints are not known yet are queued
// and retried once, after the whole document has been read.
type Resolver struct {
	fatherTags map[string]bool
	motherTags map[string]bool
	pending    []link
	diags      []Dangling
	logger     *slog.Logger
}

// NewResolver returns a resolver that treats the given tags as direct
// father and mother references.
func NewResolver(fatherTags, motherTags []string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	r := &Resolver{
		fatherTags: make(map[string]bool, len(fatherTags)),
		motherTags: make(map[string]bool, len(motherTags)),
		logger:     logger,
	}
	for _, t := range fatherTags {
		r.fatherTags[t] = true
	}
	for _, t := range motherTags {
		r.motherTags[t] = true
	}
	return r
}

// Link applies every relationship named by rec, which must already be in reg.
func (r *Resolver) Link(reg *Registry, rec *Record) {
	for _, l := range r.extract(rec) {
		if !r.try(reg, l) {
			r.logger.Debug("deferring reference",
				"source", l.from.String(), "role", l.role, "target", l.to.String())
			r.pending = append(r.pending, l)
		}
	}
}

// Pending returns the number of queued links.
func (r *Resolver) Pending() int {
	return len(r.pending)
}

// Finish retries every queued link and returns all diagnostics gathered
// during the parse. The queue is empty afterwards.
func (r *Resolver) Finish(reg *Registry) []Dangling {
	queued := r.pending
	r.pending = nil
	for _, l := range queued {
		if r.try(reg, l) {
			continue
		}
		missing := l.to
		if reg.Has(l.to) {
			missing = l.from
		}
		r.logger.Debug("dangling reference",
			"source", l.from.String(), "role", l.role, "missing", missing.String(), "line", l.line)
		r.diags = append(r.diags, Dangling{
			Source:  l.from,
			Role:    l.role,
			Target:  l.to,
			Missing: missing,
			Line:    l.line,
			Reason:  ReasonUnresolved,
		})
	}
	out := r.diags
	r.diags = nil
	return out
}

// extract lists the links named by rec's top-level tags.
func (r *Resolver) extract(rec *Record) []link {
	self := rec.Xref()
	var links []link

	if rec.Keyword == "FAM" {
		husb, _ := r.xrefOf(self, RoleFather, firstNamed(rec.Tags, "HUSB"))
		wife, _ := r.xrefOf(self, RoleMother, firstNamed(rec.Tags, "WIFE"))
		for _, t := range rec.Tags {
			if t.Name != "CHIL" {
				continue
			}
			child, ok := r.xrefOf(self, RoleChild, t)
			if !ok {
				continue
			}
			links = append(links, link{from: self, role: RoleChild, to: child, line: t.Line})
			if !husb.IsZero() {
				links = append(links, link{from: child, role: RoleFather, to: husb, line: t.Line})
			}
			if !wife.IsZero() {
				links = append(links, link{from: child, role: RoleMother, to: wife, line: t.Line})
			}
		}
		return links
	}

	for _, t := range rec.Tags {
		var role Role
		switch {
		case r.fatherTags[t.Name]:
			role = RoleFather
		case r.motherTags[t.Name]:
			role = RoleMother
		default:
			continue
		}
		if to, ok := r.xrefOf(self, role, t); ok {
			links = append(links, link{from: self, role: role, to: to, line: t.Line})
		}
	}
	return links
}

// xrefOf reads the identifier held in t's content. Malformed content is
// recorded as a diagnostic.
func (r *Resolver) xrefOf(self Xref, role Role, t *Tag) (Xref, bool) {
	if t == nil {
		return Xref{}, false
	}
	x, ok := ParseXref(strings.TrimSpace(t.Content))
	if !ok {
		r.diags = append(r.diags, Dangling{
			Source:  self,
			Role:    role,
			Content: t.Content,
			Line:    t.Line,
			Reason:  ReasonMalformed,
		})
		return Xref{}, false
	}
	return x, true
}

// try applies l. It returns false only when an endpoint is not in reg yet;
// refused links count as handled.
func (r *Resolver) try(reg *Registry, l link) bool {
	from, to := reg.Get(l.from), reg.Get(l.to)
	if from == nil || to == nil {
		return false
	}

	var parent, child *Record
	switch l.role {
	case RoleChild:
		parent, child = from, to
	case RoleFather, RoleMother:
		parent, child = to, from
	}

	if parent == child || reaches(reg, child.Xref(), parent.Xref()) {
		r.diags = append(r.diags, Dangling{
			Source: l.from,
			Role:   l.role,
			Target: l.to,
			Line:   l.line,
			Reason: ReasonCycle,
		})
		return true
	}

	switch l.role {
	case RoleFather:
		if !child.Father.IsZero() && child.Father != parent.Xref() {
			return true
		}
		child.Father = parent.Xref()
	case RoleMother:
		if !child.Mother.IsZero() && child.Mother != parent.Xref() {
			return true
		}
		child.Mother = parent.Xref()
	}
	parent.addChild(child.Xref())
	return true
}

// reaches reports whether target is start or one of its descendants
// through Children lists.
func reaches(reg *Registry, start, target Xref) bool {
	seen := map[Xref]bool{start: true}
	queue := []Xref{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == target {
			return true
		}
		rec := reg.Get(cur)
		if rec == nil {
			continue
		}
		for _, c := range rec.Children {
			if !seen[c] {
				seen[c] = true
				queue = append(queue, c)
			}
		}
	}
	return false
}

func firstNamed(tags []*Tag, name string) *Tag {
	for _, t := range tags {
		if t.Name == name {
			return t
		}
	}
	return nil
}
