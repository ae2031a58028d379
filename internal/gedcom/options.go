package gedcom

import (
	"log/slog"
	"slices"
)

// Defaults used when no Option overrides them.
const DefaultHeaderTag = "HEAD"

// Parsers copy these when they are created; changing them later does not
// affect existing parsers.
var (
	DefaultFatherTags = []string{"FATH", "_FATH"}
	DefaultMotherTags = []string{"MOTH", "_MOTH"}
)

type options struct {
	strict     bool
	headerTag  string
	fatherTags []string
	motherTags []string
	logger     *slog.Logger
}

func defaultOptions() options {
	return options{
		headerTag:  DefaultHeaderTag,
		fatherTags: slices.Clone(DefaultFatherTags),
		motherTags: slices.Clone(DefaultMotherTags),
		logger:     slog.New(slog.DiscardHandler),
	}
}

// Option configures a Parser or Machine.
type Option func(*options)

// WithStrict makes any unrecognized line fatal.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithHeaderTag sets the tag the first line must carry. Empty keeps the default.
func WithHeaderTag(tag string) Option {
	return func(o *options) {
		if tag != "" {
			o.headerTag = tag
		}
	}
}

// WithRelationshipTags sets the tags read as direct father and mother
// references. A nil slice keeps the corresponding default.
func WithRelationshipTags(father, mother []string) Option {
	return func(o *options) {
		if father != nil {
			o.fatherTags = slices.Clone(father)
		}
		if mother != nil {
			o.motherTags = slices.Clone(mother)
		}
	}
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
