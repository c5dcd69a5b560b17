package core

// Kind selects the stage chain a Task runs.
type Kind string

const (
	// KindStyles compiles, prefixes, concatenates and flips stylesheets.
	KindStyles Kind = "styles"
	// KindScripts lints, concatenates and minifies scripts.
	KindScripts Kind = "scripts"
	// KindGroup runs only its prerequisites.
	KindGroup Kind = "group"
	// KindWatch runs its prerequisites, then watches for changes.
	KindWatch Kind = "watch"
)

// IsAggregate reports whether tasks of this kind produce no output of their own.
func (k Kind) IsAggregate() bool {
	return k == KindGroup || k == KindWatch
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindStyles, KindScripts, KindGroup, KindWatch:
		return true
	default:
		return false
	}
}

// Variant selects between the production and development stage chains.
type Variant string

const (
	VariantProduction  Variant = "production"
	VariantDevelopment Variant = "development"
)

// Task is a declarative definition of one invokable unit of work.
//
// The stage chain is derived from Kind and Variant when the orchestrator is
// built and never changes afterwards.
type Task struct {
	// Name is the identifier used on the command line and in prerequisites.
	Name string `toml:"name" json:"name"`

	Kind Kind `toml:"kind" json:"kind"`

	// Variant defaults to production when empty.
	Variant Variant `toml:"variant,omitempty" json:"variant,omitempty"`

	// Prerequisites run to completion, in this order, before the task.
	Prerequisites []string `toml:"prerequisites,omitempty" json:"prerequisites,omitempty"`

	// Inputs is the Source File Set the task reads (filled from configuration).
	Inputs []string `toml:"-" json:"inputs,omitempty"`

	// Vendor is the pre-built script set added after linting (scripts only).
	Vendor []string `toml:"-" json:"vendor,omitempty"`

	// Outputs lists the paths the task writes.
	Outputs []string `toml:"-" json:"outputs,omitempty"`
}

// EffectiveVariant returns the task's variant, defaulting to production.
func (t Task) EffectiveVariant() Variant {
	if t.Variant == "" {
		return VariantProduction
	}
	return t.Variant
}
