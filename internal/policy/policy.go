// Package policy loads the scoring policy used by the assessment engine.
//
// The policy is a CUE document. The embedded default.cue carries both the
// schema and the default values; an operator file passed to Load is unified
// with it, so a file only needs the fields it changes.
package policy

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/matthewbaird/retention/internal/assessment"
)

//go:embed default.cue
var schemaSource []byte

// Load returns the default policy unified with the file at path. An empty
// path yields the defaults.
func Load(path string) (assessment.Policy, error) {
	if path == "" {
		return Parse(nil, "")
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return assessment.Policy{}, fmt.Errorf("reading policy %s: %w", path, err)
	}
	return Parse(src, path)
}

// Parse unifies src (CUE or JSON) with the embedded schema and decodes the
// result. filename is only used in error positions.
func Parse(src []byte, filename string) (assessment.Policy, error) {
	ctx := cuecontext.New()

	val := ctx.CompileBytes(schemaSource, cue.Filename("default.cue"))
	if val.Err() != nil {
		return assessment.Policy{}, fmt.Errorf("building policy schema: %w", val.Err())
	}

	if len(src) > 0 {
		override := ctx.CompileBytes(src, cue.Filename(filename))
		if override.Err() != nil {
			return assessment.Policy{}, fmt.Errorf("compiling %s: %w", filename, override.Err())
		}
		val = val.Unify(override)
	}

	if err := val.Validate(cue.Concrete(true)); err != nil {
		return assessment.Policy{}, fmt.Errorf("invalid scoring policy: %w", err)
	}

	var p assessment.Policy
	if err := val.Decode(&p); err != nil {
		return assessment.Policy{}, fmt.Errorf("decoding scoring policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return assessment.Policy{}, fmt.Errorf("invalid scoring policy: %w", err)
	}
	return p, nil
}
