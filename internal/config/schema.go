package config

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error

	// schemaMu guards schemaCtx, which is not safe for concurrent use.
	schemaMu sync.Mutex
)

// ValidationError lists every constraint a configuration violates.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Problems, "; ")
}

func loadSchema() {
	schemaCtx = cuecontext.New()
	v := schemaCtx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		schemaErr = fmt.Errorf("compile config schema: %w", err)
		return
	}
	schemaDef = v.LookupPath(cue.ParsePath("#Config"))
	if err := schemaDef.Err(); err != nil {
		schemaErr = fmt.Errorf("lookup #Config: %w", err)
	}
}

// Validate checks the configuration against the embedded CUE schema.
// Call Normalize first; validation expects folded extensions.
func (c Config) Validate() error {
	schemaOnce.Do(loadSchema)
	if schemaErr != nil {
		return schemaErr
	}

	schemaMu.Lock()
	defer schemaMu.Unlock()

	data := schemaCtx.Encode(c.nonNil())
	if err := data.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	unified := schemaDef.Unify(data)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		var problems []string
		for _, e := range cueerrors.Errors(err) {
			problems = append(problems, strings.TrimSpace(cueerrors.Details(e, nil)))
		}
		return &ValidationError{Problems: problems}
	}
	return nil
}

// nonNil returns a copy whose extension lists encode as lists rather than null.
func (c Config) nonNil() Config {
	fix := func(s []string) []string {
		if s == nil {
			return []string{}
		}
		return s
	}
	c.Extensions.Raw = fix(c.Extensions.Raw)
	c.Extensions.Mesh = fix(c.Extensions.Mesh)
	c.Extensions.Texture = fix(c.Extensions.Texture)
	c.Extensions.Audio = fix(c.Extensions.Audio)
	return c
}
