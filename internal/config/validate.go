package config

import (
	_ "embed"
	"fmt"
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
	schemaVal  cue.Value
)

func configSchema() (*cue.Context, cue.Value) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		schemaVal = schemaCtx.CompileString(schemaCUE, cue.Filename("schema.cue")).
			LookupPath(cue.ParsePath("#Config"))
	})
	return schemaCtx, schemaVal
}

// schemaMu serializes use of the shared CUE context, which is not safe for
// concurrent use.
var schemaMu sync.Mutex

// Validate checks cfg against the embedded schema.
func Validate(cfg *Config) error {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	ctx, schema := configSchema()
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	v := ctx.Encode(cfg.document())
	if err := v.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := schema.Unify(v).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, cueerrors.Details(err, nil))
	}
	return nil
}

// document is the view of cfg the schema describes.
func (c *Config) document() map[string]any {
	milestones := make([]any, 0, len(c.Milestones))
	for _, m := range c.Milestones {
		milestones = append(milestones, map[string]any{"value": m.Value, "tag": m.Tag})
	}
	glyphs := c.Glyphs
	if glyphs == nil {
		glyphs = map[string]string{}
	}
	names := c.Names
	if names == nil {
		names = map[string]string{}
	}

	return map[string]any{
		"database":              c.Database,
		"listen":                c.Listen,
		"policy":                c.Policy,
		"operand_ceiling":       c.OperandCeiling,
		"eval_timeout_ms":       c.EvalTimeout.Milliseconds(),
		"max_concurrent_evals":  c.MaxConcurrentEvals,
		"max_expression_bytes":  c.MaxExpressionBytes,
		"log_format":            c.LogFormat,
		"hundred_tag":           c.HundredTag,
		"no_default_milestones": c.NoDefaultMilestones,
		"milestones":            milestones,
		"glyphs":                glyphs,
		"names":                 names,
	}
}
