package entity

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/sheetbridge/internal/ir"
)

// Validator checks a snapshot before a document accepts it.
type Validator interface {
	Validate(s Snapshot) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(Snapshot) error

// Validate implements Validator.
func (f ValidatorFunc) Validate(s Snapshot) error { return f(s) }

// DefaultActorSchema requires a non-empty name and leaves the data
// payload open.
const DefaultActorSchema = `
name: string & != ""
img:  string
data: {...}
`

// SchemaValidator validates snapshots against a CUE schema.
//
// The snapshot is encoded as {name, img, data}, unified with the schema,
// and must be concrete after unification.
//
// Thread-safety: safe for concurrent use; evaluation is serialized because
// a cue.Context is not.
type SchemaValidator struct {
	mu     sync.Mutex
	ctx    *cue.Context
	schema cue.Value
}

// NewSchemaValidator compiles src once.
func NewSchemaValidator(src string) (*SchemaValidator, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(src, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %s", cueerrors.Details(err, nil))
	}
	return &SchemaValidator{ctx: ctx, schema: schema}, nil
}

// MustSchemaValidator is NewSchemaValidator for schemas known at compile time.
func MustSchemaValidator(src string) *SchemaValidator {
	v, err := NewSchemaValidator(src)
	if err != nil {
		panic(err)
	}
	return v
}

// Validate implements Validator.
func (v *SchemaValidator) Validate(s Snapshot) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	doc := v.ctx.Encode(map[string]any{
		"name": s.Name,
		"img":  s.Img,
		"data": ir.ToGo(s.Data),
	})
	if err := doc.Err(); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	unified := v.schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("snapshot violates schema: %s", cueerrors.Details(err, nil))
	}
	return nil
}
