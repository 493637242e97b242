package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sheetbridge/internal/ir"
)

func TestSchemaValidator_DefaultAcceptsNamedActor(t *testing.T) {
	v := MustSchemaValidator(DefaultActorSchema)

	err := v.Validate(Snapshot{
		Name: "Bob",
		Data: ir.Obj(ir.O("hp", ir.IRInt(10))),
	})
	assert.NoError(t, err)
}

func TestSchemaValidator_DefaultRejectsEmptyName(t *testing.T) {
	v := MustSchemaValidator(DefaultActorSchema)

	err := v.Validate(Snapshot{Name: ""})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "snapshot violates schema")
}

func TestSchemaValidator_ConstrainsDataPayload(t *testing.T) {
	v, err := NewSchemaValidator(`
name: string
img:  string
data: {
	hp?: int & >=0
	...
}
`)
	require.NoError(t, err)

	assert.NoError(t, v.Validate(Snapshot{Name: "Bob", Data: ir.Obj(ir.O("hp", ir.IRInt(3)))}))
	assert.Error(t, v.Validate(Snapshot{Name: "Bob", Data: ir.Obj(ir.O("hp", ir.IRInt(-1)))}))
	assert.Error(t, v.Validate(Snapshot{Name: "Bob", Data: ir.Obj(ir.O("hp", ir.IRString("lots")))}))
}

func TestNewSchemaValidator_CompileError(t *testing.T) {
	_, err := NewSchemaValidator(`name: string &`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile schema")
}
