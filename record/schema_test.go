package record

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaEqualIgnoresMetadata(t *testing.T) {
	fields := []Field{
		{Name: "a", Type: TypeUint32},
		{Name: "v", Type: TypeFloat32},
	}

	plain := NewSchema(fields)
	tagged := NewSchema(fields, func(o *SchemaOptions) {
		o.Metadata = map[string]string{"origin": "test"}
	})

	assert.True(t, plain.Equal(tagged))
	assert.True(t, tagged.Equal(plain))

	v, ok := tagged.Metadata("origin")
	require.True(t, ok)
	assert.Equal(t, "test", v)
}

func TestSchemaEqualDetectsDifferences(t *testing.T) {
	base := NewSchema([]Field{{Name: "a", Type: TypeUint32}})

	assert.False(t, base.Equal(NewSchema([]Field{{Name: "b", Type: TypeUint32}})))
	assert.False(t, base.Equal(NewSchema([]Field{{Name: "a", Type: TypeInt64}})))
	assert.False(t, base.Equal(NewSchema([]Field{
		{Name: "a", Type: TypeUint32},
		{Name: "b", Type: TypeBytes},
	})))
}

func TestSchemaRoundTrip(t *testing.T) {
	schema := NewSchema([]Field{
		{Name: "id", Type: TypeUint64},
		{Name: "score", Type: TypeFloat64},
		{Name: "payload", Type: TypeBytes},
	}, func(o *SchemaOptions) {
		o.Metadata = map[string]string{"volatile": "dropped"}
	})

	var buf bytes.Buffer
	_, err := schema.WriteTo(&buf)
	require.NoError(t, err)

	decoded, err := ReadSchemaFrom(&buf)
	require.NoError(t, err)

	assert.True(t, schema.Equal(decoded))
	// Metadata is intentionally not persisted.
	_, ok := decoded.Metadata("volatile")
	assert.False(t, ok)
}

func TestSchemaString(t *testing.T) {
	schema := NewSchema([]Field{
		{Name: "a", Type: TypeUint32},
		{Name: "b", Type: TypeBytes},
	})
	assert.Equal(t, "{a: uint32, b: bytes}", schema.String())
}
