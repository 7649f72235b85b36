package record

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Type identifies the physical type of a column.
type Type uint8

const (
	// TypeUint32 is an unsigned 32-bit integer column.
	TypeUint32 Type = iota
	// TypeUint64 is an unsigned 64-bit integer column.
	TypeUint64
	// TypeInt64 is a signed 64-bit integer column.
	TypeInt64
	// TypeFloat32 is a 32-bit float column.
	TypeFloat32
	// TypeFloat64 is a 64-bit float column.
	TypeFloat64
	// TypeBytes is a variable-length binary column.
	TypeBytes
)

// String returns the lower-case name of the type.
func (t Type) String() string {
	switch t {
	case TypeUint32:
		return "uint32"
	case TypeUint64:
		return "uint64"
	case TypeInt64:
		return "int64"
	case TypeFloat32:
		return "float32"
	case TypeFloat64:
		return "float64"
	case TypeBytes:
		return "bytes"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

func (t Type) valid() bool {
	return t <= TypeBytes
}

// Field is a single named, typed column in a Schema.
type Field struct {
	Name string
	Type Type
}

// Schema is an ordered list of fields plus optional free-form metadata.
//
// Metadata is volatile: it is ignored by Equal and is not persisted into
// backing containers. Two schemas that differ only in metadata describe
// the same physical data.
type Schema struct {
	fields   []Field
	metadata map[string]string
}

// NewSchema creates a schema from the given fields. The field slice is copied.
func NewSchema(fields []Field, optFns ...func(o *SchemaOptions)) *Schema {
	opts := SchemaOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Schema{
		fields: append([]Field(nil), fields...),
	}
	if len(opts.Metadata) > 0 {
		s.metadata = make(map[string]string, len(opts.Metadata))
		for k, v := range opts.Metadata {
			s.metadata[k] = v
		}
	}
	return s
}

// SchemaOptions contains optional schema configuration.
type SchemaOptions struct {
	// Metadata is free-form key/value data attached to the schema.
	// It does not participate in schema equality.
	Metadata map[string]string
}

// NumFields returns the number of fields.
func (s *Schema) NumFields() int {
	return len(s.fields)
}

// Field returns the field at index i.
func (s *Schema) Field(i int) Field {
	return s.fields[i]
}

// Fields returns a copy of the field list.
func (s *Schema) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

// Metadata returns the metadata value for key.
func (s *Schema) Metadata(key string) (string, bool) {
	v, ok := s.metadata[key]
	return v, ok
}

// Equal reports whether two schemas have identical field lists.
// Metadata is stripped from the comparison.
func (s *Schema) Equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.fields) != len(o.fields) {
		return false
	}
	for i, f := range s.fields {
		if o.fields[i] != f {
			return false
		}
	}
	return true
}

// String renders the schema for diagnostics, e.g. "{a: uint32, b: bytes}".
func (s *Schema) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, f := range s.fields {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Name)
		sb.WriteString(": ")
		sb.WriteString(f.Type.String())
	}
	sb.WriteByte('}')
	return sb.String()
}

// WriteTo encodes the schema (fields only, metadata excluded) to w.
// All multi-byte values are little-endian.
func (s *Schema) WriteTo(w io.Writer) (int64, error) {
	var total int64

	var countBuf [2]byte
	binary.LittleEndian.PutUint16(countBuf[:], uint16(len(s.fields))) //nolint:gosec
	n, err := w.Write(countBuf[:])
	total += int64(n)
	if err != nil {
		return total, err
	}

	for _, f := range s.fields {
		var lenBuf [2]byte
		binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(f.Name))) //nolint:gosec
		n, err = w.Write(lenBuf[:])
		total += int64(n)
		if err != nil {
			return total, err
		}
		n, err = io.WriteString(w, f.Name)
		total += int64(n)
		if err != nil {
			return total, err
		}
		n, err = w.Write([]byte{byte(f.Type)})
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// ReadSchemaFrom decodes a schema previously written with WriteTo.
func ReadSchemaFrom(r io.Reader) (*Schema, error) {
	var countBuf [2]byte
	if _, err := io.ReadFull(r, countBuf[:]); err != nil {
		return nil, fmt.Errorf("record: read schema field count: %w", err)
	}
	count := binary.LittleEndian.Uint16(countBuf[:])

	fields := make([]Field, 0, count)
	for i := 0; i < int(count); i++ {
		var lenBuf [2]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return nil, fmt.Errorf("record: read schema field %d: %w", i, err)
		}
		nameLen := binary.LittleEndian.Uint16(lenBuf[:])

		name := make([]byte, nameLen)
		if _, err := io.ReadFull(r, name); err != nil {
			return nil, fmt.Errorf("record: read schema field %d name: %w", i, err)
		}

		var typeBuf [1]byte
		if _, err := io.ReadFull(r, typeBuf[:]); err != nil {
			return nil, fmt.Errorf("record: read schema field %d type: %w", i, err)
		}
		typ := Type(typeBuf[0])
		if !typ.valid() {
			return nil, fmt.Errorf("record: schema field %d: invalid type %d", i, typeBuf[0])
		}

		fields = append(fields, Field{Name: string(name), Type: typ})
	}
	return &Schema{fields: fields}, nil
}
