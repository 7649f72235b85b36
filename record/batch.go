package record

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Batch is an immutable bundle of equal-length columns conforming to a schema.
type Batch struct {
	schema  *Schema
	columns []Column
	rows    int
}

// NewBatch creates a batch from a schema and one column per field.
// Column count, column types and row counts are validated.
func NewBatch(schema *Schema, columns []Column) (*Batch, error) {
	if schema == nil {
		return nil, fmt.Errorf("record: new batch: nil schema")
	}
	if len(columns) != schema.NumFields() {
		return nil, fmt.Errorf("record: new batch: schema %s has %d fields, got %d columns",
			schema, schema.NumFields(), len(columns))
	}

	rows := 0
	for i, col := range columns {
		f := schema.Field(i)
		if col.Type() != f.Type {
			return nil, fmt.Errorf("record: new batch: column %q is %s, schema wants %s",
				f.Name, col.Type(), f.Type)
		}
		if i == 0 {
			rows = col.Len()
		} else if col.Len() != rows {
			return nil, fmt.Errorf("record: new batch: column %q has %d rows, expected %d",
				f.Name, col.Len(), rows)
		}
	}

	return &Batch{
		schema:  schema,
		columns: append([]Column(nil), columns...),
		rows:    rows,
	}, nil
}

// Schema returns the batch schema.
func (b *Batch) Schema() *Schema {
	return b.schema
}

// NumRows returns the number of rows.
func (b *Batch) NumRows() int {
	return b.rows
}

// NumColumns returns the number of columns.
func (b *Batch) NumColumns() int {
	return len(b.columns)
}

// Column returns the column at index i.
func (b *Batch) Column(i int) Column {
	return b.columns[i]
}

// Equal reports whether two batches have equal schemas and identical
// column contents.
func (b *Batch) Equal(o *Batch) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.rows != o.rows || !b.schema.Equal(o.schema) {
		return false
	}
	for i, col := range b.columns {
		if !col.equal(o.columns[i]) {
			return false
		}
	}
	return true
}

// WriteTo encodes the batch payload (row count then raw columns) to w.
// The schema is not encoded; readers must already know it.
func (b *Batch) WriteTo(w io.Writer) error {
	var rowBuf [4]byte
	binary.LittleEndian.PutUint32(rowBuf[:], uint32(b.rows)) //nolint:gosec
	if _, err := w.Write(rowBuf[:]); err != nil {
		return err
	}
	for i, col := range b.columns {
		if err := col.encode(w); err != nil {
			return fmt.Errorf("record: encode column %q: %w", b.schema.Field(i).Name, err)
		}
	}
	return nil
}

// ReadBatchFrom decodes a batch previously written with WriteTo,
// using schema to interpret the columns.
func ReadBatchFrom(r io.Reader, schema *Schema) (*Batch, error) {
	var rowBuf [4]byte
	if _, err := io.ReadFull(r, rowBuf[:]); err != nil {
		return nil, fmt.Errorf("record: read batch row count: %w", err)
	}
	rows := int(binary.LittleEndian.Uint32(rowBuf[:]))

	columns := make([]Column, schema.NumFields())
	for i := range columns {
		f := schema.Field(i)
		col, err := decodeColumn(r, f.Type, rows)
		if err != nil {
			return nil, fmt.Errorf("record: decode column %q: %w", f.Name, err)
		}
		columns[i] = col
	}

	return &Batch{schema: schema, columns: columns, rows: rows}, nil
}
