package record

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"slices"
)

// Column is a typed, fixed-length array of values.
//
// Columns are value containers only; validation against a schema happens
// when they are assembled into a Batch.
type Column interface {
	// Type returns the physical type of the column.
	Type() Type
	// Len returns the number of rows.
	Len() int

	encode(w io.Writer) error
	equal(o Column) bool
}

// Uint32Column holds uint32 values.
type Uint32Column struct{ Values []uint32 }

// Uint64Column holds uint64 values.
type Uint64Column struct{ Values []uint64 }

// Int64Column holds int64 values.
type Int64Column struct{ Values []int64 }

// Float32Column holds float32 values.
type Float32Column struct{ Values []float32 }

// Float64Column holds float64 values.
type Float64Column struct{ Values []float64 }

// BytesColumn holds variable-length binary values.
type BytesColumn struct{ Values [][]byte }

func (c *Uint32Column) Type() Type  { return TypeUint32 }
func (c *Uint64Column) Type() Type  { return TypeUint64 }
func (c *Int64Column) Type() Type   { return TypeInt64 }
func (c *Float32Column) Type() Type { return TypeFloat32 }
func (c *Float64Column) Type() Type { return TypeFloat64 }
func (c *BytesColumn) Type() Type   { return TypeBytes }

func (c *Uint32Column) Len() int  { return len(c.Values) }
func (c *Uint64Column) Len() int  { return len(c.Values) }
func (c *Int64Column) Len() int   { return len(c.Values) }
func (c *Float32Column) Len() int { return len(c.Values) }
func (c *Float64Column) Len() int { return len(c.Values) }
func (c *BytesColumn) Len() int   { return len(c.Values) }

func (c *Uint32Column) encode(w io.Writer) error {
	buf := make([]byte, 4*len(c.Values))
	for i, v := range c.Values {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	_, err := w.Write(buf)
	return err
}

func (c *Uint64Column) encode(w io.Writer) error {
	buf := make([]byte, 8*len(c.Values))
	for i, v := range c.Values {
		binary.LittleEndian.PutUint64(buf[i*8:], v)
	}
	_, err := w.Write(buf)
	return err
}

func (c *Int64Column) encode(w io.Writer) error {
	buf := make([]byte, 8*len(c.Values))
	for i, v := range c.Values {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(v)) //nolint:gosec
	}
	_, err := w.Write(buf)
	return err
}

func (c *Float32Column) encode(w io.Writer) error {
	buf := make([]byte, 4*len(c.Values))
	for i, v := range c.Values {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	_, err := w.Write(buf)
	return err
}

func (c *Float64Column) encode(w io.Writer) error {
	buf := make([]byte, 8*len(c.Values))
	for i, v := range c.Values {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	_, err := w.Write(buf)
	return err
}

func (c *BytesColumn) encode(w io.Writer) error {
	var lenBuf [4]byte
	for _, v := range c.Values {
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(v))) //nolint:gosec
		if _, err := w.Write(lenBuf[:]); err != nil {
			return err
		}
		if _, err := w.Write(v); err != nil {
			return err
		}
	}
	return nil
}

func (c *Uint32Column) equal(o Column) bool {
	oc, ok := o.(*Uint32Column)
	return ok && slices.Equal(c.Values, oc.Values)
}

func (c *Uint64Column) equal(o Column) bool {
	oc, ok := o.(*Uint64Column)
	return ok && slices.Equal(c.Values, oc.Values)
}

func (c *Int64Column) equal(o Column) bool {
	oc, ok := o.(*Int64Column)
	return ok && slices.Equal(c.Values, oc.Values)
}

func (c *Float32Column) equal(o Column) bool {
	oc, ok := o.(*Float32Column)
	return ok && slices.Equal(c.Values, oc.Values)
}

func (c *Float64Column) equal(o Column) bool {
	oc, ok := o.(*Float64Column)
	return ok && slices.Equal(c.Values, oc.Values)
}

func (c *BytesColumn) equal(o Column) bool {
	oc, ok := o.(*BytesColumn)
	if !ok || len(c.Values) != len(oc.Values) {
		return false
	}
	for i := range c.Values {
		if !bytes.Equal(c.Values[i], oc.Values[i]) {
			return false
		}
	}
	return true
}

// decodeColumn reads rows values of the given type from r.
func decodeColumn(r io.Reader, typ Type, rows int) (Column, error) {
	switch typ {
	case TypeUint32:
		buf := make([]byte, 4*rows)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		values := make([]uint32, rows)
		for i := range values {
			values[i] = binary.LittleEndian.Uint32(buf[i*4:])
		}
		return &Uint32Column{Values: values}, nil

	case TypeUint64:
		buf := make([]byte, 8*rows)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		values := make([]uint64, rows)
		for i := range values {
			values[i] = binary.LittleEndian.Uint64(buf[i*8:])
		}
		return &Uint64Column{Values: values}, nil

	case TypeInt64:
		buf := make([]byte, 8*rows)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		values := make([]int64, rows)
		for i := range values {
			values[i] = int64(binary.LittleEndian.Uint64(buf[i*8:])) //nolint:gosec
		}
		return &Int64Column{Values: values}, nil

	case TypeFloat32:
		buf := make([]byte, 4*rows)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		values := make([]float32, rows)
		for i := range values {
			values[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		}
		return &Float32Column{Values: values}, nil

	case TypeFloat64:
		buf := make([]byte, 8*rows)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		values := make([]float64, rows)
		for i := range values {
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
		}
		return &Float64Column{Values: values}, nil

	case TypeBytes:
		values := make([][]byte, rows)
		var lenBuf [4]byte
		for i := range values {
			if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
				return nil, err
			}
			n := binary.LittleEndian.Uint32(lenBuf[:])
			values[i] = make([]byte, n)
			if _, err := io.ReadFull(r, values[i]); err != nil {
				return nil, err
			}
		}
		return &BytesColumn{Values: values}, nil

	default:
		return nil, fmt.Errorf("record: decode column: invalid type %d", typ)
	}
}
