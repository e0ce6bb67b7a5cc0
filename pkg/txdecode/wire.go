package txdecode

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field is one decoded protobuf field. Bytes is set for length-delimited
// fields, Varint for varint and fixed-width fields.
type Field struct {
	Num    protowire.Number
	Type   protowire.Type
	Bytes  []byte
	Varint uint64
}

// Fields splits a protobuf message into its top level fields, preserving order.
// Unknown wire types and truncated input are reported as ErrMalformedInput.
func Fields(b []byte) ([]Field, error) {
	var out []Field
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, protowire.ParseError(n))
		}
		b = b[n:]
		f := Field{Num: num, Type: typ}
		switch typ {
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformedInput, num, protowire.ParseError(m))
			}
			f.Varint, n = v, m
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformedInput, num, protowire.ParseError(m))
			}
			f.Bytes, n = v, m
		case protowire.Fixed32Type:
			v, m := protowire.ConsumeFixed32(b)
			if m < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformedInput, num, protowire.ParseError(m))
			}
			f.Varint, n = uint64(v), m
		case protowire.Fixed64Type:
			v, m := protowire.ConsumeFixed64(b)
			if m < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformedInput, num, protowire.ParseError(m))
			}
			f.Varint, n = v, m
		case protowire.StartGroupType:
			m := protowire.ConsumeFieldValue(num, typ, b)
			if m < 0 {
				return nil, fmt.Errorf("%w: field %d: %v", ErrMalformedInput, num, protowire.ParseError(m))
			}
			n = m
		default:
			return nil, fmt.Errorf("%w: field %d has wire type %d", ErrMalformedInput, num, typ)
		}
		out = append(out, f)
		b = b[n:]
	}
	return out, nil
}

// Str returns the field as a string. Non length-delimited fields yield "".
func (f Field) Str() string {
	if f.Type != protowire.BytesType {
		return ""
	}
	return string(f.Bytes)
}

// Any is a google.protobuf.Any.
type Any struct {
	TypeURL string
	Value   []byte
}

// DecodeAny parses a google.protobuf.Any.
func DecodeAny(b []byte) (Any, error) {
	fs, err := Fields(b)
	if err != nil {
		return Any{}, err
	}
	var a Any
	for _, f := range fs {
		switch f.Num {
		case 1:
			a.TypeURL = f.Str()
		case 2:
			a.Value = f.Bytes
		}
	}
	return a, nil
}
