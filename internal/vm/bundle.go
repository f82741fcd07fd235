package vm

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// BundleVersion is the current serialized chunk format.
const BundleVersion byte = 0x01

// bundleMagic prefixes every serialized chunk
var bundleMagic = []byte{'L', 'O', 'X', 'B'}

var (
	ErrBadMagic = errors.New("invalid magic number, expected LOXB")
	ErrVersion  = errors.New("unsupported bytecode version")
)

// cborEncMode uses canonical encoding so equal chunks serialize identically.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// constantKind tags a serialized constant
type constantKind uint8

const (
	constNil constantKind = iota
	constBool
	constNumber
	constString
)

type wireConstant struct {
	Kind constantKind `cbor:"1,keyasint"`
	Num  float64      `cbor:"2,keyasint,omitempty"`
	Bool bool         `cbor:"3,keyasint,omitempty"`
	Str  string       `cbor:"4,keyasint,omitempty"`
}

type wireChunk struct {
	Code      []byte         `cbor:"1,keyasint"`
	Lines     []int          `cbor:"2,keyasint"`
	Constants []wireConstant `cbor:"3,keyasint"`
}

// SerializeChunk converts a Chunk to binary format.
// Format:
// - Magic number (4 bytes): "LOXB"
// - Version (1 byte)
// - CBOR-encoded chunk data
func SerializeChunk(c *Chunk) ([]byte, error) {
	wc := wireChunk{
		Code:      c.Code,
		Lines:     c.Lines,
		Constants: make([]wireConstant, len(c.Constants)),
	}
	for i, v := range c.Constants {
		switch v.Type {
		case ValNil:
			wc.Constants[i] = wireConstant{Kind: constNil}
		case ValBool:
			wc.Constants[i] = wireConstant{Kind: constBool, Bool: v.AsBool()}
		case ValNumber:
			wc.Constants[i] = wireConstant{Kind: constNumber, Num: v.AsNumber()}
		case ValObj:
			switch o := v.Obj.(type) {
			case *ObjString:
				wc.Constants[i] = wireConstant{Kind: constString, Str: o.Chars}
			default:
				return nil, fmt.Errorf("constant %d: cannot serialize %s", i, v.TypeName())
			}
		}
	}

	payload, err := cborEncMode.Marshal(wc)
	if err != nil {
		return nil, fmt.Errorf("chunk cbor encoding failed: %w", err)
	}

	buf := new(bytes.Buffer)
	buf.Write(bundleMagic)
	buf.WriteByte(BundleVersion)
	buf.Write(payload)
	return buf.Bytes(), nil
}

// DeserializeChunk reads data produced by SerializeChunk. String constants
// are interned into heap, so they are identical to strings the heap already holds.
func DeserializeChunk(data []byte, heap *Heap) (*Chunk, error) {
	if len(data) < len(bundleMagic)+1 {
		return nil, fmt.Errorf("bytecode data too short")
	}
	if !bytes.Equal(data[:len(bundleMagic)], bundleMagic) {
		return nil, ErrBadMagic
	}
	if version := data[len(bundleMagic)]; version != BundleVersion {
		return nil, fmt.Errorf("%w: 0x%02x", ErrVersion, version)
	}

	var wc wireChunk
	if err := cbor.Unmarshal(data[len(bundleMagic)+1:], &wc); err != nil {
		return nil, fmt.Errorf("chunk cbor decoding failed: %w", err)
	}
	if len(wc.Lines) != len(wc.Code) {
		return nil, fmt.Errorf("line table has %d entries for %d bytes of code", len(wc.Lines), len(wc.Code))
	}
	if len(wc.Constants) > MaxConstants {
		return nil, fmt.Errorf("%w: %d", ErrTooManyConstants, len(wc.Constants))
	}

	chunk := NewChunk()
	chunk.Code = append(chunk.Code, wc.Code...)
	chunk.Lines = append(chunk.Lines, wc.Lines...)
	for i, wcon := range wc.Constants {
		var v Value
		switch wcon.Kind {
		case constNil:
			v = NilVal()
		case constBool:
			v = BoolVal(wcon.Bool)
		case constNumber:
			v = NumberVal(wcon.Num)
		case constString:
			v = ObjVal(heap.CopyString(wcon.Str))
		default:
			return nil, fmt.Errorf("constant %d: unknown kind %d", i, wcon.Kind)
		}
		if _, err := chunk.AddConstant(v); err != nil {
			return nil, err
		}
	}
	return chunk, nil
}
