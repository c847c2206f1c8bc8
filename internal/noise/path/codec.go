package path

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
	"gonum.org/v1/gonum/spatial/r2"
)

// ErrCorruptStream is returned when a serialized path cannot be decoded.
var ErrCorruptStream = errors.New("path: corrupt stream")

// Field numbers of the path message.
const (
	fieldSourceID   protowire.Number = 1
	fieldReceiverID protowire.Number = 2
	fieldKind       protowire.Number = 3
	fieldPoint      protowire.Number = 4
	fieldSegment    protowire.Number = 5
	fieldGround     protowire.Number = 6
)

// Field numbers of the point message.
const (
	fieldRole       protowire.Number = 1
	fieldX          protowire.Number = 2
	fieldY          protowire.Number = 3
	fieldZ          protowire.Number = 4
	fieldAbscissa   protowire.Number = 5
	fieldGroundZ    protowire.Number = 6
	fieldWallID     protowire.Number = 7
	fieldAbsorption protowire.Number = 8
)

// Field numbers of the segment message.
const (
	fieldFirst  protowire.Number = 1
	fieldLast   protowire.Number = 2
	fieldGPath  protowire.Number = 3
	fieldLength protowire.Number = 4
)

// maxMessageSize bounds a single length-delimited path on read.
const maxMessageSize = 64 << 20

// Marshal encodes the stored fields of p. Derived segment fields are not
// written; call Init after Unmarshal to recompute them.
func Marshal(p *PropagationPath) []byte {
	var b []byte
	b = appendSint(b, fieldSourceID, int64(p.SourceID))
	b = appendSint(b, fieldReceiverID, int64(p.ReceiverID))
	b = protowire.AppendTag(b, fieldKind, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Kind))
	for _, pt := range p.Points {
		b = protowire.AppendTag(b, fieldPoint, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalPoint(pt))
	}
	for _, s := range p.Segments {
		b = protowire.AppendTag(b, fieldSegment, protowire.BytesType)
		b = protowire.AppendBytes(b, marshalSegment(s))
	}
	if len(p.Ground) > 0 {
		packed := make([]byte, 0, 16*len(p.Ground))
		for _, g := range p.Ground {
			packed = protowire.AppendFixed64(packed, math.Float64bits(g.X))
			packed = protowire.AppendFixed64(packed, math.Float64bits(g.Y))
		}
		b = protowire.AppendTag(b, fieldGround, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	return b
}

func marshalPoint(pt PointPath) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldRole, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(pt.Role))
	b = appendDouble(b, fieldX, pt.Pos.X)
	b = appendDouble(b, fieldY, pt.Pos.Y)
	b = appendDouble(b, fieldZ, pt.Pos.Z)
	b = appendDouble(b, fieldAbscissa, pt.Abscissa)
	b = appendDouble(b, fieldGroundZ, pt.GroundZ)
	b = appendSint(b, fieldWallID, int64(pt.WallID))
	if len(pt.Absorption) > 0 {
		packed := make([]byte, 0, 8*len(pt.Absorption))
		for _, a := range pt.Absorption {
			packed = protowire.AppendFixed64(packed, math.Float64bits(a))
		}
		b = protowire.AppendTag(b, fieldAbsorption, protowire.BytesType)
		b = protowire.AppendBytes(b, packed)
	}
	return b
}

func marshalSegment(s SegmentPath) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldFirst, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.First))
	b = protowire.AppendTag(b, fieldLast, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(s.Last))
	b = appendDouble(b, fieldGPath, s.GPath)
	b = appendDouble(b, fieldLength, s.Length)
	return b
}

func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}

func appendSint(b []byte, num protowire.Number, v int64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(v))
}

// Unmarshal decodes a path written by Marshal. Unknown fields are skipped.
func Unmarshal(b []byte) (*PropagationPath, error) {
	p := &PropagationPath{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, u uint64) error {
		switch {
		case num == fieldSourceID && typ == protowire.VarintType:
			p.SourceID = int(protowire.DecodeZigZag(u))
		case num == fieldReceiverID && typ == protowire.VarintType:
			p.ReceiverID = int(protowire.DecodeZigZag(u))
		case num == fieldKind && typ == protowire.VarintType:
			p.Kind = Kind(u)
		case num == fieldPoint && typ == protowire.BytesType:
			pt, err := unmarshalPoint(v)
			if err != nil {
				return err
			}
			p.Points = append(p.Points, pt)
		case num == fieldSegment && typ == protowire.BytesType:
			s, err := unmarshalSegment(v)
			if err != nil {
				return err
			}
			p.Segments = append(p.Segments, s)
		case num == fieldGround && typ == protowire.BytesType:
			vals, err := unpackDoubles(v)
			if err != nil || len(vals)%2 != 0 {
				return fmt.Errorf("%w: ground profile", ErrCorruptStream)
			}
			for i := 0; i < len(vals); i += 2 {
				p.Ground = append(p.Ground, r2.Vec{X: vals[i], Y: vals[i+1]})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, s := range p.Segments {
		if s.First < 0 || s.Last >= len(p.Points) || s.First > s.Last {
			return nil, fmt.Errorf("%w: segment [%d,%d] outside %d points", ErrCorruptStream, s.First, s.Last, len(p.Points))
		}
	}
	return p, nil
}

func unmarshalPoint(b []byte) (PointPath, error) {
	pt := PointPath{WallID: -1}
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, u uint64) error {
		f := math.Float64frombits(u)
		switch {
		case num == fieldRole && typ == protowire.VarintType:
			pt.Role = Role(u)
		case num == fieldX && typ == protowire.Fixed64Type:
			pt.Pos.X = f
		case num == fieldY && typ == protowire.Fixed64Type:
			pt.Pos.Y = f
		case num == fieldZ && typ == protowire.Fixed64Type:
			pt.Pos.Z = f
		case num == fieldAbscissa && typ == protowire.Fixed64Type:
			pt.Abscissa = f
		case num == fieldGroundZ && typ == protowire.Fixed64Type:
			pt.GroundZ = f
		case num == fieldWallID && typ == protowire.VarintType:
			pt.WallID = int(protowire.DecodeZigZag(u))
		case num == fieldAbsorption && typ == protowire.BytesType:
			vals, err := unpackDoubles(v)
			if err != nil {
				return err
			}
			pt.Absorption = vals
		}
		return nil
	})
	return pt, err
}

func unmarshalSegment(b []byte) (SegmentPath, error) {
	var s SegmentPath
	err := walk(b, func(num protowire.Number, typ protowire.Type, v []byte, u uint64) error {
		switch {
		case num == fieldFirst && typ == protowire.VarintType:
			s.First = int(u)
		case num == fieldLast && typ == protowire.VarintType:
			s.Last = int(u)
		case num == fieldGPath && typ == protowire.Fixed64Type:
			s.GPath = math.Float64frombits(u)
		case num == fieldLength && typ == protowire.Fixed64Type:
			s.Length = math.Float64frombits(u)
		}
		return nil
	})
	return s, err
}

// walk iterates the fields of one message. Varint and fixed64 values are
// passed in u, length-delimited values in v.
func walk(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, u uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrCorruptStream, protowire.ParseError(n))
		}
		b = b[n:]
		var (
			v []byte
			u uint64
		)
		switch typ {
		case protowire.VarintType:
			u, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			u, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			v, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return fmt.Errorf("%w: field %d: %v", ErrCorruptStream, num, protowire.ParseError(n))
		}
		b = b[n:]
		if err := fn(num, typ, v, u); err != nil {
			return err
		}
	}
	return nil
}

func unpackDoubles(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("%w: packed doubles length %d", ErrCorruptStream, len(b))
	}
	out := make([]float64, 0, len(b)/8)
	for len(b) > 0 {
		u, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %v", ErrCorruptStream, protowire.ParseError(n))
		}
		out = append(out, math.Float64frombits(u))
		b = b[n:]
	}
	return out, nil
}

// WritePaths writes paths to w, each prefixed by its varint length.
func WritePaths(w io.Writer, paths []*PropagationPath) error {
	bw := bufio.NewWriter(w)
	for _, p := range paths {
		msg := Marshal(p)
		if _, err := bw.Write(protowire.AppendVarint(nil, uint64(len(msg)))); err != nil {
			return fmt.Errorf("failed to write path length: %w", err)
		}
		if _, err := bw.Write(msg); err != nil {
			return fmt.Errorf("failed to write path: %w", err)
		}
	}
	return bw.Flush()
}

// ReadPaths reads every path written by WritePaths until EOF.
func ReadPaths(r io.Reader) ([]*PropagationPath, error) {
	br := bufio.NewReader(r)
	var out []*PropagationPath
	for {
		size, err := binary.ReadUvarint(br)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: length prefix: %v", ErrCorruptStream, err)
		}
		if size > maxMessageSize {
			return nil, fmt.Errorf("%w: message of %d bytes", ErrCorruptStream, size)
		}
		msg := make([]byte, size)
		if _, err := io.ReadFull(br, msg); err != nil {
			return nil, fmt.Errorf("%w: truncated message: %v", ErrCorruptStream, err)
		}
		p, err := Unmarshal(msg)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
}
