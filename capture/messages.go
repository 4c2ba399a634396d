// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package capture

import (
	"time"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// ErrMissingField is returned when a record lacks a required field.
var ErrMissingField = errors.New("missing required field")

// VersionInfo describes the software that wrote a capture.
//
// Field numbers:
//
//	1: writer_identifier (string)
//	2: writer_version (string)
//	3: capture_version (int32)
//	4: game_version (repeated string)
type VersionInfo struct {
	WriterIdentifier string
	WriterVersion    string
	CaptureVersion   int32
	GameVersions     []string
}

// Unmarshal decodes v from its wire bytes.
func (v *VersionInfo) Unmarshal(data []byte) error {
	*v = VersionInfo{}

	fr := fieldReader{b: data}
	for fr.next() {
		switch {
		case fr.is(1, protowire.BytesType):
			v.WriterIdentifier = string(fr.bytes())
		case fr.is(2, protowire.BytesType):
			v.WriterVersion = string(fr.bytes())
		case fr.is(3, protowire.VarintType):
			v.CaptureVersion = int32(fr.varint())
		case fr.is(4, protowire.BytesType):
			v.GameVersions = append(v.GameVersions, string(fr.bytes()))
		}
	}
	return errors.Wrap(fr.err, "decoding VersionInfo")
}

// Marshal encodes v to its wire bytes.
func (v *VersionInfo) Marshal() ([]byte, error) {
	var b []byte
	b = appendString(b, 1, v.WriterIdentifier)
	b = appendString(b, 2, v.WriterVersion)
	if v.CaptureVersion != 0 {
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(int64(v.CaptureVersion)))
	}
	for _, gv := range v.GameVersions {
		b = protowire.AppendTag(b, 4, protowire.BytesType)
		b = protowire.AppendString(b, gv)
	}
	return b, nil
}

// CaptureInfo describes a single capture session.
//
// Field numbers:
//
//	1: capture_id (string)
//	2: capture_start_time (google.protobuf.Timestamp)
//	3: capture_end_time (google.protobuf.Timestamp)
type CaptureInfo struct {
	CaptureID string

	StartTime time.Time
	EndTime   time.Time
}

// Unmarshal decodes ci from its wire bytes.
//
// CaptureID is required.
func (ci *CaptureInfo) Unmarshal(data []byte) error {
	*ci = CaptureInfo{}

	hasID := false
	fr := fieldReader{b: data}
	for fr.next() {
		switch {
		case fr.is(1, protowire.BytesType):
			ci.CaptureID, hasID = string(fr.bytes()), true
		case fr.is(2, protowire.BytesType):
			ci.StartTime = fr.timestamp()
		case fr.is(3, protowire.BytesType):
			ci.EndTime = fr.timestamp()
		}
	}
	if fr.err != nil {
		return errors.Wrap(fr.err, "decoding CaptureInfo")
	}
	if !hasID {
		return errors.Wrap(ErrMissingField, "CaptureInfo.capture_id")
	}
	return nil
}

// Marshal encodes ci to its wire bytes.
func (ci *CaptureInfo) Marshal() ([]byte, error) {
	b := protowire.AppendTag(nil, 1, protowire.BytesType)
	b = protowire.AppendString(b, ci.CaptureID)

	var err error
	if b, err = appendTimestamp(b, 2, ci.StartTime); err != nil {
		return nil, err
	}
	if b, err = appendTimestamp(b, 3, ci.EndTime); err != nil {
		return nil, err
	}
	return b, nil
}

// CaptureFrameHeader identifies where a captured frame was observed.
//
// Field numbers:
//
//	1: protocol (enum Protocol)
//	2: direction (enum Direction)
//
// Enumeration values outside of the known set decode as None.
type CaptureFrameHeader struct {
	Protocol  Protocol
	Direction Direction
}

// Unmarshal decodes h from its wire bytes.
func (h *CaptureFrameHeader) Unmarshal(data []byte) error {
	*h = CaptureFrameHeader{}

	fr := fieldReader{b: data}
	for fr.next() {
		switch {
		case fr.is(1, protowire.VarintType):
			h.Protocol = protocolFromWire(fr.varint())
		case fr.is(2, protowire.VarintType):
			h.Direction = directionFromWire(fr.varint())
		}
	}
	return errors.Wrap(fr.err, "decoding CaptureFrameHeader")
}

// Marshal encodes h to its wire bytes.
func (h *CaptureFrameHeader) Marshal() ([]byte, error) {
	var b []byte
	if h.Protocol != ProtocolNone {
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(h.Protocol))
	}
	if h.Direction != DirectionNone {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(h.Direction))
	}
	return b, nil
}

// CaptureFrame is a single record of the Data stream.
//
// Field numbers:
//
//	1: header (CaptureFrameHeader)
//	2: frame (bytes)
//
// Both fields are required. Frame aliases the buffer that the record was
// decoded from.
type CaptureFrame struct {
	Header CaptureFrameHeader
	Frame  []byte
}

// Unmarshal decodes cf from its wire bytes.
func (cf *CaptureFrame) Unmarshal(data []byte) error {
	*cf = CaptureFrame{}

	hasHeader, hasFrame := false, false
	fr := fieldReader{b: data}
	for fr.next() {
		switch {
		case fr.is(1, protowire.BytesType):
			if err := cf.Header.Unmarshal(fr.bytes()); err != nil {
				return err
			}
			hasHeader = true
		case fr.is(2, protowire.BytesType):
			cf.Frame, hasFrame = fr.bytes(), true
		}
	}

	switch {
	case fr.err != nil:
		return errors.Wrap(fr.err, "decoding CaptureFrame")
	case !hasHeader:
		return errors.Wrap(ErrMissingField, "CaptureFrame.header")
	case !hasFrame:
		return errors.Wrap(ErrMissingField, "CaptureFrame.frame")
	default:
		return nil
	}
}

// Marshal encodes cf to its wire bytes.
func (cf *CaptureFrame) Marshal() ([]byte, error) {
	hdr, err := cf.Header.Marshal()
	if err != nil {
		return nil, err
	}

	b := protowire.AppendTag(nil, 1, protowire.BytesType)
	b = protowire.AppendBytes(b, hdr)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendBytes(b, cf.Frame)
	return b, nil
}

// fieldReader walks the fields of an encoded message.
//
// After next returns true, the current field's value may be consumed with one
// of the value methods. Values that are not consumed are skipped by the
// following call to next.
type fieldReader struct {
	b   []byte
	err error

	num     protowire.Number
	typ     protowire.Type
	pending bool
}

func (fr *fieldReader) next() bool {
	if fr.pending {
		fr.skip()
	}
	if fr.err != nil || len(fr.b) == 0 {
		return false
	}

	num, typ, n := protowire.ConsumeTag(fr.b)
	if n < 0 {
		fr.err = protowire.ParseError(n)
		return false
	}
	fr.b, fr.num, fr.typ, fr.pending = fr.b[n:], num, typ, true
	return true
}

func (fr *fieldReader) is(num protowire.Number, typ protowire.Type) bool {
	return fr.num == num && fr.typ == typ
}

func (fr *fieldReader) consumed(n int) bool {
	fr.pending = false
	if n < 0 {
		fr.err = protowire.ParseError(n)
		return false
	}
	fr.b = fr.b[n:]
	return true
}

func (fr *fieldReader) skip() {
	fr.consumed(protowire.ConsumeFieldValue(fr.num, fr.typ, fr.b))
}

func (fr *fieldReader) bytes() []byte {
	v, n := protowire.ConsumeBytes(fr.b)
	if !fr.consumed(n) {
		return nil
	}
	return v
}

func (fr *fieldReader) varint() uint64 {
	v, n := protowire.ConsumeVarint(fr.b)
	if !fr.consumed(n) {
		return 0
	}
	return v
}

func (fr *fieldReader) timestamp() time.Time {
	data := fr.bytes()
	if fr.err != nil {
		return time.Time{}
	}

	var ts timestamppb.Timestamp
	if err := proto.Unmarshal(data, &ts); err != nil {
		fr.err = errors.Wrap(err, "decoding timestamp")
		return time.Time{}
	}
	return ts.AsTime()
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, v)
}

func appendTimestamp(b []byte, num protowire.Number, t time.Time) ([]byte, error) {
	if t.IsZero() {
		return b, nil
	}

	data, err := proto.Marshal(timestamppb.New(t))
	if err != nil {
		return nil, errors.Wrap(err, "encoding timestamp")
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, data), nil
}
