// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package frame

import (
	"bytes"
	"io"

	"github.com/redstrate/XIVPacketTools/support/byteslicereader"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

// HeaderSize is the encoded size of a FrameHeader.
const HeaderSize = 40

// FrameHeader begins every frame.
type FrameHeader struct {
	Prefix    [16]byte
	TimeValue uint64 `struc:",little"`
	// TotalSize is the size of the frame on the wire, including this header.
	TotalSize  uint32         `struc:",little"`
	Connection ConnectionType `struc:"uint16,little"`
	// Count is the number of packets in the frame.
	Count       uint16 `struc:",little"`
	Version     uint8
	Compression CompressionType `struc:"uint8"`
	Unknown     uint16          `struc:",little"`
	// DecompressedLength is the size of the frame's packets once decompressed.
	DecompressedLength uint32 `struc:",little"`
}

// Extent returns the number of bytes, including the header, that the frame's
// packets are expected to occupy.
//
// Captured frames hold their packets decompressed. For a frame that was
// compressed on the wire, TotalSize describes the compressed form, so the
// extent is derived from DecompressedLength instead.
//
// The Oodle extent is an assumption about how recorders store compressed
// frames; it has not been confirmed against real captures.
func (h *FrameHeader) Extent() int64 {
	if h.Compression == CompressionOodle {
		return HeaderSize + int64(h.DecompressedLength)
	}
	return int64(h.TotalSize)
}

// Frame is a decoded frame.
type Frame struct {
	Header  FrameHeader
	Packets []Packet
}

// Parse decodes a frame from data.
//
// Parse is atomic: on error no Frame is returned. Errors describing malformed
// input are *ParseError values. Bytes in data beyond the frame's extent are
// ignored.
//
// The returned packets' payloads alias data.
func Parse(data []byte) (*Frame, error) {
	r := byteslicereader.R{Buffer: data}

	var f Frame
	if err := unpack(&r, HeaderSize, &f.Header); err != nil {
		return nil, &ParseError{Offset: 0, Packet: -1, Err: err}
	}

	switch h := &f.Header; {
	case !h.Connection.valid():
		return nil, &ParseError{Offset: 0, Packet: -1, Err: errors.Wrapf(ErrUnknownConnectionType, "0x%x", uint16(h.Connection))}
	case !h.Compression.valid():
		return nil, &ParseError{Offset: 0, Packet: -1, Err: errors.Wrapf(ErrUnknownCompression, "%d", uint8(h.Compression))}
	}

	extent := f.Header.Extent()
	if extent < HeaderSize || !r.Limit(int(extent-HeaderSize)) {
		return nil, &ParseError{Offset: 0, Packet: -1,
			Err: errors.Wrapf(ErrFrameExtent, "declared %d bytes, have %d", extent, len(data))}
	}

	f.Packets = make([]Packet, f.Header.Count)
	for i := range f.Packets {
		offset := r.Offset()
		if err := readPacket(&r, &f.Packets[i]); err != nil {
			return nil, &ParseError{Offset: offset, Packet: i, Err: err}
		}
	}

	if rem := r.Remaining(); rem != 0 {
		return nil, &ParseError{Offset: r.Offset(), Packet: len(f.Packets),
			Err: errors.Wrapf(ErrFrameExtent, "%d unparsed bytes after %d packets", rem, len(f.Packets))}
	}
	return &f, nil
}

func readPacket(r *byteslicereader.R, pkt *Packet) error {
	if err := unpack(r, PacketHeaderSize, &pkt.Header); err != nil {
		return err
	}
	if !pkt.Header.Type.valid() {
		return errors.Wrapf(ErrUnknownPacketType, "0x%x", uint16(pkt.Header.Type))
	}

	// The payload length depends on which headers are present, so it must be
	// bounds-checked before anything past the PacketHeader is read.
	payloadLen, err := pkt.Header.PayloadLen()
	if err != nil {
		return err
	}

	if !pkt.Header.HasIPC() {
		data, err := next(r, payloadLen)
		if err != nil {
			return err
		}
		pkt.Body = &RawBody{Data: data}
		return nil
	}

	var body IPCBody
	if err := unpack(r, IPCHeaderSize, &body.Header); err != nil {
		return err
	}
	if body.Data, err = next(r, payloadLen); err != nil {
		return err
	}
	pkt.Body = &body
	return nil
}

func unpack(r *byteslicereader.R, size int, v interface{}) error {
	data, err := next(r, size)
	if err != nil {
		return err
	}
	return struc.Unpack(bytes.NewReader(data), v)
}

func next(r *byteslicereader.R, n int) ([]byte, error) {
	data, err := r.Next(n)
	if err == io.ErrUnexpectedEOF {
		return nil, errors.Wrapf(ErrTruncated, "need %d bytes, have %d", n, r.Remaining())
	}
	return data, err
}

// Bytes returns the encoded frame.
//
// Header fields are written as-is; TotalSize and Count are not recomputed.
func (f *Frame) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := struc.Pack(&buf, &f.Header); err != nil {
		return nil, errors.Wrap(err, "packing frame header")
	}
	for i := range f.Packets {
		if _, err := f.Packets[i].WriteTo(&buf); err != nil {
			return nil, errors.Wrapf(err, "packet #%d", i)
		}
	}
	return buf.Bytes(), nil
}
