// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package frame

import (
	"bytes"
	"io"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

const (
	// PacketHeaderSize is the encoded size of a PacketHeader.
	PacketHeaderSize = 16
	// IPCHeaderSize is the encoded size of an IPCHeader.
	IPCHeaderSize = 16
)

// PacketHeader precedes every packet in a frame.
type PacketHeader struct {
	// Size is the total size of the packet, including this header.
	Size uint32 `struc:",little"`
	// SourceEntity is the ID of the actor that sent the packet.
	SourceEntity uint32 `struc:",little"`
	// TargetEntity is the ID of the actor that the packet is addressed to.
	TargetEntity uint32 `struc:",little"`
	// Type determines the layout of the rest of the packet.
	Type PacketType `struc:"uint16,little"`
	// Padding is preserved verbatim.
	Padding uint16 `struc:",little"`
}

// HasIPC returns true if a packet with this header carries an IPCHeader.
func (h *PacketHeader) HasIPC() bool { return h.Type == PacketIpc }

// Overhead returns the number of header bytes counted by Size.
func (h *PacketHeader) Overhead() int {
	if h.HasIPC() {
		return PacketHeaderSize + IPCHeaderSize
	}
	return PacketHeaderSize
}

// PayloadLen returns the length of the payload that follows the packet's
// headers.
//
// If Size is smaller than the packet's headers, PayloadLen returns an error
// wrapping ErrSizeUnderflow.
func (h *PacketHeader) PayloadLen() (int, error) {
	overhead := h.Overhead()
	if int64(h.Size) < int64(overhead) {
		return 0, errors.Wrapf(ErrSizeUnderflow, "size %d, %s packet requires %d", h.Size, h.Type, overhead)
	}
	return int(h.Size) - overhead, nil
}

// IPCHeader is the sub-header carried by Ipc packets.
type IPCHeader struct {
	Unknown  uint16 `struc:",little"`
	OpCode   uint16 `struc:",little"`
	Unknown1 uint16 `struc:",little"`
	ServerID uint16 `struc:",little"`
	// Timestamp is the server's UNIX timestamp, in seconds.
	Timestamp uint32 `struc:",little"`
	Unknown2  uint32 `struc:",little"`
}

// Bytes returns the encoded header, in the same layout that it was parsed
// from.
func (h *IPCHeader) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(IPCHeaderSize)
	if err := struc.Pack(&buf, h); err != nil {
		// Every field is fixed-size; packing into a buffer cannot fail.
		panic(errors.Wrap(err, "packing IPC header"))
	}
	return buf.Bytes()
}

// Body is the portion of a packet that follows its PacketHeader.
//
// A Body is either a RawBody or an IPCBody.
type Body interface {
	// Payload returns the packet's payload bytes.
	Payload() []byte

	isBody()
}

// RawBody is the body of a packet without an IPCHeader.
type RawBody struct {
	Data []byte
}

// Payload implements Body.
func (b *RawBody) Payload() []byte { return b.Data }
func (*RawBody) isBody()           {}

// IPCBody is the body of an Ipc packet.
type IPCBody struct {
	Header IPCHeader
	Data   []byte
}

// Payload implements Body.
func (b *IPCBody) Payload() []byte { return b.Data }
func (*IPCBody) isBody()           {}

// Packet is a single packet within a frame.
type Packet struct {
	Header PacketHeader
	Body   Body
}

// IPC returns the packet's IPCHeader, or nil if the packet does not have
// one.
func (p *Packet) IPC() *IPCHeader {
	if b, ok := p.Body.(*IPCBody); ok {
		return &b.Header
	}
	return nil
}

// Payload returns the packet's payload bytes.
func (p *Packet) Payload() []byte {
	if p.Body == nil {
		return nil
	}
	return p.Body.Payload()
}

// WriteTo writes the encoded packet to w.
//
// The PacketHeader is written as-is; its Size is not recomputed.
func (p *Packet) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	if err := struc.Pack(&buf, &p.Header); err != nil {
		return 0, errors.Wrap(err, "packing packet header")
	}
	if ipc := p.IPC(); ipc != nil {
		buf.Write(ipc.Bytes())
	}
	buf.Write(p.Payload())
	return buf.WriteTo(w)
}
