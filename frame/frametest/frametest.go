// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package frametest builds frames for tests.
package frametest

import (
	"github.com/redstrate/XIVPacketTools/frame"
)

// IPCPacket returns an Ipc packet whose size matches its payload.
func IPCPacket(opcode uint16, source, target uint32, payload []byte) frame.Packet {
	return frame.Packet{
		Header: frame.PacketHeader{
			Size:         uint32(frame.PacketHeaderSize + frame.IPCHeaderSize + len(payload)),
			SourceEntity: source,
			TargetEntity: target,
			Type:         frame.PacketIpc,
		},
		Body: &frame.IPCBody{
			Header: frame.IPCHeader{
				Unknown:   0x14,
				OpCode:    opcode,
				ServerID:  0x2B,
				Timestamp: 0x5F5E1000,
			},
			Data: payload,
		},
	}
}

// RawPacket returns a packet of type pt without an IPC header, whose size
// matches its payload.
func RawPacket(pt frame.PacketType, source, target uint32, payload []byte) frame.Packet {
	return frame.Packet{
		Header: frame.PacketHeader{
			Size:         uint32(frame.PacketHeaderSize + len(payload)),
			SourceEntity: source,
			TargetEntity: target,
			Type:         pt,
		},
		Body: &frame.RawBody{Data: payload},
	}
}

// Frame returns an uncompressed frame holding packets, with its TotalSize and
// Count filled in.
func Frame(conn frame.ConnectionType, packets ...frame.Packet) *frame.Frame {
	size := frame.HeaderSize
	for i := range packets {
		size += int(packets[i].Header.Size)
	}

	f := frame.Frame{
		Header: frame.FrameHeader{
			TimeValue:  1700000000000,
			TotalSize:  uint32(size),
			Connection: conn,
			Count:      uint16(len(packets)),
			Version:    1,
		},
		Packets: packets,
	}
	f.Header.Prefix[0] = 0x52
	return &f
}

// Bytes returns the encoded form of Frame(conn, packets...).
func Bytes(conn frame.ConnectionType, packets ...frame.Packet) []byte {
	data, err := Frame(conn, packets...).Bytes()
	if err != nil {
		panic(err)
	}
	return data
}

// Payload returns n bytes counting up from base.
func Payload(base byte, n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = base + byte(i)
	}
	return data
}
