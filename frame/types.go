// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package frame

import (
	"fmt"
)

// ConnectionType is the connection that a frame belongs to.
type ConnectionType uint16

const (
	// ConnectionNone is an unspecified connection.
	ConnectionNone ConnectionType = 0x0
	// ConnectionZone is the zone connection.
	ConnectionZone ConnectionType = 0x1
	// ConnectionChat is the chat connection.
	ConnectionChat ConnectionType = 0x2
	// ConnectionLobby is the lobby connection.
	ConnectionLobby ConnectionType = 0x3
)

func (ct ConnectionType) valid() bool { return ct <= ConnectionLobby }

func (ct ConnectionType) String() string {
	switch ct {
	case ConnectionNone:
		return "None"
	case ConnectionZone:
		return "Zone"
	case ConnectionChat:
		return "Chat"
	case ConnectionLobby:
		return "Lobby"
	default:
		return fmt.Sprintf("ConnectionType(0x%x)", uint16(ct))
	}
}

// CompressionType is the compression that was applied to a frame's packets on
// the wire.
type CompressionType uint8

const (
	// CompressionUncompressed is an uncompressed frame.
	CompressionUncompressed CompressionType = 0
	// CompressionOodle is an Oodle-compressed frame.
	CompressionOodle CompressionType = 2
)

func (ct CompressionType) valid() bool {
	return ct == CompressionUncompressed || ct == CompressionOodle
}

func (ct CompressionType) String() string {
	switch ct {
	case CompressionUncompressed:
		return "Uncompressed"
	case CompressionOodle:
		return "Oodle"
	default:
		return fmt.Sprintf("CompressionType(%d)", uint8(ct))
	}
}

// PacketType is the type tag of a packet.
type PacketType uint16

const (
	// PacketInitializeSession begins a session.
	PacketInitializeSession PacketType = 0x1
	// PacketZoneInitialize initializes a zone connection.
	PacketZoneInitialize PacketType = 0x2
	// PacketIpc carries an IPCHeader and an opcode-identified payload.
	PacketIpc PacketType = 0x3
	// PacketKeepAlive is a keep-alive request.
	PacketKeepAlive PacketType = 0x7
	// PacketKeepAliveResponse answers a keep-alive request.
	PacketKeepAliveResponse PacketType = 0x8
	// PacketInitializeEncryption begins encryption setup.
	PacketInitializeEncryption PacketType = 0x9
	// PacketInitializeEncryptionResponse answers encryption setup.
	PacketInitializeEncryptionResponse PacketType = 0xA
)

func (pt PacketType) valid() bool {
	switch pt {
	case PacketInitializeSession, PacketZoneInitialize, PacketIpc, PacketKeepAlive,
		PacketKeepAliveResponse, PacketInitializeEncryption, PacketInitializeEncryptionResponse:
		return true
	default:
		return false
	}
}

func (pt PacketType) String() string {
	switch pt {
	case PacketInitializeSession:
		return "InitializeSession"
	case PacketZoneInitialize:
		return "ZoneInitialize"
	case PacketIpc:
		return "Ipc"
	case PacketKeepAlive:
		return "KeepAlive"
	case PacketKeepAliveResponse:
		return "KeepAliveResponse"
	case PacketInitializeEncryption:
		return "InitializeEncryption"
	case PacketInitializeEncryptionResponse:
		return "InitializationEncryptionResponse"
	default:
		return fmt.Sprintf("PacketType(0x%x)", uint16(pt))
	}
}

// Label returns the short name of pt used in output paths.
//
// Requests and their responses share a label.
func (pt PacketType) Label() string {
	switch pt {
	case PacketInitializeSession:
		return "initsession"
	case PacketZoneInitialize:
		return "initzone"
	case PacketIpc:
		return "ipc"
	case PacketKeepAlive, PacketKeepAliveResponse:
		return "keepalive"
	case PacketInitializeEncryption, PacketInitializeEncryptionResponse:
		return "initencryption"
	default:
		return fmt.Sprintf("type%x", uint16(pt))
	}
}
