// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package capture

import (
	"fmt"
)

// Protocol is the logical sub-channel that a frame was recorded on.
type Protocol int32

const (
	// ProtocolNone is an unspecified protocol.
	ProtocolNone Protocol = 0
	// ProtocolZone is the zone (world) server connection.
	ProtocolZone Protocol = 1
	// ProtocolChat is the chat server connection.
	ProtocolChat Protocol = 2
	// ProtocolLobby is the lobby server connection.
	ProtocolLobby Protocol = 3
)

func (p Protocol) String() string {
	switch p {
	case ProtocolNone:
		return "None"
	case ProtocolZone:
		return "Zone"
	case ProtocolChat:
		return "Chat"
	case ProtocolLobby:
		return "Lobby"
	default:
		return fmt.Sprintf("Protocol(%d)", int32(p))
	}
}

// DirName returns the output directory name used for frames on p.
func (p Protocol) DirName() string {
	switch p {
	case ProtocolZone:
		return "zone"
	case ProtocolChat:
		return "chat"
	case ProtocolLobby:
		return "lobby"
	default:
		return "none"
	}
}

// Direction is the direction that a frame travelled in.
type Direction int32

const (
	// DirectionNone is an unspecified direction.
	DirectionNone Direction = 0
	// DirectionRx is a frame received from the server, heading to the client.
	DirectionRx Direction = 1
	// DirectionTx is a frame transmitted by the client, heading to the server.
	DirectionTx Direction = 2
)

func (d Direction) String() string {
	switch d {
	case DirectionNone:
		return "None"
	case DirectionRx:
		return "Rx"
	case DirectionTx:
		return "Tx"
	default:
		return fmt.Sprintf("Direction(%d)", int32(d))
	}
}

// Label returns the endpoint that a frame travelling in d is addressed to:
// "client" for received frames, "server" for transmitted frames.
func (d Direction) Label() string {
	switch d {
	case DirectionRx:
		return "client"
	case DirectionTx:
		return "server"
	default:
		return "none"
	}
}

func protocolFromWire(v uint64) Protocol {
	switch p := Protocol(int32(v)); p {
	case ProtocolZone, ProtocolChat, ProtocolLobby:
		return p
	default:
		return ProtocolNone
	}
}

func directionFromWire(v uint64) Direction {
	switch d := Direction(int32(v)); d {
	case DirectionRx, DirectionTx:
		return d
	default:
		return DirectionNone
	}
}
