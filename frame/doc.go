// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package frame decodes the binary frames embedded in capture records.
//
// A frame is a fixed 40-byte FrameHeader followed by exactly Count packets.
// All values are little-endian.
//
//	FrameHeader
//	  [0:16]  prefix
//	  [16:24] time value
//	  [24:28] total size
//	  [28:30] connection type
//	  [30:32] packet count
//	  [32]    version
//	  [33]    compression type
//	  [34:36] unknown
//	  [36:40] decompressed length
//
// Each packet is a 16-byte PacketHeader, then a 16-byte IPCHeader if and only
// if the packet's type is Ipc, then its payload. The payload length is derived
// from the PacketHeader's size, which counts both headers.
//
//	PacketHeader
//	  [0:4]   size
//	  [4:8]   source entity
//	  [8:12]  target entity
//	  [12:14] packet type
//	  [14:16] padding
//
//	IPCHeader
//	  [0:2]   unknown
//	  [2:4]   opcode
//	  [4:6]   unknown
//	  [6:8]   server ID
//	  [8:12]  timestamp
//	  [12:16] unknown
package frame
