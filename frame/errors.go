// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package frame

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrTruncated is returned when a frame ends inside a header or payload.
	ErrTruncated = errors.New("truncated frame")

	// ErrSizeUnderflow is returned when a packet's declared size is smaller than
	// the headers that it must contain.
	ErrSizeUnderflow = errors.New("packet size smaller than its headers")

	// ErrFrameExtent is returned when a frame's declared size disagrees with the
	// bytes that its packets occupy.
	ErrFrameExtent = errors.New("frame size does not match its packets")

	// ErrUnknownPacketType is returned for a packet type tag outside of the
	// known set.
	ErrUnknownPacketType = errors.New("unknown packet type")

	// ErrUnknownConnectionType is returned for a connection type outside of the
	// known set.
	ErrUnknownConnectionType = errors.New("unknown connection type")

	// ErrUnknownCompression is returned for a compression type outside of the
	// known set.
	ErrUnknownCompression = errors.New("unknown compression type")
)

// ParseError describes structural corruption found while parsing a frame.
type ParseError struct {
	// Offset is the byte offset, within the frame, of the structure that failed
	// to parse.
	Offset int
	// Packet is the index of the packet that failed to parse, or -1 if the frame
	// header failed to parse.
	Packet int
	// Err is the underlying error.
	Err error
}

func (e *ParseError) Error() string {
	if e.Packet < 0 {
		return fmt.Sprintf("frame header at offset %d: %v", e.Offset, e.Err)
	}
	return fmt.Sprintf("packet #%d at offset %d: %v", e.Packet, e.Offset, e.Err)
}

// Cause implements the github.com/pkg/errors causer interface.
func (e *ParseError) Cause() error { return e.Err }

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error { return e.Err }
