// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package opcode

import (
	"github.com/redstrate/XIVPacketTools/capture"
	"github.com/redstrate/XIVPacketTools/support/fmtutil"
)

// MatchKind is the outcome of classifying an opcode.
type MatchKind int

const (
	// Unknown means that no table entry describes the opcode.
	Unknown MatchKind = iota
	// SizeHint means that the opcode was not identified, but a table entry
	// with a matching payload size exists. The hint is informational only.
	SizeHint
	// Exact means that exactly one table entry has the opcode.
	Exact
)

func (k MatchKind) String() string {
	switch k {
	case Exact:
		return "exact"
	case SizeHint:
		return "size_hint"
	default:
		return "unknown"
	}
}

// Classification is the result of classifying an IPC packet's opcode.
type Classification struct {
	Kind MatchKind

	// OpCode is the classified opcode.
	OpCode uint16
	// PayloadSize is the size of the classified packet's payload.
	PayloadSize int

	// Name is the matched entry's name for an Exact match, or the candidate
	// entry's name for a SizeHint. It is empty for Unknown.
	Name string
	// ExpectedSize is the declared size of the entry named by Name.
	ExpectedSize uint32
}

// Label returns the name used to identify the packet: the matched name for an
// Exact match, and the raw hexadecimal opcode otherwise.
func (c *Classification) Label() string {
	if c.Kind == Exact {
		return c.Name
	}
	return fmtutil.OpCode(c.OpCode)
}

// SizeMismatch returns true if c is an Exact match whose entry declares a
// different payload size than the packet has.
func (c *Classification) SizeMismatch() bool {
	return c.Kind == Exact && int64(c.ExpectedSize) != int64(c.PayloadSize)
}

// Classify identifies opcode against entries.
//
// If exactly one entry has the opcode, it is an Exact match, regardless of
// its declared size. Otherwise, the first entry whose declared size equals
// payloadSize is reported as a SizeHint. Classify never fails; with no usable
// entries, the result is Unknown.
func Classify(entries []KnownOpCode, opcode uint16, payloadSize int) Classification {
	c := Classification{
		Kind:        Unknown,
		OpCode:      opcode,
		PayloadSize: payloadSize,
	}

	match := -1
	for i := range entries {
		if entries[i].OpCode != int32(opcode) {
			continue
		}
		if match >= 0 {
			// Ambiguous.
			match = -1
			break
		}
		match = i
	}
	if match >= 0 {
		c.Kind, c.Name, c.ExpectedSize = Exact, entries[match].Name, entries[match].Size
		return c
	}

	for i := range entries {
		if int64(entries[i].Size) == int64(payloadSize) {
			c.Kind, c.Name, c.ExpectedSize = SizeHint, entries[i].Name, entries[i].Size
			break
		}
	}
	return c
}

// Classify identifies opcode against the list that t holds for protocol p and
// direction d. A nil Table classifies every opcode as Unknown.
func (t *Table) Classify(p capture.Protocol, d capture.Direction, opcode uint16, payloadSize int) Classification {
	return Classify(t.For(p, d), opcode, payloadSize)
}
