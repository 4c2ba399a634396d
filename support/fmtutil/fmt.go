// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package fmtutil contains formatting helpers.
package fmtutil

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hex is a byte slice that renders as a hex-dumped string.
//
// It can be used for easy lazy hex dumping.
type Hex []byte

func (h Hex) String() string { return hex.Dump([]byte(h)) }

// HexSlice is a byte slice that renders as a sequence of hex bytes, instead
// of the default decimal bytes.
//
// Output as: "[4]byte{0x10, 0x20, 0x30, 0x40}"
type HexSlice []byte

func (hs HexSlice) String() string {
	var sb bytes.Buffer
	sb.Grow((6 * len(hs)) + 16)
	fmt.Fprintf(&sb, "[%d]byte{", len(hs))
	for i, b := range hs {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "0x%02X", b)
	}
	sb.WriteString("}")
	return sb.String()
}

// OpCode renders an opcode as a lower-case hexadecimal literal, e.g. "0x142".
func OpCode(v uint16) string { return fmt.Sprintf("0x%x", v) }

// PathComponent makes s safe to use as a single path component.
//
// Path separators, NUL bytes and other control characters are replaced with
// "_". An empty result, or one consisting only of dots, is replaced with "_".
func PathComponent(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '/', r == '\\', r < 0x20, r == 0x7F:
			return '_'
		default:
			return r
		}
	}, s)

	if strings.Trim(s, ".") == "" {
		return "_"
	}
	return s
}
