// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package byteslicereader offers R, a slice-backed Reader that tracks its
// offset and offers zero-copy reads.
//
// Standard io.Reader methods require that data be copied into a target Buffer.
// Next instead returns slices of R's underlying Buffer, so the Buffer must
// persist as long as a returned slice is referenced.
package byteslicereader

import (
	"io"
)

// R is an io.Reader-inspired reader over a byte slice.
//
// R can be copied, creating a snapshot of its current state.
type R struct {
	// Buffer is the backing buffer for this reader.
	Buffer []byte

	// pos is the R's position within Buffer.
	pos int
}

var _ interface {
	io.Reader
	io.ByteReader
} = (*R)(nil)

func (r *R) remainingSlice() []byte {
	if r.pos >= len(r.Buffer) {
		return nil
	}
	return r.Buffer[r.pos:]
}

// Offset returns the reader's position within Buffer.
func (r *R) Offset() int { return r.pos }

// Remaining returns the number of bytes remaining in the reader, from the
// current position.
func (r *R) Remaining() int { return len(r.remainingSlice()) }

// Limit truncates Buffer so that at most n bytes remain to be read.
//
// If fewer than n bytes remain, Limit does nothing and returns false.
func (r *R) Limit(n int) bool {
	if n < 0 || n > r.Remaining() {
		return false
	}
	r.Buffer = r.Buffer[:r.pos+n]
	return true
}

// Read implements io.Reader.
//
// Note that using Read causes data to be copied. Read returns io.EOF only when
// no bytes remain.
func (r *R) Read(b []byte) (int, error) {
	remaining := r.remainingSlice()
	if len(remaining) == 0 {
		if len(b) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}

	amt := copy(b, remaining)
	r.pos += amt
	return amt, nil
}

// ReadByte implements io.ByteReader.
func (r *R) ReadByte() (b byte, err error) {
	if r.pos >= len(r.Buffer) {
		return 0, io.EOF
	}

	b, r.pos = r.Buffer[r.pos], r.pos+1
	return
}

// Next returns the next n bytes in r, advancing r.
//
// If there are fewer than n bytes in r, Next consumes nothing and returns
// io.ErrUnexpectedEOF.
func (r *R) Next(n int) ([]byte, error) {
	v := r.remainingSlice()
	if n > len(v) {
		return nil, io.ErrUnexpectedEOF
	}
	r.pos += n
	return v[:n:n], nil
}
