// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package protostream reads and writes streams of varint length-delimited
// protobuf messages.
//
// Each message in a stream is prefixed by its encoded size as a protobuf
// varint. Streams carry no trailer: a stream ends cleanly when a read of the
// next size prefix encounters end of input.
package protostream

import (
	"bytes"
	"io"
	"math"

	"github.com/golang/protobuf/proto"
	"github.com/pkg/errors"
)

// The maximum varint size, in bytes. This is the total number of bytes needed
// to encode the largest uint64 using proto.EncodeVarint.
const maxVarintSizeU64 = 10

// maxPrealloc is the largest buffer that Read allocates before any of a
// message's data has been read.
const maxPrealloc = 64 * 1024

// ErrInvalidPrefix is returned when a size prefix is not a valid varint.
var ErrInvalidPrefix = errors.New("size prefix is not a valid varint")

// Unmarshaler is a message that can be decoded from its wire bytes.
type Unmarshaler interface {
	Unmarshal(data []byte) error
}

// Reader represents a Reader that can read both individual bytes and
// sequences of bytes.
type Reader interface {
	io.Reader
	io.ByteReader
}

// MakeReader returns a Reader for the specified Reader.
func MakeReader(r io.Reader) Reader {
	if dr, ok := r.(Reader); ok {
		return dr
	}
	return &simulatedReader{r}
}

type simulatedReader struct {
	io.Reader
}

func (r *simulatedReader) ReadByte() (v byte, err error) {
	var d [1]byte
	var amt int

	amt, err = r.Read(d[:])
	if amt == 1 {
		v, err = d[0], nil
	} else if err == nil {
		err = io.ErrNoProgress
	}
	return
}

// Decoder is a reusable object which decodes a series of messages from a proto
// stream.
type Decoder struct {
	// MaxSize, if >0, is the largest message size that will be accepted.
	MaxSize uint64

	dataBuf bytes.Buffer
	sizeBuf [maxVarintSizeU64]byte
}

func (d *Decoder) bufferNextVarint(r Reader) ([]byte, error) {
	sizeBuf := d.sizeBuf[:0]
	for len(sizeBuf) < maxVarintSizeU64 {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF && len(sizeBuf) > 0 {
				err = io.ErrUnexpectedEOF
			}
			return sizeBuf, err
		}

		sizeBuf = append(sizeBuf, b)
		if (b & 0x80) == 0 {
			// Varint does not have continuation bit set.
			return sizeBuf, nil
		}
	}
	return sizeBuf, ErrInvalidPrefix
}

// Read reads the next message from r into m. If r is not a Reader, it is
// wrapped with MakeReader. Users should use a buffered reader, since the size
// prefix is read byte-by-byte.
//
// Read returns the number of bytes consumed from r. If r is exhausted before
// any byte of the next message is read, Read returns io.EOF. If it is
// exhausted part-way through a message, Read returns io.ErrUnexpectedEOF.
func (d *Decoder) Read(ior io.Reader, m Unmarshaler) (int64, error) {
	r := MakeReader(ior)

	sizeBuf, err := d.bufferNextVarint(r)
	count := int64(len(sizeBuf))
	if err != nil {
		return count, err
	}

	size, amt := proto.DecodeVarint(sizeBuf)
	if amt != len(sizeBuf) {
		return count, ErrInvalidPrefix
	}
	if d.MaxSize > 0 && size > d.MaxSize {
		return count, errors.Errorf("message size %d exceeds maximum %d", size, d.MaxSize)
	}

	if size > math.MaxInt32 {
		return count, errors.Errorf("message size %d is too large", size)
	}

	// Read the prescribed amount into our buffer. Past maxPrealloc, the buffer
	// grows only as data arrives.
	d.dataBuf.Reset()
	if size <= maxPrealloc {
		d.dataBuf.Grow(int(size))
	} else {
		d.dataBuf.Grow(maxPrealloc)
	}
	lr := io.LimitedReader{
		R: r,
		N: int64(size),
	}
	readCount, err := d.dataBuf.ReadFrom(&lr)
	count += readCount
	if err != nil {
		return count, err
	}
	if uint64(readCount) != size {
		return count, io.ErrUnexpectedEOF
	}

	return count, m.Unmarshal(d.dataBuf.Bytes())
}

// Split peels the first length-delimited message off the front of buf.
//
// It returns the message bytes and the remainder of buf. The returned message
// aliases buf. An empty buf returns io.EOF; a message whose size prefix or
// body runs past the end of buf returns io.ErrUnexpectedEOF.
func Split(buf []byte) (msg, rest []byte, err error) {
	if len(buf) == 0 {
		return nil, nil, io.EOF
	}

	size, amt := proto.DecodeVarint(buf)
	if amt == 0 {
		if len(buf) < maxVarintSizeU64 && buf[len(buf)-1]&0x80 != 0 {
			return nil, buf, io.ErrUnexpectedEOF
		}
		return nil, buf, ErrInvalidPrefix
	}

	buf = buf[amt:]
	if size > uint64(len(buf)) {
		return nil, buf, io.ErrUnexpectedEOF
	}
	return buf[:size], buf[size:], nil
}
