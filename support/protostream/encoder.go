// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package protostream

import (
	"bytes"
	"io"

	"github.com/golang/protobuf/proto"
)

// Marshaler is a message that can be encoded to its wire bytes.
type Marshaler interface {
	Marshal() ([]byte, error)
}

// Encoder encodes a protobuf message stream to an io.Writer.
type Encoder struct {
	buf bytes.Buffer
}

// Write writes m to w, prefixed by its varint-encoded size.
func (e *Encoder) Write(w io.Writer, m Marshaler) (int, error) {
	data, err := m.Marshal()
	if err != nil {
		return 0, err
	}

	e.buf.Reset()
	e.buf.Write(proto.EncodeVarint(uint64(len(data))))
	e.buf.Write(data)

	// Write the full buffer to "w".
	return w.Write(e.buf.Bytes())
}
