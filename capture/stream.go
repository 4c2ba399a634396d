// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package capture

import (
	"io"

	"github.com/redstrate/XIVPacketTools/support/protostream"

	"github.com/pkg/errors"
)

// RecordReader yields the CaptureFrame records of a decompressed Data stream,
// in stream order.
//
// RecordReader is not restartable. Each returned record's Frame aliases the
// buffer that RecordReader was created with.
type RecordReader struct {
	buf   []byte
	index int
	err   error
}

// NewRecordReader returns a RecordReader over buf, a decompressed Data stream.
func NewRecordReader(buf []byte) *RecordReader {
	return &RecordReader{buf: buf}
}

// Next decodes and returns the next record.
//
// Next returns io.EOF once every record has been consumed. A truncated or
// corrupt record is returned as an error wrapping the record's index; the
// stream cannot be resumed after an error.
func (rr *RecordReader) Next() (*CaptureFrame, error) {
	if rr.err != nil {
		return nil, rr.err
	}

	msg, rest, err := protostream.Split(rr.buf)
	switch {
	case err == io.EOF:
		return nil, io.EOF
	case err != nil:
		rr.err = errors.Wrapf(err, "record #%d", rr.index)
		return nil, rr.err
	}

	var cf CaptureFrame
	if err := cf.Unmarshal(msg); err != nil {
		rr.err = errors.Wrapf(err, "record #%d", rr.index)
		return nil, rr.err
	}

	rr.buf = rest
	rr.index++
	return &cf, nil
}

// Count returns the number of records that have been returned so far.
func (rr *RecordReader) Count() int { return rr.index }

// Remaining returns the number of undecoded bytes left in the stream.
func (rr *RecordReader) Remaining() int { return len(rr.buf) }
