// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package capturetest builds synthetic capture containers for tests.
package capturetest

import (
	"bytes"
	"io/ioutil"

	"github.com/redstrate/XIVPacketTools/capture"
	"github.com/redstrate/XIVPacketTools/support/protostream"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Builder assembles a capture container.
type Builder struct {
	VersionInfo capture.VersionInfo
	CaptureInfo capture.CaptureInfo

	// Records are written, in order, to the Data entry.
	Records []*capture.CaptureFrame

	// Compression is the compression applied to the Data entry. Auto and zero
	// values select zstd.
	Compression capture.Compression

	// Omit lists entry names that should not be written.
	Omit []string

	// DataSuffix, if not nil, is appended to the uncompressed Data stream
	// after the encoded records.
	DataSuffix []byte
}

// AddRecord appends a record carrying frame to the Data entry.
func (b *Builder) AddRecord(p capture.Protocol, d capture.Direction, frame []byte) {
	b.Records = append(b.Records, &capture.CaptureFrame{
		Header: capture.CaptureFrameHeader{Protocol: p, Direction: d},
		Frame:  frame,
	})
}

// DataStream returns the uncompressed Data stream.
func (b *Builder) DataStream() ([]byte, error) {
	var buf bytes.Buffer
	var enc protostream.Encoder
	for i, rec := range b.Records {
		if _, err := enc.Write(&buf, rec); err != nil {
			return nil, errors.Wrapf(err, "encoding record #%d", i)
		}
	}
	buf.Write(b.DataSuffix)
	return buf.Bytes(), nil
}

// Bytes returns the encoded container.
func (b *Builder) Bytes() ([]byte, error) {
	var out bytes.Buffer
	zw := zip.NewWriter(&out)

	var enc protostream.Encoder
	writeRecord := func(name string, m protostream.Marshaler) error {
		if b.omitted(name) {
			return nil
		}
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		_, err = enc.Write(w, m)
		return err
	}

	if err := writeRecord(capture.VersionInfoEntry, &b.VersionInfo); err != nil {
		return nil, errors.Wrap(err, "writing VersionInfo")
	}
	if err := writeRecord(capture.CaptureInfoEntry, &b.CaptureInfo); err != nil {
		return nil, errors.Wrap(err, "writing CaptureInfo")
	}

	if !b.omitted(capture.DataEntry) {
		stream, err := b.DataStream()
		if err != nil {
			return nil, err
		}
		data, err := Compress(stream, b.Compression)
		if err != nil {
			return nil, err
		}

		w, err := zw.Create(capture.DataEntry)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// WriteFile writes the encoded container to path.
func (b *Builder) WriteFile(path string) error {
	data, err := b.Bytes()
	if err != nil {
		return err
	}
	return ioutil.WriteFile(path, data, 0644)
}

func (b *Builder) omitted(name string) bool {
	for _, o := range b.Omit {
		if o == name {
			return true
		}
	}
	return false
}

// Compress compresses data using comp.
func Compress(data []byte, comp capture.Compression) ([]byte, error) {
	var buf bytes.Buffer
	switch comp {
	case capture.CompressionAuto, capture.CompressionZstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil

	case capture.CompressionSnappy:
		sw := snappy.NewBufferedWriter(&buf)
		if _, err := sw.Write(data); err != nil {
			return nil, err
		}
		if err := sw.Close(); err != nil {
			return nil, err
		}

	case capture.CompressionGzip:
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(data); err != nil {
			return nil, err
		}
		if err := gw.Close(); err != nil {
			return nil, err
		}

	case capture.CompressionNone:
		return data, nil

	default:
		return nil, errors.Errorf("unknown compression: %s", comp)
	}
	return buf.Bytes(), nil
}
