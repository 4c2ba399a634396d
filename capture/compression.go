// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package capture

import (
	"bytes"
	"io"
	"sort"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// Compression is the compression applied to a container's Data stream.
type Compression int32

const (
	// CompressionAuto detects the compression from the stream's magic bytes.
	CompressionAuto Compression = iota
	// CompressionNone is an uncompressed stream.
	CompressionNone
	// CompressionZstd is a zstd stream. Recorders write this.
	CompressionZstd
	// CompressionSnappy is a framed snappy stream.
	CompressionSnappy
	// CompressionGzip is a gzip stream.
	CompressionGzip
)

var compressionName = map[Compression]string{
	CompressionAuto:   "auto",
	CompressionNone:   "none",
	CompressionZstd:   "zstd",
	CompressionSnappy: "snappy",
	CompressionGzip:   "gzip",
}

var (
	zstdMagic   = []byte{0x28, 0xB5, 0x2F, 0xFD}
	snappyMagic = []byte("\xff\x06\x00\x00sNaPpY")
	gzipMagic   = []byte{0x1F, 0x8B}
)

func (c Compression) String() string {
	if name, ok := compressionName[c]; ok {
		return name
	}
	return "unknown"
}

// ParseCompression returns the Compression named by v.
func ParseCompression(v string) (Compression, error) {
	for c, name := range compressionName {
		if strings.EqualFold(name, v) {
			return c, nil
		}
	}
	return CompressionAuto, errors.Errorf("unknown compression type: %q", v)
}

// DetectCompression identifies the compression of data from its magic bytes.
//
// Streams without a recognized magic are assumed to be zstd, which is what
// recorders write; decompression will then fail with a zstd error.
func DetectCompression(data []byte) Compression {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return CompressionZstd
	case bytes.HasPrefix(data, snappyMagic):
		return CompressionSnappy
	case bytes.HasPrefix(data, gzipMagic):
		return CompressionGzip
	default:
		return CompressionZstd
	}
}

// Decompress fully decompresses data.
func Decompress(data []byte, comp Compression) ([]byte, error) {
	if comp == CompressionAuto {
		comp = DetectCompression(data)
	}

	switch comp {
	case CompressionNone:
		return data, nil

	case CompressionZstd:
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, errors.Wrap(err, "creating zstd decoder")
		}
		defer dec.Close()

		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, errors.Wrap(err, "decompressing zstd stream")
		}
		return out, nil

	case CompressionSnappy:
		out, err := io.ReadAll(snappy.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, errors.Wrap(err, "decompressing snappy stream")
		}
		return out, nil

	case CompressionGzip:
		gz, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(err, "creating gzip reader")
		}
		defer gz.Close()

		out, err := io.ReadAll(gz)
		if err != nil {
			return nil, errors.Wrap(err, "decompressing gzip stream")
		}
		return out, nil

	default:
		return nil, errors.Errorf("unknown compression: %s", comp)
	}
}

// CompressionFlag is a pflag.Value implementation that stores a compression
// value.
type CompressionFlag Compression

var _ pflag.Value = (*CompressionFlag)(nil)

func (cf *CompressionFlag) String() string { return Compression(*cf).String() }

// Set implements pflag.Value.
func (cf *CompressionFlag) Set(v string) error {
	c, err := ParseCompression(v)
	if err != nil {
		return err
	}
	*cf = CompressionFlag(c)
	return nil
}

// Type implements pflag.Value.
func (cf *CompressionFlag) Type() string { return "compression" }

// CompressionFlagValues returns the list of possible values for a
// CompressionFlag.
func CompressionFlagValues() string {
	values := make([]Compression, 0, len(compressionName))
	for c := range compressionName {
		values = append(values, c)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	opts := make([]string, len(values))
	for i, c := range values {
		opts[i] = c.String()
	}
	return strings.Join(opts, ", ")
}
