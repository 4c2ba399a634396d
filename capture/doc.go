// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package capture reads recorded game-traffic capture containers.
//
// A capture container is a zip archive holding three named entries:
//
//	- "VersionInfo", a single length-delimited VersionInfo record describing
//	  the software that wrote the capture.
//	- "CaptureInfo", a single length-delimited CaptureInfo record. Its capture
//	  ID names the capture.
//	- "Data", a compressed stream. Once decompressed, it is a concatenation of
//	  length-delimited CaptureFrame records, each wrapping one raw binary
//	  frame together with the protocol and direction it was recorded on.
//
// Records are protobuf messages. They are decoded field-by-field with
// protowire, so unknown fields written by newer recorders are skipped.
//
// The Data stream is zstd-compressed by the recorder. Snappy (framed), gzip
// and uncompressed streams are also accepted; by default the compression is
// detected from the stream's magic bytes.
package capture
