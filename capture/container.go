// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package capture

import (
	"bufio"
	"io"
	"strings"

	"github.com/redstrate/XIVPacketTools/support/protostream"

	"github.com/klauspost/compress/zip"
	"github.com/pkg/errors"
)

const (
	// VersionInfoEntry is the name of the container's version entry.
	VersionInfoEntry = "VersionInfo"
	// CaptureInfoEntry is the name of the container's capture session entry.
	CaptureInfoEntry = "CaptureInfo"
	// DataEntry is the name of the container's compressed record stream.
	DataEntry = "Data"

	// maxInfoRecordSize bounds the size of the VersionInfo and CaptureInfo
	// records.
	maxInfoRecordSize = 1024 * 1024
)

var (
	// ErrMissingEntry is returned when a required container entry is absent.
	ErrMissingEntry = errors.New("missing container entry")

	// ErrInvalidCaptureID is returned when a capture ID cannot be used as a
	// directory name.
	ErrInvalidCaptureID = errors.New("invalid capture ID")
)

// Container is an open capture container.
//
// Container must be instantiated with Open or OpenReader, and closed when
// finished.
type Container struct {
	// path is the path of the container file, if it was opened from one.
	path string

	zr     *zip.Reader
	closer io.Closer

	// entries maps entry names to their archive files.
	entries map[string]*zip.File
}

// Open opens the capture container at path.
func Open(path string) (*Container, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening container %q", path)
	}

	c := newContainer(&rc.Reader)
	c.path, c.closer = path, rc
	return c, nil
}

// OpenReader opens a capture container held in r, which is size bytes long.
func OpenReader(r io.ReaderAt, size int64) (*Container, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, errors.Wrap(err, "opening container")
	}
	return newContainer(zr), nil
}

func newContainer(zr *zip.Reader) *Container {
	c := Container{
		zr:      zr,
		entries: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		if _, ok := c.entries[f.Name]; !ok {
			c.entries[f.Name] = f
		}
	}
	return &c
}

// Path returns the path that the container was opened from, or an empty
// string if it was opened from a reader.
func (c *Container) Path() string { return c.path }

// Close closes the container, releasing its underlying file.
func (c *Container) Close() error {
	if c.closer == nil {
		return nil
	}

	err := c.closer.Close()
	c.closer = nil
	return err
}

// OpenEntry opens the named entry for reading.
//
// If no such entry exists, OpenEntry returns an error wrapping
// ErrMissingEntry.
func (c *Container) OpenEntry(name string) (io.ReadCloser, error) {
	f, ok := c.entries[name]
	if !ok {
		return nil, errors.Wrapf(ErrMissingEntry, "%q", name)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, errors.Wrapf(err, "opening entry %q", name)
	}
	return rc, nil
}

// ReadEntry returns the full contents of the named entry.
func (c *Container) ReadEntry(name string) ([]byte, error) {
	rc, err := c.OpenEntry(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "reading entry %q", name)
	}
	return data, nil
}

// VersionInfo decodes the container's VersionInfo record.
func (c *Container) VersionInfo() (*VersionInfo, error) {
	var vi VersionInfo
	if err := c.readInfoRecord(VersionInfoEntry, &vi); err != nil {
		return nil, err
	}
	return &vi, nil
}

// CaptureInfo decodes the container's CaptureInfo record.
//
// The record's capture ID is validated with ValidateCaptureID.
func (c *Container) CaptureInfo() (*CaptureInfo, error) {
	var ci CaptureInfo
	if err := c.readInfoRecord(CaptureInfoEntry, &ci); err != nil {
		return nil, err
	}
	if err := ValidateCaptureID(ci.CaptureID); err != nil {
		return nil, err
	}
	return &ci, nil
}

func (c *Container) readInfoRecord(name string, m protostream.Unmarshaler) error {
	rc, err := c.OpenEntry(name)
	if err != nil {
		return err
	}
	defer rc.Close()

	// The entry holds one record. Anything after it is ignored.
	dec := protostream.Decoder{MaxSize: maxInfoRecordSize}
	if _, err := dec.Read(bufio.NewReader(rc), m); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return errors.Wrapf(err, "decoding entry %q", name)
	}
	return nil
}

// Records reads and decompresses the Data entry, returning a RecordReader
// over its records.
func (c *Container) Records(comp Compression) (*RecordReader, error) {
	data, err := c.ReadEntry(DataEntry)
	if err != nil {
		return nil, err
	}

	buf, err := Decompress(data, comp)
	if err != nil {
		return nil, errors.Wrapf(err, "entry %q", DataEntry)
	}
	return NewRecordReader(buf), nil
}

// ValidateCaptureID returns an error if id cannot be used as a single
// directory name.
func ValidateCaptureID(id string) error {
	switch {
	case id == "", id == ".", id == "..":
		return errors.Wrapf(ErrInvalidCaptureID, "%q", id)
	case strings.ContainsAny(id, "/\\\x00"):
		return errors.Wrapf(ErrInvalidCaptureID, "%q contains a path separator", id)
	default:
		return nil
	}
}
