// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package expand

import (
	"encoding/binary"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/redstrate/XIVPacketTools/capture"
	"github.com/redstrate/XIVPacketTools/frame"
	"github.com/redstrate/XIVPacketTools/opcode"
	"github.com/redstrate/XIVPacketTools/support/fmtutil"

	"github.com/pkg/errors"
)

// Artifact file names, written into each packet's directory.
const (
	DataFile        = "data.bin"
	IPCHeaderFile   = "ipc_header.bin"
	SourceActorFile = "source_actor.bin"
	TargetActorFile = "target_actor.bin"
)

// Counter hands out consecutive packet indices, starting at zero.
//
// A Counter is owned by a single expansion and must not be shared between
// captures.
type Counter struct {
	next int
}

// Next returns the next index.
func (c *Counter) Next() int {
	v := c.next
	c.next++
	return v
}

// Count returns the number of indices handed out.
func (c *Counter) Count() int { return c.next }

// Label returns the directory name of a packet.
//
// index is the packet's running index, and position is the packet's index
// within its frame. class is the packet's opcode classification, and is
// ignored for packets without an IPC header.
//
// IPC packets are labelled "<index>-ipc-<opcode> (to <endpoint>) (<position>)";
// other packets omit the opcode.
func Label(index int, pkt *frame.Packet, class *opcode.Classification, d capture.Direction, position int) string {
	if pkt.IPC() != nil && class != nil {
		return fmt.Sprintf("%d-%s-%s (to %s) (%d)",
			index, pkt.Header.Type.Label(), fmtutil.PathComponent(class.Label()), d.Label(), position)
	}
	return fmt.Sprintf("%d-%s (to %s) (%d)", index, pkt.Header.Type.Label(), d.Label(), position)
}

// Emitter writes packet artifacts to disk.
type Emitter struct {
	// DirMode is the mode of created directories. If zero, 0755 is used.
	DirMode os.FileMode
	// FileMode is the mode of written files. If zero, 0644 is used.
	FileMode os.FileMode
}

// Emit writes pkt's artifacts into dir, creating it if necessary.
//
// The payload is written to DataFile, the IPC header (if any) to
// IPCHeaderFile, and the source and target entity IDs, as 4-byte
// little-endian values, to SourceActorFile and TargetActorFile. Existing
// files are overwritten.
func (e *Emitter) Emit(dir string, pkt *frame.Packet) error {
	if err := os.MkdirAll(dir, e.dirMode()); err != nil {
		return errors.Wrapf(err, "creating packet directory %q", dir)
	}

	if err := e.write(dir, DataFile, pkt.Payload()); err != nil {
		return err
	}
	if ipc := pkt.IPC(); ipc != nil {
		if err := e.write(dir, IPCHeaderFile, ipc.Bytes()); err != nil {
			return err
		}
	}

	var actor [4]byte
	binary.LittleEndian.PutUint32(actor[:], pkt.Header.SourceEntity)
	if err := e.write(dir, SourceActorFile, actor[:]); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(actor[:], pkt.Header.TargetEntity)
	return e.write(dir, TargetActorFile, actor[:])
}

func (e *Emitter) write(dir, name string, data []byte) error {
	path := filepath.Join(dir, name)
	if err := ioutil.WriteFile(path, data, e.fileMode()); err != nil {
		return errors.Wrapf(err, "writing %q", path)
	}
	return nil
}

func (e *Emitter) dirMode() os.FileMode {
	if e.DirMode != 0 {
		return e.DirMode
	}
	return 0755
}

func (e *Emitter) fileMode() os.FileMode {
	if e.FileMode != 0 {
		return e.FileMode
	}
	return 0644
}
