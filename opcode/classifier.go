// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package opcode

import (
	"github.com/redstrate/XIVPacketTools/capture"
	"github.com/redstrate/XIVPacketTools/frame"
	"github.com/redstrate/XIVPacketTools/support/fmtutil"
	"github.com/redstrate/XIVPacketTools/support/logging"
)

// Classifier classifies IPC opcodes against a Table, logging diagnostics for
// anything other than a clean exact match.
type Classifier struct {
	// Table is the opcode table. A nil Table classifies everything as Unknown.
	Table *Table

	// Logger, if not nil, receives classification diagnostics.
	Logger logging.L
}

// Classify classifies the opcode in ipc, the IPC header of a packet on
// protocol p travelling in direction d. context identifies the packet in log
// messages.
func (c *Classifier) Classify(context string, p capture.Protocol, d capture.Direction,
	ipc *frame.IPCHeader, payloadSize int) Classification {

	class := c.Table.Classify(p, d, ipc.OpCode, payloadSize)

	logger := logging.Must(c.Logger)
	switch class.Kind {
	case Exact:
		if class.SizeMismatch() {
			logger.Warnf("%s: opcode %s matched %q, but payload is %d bytes (expected %d). IPC header: %s",
				context, class.Label(), class.Name, class.PayloadSize, class.ExpectedSize,
				fmtutil.HexSlice(ipc.Bytes()))
		}
	case SizeHint:
		logger.Infof("%s: unknown %s opcode %s; payload size %d matches %q.",
			context, p.DirName(), class.Label(), class.PayloadSize, class.Name)
	default:
		logger.Debugf("%s: unknown %s opcode %s (%d bytes).",
			context, p.DirName(), class.Label(), class.PayloadSize)
	}
	return class
}
