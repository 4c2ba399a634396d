// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package expand

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/redstrate/XIVPacketTools/capture"
	"github.com/redstrate/XIVPacketTools/frame"
	"github.com/redstrate/XIVPacketTools/opcode"
	"github.com/redstrate/XIVPacketTools/support/fmtutil"
	"github.com/redstrate/XIVPacketTools/support/logging"
	"github.com/redstrate/XIVPacketTools/support/stagingdir"

	"github.com/pkg/errors"
)

// IndexScope determines how packet indices are counted.
type IndexScope int

const (
	// ScopeCapture numbers every packet in a capture consecutively.
	ScopeCapture IndexScope = iota
	// ScopeProtocol numbers packets consecutively within each protocol
	// directory.
	ScopeProtocol
)

func (s IndexScope) String() string {
	switch s {
	case ScopeCapture:
		return "capture"
	case ScopeProtocol:
		return "protocol"
	default:
		return fmt.Sprintf("IndexScope(%d)", int(s))
	}
}

// ParseIndexScope parses the name of an IndexScope.
func ParseIndexScope(v string) (IndexScope, error) {
	switch strings.ToLower(v) {
	case "", "capture":
		return ScopeCapture, nil
	case "protocol":
		return ScopeProtocol, nil
	default:
		return 0, errors.Errorf("unknown index scope %q", v)
	}
}

// Result summarizes an expanded capture.
type Result struct {
	// CaptureID is the capture's ID.
	CaptureID string
	// Path is the capture's output directory.
	Path string

	// Records is the number of records decoded.
	Records int
	// Packets is the number of packets written.
	Packets int
	// PerProtocol is the number of packets written for each protocol.
	PerProtocol map[capture.Protocol]int

	// Exact, SizeHints, and Unknown count IPC classification outcomes.
	Exact     int
	SizeHints int
	Unknown   int
	// SizeMismatches counts exact matches whose payload size differed from
	// the opcode table.
	SizeMismatches int
}

func (r *Result) addClassification(c *opcode.Classification) {
	switch c.Kind {
	case opcode.Exact:
		r.Exact++
		if c.SizeMismatch() {
			r.SizeMismatches++
			sizeMismatches.Inc()
		}
	case opcode.SizeHint:
		r.SizeHints++
	default:
		r.Unknown++
	}
	classifications.WithLabelValues(c.Kind.String()).Inc()
}

// Expander expands capture containers into per-packet directory trees.
type Expander struct {
	// OutputDir is the directory that capture directories are written into.
	// If empty, the working directory is used.
	OutputDir string

	// Table is the opcode table used to name IPC packets. If nil, every IPC
	// packet is labelled with its raw opcode.
	Table *opcode.Table

	// Compression is the compression of the container's Data entry.
	Compression capture.Compression

	// IndexScope determines how packet indices are counted.
	IndexScope IndexScope

	// Atomic, if true, builds the capture's output in a staging directory
	// and moves it into place only once the whole capture has been expanded.
	// An existing capture directory is replaced.
	Atomic bool
	// TempDir is the directory that staging directories are created in. If
	// empty, OutputDir is used.
	TempDir string

	// Emitter writes packet artifacts.
	Emitter Emitter

	// Logger, if not nil, is used to log expansion progress.
	Logger logging.L
}

// Expand opens the capture container at path and expands it.
func (e *Expander) Expand(path string) (*Result, error) {
	c, err := capture.Open(path)
	if err != nil {
		expandErrors.WithLabelValues("open").Inc()
		return nil, err
	}
	defer c.Close()

	return e.ExpandContainer(c)
}

// ExpandContainer expands the contents of c.
//
// Packets are written to "<OutputDir>/<capture_id>/<protocol>/<label>/". Any
// structural error in the container, its records, or their frames is fatal.
// Unknown opcodes are not errors.
func (e *Expander) ExpandContainer(c *capture.Container) (*Result, error) {
	logger := logging.Must(e.Logger)

	vi, err := c.VersionInfo()
	if err != nil {
		expandErrors.WithLabelValues("version").Inc()
		return nil, err
	}
	logger.Debugf("Capture written by %q version %q (capture version %d, game versions %v).",
		vi.WriterIdentifier, vi.WriterVersion, vi.CaptureVersion, vi.GameVersions)

	ci, err := c.CaptureInfo()
	if err != nil {
		expandErrors.WithLabelValues("info").Inc()
		return nil, err
	}
	if path := c.Path(); path != "" {
		logger.Infof("Expanding capture %q from %q.", ci.CaptureID, path)
	} else {
		logger.Infof("Expanding capture %q.", ci.CaptureID)
	}
	if !ci.StartTime.IsZero() {
		logger.Debugf("Capture %q spans %s to %s.", ci.CaptureID, ci.StartTime, ci.EndTime)
	}

	rr, err := c.Records(e.Compression)
	if err != nil {
		expandErrors.WithLabelValues("data").Inc()
		return nil, err
	}

	res := Result{
		CaptureID:   ci.CaptureID,
		Path:        filepath.Join(e.outputDir(), ci.CaptureID),
		PerProtocol: make(map[capture.Protocol]int),
	}

	root := res.Path
	var sd *stagingdir.D
	if e.Atomic {
		tempDir := e.TempDir
		if tempDir == "" {
			tempDir = e.outputDir()
		}
		if sd, err = stagingdir.New(tempDir, ".staging-"+ci.CaptureID+"-"); err != nil {
			expandErrors.WithLabelValues("output").Inc()
			return nil, err
		}
		defer func() {
			if err := sd.Destroy(); err != nil {
				logger.Warnf("Failed to remove staging directory: %s", err)
			}
		}()
		root = sd.Root()
	}

	if err := e.expandRecords(rr, root, &res); err != nil {
		return nil, err
	}

	if sd != nil {
		if err := sd.Commit(res.Path); err != nil {
			expandErrors.WithLabelValues("output").Inc()
			return nil, errors.Wrapf(err, "committing capture %q", ci.CaptureID)
		}
	}

	capturesExpanded.Inc()
	logger.Infof("Expanded capture %q: %d record(s), %d packet(s) (%d exact, %d size hint(s), %d unknown).",
		res.CaptureID, res.Records, res.Packets, res.Exact, res.SizeHints, res.Unknown)
	return &res, nil
}

func (e *Expander) expandRecords(rr *capture.RecordReader, root string, res *Result) error {
	logger := logging.Must(e.Logger)
	classifier := opcode.Classifier{
		Table:  e.Table,
		Logger: e.Logger,
	}

	var captureCounter Counter
	protocolCounters := make(map[capture.Protocol]*Counter)
	counterFor := func(p capture.Protocol) *Counter {
		if e.IndexScope != ScopeProtocol {
			return &captureCounter
		}
		c := protocolCounters[p]
		if c == nil {
			c = &Counter{}
			protocolCounters[p] = c
		}
		return c
	}

	for {
		rec, err := rr.Next()
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			expandErrors.WithLabelValues("record").Inc()
			return err
		}
		recordIndex := rr.Count() - 1
		res.Records++

		p, d := rec.Header.Protocol, rec.Header.Direction
		recordsDecoded.WithLabelValues(p.DirName()).Inc()

		protocolDir := filepath.Join(root, p.DirName())
		if err := os.MkdirAll(protocolDir, 0755); err != nil {
			expandErrors.WithLabelValues("output").Inc()
			return errors.Wrapf(err, "creating protocol directory %q", protocolDir)
		}

		f, err := frame.Parse(rec.Frame)
		if err != nil {
			expandErrors.WithLabelValues("frame").Inc()
			logger.Debugf("Record #%d holds a malformed %s/%s frame (%d bytes):\n%s",
				recordIndex, p, d, len(rec.Frame), fmtutil.Hex(rec.Frame))
			return errors.Wrapf(err, "record #%d", recordIndex)
		}
		logger.Debugf("Record #%d: %s/%s frame with %d packet(s).", recordIndex, p, d, len(f.Packets))

		counter := counterFor(p)
		for pos := range f.Packets {
			pkt := &f.Packets[pos]
			index := counter.Next()

			var class *opcode.Classification
			if ipc := pkt.IPC(); ipc != nil {
				c := classifier.Classify(fmt.Sprintf("Record #%d packet %d", recordIndex, pos),
					p, d, ipc, len(pkt.Payload()))
				class = &c
				res.addClassification(class)
			}

			dir := filepath.Join(protocolDir, Label(index, pkt, class, d, pos))
			if err := e.Emitter.Emit(dir, pkt); err != nil {
				expandErrors.WithLabelValues("output").Inc()
				return errors.Wrapf(err, "record #%d packet %d", recordIndex, pos)
			}

			res.Packets++
			res.PerProtocol[p]++
			packetsEmitted.WithLabelValues(p.DirName(), pkt.Header.Type.Label()).Inc()
			payloadBytes.Add(float64(len(pkt.Payload())))
		}
	}
}

func (e *Expander) outputDir() string {
	if e.OutputDir == "" {
		return "."
	}
	return e.OutputDir
}
