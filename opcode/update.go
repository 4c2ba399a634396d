// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package opcode

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Change renames an opcode value from Old to New.
type Change struct {
	Old int32
	New int32
}

// diffEntry is a single element of an opcode diff document. Each side lists
// hexadecimal opcode strings; only the first is used.
type diffEntry struct {
	Old []string `json:"old"`
	New []string `json:"new"`
}

// ParseDiff reads an opcode diff document from r.
//
// The document is a JSON array of {"old": ["0x..."], "new": ["0x..."]}
// objects.
func ParseDiff(r io.Reader) ([]Change, error) {
	var entries []diffEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, errors.Wrap(err, "decoding opcode diff")
	}

	changes := make([]Change, len(entries))
	for i, e := range entries {
		var err error
		if changes[i].Old, err = parseDiffSide(e.Old); err != nil {
			return nil, errors.Wrapf(err, "diff entry #%d: old", i)
		}
		if changes[i].New, err = parseDiffSide(e.New); err != nil {
			return nil, errors.Wrapf(err, "diff entry #%d: new", i)
		}
	}
	return changes, nil
}

func parseDiffSide(values []string) (int32, error) {
	if len(values) == 0 {
		return 0, errors.New("no opcode")
	}

	v := strings.TrimSpace(values[0])
	if !strings.HasPrefix(v, "0x") && !strings.HasPrefix(v, "0X") {
		return 0, errors.Errorf("opcode %q is not hexadecimal", v)
	}
	op, err := strconv.ParseInt(v[2:], 16, 32)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing opcode %q", v)
	}
	return int32(op), nil
}

// ApplyDiff applies changes to t's zone lists and returns the number of
// entries that were updated.
//
// For each change, and in each zone list, the first entry that has the old
// opcode and has not already been updated receives the new opcode. An entry is
// updated at most once, so swapped opcodes are applied correctly.
func (t *Table) ApplyDiff(changes []Change) int {
	updated := 0
	for _, c := range changes {
		for _, l := range [][]KnownOpCode{t.ServerZone, t.ClientZone} {
			if updateOpCode(l, c) {
				updated++
			}
		}
	}
	return updated
}

func updateOpCode(l []KnownOpCode, c Change) bool {
	for i := range l {
		if e := &l[i]; e.OpCode == c.Old && !e.updated {
			e.OpCode, e.updated = c.New, true
			return true
		}
	}
	return false
}
