// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package opcode loads opcode tables and classifies IPC packets against them.
package opcode

import (
	"bytes"
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/redstrate/XIVPacketTools/capture"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// KnownOpCode is a single opcode table entry.
type KnownOpCode struct {
	// Name is the human-readable name of the opcode.
	Name string `json:"name" yaml:"name"`
	// OpCode is the opcode value.
	OpCode int32 `json:"opcode" yaml:"opcode"`
	// Size is the expected payload size of packets carrying this opcode.
	Size uint32 `json:"size" yaml:"size"`

	// updated is set once the entry's OpCode has been changed by ApplyDiff.
	updated bool
}

// Table is a set of opcode lists, one per protocol and originating endpoint.
//
// "Server" lists describe packets sent by the server; "Client" lists describe
// packets sent by the client. Any list may be empty.
type Table struct {
	ServerZone  []KnownOpCode `json:"ServerZoneIpcType" yaml:"ServerZoneIpcType"`
	ClientZone  []KnownOpCode `json:"ClientZoneIpcType" yaml:"ClientZoneIpcType"`
	ServerLobby []KnownOpCode `json:"ServerLobbyIpcType" yaml:"ServerLobbyIpcType"`
	ClientLobby []KnownOpCode `json:"ClientLobbyIpcType" yaml:"ClientLobbyIpcType"`
	ServerChat  []KnownOpCode `json:"ServerChatIpcType" yaml:"ServerChatIpcType"`
	ClientChat  []KnownOpCode `json:"ClientChatIpcType" yaml:"ClientChatIpcType"`
}

// For returns the opcode list that describes packets on protocol p travelling
// in direction d.
//
// Received (Rx) packets were sent by the server; transmitted (Tx) packets were
// sent by the client. If either p or d is None, or t is nil, For returns nil.
func (t *Table) For(p capture.Protocol, d capture.Direction) []KnownOpCode {
	if t == nil {
		return nil
	}

	switch d {
	case capture.DirectionRx:
		switch p {
		case capture.ProtocolZone:
			return t.ServerZone
		case capture.ProtocolChat:
			return t.ServerChat
		case capture.ProtocolLobby:
			return t.ServerLobby
		}
	case capture.DirectionTx:
		switch p {
		case capture.ProtocolZone:
			return t.ClientZone
		case capture.ProtocolChat:
			return t.ClientChat
		case capture.ProtocolLobby:
			return t.ClientLobby
		}
	}
	return nil
}

// Len returns the total number of entries in t.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.ServerZone) + len(t.ClientZone) +
		len(t.ServerLobby) + len(t.ClientLobby) +
		len(t.ServerChat) + len(t.ClientChat)
}

// Load loads an opcode table from path.
//
// Files ending in ".yaml" or ".yml" are parsed as YAML; all others are parsed
// as JSON. If path does not exist, Load returns an empty table.
func Load(path string) (*Table, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Table{}, nil
		}
		return nil, errors.Wrapf(err, "reading opcode table %q", path)
	}

	var t Table
	if isYAML(path) {
		err = yaml.Unmarshal(data, &t)
	} else {
		err = json.Unmarshal(data, &t)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "parsing opcode table %q", path)
	}
	return &t, nil
}

// Save writes t to path, choosing the format from path's extension in the
// same way as Load.
func (t *Table) Save(path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = t.encodeYAML()
	} else {
		data, err = t.MarshalIndent()
	}
	if err != nil {
		return err
	}
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "writing opcode table %q", path)
	}
	return nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// withEmptyLists returns a copy of t whose nil lists are replaced with empty
// ones, so that every list is written.
func (t *Table) withEmptyLists() *Table {
	out := *t
	for _, l := range []*[]KnownOpCode{
		&out.ServerZone, &out.ClientZone,
		&out.ServerLobby, &out.ClientLobby,
		&out.ServerChat, &out.ClientChat,
	} {
		if *l == nil {
			*l = []KnownOpCode{}
		}
	}
	return &out
}

func (t *Table) encodeYAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(t.withEmptyLists()); err != nil {
		return nil, errors.Wrap(err, "encoding opcode table")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "encoding opcode table")
	}
	return buf.Bytes(), nil
}

// MarshalIndent returns t as indented JSON.
//
// Every list is written, including empty ones.
func (t *Table) MarshalIndent() ([]byte, error) {
	out := t.withEmptyLists()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, errors.Wrap(err, "encoding opcode table")
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
