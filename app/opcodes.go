// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package app

import (
	"fmt"
	"os"

	"github.com/redstrate/XIVPacketTools/opcode"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func (a *application) loadTable() (*opcode.Table, error) {
	table, err := opcode.Load(a.cfg.OpCodes)
	if err != nil {
		return nil, err
	}
	if table.Len() == 0 {
		a.logger.Warnf("Opcode table %q has no entries; IPC packets will be labelled by opcode.", a.cfg.OpCodes)
	} else {
		a.logger.Debugf("Loaded %d opcode(s) from %q.", table.Len(), a.cfg.OpCodes)
	}
	return table, nil
}

func (a *application) runUpdateOpCodes(cmd *cobra.Command, diffPath, tablePath string) error {
	fd, err := os.Open(diffPath)
	if err != nil {
		return errors.Wrapf(err, "opening diff %q", diffPath)
	}
	defer fd.Close()

	changes, err := opcode.ParseDiff(fd)
	if err != nil {
		return errors.Wrapf(err, "parsing diff %q", diffPath)
	}

	if _, err := os.Stat(tablePath); err != nil {
		return errors.Wrapf(err, "opcode table %q", tablePath)
	}
	table, err := opcode.Load(tablePath)
	if err != nil {
		return err
	}

	updated := table.ApplyDiff(changes)
	if err := table.Save(tablePath); err != nil {
		return err
	}

	a.logger.Infof("Applied %d change(s) from %q to %q.", len(changes), diffPath, tablePath)
	fmt.Fprintf(cmd.OutOrStdout(), "Updated %d opcode(s) in %s\n", updated, tablePath)
	return nil
}
