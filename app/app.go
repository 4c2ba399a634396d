// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

// Package app defines the "xivcap" command-line tool.
//
// The tool expands recorded capture containers into a directory tree holding
// one directory per packet, and maintains the opcode table that is used to
// name IPC packets.
package app

import (
	"fmt"
	"io"
	"os"

	"github.com/redstrate/XIVPacketTools/capture"
	"github.com/redstrate/XIVPacketTools/expand"
	"github.com/redstrate/XIVPacketTools/support/logging"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"
)

// application holds state shared by the tool's commands.
type application struct {
	configPath  string
	compression capture.CompressionFlag

	cfg    *Config
	logger *logrus.Logger
	// logCloser, if not nil, closes the log file.
	logCloser io.Closer

	// stderr is where log output goes when no log file is configured.
	stderr io.Writer
}

// Main is the main entry point.
func Main() {
	if err := NewCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// NewCommand returns the tool's root command.
func NewCommand() *cobra.Command {
	a := application{
		stderr: os.Stderr,
	}

	root := &cobra.Command{
		Use:   "xivcap",
		Short: "Expand and inspect recorded game network captures",
		Long: `xivcap decodes recorded game network capture containers.

Each packet in a capture is written to its own directory under
<output>/<capture_id>/<protocol>/, holding its payload (data.bin), its IPC
header (ipc_header.bin), and its source and target actor IDs.

Configuration is read from a YAML, JSON, or TOML file (--config, or
xivcap.yaml in the working directory), from XIVCAP_* environment variables,
and from flags.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.stderr = cmd.ErrOrStderr()
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Path to a configuration file.")
	pf.String("opcodes", "opcodes.json", "Path to the opcode table (JSON or YAML).")
	pf.String("log-level", "info", "Log level (panic, fatal, error, warn, info, debug, trace).")
	pf.String("log-file", "", "If set, write logs to this file, rotating it as it grows.")

	root.AddCommand(a.newExpandCommand())
	root.AddCommand(a.newUpdateOpCodesCommand())
	return root
}

func (a *application) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configPath, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	var out io.Writer = a.stderr
	if cfg.LogFile != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.LogMaxSize,
			MaxBackups: cfg.LogMaxBackups,
			Compress:   cfg.LogCompress,
		}
		out, a.logCloser = lj, lj
	}

	if a.logger, err = logging.New(out, cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

func (a *application) teardown() error {
	if a.logCloser == nil {
		return nil
	}
	err := a.logCloser.Close()
	a.logCloser = nil
	return err
}

func (a *application) newExpandCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expand <capture>...",
		Short: "Expand capture containers into per-packet directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExpand(cmd, args)
		},
	}

	fs := cmd.Flags()
	fs.StringP("output", "o", ".", "Directory that captures are expanded into.")
	fs.Bool("atomic", false, "Stage each capture's output and move it into place when complete.")
	fs.String("temp-dir", "", "Directory to stage atomic output in. Defaults to the output directory.")
	fs.String("index-scope", expand.ScopeCapture.String(),
		"Scope of packet indices (capture, protocol).")
	fs.Var(&a.compression, "compression",
		fmt.Sprintf("Compression of the capture's Data entry (%s).", capture.CompressionFlagValues()))
	fs.String("metrics-file", "", "If set, write expansion metrics to this file in the prometheus text format.")
	return cmd
}

func (a *application) runExpand(cmd *cobra.Command, args []string) error {
	table, err := a.loadTable()
	if err != nil {
		return err
	}

	comp, err := a.cfg.compression()
	if err != nil {
		return err
	}
	scope, err := a.cfg.indexScope()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	expand.RegisterMonitoring(reg)

	exp := expand.Expander{
		OutputDir:   a.cfg.Output,
		Table:       table,
		Compression: comp,
		IndexScope:  scope,
		Atomic:      a.cfg.Atomic,
		TempDir:     a.cfg.TempDir,
		Logger:      a.logger,
	}

	var expandErr error
	for _, path := range args {
		res, err := exp.Expand(path)
		if err != nil {
			expandErr = errors.Wrapf(err, "expanding %q", path)
			break
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d packet(s) in %d record(s) => %s\n",
			path, res.Packets, res.Records, res.Path)
	}

	if a.cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(a.cfg.MetricsFile, reg); err != nil {
			a.logger.Warnf("Failed to write metrics to %q: %s", a.cfg.MetricsFile, err)
		}
	}
	return expandErr
}

func (a *application) newUpdateOpCodesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update-opcodes <diff.json> [opcodes.json]",
		Short: "Apply an opcode diff to the opcode table",
		Long: `update-opcodes applies a diff of changed opcodes to the zone lists of the
opcode table and rewrites the table.

The diff is a JSON array of {"old": ["0x..."], "new": ["0x..."]} objects. Each
table entry is updated at most once. The table defaults to the configured
opcodes path.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tablePath := a.cfg.OpCodes
			if len(args) > 1 {
				tablePath = args[1]
			}
			return a.runUpdateOpCodes(cmd, args[0], tablePath)
		},
	}
}
