// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package app

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/redstrate/XIVPacketTools/capture"
	"github.com/redstrate/XIVPacketTools/capture/capturetest"
	"github.com/redstrate/XIVPacketTools/frame"
	"github.com/redstrate/XIVPacketTools/frame/frametest"
	"github.com/redstrate/XIVPacketTools/opcode"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

const testOpCodes = `{
  "ServerZoneIpcType": [],
  "ClientZoneIpcType": [
    {"name": "ActorMove", "opcode": 322, "size": 16}
  ]
}`

var _ = Describe("Application", func() {
	var tdir string
	BeforeEach(func() {
		var err error
		tdir, err = ioutil.TempDir("", "app_test")
		Expect(err).ToNot(HaveOccurred())
	})
	AfterEach(func() {
		Expect(os.RemoveAll(tdir)).To(Succeed())
	})

	writeFile := func(name, content string) string {
		path := filepath.Join(tdir, name)
		Expect(ioutil.WriteFile(path, []byte(content), 0644)).To(Succeed())
		return path
	}

	run := func(args ...string) (string, error) {
		var stdout, stderr bytes.Buffer
		cmd := NewCommand()
		cmd.SetArgs(args)
		cmd.SetOut(&stdout)
		cmd.SetErr(&stderr)
		err := cmd.Execute()
		return stdout.String(), err
	}

	Context("configuration", func() {
		It("applies defaults", func() {
			cfg, err := loadConfig("", nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.OpCodes).To(Equal("opcodes.json"))
			Expect(cfg.Output).To(Equal("."))
			Expect(cfg.Atomic).To(BeFalse())
			Expect(cfg.IndexScope).To(Equal("capture"))
			Expect(cfg.Compression).To(Equal("auto"))
			Expect(cfg.LogLevel).To(Equal("info"))
		})

		It("reads a configuration file and environment overrides", func() {
			path := writeFile("xivcap.yaml", "output: /tmp/captures\nindex_scope: protocol\ncompression: zstd\n")

			Expect(os.Setenv("XIVCAP_ATOMIC", "true")).To(Succeed())
			defer os.Unsetenv("XIVCAP_ATOMIC")

			cfg, err := loadConfig(path, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(cfg.Output).To(Equal("/tmp/captures"))
			Expect(cfg.Atomic).To(BeTrue())

			scope, err := cfg.indexScope()
			Expect(err).ToNot(HaveOccurred())
			Expect(scope.String()).To(Equal("protocol"))

			comp, err := cfg.compression()
			Expect(err).ToNot(HaveOccurred())
			Expect(comp).To(Equal(capture.CompressionZstd))
		})

		It("rejects invalid values", func() {
			path := writeFile("bad.yaml", "compression: lz4\n")
			_, err := loadConfig(path, nil)
			Expect(err).To(MatchError(ContainSubstring("compression")))
		})

		It("fails when an explicit configuration file is missing", func() {
			_, err := loadConfig(filepath.Join(tdir, "missing.yaml"), nil)
			Expect(err).To(HaveOccurred())
		})
	})

	It("expands a capture", func() {
		b := capturetest.Builder{
			VersionInfo: capture.VersionInfo{WriterIdentifier: "test", CaptureVersion: 1},
			CaptureInfo: capture.CaptureInfo{CaptureID: "test123"},
		}
		b.AddRecord(capture.ProtocolZone, capture.DirectionTx, frametest.Bytes(frame.ConnectionZone,
			frametest.IPCPacket(0x142, 1, 2, frametest.Payload(0, 16))))
		capturePath := filepath.Join(tdir, "capture.zip")
		Expect(b.WriteFile(capturePath)).To(Succeed())

		outDir := filepath.Join(tdir, "out")
		metricsPath := filepath.Join(tdir, "metrics.prom")
		logPath := filepath.Join(tdir, "xivcap.log")

		stdout, err := run("expand",
			"--opcodes", writeFile("opcodes.json", testOpCodes),
			"--output", outDir,
			"--compression", "zstd",
			"--metrics-file", metricsPath,
			"--log-file", logPath,
			"--log-level", "debug",
			capturePath)
		Expect(err).ToNot(HaveOccurred())
		Expect(stdout).To(ContainSubstring("1 packet(s) in 1 record(s)"))

		dir := filepath.Join(outDir, "test123", "zone", "0-ipc-ActorMove (to server) (0)")
		Expect(filepath.Join(dir, "data.bin")).To(BeARegularFile())

		metrics, err := ioutil.ReadFile(metricsPath)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(metrics)).To(ContainSubstring("xivcap_packets_emitted"))

		logs, err := ioutil.ReadFile(logPath)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(logs)).To(ContainSubstring("test123"))
	})

	It("fails to expand a missing capture", func() {
		_, err := run("expand", "--output", filepath.Join(tdir, "out"), filepath.Join(tdir, "missing.zip"))
		Expect(err).To(HaveOccurred())
	})

	It("rejects an unknown compression flag", func() {
		_, err := run("expand", "--compression", "lz4", filepath.Join(tdir, "capture.zip"))
		Expect(err).To(HaveOccurred())
	})

	It("updates an opcode table", func() {
		tablePath := writeFile("opcodes.json", testOpCodes)
		diffPath := writeFile("diff.json", `[{"old": ["0x142"], "new": ["0x2a0"]}]`)

		stdout, err := run("update-opcodes", diffPath, tablePath)
		Expect(err).ToNot(HaveOccurred())
		Expect(stdout).To(ContainSubstring("Updated 1 opcode(s)"))

		t, err := opcode.Load(tablePath)
		Expect(err).ToNot(HaveOccurred())
		Expect(t.ClientZone).To(HaveLen(1))
		Expect(t.ClientZone[0].OpCode).To(Equal(int32(0x2a0)))
	})

	It("updates a YAML opcode table in place", func() {
		tablePath := writeFile("opcodes.yaml", "ClientZoneIpcType:\n  - name: ActorMove\n    opcode: 322\n    size: 16\n")
		diffPath := writeFile("diff.json", `[{"old": ["0x142"], "new": ["0x190"]}]`)

		_, err := run("update-opcodes", diffPath, tablePath)
		Expect(err).ToNot(HaveOccurred())

		data, err := ioutil.ReadFile(tablePath)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(ContainSubstring("opcode: 400"))
		Expect(string(data)).ToNot(ContainSubstring("{"))
	})

	It("fails to update a missing opcode table", func() {
		diffPath := writeFile("diff.json", `[]`)
		_, err := run("update-opcodes", diffPath, filepath.Join(tdir, "missing.json"))
		Expect(err).To(HaveOccurred())
	})
})

func TestApp(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "App Tests")
}
