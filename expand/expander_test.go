// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package expand_test

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/redstrate/XIVPacketTools/capture"
	"github.com/redstrate/XIVPacketTools/capture/capturetest"
	. "github.com/redstrate/XIVPacketTools/expand"
	"github.com/redstrate/XIVPacketTools/frame"
	"github.com/redstrate/XIVPacketTools/frame/frametest"
	"github.com/redstrate/XIVPacketTools/opcode"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("Expander", func() {
	var (
		tdir    string
		outDir  string
		table   *opcode.Table
		builder *capturetest.Builder
		exp     *Expander
	)

	BeforeEach(func() {
		var err error
		tdir, err = ioutil.TempDir("", "expand_test")
		Expect(err).ToNot(HaveOccurred())
		outDir = filepath.Join(tdir, "out")

		table = &opcode.Table{
			ClientZone: []opcode.KnownOpCode{{Name: "ActorMove", OpCode: 322, Size: 16}},
			ServerZone: []opcode.KnownOpCode{{Name: "PlayerSpawn", OpCode: 100, Size: 640}},
		}
		builder = &capturetest.Builder{
			VersionInfo: capture.VersionInfo{
				WriterIdentifier: "test",
				WriterVersion:    "1.0.0",
				CaptureVersion:   1,
				GameVersions:     []string{"2024.01.01.0000.0000"},
			},
			CaptureInfo: capture.CaptureInfo{CaptureID: "test123"},
		}
		exp = &Expander{
			OutputDir: outDir,
			Table:     table,
		}
	})

	AfterEach(func() {
		Expect(os.RemoveAll(tdir)).To(Succeed())
	})

	writeCapture := func() string {
		path := filepath.Join(tdir, "capture.zip")
		Expect(builder.WriteFile(path)).To(Succeed())
		return path
	}

	packetDir := func(protocol, label string) string {
		return filepath.Join(outDir, "test123", protocol, label)
	}

	It("expands a zone IPC packet into its artifacts", func() {
		pkt := frametest.IPCPacket(0x142, 0x1000AAAA, 0x1000BBBB, frametest.Payload(0x10, 16))
		builder.AddRecord(capture.ProtocolZone, capture.DirectionTx, frametest.Bytes(frame.ConnectionZone, pkt))

		res, err := exp.Expand(writeCapture())
		Expect(err).ToNot(HaveOccurred())
		Expect(res.CaptureID).To(Equal("test123"))
		Expect(res.Path).To(Equal(filepath.Join(outDir, "test123")))
		Expect(res.Records).To(Equal(1))
		Expect(res.Packets).To(Equal(1))
		Expect(res.Exact).To(Equal(1))
		Expect(res.PerProtocol).To(Equal(map[capture.Protocol]int{capture.ProtocolZone: 1}))

		dir := packetDir("zone", "0-ipc-ActorMove (to server) (0)")
		Expect(readFile(filepath.Join(dir, DataFile))).To(Equal(frametest.Payload(0x10, 16)))
		Expect(readFile(filepath.Join(dir, IPCHeaderFile))).To(Equal(pkt.IPC().Bytes()))
		Expect(readFile(filepath.Join(dir, SourceActorFile))).To(Equal([]byte{0xAA, 0xAA, 0x00, 0x10}))
		Expect(readFile(filepath.Join(dir, TargetActorFile))).To(Equal([]byte{0xBB, 0xBB, 0x00, 0x10}))
	})

	It("numbers packets across records and protocols", func() {
		builder.AddRecord(capture.ProtocolZone, capture.DirectionTx, frametest.Bytes(frame.ConnectionZone,
			frametest.IPCPacket(0x99, 1, 2, frametest.Payload(0, 8)),
			frametest.RawPacket(frame.PacketKeepAlive, 1, 2, frametest.Payload(0, 8))))
		builder.AddRecord(capture.ProtocolChat, capture.DirectionRx, frametest.Bytes(frame.ConnectionChat,
			frametest.IPCPacket(0x10, 3, 4, frametest.Payload(0, 4))))

		res, err := exp.Expand(writeCapture())
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Records).To(Equal(2))
		Expect(res.Packets).To(Equal(3))
		Expect(res.Unknown).To(Equal(2))

		Expect(packetDir("zone", "0-ipc-0x99 (to server) (0)")).To(BeADirectory())
		Expect(packetDir("zone", "1-keepalive (to server) (1)")).To(BeADirectory())
		Expect(filepath.Join(packetDir("zone", "1-keepalive (to server) (1)"), IPCHeaderFile)).ToNot(BeAnExistingFile())
		Expect(packetDir("chat", "2-ipc-0x10 (to client) (0)")).To(BeADirectory())
	})

	It("numbers packets per protocol with the protocol index scope", func() {
		exp.IndexScope = ScopeProtocol
		builder.AddRecord(capture.ProtocolZone, capture.DirectionTx, frametest.Bytes(frame.ConnectionZone,
			frametest.IPCPacket(0x99, 1, 2, nil)))
		builder.AddRecord(capture.ProtocolChat, capture.DirectionRx, frametest.Bytes(frame.ConnectionChat,
			frametest.IPCPacket(0x10, 3, 4, nil)))
		builder.AddRecord(capture.ProtocolZone, capture.DirectionRx, frametest.Bytes(frame.ConnectionZone,
			frametest.IPCPacket(0x99, 1, 2, nil)))

		_, err := exp.Expand(writeCapture())
		Expect(err).ToNot(HaveOccurred())

		Expect(packetDir("zone", "0-ipc-0x99 (to server) (0)")).To(BeADirectory())
		Expect(packetDir("chat", "0-ipc-0x10 (to client) (0)")).To(BeADirectory())
		Expect(packetDir("zone", "1-ipc-0x99 (to client) (0)")).To(BeADirectory())
	})

	It("creates protocol directories for records without packets", func() {
		builder.AddRecord(capture.ProtocolLobby, capture.DirectionRx, frametest.Bytes(frame.ConnectionLobby))

		res, err := exp.Expand(writeCapture())
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Packets).To(Equal(0))
		Expect(filepath.Join(outDir, "test123", "lobby")).To(BeADirectory())
	})

	It("classifies against the table for the frame's direction", func() {
		// 322 is only known as a client-sent opcode, so a received frame
		// cannot match it exactly.
		builder.AddRecord(capture.ProtocolZone, capture.DirectionRx, frametest.Bytes(frame.ConnectionZone,
			frametest.IPCPacket(0x142, 1, 2, frametest.Payload(0, 16))))

		res, err := exp.Expand(writeCapture())
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Unknown).To(Equal(1))
		Expect(packetDir("zone", "0-ipc-0x142 (to client) (0)")).To(BeADirectory())
	})

	It("logs size hints and size mismatches", func() {
		logger, hook := logrustest.NewNullLogger()
		logger.SetLevel(logrus.DebugLevel)
		exp.Logger = logger

		builder.AddRecord(capture.ProtocolZone, capture.DirectionTx, frametest.Bytes(frame.ConnectionZone,
			frametest.IPCPacket(0x142, 1, 2, frametest.Payload(0, 20)),
			frametest.IPCPacket(0x200, 1, 2, frametest.Payload(0, 16))))

		res, err := exp.Expand(writeCapture())
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Exact).To(Equal(1))
		Expect(res.SizeMismatches).To(Equal(1))
		Expect(res.SizeHints).To(Equal(1))

		Expect(packetDir("zone", "0-ipc-ActorMove (to server) (0)")).To(BeADirectory())
		Expect(packetDir("zone", "1-ipc-0x200 (to server) (1)")).To(BeADirectory())

		var expanding []string
		for _, entry := range hook.AllEntries() {
			if strings.HasPrefix(entry.Message, "Expanding capture") {
				expanding = append(expanding, entry.Message)
			}
		}
		Expect(expanding).To(ConsistOf(ContainSubstring("capture.zip")))

		var warnings, infos int
		for _, entry := range hook.AllEntries() {
			switch entry.Level {
			case logrus.WarnLevel:
				warnings++
				Expect(entry.Message).To(ContainSubstring("ActorMove"))
			case logrus.InfoLevel:
				infos++
			}
		}
		Expect(warnings).To(Equal(1))
		Expect(infos).To(BeNumerically(">=", 1))
	})

	It("labels every IPC packet with its raw opcode without a table", func() {
		exp.Table = nil
		builder.AddRecord(capture.ProtocolZone, capture.DirectionTx, frametest.Bytes(frame.ConnectionZone,
			frametest.IPCPacket(0x142, 1, 2, frametest.Payload(0, 16))))

		res, err := exp.Expand(writeCapture())
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Unknown).To(Equal(1))
		Expect(packetDir("zone", "0-ipc-0x142 (to server) (0)")).To(BeADirectory())
	})

	DescribeTable("reads compressed Data entries",
		func(written, read capture.Compression) {
			builder.Compression = written
			exp.Compression = read
			builder.AddRecord(capture.ProtocolZone, capture.DirectionTx, frametest.Bytes(frame.ConnectionZone,
				frametest.IPCPacket(0x142, 1, 2, frametest.Payload(0, 16))))

			_, err := exp.Expand(writeCapture())
			Expect(err).ToNot(HaveOccurred())
			Expect(packetDir("zone", "0-ipc-ActorMove (to server) (0)")).To(BeADirectory())
		},
		Entry("detected zstd", capture.CompressionZstd, capture.CompressionAuto),
		Entry("detected snappy", capture.CompressionSnappy, capture.CompressionAuto),
		Entry("detected gzip", capture.CompressionGzip, capture.CompressionAuto),
		Entry("explicit snappy", capture.CompressionSnappy, capture.CompressionSnappy),
		Entry("explicit none", capture.CompressionNone, capture.CompressionNone),
	)

	It("fails on a malformed frame", func() {
		f := frametest.Frame(frame.ConnectionZone, frametest.IPCPacket(0x142, 1, 2, frametest.Payload(0, 16)))
		f.Packets[0].Header.Size = 10
		data, err := f.Bytes()
		Expect(err).ToNot(HaveOccurred())
		builder.AddRecord(capture.ProtocolZone, capture.DirectionTx, data)

		logger, hook := logrustest.NewNullLogger()
		logger.SetLevel(logrus.DebugLevel)
		exp.Logger = logger

		_, err = exp.Expand(writeCapture())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("record #0"))
		Expect(errors.Cause(err)).To(Equal(frame.ErrSizeUnderflow))

		// The malformed frame is hex-dumped for debugging.
		last := hook.LastEntry()
		Expect(last.Level).To(Equal(logrus.DebugLevel))
		Expect(last.Message).To(ContainSubstring("malformed Zone/Tx frame (88 bytes)"))
		Expect(last.Message).To(ContainSubstring("00000000  52 00 00 00"))
	})

	It("fails on a truncated Data stream", func() {
		builder.AddRecord(capture.ProtocolZone, capture.DirectionTx, frametest.Bytes(frame.ConnectionZone))
		builder.DataSuffix = []byte{0x20, 0x01, 0x02}

		_, err := exp.Expand(writeCapture())
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("record #1"))
	})

	DescribeTable("fails when a container entry is missing",
		func(entry string) {
			builder.Omit = []string{entry}
			_, err := exp.Expand(writeCapture())
			Expect(errors.Cause(err)).To(Equal(capture.ErrMissingEntry))
		},
		Entry("VersionInfo", capture.VersionInfoEntry),
		Entry("CaptureInfo", capture.CaptureInfoEntry),
		Entry("Data", capture.DataEntry),
	)

	It("rejects capture IDs that are not a single path component", func() {
		builder.CaptureInfo.CaptureID = "../escape"
		_, err := exp.Expand(writeCapture())
		Expect(errors.Cause(err)).To(Equal(capture.ErrInvalidCaptureID))
	})

	It("fails when the capture does not exist", func() {
		_, err := exp.Expand(filepath.Join(tdir, "missing.zip"))
		Expect(err).To(HaveOccurred())
	})

	Context("with atomic output", func() {
		BeforeEach(func() {
			exp.Atomic = true
		})

		It("leaves no output behind on failure", func() {
			builder.AddRecord(capture.ProtocolZone, capture.DirectionTx, frametest.Bytes(frame.ConnectionZone,
				frametest.IPCPacket(0x142, 1, 2, frametest.Payload(0, 16))))
			builder.AddRecord(capture.ProtocolZone, capture.DirectionTx, []byte{0x00, 0x01})

			_, err := exp.Expand(writeCapture())
			Expect(err).To(HaveOccurred())
			Expect(filepath.Join(outDir, "test123")).ToNot(BeAnExistingFile())

			entries, err := ioutil.ReadDir(outDir)
			Expect(err).ToNot(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})

		It("replaces an existing capture directory on success", func() {
			stale := filepath.Join(outDir, "test123", "zone", "stale")
			Expect(os.MkdirAll(stale, 0755)).To(Succeed())

			builder.AddRecord(capture.ProtocolZone, capture.DirectionTx, frametest.Bytes(frame.ConnectionZone,
				frametest.IPCPacket(0x142, 1, 2, frametest.Payload(0, 16))))

			_, err := exp.Expand(writeCapture())
			Expect(err).ToNot(HaveOccurred())
			Expect(packetDir("zone", "0-ipc-ActorMove (to server) (0)")).To(BeADirectory())
			Expect(stale).ToNot(BeAnExistingFile())

			entries, err := ioutil.ReadDir(outDir)
			Expect(err).ToNot(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Name()).To(Equal("test123"))
		})
	})
})

var _ = Describe("RegisterMonitoring", func() {
	It("registers collectors that can be gathered", func() {
		reg := prometheus.NewRegistry()
		RegisterMonitoring(reg)

		_, err := reg.Gather()
		Expect(err).ToNot(HaveOccurred())
		Expect(func() { RegisterMonitoring(reg) }).To(Panic())
	})
})

var _ = Describe("ParseIndexScope", func() {
	DescribeTable("parses scope names",
		func(v string, expected IndexScope) {
			s, err := ParseIndexScope(v)
			Expect(err).ToNot(HaveOccurred())
			Expect(s).To(Equal(expected))
			Expect(s.String()).ToNot(BeEmpty())
		},
		Entry("empty", "", ScopeCapture),
		Entry("capture", "capture", ScopeCapture),
		Entry("protocol", "Protocol", ScopeProtocol),
	)

	It("rejects unknown scopes", func() {
		_, err := ParseIndexScope("frame")
		Expect(err).To(HaveOccurred())
	})
})
