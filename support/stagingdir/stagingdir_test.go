// Copyright 2018 Dan Jacques. All rights reserved.
// Use of this source code is governed under the MIT License
// that can be found in the LICENSE file.

package stagingdir

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("D", func() {
	var tdir string
	BeforeEach(func() {
		var err error
		tdir, err = ioutil.TempDir("", "stagingdir_test")
		Expect(err).ToNot(HaveOccurred())
	})
	AfterEach(func() {
		Expect(os.RemoveAll(tdir)).To(Succeed())
	})

	It("commits a staged tree to its destination", func() {
		sd, err := New(filepath.Join(tdir, "tmp"), "stage")
		Expect(err).ToNot(HaveOccurred())

		Expect(os.MkdirAll(sd.Path("a", "b"), 0755)).To(Succeed())
		Expect(ioutil.WriteFile(sd.Path("a", "b", "file"), []byte("data"), 0644)).To(Succeed())

		dest := filepath.Join(tdir, "out", "capture")
		Expect(sd.Commit(dest)).To(Succeed())

		data, err := ioutil.ReadFile(filepath.Join(dest, "a", "b", "file"))
		Expect(err).ToNot(HaveOccurred())
		Expect(string(data)).To(Equal("data"))

		// Destroy after Commit is a no-op.
		Expect(sd.Destroy()).To(Succeed())
		Expect(filepath.Join(dest, "a")).To(BeADirectory())
	})

	It("replaces an existing destination", func() {
		dest := filepath.Join(tdir, "capture")
		Expect(os.MkdirAll(filepath.Join(dest, "stale"), 0755)).To(Succeed())

		sd, err := New(tdir, "stage")
		Expect(err).ToNot(HaveOccurred())
		Expect(os.Mkdir(sd.Path("fresh"), 0755)).To(Succeed())
		Expect(sd.Commit(dest)).To(Succeed())

		Expect(filepath.Join(dest, "fresh")).To(BeADirectory())
		Expect(filepath.Join(dest, "stale")).ToNot(BeAnExistingFile())
	})

	It("removes everything on Destroy", func() {
		sd, err := New(tdir, "stage")
		Expect(err).ToNot(HaveOccurred())
		root := sd.Root()

		Expect(sd.Destroy()).To(Succeed())
		Expect(root).ToNot(BeAnExistingFile())
		Expect(sd.Commit(filepath.Join(tdir, "dest"))).ToNot(Succeed())
	})
})

func TestStagingDir(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "StagingDir Tests")
}
