package engine_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/piperbook/piperbook/pkg/engine"
)

// installFakePiper drops an executable piper script into dir. The script
// swallows stdin and behaves according to mode.
func installFakePiper(dir, mode string) {
	var body string
	switch mode {
	case "ok":
		body = `#!/bin/sh
out=""
while [ $# -gt 0 ]; do
  if [ "$1" = "--output_file" ]; then out="$2"; fi
  shift
done
cat > /dev/null
printf 'RIFFxxxxWAVEfake' > "$out"
`
	case "fail":
		body = `#!/bin/sh
cat > /dev/null
echo "phonemization blew up" >&2
exit 1
`
	case "silent":
		body = `#!/bin/sh
cat > /dev/null
exit 0
`
	case "hang":
		// PATH is trimmed to the fake bin dir in BeforeEach, so sleep
		// must be addressed by absolute path to actually block.
		body = `#!/bin/sh
exec /bin/sleep 30
`
	}
	Expect(os.WriteFile(filepath.Join(dir, "piper"), []byte(body), 0755)).To(Succeed())
}

var _ = Describe("New", func() {
	It("defaults to the docker engine", func() {
		e, err := engine.New(engine.Config{Model: "en_GB-northern_english_male-medium"})
		Expect(err).ToNot(HaveOccurred())
		Expect(e.Name()).To(Equal("docker"))
	})

	It("builds the local piper engine on request", func() {
		e, err := engine.New(engine.Config{Kind: "piper", Model: "en_GB-northern_english_male-medium"})
		Expect(err).ToNot(HaveOccurred())
		Expect(e.Name()).To(Equal("piper"))
	})

	It("rejects unknown kinds", func() {
		_, err := engine.New(engine.Config{Kind: "carrier-pigeon", Model: "m"})
		Expect(err).To(HaveOccurred())
	})

	It("rejects a missing model", func() {
		_, err := engine.New(engine.Config{Kind: "piper"})
		Expect(err).To(HaveOccurred())
	})

	It("rejects keep-alive without a work dir", func() {
		_, err := engine.New(engine.Config{Kind: "docker", Model: "m", KeepAlive: true})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Piper engine", func() {
	var (
		binDir  string
		workDir string
		oldPath string
	)

	BeforeEach(func() {
		var err error
		binDir, err = os.MkdirTemp("", "engine-bin")
		Expect(err).ToNot(HaveOccurred())
		workDir, err = os.MkdirTemp("", "engine-work")
		Expect(err).ToNot(HaveOccurred())
		oldPath = os.Getenv("PATH")
		Expect(os.Setenv("PATH", binDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Setenv("PATH", oldPath)).To(Succeed())
		os.RemoveAll(binDir)
		os.RemoveAll(workDir)
	})

	It("fails preflight when the binary is missing", func() {
		e, err := engine.NewPiper(engine.Config{Model: "m"})
		Expect(err).ToNot(HaveOccurred())
		Expect(e.Preflight(context.Background())).To(MatchError(engine.ErrUnavailable))
	})

	It("fails preflight when the voice model file is missing", func() {
		installFakePiper(binDir, "ok")
		e, err := engine.NewPiper(engine.Config{Model: "missing-voice", ModelsPath: workDir})
		Expect(err).ToNot(HaveOccurred())
		Expect(e.Preflight(context.Background())).To(MatchError(engine.ErrUnavailable))
	})

	It("passes preflight and synthesizes a chunk", func() {
		installFakePiper(binDir, "ok")
		Expect(os.WriteFile(filepath.Join(workDir, "voice.onnx"), []byte("onnx"), 0644)).To(Succeed())

		e, err := engine.NewPiper(engine.Config{Model: "voice", ModelsPath: workDir})
		Expect(err).ToNot(HaveOccurred())
		Expect(e.Preflight(context.Background())).To(Succeed())

		dst := filepath.Join(workDir, "chunk_0.wav")
		Expect(e.Synthesize(context.Background(), "Hello there.", dst)).To(Succeed())

		data, err := os.ReadFile(dst)
		Expect(err).ToNot(HaveOccurred())
		Expect(data).ToNot(BeEmpty())
	})

	It("maps a nonzero exit to a synthesis error carrying stderr", func() {
		installFakePiper(binDir, "fail")
		e, err := engine.NewPiper(engine.Config{Model: "voice"})
		Expect(err).ToNot(HaveOccurred())

		err = e.Synthesize(context.Background(), "text", filepath.Join(workDir, "chunk_0.wav"))
		Expect(err).To(MatchError(engine.ErrSynthesis))
		Expect(err.Error()).To(ContainSubstring("phonemization blew up"))
	})

	It("treats a clean exit without output as a synthesis error", func() {
		installFakePiper(binDir, "silent")
		e, err := engine.NewPiper(engine.Config{Model: "voice"})
		Expect(err).ToNot(HaveOccurred())

		err = e.Synthesize(context.Background(), "text", filepath.Join(workDir, "chunk_0.wav"))
		Expect(err).To(MatchError(engine.ErrSynthesis))
		Expect(err.Error()).To(ContainSubstring("no audio produced"))
	})

	It("gives up when the context expires", func() {
		installFakePiper(binDir, "hang")
		e, err := engine.NewPiper(engine.Config{Model: "voice"})
		Expect(err).ToNot(HaveOccurred())

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		err = e.Synthesize(ctx, "text", filepath.Join(workDir, "chunk_0.wav"))
		Expect(err).To(MatchError(context.DeadlineExceeded))
	})
})

var _ = Describe("Docker engine", func() {
	var (
		emptyDir string
		oldPath  string
	)

	BeforeEach(func() {
		var err error
		emptyDir, err = os.MkdirTemp("", "engine-nodocker")
		Expect(err).ToNot(HaveOccurred())
		oldPath = os.Getenv("PATH")
		Expect(os.Setenv("PATH", emptyDir)).To(Succeed())
	})

	AfterEach(func() {
		Expect(os.Setenv("PATH", oldPath)).To(Succeed())
		os.RemoveAll(emptyDir)
	})

	It("fails preflight when docker is not installed", func() {
		e, err := engine.NewDocker(engine.Config{Model: "voice"})
		Expect(err).ToNot(HaveOccurred())
		Expect(e.Preflight(context.Background())).To(MatchError(engine.ErrUnavailable))
	})

	It("closing without a container is a no-op", func() {
		e, err := engine.NewDocker(engine.Config{Model: "voice"})
		Expect(err).ToNot(HaveOccurred())
		Expect(e.Close()).To(Succeed())
	})
})
