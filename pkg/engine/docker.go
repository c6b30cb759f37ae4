package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hpcloud/tail"
	process "github.com/mudler/go-processmanager"
	"github.com/rs/zerolog/log"
)

// Docker runs piper inside a container. The default mode starts a fresh
// container per chunk. With KeepAlive a single container stays up for the
// whole run and chunks are fed to it through docker exec, which avoids the
// per-chunk startup cost on long inputs.
type Docker struct {
	cfg       Config
	container string
	proc      *process.Process
}

// NewDocker validates cfg and returns a container-backed engine.
func NewDocker(cfg Config) (*Docker, error) {
	if cfg.Model == "" {
		return nil, errors.New("no voice model configured")
	}
	if cfg.Image == "" {
		cfg.Image = DefaultImage
	}
	if cfg.KeepAlive && cfg.WorkDir == "" {
		return nil, errors.New("keep-alive mode needs a work dir to mount")
	}
	return &Docker{cfg: cfg}, nil
}

func (d *Docker) Name() string {
	return KindDocker
}

// Preflight checks that docker is installed, the daemon answers and the
// piper image exists. The image is never built or pulled here, that is left
// to the user.
func (d *Docker) Preflight(ctx context.Context) error {
	if _, err := exec.LookPath("docker"); err != nil {
		return fmt.Errorf("%w: docker not found in PATH", ErrUnavailable)
	}
	if out, err := exec.CommandContext(ctx, "docker", "version", "--format", "{{.Server.Version}}").CombinedOutput(); err != nil {
		return fmt.Errorf("%w: docker daemon not reachable: %s", ErrUnavailable, strings.TrimSpace(string(out)))
	}
	if _, err := exec.CommandContext(ctx, "docker", "image", "inspect", d.cfg.Image).CombinedOutput(); err != nil {
		return fmt.Errorf("%w: image %q not found, build or pull it first", ErrUnavailable, d.cfg.Image)
	}
	if d.cfg.KeepAlive {
		return d.start(ctx)
	}
	return nil
}

func (d *Docker) Synthesize(ctx context.Context, text, dst string) error {
	if d.proc != nil {
		return d.execSynthesize(ctx, text, dst)
	}

	outDir, err := filepath.Abs(filepath.Dir(dst))
	if err != nil {
		return err
	}
	args := []string{"run", "--rm", "-i", "-v", outDir + ":/output"}
	args = d.appendModelsMount(args)
	args = append(args, d.cfg.Image,
		"piper", "--model", d.modelRef(), "--output_file", path.Join("/output", filepath.Base(dst)))

	return invoke(ctx, text, dst, "docker", args...)
}

// execSynthesize feeds one chunk to the keep-alive container.
func (d *Docker) execSynthesize(ctx context.Context, text, dst string) error {
	dstAbs, err := filepath.Abs(dst)
	if err != nil {
		return err
	}
	workAbs, err := filepath.Abs(d.cfg.WorkDir)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(workAbs, dstAbs)
	if err != nil || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("chunk output %s is outside the mounted work dir %s", dst, d.cfg.WorkDir)
	}

	args := []string{"exec", "-i", d.container,
		"piper", "--model", d.modelRef(), "--output_file", path.Join("/output", filepath.ToSlash(rel))}
	return invoke(ctx, text, dst, "docker", args...)
}

// start brings up the keep-alive container and waits until it is running.
func (d *Docker) start(ctx context.Context) error {
	workAbs, err := filepath.Abs(d.cfg.WorkDir)
	if err != nil {
		return err
	}
	d.container = "piperbook-" + uuid.New().String()[:8]

	args := []string{"run", "--rm", "--name", d.container, "-v", workAbs + ":/output"}
	args = d.appendModelsMount(args)
	args = append(args, "--entrypoint", "sleep", d.cfg.Image, "infinity")

	d.proc = process.New(
		process.WithTemporaryStateDir(),
		process.WithName("docker"),
		process.WithArgs(args...),
		process.WithEnvironment(os.Environ()...),
	)
	if err := d.proc.Run(); err != nil {
		d.proc = nil
		return fmt.Errorf("%w: could not start container: %v", ErrUnavailable, err)
	}
	log.Debug().Str("container", d.container).Str("state_dir", d.proc.StateDir()).Msg("keep-alive container starting")

	go func() {
		t, err := tail.TailFile(d.proc.StderrPath(), tail.Config{Follow: true})
		if err != nil {
			log.Debug().Msgf("Could not tail stderr")
			return
		}
		for line := range t.Lines {
			log.Debug().Msgf("container(%s): stderr %s", d.container, line.Text)
		}
	}()

	return d.waitRunning(ctx)
}

// waitRunning polls the container state until docker reports it running.
func (d *Docker) waitRunning(ctx context.Context) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		out, err := exec.CommandContext(ctx, "docker", "inspect", "-f", "{{.State.Running}}", d.container).Output()
		if err == nil && strings.TrimSpace(string(out)) == "true" {
			return nil
		}
		if !d.proc.IsAlive() {
			return fmt.Errorf("%w: container %s exited during startup", ErrUnavailable, d.container)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: container %s did not come up in time", ErrUnavailable, d.container)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(300 * time.Millisecond):
		}
	}
}

// Close tears down the keep-alive container if one is running.
func (d *Docker) Close() error {
	if d.proc == nil {
		return nil
	}
	// force-remove first, killing the docker client alone can leave the
	// container behind
	exec.Command("docker", "rm", "-f", d.container).Run()
	err := d.proc.Stop()
	d.proc = nil
	return err
}

func (d *Docker) appendModelsMount(args []string) []string {
	if d.cfg.ModelsPath == "" {
		return args
	}
	modelsAbs, err := filepath.Abs(d.cfg.ModelsPath)
	if err != nil {
		modelsAbs = d.cfg.ModelsPath
	}
	return append(args, "-v", modelsAbs+":/models:ro")
}

// modelRef is what piper sees as --model inside the container. With a models
// dir mounted it points at the onnx file, otherwise the bare voice name is
// passed through and the image resolves it.
func (d *Docker) modelRef() string {
	if d.cfg.ModelsPath == "" {
		return d.cfg.Model
	}
	name := d.cfg.Model
	if !strings.HasSuffix(name, ".onnx") {
		name += ".onnx"
	}
	return path.Join("/models", name)
}
