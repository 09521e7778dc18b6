package media

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/vidtube/backend/internal/logging"
)

// Status describes the outcome of one upload attempt. NotProvided and Failed
// are deliberately distinct so callers can tell "no file was staged" apart
// from "the provider rejected the file".
type Status int

const (
	// StatusNotProvided means no staged file path was given; nothing happened.
	StatusNotProvided Status = iota
	// StatusFailed means the provider call failed; the staged file was removed.
	StatusFailed
	// StatusUploaded means the asset is hosted; the staged file was removed.
	StatusUploaded
)

// Result carries the outcome of an upload attempt along with the hosted URL
// and metadata derived from the staged file.
type Result struct {
	Status   Status
	URL      string
	Size     int64
	Duration float64
}

// Uploaded reports whether the attempt produced a hosted asset.
func (r Result) Uploaded() bool { return r.Status == StatusUploaded }

// ObjectStorage persists a named blob and returns its public location.
type ObjectStorage interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
}

// DurationProber derives the playable duration of a local media file.
type DurationProber interface {
	Probe(ctx context.Context, path string) (float64, error)
}

// Pipeline pushes staged files to the external storage provider. A staged
// file is consumed exactly once: whatever the outcome of the attempt, the
// local copy is removed before Upload returns.
type Pipeline struct {
	storage ObjectStorage
	prober  DurationProber
	prefix  string
}

// NewPipeline constructs a Pipeline. The prober is optional; without one all
// durations are reported as zero.
func NewPipeline(storage ObjectStorage, prober DurationProber) *Pipeline {
	if storage == nil {
		panic("media: pipeline requires object storage")
	}
	return &Pipeline{storage: storage, prober: prober, prefix: "media"}
}

// Upload pushes the staged file to the storage provider. A blank path yields
// StatusNotProvided without touching the filesystem or the provider. Provider
// failures are swallowed into StatusFailed after logging; they never
// propagate as errors so callers have a single uniform failure signal.
func (p *Pipeline) Upload(ctx context.Context, stagedPath string) Result {
	if strings.TrimSpace(stagedPath) == "" {
		return Result{Status: StatusNotProvided}
	}

	logger := logging.FromContext(ctx)

	// Guaranteed-cleanup region: the staged file must not survive this
	// attempt, whether it succeeds or fails.
	defer func() {
		if err := os.Remove(stagedPath); err != nil && !os.IsNotExist(err) {
			logger.Error("remove staged file", "path", stagedPath, "error", err)
		}
	}()

	var duration float64
	if p.prober != nil {
		d, err := p.prober.Probe(ctx, stagedPath)
		if err != nil {
			logger.Warn("probe media duration", "path", stagedPath, "error", err)
		} else {
			duration = d
		}
	}

	file, err := os.Open(stagedPath)
	if err != nil {
		logger.Error("open staged file", "path", stagedPath, "error", err)
		return Result{Status: StatusFailed}
	}
	defer file.Close()

	var size int64
	if info, err := file.Stat(); err == nil {
		size = info.Size()
	}

	key := path.Join(p.prefix, filepath.Base(stagedPath))
	url, err := p.storage.Save(ctx, key, file)
	if err != nil {
		logger.Error("media upload failed", "path", stagedPath, "key", key, "error", err)
		return Result{Status: StatusFailed}
	}

	return Result{Status: StatusUploaded, URL: url, Size: size, Duration: duration}
}

// Discard removes a staged file without contacting the storage provider or
// the prober. Callers use it when a request is rejected after staging but
// before the asset should be hosted. A blank path is a no-op.
func (p *Pipeline) Discard(ctx context.Context, stagedPath string) {
	if strings.TrimSpace(stagedPath) == "" {
		return
	}
	if err := os.Remove(stagedPath); err != nil && !os.IsNotExist(err) {
		logging.FromContext(ctx).Error("remove staged file", "path", stagedPath, "error", err)
	}
}
