package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/mminspector/inspector/internal/events"
	"github.com/mminspector/inspector/internal/inspector"
	"github.com/mminspector/inspector/internal/models"
)

var (
	ErrBusy   = errors.New("an upload is already in progress")
	ErrNoFile = errors.New("no file selected")
)

// Uploader is the part of the API client the control needs
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader, size int64, onProgress inspector.ProgressFunc) (*models.UploadResult, error)
}

// File is one user-selected file
type File struct {
	Name   string
	Size   int64
	Reader io.Reader
}

// Control sends one file at a time to the backend
type Control struct {
	uploader Uploader
	bus      *events.Bus
	busy     atomic.Bool
	progress atomic.Int32
}

func NewControl(uploader Uploader, bus *events.Bus) *Control {
	return &Control{uploader: uploader, bus: bus}
}

func (c *Control) Busy() bool {
	return c.busy.Load()
}

// Progress is the last reported percentage of the running upload, 0 when idle.
func (c *Control) Progress() int {
	return int(c.progress.Load())
}

// Submit uploads the first file. Any further files are ignored.
func (c *Control) Submit(ctx context.Context, files ...File) (*models.UploadResult, error) {
	if len(files) == 0 || files[0].Reader == nil {
		return nil, ErrNoFile
	}
	if !c.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer func() {
		c.progress.Store(0)
		c.busy.Store(false)
	}()

	if len(files) > 1 {
		slog.Debug("Ignoring extra files", "count", len(files)-1)
	}

	f := files[0]
	c.progress.Store(0)
	result, err := c.uploader.Upload(ctx, f.Name, f.Reader, f.Size, func(percent int) {
		c.progress.Store(int32(percent))
	})
	if err != nil {
		slog.Error("Upload failed", "filename", f.Name, "err", err)
		return nil, err
	}

	slog.Info("Upload accepted", "filename", f.Name, "media_id", result.MediaID, "media_type", result.MediaType)
	c.bus.Publish(events.MediaUploaded{Result: *result})

	return result, nil
}

// SubmitPath opens a local file and submits it.
func (c *Control) SubmitPath(ctx context.Context, path string) (*models.UploadResult, error) {
	if path == "" {
		return nil, ErrNoFile
	}
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer fh.Close()

	info, err := fh.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	return c.Submit(ctx, File{Name: filepath.Base(path), Size: info.Size(), Reader: fh})
}
