package upload

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mminspector/inspector/internal/events"
	"github.com/mminspector/inspector/internal/inspector"
	"github.com/mminspector/inspector/internal/models"
)

type fakeUploader struct {
	started chan struct{}
	release chan struct{}
	names   []string
	body    string
	err     error
}

func (f *fakeUploader) Upload(ctx context.Context, filename string, r io.Reader, size int64, onProgress inspector.ProgressFunc) (*models.UploadResult, error) {
	f.names = append(f.names, filename)
	data, _ := io.ReadAll(r)
	f.body = string(data)
	onProgress(50)
	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}
	onProgress(100)
	return &models.UploadResult{MediaID: "abc", Filename: filename, MediaType: models.MediaTypeImage, Status: models.StatusProcessing}, nil
}

func TestSubmitUploadsFirstFileOnly(t *testing.T) {
	fake := &fakeUploader{}
	bus := events.NewBus()
	ch, cancel := bus.Subscribe(4)
	defer cancel()

	control := NewControl(fake, bus)
	result, err := control.Submit(context.Background(),
		File{Name: "a.png", Size: 3, Reader: strings.NewReader("one")},
		File{Name: "b.png", Size: 3, Reader: strings.NewReader("two")},
	)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.MediaID != "abc" {
		t.Errorf("Expected media id abc, got %s", result.MediaID)
	}
	if len(fake.names) != 1 || fake.names[0] != "a.png" {
		t.Errorf("Expected only a.png to be uploaded, got %v", fake.names)
	}
	if control.Busy() {
		t.Error("Expected control to be idle after upload")
	}
	if control.Progress() != 0 {
		t.Errorf("Expected progress reset to 0, got %d", control.Progress())
	}

	select {
	case e := <-ch:
		if uploaded, ok := e.(events.MediaUploaded); !ok || uploaded.Result.MediaID != "abc" {
			t.Errorf("Unexpected event %#v", e)
		}
	default:
		t.Error("Expected MediaUploaded event")
	}
}

func TestSubmitWithoutFile(t *testing.T) {
	fake := &fakeUploader{}
	control := NewControl(fake, nil)

	if _, err := control.Submit(context.Background()); !errors.Is(err, ErrNoFile) {
		t.Errorf("Expected ErrNoFile, got %v", err)
	}
	if _, err := control.SubmitPath(context.Background(), ""); !errors.Is(err, ErrNoFile) {
		t.Errorf("Expected ErrNoFile for empty path, got %v", err)
	}
	if len(fake.names) != 0 {
		t.Errorf("Expected no upload, got %v", fake.names)
	}
}

func TestSubmitRejectsWhileBusy(t *testing.T) {
	fake := &fakeUploader{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	control := NewControl(fake, nil)

	done := make(chan error, 1)
	go func() {
		_, err := control.Submit(context.Background(), File{Name: "a.png", Size: 3, Reader: strings.NewReader("one")})
		done <- err
	}()

	<-fake.started
	if !control.Busy() {
		t.Error("Expected control to be busy during upload")
	}
	if control.Progress() != 50 {
		t.Errorf("Expected progress 50, got %d", control.Progress())
	}

	_, err := control.Submit(context.Background(), File{Name: "b.png", Size: 3, Reader: strings.NewReader("two")})
	if !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy, got %v", err)
	}

	close(fake.release)
	if err := <-done; err != nil {
		t.Errorf("Unexpected error from first upload: %v", err)
	}
	if control.Busy() {
		t.Error("Expected control to be idle after upload")
	}
}

func TestSubmitFailureClearsBusy(t *testing.T) {
	fake := &fakeUploader{err: errors.New("boom")}
	bus := events.NewBus()
	ch, cancel := bus.Subscribe(1)
	defer cancel()

	control := NewControl(fake, bus)
	_, err := control.Submit(context.Background(), File{Name: "a.png", Size: 3, Reader: strings.NewReader("one")})
	if err == nil {
		t.Fatal("Expected error")
	}
	if control.Busy() || control.Progress() != 0 {
		t.Errorf("Expected idle control, got busy=%v progress=%d", control.Busy(), control.Progress())
	}
	select {
	case e := <-ch:
		t.Errorf("Expected no event on failure, got %#v", e)
	default:
	}
}

func TestSubmitPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	fake := &fakeUploader{}
	control := NewControl(fake, nil)
	if _, err := control.SubmitPath(context.Background(), path); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if fake.names[0] != "notes.txt" || fake.body != "hello" {
		t.Errorf("Expected notes.txt with body hello, got %v %q", fake.names, fake.body)
	}

	if _, err := control.SubmitPath(context.Background(), dir); err == nil {
		t.Error("Expected error for directory")
	}
	if _, err := control.SubmitPath(context.Background(), filepath.Join(dir, "missing.txt")); err == nil {
		t.Error("Expected error for missing file")
	}
}
