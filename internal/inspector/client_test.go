package inspector

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mminspector/inspector/internal/models"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestUploadSendsMultipartFile(t *testing.T) {
	content := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0x42}, 64*1024)...)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/upload" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("Failed to read form file: %v", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Filename != "dog.png" {
			t.Errorf("Expected filename dog.png, got %s", header.Filename)
		}
		if ct := header.Header.Get("Content-Type"); ct != "image/png" {
			t.Errorf("Expected part content type image/png, got %s", ct)
		}
		got, _ := io.ReadAll(file)
		if !bytes.Equal(got, content) {
			t.Errorf("Uploaded bytes differ: got %d bytes, want %d", len(got), len(content))
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("Expected X-Request-ID header")
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"media_id": "abc", "filename": "dog.png", "media_type": "image", "status": "processing"}`))
	}))
	defer srv.Close()

	var mu sync.Mutex
	var progress []int
	client := NewClient(srv.URL)
	result, err := client.Upload(context.Background(), "dog.png", bytes.NewReader(content), int64(len(content)), func(p int) {
		mu.Lock()
		progress = append(progress, p)
		mu.Unlock()
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()

	if result.MediaID != "abc" {
		t.Errorf("Expected media id abc, got %s", result.MediaID)
	}
	if len(progress) == 0 || progress[len(progress)-1] != 100 {
		t.Fatalf("Expected progress to end at 100, got %v", progress)
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] <= progress[i-1] {
			t.Errorf("Expected strictly increasing progress, got %v", progress)
			break
		}
	}
}

func TestUploadRequiresMediaID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		_, _ = w.Write([]byte(`{"status": "processing"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Upload(context.Background(), "a.txt", strings.NewReader("hello"), 5, nil)
	if err == nil {
		t.Fatal("Expected error for missing media_id")
	}
}

func TestUploadSurfacesServerDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail": "File is empty"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Upload(context.Background(), "empty.png", strings.NewReader(""), 0, nil)
	if err == nil {
		t.Fatal("Expected error")
	}
	if StatusCode(err) != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", StatusCode(err))
	}
	if !strings.Contains(err.Error(), "File is empty") {
		t.Errorf("Expected detail in error, got %v", err)
	}
}

func TestGetMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/media/abc" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"id": "abc", "filename": "dog.png", "media_type": "image", "status": "completed",
			"size_bytes": 2097152, "width": 640, "height": 480, "duration": null,
			"analysis": {"caption": "a dog", "colors": ["#ffffff"], "sentiment": {"label": "positive", "score": 0.9}}
		}`))
	}))
	defer srv.Close()

	record, err := NewClient(srv.URL).GetMedia(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if record.Status != models.StatusCompleted {
		t.Errorf("Expected completed, got %s", record.Status)
	}
	if record.Width == nil || *record.Width != 640 {
		t.Errorf("Expected width 640, got %v", record.Width)
	}
	if record.Duration != nil {
		t.Errorf("Expected nil duration, got %v", *record.Duration)
	}
	if record.Analysis == nil || record.Analysis.Caption != "a dog" {
		t.Fatalf("Expected caption a dog, got %+v", record.Analysis)
	}
	if record.Analysis.Sentiment.Score != 0.9 {
		t.Errorf("Expected sentiment 0.9, got %v", record.Analysis.Sentiment.Score)
	}
}

func TestGetMediaNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail": "Media not found"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).GetMedia(context.Background(), "missing")
	if !IsNotFound(err) {
		t.Fatalf("Expected not found error, got %v", err)
	}
}

func TestAskQuestion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/ask" {
			t.Errorf("Unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body models.AskRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("Failed to decode body: %v", err)
		}
		if body.MediaID != "abc" || body.Question != "What color is it?" {
			t.Errorf("Unexpected body %+v", body)
		}
		_, _ = w.Write([]byte(`{"answer": "Brown", "sources": ["frame_3"]}`))
	}))
	defer srv.Close()

	answer, err := NewClient(srv.URL).AskQuestion(context.Background(), "abc", "What color is it?")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if answer.Answer != "Brown" || len(answer.Sources) != 1 || answer.Sources[0] != "frame_3" {
		t.Errorf("Unexpected answer %+v", answer)
	}
}

func TestGetChatHistoryAndAnalyses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/chat/abc":
			_, _ = w.Write([]byte(`[
				{"id": 1, "role": "user", "message": "hi", "created_at": "2025-01-01T00:00:00"},
				{"id": 2, "role": "assistant", "message": "hello", "created_at": "2025-01-01T00:00:01"}
			]`))
		case "/media/abc/analysis":
			_, _ = w.Write([]byte(`[{"id": 1, "stage": "image", "payload": {"caption": "a dog"}, "created_at": "2025-01-01T00:00:00"}]`))
		default:
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	history, err := client.GetChatHistory(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(history) != 2 || history[1].Role != models.RoleAssistant {
		t.Errorf("Unexpected history %+v", history)
	}

	analyses, err := client.GetAllAnalyses(context.Background(), "abc")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(analyses) != 1 || analyses[0].Payload.Caption != "a dog" {
		t.Errorf("Unexpected analyses %+v", analyses)
	}
}

func TestListMediaPagination(t *testing.T) {
	tests := []struct {
		name          string
		limit, offset int
		expectedQuery string
	}{
		{name: "defaults", limit: 0, offset: -3, expectedQuery: "limit=20&offset=0"},
		{name: "explicit", limit: 5, offset: 10, expectedQuery: "limit=5&offset=10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.RawQuery != tt.expectedQuery {
					t.Errorf("Expected query %s, got %s", tt.expectedQuery, r.URL.RawQuery)
				}
				_, _ = w.Write([]byte(`[{"id": "a", "filename": "a.png", "media_type": "image", "size_bytes": 10}]`))
			}))
			defer srv.Close()

			records, err := NewClient(srv.URL).ListMedia(context.Background(), tt.limit, tt.offset)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if len(records) != 1 {
				t.Errorf("Expected 1 record, got %d", len(records))
			}
		})
	}
}

func TestURLBuildersAreDeterministic(t *testing.T) {
	client := NewClient("http://backend:8000/")

	first := client.DownloadURL("abc")
	second := client.DownloadURL("abc")
	if first != second {
		t.Errorf("Expected identical URLs, got %s and %s", first, second)
	}
	if first != "http://backend:8000/download/abc" {
		t.Errorf("Unexpected download URL %s", first)
	}
	if got := client.ExportURL("abc", "pdf"); got != "http://backend:8000/export/abc/pdf" {
		t.Errorf("Unexpected export URL %s", got)
	}
}

func TestCopyTo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/download/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("binary-asset"))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)

	var buf bytes.Buffer
	n, err := client.CopyTo(context.Background(), client.DownloadURL("abc"), &buf)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if n != int64(len("binary-asset")) || buf.String() != "binary-asset" {
		t.Errorf("Unexpected copy result %d %q", n, buf.String())
	}

	if _, err := client.CopyTo(context.Background(), client.DownloadURL("missing"), io.Discard); !IsNotFound(err) {
		t.Errorf("Expected not found, got %v", err)
	}
}

func TestPercent(t *testing.T) {
	tests := []struct {
		sent, total int64
		expected    int
	}{
		{0, 100, 0},
		{1, 3, 33},
		{2, 3, 67},
		{100, 100, 100},
		{150, 100, 100},
		{10, 0, 0},
	}

	for _, tt := range tests {
		if got := Percent(tt.sent, tt.total); got != tt.expected {
			t.Errorf("Percent(%d, %d): expected %d, got %d", tt.sent, tt.total, tt.expected, got)
		}
	}
}

func TestStreamStatus(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws/abc" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Upgrade failed: %v", err)
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(models.StatusEvent{Type: models.EventProgress, Stage: "caption", Progress: 50})
		_ = conn.WriteJSON(models.StatusEvent{Type: models.EventAnalysisComplete, MediaID: "abc"})
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := NewClient(srv.URL).StreamStatus(ctx, "abc")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	var got []models.StatusEvent
	for event := range events {
		got = append(got, event)
	}

	if len(got) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(got))
	}
	if got[0].Type != models.EventProgress || got[0].Progress != 50 {
		t.Errorf("Unexpected first event %+v", got[0])
	}
	if got[1].Type != models.EventAnalysisComplete {
		t.Errorf("Unexpected second event %+v", got[1])
	}
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		base     string
		expected string
		wantErr  bool
	}{
		{base: "http://localhost:8000", expected: "ws://localhost:8000/ws/abc"},
		{base: "https://inspector.example.com/api", expected: "wss://inspector.example.com/api/ws/abc"},
		{base: "ftp://example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			got, err := NewClient(tt.base).websocketURL("/ws/abc")
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %s", tt.base)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}
