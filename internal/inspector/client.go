package inspector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/mminspector/inspector/internal/models"
	"github.com/mminspector/inspector/internal/observability"
)

const (
	DefaultListLimit = 20
	sniffLength      = 3072
)

// Client talks to the media inspection backend. Every method issues at most
// one request and never retries.
type Client struct {
	BaseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new backend client rooted at baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload streams one file to POST /upload as the multipart field "file".
// onProgress, when set, receives each change in the sent percentage.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader, size int64, onProgress ProgressFunc) (*models.UploadResult, error) {
	head := make([]byte, sniffLength)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}
	head = head[:n]
	contentType := mimetype.Detect(head).String()

	body := &progressReader{
		r:          io.MultiReader(bytes.NewReader(head), r),
		total:      size,
		onProgress: onProgress,
	}

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/upload", pr)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	defer pr.Close()

	go func() {
		part, err := mw.CreatePart(filePartHeader(filename, contentType))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		written, err := io.Copy(part, body)
		observability.UploadBytes.Add(float64(written))
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	slog.Debug("Uploading media", "filename", filename, "size_bytes", size, "content_type", contentType)

	var result models.UploadResult
	if err := c.do(req, "upload", &result); err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", filename, err)
	}
	if result.MediaID == "" {
		return nil, fmt.Errorf("upload response for %s is missing media_id", filename)
	}

	return &result, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func filePartHeader(filename, contentType string) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)
	return h
}

// GetMedia fetches the media record, including the latest analysis once complete
func (c *Client) GetMedia(ctx context.Context, mediaID string) (*models.MediaRecord, error) {
	var record models.MediaRecord
	if err := c.getJSON(ctx, "get_media", "/media/"+url.PathEscape(mediaID), nil, &record); err != nil {
		return nil, fmt.Errorf("failed to fetch media %s: %w", mediaID, err)
	}
	return &record, nil
}

// GetAllAnalyses fetches every stored analysis stage, oldest first
func (c *Client) GetAllAnalyses(ctx context.Context, mediaID string) ([]models.AnalysisRecord, error) {
	var records []models.AnalysisRecord
	if err := c.getJSON(ctx, "get_analyses", "/media/"+url.PathEscape(mediaID)+"/analysis", nil, &records); err != nil {
		return nil, fmt.Errorf("failed to fetch analyses for %s: %w", mediaID, err)
	}
	return records, nil
}

// AskQuestion posts a question about the media and returns the answer
func (c *Client) AskQuestion(ctx context.Context, mediaID, question string) (*models.AskResponse, error) {
	payload, err := json.Marshal(models.AskRequest{MediaID: mediaID, Question: question})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/ask", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var answer models.AskResponse
	if err := c.do(req, "ask", &answer); err != nil {
		return nil, fmt.Errorf("failed to ask about %s: %w", mediaID, err)
	}
	return &answer, nil
}

// GetChatHistory fetches the stored transcript, oldest first
func (c *Client) GetChatHistory(ctx context.Context, mediaID string) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	if err := c.getJSON(ctx, "chat_history", "/chat/"+url.PathEscape(mediaID), nil, &messages); err != nil {
		return nil, fmt.Errorf("failed to fetch chat history for %s: %w", mediaID, err)
	}
	return messages, nil
}

// ListMedia fetches one page of media records, newest first
func (c *Client) ListMedia(ctx context.Context, limit, offset int) ([]models.MediaRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var records []models.MediaRecord
	if err := c.getJSON(ctx, "list_media", "/media", query, &records); err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	return records, nil
}

func (c *Client) Health(ctx context.Context) (*models.Health, error) {
	var health models.Health
	if err := c.getJSON(ctx, "health", "/health", nil, &health); err != nil {
		return nil, fmt.Errorf("failed to check backend health: %w", err)
	}
	return &health, nil
}

// DownloadURL returns the direct asset URL. It issues no request.
func (c *Client) DownloadURL(mediaID string) string {
	return c.BaseURL + "/download/" + url.PathEscape(mediaID)
}

// ExportURL returns the report URL for a format. It issues no request.
func (c *Client) ExportURL(mediaID, format string) string {
	return c.BaseURL + "/export/" + url.PathEscape(mediaID) + "/" + url.PathEscape(format)
}

// CopyTo streams the body behind rawURL into w
func (c *Client) CopyTo(ctx context.Context, rawURL string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create new request: %w", err)
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observe("copy", "transport_error", start)
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observe("copy", "status_error", start)
		return 0, newAPIError(resp)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		observe("copy", "transport_error", start)
		return n, fmt.Errorf("failed to read response body: %w", err)
	}
	observe("copy", "ok", start)
	return n, nil
}

func (c *Client) getJSON(ctx context.Context, operation, path string, query url.Values, out any) error {
	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create new request: %w", err)
	}
	return c.do(req, operation, out)
}

func (c *Client) do(req *http.Request, operation string, out any) error {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observe(operation, "transport_error", start)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observe(operation, "status_error", start)
		return newAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			observe(operation, "decode_error", start)
			return fmt.Errorf("failed to decode response body: %w", err)
		}
	}

	observe(operation, "ok", start)
	return nil
}

func observe(operation, outcome string, start time.Time) {
	observability.APIRequestDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}
