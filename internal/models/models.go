package models

// MediaType is the kind of asset the backend detected on upload
type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeAudio MediaType = "audio"
	MediaTypeVideo MediaType = "video"
	MediaTypeText  MediaType = "text"
)

// Status is the processing status reported for a media record
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
)

// Terminal reports whether no further processing will happen.
// Only "completed" is terminal; the backend reports nothing else.
func (s Status) Terminal() bool {
	return s == StatusCompleted
}

// MediaRecord represents an uploaded asset and its processing status
type MediaRecord struct {
	ID         string    `json:"id" yaml:"id"`
	Filename   string    `json:"filename" yaml:"filename"`
	MediaType  MediaType `json:"media_type" yaml:"media_type"`
	Status     Status    `json:"status,omitempty" yaml:"status,omitempty"`
	SizeBytes  int64     `json:"size_bytes" yaml:"size_bytes"`
	Width      *int      `json:"width,omitempty" yaml:"width,omitempty"`
	Height     *int      `json:"height,omitempty" yaml:"height,omitempty"`
	Duration   *float64  `json:"duration,omitempty" yaml:"duration,omitempty"`
	UploadedAt string    `json:"uploaded_at,omitempty" yaml:"uploaded_at,omitempty"`
	Analysis   *Analysis `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	Summary    string    `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Analysis is the sparse set of AI-derived insights about a media record.
// A zero value, nil pointer or empty slice means the field is absent.
type Analysis struct {
	Caption         string           `json:"caption,omitempty" yaml:"caption,omitempty"`
	Colors          []string         `json:"colors,omitempty" yaml:"colors,omitempty"`
	Transcript      string           `json:"transcript,omitempty" yaml:"transcript,omitempty"`
	Sentiment       *Sentiment       `json:"sentiment,omitempty" yaml:"sentiment,omitempty"`
	Language        string           `json:"language,omitempty" yaml:"language,omitempty"`
	VisualSummary   string           `json:"visual_summary,omitempty" yaml:"visual_summary,omitempty"`
	Frames          *Frames          `json:"frames,omitempty" yaml:"frames,omitempty"`
	WordCount       int              `json:"word_count,omitempty" yaml:"word_count,omitempty"`
	ObjectDetection *ObjectDetection `json:"object_detection,omitempty" yaml:"object_detection,omitempty"`
	Error           string           `json:"error,omitempty" yaml:"error,omitempty"`
}

// Failed reports whether the backend stored a failed analysis. A failed
// analysis carries only Error and the record is still reported completed.
func (a *Analysis) Failed() bool {
	return a != nil && a.Error != ""
}

type Sentiment struct {
	Label string  `json:"label" yaml:"label"`
	Score float64 `json:"score" yaml:"score"`
}

type Frames struct {
	TotalExtracted int           `json:"total_extracted" yaml:"total_extracted"`
	Analyzed       int           `json:"analyzed" yaml:"analyzed"`
	Samples        []FrameSample `json:"samples,omitempty" yaml:"samples,omitempty"`
}

type FrameSample struct {
	Timestamp float64 `json:"timestamp" yaml:"timestamp"`
	Caption   string  `json:"caption" yaml:"caption"`
}

// ObjectDetection is the detector output embedded in image analyses
type ObjectDetection struct {
	Detections      []Detection    `json:"detections,omitempty" yaml:"detections,omitempty"`
	TotalObjects    int            `json:"total_objects" yaml:"total_objects"`
	ObjectCounts    map[string]int `json:"object_counts,omitempty" yaml:"object_counts,omitempty"`
	ImageDimensions *Dimensions    `json:"image_dimensions,omitempty" yaml:"image_dimensions,omitempty"`
	Error           string         `json:"error,omitempty" yaml:"error,omitempty"`
}

type Dimensions struct {
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Detection is one bounding box in image pixel space
type Detection struct {
	BBox       BBox    `json:"bbox" yaml:"bbox"`
	Label      string  `json:"label" yaml:"label"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
}

type BBox struct {
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// AnalysisRecord is one stored analysis stage for a media record
type AnalysisRecord struct {
	ID        RecordID  `json:"id" yaml:"id"`
	Stage     string    `json:"stage" yaml:"stage"`
	Payload   *Analysis `json:"payload,omitempty" yaml:"payload,omitempty"`
	CreatedAt string    `json:"created_at" yaml:"created_at"`
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one entry of the per-media chat transcript
type ChatMessage struct {
	ID        RecordID  `json:"id,omitempty" yaml:"id,omitempty"`
	Role      Role      `json:"role" yaml:"role"`
	Message   string    `json:"message" yaml:"message"`
	CreatedAt Timestamp `json:"created_at" yaml:"created_at"`
	Sources   []string  `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// UploadResult is returned by the backend once an upload is accepted
type UploadResult struct {
	MediaID   string    `json:"media_id" yaml:"media_id"`
	Filename  string    `json:"filename,omitempty" yaml:"filename,omitempty"`
	MediaType MediaType `json:"media_type,omitempty" yaml:"media_type,omitempty"`
	Status    Status    `json:"status,omitempty" yaml:"status,omitempty"`
}

type AskRequest struct {
	MediaID  string `json:"media_id"`
	Question string `json:"question"`
}

type AskResponse struct {
	Answer  string   `json:"answer" yaml:"answer"`
	Sources []string `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// StatusEvent is pushed by the backend over the per-media websocket
type StatusEvent struct {
	Type     string    `json:"type"` // "progress", "analysis_complete", "error", "ack"
	MediaID  string    `json:"media_id,omitempty"`
	Stage    string    `json:"stage,omitempty"`
	Progress int       `json:"progress,omitempty"`
	Message  string    `json:"message,omitempty"`
	Error    string    `json:"error,omitempty"`
	Analysis *Analysis `json:"analysis,omitempty"`
}

const (
	EventProgress         = "progress"
	EventAnalysisComplete = "analysis_complete"
	EventError            = "error"
)

type Health struct {
	Status   string `json:"status" yaml:"status"`
	Database string `json:"database,omitempty" yaml:"database,omitempty"`
	Storage  bool   `json:"storage" yaml:"storage"`
}
