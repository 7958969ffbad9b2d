package render

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/mminspector/inspector/internal/models"
)

const (
	tagHeight  = 25
	strokeSize = 3
)

// Box is a detection laid out in image pixel space
type Box struct {
	X, Y, Width, Height float64
	Color               string
	Tag                 string
	TagY                float64
	TagWidth            float64
	TextX, TextY        float64
}

// Overlay holds the boxes to draw over an image of the given natural size
type Overlay struct {
	Width  int
	Height int
	Boxes  []Box
}

// Hue maps confidence to a hue between red (0) and green (120).
func Hue(confidence float64) float64 {
	if math.IsNaN(confidence) {
		confidence = 0
	}
	confidence = math.Max(0, math.Min(1, confidence))
	return math.Round(confidence*120*1e6) / 1e6
}

func Color(confidence float64) string {
	return fmt.Sprintf("hsl(%s, 70%%, 50%%)", strconv.FormatFloat(Hue(confidence), 'f', -1, 64))
}

// Tag is the label drawn above a box, e.g. "dog 93%".
func Tag(d models.Detection) string {
	return fmt.Sprintf("%s %.0f%%", d.Label, d.Confidence*100)
}

// BuildOverlay lays out detections over an image. Dimensions come from the
// detector output, falling back to the media record. ok is false when there
// is nothing to draw.
func BuildOverlay(od *models.ObjectDetection, media *models.MediaRecord, visible bool) (Overlay, bool) {
	if !visible || od == nil || len(od.Detections) == 0 {
		return Overlay{}, false
	}

	var width, height int
	if od.ImageDimensions != nil {
		width, height = od.ImageDimensions.Width, od.ImageDimensions.Height
	} else if media != nil && media.Width != nil && media.Height != nil {
		width, height = *media.Width, *media.Height
	}
	if width <= 0 || height <= 0 {
		return Overlay{}, false
	}

	overlay := Overlay{Width: width, Height: height, Boxes: make([]Box, 0, len(od.Detections))}
	for _, d := range od.Detections {
		b := d.BBox
		overlay.Boxes = append(overlay.Boxes, Box{
			X:        b.X,
			Y:        b.Y,
			Width:    b.Width,
			Height:   b.Height,
			Color:    Color(d.Confidence),
			Tag:      Tag(d),
			TagY:     b.Y - tagHeight,
			TagWidth: float64(utf8.RuneCountInString(d.Label)*8 + 20),
			TextX:    b.X + 5,
			TextY:    b.Y - 8,
		})
	}
	return overlay, true
}

var svgTemplate = template.Must(template.New("overlay").Funcs(template.FuncMap{
	"num": func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) },
}).Parse(`<svg xmlns="http://www.w3.org/2000/svg" class="detection-svg" viewBox="0 0 {{.Width}} {{.Height}}" preserveAspectRatio="xMidYMid meet">
{{- range .Boxes}}
<g class="detection-box">
<rect class="bbox-rect" x="{{num .X}}" y="{{num .Y}}" width="{{num .Width}}" height="{{num .Height}}" fill="none" stroke="{{.Color}}" stroke-width="` + strconv.Itoa(strokeSize) + `"/>
<rect class="label-bg" x="{{num .X}}" y="{{num .TagY}}" width="{{num .TagWidth}}" height="` + strconv.Itoa(tagHeight) + `" fill="{{.Color}}"/>
<text class="label-text" x="{{num .TextX}}" y="{{num .TextY}}" fill="white" font-size="14" font-weight="bold">{{.Tag}}</text>
</g>
{{- end}}
</svg>
`))

// SVG renders the overlay. An overlay without boxes renders as nothing.
func SVG(o Overlay) (template.HTML, error) {
	if len(o.Boxes) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	if err := svgTemplate.Execute(&buf, o); err != nil {
		return "", fmt.Errorf("failed to render overlay: %w", err)
	}
	return template.HTML(buf.String()), nil
}
