package render

import (
	"fmt"
	"math"

	"github.com/mminspector/inspector/internal/models"
)

// MediaRows lists the metadata shown next to the media asset.
func MediaRows(m *models.MediaRecord) []Row {
	if m == nil {
		return nil
	}

	rows := []Row{{Label: "Type", Value: string(m.MediaType)}}
	if m.Width != nil && m.Height != nil && *m.Width != 0 && *m.Height != 0 {
		rows = append(rows, Row{Label: "Dimensions", Value: fmt.Sprintf("%d × %d", *m.Width, *m.Height)})
	}
	if m.Duration != nil && *m.Duration != 0 {
		rows = append(rows, Row{Label: "Duration", Value: fmt.Sprintf("%ds", int64(math.Round(*m.Duration)))})
	}
	rows = append(rows, Row{Label: "Size", Value: FormatSize(m.SizeBytes)})
	return rows
}

func FormatSize(sizeBytes int64) string {
	return fmt.Sprintf("%.2f MB", float64(sizeBytes)/1024/1024)
}

// AssetElement names the HTML element used to present the asset, or "" when
// the media type has no inline player.
func AssetElement(mediaType models.MediaType) string {
	switch mediaType {
	case models.MediaTypeImage:
		return "img"
	case models.MediaTypeAudio:
		return "audio"
	case models.MediaTypeVideo:
		return "video"
	default:
		return ""
	}
}
