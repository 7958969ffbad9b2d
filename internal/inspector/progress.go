package inspector

import (
	"errors"
	"io"
	"math"
)

// ProgressFunc receives the upload percentage, 0 to 100.
type ProgressFunc func(percent int)

// Percent converts transferred byte counts to a whole percentage.
func Percent(sent, total int64) int {
	if total <= 0 {
		return 0
	}
	pct := int(math.Round(float64(sent) * 100 / float64(total)))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// progressReader reports each change in percentage as bytes are read
type progressReader struct {
	r          io.Reader
	total      int64
	sent       int64
	last       int
	onProgress ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.sent += int64(n)

	pct := Percent(p.sent, p.total)
	if errors.Is(err, io.EOF) {
		pct = 100
	}
	if p.onProgress != nil && pct != p.last {
		p.last = pct
		p.onProgress(pct)
	}

	return n, err
}
