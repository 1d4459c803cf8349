package testing

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/danilshahmanov/Infotecs/config"
)

// =============================================================================
// Upload Fixtures
// =============================================================================

// FileBuilder assembles semicolon-delimited upload bodies.
//
//	body := testutil.NewFileBuilder().
//	    Row(start, 10, 1.5).
//	    Raw("garbage;;").
//	    Bytes()
type FileBuilder struct {
	lines []string
}

// NewFileBuilder returns an empty builder.
func NewFileBuilder() *FileBuilder {
	return &FileBuilder{}
}

// Row appends a valid-looking measurement row.
func (b *FileBuilder) Row(start time.Time, duration int64, indicator float64) *FileBuilder {
	b.lines = append(b.lines, fmt.Sprintf("%s;%d;%s",
		start.UTC().Format(config.MeasurementTimeLayout), duration, formatIndicator(indicator)))
	return b
}

// CommaRow appends a row using a comma as the decimal separator.
func (b *FileBuilder) CommaRow(start time.Time, duration int64, indicator float64) *FileBuilder {
	b.lines = append(b.lines, fmt.Sprintf("%s;%d;%s",
		start.UTC().Format(config.MeasurementTimeLayout), duration,
		strings.Replace(formatIndicator(indicator), ".", ",", 1)))
	return b
}

// Rows appends n rows starting at start, one minute apart. Duration is i+1
// and the indicator is float64(i+1) for the i-th row.
func (b *FileBuilder) Rows(start time.Time, n int) *FileBuilder {
	for i := 0; i < n; i++ {
		b.Row(start.Add(time.Duration(i)*time.Minute), int64(i+1), float64(i+1))
	}
	return b
}

// Raw appends a line verbatim.
func (b *FileBuilder) Raw(line string) *FileBuilder {
	b.lines = append(b.lines, line)
	return b
}

// Len returns the number of lines added so far.
func (b *FileBuilder) Len() int {
	return len(b.lines)
}

// String returns the body with "\n" line endings.
func (b *FileBuilder) String() string {
	if len(b.lines) == 0 {
		return ""
	}
	return strings.Join(b.lines, "\n") + "\n"
}

// Bytes returns the body as bytes.
func (b *FileBuilder) Bytes() []byte {
	return []byte(b.String())
}

// Reader returns a seekable reader over the body.
func (b *FileBuilder) Reader() *bytes.Reader {
	return bytes.NewReader(b.Bytes())
}

func formatIndicator(v float64) string {
	return fmt.Sprintf("%g", v)
}

// BaseTime is a fixed start time for fixtures, safely inside the accepted range.
var BaseTime = time.Date(2023, 5, 10, 8, 0, 0, 0, time.UTC)
