package output

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dshills/panel/internal/diffctx"
	"github.com/dshills/panel/internal/review"
)

// Report is a finished review plus what it was run against.
type Report struct {
	Tool       string              `json:"tool"`
	Version    string              `json:"version"`
	Target     string              `json:"target"`
	Review     *review.Review      `json:"review"`
	Files      []diffctx.FileStats `json:"files,omitempty"`
	ReviewURL  string              `json:"reviewUrl,omitempty"`
	Duration   time.Duration       `json:"-"`
	DurationMs int64               `json:"durationMs"`
}

// Writer writes a report in a specific format.
type Writer interface {
	Write(w io.Writer, report *Report) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text", "":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	case "sarif":
		return &SARIFWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteReport writes the report to outPath, or to stdout when outPath is
// empty.
func WriteReport(report *Report, format, outPath string) error {
	writer, err := GetWriter(format)
	if err != nil {
		return err
	}
	report.DurationMs = report.Duration.Milliseconds()

	var w io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	return writer.Write(w, report)
}
