// Package export renders issue graphs to SVG and PNG and serves them for
// preview.
package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gliv-dev/gliv/pkg/graph"
)

// Supported zoom range.
const (
	MinZoom = 1.0
	MaxZoom = 3.0
)

// GraphOptions controls SaveGraph.
type GraphOptions struct {
	Path   string
	Format string // "svg" or "png"; inferred from Path when empty
	View   *graph.View
	Zoom   float64
}

// SaveGraph writes the view to opts.Path.
func SaveGraph(opts GraphOptions) error {
	format := opts.Format
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(opts.Path), ".")
	}

	var buf bytes.Buffer
	if err := WriteGraph(&buf, format, opts.View, opts.Zoom); err != nil {
		return err
	}

	if dir := filepath.Dir(opts.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if err := os.WriteFile(opts.Path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write graph: %w", err)
	}
	return nil
}

// WriteGraph renders v to w in format ("svg" or "png").
func WriteGraph(w io.Writer, format string, v *graph.View, zoom float64) error {
	if v == nil {
		return fmt.Errorf("no view to render")
	}
	switch strings.ToLower(format) {
	case "svg":
		return WriteSVG(w, v, zoom)
	case "png":
		return WritePNG(w, v, zoom)
	}
	return fmt.Errorf("unsupported graph format %q (want svg or png)", format)
}
