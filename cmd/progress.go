package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"github.com/cwbudde/redraw/internal/fit"
	"github.com/cwbudde/redraw/internal/imageio"
)

// progressPrinter rewrites a single status line on terminals and prints one
// line per event otherwise
type progressPrinter struct {
	w        io.Writer
	tty      bool
	adaptive bool
}

func newProgressPrinter(w io.Writer, adaptive bool) *progressPrinter {
	p := &progressPrinter{w: w, adaptive: adaptive}
	if f, ok := w.(*os.File); ok {
		p.tty = term.IsTerminal(int(f.Fd()))
	}
	return p
}

func (p *progressPrinter) Progress(pr fit.Progress) {
	line := fmt.Sprintf("%3d%%  %d shapes", pr.Percent, pr.Committed)
	if p.adaptive {
		line += fmt.Sprintf("  max size %d", pr.MaxSize)
	}

	if !p.tty {
		fmt.Fprintln(p.w, line)
		return
	}
	fmt.Fprint(p.w, "\r"+line+"   ")
	if pr.Done {
		fmt.Fprintln(p.w)
	}
}

// frameWriter dumps animation frames as <dir>/frame-00001.<ext>, ...
// The first write error is kept and stops further writes.
type frameWriter struct {
	dir     string
	ext     string
	written int
	err     error
}

func newFrameWriter(dir, outPath string) (*frameWriter, error) {
	ext := strings.TrimPrefix(filepath.Ext(outPath), ".")
	if _, err := imageio.FormatFromExt(ext); err != nil {
		return nil, fmt.Errorf("unsupported frame format: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create frames directory: %w", err)
	}
	return &frameWriter{dir: dir, ext: ext}, nil
}

func (f *frameWriter) path(index int64) string {
	return filepath.Join(f.dir, fmt.Sprintf("frame-%05d.%s", index, f.ext))
}

func (f *frameWriter) Frame(index int64, canvas *fit.Raster) {
	if f.err != nil {
		return
	}
	if err := imageio.Save(f.path(index), canvas); err != nil {
		f.err = fmt.Errorf("failed to write frame %d: %w", index, err)
		return
	}
	f.written++
}
