package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/sousajf1/nushell/internal/parser"
	"github.com/sousajf1/nushell/internal/protocol"
	"github.com/sousajf1/nushell/internal/stream"
)

// RunScript parses source against the context's scope and runs it one
// pipeline at a time, printing each pipeline's output through the host.
// Errors cut short a stage are reported, not returned.
func RunScript(ctx context.Context, ec *Context, source, filename string) error {
	p, err := parser.NewParticleParser(filename)
	if err != nil {
		return protocol.Wrap(protocol.ParseError, "Parser initialization error", err)
	}
	block, err := p.ParseString(source, ec.Scope)
	if err != nil {
		return err
	}

	for _, def := range block.Definitions {
		ec.Scope.AddDefinition(def)
	}
	for _, pipeline := range block.Pipelines {
		if ec.Terminated() {
			return nil
		}
		out, err := RunPipeline(ctx, ec, pipeline, stream.Empty[protocol.Value]())
		if err != nil {
			return err
		}
		values := stream.Drain(ctx, out)
		if len(values) > 0 && ec.Host != nil {
			ec.Host.Print(values)
		}
	}
	return nil
}

// SourceScript runs the script at path in this context. Failures are
// reported.
func (c *Context) SourceScript(ctx context.Context, path protocol.Spanned[string]) {
	resolved := c.ResolvePath(path.Item)
	content, err := ReadSource(resolved)
	if err != nil {
		c.Logger.Debug("source failed", zap.String("path", resolved), zap.Error(err))
		c.ReportError(&protocol.ShellError{
			Kind:    protocol.FileReadFailure,
			Message: "Can't load file to source",
			Label:   "can't load file",
			Span:    path.Span,
			Cause:   err,
		})
		return
	}

	if err := RunScript(ctx, c, string(content), resolved); err != nil {
		c.ReportError(protocol.From(err))
	}
}

// ReadSource reads a file, decompressing .gz and .zst files.
func ReadSource(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("reading gzip stream: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("reading zstd stream: %w", err)
		}
		defer zr.Close()
		return io.ReadAll(zr)
	default:
		return io.ReadAll(f)
	}
}

// Decompress decodes gzip or zstd data, picked by format ("gz" or "zst").
func Decompress(format string, data []byte) ([]byte, error) {
	switch format {
	case "gz":
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case "zst":
		zr, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return zr.DecodeAll(data, nil)
	default:
		return nil, fmt.Errorf("unknown compression format %q", format)
	}
}

// UncompressedExt strips a compression suffix, so "data.json.gz" reports
// "json".
func UncompressedExt(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".gz" || ext == ".zst" {
		ext = strings.ToLower(filepath.Ext(strings.TrimSuffix(path, filepath.Ext(path))))
	}
	return strings.TrimPrefix(ext, ".")
}
