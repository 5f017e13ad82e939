package shell

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sousajf1/nushell/internal/protocol"
)

type FilesystemShell struct {
	path string
}

// NewFilesystemShell opens a filesystem shell at location, which must be an
// existing directory.
func NewFilesystemShell(location string) (*FilesystemShell, error) {
	abs, err := filepath.Abs(location)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", location)
	}
	return &FilesystemShell{path: abs}, nil
}

func (s *FilesystemShell) Name() string { return "filesystem" }

func (s *FilesystemShell) Path() string { return s.path }

func (s *FilesystemShell) SetPath(path string) { s.path = path }

func (s *FilesystemShell) Cd(target string) (string, error) {
	if target == "" || target == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		target = home
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(s.path, target)
	}
	target = filepath.Clean(target)

	info, err := os.Stat(target)
	if err != nil {
		return "", fmt.Errorf("can not change to directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("can not change to directory: %s is not a directory", target)
	}
	return target, nil
}

func (s *FilesystemShell) Ls(ctx context.Context, tag protocol.Tag) ([]protocol.Value, error) {
	entries, err := os.ReadDir(s.path)
	if err != nil {
		return nil, err
	}

	out := make([]protocol.Value, 0, len(entries))
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		kind := "file"
		switch {
		case e.IsDir():
			kind = "dir"
		case e.Type()&os.ModeSymlink != 0:
			kind = "symlink"
		}
		var size int64
		if info, err := e.Info(); err == nil && !e.IsDir() {
			size = info.Size()
		}
		out = append(out, protocol.NewRowBuilder().
			Insert("name", protocol.StringValue(e.Name(), tag)).
			Insert("type", protocol.StringValue(kind, tag)).
			Insert("size", protocol.IntValue(size, tag)).
			Build(tag))
	}
	return out, nil
}
