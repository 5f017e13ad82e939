// Package plugin loads commands implemented by external executables.
//
// A plugin is described by a YAML file named nu_plugin_<anything>.yaml:
//
//	name: inc
//	usage: Increment numbers
//	exec: ./nu_plugin_inc
//	args: [--json]
//	positional: [amount]
//
// The executable is started once per pipeline stage with args and the
// stage's positional arguments. Input values are written to its stdin as
// JSON, one per line, and every JSON value it prints becomes an output value.
package plugin

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sousajf1/nushell/internal/engine"
	"github.com/sousajf1/nushell/internal/protocol"
)

const descriptorPattern = "nu_plugin_*.yaml"

// Descriptor is the on-disk description of one plugin command.
type Descriptor struct {
	Name       string   `yaml:"name"`
	Usage      string   `yaml:"usage"`
	Exec       string   `yaml:"exec"`
	Args       []string `yaml:"args"`
	Positional []string `yaml:"positional"`
}

func (d Descriptor) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return errors.New("plugin name is required")
	}
	if strings.TrimSpace(d.Exec) == "" {
		return fmt.Errorf("plugin %s: exec is required", d.Name)
	}
	return nil
}

func (d Descriptor) Signature() protocol.Signature {
	sig := protocol.NewSignature(d.Name).Desc(d.Usage)
	for _, p := range d.Positional {
		sig = sig.Required(p, protocol.ShapeAny, "")
	}
	return sig
}

// Scanner finds plugin descriptors on disk.
type Scanner struct {
	logger *zap.Logger
}

func NewScanner(logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{logger: logger}
}

// Scan loads every descriptor in paths. An unreadable directory or an
// invalid descriptor fails the whole scan.
func (s *Scanner) Scan(paths []string) ([]engine.Command, error) {
	var found []engine.Command
	for _, dir := range paths {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("scanning %s: not a directory", dir)
		}

		matches, err := filepath.Glob(filepath.Join(dir, descriptorPattern))
		if err != nil {
			return nil, err
		}
		sort.Strings(matches)

		for _, path := range matches {
			desc, err := LoadDescriptor(path)
			if err != nil {
				return nil, err
			}
			s.logger.Debug("plugin found", zap.String("plugin", desc.Name), zap.String("descriptor", path))
			found = append(found, &Command{desc: desc, exec: resolveExec(dir, desc.Exec), logger: s.logger})
		}
	}
	return found, nil
}

// LoadDescriptor reads and validates one descriptor file.
func LoadDescriptor(path string) (Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("reading plugin descriptor: %w", err)
	}

	var desc Descriptor
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&desc); err != nil {
		return Descriptor{}, fmt.Errorf("parsing plugin descriptor %s: %w", path, err)
	}
	if err := desc.Validate(); err != nil {
		return Descriptor{}, fmt.Errorf("invalid plugin descriptor %s: %w", path, err)
	}
	return desc, nil
}

// resolveExec makes a relative executable path relative to the descriptor's
// directory. Bare names are looked up on PATH when the plugin runs.
func resolveExec(dir, exec string) string {
	if filepath.IsAbs(exec) || !strings.ContainsRune(exec, filepath.Separator) {
		return exec
	}
	return filepath.Join(dir, exec)
}
