package accounts

import (
	"fmt"
	"sync/atomic"
)

// ConfigProvider supplies the registry. Snapshot is a pure read and may be
// called concurrently; Refresh reloads the source.
type ConfigProvider interface {
	Snapshot() *Registry
	Refresh() error
}

// StaticProvider serves a fixed registry.
type StaticProvider struct {
	reg *Registry
}

// NewStaticProvider validates reg and wraps it.
func NewStaticProvider(reg *Registry) (*StaticProvider, error) {
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &StaticProvider{reg: reg}, nil
}

func (p *StaticProvider) Snapshot() *Registry { return p.reg }

func (p *StaticProvider) Refresh() error { return nil }

// FileProvider reads a YAML registry and swaps it atomically on Refresh, so
// readers never observe a partially loaded registry.
type FileProvider struct {
	path string
	cur  atomic.Pointer[Registry]
}

func NewFileProvider(path string) (*FileProvider, error) {
	p := &FileProvider{path: path}
	if err := p.Refresh(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *FileProvider) Snapshot() *Registry { return p.cur.Load() }

// Refresh reloads the file. On error the previous registry stays active.
func (p *FileProvider) Refresh() error {
	reg, err := LoadRegistryFile(p.path)
	if err != nil {
		return fmt.Errorf("refresh accounts: %w", err)
	}
	p.cur.Store(reg)
	return nil
}

func (p *FileProvider) Path() string { return p.path }
