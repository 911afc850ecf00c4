// Package settings reads and writes the channel list document (setting.json).
//
// The document is read from disk on every call and never cached, so edits made
// by hand are picked up by the next request.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Kind names one of the two channel lists.
type Kind string

const (
	Proxy  Kind = "proxy"
	Config Kind = "config"
)

var ErrUnknownKind = errors.New("settings: kind must be proxy or config")

// ParseKind accepts "proxy"/"proxies" and "config"/"configs".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "proxy", "proxies":
		return Proxy, nil
	case "config", "configs":
		return Config, nil
	}
	return "", ErrUnknownKind
}

// Document mirrors setting.json. Missing keys decode as empty lists.
// Field order keeps the keys sorted on disk.
type Document struct {
	ConfigChannels []string `json:"config_channels"`
	ProxyChannels  []string `json:"proxy_channels"`
}

func (d *Document) list(k Kind) *[]string {
	if k == Config {
		return &d.ConfigChannels
	}
	return &d.ProxyChannels
}

// Store is the file-backed settings document.
type Store struct {
	path string
}

func NewStore(path string) *Store { return &Store{path: path} }

func (s *Store) Path() string { return s.path }

// Read loads the document. A missing file yields an error wrapping
// os.ErrNotExist; listing treats it as an empty document, Remove reports it.
func (s *Store) Read() (Document, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return Document{}, fmt.Errorf("read settings: %w", err)
	}
	var d Document
	if err := json.Unmarshal(b, &d); err != nil {
		return Document{}, fmt.Errorf("decode settings: %w", err)
	}
	if d.ConfigChannels == nil {
		d.ConfigChannels = []string{}
	}
	if d.ProxyChannels == nil {
		d.ProxyChannels = []string{}
	}
	return d, nil
}

// Write replaces the document atomically (temp file + rename).
// Concurrent writers are not coordinated; the last rename wins.
func (s *Store) Write(d Document) error {
	if d.ConfigChannels == nil {
		d.ConfigChannels = []string{}
	}
	if d.ProxyChannels == nil {
		d.ProxyChannels = []string{}
	}
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	b = append(b, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Ensure creates an empty document when the file does not exist.
func (s *Store) Ensure() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat settings: %w", err)
	}
	return s.Write(Document{})
}

// Add appends channel to the k list. It reports false if it was already there.
// A missing file starts from an empty document.
func (s *Store) Add(k Kind, channel string) (bool, error) {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		return false, errors.New("settings: empty channel")
	}
	d, err := s.readOrEmpty()
	if err != nil {
		return false, err
	}
	l := d.list(k)
	if slices.Contains(*l, channel) {
		return false, nil
	}
	*l = append(*l, channel)
	return true, s.Write(d)
}

// Remove deletes channel from the k list. It reports false if it was absent.
func (s *Store) Remove(k Kind, channel string) (bool, error) {
	channel = strings.TrimSpace(channel)
	d, err := s.Read()
	if err != nil {
		return false, err
	}
	l := d.list(k)
	i := slices.Index(*l, channel)
	if i < 0 {
		return false, nil
	}
	*l = slices.Delete(*l, i, i+1)
	return true, s.Write(d)
}

func (s *Store) readOrEmpty() (Document, error) {
	d, err := s.Read()
	if errors.Is(err, os.ErrNotExist) {
		return Document{ConfigChannels: []string{}, ProxyChannels: []string{}}, nil
	}
	return d, err
}
