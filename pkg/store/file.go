// Package store persists the channel assignment in a YAML file.
//
// Every channel is stored under two keys, "p<index>" and "k_<label>",
// the index key takes precedence when both are present.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"github.com/robotalks/relayrx/pkg/relay"
)

// DefaultPath is where the assignment is kept unless configured.
const DefaultPath = "relayrx.yaml"

// None marks a channel without a usable stored line.
const None = -1

// Candidate is the stored line per channel, None when missing.
type Candidate [relay.Channels]int

// OpError describes a failed store operation.
type OpError struct {
	Op   string
	Path string
	Err  error
}

// Error implements error.
func (e *OpError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the cause.
func (e *OpError) Unwrap() error {
	return e.Err
}

// LoadResult is the assignment to start with.
type LoadResult struct {
	Assignment relay.Assignment
	// Defaulted lists channels which took the default line.
	Defaulted []int
	// Rejected is set when the merged candidate failed validation
	// and the default assignment is used as a whole.
	Rejected error
}

// File stores the assignment in a YAML file.
type File struct {
	Path    string
	Default relay.Assignment
}

// NewFile creates a File store.
func NewFile(path string) *File {
	if path == "" {
		path = DefaultPath
	}
	return &File{Path: path, Default: relay.DefaultAssignment}
}

func indexKey(i int) string { return "p" + strconv.Itoa(i) }
func labelKey(i int) string { return "k_" + relay.Label(i) }

// ReadCandidate reads the stored lines. A missing file reads as all None.
func (f *File) ReadCandidate() (Candidate, error) {
	var c Candidate
	for i := range c {
		c[i] = None
	}
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return c, &OpError{Op: "read", Path: f.Path, Err: err}
	}
	var entries map[string]yaml.Node
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return c, &OpError{Op: "parse", Path: f.Path, Err: err}
	}
	for i := range c {
		c[i] = lookup(entries, indexKey(i))
		if c[i] == None {
			c[i] = lookup(entries, labelKey(i))
		}
	}
	return c, nil
}

func lookup(entries map[string]yaml.Node, key string) int {
	node, ok := entries[key]
	if !ok {
		return None
	}
	var line int
	if err := node.Decode(&line); err != nil || line < 0 {
		glog.Warningf("store: ignore %s: %q", key, node.Value)
		return None
	}
	return line
}

// Resolve fills channels without an allowed stored line from def and
// validates the result as a whole.
func Resolve(c Candidate, def relay.Assignment) LoadResult {
	res := LoadResult{Assignment: def}
	for i, line := range c {
		if line != None && relay.IsAllowed(line) {
			res.Assignment[i] = relay.Line(line)
		} else {
			res.Defaulted = append(res.Defaulted, i)
		}
	}
	if err := res.Assignment.Validate(); err != nil {
		res.Assignment, res.Rejected = def, err
	}
	return res
}

// Load reads and resolves the stored assignment. When anything had to
// fall back to defaults, the resolved assignment is written back.
func (f *File) Load() (LoadResult, error) {
	c, err := f.ReadCandidate()
	if err != nil {
		return LoadResult{Assignment: f.Default}, err
	}
	res := Resolve(c, f.Default)
	if len(res.Defaulted) > 0 || res.Rejected != nil {
		if err := f.Save(res.Assignment); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Save writes the whole assignment, replacing the file atomically.
func (f *File) Save(a relay.Assignment) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, line relay.Line) {
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(int(line))})
	}
	for i, line := range a {
		add(indexKey(i), line)
	}
	for i, line := range a {
		add(labelKey(i), line)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return &OpError{Op: "marshal", Path: f.Path, Err: err}
	}

	if dir := filepath.Dir(f.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &OpError{Op: "mkdir", Path: dir, Err: err}
		}
	}
	tmp := f.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &OpError{Op: "write", Path: tmp, Err: err}
	}
	if err := os.Rename(tmp, f.Path); err != nil {
		os.Remove(tmp)
		return &OpError{Op: "rename", Path: f.Path, Err: err}
	}
	glog.V(1).Infof("store: saved %s to %s", a, f.Path)
	return nil
}
