package metadata

import (
	"fmt"
	"path"
	"strings"

	"golang.org/x/exp/maps"
)

type LoadState int

const (
	LoadStateUnloaded LoadState = iota
	LoadStateLoading
	LoadStateLoaded
	// LoadStateFailed is reached from Loading when the decoder reports an error.
	LoadStateFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadStateUnloaded:
		return "Unloaded"
	case LoadStateLoading:
		return "Loading"
	case LoadStateLoaded:
		return "Loaded"
	case LoadStateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("LoadState(%d)", int(s))
	}
}

// CanTransition reports whether a handle may move from s to next.
// Unloaded is reachable from anywhere: it is the eviction/reset target.
func (s LoadState) CanTransition(next LoadState) bool {
	switch next {
	case LoadStateUnloaded:
		return true
	case LoadStateLoading:
		return s == LoadStateUnloaded || s == LoadStateLoaded || s == LoadStateFailed
	case LoadStateLoaded, LoadStateFailed:
		return s == LoadStateLoading
	default:
		return false
	}
}

const CustomMetadataTypeKey = "$Type"

// CustomMetadata is decoder-owned metadata persisted next to the registry entry.
// It always carries its own "$Type" tag.
type CustomMetadata map[string]any

func NewCustomMetadata(typeName string) CustomMetadata {
	return CustomMetadata{CustomMetadataTypeKey: typeName}
}

func (c CustomMetadata) Type() string {
	s, _ := c[CustomMetadataTypeKey].(string)
	return s
}

func (c CustomMetadata) Bool(key string) bool {
	b, _ := c[key].(bool)
	return b
}

func (c CustomMetadata) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// Clone copies nested maps and slices too, so the copy can be edited freely.
func (c CustomMetadata) Clone() CustomMetadata {
	if c == nil {
		return nil
	}
	out := maps.Clone(c)
	for k, v := range out {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = cloneValue(e)
		}
		return out
	case CustomMetadata:
		return v.Clone()
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return append([]string(nil), v...)
	case []float64:
		return append([]float64(nil), v...)
	default:
		return v
	}
}

type AssetMetadata struct {
	Handle AssetHandle
	Type   AssetType
	// Path is relative to the project asset root and slash-separated.
	Path          string
	Name          string
	IsVirtual     bool
	DontSerialize bool
	LoadState     LoadState
	// LoadError holds the decoder failure while LoadState is Failed.
	LoadError error
	Custom    CustomMetadata
}

// IsSerializable reports whether the entry belongs in the registry file.
func (m AssetMetadata) IsSerializable() bool {
	return !m.IsVirtual && !m.DontSerialize
}

// Clone returns a copy that shares nothing mutable with m.
func (m AssetMetadata) Clone() AssetMetadata {
	m.Custom = m.Custom.Clone()
	return m
}

// NameFromPath derives the display name of a file: its base name without extension.
func NameFromPath(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

// RenamedPath keeps the directory and extension of p and swaps the name.
func RenamedPath(p, newName string) string {
	dir := path.Dir(p)
	name := newName + path.Ext(p)
	if dir == "." {
		return name
	}
	return path.Join(dir, name)
}

// MovedPath keeps the file name of p and swaps the directory.
func MovedPath(p, newDir string) string {
	return path.Join(newDir, path.Base(p))
}
