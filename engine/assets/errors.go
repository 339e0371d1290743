package assets

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/anima-assets/engine/assets/metadata"
)

var (
	ErrUnknownHandle     = errors.New("unknown asset handle")
	ErrDuplicatePath     = errors.New("asset path already in use")
	ErrAssetNotLoaded    = errors.New("asset not loaded")
	ErrRegistryCorrupt   = errors.New("asset registry corrupt")
	ErrTypeMismatch      = errors.New("asset type mismatch")
	ErrInvalidTransition = errors.New("invalid load state transition")
	ErrInvalidAsset      = errors.New("invalid asset")
	ErrPoolClosed        = errors.New("worker pool closed")
)

// FilesystemError reports a failed read, write, rename or move.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// DecodeError reports a decoder failure, including a recovered decoder panic.
type DecodeError struct {
	Handle metadata.AssetHandle
	Type   metadata.AssetType
	Path   string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s asset %s (%s): %v", e.Type, e.Path, e.Handle, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
