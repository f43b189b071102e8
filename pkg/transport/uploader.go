package transport

import (
	"context"
	"os"

	"github.com/narwhalmedia/docconvert/pkg/errors"
)

// RefKind tells the orchestrator what an upload produced
type RefKind int

const (
	// RefRemoteURL is a publicly fetchable URL that still needs an import-by-url task
	RefRemoteURL RefKind = iota + 1
	// RefVendorTask is a task id the conversion service already knows
	RefVendorTask
)

func (k RefKind) String() string {
	switch k {
	case RefRemoteURL:
		return "remote_url"
	case RefVendorTask:
		return "vendor_task"
	default:
		return "unknown"
	}
}

// Ref is the result of an upload
type Ref struct {
	Kind  RefKind
	Value string
}

// RemoteURL creates a ref for a file reachable at u
func RemoteURL(u string) Ref { return Ref{Kind: RefRemoteURL, Value: u} }

// VendorTaskID creates a ref for a file already imported as task id
func VendorTaskID(id string) Ref { return Ref{Kind: RefVendorTask, Value: id} }

// Uploader makes a local file available to the conversion service
type Uploader interface {
	// Upload reads the whole file at path and transmits it
	Upload(ctx context.Context, path string) (Ref, error)

	// Name identifies the strategy
	Name() string
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.File(path, err)
	}
	return data, nil
}
