// Package sync implements the timeline synchronizer (C8): it walks the
// local timed storage, finds segments the remote side is missing, and
// uploads them through a provider-issued slot, one category-bounded
// worker pool per media category (spec.md §4.8).
package sync

import (
	"context"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/protocol"
)

// Segment is one normalized, non-overlapping slice of local media the
// synchronizer considers for upload.
type Segment struct {
	StreamID  string
	Category  protocol.StorageCategory
	MediaType protocol.MediaType
	Begin     time.Time
	End       time.Time
}

// Slot is an upload destination issued by the remote side for one
// Segment: a pre-signed (or provider-authenticated) URL plus whatever
// headers the transfer must carry.
type Slot struct {
	URL     string
	Headers map[string]string
}

// RemoteStore is the remote half of the synchronizer: it knows what the
// cloud side already has and can issue upload slots for what it doesn't.
// Implementations typically wrap HTTP calls against a provider-specific
// API; the synchronizer itself never assumes a wire shape beyond this
// interface.
type RemoteStore interface {
	// Overlaps reports whether the remote side already fully holds seg,
	// so the synchronizer can skip a redundant upload.
	Overlaps(ctx context.Context, seg Segment) (bool, error)
	// RequestSlot asks the remote side for an upload destination for seg.
	RequestSlot(ctx context.Context, seg Segment) (Slot, error)
	// Confirm tells the remote side the transfer for seg completed, so it
	// can finalize whatever bookkeeping it keeps server-side.
	Confirm(ctx context.Context, seg Segment) error
}

// Handle identifies one outstanding sync request (an explicit Sync call
// or an event-driven window), for later Cancel.
type Handle uint64

// StatusCallback reports a segment's progress through the pipeline.
// It may be called multiple times per segment (PENDING, then a terminal
// status) and is never called concurrently for the same segment.
type StatusCallback func(handle Handle, seg Segment, status protocol.SyncStatus, detail string)
