package protocol

import (
	"encoding/json"

	"github.com/camerarecorder/cloud-agent-go/internal/constants"
)

// Invalid is the distinguished fallback every closed wire enumeration maps
// an unrecognized string to at decode time (spec.md §4.1): "an invalid wire
// value maps to a distinguished INVALID variant and is surfaced as
// InvalidPayload on use, not at decode time."
const Invalid = "INVALID"

// DoneStatus is the canonical string form of a done{status} reply.
type DoneStatus string

const (
	DoneOK           DoneStatus = constants.DoneOK
	DoneCMError      DoneStatus = constants.DoneCMError
	DoneSystemError  DoneStatus = constants.DoneSystemError
	DoneNotSupported DoneStatus = constants.DoneNotSupported
	DoneInvalidParam DoneStatus = constants.DoneInvalidParam
	DoneMissedParam  DoneStatus = constants.DoneMissedParam
	DoneTooMany      DoneStatus = constants.DoneTooMany
	DoneRetry        DoneStatus = constants.DoneRetry
	DoneInvalidValue DoneStatus = Invalid
)

var validDoneStatus = map[DoneStatus]bool{
	DoneOK: true, DoneCMError: true, DoneSystemError: true, DoneNotSupported: true,
	DoneInvalidParam: true, DoneMissedParam: true, DoneTooMany: true, DoneRetry: true,
}

// UnmarshalJSON maps unrecognized values to DoneInvalidValue instead of
// failing decode.
func (s *DoneStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := DoneStatus(raw)
	if !validDoneStatus[v] {
		v = DoneInvalidValue
	}
	*s = v
	return nil
}

// ByeReason is the canonical string form of a bye{reason}.
type ByeReason string

const (
	ByeReasonError        ByeReason = constants.ByeReasonError
	ByeReasonSystemError  ByeReason = constants.ByeReasonSystemError
	ByeReasonInvalidUser  ByeReason = constants.ByeReasonInvalidUser
	ByeReasonAuthFailure  ByeReason = constants.ByeReasonAuthFailure
	ByeReasonConnConflict ByeReason = constants.ByeReasonConnConflict
	ByeReasonReconnect    ByeReason = constants.ByeReasonReconnect
	ByeReasonShutdown     ByeReason = constants.ByeReasonShutdown
	ByeReasonDeleted      ByeReason = constants.ByeReasonDeleted
	ByeReasonConnClose    ByeReason = constants.ByeReasonConnClose
	ByeReasonInvalidValue ByeReason = Invalid
)

var validByeReason = map[ByeReason]bool{
	ByeReasonError: true, ByeReasonSystemError: true, ByeReasonInvalidUser: true,
	ByeReasonAuthFailure: true, ByeReasonConnConflict: true, ByeReasonReconnect: true,
	ByeReasonShutdown: true, ByeReasonDeleted: true, ByeReasonConnClose: true,
}

func (r *ByeReason) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := ByeReason(raw)
	if !validByeReason[v] {
		v = ByeReasonInvalidValue
	}
	*r = v
	return nil
}

// RecoveryClass classifies a ByeReason per spec.md §4.3/§7.
func (r ByeReason) RecoveryClass() constants.RecoveryClass {
	return constants.ClassifyByeReason(string(r))
}

// SyncStatus is the canonical string form reported by the timeline
// synchronizer's status callback (spec.md §4.8).
type SyncStatus string

const (
	SyncStatusPending         SyncStatus = constants.SyncStatusPending
	SyncStatusDone            SyncStatus = constants.SyncStatusDone
	SyncStatusError           SyncStatus = constants.SyncStatusError
	SyncStatusCanceled        SyncStatus = constants.SyncStatusCanceled
	SyncStatusTooManyRequests SyncStatus = constants.SyncStatusTooManyRequests
	SyncStatusInvalidValue    SyncStatus = Invalid
)

var validSyncStatus = map[SyncStatus]bool{
	SyncStatusPending: true, SyncStatusDone: true, SyncStatusError: true,
	SyncStatusCanceled: true, SyncStatusTooManyRequests: true,
}

// UnmarshalJSON decodes SyncStatus wherever a registered payload carries it
// (cam_memorycard_synchronize_status), mapping an unrecognised value to
// the INVALID fallback like the other closed enumerations.
func (s *SyncStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := SyncStatus(raw)
	if !validSyncStatus[v] {
		v = SyncStatusInvalidValue
	}
	*s = v
	return nil
}

// MediaType is the canonical media type of a timed storage item.
type MediaType string

const (
	MediaTypeMP4     MediaType = constants.MediaTypeMP4
	MediaTypeJPG     MediaType = constants.MediaTypeJPG
	MediaTypeInvalid MediaType = Invalid
)

var validMediaType = map[MediaType]bool{MediaTypeMP4: true, MediaTypeJPG: true}

func (m *MediaType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := MediaType(raw)
	if !validMediaType[v] {
		v = MediaTypeInvalid
	}
	*m = v
	return nil
}

// StorageCategory is the canonical category of a timed storage item /
// upload slot.
type StorageCategory string

const (
	StorageCategoryRecord      StorageCategory = constants.StorageCategoryRecord
	StorageCategorySnapshot    StorageCategory = constants.StorageCategorySnapshot
	StorageCategoryFileMeta    StorageCategory = constants.StorageCategoryFileMeta
	StorageCategoryInvalidValue StorageCategory = Invalid
)

var validStorageCategory = map[StorageCategory]bool{
	StorageCategoryRecord: true, StorageCategorySnapshot: true, StorageCategoryFileMeta: true,
}

func (c *StorageCategory) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := StorageCategory(raw)
	if !validStorageCategory[v] {
		v = StorageCategoryInvalidValue
	}
	*c = v
	return nil
}

// StreamReason is the canonical reason reported alongside stream_stop and
// stream error notifications.
type StreamReason string

const (
	StreamReasonNone         StreamReason = "NONE"
	StreamReasonSourceError  StreamReason = "SOURCE_ERROR"
	StreamReasonSinkError    StreamReason = "SINK_ERROR"
	StreamReasonRequested    StreamReason = "REQUESTED"
	StreamReasonInvalidValue StreamReason = Invalid
)

var validStreamReason = map[StreamReason]bool{
	StreamReasonNone: true, StreamReasonSourceError: true, StreamReasonSinkError: true, StreamReasonRequested: true,
}

func (r *StreamReason) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v := StreamReason(raw)
	if !validStreamReason[v] {
		v = StreamReasonInvalidValue
	}
	*r = v
	return nil
}

// EventType is an open string enumeration: well-known built-in event names
// plus any custom_name a registered event source advertises (spec.md §3
// "Event config"). Unlike the closed enumerations above it has no INVALID
// fallback — an unrecognized value is simply treated as a custom event name.
type EventType string

const (
	EventTypeMotion      EventType = "motion"
	EventTypeAudio       EventType = "audio"
	EventTypeTamper      EventType = "tamper"
	EventTypeLineCross   EventType = "line_cross"
	EventTypeObjectEnter EventType = "object_enter"
	EventTypeObjectLeave EventType = "object_leave"
	EventTypeCustom      EventType = "custom"
)
