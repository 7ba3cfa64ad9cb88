/*
Common protocol constants - shared between implementation and tests.

Provides a single source of truth for command names, status/reason
enumerations, and default timeouts so that the wire codec, the protocol
engine, and the test suite never duplicate magic strings.
*/

package constants

import "time"

// Command names (closed enumeration, spec §6).
const (
	CmdRegister                      = "register"
	CmdHello                         = "hello"
	CmdConfigure                     = "configure"
	CmdBye                           = "bye"
	CmdCamRegister                   = "cam_register"
	CmdCamHello                      = "cam_hello"
	CmdGetCamStatus                  = "get_cam_status"
	CmdCamStatus                     = "cam_status"
	CmdGetSupportedStreams           = "get_supported_streams"
	CmdSupportedStreams              = "supported_streams"
	CmdGetStreamCaps                 = "get_stream_caps"
	CmdStreamCaps                    = "stream_caps"
	CmdGetStreamConfig               = "get_stream_config"
	CmdSetStreamConfig               = "set_stream_config"
	CmdStreamConfig                  = "stream_config"
	CmdStreamStart                   = "stream_start"
	CmdStreamStop                    = "stream_stop"
	CmdCamEvent                      = "cam_event"
	CmdGetMotionDetection            = "get_motion_detection"
	CmdSetMotionDetection            = "set_motion_detection"
	CmdMotionDetectionConf           = "motion_detection_conf"
	CmdGetCamEvents                  = "get_cam_events"
	CmdSetCamEvents                  = "set_cam_events"
	CmdCamEventsConf                 = "cam_events_conf"
	CmdGetCamVideoConf               = "get_cam_video_conf"
	CmdSetCamVideoConf               = "set_cam_video_conf"
	CmdCamVideoConf                  = "cam_video_conf"
	CmdGetCamAudioConf               = "get_cam_audio_conf"
	CmdSetCamAudioConf               = "set_cam_audio_conf"
	CmdCamAudioConf                  = "cam_audio_conf"
	CmdGetPtzConf                    = "get_ptz_conf"
	CmdCamPtzConf                    = "cam_ptz_conf"
	CmdCamPtz                        = "cam_ptz"
	CmdCamPtzPreset                  = "cam_ptz_preset"
	CmdCamPtzPresetCreated           = "cam_ptz_preset_created"
	CmdGetOsdConf                    = "get_osd_conf"
	CmdSetOsdConf                    = "set_osd_conf"
	CmdOsdConf                       = "osd_conf"
	CmdCamTriggerEvent               = "cam_trigger_event"
	CmdBackwardStart                 = "backward_start"
	CmdBackwardStop                  = "backward_stop"
	CmdAudioFilePlay                 = "audio_file_play"
	CmdCamListWifi                   = "cam_list_wifi"
	CmdCamWifiList                   = "cam_wifi_list"
	CmdCamSetCurrentWifi             = "cam_set_current_wifi"
	CmdGetDirectUploadURL            = "get_direct_upload_url"
	CmdDirectUploadURL               = "direct_upload_url"
	CmdConfirmDirectUpload           = "confirm_direct_upload"
	CmdRawMessage                    = "raw_message"
	CmdRawMessageClientConnected     = "raw_message_client_connected"
	CmdRawMessageClientDisconnected  = "raw_message_client_disconnected"
	CmdCamGetLog                     = "cam_get_log"
	CmdCamUpgradeFirmware            = "cam_upgrade_firmware"
	CmdCamUpdatePreview              = "cam_update_preview"
	CmdSetCamParameter               = "set_cam_parameter"
	CmdReportProblem                 = "report_problem"
	CmdSetStreamByEvent              = "set_stream_by_event"
	CmdGetStreamByEvent              = "get_stream_by_event"
	CmdStreamByEventConf             = "stream_by_event_conf"
	CmdGetCamMemorycardTimeline      = "get_cam_memorycard_timeline"
	CmdCamMemorycardTimeline         = "cam_memorycard_timeline"
	CmdCamMemorycardSynchronize      = "cam_memorycard_synchronize"
	CmdCamMemorycardSynchronizeStat  = "cam_memorycard_synchronize_status"
	CmdCamMemorycardSynchronizeCancl = "cam_memorycard_synchronize_cancel"
	CmdCamMemorycardRecording        = "cam_memorycard_recording"
	CmdDone                          = "done"
)

// done{status} values (spec §3, §4.3).
const (
	DoneOK            = "OK"
	DoneCMError       = "CM_ERROR"
	DoneSystemError   = "SYSTEM_ERROR"
	DoneNotSupported  = "NOT_SUPPORTED"
	DoneInvalidParam  = "INVALID_PARAM"
	DoneMissedParam   = "MISSED_PARAM"
	DoneTooMany       = "TOO_MANY"
	DoneRetry         = "RETRY"
	DoneInvalid       = "INVALID"
)

// bye{reason} values and their recovery classes (spec §4.3, §7).
const (
	ByeReasonError         = "ERROR"
	ByeReasonSystemError   = "SYSTEM_ERROR"
	ByeReasonInvalidUser   = "INVALID_USER"
	ByeReasonAuthFailure   = "AUTH_FAILURE"
	ByeReasonConnConflict  = "CONN_CONFLICT"
	ByeReasonReconnect     = "RECONNECT"
	ByeReasonShutdown      = "SHUTDOWN"
	ByeReasonDeleted       = "DELETED"
	ByeReasonConnClose     = "CONN_CLOSE"
	ByeReasonInvalid       = "INVALID"
)

// RecoveryClass categorizes a bye reason per spec §4.3/§7.
type RecoveryClass int

const (
	RecoveryRecoverable RecoveryClass = iota
	RecoveryFatalForget
	RecoveryFatalReport
)

// ClassifyByeReason maps a bye reason to its recovery class.
func ClassifyByeReason(reason string) RecoveryClass {
	switch reason {
	case ByeReasonReconnect, ByeReasonConnClose, ByeReasonShutdown:
		return RecoveryRecoverable
	case ByeReasonDeleted:
		return RecoveryFatalForget
	default:
		return RecoveryFatalReport
	}
}

// Stream recording mode bits (spec §3 stream status).
type RecordingMode uint8

const (
	RecordingModeNone         RecordingMode = 0
	RecordingModeLocal        RecordingMode = 1 << 0
	RecordingModeLocalByEvent RecordingMode = 1 << 1
)

// Upload/sync status values (spec §4.8).
const (
	SyncStatusPending          = "PENDING"
	SyncStatusDone             = "DONE"
	SyncStatusError            = "ERROR"
	SyncStatusCanceled         = "CANCELED"
	SyncStatusTooManyRequests  = "TOO_MANY_REQUESTS"
)

// Timed storage categories and media types (spec §3).
const (
	StorageCategoryRecord   = "record"
	StorageCategorySnapshot = "snapshot"
	StorageCategoryFileMeta = "file_meta"

	MediaTypeMP4 = "mp4"
	MediaTypeJPG = "jpg"
)

// Default timeouts and knobs, mirrored in config defaults.
const (
	DefaultAckTimeout            = 10 * time.Second
	DefaultReconnectBackoff      = 5 * time.Second
	DefaultMaxReconnectBackoff   = 2 * time.Minute
	DefaultPingInterval          = 30 * time.Second
	DefaultPongWait              = 60 * time.Second
	DefaultWriteTimeout          = 5 * time.Second
	DefaultHTTPTimeout           = 15 * time.Second
	DefaultMaxConcurrentUploads  = 2
	MaxStateEmulationReportDelay = 10 * time.Second
	DefaultPreRecord             = 5 * time.Second
	DefaultPostRecord            = 10 * time.Second
)

// ProtocolVersion is the register{version} value this agent speaks.
const ProtocolVersion = "1.0"

// Wire time layouts (spec §6).
const (
	TimeLayoutPacked = "20060102T150405.000"
	TimeLayoutISO    = "2006-01-02T15:04:05.000Z"
)
