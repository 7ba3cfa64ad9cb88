package protocol

import "github.com/camerarecorder/cloud-agent-go/internal/constants"

// Re-export the closed command enumeration from internal/constants so
// callers only need to import this package.
const (
	CmdRegister                      = constants.CmdRegister
	CmdHello                         = constants.CmdHello
	CmdConfigure                     = constants.CmdConfigure
	CmdBye                           = constants.CmdBye
	CmdCamRegister                   = constants.CmdCamRegister
	CmdCamHello                      = constants.CmdCamHello
	CmdGetCamStatus                  = constants.CmdGetCamStatus
	CmdCamStatus                     = constants.CmdCamStatus
	CmdGetSupportedStreams           = constants.CmdGetSupportedStreams
	CmdSupportedStreams              = constants.CmdSupportedStreams
	CmdGetStreamCaps                 = constants.CmdGetStreamCaps
	CmdStreamCaps                    = constants.CmdStreamCaps
	CmdGetStreamConfig               = constants.CmdGetStreamConfig
	CmdSetStreamConfig               = constants.CmdSetStreamConfig
	CmdStreamConfig                  = constants.CmdStreamConfig
	CmdStreamStart                   = constants.CmdStreamStart
	CmdStreamStop                    = constants.CmdStreamStop
	CmdCamEvent                      = constants.CmdCamEvent
	CmdGetMotionDetection            = constants.CmdGetMotionDetection
	CmdSetMotionDetection            = constants.CmdSetMotionDetection
	CmdMotionDetectionConf           = constants.CmdMotionDetectionConf
	CmdGetCamEvents                  = constants.CmdGetCamEvents
	CmdSetCamEvents                  = constants.CmdSetCamEvents
	CmdCamEventsConf                 = constants.CmdCamEventsConf
	CmdGetCamVideoConf               = constants.CmdGetCamVideoConf
	CmdSetCamVideoConf               = constants.CmdSetCamVideoConf
	CmdCamVideoConf                  = constants.CmdCamVideoConf
	CmdGetCamAudioConf               = constants.CmdGetCamAudioConf
	CmdSetCamAudioConf               = constants.CmdSetCamAudioConf
	CmdCamAudioConf                  = constants.CmdCamAudioConf
	CmdGetPtzConf                    = constants.CmdGetPtzConf
	CmdCamPtzConf                    = constants.CmdCamPtzConf
	CmdCamPtz                        = constants.CmdCamPtz
	CmdCamPtzPreset                  = constants.CmdCamPtzPreset
	CmdCamPtzPresetCreated           = constants.CmdCamPtzPresetCreated
	CmdGetOsdConf                    = constants.CmdGetOsdConf
	CmdSetOsdConf                    = constants.CmdSetOsdConf
	CmdOsdConf                       = constants.CmdOsdConf
	CmdCamTriggerEvent               = constants.CmdCamTriggerEvent
	CmdBackwardStart                 = constants.CmdBackwardStart
	CmdBackwardStop                  = constants.CmdBackwardStop
	CmdAudioFilePlay                 = constants.CmdAudioFilePlay
	CmdCamListWifi                   = constants.CmdCamListWifi
	CmdCamWifiList                   = constants.CmdCamWifiList
	CmdCamSetCurrentWifi             = constants.CmdCamSetCurrentWifi
	CmdGetDirectUploadURL            = constants.CmdGetDirectUploadURL
	CmdDirectUploadURL               = constants.CmdDirectUploadURL
	CmdConfirmDirectUpload           = constants.CmdConfirmDirectUpload
	CmdRawMessage                    = constants.CmdRawMessage
	CmdRawMessageClientConnected     = constants.CmdRawMessageClientConnected
	CmdRawMessageClientDisconnected  = constants.CmdRawMessageClientDisconnected
	CmdCamGetLog                     = constants.CmdCamGetLog
	CmdCamUpgradeFirmware            = constants.CmdCamUpgradeFirmware
	CmdCamUpdatePreview              = constants.CmdCamUpdatePreview
	CmdSetCamParameter               = constants.CmdSetCamParameter
	CmdReportProblem                 = constants.CmdReportProblem
	CmdSetStreamByEvent              = constants.CmdSetStreamByEvent
	CmdGetStreamByEvent              = constants.CmdGetStreamByEvent
	CmdStreamByEventConf             = constants.CmdStreamByEventConf
	CmdGetCamMemorycardTimeline      = constants.CmdGetCamMemorycardTimeline
	CmdCamMemorycardTimeline         = constants.CmdCamMemorycardTimeline
	CmdCamMemorycardSynchronize      = constants.CmdCamMemorycardSynchronize
	CmdCamMemorycardSynchronizeStat  = constants.CmdCamMemorycardSynchronizeStat
	CmdCamMemorycardSynchronizeCancl = constants.CmdCamMemorycardSynchronizeCancl
	CmdCamMemorycardRecording        = constants.CmdCamMemorycardRecording
	CmdDone                          = constants.CmdDone
)

// registry is the closed mapping from wire command name to payload shape
// (spec.md §4.1 "a central registry maps cmd strings to a closed
// enumeration of payload shapes"). Each factory returns a fresh pointer so
// concurrent decodes never share mutable state.
var registry = map[string]func() interface{}{
	CmdRegister:                      func() interface{} { return &RegisterPayload{} },
	CmdHello:                         func() interface{} { return &HelloPayload{} },
	CmdConfigure:                     func() interface{} { return &ConfigurePayload{} },
	CmdBye:                           func() interface{} { return &ByePayload{} },
	CmdCamRegister:                   func() interface{} { return &CamRegisterPayload{} },
	CmdCamHello:                      func() interface{} { return &CamHelloPayload{} },
	CmdGetCamStatus:                  func() interface{} { return &GetCamStatusPayload{} },
	CmdCamStatus:                     func() interface{} { return &CamStatusPayload{} },
	CmdGetSupportedStreams:           func() interface{} { return &GetSupportedStreamsPayload{} },
	CmdSupportedStreams:              func() interface{} { return &SupportedStreamsPayload{} },
	CmdGetStreamCaps:                 func() interface{} { return &GetStreamCapsPayload{} },
	CmdStreamCaps:                    func() interface{} { return &StreamCapsPayload{} },
	CmdGetStreamConfig:               func() interface{} { return &GetStreamConfigPayload{} },
	CmdSetStreamConfig:               func() interface{} { return &SetStreamConfigPayload{} },
	CmdStreamConfig:                  func() interface{} { return &StreamConfigPayload{} },
	CmdStreamStart:                   func() interface{} { return &StreamStartPayload{} },
	CmdStreamStop:                    func() interface{} { return &StreamStopPayload{} },
	CmdCamEvent:                      func() interface{} { return &CamEventPayload{} },
	CmdGetMotionDetection:            func() interface{} { return &GetMotionDetectionPayload{} },
	CmdSetMotionDetection:            func() interface{} { return &SetMotionDetectionPayload{} },
	CmdMotionDetectionConf:           func() interface{} { return &MotionDetectionConfPayload{} },
	CmdGetCamEvents:                  func() interface{} { return &GetCamEventsPayload{} },
	CmdSetCamEvents:                  func() interface{} { return &SetCamEventsPayload{} },
	CmdCamEventsConf:                 func() interface{} { return &CamEventsConfPayload{} },
	CmdGetCamVideoConf:               func() interface{} { return &GetCamVideoConfPayload{} },
	CmdSetCamVideoConf:               func() interface{} { return &SetCamVideoConfPayload{} },
	CmdCamVideoConf:                  func() interface{} { return &CamVideoConfPayload{} },
	CmdGetCamAudioConf:               func() interface{} { return &GetCamAudioConfPayload{} },
	CmdSetCamAudioConf:               func() interface{} { return &SetCamAudioConfPayload{} },
	CmdCamAudioConf:                  func() interface{} { return &CamAudioConfPayload{} },
	CmdGetPtzConf:                    func() interface{} { return &GetPtzConfPayload{} },
	CmdCamPtzConf:                    func() interface{} { return &CamPtzConfPayload{} },
	CmdCamPtz:                        func() interface{} { return &CamPtzPayload{} },
	CmdCamPtzPreset:                  func() interface{} { return &CamPtzPresetPayload{} },
	CmdCamPtzPresetCreated:           func() interface{} { return &CamPtzPresetCreatedPayload{} },
	CmdGetOsdConf:                    func() interface{} { return &GetOsdConfPayload{} },
	CmdSetOsdConf:                    func() interface{} { return &SetOsdConfPayload{} },
	CmdOsdConf:                       func() interface{} { return &OsdConfPayload{} },
	CmdCamTriggerEvent:               func() interface{} { return &CamTriggerEventPayload{} },
	CmdBackwardStart:                 func() interface{} { return &BackwardStartPayload{} },
	CmdBackwardStop:                  func() interface{} { return &BackwardStopPayload{} },
	CmdAudioFilePlay:                 func() interface{} { return &AudioFilePlayPayload{} },
	CmdCamListWifi:                   func() interface{} { return &CamListWifiPayload{} },
	CmdCamWifiList:                   func() interface{} { return &CamWifiListPayload{} },
	CmdCamSetCurrentWifi:             func() interface{} { return &CamSetCurrentWifiPayload{} },
	CmdGetDirectUploadURL:            func() interface{} { return &GetDirectUploadURLPayload{} },
	CmdDirectUploadURL:               func() interface{} { return &DirectUploadURLPayload{} },
	CmdConfirmDirectUpload:           func() interface{} { return &ConfirmDirectUploadPayload{} },
	CmdRawMessage:                    func() interface{} { return &RawMessagePayload{} },
	CmdRawMessageClientConnected:     func() interface{} { return &RawMessageClientConnectedPayload{} },
	CmdRawMessageClientDisconnected:  func() interface{} { return &RawMessageClientDisconnectedPayload{} },
	CmdCamGetLog:                     func() interface{} { return &CamGetLogPayload{} },
	CmdCamUpgradeFirmware:            func() interface{} { return &CamUpgradeFirmwarePayload{} },
	CmdCamUpdatePreview:              func() interface{} { return &CamUpdatePreviewPayload{} },
	CmdSetCamParameter:               func() interface{} { return &SetCamParameterPayload{} },
	CmdReportProblem:                 func() interface{} { return &ReportProblemPayload{} },
	CmdSetStreamByEvent:              func() interface{} { return &SetStreamByEventPayload{} },
	CmdGetStreamByEvent:              func() interface{} { return &GetStreamByEventPayload{} },
	CmdStreamByEventConf:             func() interface{} { return &StreamByEventConfPayload{} },
	CmdGetCamMemorycardTimeline:      func() interface{} { return &GetCamMemorycardTimelinePayload{} },
	CmdCamMemorycardTimeline:         func() interface{} { return &CamMemorycardTimelinePayload{} },
	CmdCamMemorycardSynchronize:      func() interface{} { return &CamMemorycardSynchronizePayload{} },
	CmdCamMemorycardSynchronizeStat:  func() interface{} { return &CamMemorycardSynchronizeStatusPayload{} },
	CmdCamMemorycardSynchronizeCancl: func() interface{} { return &CamMemorycardSynchronizeCancelPayload{} },
	CmdCamMemorycardRecording:        func() interface{} { return &CamMemorycardRecordingPayload{} },
	CmdDone:                          func() interface{} { return &DonePayload{} },
}

// IsRegistered reports whether cmd is in the closed command enumeration.
func IsRegistered(cmd string) bool {
	_, ok := registry[cmd]
	return ok
}
