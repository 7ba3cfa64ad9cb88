package protocol

// RegisterPayload is the outbound register command (spec.md §4.3).
type RegisterPayload struct {
	Version        string      `json:"version"`
	Timezone       string      `json:"timezone"`
	Vendor         string      `json:"vendor"`
	Pwd            Opt[string] `json:"pwd"`
	PrevSid        Opt[string] `json:"prev_sid"`
	RegToken       Opt[string] `json:"reg_token"`
	MediaProtocols []string    `json:"media_protocols,omitempty"`
}

// HelloPayload is the inbound reply to register.
type HelloPayload struct {
	Sid Opt[string] `json:"sid"`
}

// ConfigurePayload carries cloud-pushed configuration deltas.
type ConfigurePayload struct {
	Events []EventConfig `json:"events,omitempty"`
}

// ByePayload terminates a session (spec.md §4.3).
type ByePayload struct {
	Reason ByeReason `json:"reason"`
	Retry  Opt[int]  `json:"retry"`
}

// CamRegisterPayload announces device identity (spec.md §4.3).
type CamRegisterPayload struct {
	Vendor       string `json:"vendor"`
	Model        string `json:"model"`
	Serial       string `json:"serial"`
	Firmware     string `json:"firmware"`
	Type         string `json:"type"`
	RawMessaging bool   `json:"raw_messaging"`
}

// CamHelloPayload is the peer's acknowledgement of cam_register.
type CamHelloPayload struct {
	Accepted bool `json:"accepted"`
}

// DonePayload is the generic reply (spec.md §3).
type DonePayload struct {
	Status DoneStatus `json:"status"`
}

// GetCamStatusPayload has no fields; its reply is CamStatusPayload.
type GetCamStatusPayload struct{}

// CamStatusPayload reports device and stream status.
type CamStatusPayload struct {
	Streams    []StreamStatus         `json:"streams,omitempty"`
	Metrics    map[string]interface{} `json:"metrics,omitempty"`
	RecordedAt Opt[string]            `json:"recorded_at"`
}

// GetSupportedStreamsPayload has no fields.
type GetSupportedStreamsPayload struct{}

// SupportedStreamsPayload lists the agent's configured stream descriptors.
type SupportedStreamsPayload struct {
	Streams []string `json:"streams"`
}

// GetStreamCapsPayload requests a stream's capabilities.
type GetStreamCapsPayload struct {
	CloudName string `json:"cloud_name"`
}

// StreamCapsPayload reports a stream's capabilities.
type StreamCapsPayload struct {
	CloudName string     `json:"cloud_name"`
	Caps      StreamCaps `json:"caps"`
}

// GetStreamConfigPayload requests a stream's current negotiated config.
type GetStreamConfigPayload struct {
	CloudName string `json:"cloud_name"`
}

// SetStreamConfigPayload pushes a new stream configuration.
type SetStreamConfigPayload struct {
	CloudName string              `json:"cloud_name"`
	Config    StreamConfigParams `json:"config"`
}

// StreamConfigPayload reports the stream's current negotiated config.
type StreamConfigPayload struct {
	CloudName string              `json:"cloud_name"`
	Config    StreamConfigParams `json:"config"`
}

// StreamStartPayload requests a live stream start.
type StreamStartPayload struct {
	CloudName string      `json:"cloud_name"`
	URL       Opt[string] `json:"url"`
}

// StreamStopPayload requests a live stream stop.
type StreamStopPayload struct {
	CloudName string       `json:"cloud_name"`
	Reason    StreamReason `json:"reason"`
}

// CamEventPayload reports an event transition to the cloud.
type CamEventPayload struct {
	Event      EventType   `json:"event"`
	CustomName Opt[string] `json:"custom_name"`
	State      string      `json:"state"` // triggered|started|ongoing|stopped
	Timestamp  WireTime    `json:"timestamp"`
}

// GetMotionDetectionPayload has no fields.
type GetMotionDetectionPayload struct{}

// SetMotionDetectionPayload pushes motion detection config.
type SetMotionDetectionPayload struct {
	Enabled    bool     `json:"enabled"`
	Sensitivity Opt[int] `json:"sensitivity"`
}

// MotionDetectionConfPayload reports motion detection config.
type MotionDetectionConfPayload struct {
	Enabled     bool     `json:"enabled"`
	Sensitivity Opt[int] `json:"sensitivity"`
}

// GetCamEventsPayload has no fields; the reply enumerates all event configs.
type GetCamEventsPayload struct{}

// SetCamEventsPayload pushes cloud-side event configuration.
type SetCamEventsPayload struct {
	Events []EventConfig `json:"events"`
}

// CamEventsConfPayload reports the aggregate event configuration.
type CamEventsConfPayload struct {
	Events []EventConfig `json:"events"`
}

// GetCamVideoConfPayload has no fields.
type GetCamVideoConfPayload struct{}

// SetCamVideoConfPayload pushes video encoder configuration.
type SetCamVideoConfPayload struct {
	Brightness Opt[int] `json:"brightness"`
	Contrast   Opt[int] `json:"contrast"`
	Saturation Opt[int] `json:"saturation"`
}

// CamVideoConfPayload reports video encoder configuration.
type CamVideoConfPayload struct {
	Brightness Opt[int] `json:"brightness"`
	Contrast   Opt[int] `json:"contrast"`
	Saturation Opt[int] `json:"saturation"`
}

// GetCamAudioConfPayload has no fields.
type GetCamAudioConfPayload struct{}

// SetCamAudioConfPayload pushes audio configuration.
type SetCamAudioConfPayload struct {
	Enabled bool     `json:"enabled"`
	Volume  Opt[int] `json:"volume"`
}

// CamAudioConfPayload reports audio configuration.
type CamAudioConfPayload struct {
	Enabled bool     `json:"enabled"`
	Volume  Opt[int] `json:"volume"`
}

// GetPtzConfPayload has no fields.
type GetPtzConfPayload struct{}

// CamPtzConfPayload reports PTZ capabilities and presets.
type CamPtzConfPayload struct {
	Supported bool     `json:"supported"`
	Presets   []string `json:"presets,omitempty"`
}

// CamPtzPayload requests a one-shot PTZ move.
type CamPtzPayload struct {
	Move PTZMove `json:"move"`
}

// CamPtzPresetPayload requests moving to or saving a preset.
type CamPtzPresetPayload struct {
	Name   string      `json:"name"`
	Create bool        `json:"create"`
	ID     Opt[string] `json:"id"`
}

// CamPtzPresetCreatedPayload reports a newly created preset's id.
type CamPtzPresetCreatedPayload struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// GetOsdConfPayload has no fields.
type GetOsdConfPayload struct{}

// SetOsdConfPayload pushes on-screen-display configuration.
type SetOsdConfPayload struct {
	Enabled bool        `json:"enabled"`
	Text    Opt[string] `json:"text"`
}

// OsdConfPayload reports on-screen-display configuration.
type OsdConfPayload struct {
	Enabled bool        `json:"enabled"`
	Text    Opt[string] `json:"text"`
}

// CamTriggerEventPayload externally triggers a stateless or stateful event.
type CamTriggerEventPayload struct {
	Event      EventType   `json:"event"`
	CustomName Opt[string] `json:"custom_name"`
	Active     Opt[bool]   `json:"active"`
}

// BackwardStartPayload requests two-way audio talk-back start.
type BackwardStartPayload struct {
	CloudName string `json:"cloud_name"`
}

// BackwardStopPayload requests two-way audio talk-back stop.
type BackwardStopPayload struct {
	CloudName string `json:"cloud_name"`
}

// AudioFilePlayPayload requests local playback of a cloud-supplied audio
// file url.
type AudioFilePlayPayload struct {
	URL string `json:"url"`
}

// CamListWifiPayload has no fields.
type CamListWifiPayload struct{}

// WifiNetwork describes one scanned access point.
type WifiNetwork struct {
	SSID    string `json:"ssid"`
	Signal  int    `json:"signal"`
	Secured bool   `json:"secured"`
}

// CamWifiListPayload reports scanned networks.
type CamWifiListPayload struct {
	Networks []WifiNetwork `json:"networks"`
}

// CamSetCurrentWifiPayload requests switching the active network.
type CamSetCurrentWifiPayload struct {
	SSID     string      `json:"ssid"`
	Password Opt[string] `json:"password"`
}

// GetDirectUploadURLPayload requests an upload slot.
type GetDirectUploadURLPayload struct {
	Category  StorageCategory `json:"category"`
	FileTime  WireTime        `json:"file_time"`
	Duration  Opt[int]        `json:"duration"`
	SizeBytes Opt[int64]      `json:"size_bytes"`
}

// DirectUploadURLPayload is a server-allocated upload slot (spec.md §3
// "Direct-upload slot").
type DirectUploadURLPayload struct {
	Category StorageCategory `json:"category"`
	Status   string          `json:"status"`
	URL      string          `json:"url"`
	Expire   WireTime        `json:"expire"`
	Headers  UploadHeaders   `json:"headers,omitempty"`
}

// ConfirmDirectUploadPayload confirms a slot was consumed.
type ConfirmDirectUploadPayload struct {
	URL    string `json:"url"`
	Status string `json:"status"`
}

// RawMessagePayload is the passthrough shape for opaque raw messaging
// (spec.md §4.1 "raw passthrough").
type RawMessagePayload struct {
	ClientID string `json:"client_id"`
	Data     []byte `json:"data"`
}

// RawMessageClientConnectedPayload notifies that a raw-messaging client
// connected.
type RawMessageClientConnectedPayload struct {
	ClientID string `json:"client_id"`
}

// RawMessageClientDisconnectedPayload notifies that a raw-messaging client
// disconnected.
type RawMessageClientDisconnectedPayload struct {
	ClientID string `json:"client_id"`
}

// CamGetLogPayload requests the device's current log buffer.
type CamGetLogPayload struct {
	MaxBytes Opt[int] `json:"max_bytes"`
}

// CamUpgradeFirmwarePayload pushes a firmware upgrade request.
type CamUpgradeFirmwarePayload struct {
	URL     string `json:"url"`
	Version string `json:"version"`
}

// CamUpdatePreviewPayload requests a fresh preview snapshot be captured and
// uploaded.
type CamUpdatePreviewPayload struct {
	CloudName Opt[string] `json:"cloud_name"`
}

// SetCamParameterPayload sets an opaque vendor-specific parameter.
type SetCamParameterPayload struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ReportProblemPayload lets the cloud ask the device to collect and report
// diagnostics.
type ReportProblemPayload struct {
	Description Opt[string] `json:"description"`
}

// SetStreamByEventPayload configures which event, if any, starts a given
// stream's recording window.
type SetStreamByEventPayload struct {
	CloudName string      `json:"cloud_name"`
	Event     Opt[string] `json:"event"`
}

// GetStreamByEventPayload requests the current event binding for a stream.
type GetStreamByEventPayload struct {
	CloudName string `json:"cloud_name"`
}

// StreamByEventConfPayload reports the current event binding for a stream.
type StreamByEventConfPayload struct {
	CloudName string      `json:"cloud_name"`
	Event     Opt[string] `json:"event"`
}

// GetCamMemorycardTimelinePayload requests the on-device recording
// timeline within a window.
type GetCamMemorycardTimelinePayload struct {
	CloudName string   `json:"cloud_name"`
	Begin     WireTime `json:"begin"`
	End       WireTime `json:"end"`
}

// TimelineSegment describes one covered interval on the memory card.
type TimelineSegment struct {
	Begin WireTime `json:"begin"`
	End   WireTime `json:"end"`
}

// CamMemorycardTimelinePayload reports the recording timeline.
type CamMemorycardTimelinePayload struct {
	CloudName string            `json:"cloud_name"`
	Segments  []TimelineSegment `json:"segments"`
}

// CamMemorycardSynchronizePayload requests the agent synchronize a window
// of its local recordings to the cloud.
type CamMemorycardSynchronizePayload struct {
	CloudName string   `json:"cloud_name"`
	Begin     WireTime `json:"begin"`
	End       WireTime `json:"end"`
}

// CamMemorycardSynchronizeStatusPayload reports sync progress (spec.md
// §4.8 status_cb).
type CamMemorycardSynchronizeStatusPayload struct {
	CloudName string     `json:"cloud_name"`
	Status    SyncStatus `json:"status"`
	Message   Opt[string] `json:"message"`
}

// CamMemorycardSynchronizeCancelPayload requests cancellation of an
// in-flight synchronize request.
type CamMemorycardSynchronizeCancelPayload struct {
	CloudName string `json:"cloud_name"`
}

// CamMemorycardRecordingPayload reports the local recording mode currently
// active for a stream.
type CamMemorycardRecordingPayload struct {
	CloudName string `json:"cloud_name"`
	Modes     uint8  `json:"modes"`
}
