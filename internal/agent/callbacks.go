package agent

import (
	"context"

	"github.com/camerarecorder/cloud-agent-go/internal/protocol"
)

// Callbacks is the embedder's optional implementation surface (spec.md
// §4.9). Every field is independently optional: a nil field makes the
// façade answer the corresponding command with done{NOT_SUPPORTED}
// rather than failing the session, mirroring the teacher's single
// callback record with optional fields (spec.md §9, already applied in
// internal/eventstate.Callbacks and internal/events.Callbacks — this is
// the same idiom at the top of the stack).
type Callbacks struct {
	GetMetrics func(ctx context.Context) (map[string]interface{}, error)

	GetVideoConf func(ctx context.Context) (protocol.CamVideoConfPayload, error)
	SetVideoConf func(ctx context.Context, req protocol.SetCamVideoConfPayload) (protocol.CamVideoConfPayload, error)

	GetAudioConf func(ctx context.Context) (protocol.CamAudioConfPayload, error)
	SetAudioConf func(ctx context.Context, req protocol.SetCamAudioConfPayload) (protocol.CamAudioConfPayload, error)

	GetMotionDetection func(ctx context.Context) (protocol.MotionDetectionConfPayload, error)
	SetMotionDetection func(ctx context.Context, req protocol.SetMotionDetectionPayload) (protocol.MotionDetectionConfPayload, error)

	GetOSDConf func(ctx context.Context) (protocol.OsdConfPayload, error)
	SetOSDConf func(ctx context.Context, req protocol.SetOsdConfPayload) (protocol.OsdConfPayload, error)

	GetPTZConf  func(ctx context.Context) (protocol.CamPtzConfPayload, error)
	PTZMove     func(ctx context.Context, move protocol.PTZMove) error
	PTZPreset   func(ctx context.Context, req protocol.CamPtzPresetPayload) (id string, err error)

	ListWifi       func(ctx context.Context) ([]protocol.WifiNetwork, error)
	SetCurrentWifi func(ctx context.Context, req protocol.CamSetCurrentWifiPayload) error

	GetLog          func(ctx context.Context, maxBytes int) ([]byte, error)
	UpgradeFirmware func(ctx context.Context, url, version string) error
	UpdatePreview   func(ctx context.Context, cloudName string) error
	SetParameter    func(ctx context.Context, name, value string) error
	ReportProblem   func(ctx context.Context, description string) error
	BackwardStart   func(ctx context.Context, cloudName string) error
	BackwardStop    func(ctx context.Context, cloudName string) error
	AudioFilePlay   func(ctx context.Context, url string) error

	GetStreamCaps   func(ctx context.Context, cloudName string) (protocol.StreamCaps, error)
	GetStreamConfig func(ctx context.Context, cloudName string) (protocol.StreamConfigParams, error)
	SetStreamConfig func(ctx context.Context, cloudName string, cfg protocol.StreamConfigParams) (protocol.StreamConfigParams, error)

	SetStreamByEvent func(ctx context.Context, cloudName string, event string, unset bool) error
	GetStreamByEvent func(ctx context.Context, cloudName string) (event string, set bool, err error)

	TriggerEvent func(ctx context.Context, req protocol.CamTriggerEventPayload) error

	RequestUploadSlot func(ctx context.Context, req protocol.GetDirectUploadURLPayload) (protocol.DirectUploadURLPayload, error)
	ConfirmUpload     func(ctx context.Context, req protocol.ConfirmDirectUploadPayload) error

	// HandleEventPayload is invoked on every stateless trigger and, when
	// Behaviour.ReportContinuationSnapshot is set, on each continuation
	// tick of a stateful event (spec.md §4.5 "handle_event_payload").
	// needSnapshot reports whether the event's config and capabilities
	// both ask for a snapshot alongside the payload.
	HandleEventPayload func(ctx context.Context, cfg protocol.EventConfig, needSnapshot bool) error

	OnRawMessage func(ctx context.Context, clientID string, data []byte) error

	// OnRegistered and OnBye surface the two session lifecycle
	// notifications spec.md §4.9 lists alongside the command callbacks
	// above: a new session id issued by hello, and a peer-initiated bye
	// with its recovery classification.
	OnRegistered func(sid string)
	OnBye        func(reason protocol.ByeReason, retryHint int)
}
