package protocol

// StreamCaps describes what a stream can negotiate (spec.md §3 "Stream
// descriptor" caps field).
type StreamCaps struct {
	Codecs      []string `json:"codecs,omitempty"`
	Resolutions []string `json:"resolutions,omitempty"`
	Bitrates    []int    `json:"bitrates,omitempty"`
	FPS         []int    `json:"fps,omitempty"`
	GOP         Opt[int] `json:"gop"`
	Quality     Opt[int] `json:"quality"`
	VBR         Opt[bool] `json:"vbr"`
}

// StreamConfigParams is the negotiated configuration of a stream.
type StreamConfigParams struct {
	Codec      Opt[string] `json:"codec"`
	Resolution Opt[string] `json:"resolution"`
	Bitrate    Opt[int]    `json:"bitrate"`
	FPS        Opt[int]    `json:"fps"`
	GOP        Opt[int]    `json:"gop"`
	Quality    Opt[int]    `json:"quality"`
	VBR        Opt[bool]   `json:"vbr"`
}

// EventCaps describes what an event source supports for one event config
// (spec.md §3 "Event config" caps field).
type EventCaps struct {
	Stateful                  bool `json:"stateful"`
	Stream                    bool `json:"stream"`
	Snapshot                  bool `json:"snapshot"`
	Trigger                   bool `json:"trigger"`
	Periodic                  bool `json:"periodic"`
	StateEmulationReportDelay int  `json:"state_emulation_report_delay"`
}

// EventConfig is a single event's cloud-visible configuration (spec.md §3).
type EventConfig struct {
	Event      EventType   `json:"event"`
	CustomName Opt[string] `json:"custom_name"`
	Active     bool        `json:"active"`
	Snapshot   bool        `json:"snapshot"`
	Period     Opt[int]    `json:"period"`
	Stream     bool        `json:"stream"`
	Caps       EventCaps   `json:"caps"`
}

// RecordingStatus mirrors spec.md §3 "Stream status" recording field.
type RecordingStatus struct {
	Modes     uint8       `json:"modes"`
	Started   bool        `json:"started"`
	LastStart Opt[string] `json:"last_start"`
}

// LiveStatus mirrors spec.md §3 "Stream status" live field.
type LiveStatus struct {
	Sinks uint        `json:"sinks"`
	URL   Opt[string] `json:"url"`
}

// StreamStatus is the per-stream status block reported in cam_status
// (spec.md §3 "Stream status").
type StreamStatus struct {
	CloudName     string          `json:"cloud_name"`
	SourceStarted bool            `json:"source_started"`
	Live          LiveStatus      `json:"live"`
	Recording     RecordingStatus `json:"recording"`
}

// PTZMove describes a one-shot pan/tilt/zoom command.
type PTZMove struct {
	Pan  Opt[float64] `json:"pan"`
	Tilt Opt[float64] `json:"tilt"`
	Zoom Opt[float64] `json:"zoom"`
}

// UploadHeaders is a map<str,str> header set for a direct-upload slot.
type UploadHeaders map[string]string
