package main

import (
	"context"

	"github.com/camerarecorder/cloud-agent-go/internal/agent"
	"github.com/camerarecorder/cloud-agent-go/internal/protocol"
)

// noopCallbacks returns a Callbacks record for cam_status and friends to
// report a consistent empty device state rather than the generic
// done{NOT_SUPPORTED} every unset field already produces. A real embedder
// replaces this whole function with one backed by its own camera/PTZ/
// storage drivers.
func noopCallbacks() agent.Callbacks {
	return agent.Callbacks{
		GetVideoConf: func(ctx context.Context) (protocol.CamVideoConfPayload, error) {
			return protocol.CamVideoConfPayload{}, nil
		},
		GetAudioConf: func(ctx context.Context) (protocol.CamAudioConfPayload, error) {
			return protocol.CamAudioConfPayload{}, nil
		},
		GetMotionDetection: func(ctx context.Context) (protocol.MotionDetectionConfPayload, error) {
			return protocol.MotionDetectionConfPayload{}, nil
		},
		GetOSDConf: func(ctx context.Context) (protocol.OsdConfPayload, error) {
			return protocol.OsdConfPayload{}, nil
		},
		ListWifi: func(ctx context.Context) ([]protocol.WifiNetwork, error) {
			return nil, nil
		},
	}
}
