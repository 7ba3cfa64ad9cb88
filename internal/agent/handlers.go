package agent

import (
	"context"
	"time"

	"github.com/camerarecorder/cloud-agent-go/internal/events"
	"github.com/camerarecorder/cloud-agent-go/internal/logging"
	"github.com/camerarecorder/cloud-agent-go/internal/protocol"
	timelinesync "github.com/camerarecorder/cloud-agent-go/internal/sync"
)

// registerHandlers wires every inbound command this agent answers to its
// handler, grounded on the teacher's registerBuiltinMethods dispatch-table
// shape (internal/websocket/methods.go), generalized from a JSON-RPC
// method table to this spec's closed command enum.
func (a *Agent) registerHandlers() {
	a.currentEngine().RegisterHandler(protocol.CmdConfigure, a.rateLimited(a.handleConfigure))
	a.currentEngine().RegisterHandler(protocol.CmdGetCamStatus, a.rateLimited(a.handleGetCamStatus))
	a.currentEngine().RegisterHandler(protocol.CmdGetSupportedStreams, a.rateLimited(a.handleGetSupportedStreams))
	a.currentEngine().RegisterHandler(protocol.CmdGetStreamCaps, a.rateLimited(a.handleGetStreamCaps))
	a.currentEngine().RegisterHandler(protocol.CmdGetStreamConfig, a.rateLimited(a.handleGetStreamConfig))
	a.currentEngine().RegisterHandler(protocol.CmdSetStreamConfig, a.rateLimited(a.handleSetStreamConfig))
	a.currentEngine().RegisterHandler(protocol.CmdStreamStart, a.rateLimited(a.handleStreamStart))
	a.currentEngine().RegisterHandler(protocol.CmdStreamStop, a.rateLimited(a.handleStreamStop))
	a.currentEngine().RegisterHandler(protocol.CmdGetMotionDetection, a.rateLimited(a.handleGetMotionDetection))
	a.currentEngine().RegisterHandler(protocol.CmdSetMotionDetection, a.rateLimited(a.handleSetMotionDetection))
	a.currentEngine().RegisterHandler(protocol.CmdGetCamEvents, a.rateLimited(a.handleGetCamEvents))
	a.currentEngine().RegisterHandler(protocol.CmdSetCamEvents, a.rateLimited(a.handleSetCamEvents))
	a.currentEngine().RegisterHandler(protocol.CmdGetCamVideoConf, a.rateLimited(a.handleGetCamVideoConf))
	a.currentEngine().RegisterHandler(protocol.CmdSetCamVideoConf, a.rateLimited(a.handleSetCamVideoConf))
	a.currentEngine().RegisterHandler(protocol.CmdGetCamAudioConf, a.rateLimited(a.handleGetCamAudioConf))
	a.currentEngine().RegisterHandler(protocol.CmdSetCamAudioConf, a.rateLimited(a.handleSetCamAudioConf))
	a.currentEngine().RegisterHandler(protocol.CmdGetPtzConf, a.rateLimited(a.handleGetPtzConf))
	a.currentEngine().RegisterHandler(protocol.CmdCamPtz, a.rateLimited(a.handleCamPtz))
	a.currentEngine().RegisterHandler(protocol.CmdCamPtzPreset, a.rateLimited(a.handleCamPtzPreset))
	a.currentEngine().RegisterHandler(protocol.CmdGetOsdConf, a.rateLimited(a.handleGetOsdConf))
	a.currentEngine().RegisterHandler(protocol.CmdSetOsdConf, a.rateLimited(a.handleSetOsdConf))
	a.currentEngine().RegisterHandler(protocol.CmdCamTriggerEvent, a.rateLimited(a.handleCamTriggerEvent))
	a.currentEngine().RegisterHandler(protocol.CmdBackwardStart, a.rateLimited(a.handleBackwardStart))
	a.currentEngine().RegisterHandler(protocol.CmdBackwardStop, a.rateLimited(a.handleBackwardStop))
	a.currentEngine().RegisterHandler(protocol.CmdAudioFilePlay, a.rateLimited(a.handleAudioFilePlay))
	a.currentEngine().RegisterHandler(protocol.CmdCamListWifi, a.rateLimited(a.handleCamListWifi))
	a.currentEngine().RegisterHandler(protocol.CmdCamSetCurrentWifi, a.rateLimited(a.handleCamSetCurrentWifi))
	a.currentEngine().RegisterHandler(protocol.CmdGetDirectUploadURL, a.rateLimited(a.handleGetDirectUploadURL))
	a.currentEngine().RegisterHandler(protocol.CmdConfirmDirectUpload, a.rateLimited(a.handleConfirmDirectUpload))
	a.currentEngine().RegisterHandler(protocol.CmdCamGetLog, a.rateLimited(a.handleCamGetLog))
	a.currentEngine().RegisterHandler(protocol.CmdCamUpgradeFirmware, a.rateLimited(a.handleCamUpgradeFirmware))
	a.currentEngine().RegisterHandler(protocol.CmdCamUpdatePreview, a.rateLimited(a.handleCamUpdatePreview))
	a.currentEngine().RegisterHandler(protocol.CmdSetCamParameter, a.rateLimited(a.handleSetCamParameter))
	a.currentEngine().RegisterHandler(protocol.CmdReportProblem, a.rateLimited(a.handleReportProblem))
	a.currentEngine().RegisterHandler(protocol.CmdSetStreamByEvent, a.rateLimited(a.handleSetStreamByEvent))
	a.currentEngine().RegisterHandler(protocol.CmdGetStreamByEvent, a.rateLimited(a.handleGetStreamByEvent))
	a.currentEngine().RegisterHandler(protocol.CmdGetCamMemorycardTimeline, a.rateLimited(a.handleGetCamMemorycardTimeline))
	a.currentEngine().RegisterHandler(protocol.CmdCamMemorycardSynchronize, a.rateLimited(a.handleCamMemorycardSynchronize))
	a.currentEngine().RegisterHandler(protocol.CmdCamMemorycardSynchronizeCancl, a.rateLimited(a.handleCamMemorycardSynchronizeCancel))
	a.currentEngine().RegisterHandler(protocol.CmdRawMessage, a.rateLimited(a.handleRawMessage))
}

func (a *Agent) handleConfigure(env *protocol.Envelope) (*protocol.Envelope, error) {
	payload, ok := env.Payload.(*protocol.ConfigurePayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	a.eventsMgr.Configure(payload.Events)
	return a.done(env, protocol.DoneOK), nil
}

func (a *Agent) handleGetCamStatus(env *protocol.Envelope) (*protocol.Envelope, error) {
	result := &protocol.CamStatusPayload{Streams: a.streamStatuses()}
	if a.cb.GetMetrics != nil {
		err := a.callBounded(func(ctx context.Context) error {
			m, err := a.cb.GetMetrics(ctx)
			result.Metrics = m
			return err
		})
		if err != nil && err != errCallbackTimeout {
			a.logger.WithFields(logging.Fields{"error": err}).Warn("get_metrics callback failed")
		}
	}
	return a.reply(env, protocol.CmdCamStatus, result), nil
}

func (a *Agent) streamStatuses() []protocol.StreamStatus {
	var out []protocol.StreamStatus
	for _, id := range a.streamsMgr.StreamIDs() {
		out = append(out, protocol.StreamStatus{
			CloudName:     id,
			SourceStarted: a.streamsMgr.SourceStarted(id),
		})
	}
	return out
}

func (a *Agent) handleGetSupportedStreams(env *protocol.Envelope) (*protocol.Envelope, error) {
	return a.reply(env, protocol.CmdSupportedStreams, &protocol.SupportedStreamsPayload{Streams: a.streamsMgr.StreamIDs()}), nil
}

func (a *Agent) handleGetStreamCaps(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.GetStreamCapsPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if a.cb.GetStreamCaps == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	var caps protocol.StreamCaps
	err := a.callBounded(func(ctx context.Context) error {
		c, err := a.cb.GetStreamCaps(ctx, req.CloudName)
		caps = c
		return err
	})
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.reply(env, protocol.CmdStreamCaps, &protocol.StreamCapsPayload{CloudName: req.CloudName, Caps: caps}), nil
}

func (a *Agent) handleGetStreamConfig(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.GetStreamConfigPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if a.cb.GetStreamConfig == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	var cfg protocol.StreamConfigParams
	err := a.callBounded(func(ctx context.Context) error {
		c, err := a.cb.GetStreamConfig(ctx, req.CloudName)
		cfg = c
		return err
	})
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.reply(env, protocol.CmdStreamConfig, &protocol.StreamConfigPayload{CloudName: req.CloudName, Config: cfg}), nil
}

func (a *Agent) handleSetStreamConfig(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.SetStreamConfigPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if a.cb.SetStreamConfig == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	var cfg protocol.StreamConfigParams
	err := a.callBounded(func(ctx context.Context) error {
		c, err := a.cb.SetStreamConfig(ctx, req.CloudName, req.Config)
		cfg = c
		return err
	})
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.reply(env, protocol.CmdStreamConfig, &protocol.StreamConfigPayload{CloudName: req.CloudName, Config: cfg}), nil
}

func (a *Agent) handleStreamStart(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.StreamStartPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	url, _ := req.URL.Get()
	if err := a.streamsMgr.StartLive(context.Background(), req.CloudName, url); err != nil {
		a.logger.WithFields(logging.Fields{"stream": req.CloudName, "error": err}).Warn("stream_start failed")
		return a.done(env, protocol.DoneCMError), nil
	}
	return a.done(env, protocol.DoneOK), nil
}

func (a *Agent) handleStreamStop(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.StreamStopPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if err := a.streamsMgr.StopLive(req.CloudName); err != nil {
		return a.done(env, protocol.DoneCMError), nil
	}
	_ = a.streamsMgr.CheckStopMediaSource(req.CloudName)
	return a.done(env, protocol.DoneOK), nil
}

func (a *Agent) handleGetMotionDetection(env *protocol.Envelope) (*protocol.Envelope, error) {
	if a.cb.GetMotionDetection == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	var result protocol.MotionDetectionConfPayload
	err := a.callBounded(func(ctx context.Context) error {
		r, err := a.cb.GetMotionDetection(ctx)
		result = r
		return err
	})
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.reply(env, protocol.CmdMotionDetectionConf, &result), nil
}

func (a *Agent) handleSetMotionDetection(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.SetMotionDetectionPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if a.cb.SetMotionDetection == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	var result protocol.MotionDetectionConfPayload
	err := a.callBounded(func(ctx context.Context) error {
		r, err := a.cb.SetMotionDetection(ctx, *req)
		result = r
		return err
	})
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.reply(env, protocol.CmdMotionDetectionConf, &result), nil
}

func (a *Agent) handleGetCamEvents(env *protocol.Envelope) (*protocol.Envelope, error) {
	return a.reply(env, protocol.CmdCamEventsConf, &protocol.CamEventsConfPayload{Events: a.eventsMgr.Configs()}), nil
}

func (a *Agent) handleSetCamEvents(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.SetCamEventsPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	a.eventsMgr.Configure(req.Events)
	return a.reply(env, protocol.CmdCamEventsConf, &protocol.CamEventsConfPayload{Events: a.eventsMgr.Configs()}), nil
}

func (a *Agent) handleGetCamVideoConf(env *protocol.Envelope) (*protocol.Envelope, error) {
	if a.cb.GetVideoConf == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	var result protocol.CamVideoConfPayload
	err := a.callBounded(func(ctx context.Context) error {
		r, err := a.cb.GetVideoConf(ctx)
		result = r
		return err
	})
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.reply(env, protocol.CmdCamVideoConf, &result), nil
}

func (a *Agent) handleSetCamVideoConf(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.SetCamVideoConfPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if a.cb.SetVideoConf == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	var result protocol.CamVideoConfPayload
	err := a.callBounded(func(ctx context.Context) error {
		r, err := a.cb.SetVideoConf(ctx, *req)
		result = r
		return err
	})
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.reply(env, protocol.CmdCamVideoConf, &result), nil
}

func (a *Agent) handleGetCamAudioConf(env *protocol.Envelope) (*protocol.Envelope, error) {
	if a.cb.GetAudioConf == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	var result protocol.CamAudioConfPayload
	err := a.callBounded(func(ctx context.Context) error {
		r, err := a.cb.GetAudioConf(ctx)
		result = r
		return err
	})
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.reply(env, protocol.CmdCamAudioConf, &result), nil
}

func (a *Agent) handleSetCamAudioConf(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.SetCamAudioConfPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if a.cb.SetAudioConf == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	var result protocol.CamAudioConfPayload
	err := a.callBounded(func(ctx context.Context) error {
		r, err := a.cb.SetAudioConf(ctx, *req)
		result = r
		return err
	})
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.reply(env, protocol.CmdCamAudioConf, &result), nil
}

func (a *Agent) handleGetPtzConf(env *protocol.Envelope) (*protocol.Envelope, error) {
	if a.cb.GetPTZConf == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	var result protocol.CamPtzConfPayload
	err := a.callBounded(func(ctx context.Context) error {
		r, err := a.cb.GetPTZConf(ctx)
		result = r
		return err
	})
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.reply(env, protocol.CmdCamPtzConf, &result), nil
}

func (a *Agent) handleCamPtz(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.CamPtzPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if a.cb.PTZMove == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	err := a.callBounded(func(ctx context.Context) error { return a.cb.PTZMove(ctx, req.Move) })
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.done(env, protocol.DoneOK), nil
}

func (a *Agent) handleCamPtzPreset(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.CamPtzPresetPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if a.cb.PTZPreset == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	var id string
	err := a.callBounded(func(ctx context.Context) error {
		v, err := a.cb.PTZPreset(ctx, *req)
		id = v
		return err
	})
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	if !req.Create {
		return a.done(env, protocol.DoneOK), nil
	}
	return a.reply(env, protocol.CmdCamPtzPresetCreated, &protocol.CamPtzPresetCreatedPayload{Name: req.Name, ID: id}), nil
}

func (a *Agent) handleGetOsdConf(env *protocol.Envelope) (*protocol.Envelope, error) {
	if a.cb.GetOSDConf == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	var result protocol.OsdConfPayload
	err := a.callBounded(func(ctx context.Context) error {
		r, err := a.cb.GetOSDConf(ctx)
		result = r
		return err
	})
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.reply(env, protocol.CmdOsdConf, &result), nil
}

func (a *Agent) handleSetOsdConf(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.SetOsdConfPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if a.cb.SetOSDConf == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	var result protocol.OsdConfPayload
	err := a.callBounded(func(ctx context.Context) error {
		r, err := a.cb.SetOSDConf(ctx, *req)
		result = r
		return err
	})
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.reply(env, protocol.CmdOsdConf, &result), nil
}

func (a *Agent) handleCamTriggerEvent(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.CamTriggerEventPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if a.cb.TriggerEvent == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	err := a.callBounded(func(ctx context.Context) error { return a.cb.TriggerEvent(ctx, *req) })
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	now := time.Now()
	occurrence := events.Occurrence{Event: req.Event, CustomName: stringOr(req.CustomName), Start: now}
	if active, ok := req.Active.Get(); ok && !active {
		occurrence.Stop = &now
	}
	a.eventsMgr.Trigger(occurrence)
	return a.done(env, protocol.DoneOK), nil
}

func (a *Agent) handleBackwardStart(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.BackwardStartPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if a.cb.BackwardStart == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	err := a.callBounded(func(ctx context.Context) error { return a.cb.BackwardStart(ctx, req.CloudName) })
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.done(env, protocol.DoneOK), nil
}

func (a *Agent) handleBackwardStop(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.BackwardStopPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if a.cb.BackwardStop == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	err := a.callBounded(func(ctx context.Context) error { return a.cb.BackwardStop(ctx, req.CloudName) })
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.done(env, protocol.DoneOK), nil
}

func (a *Agent) handleAudioFilePlay(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.AudioFilePlayPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if a.cb.AudioFilePlay == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	err := a.callBounded(func(ctx context.Context) error { return a.cb.AudioFilePlay(ctx, req.URL) })
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.done(env, protocol.DoneOK), nil
}

func (a *Agent) handleCamListWifi(env *protocol.Envelope) (*protocol.Envelope, error) {
	if a.cb.ListWifi == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	var networks []protocol.WifiNetwork
	err := a.callBounded(func(ctx context.Context) error {
		n, err := a.cb.ListWifi(ctx)
		networks = n
		return err
	})
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.reply(env, protocol.CmdCamWifiList, &protocol.CamWifiListPayload{Networks: networks}), nil
}

func (a *Agent) handleCamSetCurrentWifi(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.CamSetCurrentWifiPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if a.cb.SetCurrentWifi == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	err := a.callBounded(func(ctx context.Context) error { return a.cb.SetCurrentWifi(ctx, *req) })
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.done(env, protocol.DoneOK), nil
}

func (a *Agent) handleGetDirectUploadURL(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.GetDirectUploadURLPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if a.cb.RequestUploadSlot == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	var slot protocol.DirectUploadURLPayload
	err := a.callBounded(func(ctx context.Context) error {
		s, err := a.cb.RequestUploadSlot(ctx, *req)
		slot = s
		return err
	})
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.reply(env, protocol.CmdDirectUploadURL, &slot), nil
}

func (a *Agent) handleConfirmDirectUpload(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.ConfirmDirectUploadPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if a.cb.ConfirmUpload == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	err := a.callBounded(func(ctx context.Context) error { return a.cb.ConfirmUpload(ctx, *req) })
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.done(env, protocol.DoneOK), nil
}

func (a *Agent) handleCamGetLog(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.CamGetLogPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if a.cb.GetLog == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	maxBytes, _ := req.MaxBytes.Get()
	err := a.callBounded(func(ctx context.Context) error {
		_, err := a.cb.GetLog(ctx, maxBytes)
		return err
	})
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.done(env, protocol.DoneOK), nil
}

func (a *Agent) handleCamUpgradeFirmware(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.CamUpgradeFirmwarePayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if a.cb.UpgradeFirmware == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	err := a.callBounded(func(ctx context.Context) error { return a.cb.UpgradeFirmware(ctx, req.URL, req.Version) })
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.done(env, protocol.DoneOK), nil
}

func (a *Agent) handleCamUpdatePreview(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.CamUpdatePreviewPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if a.cb.UpdatePreview == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	cloudName, _ := req.CloudName.Get()
	err := a.callBounded(func(ctx context.Context) error { return a.cb.UpdatePreview(ctx, cloudName) })
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.done(env, protocol.DoneOK), nil
}

func (a *Agent) handleSetCamParameter(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.SetCamParameterPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if a.cb.SetParameter == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	err := a.callBounded(func(ctx context.Context) error { return a.cb.SetParameter(ctx, req.Name, req.Value) })
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.done(env, protocol.DoneOK), nil
}

func (a *Agent) handleReportProblem(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.ReportProblemPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if a.cb.ReportProblem == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	desc, _ := req.Description.Get()
	err := a.callBounded(func(ctx context.Context) error { return a.cb.ReportProblem(ctx, desc) })
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.done(env, protocol.DoneOK), nil
}

func (a *Agent) handleSetStreamByEvent(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.SetStreamByEventPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	event, set := req.Event.Get()
	if a.cb.SetStreamByEvent != nil {
		err := a.callBounded(func(ctx context.Context) error {
			return a.cb.SetStreamByEvent(ctx, req.CloudName, event, !set)
		})
		if reply := a.doneFor(env, false, err); reply != nil {
			return reply, nil
		}
	}
	if set {
		a.bindStreamToEvent(req.CloudName, event)
	} else {
		a.bindStreamToEvent(req.CloudName, "")
	}
	return a.done(env, protocol.DoneOK), nil
}

func (a *Agent) handleGetStreamByEvent(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.GetStreamByEventPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	reply := &protocol.StreamByEventConfPayload{CloudName: req.CloudName}
	if key, bound := a.eventForStream(req.CloudName); bound {
		reply.Event = protocol.Some(key)
	}
	return a.reply(env, protocol.CmdStreamByEventConf, reply), nil
}

func (a *Agent) handleGetCamMemorycardTimeline(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.GetCamMemorycardTimelinePayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	items, err := a.storage.List(context.Background(), req.Begin.Time, req.End.Time)
	if err != nil {
		return a.done(env, protocol.DoneCMError), nil
	}
	segments := make([]protocol.TimelineSegment, 0, len(items))
	for _, item := range items {
		segments = append(segments, protocol.TimelineSegment{Begin: protocol.NewWireTime(item.Begin), End: protocol.NewWireTime(item.End)})
	}
	return a.reply(env, protocol.CmdCamMemorycardTimeline, &protocol.CamMemorycardTimelinePayload{CloudName: req.CloudName, Segments: segments}), nil
}

func (a *Agent) handleCamMemorycardSynchronize(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.CamMemorycardSynchronizePayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	cloudName := req.CloudName
	handle, err := a.sync.Sync(context.Background(), req.Begin.Time, req.End.Time, func(_ timelinesync.Handle, _ timelinesync.Segment, status protocol.SyncStatus, detail string) {
		msg := &protocol.CamMemorycardSynchronizeStatusPayload{CloudName: cloudName, Status: status}
		if detail != "" {
			msg.Message = protocol.Some(detail)
		}
		if sendErr := a.currentEngine().SendCommand(protocol.CmdCamMemorycardSynchronizeStat, msg); sendErr != nil {
			a.logger.WithFields(logging.Fields{"stream": cloudName, "error": sendErr}).Warn("failed to report sync status")
		}
	})
	if err != nil {
		return a.done(env, protocol.DoneCMError), nil
	}
	a.setSyncHandle(cloudName, handle)
	return a.done(env, protocol.DoneOK), nil
}

func (a *Agent) handleCamMemorycardSynchronizeCancel(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.CamMemorycardSynchronizeCancelPayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if handle, found := a.takeSyncHandle(req.CloudName); found {
		a.sync.Cancel(handle)
	}
	return a.done(env, protocol.DoneOK), nil
}

func (a *Agent) handleRawMessage(env *protocol.Envelope) (*protocol.Envelope, error) {
	req, ok := env.Payload.(*protocol.RawMessagePayload)
	if !ok {
		return a.done(env, protocol.DoneInvalidParam), nil
	}
	if a.cb.OnRawMessage == nil {
		return a.done(env, protocol.DoneNotSupported), nil
	}
	err := a.callBounded(func(ctx context.Context) error { return a.cb.OnRawMessage(ctx, req.ClientID, req.Data) })
	if reply := a.doneFor(env, false, err); reply != nil {
		return reply, nil
	}
	return a.done(env, protocol.DoneOK), nil
}

func stringOr(o protocol.Opt[string]) string {
	v, _ := o.Get()
	return v
}
