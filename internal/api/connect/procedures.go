// Package connect provides Connect RPC service implementations.
//
// Request and response bodies are google.protobuf.Struct messages, so the
// services work with both the binary protocol and plain JSON clients.
package connect

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// PlayerServiceName is the fully-qualified name of the player service.
	PlayerServiceName = "folioplayer.v1.PlayerService"
	// AdminServiceName is the fully-qualified name of the admin service.
	AdminServiceName = "folioplayer.v1.AdminService"
)

// Procedure paths.
const (
	PlayerCreateSessionProcedure  = "/" + PlayerServiceName + "/CreateSession"
	PlayerGetStateProcedure       = "/" + PlayerServiceName + "/GetState"
	PlayerTogglePlayProcedure     = "/" + PlayerServiceName + "/TogglePlay"
	PlayerToggleLyricsProcedure   = "/" + PlayerServiceName + "/ToggleLyrics"
	PlayerCloseSessionProcedure   = "/" + PlayerServiceName + "/CloseSession"
	PlayerAdvanceProcedure        = "/" + PlayerServiceName + "/Advance"
	PlayerSelectTrackProcedure    = "/" + PlayerServiceName + "/SelectTrack"
	PlayerSeekProcedure           = "/" + PlayerServiceName + "/Seek"
	PlayerReportProgressProcedure = "/" + PlayerServiceName + "/ReportProgress"
	PlayerReportEndedProcedure    = "/" + PlayerServiceName + "/ReportEnded"
	PlayerReportErrorProcedure    = "/" + PlayerServiceName + "/ReportError"
	PlayerGetTimelineProcedure    = "/" + PlayerServiceName + "/GetTimeline"
	PlayerParseLyricsProcedure    = "/" + PlayerServiceName + "/ParseLyrics"
	PlayerSubscribeProcedure      = "/" + PlayerServiceName + "/Subscribe"

	AdminListSessionsProcedure = "/" + AdminServiceName + "/ListSessions"
)

type unaryFunc = func(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error)

// NewPlayerServiceHandler builds an HTTP handler that serves the player service.
// It returns the path on which to mount the handler and the handler itself.
func NewPlayerServiceHandler(svc *PlayerService, opts ...connect.HandlerOption) (string, http.Handler) {
	unary := map[string]unaryFunc{
		PlayerCreateSessionProcedure:  svc.CreateSession,
		PlayerGetStateProcedure:       svc.GetState,
		PlayerTogglePlayProcedure:     svc.TogglePlay,
		PlayerToggleLyricsProcedure:   svc.ToggleLyrics,
		PlayerCloseSessionProcedure:   svc.CloseSession,
		PlayerAdvanceProcedure:        svc.Advance,
		PlayerSelectTrackProcedure:    svc.SelectTrack,
		PlayerSeekProcedure:           svc.Seek,
		PlayerReportProgressProcedure: svc.ReportProgress,
		PlayerReportEndedProcedure:    svc.ReportEnded,
		PlayerReportErrorProcedure:    svc.ReportError,
		PlayerGetTimelineProcedure:    svc.GetTimeline,
		PlayerParseLyricsProcedure:    svc.ParseLyrics,
	}

	mux := http.NewServeMux()
	for procedure, fn := range unary {
		mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
	}
	mux.Handle(PlayerSubscribeProcedure, connect.NewServerStreamHandler(PlayerSubscribeProcedure, svc.Subscribe, opts...))

	return "/" + PlayerServiceName + "/", mux
}

// NewAdminServiceHandler builds an HTTP handler that serves the admin service.
func NewAdminServiceHandler(svc *AdminService, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(AdminListSessionsProcedure, connect.NewUnaryHandler(AdminListSessionsProcedure, svc.ListSessions, opts...))
	return "/" + AdminServiceName + "/", mux
}
