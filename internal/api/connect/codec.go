package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/folioplayer/internal/app/playback"
	"github.com/osa030/folioplayer/internal/app/session"
	"github.com/osa030/folioplayer/internal/domain/playlist"
)

// ErrInvalidRequest marks request bodies that cannot be decoded or validated.
var ErrInvalidRequest = errors.New("invalid request")

var validate = validator.New()

// decode decodes a Struct message into out and validates it.
func decode(msg *structpb.Struct, out any) error {
	input := map[string]any{}
	if msg != nil {
		input = msg.AsMap()
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(input); err != nil {
		return errors.Mark(errors.Wrap(err, "malformed request"), ErrInvalidRequest)
	}
	if err := validate.Struct(out); err != nil {
		return errors.Mark(errors.Wrap(err, "request validation failed"), ErrInvalidRequest)
	}
	return nil
}

// respond wraps a generic map into a Struct response.
func respond(body map[string]any) (*connect.Response[structpb.Struct], error) {
	msg, err := structpb.NewStruct(body)
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, errors.Wrap(err, "failed to encode response"))
	}
	return connect.NewResponse(msg), nil
}

// toConnectError maps domain errors to connect error codes.
func toConnectError(err error) error {
	if err == nil {
		return nil
	}

	var code connect.Code
	switch {
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, playback.ErrLoopClosed):
		code = connect.CodeNotFound
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, playback.ErrIndexOutOfRange),
		errors.Is(err, playback.ErrInvalidSeek),
		errors.Is(err, playlist.ErrEmpty),
		errors.Is(err, playlist.ErrInvalidTrack):
		code = connect.CodeInvalidArgument
	case errors.Is(err, session.ErrManagerClosed):
		code = connect.CodeUnavailable
	case errors.Is(err, context.Canceled):
		code = connect.CodeCanceled
	case errors.Is(err, context.DeadlineExceeded):
		code = connect.CodeDeadlineExceeded
	default:
		zlog.Error().Msgf("rpc: internal error: %v", err)
		code = connect.CodeInternal
	}
	return connect.NewError(code, err)
}
