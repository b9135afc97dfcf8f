package connect

import (
	"context"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls the player and admin services with generic map bodies.
type Client struct {
	httpClient connect.HTTPClient
	baseURL    string
	opts       []connect.ClientOption
}

// NewClient creates a client for the server at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		opts:       opts,
	}
}

// Call invokes a unary procedure and returns the response body.
func (c *Client) Call(ctx context.Context, procedure string, body map[string]any) (map[string]any, error) {
	msg, err := structpb.NewStruct(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode request")
	}

	client := connect.NewClient[structpb.Struct, structpb.Struct](c.httpClient, c.baseURL+procedure, c.opts...)
	resp, err := client.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return resp.Msg.AsMap(), nil
}

// Subscribe opens the notification stream of a session. handle is called
// for every message until the stream ends or handle returns an error.
func (c *Client) Subscribe(ctx context.Context, sessionID string, handle func(map[string]any) error) error {
	msg, err := structpb.NewStruct(map[string]any{"sessionId": sessionID})
	if err != nil {
		return errors.Wrap(err, "failed to encode request")
	}

	client := connect.NewClient[structpb.Struct, structpb.Struct](c.httpClient, c.baseURL+PlayerSubscribeProcedure, c.opts...)
	stream, err := client.CallServerStream(ctx, connect.NewRequest(msg))
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Receive() {
		if err := handle(stream.Msg().AsMap()); err != nil {
			return err
		}
	}
	return stream.Err()
}
