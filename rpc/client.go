package rpc

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/tailored-agentic-units/converse/core/protocol"
)

// Client calls a remote session service. Errors returned by its methods
// match the kernel and completion sentinels the server mapped them from.
type Client struct {
	executeTurn  *connect.Client[TurnRequest, TurnResponse]
	clearHistory *connect.Client[emptypb.Empty, emptypb.Empty]
	setLanguage  *connect.Client[LanguageRequest, LanguageResponse]
	setModel     *connect.Client[ModelRequest, ModelResponse]
	status       *connect.Client[emptypb.Empty, StatusResponse]
	history      *connect.Client[emptypb.Empty, HistoryResponse]
	translate    *connect.Client[TranslateRequest, TranslateResponse]
}

// NewClient creates a Client for the service at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)

	return &Client{
		executeTurn:  connect.NewClient[TurnRequest, TurnResponse](httpClient, baseURL+ExecuteTurnProcedure, opts...),
		clearHistory: connect.NewClient[emptypb.Empty, emptypb.Empty](httpClient, baseURL+ClearHistoryProcedure, opts...),
		setLanguage:  connect.NewClient[LanguageRequest, LanguageResponse](httpClient, baseURL+SetLanguageProcedure, opts...),
		setModel:     connect.NewClient[ModelRequest, ModelResponse](httpClient, baseURL+SetModelProcedure, opts...),
		status:       connect.NewClient[emptypb.Empty, StatusResponse](httpClient, baseURL+StatusProcedure, opts...),
		history:      connect.NewClient[emptypb.Empty, HistoryResponse](httpClient, baseURL+HistoryProcedure, opts...),
		translate:    connect.NewClient[TranslateRequest, TranslateResponse](httpClient, baseURL+TranslateProcedure, opts...),
	}
}

func (c *Client) ExecuteTurn(ctx context.Context, text string, speak bool) (*TurnResponse, error) {
	return call(ctx, c.executeTurn, &TurnRequest{Text: text, Speak: speak})
}

func (c *Client) ClearHistory(ctx context.Context) error {
	_, err := call(ctx, c.clearHistory, &emptypb.Empty{})
	return err
}

// SetLanguage sets the language mode; an empty mode toggles it.
func (c *Client) SetLanguage(ctx context.Context, mode string) (*LanguageResponse, error) {
	return call(ctx, c.setLanguage, &LanguageRequest{Mode: mode})
}

// SetModel sets the active model by name.
func (c *Client) SetModel(ctx context.Context, model string) (string, error) {
	res, err := call(ctx, c.setModel, &ModelRequest{Model: model})
	if err != nil {
		return "", err
	}
	return res.Model, nil
}

// ChooseModel selects a model from the server's probed list by 1-based
// choice, falling back to the server's default.
func (c *Client) ChooseModel(ctx context.Context, choice string) (string, error) {
	res, err := call(ctx, c.setModel, &ModelRequest{Choice: choice})
	if err != nil {
		return "", err
	}
	return res.Model, nil
}

func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	return call(ctx, c.status, &emptypb.Empty{})
}

func (c *Client) History(ctx context.Context) ([]protocol.Message, error) {
	res, err := call(ctx, c.history, &emptypb.Empty{})
	if err != nil {
		return nil, err
	}
	return res.Messages, nil
}

func (c *Client) Translate(ctx context.Context, text string) (*TranslateResponse, error) {
	return call(ctx, c.translate, &TranslateRequest{Text: text})
}

func call[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], msg *Req) (*Res, error) {
	res, err := c.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, fromConnect(err)
	}
	return res.Msg, nil
}
