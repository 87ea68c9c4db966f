// Package rpc exposes the single conversation session over connect unary
// procedures, with a matching client.
package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/tailored-agentic-units/converse/core/protocol"
	"github.com/tailored-agentic-units/converse/kernel"
	"github.com/tailored-agentic-units/converse/observability"
)

const ServiceName = "converse.v1.SessionService"

const (
	ExecuteTurnProcedure  = "/" + ServiceName + "/ExecuteTurn"
	ClearHistoryProcedure = "/" + ServiceName + "/ClearHistory"
	SetLanguageProcedure  = "/" + ServiceName + "/SetLanguage"
	SetModelProcedure     = "/" + ServiceName + "/SetModel"
	StatusProcedure       = "/" + ServiceName + "/Status"
	HistoryProcedure      = "/" + ServiceName + "/History"
	TranslateProcedure    = "/" + ServiceName + "/Translate"
)

// EventRequest is emitted once per handled procedure.
const EventRequest observability.EventType = "rpc.request"

// Session is the session manager surface served over rpc.
// *kernel.Kernel implements it.
type Session interface {
	ExecuteTurnWith(ctx context.Context, text string, opts kernel.TurnOptions) (*kernel.TurnResult, error)
	ClearHistory()
	SetLanguageMode(mode kernel.LanguageMode) error
	ToggleLanguageMode() kernel.LanguageMode
	SetModel(name string) error
	ChooseModel(override string) (string, error)
	Config() kernel.SessionConfig
	Status() kernel.Status
	History() []protocol.Message
	Translate(ctx context.Context, text string) string
}

type service struct {
	session Session
}

// NewHandler builds the HTTP handler serving every session procedure. The
// returned path is the service prefix to mount it under.
func NewHandler(s Session, opts ...connect.HandlerOption) (string, http.Handler) {
	svc := &service{session: s}
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(ExecuteTurnProcedure, connect.NewUnaryHandler(ExecuteTurnProcedure, svc.executeTurn, opts...))
	mux.Handle(ClearHistoryProcedure, connect.NewUnaryHandler(ClearHistoryProcedure, svc.clearHistory, opts...))
	mux.Handle(SetLanguageProcedure, connect.NewUnaryHandler(SetLanguageProcedure, svc.setLanguage, opts...))
	mux.Handle(SetModelProcedure, connect.NewUnaryHandler(SetModelProcedure, svc.setModel, opts...))
	mux.Handle(StatusProcedure, connect.NewUnaryHandler(StatusProcedure, svc.status, opts...))
	mux.Handle(HistoryProcedure, connect.NewUnaryHandler(HistoryProcedure, svc.history, opts...))
	mux.Handle(TranslateProcedure, connect.NewUnaryHandler(TranslateProcedure, svc.translate, opts...))

	return "/" + ServiceName + "/", mux
}

func (s *service) executeTurn(ctx context.Context, req *connect.Request[TurnRequest]) (*connect.Response[TurnResponse], error) {
	result, err := s.session.ExecuteTurnWith(ctx, req.Msg.Text, kernel.TurnOptions{Speak: req.Msg.Speak})
	if err != nil {
		return nil, toConnect(err)
	}
	return connect.NewResponse(turnResponse(result)), nil
}

func (s *service) clearHistory(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[emptypb.Empty], error) {
	s.session.ClearHistory()
	return connect.NewResponse(&emptypb.Empty{}), nil
}

func (s *service) setLanguage(ctx context.Context, req *connect.Request[LanguageRequest]) (*connect.Response[LanguageResponse], error) {
	if req.Msg.Mode == "" {
		s.session.ToggleLanguageMode()
	} else {
		mode, err := kernel.ParseLanguageMode(req.Msg.Mode)
		if err != nil {
			return nil, toConnect(err)
		}
		if err := s.session.SetLanguageMode(mode); err != nil {
			return nil, toConnect(err)
		}
	}

	cfg := s.session.Config()
	return connect.NewResponse(&LanguageResponse{
		Mode:           string(cfg.LanguageMode),
		TargetLanguage: cfg.TargetLanguage,
	}), nil
}

func (s *service) setModel(ctx context.Context, req *connect.Request[ModelRequest]) (*connect.Response[ModelResponse], error) {
	if req.Msg.Model != "" {
		if err := s.session.SetModel(req.Msg.Model); err != nil {
			return nil, toConnect(err)
		}
		return connect.NewResponse(&ModelResponse{Model: s.session.Config().ActiveModel}), nil
	}

	model, err := s.session.ChooseModel(req.Msg.Choice)
	if err != nil {
		return nil, toConnect(err)
	}
	return connect.NewResponse(&ModelResponse{Model: model}), nil
}

func (s *service) status(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[StatusResponse], error) {
	return connect.NewResponse(statusResponse(s.session.Status())), nil
}

func (s *service) history(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[HistoryResponse], error) {
	return connect.NewResponse(&HistoryResponse{Messages: s.session.History()}), nil
}

func (s *service) translate(ctx context.Context, req *connect.Request[TranslateRequest]) (*connect.Response[TranslateResponse], error) {
	if req.Msg.Text == "" {
		return nil, toConnect(kernel.ErrInputEmpty)
	}
	return connect.NewResponse(&TranslateResponse{
		Text:           req.Msg.Text,
		Translated:     s.session.Translate(ctx, req.Msg.Text),
		TargetLanguage: s.session.Config().TargetLanguage,
	}), nil
}

// ObserverInterceptor emits an EventRequest for every unary call it wraps.
func ObserverInterceptor(o observability.Observer) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			res, err := next(ctx, req)

			level := observability.LevelInfo
			code := "ok"
			if err != nil {
				level = observability.LevelWarning
				code = connect.CodeOf(err).String()
			}
			o.OnEvent(ctx, observability.NewEvent(EventRequest, level, "rpc", map[string]any{
				"procedure":   req.Spec().Procedure,
				"code":        code,
				"duration_ms": time.Since(start).Milliseconds(),
			}))

			return res, err
		}
	}
}

// Serve serves the session on ln until ctx is cancelled, then shuts down
// gracefully.
func Serve(ctx context.Context, ln net.Listener, s Session, observer observability.Observer) error {
	path, handler := NewHandler(s, connect.WithInterceptors(ObserverInterceptor(observer)))

	mux := http.NewServeMux()
	mux.Handle(path, handler)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return fmt.Errorf("rpc server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("rpc server shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
