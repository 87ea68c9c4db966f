package rpc

import (
	"github.com/tailored-agentic-units/converse/core/protocol"
	"github.com/tailored-agentic-units/converse/kernel"
)

// TurnRequest runs one conversational turn.
type TurnRequest struct {
	Text  string `json:"text"`
	Speak bool   `json:"speak,omitempty"`
}

// TurnResponse carries the outcome of a successful turn.
type TurnResponse struct {
	DisplayText string `json:"display_text"`
	RawText     string `json:"raw_text"`
	Model       string `json:"model"`
	Translated  bool   `json:"translated"`
	Spoken      bool   `json:"spoken"`
}

// LanguageRequest sets the reply language mode. An empty Mode toggles it.
type LanguageRequest struct {
	Mode string `json:"mode,omitempty"`
}

type LanguageResponse struct {
	Mode           string `json:"mode"`
	TargetLanguage string `json:"target_language"`
}

// ModelRequest sets the active model, either by name or by a 1-based
// Choice from the probed model list. Model wins when both are set.
type ModelRequest struct {
	Model  string `json:"model,omitempty"`
	Choice string `json:"choice,omitempty"`
}

type ModelResponse struct {
	Model string `json:"model"`
}

type StatusResponse struct {
	SessionID       string            `json:"session_id"`
	State           string            `json:"state"`
	ActiveModel     string            `json:"active_model"`
	LanguageMode    string            `json:"language_mode"`
	TargetLanguage  string            `json:"target_language"`
	Capabilities    map[string]string `json:"capabilities"`
	AvailableModels []string          `json:"available_models,omitempty"`
	HistoryLength   int               `json:"history_length"`
	Exchanges       int               `json:"exchanges"`
	Summary         string            `json:"summary"`
	WindowTokens    int               `json:"window_tokens,omitempty"`
}

type HistoryResponse struct {
	Messages []protocol.Message `json:"messages"`
}

type TranslateRequest struct {
	Text string `json:"text"`
}

type TranslateResponse struct {
	Text           string `json:"text"`
	Translated     string `json:"translated"`
	TargetLanguage string `json:"target_language"`
}

func turnResponse(r *kernel.TurnResult) *TurnResponse {
	return &TurnResponse{
		DisplayText: r.DisplayText,
		RawText:     r.RawText,
		Model:       r.ModelUsed,
		Translated:  r.Translated,
		Spoken:      r.Spoken,
	}
}

func statusResponse(st kernel.Status) *StatusResponse {
	caps := make(map[string]string, len(st.Capabilities))
	for name, state := range st.Capabilities {
		caps[string(name)] = state.String()
	}

	return &StatusResponse{
		SessionID:       st.SessionID,
		State:           st.State.String(),
		ActiveModel:     st.ActiveModel,
		LanguageMode:    string(st.LanguageMode),
		TargetLanguage:  st.TargetLanguage,
		Capabilities:    caps,
		AvailableModels: st.AvailableModels,
		HistoryLength:   st.HistoryLength,
		Exchanges:       st.Exchanges,
		Summary:         st.Summary,
		WindowTokens:    st.WindowTokens,
	}
}
