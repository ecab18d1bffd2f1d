package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/ceros-embed/ceros-embed/internal/configscreen"
	"github.com/ceros-embed/ceros-embed/internal/fieldmap"
	"github.com/labstack/echo/v5"
)

type configResponse struct {
	configscreen.State
	Message string `json:"message,omitempty"`
}

type deriveResponse struct {
	configscreen.Derived
	Valid        bool                                  `json:"valid"`
	Error        string                                `json:"error,omitempty"`
	Message      string                                `json:"message,omitempty"`
	FieldOptions map[string][]fieldmap.FieldDescriptor `json:"fieldOptions,omitempty"`
}

type configureRequest struct {
	configscreen.Draft
	TargetState json.RawMessage `json:"targetState,omitempty"`
}

// HandleGetConfig renders the configuration screen state.
func (h *Handlers) HandleGetConfig(c *echo.Context) error {
	state, err := h.Screen.Load(c.Request().Context())
	if err != nil {
		return h.renderFailure(c, err, nil)
	}
	return c.JSON(http.StatusOK, configResponse{State: state, Message: configscreen.UserMessage(state.Derived.Err)})
}

// HandleDeriveConfig recomputes the derived screen state for a draft without saving it.
func (h *Handlers) HandleDeriveConfig(c *echo.Context) error {
	var draft configscreen.Draft
	if err := decodeJSON(c, &draft); err != nil {
		return h.renderFailure(c, err, nil)
	}
	derived, err := h.Screen.Preview(c.Request().Context(), draft)
	if err != nil {
		return h.renderFailure(c, err, nil)
	}

	resp := deriveResponse{Derived: derived, Valid: derived.Err == nil}
	if derived.Err != nil {
		_, resp.Error, resp.Message = classify(derived.Err)
	}
	if derived.SelectedType != nil {
		resp.FieldOptions = map[string][]fieldmap.FieldDescriptor{
			"title":     configscreen.FieldOptions(*derived.SelectedType, "title"),
			"url":       configscreen.FieldOptions(*derived.SelectedType, "url"),
			"embedCode": configscreen.FieldOptions(*derived.SelectedType, "embedCode"),
		}
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleConfigure is the save hook of the configuration screen.
func (h *Handlers) HandleConfigure(c *echo.Context) error {
	var req configureRequest
	if err := decodeJSON(c, &req); err != nil {
		return h.renderFailure(c, err, nil)
	}
	res, err := h.Screen.Configure(c.Request().Context(), req.Draft, req.TargetState)
	if err != nil {
		return h.renderFailure(c, err, nil)
	}
	return c.JSON(http.StatusOK, res)
}
