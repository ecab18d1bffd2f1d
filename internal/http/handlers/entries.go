package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/ceros-embed/ceros-embed/internal/entryeditor"
	"github.com/labstack/echo/v5"
)

type linkRequest struct {
	URL string `json:"url"`
}

type entryOperation func(ctx context.Context, ed *entryeditor.Editor) error

// HandleGetEntry renders the entry editor for one entry.
func (h *Handlers) HandleGetEntry(c *echo.Context) error {
	ed, err := h.loadEditor(c.Request().Context(), c.Param("id"))
	if err != nil {
		return h.renderFailure(c, err, nil)
	}
	return c.JSON(http.StatusOK, ed.View())
}

func (h *Handlers) HandleLinkEntry(c *echo.Context) error {
	var req linkRequest
	if err := decodeJSON(c, &req); err != nil {
		return h.renderFailure(c, err, nil)
	}
	return h.runEntryOperation(c, func(ctx context.Context, ed *entryeditor.Editor) error {
		return ed.LinkExperience(ctx, req.URL)
	})
}

func (h *Handlers) HandleUnlinkEntry(c *echo.Context) error {
	return h.runEntryOperation(c, func(ctx context.Context, ed *entryeditor.Editor) error {
		return ed.UnlinkExperience(ctx)
	})
}

func (h *Handlers) HandleRefreshEntry(c *echo.Context) error {
	return h.runEntryOperation(c, func(ctx context.Context, ed *entryeditor.Editor) error {
		return ed.RefreshEmbedCode(ctx)
	})
}

func (h *Handlers) runEntryOperation(c *echo.Context, op entryOperation) error {
	id := strings.TrimSpace(c.Param("id"))
	unlock, ok := h.Locks.TryLock(id)
	if !ok {
		return h.renderFailure(c, entryeditor.ErrBusy, nil)
	}
	defer unlock()

	ctx := c.Request().Context()
	ed, err := h.loadEditor(ctx, id)
	if err != nil {
		return h.renderFailure(c, err, nil)
	}
	if err := op(ctx, ed); err != nil {
		view := ed.View()
		return h.renderFailure(c, err, &view)
	}
	return c.JSON(http.StatusOK, ed.View())
}

func (h *Handlers) loadEditor(ctx context.Context, id string) (*entryeditor.Editor, error) {
	params, err := h.Params.LoadParameters(ctx)
	if err != nil {
		return nil, err
	}
	entry, err := h.Entries.LoadEntry(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	return entryeditor.Load(entry, params, h.Fetcher, h.Logger)
}
