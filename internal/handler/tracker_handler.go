package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"followup-tracker/internal/feedback"
	"followup-tracker/internal/model"
	"followup-tracker/internal/service"
	"followup-tracker/internal/sse"
	"followup-tracker/internal/view"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
)

// MailboxAdvisory is the only detail shown to clients when a refresh cannot
// reach the mailbox.
const MailboxAdvisory = "Unable to reach the mailbox. Check your connection or sign in again, then refresh."

type TrackerHandler struct {
	tracker    service.TrackerService
	store      sessions.Store
	sseManager *sse.SSEManager
	logger     echo.Logger
}

func NewTrackerHandler(tracker service.TrackerService, store sessions.Store, sseManager *sse.SSEManager, logger echo.Logger) *TrackerHandler {
	return &TrackerHandler{
		tracker:    tracker,
		store:      store,
		sseManager: sseManager,
		logger:     logger,
	}
}

type actionRequest struct {
	Action string `json:"action"`
}

type filterRequest struct {
	Filter string `json:"filter"`
}

// resolveFilter uses the query parameter, then the session preference, then all.
func (h *TrackerHandler) resolveFilter(c echo.Context) (view.Filter, error) {
	if raw := c.QueryParam("filter"); raw != "" {
		return view.ParseFilter(raw)
	}
	session, err := h.store.Get(c.Request(), SessionName)
	if err == nil {
		if saved, ok := session.Values[sessionFilterKey].(string); ok {
			if filter, err := view.ParseFilter(saved); err == nil {
				return filter, nil
			}
		}
	}
	return view.FilterAll, nil
}

// GetMessages lists the active messages in display order
func (h *TrackerHandler) GetMessages(c echo.Context) error {
	filter, err := h.resolveFilter(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"filter":   filter,
		"messages": h.tracker.View(filter),
		"summary":  h.tracker.Stats(filter),
	})
}

// GetMessage returns one tracked message with its score breakdown
func (h *TrackerHandler) GetMessage(c echo.Context) error {
	detail, err := h.tracker.Message(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrMessageNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "Message not found",
			})
		}
		h.logger.Error("Failed to get message:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to get message",
		})
	}

	return c.JSON(http.StatusOK, detail)
}

// GetStats returns the total, pending and high-priority counts
func (h *TrackerHandler) GetStats(c echo.Context) error {
	filter, err := h.resolveFilter(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, h.tracker.Stats(filter))
}

// Refresh re-fetches the mailbox and re-scores the tracked set
func (h *TrackerHandler) Refresh(c echo.Context) error {
	result, err := h.tracker.Refresh(c.Request().Context())
	if err != nil {
		if errors.Is(err, service.ErrMailboxUnavailable) {
			return c.JSON(http.StatusBadGateway, map[string]string{
				"error": MailboxAdvisory,
			})
		}
		h.logger.Error("Failed to refresh:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to refresh messages",
		})
	}

	return c.JSON(http.StatusOK, result)
}

// MarkAction records a user action and updates the learned sender weight
func (h *TrackerHandler) MarkAction(c echo.Context) error {
	var req actionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	kind, err := model.ParseActionKind(req.Action)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	result, err := h.tracker.MarkAction(c.Request().Context(), c.Param("id"), kind)
	if err != nil {
		h.logger.Error("Failed to apply action:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to apply action",
		})
	}
	if result.Outcome == feedback.NotFound {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "Message not found",
		})
	}

	return c.JSON(http.StatusOK, result)
}

// ClearAll wipes the tracked state; it requires confirm=true
func (h *TrackerHandler) ClearAll(c echo.Context) error {
	if c.QueryParam("confirm") != "true" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Clearing all messages is irreversible; repeat with confirm=true",
		})
	}

	if err := h.tracker.ClearAll(c.Request().Context()); err != nil {
		h.logger.Error("Failed to clear messages:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to clear messages",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "All tracked messages cleared",
	})
}

// GetFilter returns the saved filter preference
func (h *TrackerHandler) GetFilter(c echo.Context) error {
	session, _ := h.store.Get(c.Request(), SessionName)
	filter := view.FilterAll
	if saved, ok := session.Values[sessionFilterKey].(string); ok {
		if parsed, err := view.ParseFilter(saved); err == nil {
			filter = parsed
		}
	}

	return c.JSON(http.StatusOK, map[string]view.Filter{
		"filter": filter,
	})
}

// SetFilter saves the filter preference in the session
func (h *TrackerHandler) SetFilter(c echo.Context) error {
	var req filterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}

	filter, err := view.ParseFilter(req.Filter)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	session, _ := h.store.Get(c.Request(), SessionName)
	session.Values[sessionFilterKey] = string(filter)
	if err := session.Save(c.Request(), c.Response()); err != nil {
		h.logger.Error("Failed to save session:", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Failed to save filter",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"filter":  filter,
		"summary": h.tracker.Stats(filter),
	})
}

// Events streams state changes as Server-Sent Events
func (h *TrackerHandler) Events(c echo.Context) error {
	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")

	clientChannel := h.sseManager.AddClient()
	defer h.sseManager.RemoveClient(clientChannel)

	initJSON, _ := json.Marshal(sse.Event{
		Type: "connection",
		Data: h.tracker.Stats(view.FilterAll),
		Time: time.Now().Unix(),
	})
	fmt.Fprintf(c.Response(), "data: %s\n\n", initJSON)
	c.Response().Flush()

	for {
		select {
		case eventData := <-clientChannel:
			fmt.Fprintf(c.Response(), "data: %s\n\n", eventData)
			c.Response().Flush()
		case <-h.sseManager.Done():
			return nil
		case <-c.Request().Context().Done():
			return nil
		}
	}
}
