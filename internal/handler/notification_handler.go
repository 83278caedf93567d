package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sgpti/sgpti-api/internal/dto"
	"github.com/sgpti/sgpti-api/internal/service"
	"github.com/sgpti/sgpti-api/internal/utils"
)

// NotificationHandler manages the inbox and its SSE stream.
type NotificationHandler struct {
	service   service.NotificationService
	logger    zerolog.Logger
	keepAlive time.Duration
	lifetime  context.Context
}

// NewNotificationHandler constructs a handler instance.
func NewNotificationHandler(service service.NotificationService, logger zerolog.Logger, keepAlive time.Duration) *NotificationHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &NotificationHandler{
		service:   service,
		logger:    logger.With().Str("component", "notification_handler").Logger(),
		keepAlive: keepAlive,
		lifetime:  context.Background(),
	}
}

// StopStreamsOn closes open streams once ctx is done.
func (h *NotificationHandler) StopStreamsOn(ctx context.Context) *NotificationHandler {
	if ctx != nil {
		h.lifetime = ctx
	}
	return h
}

// Register binds the notification routes.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Get("/", h.list)
	router.Get("/unread-count", h.unreadCount)
	router.Get("/stream", h.stream)
	router.Put("/read-all", h.markAllRead)
	router.Put("/:id/read", h.markRead)
}

func (h *NotificationHandler) list(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return sendUnauthenticated(c)
	}

	var query dto.NotificationListQuery
	if err := c.QueryParser(&query); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid query")
	}

	result, err := h.service.List(c.UserContext(), userID, query)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list notifications")
	}
	return utils.OK(c, result.Items, "notifications retrieved", fiber.Map{
		"total":  result.Total,
		"unread": result.Unread,
	})
}

func (h *NotificationHandler) unreadCount(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return sendUnauthenticated(c)
	}

	count, err := h.service.UnreadCount(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to count notifications")
	}
	return utils.SendSuccess(c, "unread notifications counted", dto.UnreadCountResponse{Count: count})
}

func (h *NotificationHandler) markRead(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return sendUnauthenticated(c)
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid notification id")
	}

	item, err := h.service.MarkRead(c.UserContext(), id, userID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update notification")
	}
	return utils.SendSuccess(c, "notification updated", item)
}

func (h *NotificationHandler) markAllRead(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return sendUnauthenticated(c)
	}

	updated, err := h.service.MarkAllRead(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update notifications")
	}
	return utils.SendSuccess(c, "notifications updated", dto.MarkAllReadResponse{Updated: updated})
}

func (h *NotificationHandler) stream(c *fiber.Ctx) error {
	userID := userIDFromContext(c)
	if userID == 0 {
		return sendUnauthenticated(c)
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// The body writer outlives the handler, so it is bound to the server lifetime.
	ctx, cancel := context.WithCancel(h.lifetime)
	stream, cleanup := h.service.Subscribe(userID)
	interval := h.keepAlive

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			cleanup()
			cancel()
		}()

		if err := writeKeepAlive(w); err != nil {
			return
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case item, ok := <-stream:
				if !ok {
					return
				}
				if err := writeNotificationEvent(w, item); err != nil {
					h.logger.Debug().Err(err).Uint("user_id", userID).Msg("failed to write notification event")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					h.logger.Debug().Err(err).Uint("user_id", userID).Msg("notification stream closed")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

func writeNotificationEvent(w *bufio.Writer, item dto.NotificationResponse) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "id: %d\nevent: notification\ndata: %s\n\n", item.ID, payload); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
