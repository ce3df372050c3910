// Notification HTTP handlers.
//
//   - GET  /notifications               (list, newest first)
//   - GET  /notifications/unread_count (badge counter)
//   - POST /notifications/{id}/read    (acknowledge one)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ListNotifications godoc
// @ID          listNotifications
// @Summary     List the caller's notifications
// @Tags        Notifications
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(client123)
//
// @Success     200  {array}   domain.Notification
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /notifications [get]
func (h *Handlers) ListNotifications(c *gin.Context) {
	items, err := h.notifSvc.List(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, items)
}

// UnreadNotificationCount godoc
// @ID          unreadNotificationCount
// @Summary     Count unread notifications
// @Tags        Notifications
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(client123)
//
// @Success     200  {object}  map[string]int64
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /notifications/unread_count [get]
func (h *Handlers) UnreadNotificationCount(c *gin.Context) {
	n, err := h.notifSvc.UnreadCount(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"unread": n})
}

// MarkNotificationRead godoc
// @ID          markNotificationRead
// @Summary     Mark a notification read
// @Tags        Notifications
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(client123)
// @Param       id         path    string  true  "Notification ID (UUID)"  format(uuid)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Notification not found"
// @Router      /notifications/{id}/read [post]
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "notification id must be a UUID")
		return
	}

	if err := h.notifSvc.MarkRead(c.Request.Context(), userID(c), id); err != nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "notification not found")
		return
	}
	noContent(c)
}
