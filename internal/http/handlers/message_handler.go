// Messaging HTTP handlers.
//
// This file exposes REST endpoints for direct messages:
//   - POST /messages                   (send)
//   - GET  /conversations              (inbox summaries, ETag support)
//   - GET  /conversations/{user}       (one conversation, paginated)
//   - POST /conversations/{user}/read  (mark incoming messages read)
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-marketplace-backend/internal/domain"
	"github.com/tbourn/go-marketplace-backend/internal/repo"
	"github.com/tbourn/go-marketplace-backend/internal/services"
)

//
// DTOs
//

// SendMessageRequest is the JSON payload for sending a direct message.
type SendMessageRequest struct {
	RecipientID string `json:"recipient_id" binding:"required" example:"provider123"`
	Body        string `json:"body" example:"Is Tuesday morning possible?"`
	Type        string `json:"type" example:"text"`
	FileURL     string `json:"file_url,omitempty"`
	FileSize    int64  `json:"file_size,omitempty"`
}

// ConversationResponse wraps a page of messages and pagination information.
type ConversationResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

//
// Handlers
//

// SendMessage godoc
// @ID          sendMessage
// @Summary     Send a direct message
// @Description Persists a message to another user. File and image messages may omit the body when a file URL is present.
// @Tags        Messages
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(client123)
// @Param       body       body    handlers.SendMessageRequest  true  "Message payload"
//
// @Success     201  {object}  domain.Message
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Recipient not found"
// @Router      /messages [post]
func (h *Handlers) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "recipient_id required")
		return
	}

	m, err := h.msgSvc.Send(c.Request.Context(), userID(c), services.SendInput{
		RecipientID: req.RecipientID,
		Body:        req.Body,
		Type:        req.Type,
		FileURL:     req.FileURL,
		FileSize:    req.FileSize,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSelfMessage),
			errors.Is(err, services.ErrEmptyMessage),
			errors.Is(err, services.ErrTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		case errors.Is(err, services.ErrProfileNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "recipient not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSendFailed, err.Error())
		}
		return
	}
	ok(c, http.StatusCreated, m)
}

// ListConversations godoc
// @ID          listConversations
// @Summary     List the caller's conversations
// @Description Returns one summary per conversation partner, most recently active first. Supports weak ETag via If-None-Match.
// @Tags        Messages
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(client123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"
//
// @Success     200  {array}   services.ConversationSummary
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string  "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations [get]
func (h *Handlers) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, okSvc := h.msgSvc.(*services.MessageService); okSvc {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.ConversationStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"conversations:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	sums, err := h.msgSvc.Conversations(ctx, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, sums)
}

// ListConversation godoc
// @ID          listConversation
// @Summary     List one conversation
// @Description Returns a page of the conversation with the given user in chronological order.
// @Tags        Messages
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(client123)
// @Param       user       path    string  true  "Conversation partner's user id"
// @Param       page       query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.ConversationResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations/{user} [get]
func (h *Handlers) ListConversation(c *gin.Context) {
	page, pageSize := clampPagination(c)

	msgs, total, err := h.msgSvc.ListConversation(c.Request.Context(), userID(c), c.Param("user"), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ConversationResponse{
		Messages:   msgs,
		Pagination: buildPagination(page, pageSize, total),
	})
}

// MarkConversationRead godoc
// @ID          markConversationRead
// @Summary     Mark a conversation read
// @Description Marks every message from the given user to the caller as read.
// @Tags        Messages
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(client123)
// @Param       user       path    string  true  "Conversation partner's user id"
//
// @Success     200  {object}  map[string]int64
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /conversations/{user}/read [post]
func (h *Handlers) MarkConversationRead(c *gin.Context) {
	n, err := h.msgSvc.MarkRead(c.Request.Context(), userID(c), c.Param("user"))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, gin.H{"marked_read": n})
}
