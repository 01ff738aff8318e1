// internal/app/features/messages/handler.go
package messages

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	messagestore "github.com/dalemusser/tutorhub/internal/app/store/messages"
	userstore "github.com/dalemusser/tutorhub/internal/app/store/users"
	"github.com/dalemusser/tutorhub/internal/app/system/apierr"
	"github.com/dalemusser/tutorhub/internal/app/system/authz"
	"github.com/dalemusser/tutorhub/internal/app/system/formutil"
	"github.com/dalemusser/tutorhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/tutorhub/internal/app/system/limits"
	"github.com/dalemusser/tutorhub/internal/app/system/paging"
	"github.com/dalemusser/tutorhub/internal/app/system/storage"
	"github.com/dalemusser/tutorhub/internal/app/system/timeouts"
	"github.com/dalemusser/tutorhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const storageArea = "messages"

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

type Handler struct {
	Messages *messagestore.Store
	Users    *userstore.Store
	Storage  storage.Gateway
	ErrLog   *uierrors.ErrorLogger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, gw storage.Gateway, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Messages: messagestore.New(db),
		Users:    userstore.New(db),
		Storage:  gw,
		ErrLog:   errLog,
		Log:      logger,
	}
}

type messageInput struct {
	Subject string `json:"subject" validate:"required,max=150" label:"Subject"`
	Body    string `json:"body" validate:"required,max=2000" label:"Message"`
}

// View is a message with its author expanded.
type View struct {
	models.Message
	CreatedBy models.UserSummary `json:"created_by"`
}

// HandleCreate handles POST /api/messages. The body is JSON or multipart
// with an optional "image" part. An uploaded image is removed again if the
// message cannot be stored.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var (
		in messageInput
		fh *multipart.FileHeader
	)
	if formutil.IsMultipart(r) {
		if err := formutil.ParseMultipart(w, r, limits.MaxMessageImageSize); err != nil {
			h.ErrLog.Write(w, r, err)
			return
		}
		defer r.MultipartForm.RemoveAll()
		in.Subject = r.FormValue("subject")
		in.Body = r.FormValue("body")
		if files := r.MultipartForm.File["image"]; len(files) > 0 && files[0].Size > 0 {
			fh = files[0]
		}
	} else if err := formutil.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	in.Subject = strings.TrimSpace(in.Subject)
	in.Body = strings.TrimSpace(htmlsanitize.PlainText(in.Body))
	if err := formutil.Check(in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}

	var ct string
	if fh != nil {
		var err error
		if ct, err = checkImage(fh); err != nil {
			h.ErrLog.Write(w, r, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Upload())
	defer cancel()

	msg := models.Message{
		CreatedBy: authz.UserID(r),
		Subject:   in.Subject,
		Body:      in.Body,
	}
	if fh != nil {
		obj, err := h.put(ctx, fh, ct)
		if err != nil {
			h.ErrLog.LogServerError(w, r, "message image upload failed", err)
			return
		}
		msg.ImageURL, msg.ImageID = obj.URL, obj.ID
	}

	saved, err := h.Messages.Create(ctx, msg)
	if err != nil {
		if msg.ImageID != "" {
			if derr := h.Storage.Delete(ctx, msg.ImageID); derr != nil {
				h.Log.Warn("orphaned message image", zap.String("id", msg.ImageID), zap.Error(derr))
			}
		}
		if errors.Is(err, messagestore.ErrSubjectInvalid) || errors.Is(err, messagestore.ErrBodyInvalid) {
			h.ErrLog.Write(w, r, apierr.BadRequest(err.Error()))
			return
		}
		h.ErrLog.LogServerError(w, r, "database error creating message", err)
		return
	}

	uierrors.WriteJSON(w, http.StatusCreated, map[string]any{
		"msg":     "Message sent",
		"message": saved,
	})
}

func checkImage(fh *multipart.FileHeader) (string, error) {
	if fh.Size > limits.MaxMessageImageSize {
		return "", apierr.BadRequest(fmt.Sprintf("Image too large (max %d MB)", limits.MaxMessageImageSize>>20))
	}
	ct, _, err := mime.ParseMediaType(fh.Header.Get("Content-Type"))
	if err != nil || ct == "application/octet-stream" {
		f, oerr := fh.Open()
		if oerr != nil {
			return "", fmt.Errorf("open upload: %w", oerr)
		}
		buf := make([]byte, 512)
		n, _ := io.ReadFull(f, buf)
		f.Close()
		ct, _, _ = mime.ParseMediaType(http.DetectContentType(buf[:n]))
	}
	if !imageTypes[ct] {
		return "", apierr.BadRequest("Only JPEG, PNG, GIF or WebP images are allowed")
	}
	return ct, nil
}

func (h *Handler) put(ctx context.Context, fh *multipart.FileHeader, ct string) (storage.Object, error) {
	f, err := fh.Open()
	if err != nil {
		return storage.Object{}, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return h.Storage.Put(ctx, storageArea, fh.Filename, f, fh.Size, ct)
}

// ServeList handles GET /api/messages. Students see their own messages;
// staff see everyone's. ?limit caps the result at paging.MaxLimit.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	limit := int64(paging.MaxLimit)
	if n, err := strconv.Atoi(query.Get(r, "limit")); err == nil && n > 0 && n < paging.MaxLimit {
		limit = int64(n)
	}
	var author *primitive.ObjectID
	if !authz.IsStaff(r) {
		id := authz.UserID(r)
		author = &id
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	msgs, err := h.Messages.List(ctx, author, limit)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error listing messages", err)
		return
	}

	ids := make([]primitive.ObjectID, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.CreatedBy)
	}
	authors, err := h.Users.Summaries(ctx, ids)
	if err != nil {
		h.ErrLog.LogServerError(w, r, "database error loading message authors", err)
		return
	}

	out := make([]View, 0, len(msgs))
	for _, m := range msgs {
		v := View{Message: m, CreatedBy: authors[m.CreatedBy]}
		if v.CreatedBy.ID.IsZero() {
			v.CreatedBy.ID = m.CreatedBy
		}
		out = append(out, v)
	}
	uierrors.WriteJSON(w, http.StatusOK, map[string]any{"messages": out})
}
