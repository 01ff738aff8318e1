// internal/app/features/errors/logger.go
package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/tutorhub/internal/app/system/apierr"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const genericMessage = "Something went wrong, please try again later"

// ErrorLogger turns handler errors into JSON responses and logs the ones
// the client must not see.
type ErrorLogger struct {
	log *zap.Logger
	dev bool
}

// NewErrorLogger builds an ErrorLogger. In dev mode client errors also
// carry their cause in the "error" field.
func NewErrorLogger(logger *zap.Logger, dev bool) *ErrorLogger {
	return &ErrorLogger{log: logger, dev: dev}
}

// Write responds for err. *apierr.Error values keep their status and
// message; anything else is logged and answered with a generic 500.
func (e *ErrorLogger) Write(w http.ResponseWriter, r *http.Request, err error) {
	kind := apierr.KindOf(err)
	if kind == apierr.KindInternal {
		e.LogServerError(w, r, "unhandled error", err)
		return
	}

	body := Body{Message: err.Error()}
	var ae *apierr.Error
	if stderrors.As(err, &ae) {
		body.Message = ae.Message
		if e.dev && ae.Err != nil {
			body.Error = ae.Err.Error()
		}
	}
	WriteJSON(w, kind.Status(), body)
}

// LogServerError logs err with request context and writes a generic 500.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	e.log.Error(msg,
		zap.Error(err),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
	WriteMessage(w, http.StatusInternalServerError, genericMessage)
}

// LogBadRequest logs err at debug level and writes a 400 with userMsg.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.log.Debug(msg,
		zap.Error(err),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("path", r.URL.Path),
	)
	body := Body{Message: userMsg}
	if e.dev && err != nil {
		body.Error = err.Error()
	}
	WriteJSON(w, http.StatusBadRequest, body)
}
