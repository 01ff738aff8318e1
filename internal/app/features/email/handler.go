// internal/app/features/email/handler.go
package email

import (
	"net/http"
	"strings"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	"github.com/dalemusser/tutorhub/internal/app/system/apierr"
	"github.com/dalemusser/tutorhub/internal/app/system/auth"
	"github.com/dalemusser/tutorhub/internal/app/system/formutil"
	"github.com/dalemusser/tutorhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/tutorhub/internal/app/system/mailer"
	"go.uber.org/zap"
)

// Handler sends mail on demand: the direct feedback notification and the
// admin's SMTP check. Unlike queued notifications, a delivery failure here
// is reported to the caller.
type Handler struct {
	Sender     mailer.Sender
	AdminEmail string
	SiteName   string
	ErrLog     *uierrors.ErrorLogger
	Log        *zap.Logger
}

func NewHandler(sender mailer.Sender, adminEmail, siteName string, errLog *uierrors.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		Sender:     sender,
		AdminEmail: strings.TrimSpace(adminEmail),
		SiteName:   siteName,
		ErrLog:     errLog,
		Log:        logger,
	}
}

type notifyInput struct {
	StudentName  string `json:"studentName" validate:"required" label:"studentName"`
	StudentEmail string `json:"studentEmail" validate:"required,email" label:"studentEmail"`
	Rating       int    `json:"rating" validate:"required,min=1,max=5" label:"rating"`
	Message      string `json:"message" validate:"required,max=2000" label:"message"`
	Course       string `json:"course" validate:"max=100" label:"course"`
	TutorName    string `json:"tutorName" validate:"max=100" label:"tutorName"`
}

// HandleFeedbackNotify handles POST /api/email/feedback-notify.
func (h *Handler) HandleFeedbackNotify(w http.ResponseWriter, r *http.Request) {
	var in notifyInput
	if err := formutil.DecodeJSON(w, r, &in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	in.Message = htmlsanitize.PlainText(in.Message)
	in.StudentName = strings.TrimSpace(in.StudentName)
	if in.StudentName == "" || in.StudentEmail == "" || in.Rating == 0 || in.Message == "" {
		h.ErrLog.Write(w, r, apierr.BadRequest("studentName, studentEmail, rating, and message are required"))
		return
	}
	if err := formutil.Check(in); err != nil {
		h.ErrLog.Write(w, r, err)
		return
	}
	if h.AdminEmail == "" {
		h.ErrLog.LogServerError(w, r, "feedback notify: admin_notify_email not set", mailer.ErrDisabled)
		return
	}

	e := mailer.BuildFeedbackEmail(mailer.FeedbackEmailData{
		SiteName:     h.SiteName,
		StudentName:  in.StudentName,
		StudentEmail: in.StudentEmail,
		TutorName:    strings.TrimSpace(in.TutorName),
		Course:       strings.TrimSpace(in.Course),
		Rating:       in.Rating,
		Message:      in.Message,
	})
	e.To = h.AdminEmail
	if err := h.Sender.Send(e); err != nil {
		h.ErrLog.LogServerError(w, r, "feedback notify: send failed", err)
		return
	}

	h.Log.Info("feedback notification sent", zap.String("to", h.AdminEmail))
	uierrors.WriteMessage(w, http.StatusOK, "Feedback notification email sent")
}

// HandleTestEmail handles GET /api/email/test-email. The message goes to
// the requesting admin.
func (h *Handler) HandleTestEmail(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)

	e := mailer.BuildTestEmail(mailer.TestEmailData{SiteName: h.SiteName, SentBy: u.Email})
	e.To = u.Email
	if err := h.Sender.Send(e); err != nil {
		h.ErrLog.LogServerError(w, r, "test email: send failed", err)
		return
	}
	uierrors.WriteMessage(w, http.StatusOK, "Email sent to "+u.Email)
}
