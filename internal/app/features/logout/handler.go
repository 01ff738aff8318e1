// internal/app/features/logout/handler.go
package logout

import (
	"net/http"

	uierrors "github.com/dalemusser/tutorhub/internal/app/features/errors"
	"github.com/dalemusser/tutorhub/internal/app/system/auditlog"
	"github.com/dalemusser/tutorhub/internal/app/system/auth"
	"go.uber.org/zap"
)

type Handler struct {
	Log      *zap.Logger
	Tokens   *auth.TokenManager
	AuditLog *auditlog.Logger
}

func NewHandler(tokens *auth.TokenManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Log:      logger,
		Tokens:   tokens,
		AuditLog: audit,
	}
}

// HandleLogout handles POST /api/auth/logout. The token is stateless, so
// logging out only expires the cookie.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var userID string
	if u, ok := auth.CurrentUser(r); ok {
		userID = u.ID
	}
	h.Tokens.ClearCookie(w)
	h.AuditLog.Logout(r.Context(), userID)

	uierrors.WriteJSON(w, http.StatusOK, map[string]string{"msg": "User logged out"})
}
