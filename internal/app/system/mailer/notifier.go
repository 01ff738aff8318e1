// internal/app/system/mailer/notifier.go
package mailer

import (
	"strings"

	"github.com/dalemusser/tutorhub/internal/app/system/htmlsanitize"
	"go.uber.org/zap"
)

// NotifyConfig controls who hears about new feedback.
type NotifyConfig struct {
	Enabled    bool
	ToTutor    bool
	ToAdmin    bool
	AdminEmail string
	SiteName   string
}

// FeedbackNotifier emails tutors and/or the admin when feedback arrives.
type FeedbackNotifier struct {
	sender Sender
	cfg    NotifyConfig
	log    *zap.Logger
}

// NewFeedbackNotifier builds a notifier. sender may be nil, in which case
// nothing is sent.
func NewFeedbackNotifier(sender Sender, cfg NotifyConfig, log *zap.Logger) *FeedbackNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &FeedbackNotifier{sender: sender, cfg: cfg, log: log}
}

// Recipients returns the addresses a notification for tutorEmail goes to,
// lowercased and without repeats.
func (n *FeedbackNotifier) Recipients(tutorEmail string) []string {
	var out []string
	seen := map[string]bool{}
	add := func(addr string) {
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" || seen[addr] {
			return
		}
		seen[addr] = true
		out = append(out, addr)
	}
	if n.cfg.ToTutor {
		add(tutorEmail)
	}
	if n.cfg.ToAdmin {
		add(n.cfg.AdminEmail)
	}
	return out
}

// NotifyFeedback sends the notification and returns how many messages
// went out. Failures are logged, never returned: feedback is stored
// whether or not anyone is told about it.
func (n *FeedbackNotifier) NotifyFeedback(data FeedbackEmailData, tutorEmail string) int {
	if n == nil || !n.cfg.Enabled || n.sender == nil {
		return 0
	}
	if data.SiteName == "" {
		data.SiteName = n.cfg.SiteName
	}
	data.Message = htmlsanitize.PlainText(data.Message)

	sent := 0
	for _, to := range n.Recipients(tutorEmail) {
		e := BuildFeedbackEmail(data)
		e.To = to
		if err := n.sender.Send(e); err != nil {
			n.log.Warn("feedback notification failed", zap.String("to", to), zap.Error(err))
			continue
		}
		sent++
	}
	return sent
}
