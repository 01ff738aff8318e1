package mailer

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingSender struct {
	sent []Email
	fail map[string]bool
}

func (r *recordingSender) Send(e Email) error {
	if r.fail[e.To] {
		return errors.New("smtp down")
	}
	r.sent = append(r.sent, e)
	return nil
}

func TestMailer_DisabledWithoutHost(t *testing.T) {
	m := New(Config{From: "noreply@example.com"})
	if m.Enabled() {
		t.Fatal("mailer without host should be disabled")
	}
	if err := m.Send(Email{To: "a@example.com"}); !errors.Is(err, ErrDisabled) {
		t.Errorf("Send() error = %v, want ErrDisabled", err)
	}

	var nilMailer *Mailer
	if nilMailer.Enabled() {
		t.Error("nil mailer reported enabled")
	}
}

func TestMailer_Message(t *testing.T) {
	m := New(Config{Host: "smtp.example.com", From: "noreply@example.com", FromName: "TutorHub"})
	if !m.Enabled() {
		t.Fatal("expected enabled mailer")
	}

	if _, err := m.message(Email{To: "not an address"}); err == nil {
		t.Error("expected invalid recipient error")
	}

	msg, err := m.message(Email{To: "tutor@example.com", Subject: " Hello ", TextBody: "plain", HTMLBody: "<p>rich</p>"})
	if err != nil {
		t.Fatalf("message() error = %v", err)
	}
	if got := msg.GetHeader("Subject"); len(got) != 1 || got[0] != "Hello" {
		t.Errorf("Subject = %v", got)
	}
	if got := msg.GetHeader("From"); len(got) != 1 || !strings.Contains(got[0], "TutorHub") {
		t.Errorf("From = %v", got)
	}

	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	raw := buf.String()
	if !strings.Contains(raw, "text/plain") || !strings.Contains(raw, "text/html") {
		t.Errorf("expected multipart alternative body, got:\n%s", raw)
	}
}

func TestBuildFeedbackEmail_EscapesUserText(t *testing.T) {
	e := BuildFeedbackEmail(FeedbackEmailData{
		SiteName:     "TutorHub",
		StudentName:  `<script>alert(1)</script>`,
		StudentEmail: "s@example.com",
		TutorName:    "Tina",
		Rating:       4,
		Message:      `<img src=x onerror=alert(1)>`,
	})

	if strings.Contains(e.HTMLBody, "<script>") || strings.Contains(e.HTMLBody, "<img") {
		t.Errorf("HTML body contains unescaped user input:\n%s", e.HTMLBody)
	}
	if !strings.Contains(e.HTMLBody, "★★★★☆") {
		t.Errorf("HTML body missing rating stars")
	}
	if !strings.Contains(e.Subject, "Tina") {
		t.Errorf("Subject = %q, want tutor name", e.Subject)
	}
	if !strings.Contains(e.TextBody, "Rating: 4/5") {
		t.Errorf("TextBody = %q", e.TextBody)
	}
}

func TestFeedbackEmailData_Stars(t *testing.T) {
	tests := []struct {
		rating int
		want   string
	}{
		{0, "☆☆☆☆☆"},
		{1, "★☆☆☆☆"},
		{5, "★★★★★"},
		{9, "★★★★★"},
		{-2, "☆☆☆☆☆"},
	}
	for _, tt := range tests {
		if got := (FeedbackEmailData{Rating: tt.rating}).Stars(); got != tt.want {
			t.Errorf("Stars(%d) = %q, want %q", tt.rating, got, tt.want)
		}
	}
}

func TestBuildTestEmail(t *testing.T) {
	e := BuildTestEmail(TestEmailData{SiteName: "TutorHub", SentBy: "admin@example.com"})
	if e.Subject != "TutorHub test email" {
		t.Errorf("Subject = %q", e.Subject)
	}
	if !strings.Contains(e.HTMLBody, "admin@example.com") {
		t.Errorf("HTML body missing requester")
	}
}

func TestFeedbackNotifier_Recipients(t *testing.T) {
	tests := []struct {
		name  string
		cfg   NotifyConfig
		tutor string
		want  []string
	}{
		{"tutor only", NotifyConfig{ToTutor: true, AdminEmail: "admin@example.com"}, "tutor@example.com", []string{"tutor@example.com"}},
		{"admin only", NotifyConfig{ToAdmin: true, AdminEmail: "admin@example.com"}, "tutor@example.com", []string{"admin@example.com"}},
		{"both", NotifyConfig{ToTutor: true, ToAdmin: true, AdminEmail: "admin@example.com"}, "tutor@example.com", []string{"tutor@example.com", "admin@example.com"}},
		{"same address", NotifyConfig{ToTutor: true, ToAdmin: true, AdminEmail: "Boss@Example.com"}, "boss@example.com ", []string{"boss@example.com"}},
		{"admin unset", NotifyConfig{ToAdmin: true}, "tutor@example.com", nil},
		{"tutor unknown", NotifyConfig{ToTutor: true}, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewFeedbackNotifier(nil, tt.cfg, nil).Recipients(tt.tutor)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Recipients() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFeedbackNotifier_NotifyFeedback(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sender := &recordingSender{fail: map[string]bool{"admin@example.com": true}}
	n := NewFeedbackNotifier(sender, NotifyConfig{
		Enabled: true, ToTutor: true, ToAdmin: true, AdminEmail: "admin@example.com", SiteName: "TutorHub",
	}, zap.New(core))

	sent := n.NotifyFeedback(FeedbackEmailData{StudentName: "Sam", Rating: 5, Message: "<b>Great</b> help"}, "tutor@example.com")
	if sent != 1 {
		t.Fatalf("sent = %d, want 1", sent)
	}
	if len(sender.sent) != 1 || sender.sent[0].To != "tutor@example.com" {
		t.Fatalf("unexpected deliveries: %+v", sender.sent)
	}
	if !strings.Contains(sender.sent[0].TextBody, "Great help") || strings.Contains(sender.sent[0].TextBody, "<b>") {
		t.Errorf("message not reduced to plain text: %q", sender.sent[0].TextBody)
	}
	if logs.FilterMessage("feedback notification failed").Len() != 1 {
		t.Errorf("expected one logged failure")
	}
}

func TestFeedbackNotifier_Disabled(t *testing.T) {
	sender := &recordingSender{}
	n := NewFeedbackNotifier(sender, NotifyConfig{Enabled: false, ToTutor: true}, nil)
	if sent := n.NotifyFeedback(FeedbackEmailData{}, "tutor@example.com"); sent != 0 {
		t.Errorf("disabled notifier sent %d", sent)
	}

	var nilNotifier *FeedbackNotifier
	if sent := nilNotifier.NotifyFeedback(FeedbackEmailData{}, "tutor@example.com"); sent != 0 {
		t.Errorf("nil notifier sent %d", sent)
	}
}
