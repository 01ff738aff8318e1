// internal/app/system/mailer/templates.go
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

// FeedbackEmailData holds data for the feedback notification.
type FeedbackEmailData struct {
	SiteName     string
	StudentName  string
	StudentEmail string
	TutorName    string
	Course       string
	Rating       int
	Message      string
}

// Stars renders the rating as filled and empty stars.
func (d FeedbackEmailData) Stars() string {
	r := d.Rating
	if r < 0 {
		r = 0
	}
	if r > 5 {
		r = 5
	}
	return strings.Repeat("★", r) + strings.Repeat("☆", 5-r)
}

// BuildFeedbackEmail creates a feedback notification with both HTML and text bodies.
func BuildFeedbackEmail(data FeedbackEmailData) Email {
	subject := fmt.Sprintf("New feedback from %s", data.StudentName)
	if data.TutorName != "" {
		subject = fmt.Sprintf("New feedback for %s from %s", data.TutorName, data.StudentName)
	}
	return Email{
		To:       "", // Set by caller
		Subject:  subject,
		TextBody: buildFeedbackText(data),
		HTMLBody: render(feedbackHTML, data),
	}
}

func buildFeedbackText(data FeedbackEmailData) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "New feedback on %s\n\n", data.SiteName)
	fmt.Fprintf(&buf, "Student: %s <%s>\n", data.StudentName, data.StudentEmail)
	if data.TutorName != "" {
		fmt.Fprintf(&buf, "Tutor: %s\n", data.TutorName)
	}
	if data.Course != "" {
		fmt.Fprintf(&buf, "Course: %s\n", data.Course)
	}
	fmt.Fprintf(&buf, "Rating: %d/5\n\n", data.Rating)
	buf.WriteString(data.Message + "\n")
	return buf.String()
}

// TestEmailData holds data for the admin test email.
type TestEmailData struct {
	SiteName string
	SentBy   string
}

// BuildTestEmail creates the message an admin sends to check SMTP settings.
func BuildTestEmail(data TestEmailData) Email {
	return Email{
		Subject:  fmt.Sprintf("%s test email", data.SiteName),
		TextBody: fmt.Sprintf("This is a test email from %s, requested by %s.\nIf you received it, mail delivery works.\n", data.SiteName, data.SentBy),
		HTMLBody: render(testHTML, data),
	}
}

func render(t *template.Template, data any) string {
	var buf bytes.Buffer
	_ = t.Execute(&buf, data)
	return buf.String()
}

var feedbackHTML = template.Must(template.New("feedback").Parse(layoutOpen + `
              <h2 style="margin: 0 0 16px; font-size: 18px; color: #1f2937;">New feedback</h2>
              <p style="margin: 0 0 8px; font-size: 14px; color: #374151;"><strong>Student:</strong> {{.StudentName}} &lt;{{.StudentEmail}}&gt;</p>
              {{if .TutorName}}<p style="margin: 0 0 8px; font-size: 14px; color: #374151;"><strong>Tutor:</strong> {{.TutorName}}</p>{{end}}
              {{if .Course}}<p style="margin: 0 0 8px; font-size: 14px; color: #374151;"><strong>Course:</strong> {{.Course}}</p>{{end}}
              <p style="margin: 0 0 16px; font-size: 20px; color: #f59e0b;">{{.Stars}}</p>
              <div style="background-color: #f3f4f6; border-radius: 8px; padding: 16px; font-size: 14px; color: #1f2937; white-space: pre-wrap;">{{.Message}}</div>
` + layoutClose))

var testHTML = template.Must(template.New("test").Parse(layoutOpen + `
              <p style="margin: 0 0 16px; font-size: 16px; color: #374151;">This is a test email requested by {{.SentBy}}.</p>
              <p style="margin: 0; font-size: 14px; color: #6b7280;">If you received it, mail delivery works.</p>
` + layoutClose))

const layoutOpen = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #f3f4f6;">
  <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="background-color: #f3f4f6;">
    <tr>
      <td align="center" style="padding: 40px 20px;">
        <table role="presentation" width="100%" cellspacing="0" cellpadding="0" style="max-width: 520px; background-color: #ffffff; border-radius: 8px;">
          <tr>
            <td style="padding: 24px 32px; border-bottom: 1px solid #e5e7eb;">
              <h1 style="margin: 0; font-size: 22px; font-weight: 600; color: #4f46e5;">{{.SiteName}}</h1>
            </td>
          </tr>
          <tr>
            <td style="padding: 32px;">`

const layoutClose = `
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>`
