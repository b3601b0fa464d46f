package channel

import (
	"fmt"
	"strings"

	"github.com/talentgrid/interview-engine/internal/domain"
)

// EmailContent is a rendered email template.
type EmailContent struct {
	Subject string
	HTML    string
	Text    string
}

// PushAction is a button attached to a push payload.
type PushAction struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// PushPayload is a rendered push template.
type PushPayload struct {
	Title     string       `json:"title"`
	Body      string       `json:"body"`
	TargetURL string       `json:"targetUrl,omitempty"`
	Actions   []PushAction `json:"actions,omitempty"`
}

func dataValue(n domain.Notification, key string) string {
	if n.Data == nil {
		return ""
	}
	return n.Data[key]
}

func sessionLine(n domain.Notification) string {
	line := fmt.Sprintf("Scheduled for %s", dataValue(n, "scheduledDate"))
	if location := dataValue(n, "location"); location != "" {
		line += fmt.Sprintf(" at %s", location)
	}
	if meetingURL := dataValue(n, "meetingUrl"); meetingURL != "" {
		line += fmt.Sprintf(" (%s)", meetingURL)
	}
	return line
}

// RenderEmail selects the typed email template for the notification's type.
// Types without a dedicated template render through the generic fallback.
func RenderEmail(n domain.Notification) EmailContent {
	jobTitle := dataValue(n, "jobTitle")
	companyName := dataValue(n, "companyName")
	candidateName := dataValue(n, "candidateName")

	var subject string
	lines := make([]string, 0, 3)

	switch n.Type {
	case domain.TypeInterviewInvitation:
		subject = fmt.Sprintf("Interview scheduled: %s at %s", jobTitle, companyName)
		lines = append(lines, n.Message, sessionLine(n), "Please confirm or decline from your dashboard.")
	case domain.TypeInterviewReminder:
		subject = fmt.Sprintf("Reminder: upcoming interview for %s", jobTitle)
		lines = append(lines, n.Message, sessionLine(n))
	case domain.TypeInterviewResponse:
		subject = fmt.Sprintf("%s responded to the interview for %s", candidateName, jobTitle)
		lines = append(lines, n.Message)
		if comments := dataValue(n, "candidateComments"); comments != "" {
			lines = append(lines, fmt.Sprintf("Comments: %s", comments))
		}
	case domain.TypeFeedbackPending:
		subject = fmt.Sprintf("Interview feedback awaiting review: %s", jobTitle)
		lines = append(lines, n.Message)
	case domain.TypeFeedbackAvailable:
		subject = fmt.Sprintf("Your interview feedback for %s is available", jobTitle)
		lines = append(lines, n.Message)
	case domain.TypeNewApplication:
		subject = fmt.Sprintf("New application for %s", jobTitle)
		lines = append(lines, n.Message)
	case domain.TypeApplicationStatus:
		subject = fmt.Sprintf("Application update: %s", jobTitle)
		lines = append(lines, n.Message)
	case domain.TypeJobRecommendation:
		subject = fmt.Sprintf("A job you may like: %s at %s", jobTitle, companyName)
		lines = append(lines, n.Message)
	default:
		subject = n.Title
		lines = append(lines, n.Message)
	}

	if actionURL := dataValue(n, "actionUrl"); actionURL != "" {
		lines = append(lines, actionURL)
	}

	return EmailContent{
		Subject: subject,
		HTML:    renderHTML(n.Title, lines),
		Text:    strings.Join(lines, "\n\n"),
	}
}

func renderHTML(title string, lines []string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("<h2>%s</h2>\n", title))
	for _, line := range lines {
		b.WriteString(fmt.Sprintf("<p>%s</p>\n", line))
	}
	return b.String()
}

// RenderPush selects the typed push template for the notification's type.
func RenderPush(n domain.Notification) PushPayload {
	payload := PushPayload{
		Title:     n.Title,
		Body:      n.Message,
		TargetURL: dataValue(n, "actionUrl"),
	}

	switch n.Type {
	case domain.TypeInterviewInvitation:
		payload.Actions = []PushAction{
			{Label: "Accept", URL: payload.TargetURL},
			{Label: "Decline", URL: payload.TargetURL},
		}
	case domain.TypeInterviewReminder, domain.TypeFeedbackAvailable, domain.TypeJobRecommendation:
		payload.Actions = []PushAction{{Label: "View", URL: payload.TargetURL}}
	}

	return payload
}
