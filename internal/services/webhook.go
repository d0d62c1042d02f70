package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tripwise-dev/tripwise/db"
	"github.com/tripwise-dev/tripwise/internal/logger"
	"github.com/tripwise-dev/tripwise/internal/models"
)

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type SlackAttachment struct {
	Color     string       `json:"color"`
	Title     string       `json:"title"`
	Text      string       `json:"text"`
	Fields    []SlackField `json:"fields"`
	Footer    string       `json:"footer"`
	Timestamp int64        `json:"ts"`
}

type SlackWebhookRequest struct {
	Username    string            `json:"username"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments"`
}

const Username = "Tripwise"

// WebhookSender posts submitted-form events to a company's Slack webhook.
type WebhookSender struct {
	Client *http.Client
}

func NewWebhookSender() *WebhookSender {
	return &WebhookSender{Client: &http.Client{Timeout: 10 * time.Second}}
}

// FormSubmitted notifies the submitter's company channel, if one is
// configured. Failures are logged only.
func (w *WebhookSender) FormSubmitted(ctx context.Context, submitter models.User, form models.TravelForm) {
	if submitter.CompanyID == nil {
		return
	}

	var company models.Company

	if err := db.DB.WithContext(ctx).First(&company, *submitter.CompanyID).Error; err != nil {
		logger.WithError(err).Warn("Failed to load company for webhook")
		return
	}

	if company.SlackWebhook == "" {
		return
	}

	payload := formSubmittedPayload(company, submitter, form)

	if err := w.sendSlackWebhook(ctx, company.SlackWebhook, payload); err != nil {
		logger.WithFields(logrus.Fields{
			"company_id": company.ID,
			"form_id":    form.ID,
		}).WithError(err).Warn("Slack webhook failed")
	}
}

func formSubmittedPayload(company models.Company, submitter models.User, form models.TravelForm) SlackWebhookRequest {
	return SlackWebhookRequest{
		Username:  Username,
		IconEmoji: ":airplane:",
		Text:      ":airplane: *Travel form submitted*",
		Attachments: []SlackAttachment{
			{
				Color: "#439FE0",
				Title: fmt.Sprintf("%s submitted a %s-travel form", submitter.Name, form.Kind),
				Text:  form.Purpose,
				Fields: []SlackField{
					{Title: "Destination", Value: form.Destination, Short: true},
					{Title: "Hours", Value: fmt.Sprintf("%d", form.TotalHours), Short: true},
					{Title: "Departure", Value: form.DepartureTime.Format("2006-01-02 15:04"), Short: true},
					{Title: "Return", Value: form.ReturnTime.Format("2006-01-02 15:04"), Short: true},
					{Title: "Total", Value: fmt.Sprintf("%.2f", form.TotalAmount), Short: true},
				},
				Footer:    fmt.Sprintf("Company: %s", company.Name),
				Timestamp: time.Now().Unix(),
			},
		},
	}
}

func (w *WebhookSender) sendSlackWebhook(ctx context.Context, webhookURL string, payload SlackWebhookRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal Slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to build Slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send Slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("Slack webhook returned status %d", resp.StatusCode)
	}

	return nil
}
