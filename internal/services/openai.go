package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

var (
	ErrAIDisabled      = errors.New("AI integration is not configured")
	ErrUnsupportedScan = errors.New("receipt type cannot be scanned")
	ErrEmptyResponse   = errors.New("model returned no content")
)

const receiptPrompt = `Extract the receipt data from this image. Answer with a JSON object with the keys ` +
	`"merchant" (string), "date" (YYYY-MM-DD or empty), "total" (number), "currency" (ISO code or empty).`

const formPrompt = `The user dictated details of a business trip. Extract a JSON object with the keys ` +
	`"destination", "purpose", "departureTime", "returnTime" (ISO 8601 local time without zone, empty if unknown). ` +
	`Do not invent values. Dictation: `

type ReceiptScan struct {
	Merchant string  `json:"merchant"`
	Date     string  `json:"date"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
}

type FormDraft struct {
	Destination   string `json:"destination"`
	Purpose       string `json:"purpose"`
	DepartureTime string `json:"departureTime"`
	ReturnTime    string `json:"returnTime"`
}

type OpenAIConfig struct {
	APIKey          string
	BaseURL         string
	VisionModel     string
	TranscribeModel string
}

// OpenAIClient talks to an OpenAI compatible API for receipt OCR and
// voice-to-form transcription.
type OpenAIClient struct {
	cfg    OpenAIConfig
	client *http.Client
}

func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenAIClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *OpenAIClient) Enabled() bool {
	return c != nil && c.cfg.APIKey != ""
}

// ScanReceipt reads merchant, date and total from a receipt image.
func (c *OpenAIClient) ScanReceipt(ctx context.Context, contentType string, image []byte) (ReceiptScan, error) {
	if !c.Enabled() {
		return ReceiptScan{}, ErrAIDisabled
	}

	if !strings.HasPrefix(normalizeContentType(contentType), "image/") {
		return ReceiptScan{}, ErrUnsupportedScan
	}

	dataURL := "data:" + normalizeContentType(contentType) + ";base64," + base64.StdEncoding.EncodeToString(image)

	content, err := c.chatJSON(ctx, []interface{}{
		map[string]interface{}{"type": "text", "text": receiptPrompt},
		map[string]interface{}{"type": "image_url", "image_url": map[string]string{"url": dataURL}},
	})
	if err != nil {
		return ReceiptScan{}, err
	}

	result := gjson.Parse(content)

	return ReceiptScan{
		Merchant: result.Get("merchant").String(),
		Date:     result.Get("date").String(),
		Total:    result.Get("total").Float(),
		Currency: strings.ToUpper(result.Get("currency").String()),
	}, nil
}

// ExtractFormFields turns a dictated transcript into travel form fields.
func (c *OpenAIClient) ExtractFormFields(ctx context.Context, transcript string) (FormDraft, error) {
	if !c.Enabled() {
		return FormDraft{}, ErrAIDisabled
	}

	content, err := c.chatJSON(ctx, formPrompt+transcript)
	if err != nil {
		return FormDraft{}, err
	}

	result := gjson.Parse(content)

	return FormDraft{
		Destination:   result.Get("destination").String(),
		Purpose:       result.Get("purpose").String(),
		DepartureTime: result.Get("departureTime").String(),
		ReturnTime:    result.Get("returnTime").String(),
	}, nil
}

// Transcribe converts recorded speech into text.
func (c *OpenAIClient) Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error) {
	if !c.Enabled() {
		return "", ErrAIDisabled
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if err := w.WriteField("model", c.cfg.TranscribeModel); err != nil {
		return "", err
	}

	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("buffer audio: %w", err)
	}

	if err := w.Close(); err != nil {
		return "", err
	}

	raw, err := c.do(ctx, "/audio/transcriptions", w.FormDataContentType(), &body)
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(gjson.GetBytes(raw, "text").String())
	if text == "" {
		return "", ErrEmptyResponse
	}

	return text, nil
}

func (c *OpenAIClient) chatJSON(ctx context.Context, content interface{}) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"model": c.cfg.VisionModel,
		"messages": []interface{}{
			map[string]interface{}{"role": "user", "content": content},
		},
		"response_format": map[string]string{"type": "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal chat payload: %w", err)
	}

	raw, err := c.do(ctx, "/chat/completions", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	answer := gjson.GetBytes(raw, "choices.0.message.content").String()
	if answer == "" || !gjson.Valid(answer) {
		return "", ErrEmptyResponse
	}

	return answer, nil
}

func (c *OpenAIClient) do(ctx context.Context, path, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read openai response: %w", err)
	}

	if resp.StatusCode >= 400 {
		msg := gjson.GetBytes(raw, "error.message").String()
		return nil, fmt.Errorf("openai returned status %d: %s", resp.StatusCode, msg)
	}

	return raw, nil
}
