package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatResponse(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"choices": []interface{}{
			map[string]interface{}{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(body)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewOpenAIClient(OpenAIConfig{
		APIKey:          "sk-test",
		BaseURL:         srv.URL + "/",
		VisionModel:     "vision",
		TranscribeModel: "whisper",
	})
}

func TestScanReceipt(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), "data:image/png;base64,")
		assert.Contains(t, string(body), `"model":"vision"`)

		io.WriteString(w, chatResponse(`{"merchant":"Cafe Luna","date":"2024-04-02","total":12.4,"currency":"eur"}`))
	})

	scan, err := c.ScanReceipt(context.Background(), "image/png", []byte{0x89, 0x50})
	require.NoError(t, err)

	assert.Equal(t, ReceiptScan{Merchant: "Cafe Luna", Date: "2024-04-02", Total: 12.4, Currency: "EUR"}, scan)
}

func TestScanReceipt_RejectsPDF(t *testing.T) {
	c := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: "http://unused"})

	_, err := c.ScanReceipt(context.Background(), "application/pdf", []byte("%PDF"))

	assert.ErrorIs(t, err, ErrUnsupportedScan)
}

func TestScanReceipt_Disabled(t *testing.T) {
	c := NewOpenAIClient(OpenAIConfig{})

	_, err := c.ScanReceipt(context.Background(), "image/png", nil)

	assert.ErrorIs(t, err, ErrAIDisabled)
}

func TestScanReceipt_APIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"error":{"message":"slow down"}}`)
	})

	_, err := c.ScanReceipt(context.Background(), "image/jpeg", []byte{1})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "slow down")
}

func TestScanReceipt_NonJSONAnswer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, chatResponse("I cannot read this receipt"))
	})

	_, err := c.ScanReceipt(context.Background(), "image/jpeg", []byte{1})

	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestTranscribe(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio/transcriptions", r.URL.Path)
		assert.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "whisper", r.FormValue("model"))

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		assert.Equal(t, "memo.webm", header.Filename)

		io.WriteString(w, `{"text":" Trip to Munich next Monday "}`)
	})

	text, err := c.Transcribe(context.Background(), "memo.webm", strings.NewReader("audio"))
	require.NoError(t, err)

	assert.Equal(t, "Trip to Munich next Monday", text)
}

func TestExtractFormFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, chatResponse(`{"destination":"Munich","purpose":"Trade fair","departureTime":"2024-05-06T07:30","returnTime":""}`))
	})

	draft, err := c.ExtractFormFields(context.Background(), "Trip to Munich for the trade fair")
	require.NoError(t, err)

	assert.Equal(t, "Munich", draft.Destination)
	assert.Equal(t, "Trade fair", draft.Purpose)
	assert.Equal(t, "2024-05-06T07:30", draft.DepartureTime)
	assert.Empty(t, draft.ReturnTime)
}
