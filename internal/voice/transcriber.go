package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	sdkerrors "cosmossdk.io/errors"
)

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// HTTPTranscriber submits audio to an external speech-to-text service.
type HTTPTranscriber struct {
	endpoint string
	client   *http.Client
}

// NewHTTPTranscriber creates a transcriber against the given endpoint.
func NewHTTPTranscriber(endpoint string, timeout time.Duration) *HTTPTranscriber {
	return &HTTPTranscriber{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type transcribeRequest struct {
	Audio string `json:"audio"`
}

type transcribeResponse struct {
	Text string `json:"text"`
}

// Transcribe posts base64-encoded audio and returns the recognized text.
func (t *HTTPTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	body, err := json.Marshal(transcribeRequest{Audio: base64.StdEncoding.EncodeToString(audio)})
	if err != nil {
		return "", sdkerrors.Wrap(ErrUnavailable, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", sdkerrors.Wrap(ErrUnavailable, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", sdkerrors.Wrap(ErrUnavailable, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", sdkerrors.Wrap(ErrUnavailable, fmt.Sprintf("status %d", resp.StatusCode))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", sdkerrors.Wrap(ErrUnavailable, err.Error())
	}

	var result transcribeResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", sdkerrors.Wrap(ErrUnavailable, err.Error())
	}
	if result.Text == "" {
		return "", ErrEmptyTranscript
	}
	return result.Text, nil
}
