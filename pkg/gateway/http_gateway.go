package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
)

const maxResponseBytes = 1 << 20

// HTTPGateway posts submissions as multipart/form-data.
type HTTPGateway struct {
	submitURL string
	fileField string
	client    *http.Client
	logger    zerolog.Logger
}

// NewHTTPGateway creates an HTTPGateway. The client carries the timeout and
// the transport middleware chain.
func NewHTTPGateway(baseURL, submitPath, fileField string, client *http.Client, logger zerolog.Logger) *HTTPGateway {
	return &HTTPGateway{
		submitURL: strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(submitPath, "/"),
		fileField: fileField,
		client:    client,
		logger:    logger,
	}
}

// apiMessage is the body of both success and failure responses. The
// reference backend reports failures under "error".
type apiMessage struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Submit posts sub once. Non-2xx answers become *Error with the gateway
// message, transport failures *Error with StatusCode 0.
func (g *HTTPGateway) Submit(ctx context.Context, sub Submission) (Response, error) {
	contentType, body, err := EncodeMultipart(sub, g.fileField)
	if err != nil {
		return Response{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.submitURL, body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to build submit request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Response{}, &Error{Err: err}
	}
	defer resp.Body.Close()

	message := readMessage(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.logger.Warn().
			Int("status", resp.StatusCode).
			Str("message", message).
			Msg("Gateway rejected report")
		return Response{}, &Error{StatusCode: resp.StatusCode, Message: message}
	}

	return Response{StatusCode: resp.StatusCode, Message: message}, nil
}

func readMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxResponseBytes))
	if err != nil || len(data) == 0 {
		return ""
	}
	var msg apiMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ""
	}
	if msg.Message != "" {
		return msg.Message
	}
	return msg.Error
}
