package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxErrorBody = 4096

// ProviderError is returned when the Responses API answers with a non-2xx
// status.
type ProviderError struct {
	StatusCode int
	Message    string
	Type       string
	Code       string
	Raw        string
}

func (e *ProviderError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("openai: HTTP %d: %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("openai: HTTP %d: %s", e.StatusCode, e.Message)
}

// ResponseRequest is the subset of the Responses API request we send.
type ResponseRequest struct {
	Model        string       `json:"model"`
	Instructions string       `json:"instructions,omitempty"`
	Input        string       `json:"input"`
	Text         *TextOptions `json:"text,omitempty"`
}

// TextOptions selects the structured output format.
type TextOptions struct {
	Format TextFormat `json:"format"`
}

// TextFormat requests output matching a JSON schema.
type TextFormat struct {
	Type   string          `json:"type"`
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

// Response is the subset of the Responses API response we read.
type Response struct {
	ID         string       `json:"id"`
	Model      string       `json:"model"`
	OutputText *string      `json:"output_text,omitempty"`
	Output     []OutputItem `json:"output"`
}

// OutputItem is one item of the response output list.
type OutputItem struct {
	Type    string        `json:"type"`
	Content []ContentPart `json:"content"`
}

// ContentPart is one piece of an output item.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Text returns output_text when present, otherwise the concatenated
// output_text parts. It returns "" when there is no usable text.
func (r *Response) Text() string {
	if r.OutputText != nil {
		if strings.TrimSpace(*r.OutputText) == "" {
			return ""
		}
		return *r.OutputText
	}
	var b strings.Builder
	for _, item := range r.Output {
		for _, part := range item.Content {
			if part.Type == "output_text" && part.Text != "" {
				b.WriteString(part.Text)
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Client talks to an OpenAI compatible Responses API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient creates a client. A nil httpClient gets one bounded by timeout.
func NewClient(baseURL, apiKey string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.apiKey) != ""
}

// CreateResponse sends one non-streaming request.
func (c *Client) CreateResponse(ctx context.Context, request ResponseRequest) (*Response, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("openai: marshaling request: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: creating request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		return nil, fmt.Errorf("openai: sending request: %w", err)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return nil, readProviderError(httpResponse)
	}

	var response Response
	if err := json.NewDecoder(httpResponse.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("openai: decoding response: %w", err)
	}
	return &response, nil
}

// readProviderError parses {"error":{"message","type","code"}}. The code may
// be a string, a number or null.
func readProviderError(httpResponse *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(httpResponse.Body, maxErrorBody))

	var wireError struct {
		Error struct {
			Message string          `json:"message"`
			Type    string          `json:"type"`
			Code    json.RawMessage `json:"code"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Error.Message != "" {
		return &ProviderError{
			StatusCode: httpResponse.StatusCode,
			Message:    wireError.Error.Message,
			Type:       wireError.Error.Type,
			Code:       rawString(wireError.Error.Code),
			Raw:        string(body),
		}
	}

	return &ProviderError{
		StatusCode: httpResponse.StatusCode,
		Message:    strings.TrimSpace(string(body)),
		Raw:        string(body),
	}
}

func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return string(raw)
}
