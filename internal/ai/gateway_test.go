package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/supportpilot/internal/domain"
)

func sampleTicket() domain.Ticket {
	return domain.Ticket{
		ID:          "t-1",
		Title:       "Checkout broken",
		Description: "Tapping checkout does nothing",
		Category:    domain.TicketCategoryUI,
		Priority:    domain.TicketPriorityHigh,
		Status:      domain.TicketStatusOpen,
		Channel:     domain.TicketChannelMobile,
		AIOutput:    &domain.AIOutput{CustomerReply: "previous reply", Version: 1},
	}
}

func upstream(t *testing.T, status int, body string, calls *int32) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return NewClient(server.URL, "sk-test", time.Second, nil)
}

func outputText(text string) string {
	raw, _ := json.Marshal(map[string]string{"output_text": text})
	return string(raw)
}

func TestGatewayAnalyzeSuccess(t *testing.T) {
	var request ResponseRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		_, _ = w.Write([]byte(outputText(`{"customerReply":"Sorry!","qaSummary":"Checkout","followUpQuestions":["iOS version?"]}`)))
	}))
	defer server.Close()

	gateway := NewGateway(NewClient(server.URL, "sk", time.Second, nil), "gpt-5-nano", nil)
	analysis, err := gateway.Analyze(context.Background(), sampleTicket())
	require.NoError(t, err)
	assert.Equal(t, "Sorry!", analysis.CustomerReply)
	assert.Equal(t, []string{"iOS version?"}, analysis.FollowUpQuestions)

	assert.Equal(t, "gpt-5-nano", request.Model)
	assert.Contains(t, request.Instructions, "You are SupportPilot AI")
	assert.True(t, strings.HasPrefix(request.Input, "Analyze the support ticket below and produce the required JSON output.\nTicket JSON:\n"))
	assert.Contains(t, request.Input, `"title":"Checkout broken"`)
	assert.NotContains(t, request.Input, "previous reply")
	assert.Equal(t, "json_schema", request.Text.Format.Type)
}

func TestGatewayAnalyzeFailures(t *testing.T) {
	cases := []struct {
		name           string
		status         int
		body           string
		wantStatus     int
		wantKind       FailureKind
		wantMessage    string
		wantUpstream   int
		wantProviderTy string
	}{
		{
			name:           "rate limited",
			status:         429,
			body:           `{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`,
			wantStatus:     429,
			wantKind:       FailureRateLimit,
			wantMessage:    "OpenAI quota/rate limit exceeded. Check OpenAI Platform billing/limits.",
			wantUpstream:   429,
			wantProviderTy: "insufficient_quota",
		},
		{
			name:           "unauthorized",
			status:         401,
			body:           `{"error":{"message":"Incorrect API key","type":"invalid_request_error","code":"invalid_api_key"}}`,
			wantStatus:     401,
			wantKind:       FailureAuth,
			wantMessage:    "OpenAI authentication failed.",
			wantUpstream:   401,
			wantProviderTy: "invalid_request_error",
		},
		{
			name:           "forbidden",
			status:         403,
			body:           `{"error":{"message":"Region blocked","type":"permission_error"}}`,
			wantStatus:     403,
			wantKind:       FailureAuth,
			wantMessage:    "OpenAI authentication failed.",
			wantUpstream:   403,
			wantProviderTy: "permission_error",
		},
		{
			name:           "upstream outage",
			status:         503,
			body:           `{"error":{"message":"overloaded","type":"server_error"}}`,
			wantStatus:     502,
			wantKind:       FailureUpstream,
			wantMessage:    "OpenAI request failed.",
			wantUpstream:   503,
			wantProviderTy: "server_error",
		},
		{
			name:           "bad request passes through",
			status:         400,
			body:           `{"error":{"message":"bad schema","type":"invalid_request_error"}}`,
			wantStatus:     400,
			wantKind:       FailureUpstream,
			wantMessage:    "OpenAI request failed.",
			wantUpstream:   400,
			wantProviderTy: "invalid_request_error",
		},
		{
			name:        "empty output",
			status:      200,
			body:        `{"output":[]}`,
			wantStatus:  500,
			wantKind:    FailureMalformed,
			wantMessage: "Empty AI response.",
		},
		{
			name:        "unparsable output",
			status:      200,
			body:        outputText("Sure! Here is your answer."),
			wantStatus:  500,
			wantKind:    FailureMalformed,
			wantMessage: "Failed to parse AI response.",
		},
		{
			name:        "wrong shape",
			status:      200,
			body:        outputText(`{"customerReply":"Hi","qaSummary":"x","followUpQuestions":"none"}`),
			wantStatus:  500,
			wantKind:    FailureMalformed,
			wantMessage: "Invalid AI response shape.",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gateway := NewGateway(upstream(t, tc.status, tc.body, nil), "gpt-5-nano", nil)
			_, err := gateway.Analyze(context.Background(), sampleTicket())

			var aiErr *Error
			require.True(t, errors.As(err, &aiErr))
			assert.Equal(t, tc.wantStatus, aiErr.Status)
			assert.Equal(t, tc.wantKind, aiErr.Kind)
			assert.Equal(t, tc.wantMessage, aiErr.Message)

			body := aiErr.Body()
			assert.Equal(t, tc.wantMessage, body.Error)
			assert.Equal(t, tc.wantUpstream, body.UpstreamStatus)
			if tc.wantUpstream != 0 {
				require.NotNil(t, body.OpenAI)
				assert.Equal(t, tc.wantProviderTy, body.OpenAI.Type)
				assert.Equal(t, tc.wantStatus, body.Status)
				assert.NotEmpty(t, body.Details)
			} else {
				assert.Nil(t, body.OpenAI)
			}
		})
	}
}

func TestGatewayRejectsBeforeCallingUpstream(t *testing.T) {
	var calls int32
	client := upstream(t, 200, outputText(`{}`), &calls)

	ticket := sampleTicket()
	ticket.Description = "   "
	_, err := NewGateway(client, "m", nil).Analyze(context.Background(), ticket)
	var aiErr *Error
	require.True(t, errors.As(err, &aiErr))
	assert.Equal(t, http.StatusBadRequest, aiErr.Status)
	assert.Equal(t, FailureInvalid, aiErr.Kind)
	assert.Equal(t, "Ticket title and description are required.", aiErr.Message)

	unconfigured := NewClient(client.baseURL, "", time.Second, nil)
	_, err = NewGateway(unconfigured, "m", nil).Analyze(context.Background(), sampleTicket())
	require.True(t, errors.As(err, &aiErr))
	assert.Equal(t, http.StatusInternalServerError, aiErr.Status)
	assert.Equal(t, "OpenAI API key is not configured.", aiErr.Message)

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestGatewayNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewGateway(NewClient(url, "sk", time.Second, nil), "m", nil).Analyze(context.Background(), sampleTicket())
	var aiErr *Error
	require.True(t, errors.As(err, &aiErr))
	assert.Equal(t, FailureNetwork, aiErr.Kind)
	assert.Equal(t, "Unexpected server error.", aiErr.Message)
	assert.Equal(t, http.StatusInternalServerError, aiErr.Status)
}
