package lab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mgomes/dronelab/internal/ctxlog"
)

const (
	// EnvAdvisorURL names the endpoint the HTTP advisor posts to.
	EnvAdvisorURL = "DRONELAB_ADVISOR_URL"
	// EnvAdvisorKey is sent as a bearer token when set.
	EnvAdvisorKey = "DRONELAB_ADVISOR_KEY"

	defaultAdvisorTimeout = 20 * time.Second
	maxAdviceBytes        = 8 << 10
)

const systemInstruction = `You are the friendly assistant of a drone programming lab.
Learners write small Python-like programs that steer a farm drone.
Explain errors simply and give hints about logic or syntax.
Never write the solution code for the exercise.`

// HTTPAdvisor posts each request as JSON to a tutoring endpoint and shows
// the response body as the advice.
type HTTPAdvisor struct {
	URL    string
	APIKey string
	Client *http.Client
}

// advicePayload is the request body.
type advicePayload struct {
	Mode     string `json:"mode"`
	System   string `json:"system"`
	Prompt   string `json:"prompt"`
	Source   string `json:"source"`
	Failure  string `json:"failure,omitempty"`
	Question string `json:"question,omitempty"`
	Goal     string `json:"goal,omitempty"`
}

// NewHTTPAdvisorFromEnv configures an HTTPAdvisor from DRONELAB_ADVISOR_URL
// and DRONELAB_ADVISOR_KEY. ok is false when no URL is set.
func NewHTTPAdvisorFromEnv() (advisor *HTTPAdvisor, ok bool) {
	url := strings.TrimSpace(os.Getenv(EnvAdvisorURL))
	if url == "" {
		return nil, false
	}
	return &HTTPAdvisor{
		URL:    url,
		APIKey: os.Getenv(EnvAdvisorKey),
		Client: &http.Client{Timeout: defaultAdvisorTimeout},
	}, true
}

// Advise implements Advisor.
func (a *HTTPAdvisor) Advise(ctx context.Context, req AdviceRequest) (string, error) {
	if a.URL == "" {
		return "", errors.New("advisor url is not configured")
	}
	client := a.Client
	if client == nil {
		client = &http.Client{Timeout: defaultAdvisorTimeout}
	}

	payload := advicePayload{
		Mode:     "failure",
		System:   systemInstruction,
		Prompt:   buildPrompt(req),
		Source:   req.Source,
		Failure:  req.Failure,
		Question: req.Question,
		Goal:     req.Goal,
	}
	if req.Chat() {
		payload.Mode = "chat"
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode advice request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if a.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+a.APIKey)
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Requesting advice.", "mode", payload.Mode, "url", a.URL)
	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	logger.Debug("Received advice response.", "status", resp.Status)

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAdviceBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("advisor returned %s", resp.Status)
	}
	advice := strings.TrimSpace(string(data))
	if advice == "" {
		return "", ErrNoAdvice
	}
	return advice, nil
}

func buildPrompt(req AdviceRequest) string {
	goal := req.Goal
	if goal == "" {
		goal = "unknown"
	}
	var b strings.Builder
	if req.Chat() {
		fmt.Fprintf(&b, "The learner asks: %q\n\n", req.Question)
		fmt.Fprintf(&b, "Their current program:\n```python\n%s\n```\n\n", req.Source)
		fmt.Fprintf(&b, "Goal of the current level: %q\n\n", goal)
		b.WriteString("Answer helpfully. If they ask for the solution, decline kindly and give a hint instead.")
		return b.String()
	}
	fmt.Fprintf(&b, "The learner is trying to reach this goal: %q\n\n", goal)
	fmt.Fprintf(&b, "Their current program:\n```python\n%s\n```\n\n", req.Source)
	fmt.Fprintf(&b, "It failed with: %q\n\n", req.Failure)
	b.WriteString("Give short, useful advice that helps them fix it.")
	return b.String()
}
