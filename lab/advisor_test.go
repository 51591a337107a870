package lab

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHintAdvisor(t *testing.T) {
	advisor := HintAdvisor{Hint: "Use a for loop."}
	cases := []struct {
		name string
		req  AdviceRequest
		want string
	}{
		{
			name: "bounds",
			req:  AdviceRequest{Failure: "DomainError: cannot move right from (4, 0): the drone would leave the 5x5 field"},
			want: "The drone hit the fence. Count how many steps the field has before moving that far. Hint: Use a for loop.",
		},
		{
			name: "typo",
			req:  AdviceRequest{Failure: "translation error at 1:1: unknown function harvst(); did you mean harvest()?"},
			want: "That name is close to one the drone knows. Check the spelling in the suggestion. Hint: Use a for loop.",
		},
		{
			name: "unknown failure",
			req:  AdviceRequest{Failure: "something odd"},
			want: "Hint: Use a for loop.",
		},
		{
			name: "chat",
			req:  AdviceRequest{Question: "will I leave the field?", Failure: "leave the"},
			want: "Hint: Use a for loop.",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := advisor.Advise(context.Background(), tc.req)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}

	_, err := HintAdvisor{}.Advise(context.Background(), AdviceRequest{Failure: "something odd"})
	require.ErrorIs(t, err, ErrNoAdvice)

	got, err := HintAdvisor{}.Advise(context.Background(), AdviceRequest{Question: "what now?", Goal: "Harvest 3 crops"})
	require.NoError(t, err)
	require.Equal(t, "Focus on the goal: Harvest 3 crops", got)
}

func TestWithFallback(t *testing.T) {
	failing := AdvisorFunc(func(context.Context, AdviceRequest) (string, error) {
		return "", errors.New("unreachable")
	})
	advisor := WithFallback(failing, HintAdvisor{Hint: "Try again."})
	got, err := advisor.Advise(context.Background(), AdviceRequest{Failure: "x"})
	require.NoError(t, err)
	require.Equal(t, "Hint: Try again.", got)

	working := AdvisorFunc(func(context.Context, AdviceRequest) (string, error) {
		return "primary", nil
	})
	got, err = WithFallback(working, failing).Advise(context.Background(), AdviceRequest{})
	require.NoError(t, err)
	require.Equal(t, "primary", got)
}

func TestHTTPAdvisor(t *testing.T) {
	var payload advicePayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(body, &payload))
		_, _ = io.WriteString(w, "  Check your indentation.\n")
	}))
	defer server.Close()

	advisor := &HTTPAdvisor{URL: server.URL, APIKey: "secret", Client: server.Client()}
	got, err := advisor.Advise(context.Background(), AdviceRequest{
		Source:  "right()\n",
		Failure: "structural error on line 2",
		Goal:    "Harvest the row",
	})
	require.NoError(t, err)
	require.Equal(t, "Check your indentation.", got)
	require.Equal(t, "failure", payload.Mode)
	require.Equal(t, "right()\n", payload.Source)
	require.Contains(t, payload.Prompt, "structural error on line 2")
	require.Contains(t, payload.Prompt, "Harvest the row")
	require.NotEmpty(t, payload.System)

	_, err = advisor.Advise(context.Background(), AdviceRequest{Question: "how?"})
	require.NoError(t, err)
	require.Equal(t, "chat", payload.Mode)
	require.Contains(t, payload.Prompt, `The learner asks: "how?"`)
}

func TestHTTPAdvisorErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exhausted", http.StatusTooManyRequests)
	}))
	defer server.Close()

	advisor := &HTTPAdvisor{URL: server.URL, Client: server.Client()}
	_, err := advisor.Advise(context.Background(), AdviceRequest{Failure: "x"})
	require.ErrorContains(t, err, "429")

	empty := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer empty.Close()
	_, err = (&HTTPAdvisor{URL: empty.URL}).Advise(context.Background(), AdviceRequest{Failure: "x"})
	require.ErrorIs(t, err, ErrNoAdvice)

	_, err = (&HTTPAdvisor{}).Advise(context.Background(), AdviceRequest{})
	require.Error(t, err)
}

func TestNewHTTPAdvisorFromEnv(t *testing.T) {
	t.Setenv(EnvAdvisorURL, "")
	_, ok := NewHTTPAdvisorFromEnv()
	require.False(t, ok)

	t.Setenv(EnvAdvisorURL, "http://advisor.example/advise")
	t.Setenv(EnvAdvisorKey, "k")
	advisor, ok := NewHTTPAdvisorFromEnv()
	require.True(t, ok)
	require.Equal(t, "http://advisor.example/advise", advisor.URL)
	require.Equal(t, "k", advisor.APIKey)
	require.NotNil(t, advisor.Client)
}
