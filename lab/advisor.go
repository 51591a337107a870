package lab

import (
	"context"
	"errors"
	"strings"

	"github.com/mgomes/dronelab/internal/ctxlog"
)

// AdviceRequest is what an Advisor sees. Failure is set when a run failed;
// Question is set when the learner asked something directly.
type AdviceRequest struct {
	Source   string
	Failure  string
	Question string
	Goal     string
}

// Chat reports whether the request is a free-form question rather than a
// failure report.
func (r AdviceRequest) Chat() bool { return strings.TrimSpace(r.Question) != "" }

// Advisor produces tutoring advice. The answer is shown to the learner as is
// and never interpreted.
type Advisor interface {
	Advise(ctx context.Context, req AdviceRequest) (string, error)
}

// AdvisorFunc adapts a function to the Advisor interface.
type AdvisorFunc func(ctx context.Context, req AdviceRequest) (string, error)

func (f AdvisorFunc) Advise(ctx context.Context, req AdviceRequest) (string, error) {
	return f(ctx, req)
}

// ErrNoAdvice is returned by advisors that have nothing to say.
var ErrNoAdvice = errors.New("no advice available")

// HintAdvisor answers offline from a table of common mistakes and the
// level's hint. It never reveals a solution.
type HintAdvisor struct {
	Hint string
}

var failureTips = []struct {
	match string
	tip   string
}{
	{"indentation", "Every line inside a block must be indented by the same amount. Line the body up under the first line after the ':'."},
	{"unexpected indent", "A line is indented further than the lines around it. Only lines right after a ':' header start a deeper block."},
	{"has no body", "A line ending in ':' needs at least one indented line below it. Use pass if the block should do nothing."},
	{"without a matching if", "elif and else must sit at exactly the same indentation as the if they belong to."},
	{"never closed", "A bracket was opened but never closed. Count the ( and [ on that line."},
	{"unterminated string", "A string is missing its closing quote."},
	{"did you mean", "That name is close to one the drone knows. Check the spelling in the suggestion."},
	{"unknown function", "The drone only understands up, down, left, right, harvest, water and scan, plus functions you define with def."},
	{"leave the", "The drone hit the fence. Count how many steps the field has before moving that far."},
	{"is not defined", "A variable is used before anything was assigned to it. Give it a value first."},
	{"RuntimeTypeError", "Two values of different kinds were combined or compared. Compare numbers with numbers and text with text."},
	{"step quota", "The program ran for too long. A while loop whose condition never becomes false runs forever."},
	{"recursion", "A function keeps calling itself without stopping. Make sure some path returns without calling again."},
	{"division by zero", "Something was divided by zero. Check the value on the right of / or //."},
	{"out of range", "An index points past the end of the list. Indexes start at 0."},
	{"not supported", "That piece of Python is not part of the drone language. Stick to loops, if, def and simple expressions."},
}

// Advise implements Advisor.
func (a HintAdvisor) Advise(_ context.Context, req AdviceRequest) (string, error) {
	var parts []string
	if !req.Chat() {
		for _, candidate := range failureTips {
			if strings.Contains(req.Failure, candidate.match) {
				parts = append(parts, candidate.tip)
				break
			}
		}
	}
	if hint := strings.TrimSpace(a.Hint); hint != "" {
		parts = append(parts, "Hint: "+hint)
	}
	if len(parts) == 0 {
		if req.Chat() && req.Goal != "" {
			return "Focus on the goal: " + req.Goal, nil
		}
		return "", ErrNoAdvice
	}
	return strings.Join(parts, " "), nil
}

// WithFallback asks primary first and falls back when it fails.
func WithFallback(primary, fallback Advisor) Advisor {
	return AdvisorFunc(func(ctx context.Context, req AdviceRequest) (string, error) {
		advice, err := primary.Advise(ctx, req)
		if err == nil {
			return advice, nil
		}
		if ctx.Err() != nil {
			return "", err
		}
		ctxlog.FromContext(ctx).Warn("Advisor failed; using fallback.", "error", err)
		return fallback.Advise(ctx, req)
	})
}
