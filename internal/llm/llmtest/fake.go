// Package llmtest provides a scripted llm.Backend for tests.
package llmtest

import (
	"context"
	"sync"

	"apisense/internal/llm"
)

// Reply is one scripted answer.
type Reply struct {
	Response *llm.Response
	Err      error
}

// Fake returns scripted replies in order and records every call. Once the
// script is exhausted the last reply repeats.
type Fake struct {
	mu      sync.Mutex
	replies []Reply
	calls   []Call
}

type Call struct {
	Prompt  string
	Options llm.GenerateOptions
}

func NewFake(replies ...Reply) *Fake {
	return &Fake{replies: replies}
}

// Text is shorthand for a normally finished reply.
func Text(text string) Reply {
	return Reply{Response: &llm.Response{Text: text, FinishReason: llm.FinishReasonStop}}
}

// Truncated is shorthand for a reply cut off by the output limit.
func Truncated(text string) Reply {
	return Reply{Response: &llm.Response{Text: text, FinishReason: llm.FinishReasonMaxTokens}}
}

func Failure(err error) Reply {
	return Reply{Err: err}
}

func (f *Fake) Generate(ctx context.Context, prompt string, opts llm.GenerateOptions) (*llm.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, Call{Prompt: prompt, Options: opts})
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(f.replies) == 0 {
		return &llm.Response{FinishReason: llm.FinishReasonStop}, nil
	}

	idx := len(f.calls) - 1
	if idx >= len(f.replies) {
		idx = len(f.replies) - 1
	}
	r := f.replies[idx]
	return r.Response, r.Err
}

func (f *Fake) Close() error { return nil }

// Calls returns a copy of the recorded calls.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}
