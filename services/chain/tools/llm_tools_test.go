// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tools

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianChain/services/chain/datatypes"
	"github.com/AleutianAI/AleutianChain/services/chain/exectrace"
	"github.com/AleutianAI/AleutianChain/services/chain/providers"
	"github.com/AleutianAI/AleutianChain/services/chain/tools/search"
	"github.com/AleutianAI/AleutianChain/services/llm"
)

// fakeChat records every request and answers from a queue.
type fakeChat struct {
	mu       sync.Mutex
	replies  []string
	err      error
	requests [][]llm.Message
}

func (f *fakeChat) Chat(_ context.Context, messages []llm.Message, _ providers.ChatOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, messages)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeChat) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeChat) last() []llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestInvoker(t *testing.T, chat providers.ChatClient) *Invoker {
	t.Helper()
	reg, err := NewBuiltinRegistry(Deps{
		Chat:   chat,
		Search: search.NewSimulatedBackend(nil),
		Config: defaultSource(),
	})
	require.NoError(t, err)
	inv, err := NewInvoker(reg, nil)
	require.NoError(t, err)
	return inv
}

func TestRegisterBuiltins(t *testing.T) {
	chat := &fakeChat{}
	reg, err := NewBuiltinRegistry(Deps{Chat: chat, Search: search.NewSimulatedBackend(nil), Config: defaultSource()})
	require.NoError(t, err)
	assert.Equal(t, []string{
		ToolSearch, ToolSummarize, ToolComputeGeneral, ToolComputeSavings,
		ToolCompareTexts, ToolComputeBMI, ToolInterpretMetrics, ToolDirectAnswer,
	}, reg.Names())

	_, err = NewBuiltinRegistry(Deps{Search: search.NewSimulatedBackend(nil), Config: defaultSource()})
	assert.Error(t, err)
	_, err = NewBuiltinRegistry(Deps{Chat: chat, Config: defaultSource()})
	assert.Error(t, err)
	_, err = NewBuiltinRegistry(Deps{Chat: chat, Search: search.NewSimulatedBackend(nil)})
	assert.Error(t, err)
}

func TestSummarizeTool(t *testing.T) {
	chat := &fakeChat{replies: []string{"  short version  "}}
	inv := newTestInvoker(t, chat)

	out, err := inv.Invoke(context.Background(), ToolSummarize, Call{Input: datatypes.Text("Summarize in 50 words: a long story")})
	require.NoError(t, err)
	assert.Equal(t, "short version", out.Render())

	msgs := chat.last()
	require.Len(t, msgs, 2)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "at most 50 words")
	assert.Equal(t, "Summarize in 50 words: a long story", msgs[1].Content)
}

func TestSummarizeTool_ChatFailure(t *testing.T) {
	chat := &fakeChat{err: errors.New("connection refused")}
	inv := newTestInvoker(t, chat)

	_, err := inv.Invoke(context.Background(), ToolSummarize, Call{Input: datatypes.Text("text")})
	require.Error(t, err)
	assert.True(t, IsToolExecution(err))
}

func TestComputeGeneral_LocalArithmetic(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"What is 2 * (3 + 4)?", "14"},
		{"2^10", "1024"},
		{"10 / 4", "2.5"},
		{"0.1 + 0.2", "0.3"},
		{"7 % 3", "1"},
		{"12 × 3 =", "36"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			chat := &fakeChat{}
			inv := newTestInvoker(t, chat)

			out, err := inv.Invoke(context.Background(), ToolComputeGeneral, Call{Input: datatypes.Text(tt.in)})
			require.NoError(t, err)
			result, _ := out.Field("result")
			explanation, _ := out.Field("explanation")
			assert.Equal(t, tt.want, result)
			assert.Equal(t, localEvalExplanation, explanation)
			assert.Zero(t, chat.calls())
		})
	}
}

func TestArithmeticExpression(t *testing.T) {
	_, ok := ArithmeticExpression("2024")
	assert.False(t, ok)
	_, ok = ArithmeticExpression("what is 15% of 200")
	assert.False(t, ok)
	expr, ok := ArithmeticExpression("Calculate 3 + 4?")
	assert.True(t, ok)
	assert.Equal(t, "3 + 4", expr)

	_, err := EvalArithmetic("1 / 0")
	assert.Error(t, err)
}

func TestComputeGeneral_ModelJSON(t *testing.T) {
	chat := &fakeChat{replies: []string{`{"answer": 42, "pythonCode": "print(42)", "explanation": "because"}`}}
	inv := newTestInvoker(t, chat)

	out, err := inv.Invoke(context.Background(), ToolComputeGeneral, Call{Input: datatypes.Text("What is the answer to everything?")})
	require.NoError(t, err)

	result, _ := out.Field("result")
	code, _ := out.Field("code")
	explanation, _ := out.Field("explanation")
	assert.Equal(t, "42", result)
	assert.Equal(t, "print(42)", code)
	assert.Equal(t, "because", explanation)
	assert.Equal(t, "Calculate precisely: What is the answer to everything?", chat.last()[1].Content)
}

func TestComputeGeneral_FencedJSON(t *testing.T) {
	chat := &fakeChat{replies: []string{"Here you go:\n```json\n{\"answer\": \"7 years\", \"code\": \"x\", \"explanation\": \"e\"}\n```"}}
	inv := newTestInvoker(t, chat)

	out, err := inv.Invoke(context.Background(), ToolComputeGeneral, Call{Input: datatypes.Text("after how many years?")})
	require.NoError(t, err)
	result, _ := out.Field("result")
	assert.Equal(t, "7 years", result)
}

func TestComputeGeneral_Unparseable(t *testing.T) {
	chat := &fakeChat{replies: []string{"I think it is about twelve."}}
	inv := newTestInvoker(t, chat)

	out, err := inv.Invoke(context.Background(), ToolComputeGeneral, Call{Input: datatypes.Text("how big is it")})
	require.NoError(t, err)
	result, _ := out.Field("result")
	explanation, _ := out.Field("explanation")
	assert.Equal(t, calculationFallback, result)
	assert.Equal(t, "I think it is about twelve.", explanation)
}

func TestCompareTextsTool(t *testing.T) {
	chat := &fakeChat{replies: []string{"Both are pets."}}
	inv := newTestInvoker(t, chat)

	out, err := inv.Invoke(context.Background(), ToolCompareTexts, Call{Input: datatypes.Text(`"cats" vs "dogs"`)})
	require.NoError(t, err)

	text1, _ := out.Field("text1")
	text2, _ := out.Field("text2")
	sim, _ := out.Field("similarities")
	assert.Equal(t, "cats", text1)
	assert.Equal(t, "dogs", text2)
	assert.Equal(t, "Both are pets.", sim)

	msgs := chat.last()
	assert.Equal(t, compareSystemPrompt, msgs[0].Content)
	assert.Equal(t, "Compare the following two texts and describe their similarities:\n\nText 1: cats\n\nText 2: dogs", msgs[1].Content)
}

func TestInterpretMetricsTool(t *testing.T) {
	chat := &fakeChat{replies: []string{"Your BMI is normal. This is not medical advice."}}
	inv := newTestInvoker(t, chat)

	out, err := inv.Invoke(context.Background(), ToolInterpretMetrics, Call{
		Input: datatypes.Record(map[string]any{"bmi": "23.15", "category": "normal weight"}),
	})
	require.NoError(t, err)
	assert.Contains(t, out.Render(), "not medical advice")

	msgs := chat.last()
	assert.Contains(t, msgs[0].Content, "informational purposes only")
	assert.Equal(t, "Interpret the following health metrics:\nbmi: 23.15\ncategory: normal weight\n", msgs[1].Content)
}

func TestDirectAnswerTool_WithTraceContext(t *testing.T) {
	chat := &fakeChat{replies: []string{"It is 42."}}
	inv := newTestInvoker(t, chat)

	tr := exectrace.New()
	tr.Append(datatypes.ExecutedStep{Tool: "search", Output: datatypes.Text("some findings")})

	out, err := inv.Invoke(context.Background(), ToolDirectAnswer, Call{
		Input: datatypes.Text("What is the answer?"),
		Trace: tr,
	})
	require.NoError(t, err)
	assert.Equal(t, "It is 42.", out.Render())

	user := chat.last()[1].Content
	assert.Contains(t, user, "Using information from previous steps:\nStep 1 (search): some findings...")
	assert.Contains(t, user, "Based on this context, please answer: What is the answer?")
}

func TestDirectAnswerTool_NoContext(t *testing.T) {
	chat := &fakeChat{replies: []string{"Hello."}}
	inv := newTestInvoker(t, chat)

	_, err := inv.Invoke(context.Background(), ToolDirectAnswer, Call{Input: datatypes.Text("Say hello"), Trace: exectrace.New()})
	require.NoError(t, err)
	assert.Equal(t, "Say hello", chat.last()[1].Content)
	assert.Equal(t, directSystemPrompt, chat.last()[0].Content)
}

func TestSearchTool_SummarizesMultipleResults(t *testing.T) {
	chat := &fakeChat{replies: []string{"Germany prices CO2."}}
	inv := newTestInvoker(t, chat)

	out, err := inv.Invoke(context.Background(), ToolSearch, Call{Input: datatypes.Text("current CO2 legislation")})
	require.NoError(t, err)

	text := out.Render()
	assert.Contains(t, text, `Search results for "current CO2 legislation":`)
	assert.Contains(t, text, "Federal Government - Climate Protection Act")
	assert.Contains(t, text, "Summary: Germany prices CO2.")

	msgs := chat.last()
	assert.Equal(t, searchSummarySystemPrompt, msgs[0].Content)
	assert.Contains(t, msgs[1].Content, `Based on these search results, answer the question: "current CO2 legislation"`)
}

func TestSearchTool_SummaryFailureIsNotFatal(t *testing.T) {
	chat := &fakeChat{err: errors.New("down")}
	inv := newTestInvoker(t, chat)

	out, err := inv.Invoke(context.Background(), ToolSearch, Call{Input: datatypes.Text("pizza calories")})
	require.NoError(t, err)
	assert.Contains(t, out.Render(), "Summary: A summary could not be created.")
}

func TestSearchTool_SingleResultSkipsSummary(t *testing.T) {
	chat := &fakeChat{}
	inv := newTestInvoker(t, chat)

	out, err := inv.Invoke(context.Background(), ToolSearch, Call{Input: datatypes.Text("zebra migration")})
	require.NoError(t, err)
	assert.Contains(t, out.Render(), "This is a simulation of a web search.")
	assert.NotContains(t, out.Render(), "Summary:")
	assert.Zero(t, chat.calls())
}

func TestSearchTool_BackendFailure(t *testing.T) {
	reg, err := NewBuiltinRegistry(Deps{
		Chat: &fakeChat{},
		Search: search.BackendFunc(func(ctx context.Context, q string) ([]search.Result, error) {
			return nil, errors.New("unreachable")
		}),
		Config: defaultSource(),
	})
	require.NoError(t, err)
	inv, _ := NewInvoker(reg, nil)

	_, err = inv.Invoke(context.Background(), ToolSearch, Call{Input: datatypes.Text("q")})
	require.Error(t, err)
	assert.True(t, IsToolExecution(err))
}
