// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianChain/services/chain"
	"github.com/AleutianAI/AleutianChain/services/chain/datatypes"
	"github.com/AleutianAI/AleutianChain/services/chain/providers"
	"github.com/AleutianAI/AleutianChain/services/chain/tools"
	"github.com/AleutianAI/AleutianChain/services/llm"
)

// execute runs chainctl with args and returns stdout and stderr.
func execute(t *testing.T, c *cli, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	c.out = &out
	c.errOut = &errOut
	root := newRootCmd(c)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func fixedReply(text string) providers.ChatFunc {
	return func(context.Context, []llm.Message, providers.ChatOptions) (string, error) {
		return text, nil
	}
}

func TestRootHelpListsCommands(t *testing.T) {
	out, _, err := execute(t, newCLI(nil, nil), "--help")
	require.NoError(t, err)
	for _, want := range []string{"run", "ask", "tools", "--json", "--no-color"} {
		assert.Contains(t, out, want)
	}
}

func TestToolsCommand(t *testing.T) {
	out, _, err := execute(t, newCLI(nil, nil), "tools")
	require.NoError(t, err)
	assert.Contains(t, out, "8 tools")
	assert.Contains(t, out, tools.ToolSearch)
	assert.Contains(t, out, tools.ToolComputeBMI)
	assert.NotContains(t, out, "\x1b[", "non-terminal output must be plain")
}

func TestToolsCommand_JSON(t *testing.T) {
	out, _, err := execute(t, newCLI(nil, nil), "tools", "--json")
	require.NoError(t, err)

	var specs []tools.Spec
	require.NoError(t, json.Unmarshal([]byte(out), &specs))
	assert.Len(t, specs, len(tools.BuiltinSpecs()))
}

func TestRunCommand_InProcess(t *testing.T) {
	c := newCLI(nil, nil)
	c.clients = &providers.RoleClients{
		Planner: fixedReply(`{"steps":[{"tool":"computeBMI","input":"weight 80 kg height 1.8 m","description":"bmi"}],"explanation":"Compute BMI directly."}`),
		Synth:   fixedReply("synthesized answer"),
		Tools:   fixedReply("unused"),
	}

	out, _, err := execute(t, c, "run", "--no-color", "What", "is", "my", "BMI?")
	require.NoError(t, err)
	assert.Contains(t, out, "Answer")
	assert.Contains(t, out, "done")
	assert.Contains(t, out, "Compute BMI directly.")
	assert.Contains(t, out, "1. computeBMI ok")
}

func TestRunCommand_JSONReportsFailure(t *testing.T) {
	c := newCLI(nil, nil)
	c.clients = &providers.RoleClients{
		Planner: fixedReply("I am not sure what to do."),
		Synth:   fixedReply("unused"),
		Tools:   fixedReply("unused"),
	}

	out, _, err := execute(t, c, "run", "--json", "anything")
	require.NoError(t, err, "a failed chain is still a result")

	var res datatypes.ChainResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, datatypes.StateFailed, res.State)
	assert.True(t, strings.HasPrefix(res.Result, "I could not plan how to answer this query."), res.Result)
	assert.Empty(t, res.Steps)
}

func TestRunCommand_RequiresQuery(t *testing.T) {
	_, _, err := execute(t, newCLI(nil, nil), "run")
	assert.Error(t, err)
}

func TestAskCommand(t *testing.T) {
	var got chain.RunRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chain/run" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(datatypes.ChainResult{
			RunID:  "run-42",
			Result: "Cats are more independent than dogs.",
			Steps: []datatypes.ExecutedStep{{
				Index:    0,
				Tool:     tools.ToolCompareTexts,
				Input:    datatypes.Text("cats vs dogs"),
				Output:   datatypes.Text("Cats are more independent than dogs."),
				Duration: 3 * time.Millisecond,
			}},
			State: datatypes.StateDone,
		})
	}))
	defer srv.Close()

	out, _, err := execute(t, newCLI(nil, nil), "ask", "--server", srv.URL+"/", "Compare", "cats", "and", "dogs")
	require.NoError(t, err)
	assert.Equal(t, "Compare cats and dogs", got.Query)
	assert.Contains(t, out, "Cats are more independent than dogs.")
	assert.Contains(t, out, "1. compareTexts ok 3ms")
	assert.Contains(t, out, "run run-42")
}

func TestAskCommand_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(chain.ErrorResponse{Error: "query is required", Code: "VALIDATION_FAILED"})
	}))
	defer srv.Close()

	_, errOut, err := execute(t, newCLI(nil, nil), "ask", "--server", srv.URL, "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VALIDATION_FAILED")
	assert.Contains(t, errOut, "Error: ")
}

func TestResolveServerURL(t *testing.T) {
	c := newCLI(nil, nil)
	t.Setenv("ALEUTIAN_CHAIN_URL", "")
	assert.Equal(t, defaultServerURL, c.resolveServerURL())

	t.Setenv("ALEUTIAN_CHAIN_URL", "http://chain:9000")
	assert.Equal(t, "http://chain:9000", c.resolveServerURL())

	c.serverURL = "http://flag:1"
	assert.Equal(t, "http://flag:1", c.resolveServerURL())
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "   a\n   b", indent("a\nb"))
}
