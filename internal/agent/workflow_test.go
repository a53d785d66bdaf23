// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salsama1/twuiq-proj/internal/agent/router"
	"github.com/salsama1/twuiq-proj/internal/agent/tools"
	"github.com/salsama1/twuiq-proj/internal/model/llm"
	"github.com/salsama1/twuiq-proj/internal/runtime/session"
	"github.com/salsama1/twuiq-proj/pkg/config"
)

type sentinelClient struct{}

func (sentinelClient) Generate(string, llm.GenerateOptions) (string, error) {
	return "", context.DeadlineExceeded
}

func (sentinelClient) GenerateWithContext(context.Context, string, llm.GenerateOptions) (string, error) {
	return "", context.DeadlineExceeded
}

func (sentinelClient) Chat([]llm.Message, llm.GenerateOptions) (string, error) {
	return "", context.DeadlineExceeded
}

func (sentinelClient) ChatWithContext(context.Context, []llm.Message, llm.GenerateOptions) (string, error) {
	return "", context.DeadlineExceeded
}

func (sentinelClient) Model() string    { return "stuck" }
func (sentinelClient) Provider() string { return "test" }
func (sentinelClient) SetModel(string)  {}
func (sentinelClient) SetAPIKey(string) {}

func testWorkflow(t *testing.T, client llm.Client) (*Workflow, *session.Session) {
	t.Helper()
	reg := tools.NewRegistry()
	tools.RegisterBuiltin(reg, testStore(), nil, nil, nil, config.OGCConfig{})
	executor := tools.NewExecutor(reg, nil, nil, nil, nil)
	guard := llm.NewGuard(client, llm.GuardConfig{}, nil)
	w := NewWorkflow(executor, guard, router.New(testRegions, 0), config.AgentConfig{MaxSteps: 6}, nil)
	return w, session.New("wf-session")
}

func TestWorkflowDeterministicPlan(t *testing.T) {
	script := &scriptClient{}
	w, sess := testWorkflow(t, script)

	res, err := w.Run(context.Background(), sess, "run a qc check and a region breakdown by region", false)
	require.NoError(t, err)

	assert.Equal(t, 0, script.calls, "use_llm=false must perform zero model calls")
	require.Len(t, res.Trace, 2)
	assert.Equal(t, "qc_summary", res.Trace[0].Tool)
	assert.Equal(t, "stats_by_region", res.Trace[1].Tool)
	assert.Contains(t, res.Answer, "QC summary")
	assert.Contains(t, res.Answer, "counts by region")
	assert.NotEmpty(t, res.Trace[0].Why)
}

func TestWorkflowChartsDerived(t *testing.T) {
	script := &scriptClient{}
	w, sess := testWorkflow(t, script)

	res, err := w.Run(context.Background(), sess, "give me the density heatmap and counts by region", false)
	require.NoError(t, err)

	charts, ok := res.Artifacts["charts"].(map[string]any)
	require.True(t, ok, "aggregation artifacts must produce chart specs")
	assert.Contains(t, charts, "stats_by_region")
	assert.Contains(t, charts, "heatmap_bins")
}

func TestWorkflowLLMSummary(t *testing.T) {
	script := &scriptClient{replies: []string{"Two regions dominate the dataset."}}
	w, sess := testWorkflow(t, script)

	res, err := w.Run(context.Background(), sess, "quality report please, with duplicates", true)
	require.NoError(t, err)

	assert.Equal(t, 1, script.calls, "fixed plan means exactly one summary call")
	assert.Equal(t, "Two regions dominate the dataset.", res.Answer)
	require.Len(t, res.Trace, 1)
	assert.Equal(t, "qc_summary", res.Trace[0].Tool)
}

func TestWorkflowSummaryFallsBackOnSentinel(t *testing.T) {
	w, sess := testWorkflow(t, sentinelClient{})

	res, err := w.Run(context.Background(), sess, "quality report please, with duplicates", true)
	require.NoError(t, err)

	assert.Contains(t, res.Answer, "Workflow executed 1 steps")
	assert.Contains(t, res.Answer, "QC summary")
}

func TestWorkflowLLMPlanFallback(t *testing.T) {
	script := &scriptClient{replies: []string{
		`{"plan": [{"action": "commodity_stats", "args": {"limit": 5}, "why": "rank commodities"},
		           {"action": "bogus_tool", "args": {}, "why": "should fail"},
		           {"action": "importance_breakdown", "args": {}, "why": "importance split"}]}`,
		"Gold leads, copper follows.",
	}}
	w, sess := testWorkflow(t, script)

	res, err := w.Run(context.Background(), sess, "rank the elements for investment purposes", true)
	require.NoError(t, err)

	require.Len(t, res.Trace, 3)
	assert.Empty(t, res.Trace[0].Error)
	assert.NotEmpty(t, res.Trace[1].Error, "unknown planned step fails without aborting the plan")
	assert.Empty(t, res.Trace[2].Error)
	assert.Equal(t, "Gold leads, copper follows.", res.Answer)
}

func TestWorkflowNoPlanWithoutLLM(t *testing.T) {
	script := &scriptClient{}
	w, sess := testWorkflow(t, script)

	res, err := w.Run(context.Background(), sess, "rank the elements for investment purposes", false)
	require.NoError(t, err)

	assert.Equal(t, 0, script.calls)
	assert.Empty(t, res.Trace)
	assert.Contains(t, res.Answer, "could not derive an analysis plan")
}
