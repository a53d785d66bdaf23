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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salsama1/twuiq-proj/internal/agent/router"
	"github.com/salsama1/twuiq-proj/internal/agent/tools"
	"github.com/salsama1/twuiq-proj/internal/model/llm"
	"github.com/salsama1/twuiq-proj/internal/runtime/session"
	"github.com/salsama1/twuiq-proj/internal/storage/occurrence"
	"github.com/salsama1/twuiq-proj/pkg/config"
)

func f64(v float64) *float64 { return &v }

// scriptClient 按脚本逐条吐回复，记录被调用次数
type scriptClient struct {
	replies []string
	calls   int
}

func (c *scriptClient) next() string {
	if c.calls >= len(c.replies) {
		return `{"action": "final", "answer": "script exhausted"}`
	}
	reply := c.replies[c.calls]
	c.calls++
	return reply
}

func (c *scriptClient) Generate(prompt string, _ llm.GenerateOptions) (string, error) {
	return c.next(), nil
}

func (c *scriptClient) GenerateWithContext(_ context.Context, prompt string, _ llm.GenerateOptions) (string, error) {
	return c.next(), nil
}

func (c *scriptClient) Chat(_ []llm.Message, _ llm.GenerateOptions) (string, error) {
	return c.next(), nil
}

func (c *scriptClient) ChatWithContext(_ context.Context, _ []llm.Message, _ llm.GenerateOptions) (string, error) {
	return c.next(), nil
}

func (c *scriptClient) Model() string    { return "script" }
func (c *scriptClient) Provider() string { return "test" }
func (c *scriptClient) SetModel(string)  {}
func (c *scriptClient) SetAPIKey(string) {}

var testRegions = []string{"Madinah Region", "Makkah Region", "Riyadh Region"}

func testStore() *occurrence.MemoryStore {
	return occurrence.NewMemoryStore([]occurrence.Occurrence{
		{ID: 1, ModsID: "M1", EnglishName: "Mahd adh Dhahab", MajorCommodity: "Gold", AdminRegion: "Madinah Region", ExplorationStatus: "Mine", Importance: "High", Longitude: f64(40.86), Latitude: f64(23.50)},
		{ID: 2, ModsID: "M2", EnglishName: "Jabal Sayid", MajorCommodity: "Copper", AdminRegion: "Madinah Region", ExplorationStatus: "Mine", Importance: "High", Longitude: f64(40.93), Latitude: f64(23.85)},
		{ID: 3, ModsID: "M3", EnglishName: "Ad Duwayhi", MajorCommodity: "Gold", AdminRegion: "Makkah Region", ExplorationStatus: "Prospect", Importance: "Medium", Longitude: f64(42.10), Latitude: f64(20.90)},
	})
}

func testAgent(t *testing.T, client llm.Client) (*Agent, *session.Session) {
	t.Helper()
	reg := tools.NewRegistry()
	tools.RegisterBuiltin(reg, testStore(), nil, nil, nil, config.OGCConfig{})
	executor := tools.NewExecutor(reg, nil, nil, nil, nil)
	var guard *llm.Guard
	if client != nil {
		guard = llm.NewGuard(client, llm.GuardConfig{}, nil)
	} else {
		guard = llm.NewGuard(nil, llm.GuardConfig{}, nil)
	}
	a := New(executor, guard, router.New(testRegions, 0), nil, config.AgentConfig{MaxSteps: 4}, nil)
	return a, session.New("test-session")
}

func TestRunRoutedWithoutLLM(t *testing.T) {
	script := &scriptClient{}
	a, sess := testAgent(t, script)

	res, err := a.Run(context.Background(), sess, "show gold mines in madinah")
	require.NoError(t, err)

	assert.Equal(t, 0, script.calls, "routed queries must never reach the model")
	require.Len(t, res.Trace, 1)
	assert.Equal(t, "geojson_export", res.Trace[0].Tool)
	assert.Contains(t, res.Artifacts, "geojson")
	assert.Contains(t, res.Answer, "GeoJSON layer")
	// 回答必须点名矿种与行政区
	assert.Contains(t, res.Answer, "Gold")
	assert.Contains(t, res.Answer, "Madinah Region")
	// 问答写入会话历史
	assert.Len(t, sess.Messages, 2)
}

func TestPublishInstructionsBackfillItemsURL(t *testing.T) {
	script := &scriptClient{replies: []string{
		`{"action": "ogc_items_link", "args": {"commodity": "gold"}}`,
		`{"action": "publish_layer_instructions", "args": {}}`,
		`{"action": "final", "answer": "done"}`,
	}}
	a, sess := testAgent(t, script)

	res, err := a.Run(context.Background(), sess, "how do I load the filtered gold layer into QGIS?")
	require.NoError(t, err)

	require.Len(t, res.Trace, 2)
	instructions, ok := res.Artifacts["qgis_instructions"].(string)
	require.True(t, ok)
	// 第二步未带 URL，必须回填第一步产出的过滤链接
	assert.Contains(t, instructions, "commodity=gold")
}

func TestRunToolThenGroundedFinal(t *testing.T) {
	script := &scriptClient{replies: []string{
		`{"action": "search_mods", "args": {"commodity": "gold"}}`,
		`{"action": "final", "answer": "there are no results"}`,
	}}
	a, sess := testAgent(t, script)

	res, err := a.Run(context.Background(), sess, "tell me about auriferous occurrences you know of")
	require.NoError(t, err)

	assert.Equal(t, 2, script.calls)
	require.Len(t, res.Trace, 1)
	// 模型声称没有结果，但合成层必须按数据说话
	assert.NotContains(t, res.Answer, "no results")
	assert.Contains(t, res.Answer, "Found 2 occurrences")
	assert.Len(t, res.Occurrences, 2)
}

func TestRunRepetitionGuard(t *testing.T) {
	call := `{"action": "search_mods", "args": {"commodity": "gold", "limit": 10}}`
	script := &scriptClient{replies: []string{call, call}}
	a, sess := testAgent(t, script)

	res, err := a.Run(context.Background(), sess, "enumerate the auriferous localities")
	require.NoError(t, err)

	require.Len(t, res.Trace, 1, "identical call must execute once")
	assert.Contains(t, res.Answer, "Found 2 occurrences")
}

func TestRunRedundancyGuard(t *testing.T) {
	script := &scriptClient{replies: []string{
		`{"action": "geojson_export", "args": {"commodity": "gold"}}`,
		`{"action": "geojson_export", "args": {"commodity": "copper"}}`,
	}}
	a, sess := testAgent(t, script)

	res, err := a.Run(context.Background(), sess, "prepare layers for the cartographer")
	require.NoError(t, err)

	require.Len(t, res.Trace, 1, "second write to the same artifact key must stop the loop")
	assert.Contains(t, res.Artifacts, "geojson")
}

func TestRunMalformedReplyNoTools(t *testing.T) {
	script := &scriptClient{replies: []string{"I would rather chat about the weather."}}
	a, sess := testAgent(t, script)

	res, err := a.Run(context.Background(), sess, "what is the weather like in the shield")
	require.NoError(t, err)

	assert.Equal(t, "I would rather chat about the weather.", res.Answer)
	assert.Empty(t, res.Trace)
}

func TestRunMalformedReplyAfterTools(t *testing.T) {
	script := &scriptClient{replies: []string{
		`{"action": "search_mods", "args": {"commodity": "copper"}}`,
		"And now some freeform prose without any JSON.",
	}}
	a, sess := testAgent(t, script)

	res, err := a.Run(context.Background(), sess, "describe cupriferous localities for me")
	require.NoError(t, err)

	require.Len(t, res.Trace, 1)
	assert.Contains(t, res.Answer, "Found 1 occurrences")
}

func TestRunNoModelConfigured(t *testing.T) {
	a, sess := testAgent(t, nil)

	res, err := a.Run(context.Background(), sess, "describe cupriferous localities for me")
	require.NoError(t, err)

	assert.Contains(t, res.Answer, llm.SentinelError)
	assert.Empty(t, res.Trace)
}

func TestRunMaxStepsBound(t *testing.T) {
	var replies []string
	for i := 1; i <= 10; i++ {
		replies = append(replies, fmt.Sprintf(`{"action": "search_mods", "args": {"limit": %d}}`, i))
	}
	script := &scriptClient{replies: replies}
	a, sess := testAgent(t, script)

	res, err := a.Run(context.Background(), sess, "keep digging until you are certain")
	require.NoError(t, err)

	assert.Len(t, res.Trace, 4, "loop must stop at the step bound")
	assert.NotEmpty(t, res.Answer)
}

func TestRunUnknownToolTerminates(t *testing.T) {
	script := &scriptClient{replies: []string{`{"action": "fly_to_the_moon", "args": {}}`}}
	a, sess := testAgent(t, script)

	res, err := a.Run(context.Background(), sess, "do something spectacular for me please")
	require.NoError(t, err)

	require.Len(t, res.Trace, 1)
	assert.NotEmpty(t, res.Trace[0].Error)
	assert.Contains(t, res.Answer, "fly_to_the_moon")
}

func TestRunToolErrorContinues(t *testing.T) {
	script := &scriptClient{replies: []string{
		`{"action": "nearby_mods", "args": {"radius_km": 10}}`,
		`{"action": "search_mods", "args": {"commodity": "gold"}}`,
		`{"action": "final", "answer": "done"}`,
	}}
	a, sess := testAgent(t, script)

	res, err := a.Run(context.Background(), sess, "look around that area one more time")
	require.NoError(t, err)

	require.Len(t, res.Trace, 2)
	assert.NotEmpty(t, res.Trace[0].Error, "nearby without a point must fail")
	assert.Empty(t, res.Trace[1].Error)
	assert.Contains(t, res.Answer, "Found 2 occurrences")
}
