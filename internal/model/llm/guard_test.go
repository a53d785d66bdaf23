package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClient struct {
	reply string
	err   error
	delay time.Duration
}

func (f *fakeClient) Generate(prompt string, options GenerateOptions) (string, error) {
	return f.GenerateWithContext(context.Background(), prompt, options)
}

func (f *fakeClient) GenerateWithContext(ctx context.Context, prompt string, options GenerateOptions) (string, error) {
	return f.ChatWithContext(ctx, []Message{{Role: "user", Content: prompt}}, options)
}

func (f *fakeClient) Chat(messages []Message, options GenerateOptions) (string, error) {
	return f.ChatWithContext(context.Background(), messages, options)
}

func (f *fakeClient) ChatWithContext(ctx context.Context, messages []Message, options GenerateOptions) (string, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeClient) Model() string    { return "fake" }
func (f *fakeClient) Provider() string { return "fake" }
func (f *fakeClient) SetModel(string)  {}
func (f *fakeClient) SetAPIKey(string) {}

func TestGuardGenerate(t *testing.T) {
	g := NewGuard(&fakeClient{reply: "  hello  "}, GuardConfig{}, nil)
	got := g.Generate(context.Background(), "hi")
	assert.Equal(t, "hello", got)
	assert.False(t, IsSentinel(got))
}

func TestGuardNoClient(t *testing.T) {
	g := NewGuard(nil, GuardConfig{}, nil)
	got := g.Generate(context.Background(), "hi")
	if !strings.HasPrefix(got, SentinelError) {
		t.Errorf("expected error sentinel, got %q", got)
	}
	assert.False(t, g.Available())
}

func TestGuardErrorSentinel(t *testing.T) {
	g := NewGuard(&fakeClient{err: errors.New("boom")}, GuardConfig{}, nil)
	got := g.Generate(context.Background(), "hi")
	assert.True(t, IsSentinel(got))
	assert.Contains(t, got, "boom")
}

func TestGuardTimeoutSentinel(t *testing.T) {
	g := NewGuard(&fakeClient{reply: "late", delay: 200 * time.Millisecond}, GuardConfig{Timeout: 20 * time.Millisecond}, nil)
	got := g.Generate(context.Background(), "hi")
	assert.Equal(t, SentinelTimeout, got)
}

func TestIsSentinel(t *testing.T) {
	assert.True(t, IsSentinel(SentinelTimeout))
	assert.True(t, IsSentinel(SentinelError+": boom"))
	assert.False(t, IsSentinel("a normal answer"))
	assert.False(t, IsSentinel(""))
}
