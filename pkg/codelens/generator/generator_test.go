package generator_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stackvity/codelens/pkg/codelens/explain"
	"github.com/stackvity/codelens/pkg/codelens/generator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	gen, err := generator.New(ctx, generator.Config{}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, generator.Unavailable{}, gen)

	gen, err = generator.New(ctx, generator.Config{Provider: "NONE"}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, generator.Unavailable{}, gen)

	_, err = generator.New(ctx, generator.Config{Provider: "llama"}, nil, nil)
	assert.ErrorIs(t, err, generator.ErrUnknownProvider)

	_, err = generator.New(ctx, generator.Config{Provider: generator.ProviderOpenAI}, nil, nil)
	assert.ErrorIs(t, err, explain.ErrGeneratorUnavailable)

	_, err = generator.New(ctx, generator.Config{Provider: generator.ProviderExec, Command: []string{"gen"}}, nil, nil)
	assert.ErrorIs(t, err, generator.ErrExecGenerator)

	gen, err = generator.New(ctx, generator.Config{Provider: generator.ProviderOpenAI, APIKey: "k", RequestsPerSecond: 2}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &generator.RateLimited{}, gen)
}

func TestUnavailable(t *testing.T) {
	_, err := generator.Unavailable{}.Generate(context.Background(), "p", "e")
	assert.ErrorIs(t, err, explain.ErrGeneratorUnavailable)
}

func chatServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAI_Generate(t *testing.T) {
	var got struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","model":"m","choices":[{"index":0,"message":{"role":"assistant","content":"It adds numbers."},"finish_reason":"stop"}]}`))
	})

	gen, err := generator.NewOpenAI(generator.Config{APIKey: "secret", BaseURL: srv.URL + "/v1", Model: "m"})
	require.NoError(t, err)

	text, err := gen.Generate(context.Background(), "Explain it.", "def add(a, b): ...")
	require.NoError(t, err)
	assert.Equal(t, "It adds numbers.", text)
	assert.Equal(t, "m", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.Contains(t, got.Messages[1].Content, "Explain it.")
	assert.Contains(t, got.Messages[1].Content, "def add(a, b): ...")
}

func TestOpenAI_Errors(t *testing.T) {
	t.Run("ServerError", func(t *testing.T) {
		srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":{"message":"down","type":"server_error"}}`))
		})
		gen, err := generator.NewOpenAI(generator.Config{APIKey: "k", BaseURL: srv.URL + "/v1"})
		require.NoError(t, err)
		_, err = gen.Generate(context.Background(), "p", "e")
		assert.ErrorIs(t, err, explain.ErrGeneratorUnavailable)
	})

	t.Run("NoChoices", func(t *testing.T) {
		srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id":"1","choices":[]}`))
		})
		gen, err := generator.NewOpenAI(generator.Config{APIKey: "k", BaseURL: srv.URL + "/v1"})
		require.NoError(t, err)
		_, err = gen.Generate(context.Background(), "p", "e")
		assert.ErrorIs(t, err, explain.ErrGeneratorUnavailable)
	})

	t.Run("Deadline", func(t *testing.T) {
		srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
			// Reading the body lets the server notice the client leaving.
			_, _ = io.Copy(io.Discard, r.Body)
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		})
		gen, err := generator.NewOpenAI(generator.Config{APIKey: "k", BaseURL: srv.URL + "/v1"})
		require.NoError(t, err)
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err = gen.Generate(ctx, "p", "e")
		assert.ErrorIs(t, err, explain.ErrGeneratorTimeout)
	})
}

func TestGemini(t *testing.T) {
	_, err := generator.NewGemini(context.Background(), generator.Config{})
	assert.ErrorIs(t, err, explain.ErrGeneratorUnavailable)

	srv := chatServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"It adds "},{"text":"numbers."}]}}]}`))
	})
	gen, err := generator.NewGemini(context.Background(), generator.Config{APIKey: "k", BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	text, err := gen.Generate(context.Background(), "p", "e")
	require.NoError(t, err)
	assert.Equal(t, "It adds numbers.", text)
}

func TestRateLimited(t *testing.T) {
	var calls atomic.Int32
	next := explain.GeneratorFunc(func(context.Context, string, string) (string, error) {
		calls.Add(1)
		return "ok", nil
	})
	gen := generator.NewRateLimited(next, 0.01, 0)

	text, err := gen.Generate(context.Background(), "p", "e")
	require.NoError(t, err)
	assert.Equal(t, "ok", text)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = gen.Generate(ctx, "p", "e")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

type fakeRunner struct {
	got  generator.ExecRequest
	resp generator.ExecResponse
	err  error
}

func (f *fakeRunner) Run(_ context.Context, _ []string, req generator.ExecRequest) (generator.ExecResponse, error) {
	f.got = req
	return f.resp, f.err
}

func TestExec(t *testing.T) {
	_, err := generator.NewExec(&fakeRunner{}, nil, nil)
	assert.ErrorIs(t, err, generator.ErrExecGenerator)

	t.Run("Success", func(t *testing.T) {
		runner := &fakeRunner{resp: generator.ExecResponse{SchemaVersion: generator.ExecSchemaVersion, Text: "Explained."}}
		gen, err := generator.NewExec(runner, []string{"explain-bot"}, nil)
		require.NoError(t, err)

		ctx := explain.WithLanguage(context.Background(), "Go")
		text, err := gen.Generate(ctx, "prompt", "excerpt")
		require.NoError(t, err)
		assert.Equal(t, "Explained.", text)
		assert.Equal(t, generator.ExecRequest{
			SchemaVersion: generator.ExecSchemaVersion,
			Prompt:        "prompt",
			Excerpt:       "excerpt",
			Language:      "Go",
		}, runner.got)
	})

	testCases := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "Timeout", err: generator.WrapExecError(generator.ErrExecGeneratorTimeout, "slow"), expected: explain.ErrGeneratorTimeout},
		{name: "NonZeroExit", err: generator.WrapExecError(generator.ErrExecGeneratorNonZeroExit, "exit 2"), expected: explain.ErrGeneratorUnavailable},
		{name: "BadOutput", err: generator.WrapExecError(generator.ErrExecGeneratorBadOutput, "not json"), expected: explain.ErrGeneratorUnavailable},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gen, err := generator.NewExec(&fakeRunner{err: tc.err}, []string{"explain-bot"}, nil)
			require.NoError(t, err)
			_, err = gen.Generate(context.Background(), "p", "e")
			assert.ErrorIs(t, err, tc.expected)
			assert.ErrorIs(t, err, generator.ErrExecGenerator)
		})
	}
}

func TestWrapExecError(t *testing.T) {
	err := generator.WrapExecError(generator.ErrExecGeneratorBadOutput, "tool %q", "x")
	assert.True(t, errors.Is(err, generator.ErrExecGenerator))
	assert.True(t, errors.Is(err, generator.ErrExecGeneratorBadOutput))
	assert.Contains(t, err.Error(), `tool "x"`)
}
