package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-go-golems/akinator/pkg/game"
	"github.com/go-go-golems/akinator/pkg/settings"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return buf.String(), err
}

func TestPlayNarratesMockGame(t *testing.T) {
	out, err := run(t, "play", "--api-type", "mock")
	require.NoError(t, err)

	for _, expected := range []string{
		"Using concept: Einstein",
		"Streaming enabled: false",
		"🎮 Starting AI vs AI Akinator!",
		"📊 Maximum questions allowed: 100",
		"📝 Question 1",
		"🔍 Guesser: Is it a living thing or a person?",
		"🤖 Answerer: Yes",
		"🔍 Guesser: Is it Einstein?",
		"🤖 Answerer: DONE",
		"🎉 SUCCESS! The guesser got it right!",
		"📊 GAME SUMMARY",
		"Success: ✅ Yes",
		"Questions asked: 3",
	} {
		assert.Contains(t, out, expected)
	}
	assert.NotContains(t, out, "📝 Question 4")
}

func TestPlayStreamingNarration(t *testing.T) {
	out, err := run(t, "play", "--api-type", "mock", "--stream", "Paris")
	require.NoError(t, err)
	assert.Contains(t, out, "Streaming enabled: true")
	assert.Contains(t, out, "🔍 Guesser: Is it Paris?\n")
	assert.Contains(t, out, "🤖 Answerer: DONE\n")
	assert.Equal(t, 1, strings.Count(out, "🤖 Answerer: DONE"))
}

func TestPlayExhaustion(t *testing.T) {
	out, err := run(t, "play", "--api-type", "mock", "--max-turns", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "❌ GAME OVER! Maximum questions (2) reached.")
	assert.Contains(t, out, "Success: ❌ No")
	assert.Contains(t, out, "Questions asked: 2")
}

func TestPlayYAMLOutputAndTranscript(t *testing.T) {
	transcript := filepath.Join(t.TempDir(), "game.yaml")
	out, err := run(t, "play", "--api-type", "mock", "--output", "yaml", "--transcript", transcript, "Paris")
	require.NoError(t, err)

	var outcome game.Outcome
	require.NoError(t, yaml.Unmarshal([]byte(out), &outcome))
	assert.True(t, outcome.Success)
	assert.Equal(t, 3, outcome.QuestionsAsked)
	assert.Equal(t, "Is it Paris?", outcome.Conversation[2].Question)

	b, err := os.ReadFile(transcript)
	require.NoError(t, err)
	assert.Contains(t, string(b), "questions_asked: 3")
}

func TestPlayJSONOutput(t *testing.T) {
	out, err := run(t, "play", "--api-type", "mock", "--output", "json", "--max-turns", "2")
	require.NoError(t, err)

	var outcome game.Outcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcome))
	assert.False(t, outcome.Success)
	assert.Equal(t, "Einstein", outcome.Concept)
	assert.Equal(t, 2, outcome.QuestionsAsked)
	assert.Equal(t, 2, outcome.MaxTurns)
	require.Len(t, outcome.Conversation, 2)
	assert.Equal(t, "Yes", outcome.Conversation[0].Answer)
	assert.NotEmpty(t, outcome.SessionID)
}

func TestPlayReportsInferenceFailure(t *testing.T) {
	for _, stream := range []string{"--stream=false", "--stream=true"} {
		t.Run(stream, func(t *testing.T) {
			srv := unavailableServer(t)
			out, err := run(t, "play", "--api-type", "openai", "--api-key", "x", "--base-url", srv.URL, stream)
			require.Error(t, err)
			assert.True(t, errors.Is(err, game.ErrInference))

			var sessionErr *game.SessionError
			require.True(t, errors.As(err, &sessionErr))
			assert.Equal(t, 0, sessionErr.History.Len())

			assert.Contains(t, out, "💥 GAME FAILED")
			assert.NotContains(t, out, "GAME OVER")
			assert.NotContains(t, out, "GAME SUMMARY")
		})
	}
}

func TestPlayRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("AKINATOR_API_KEY", "")
	_, err := run(t, "play")
	require.Error(t, err)
	assert.True(t, errors.Is(err, settings.ErrMissingAPIKey))
}

func TestPlayRejectsBadFlags(t *testing.T) {
	_, err := run(t, "play", "--api-type", "mock", "--output", "xml")
	require.Error(t, err)

	_, err = run(t, "play", "--api-type", "mock", "--max-turns", "0")
	require.Error(t, err)
}

func TestPlayWithPromptOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("guesser_system: 'Be quick.'\n"), 0o644))

	out, err := run(t, "prompts", "--prompts", path)
	require.NoError(t, err)

	var templates game.PromptTemplates
	require.NoError(t, yaml.Unmarshal([]byte(out), &templates))
	assert.Equal(t, "Be quick.", templates.GuesserSystem)
	assert.Equal(t, game.DefaultPromptTemplates().AnswererSystem, templates.AnswererSystem)

	_, err = run(t, "play", "--api-type", "mock", "--prompts", path)
	require.NoError(t, err)
}

func writeConcepts(t *testing.T, concepts string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "concepts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(concepts), 0o644))
	return path
}

// unavailableServer answers every OpenAI request with 503.
func unavailableServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"service unavailable","type":"server_error"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

type batchRow struct {
	Concept        string `json:"concept" yaml:"concept"`
	Success        bool   `json:"success" yaml:"success"`
	QuestionsAsked int    `json:"questions_asked" yaml:"questions_asked"`
	Error          string `json:"error" yaml:"error"`
}

func TestBatchTable(t *testing.T) {
	path := writeConcepts(t, "- Einstein\n- Paris\n- Mount Everest\n")

	out, err := run(t, "batch", "--api-type", "mock", "--concurrency", "2", path)
	require.NoError(t, err)
	for _, concept := range []string{"Einstein", "Paris", "Mount Everest"} {
		assert.Contains(t, out, concept)
	}
	assert.Less(t, strings.Index(out, "Einstein"), strings.Index(out, "Mount Everest"))
}

func TestBatchStructuredOutput(t *testing.T) {
	path := writeConcepts(t, "concepts:\n  - Einstein\n  - Mount Everest\n")

	out, err := run(t, "batch", "--api-type", "mock", "--output", "yaml", path)
	require.NoError(t, err)
	var rows []batchRow
	require.NoError(t, yaml.Unmarshal([]byte(out), &rows))
	assert.Equal(t, []batchRow{
		{Concept: "Einstein", Success: true, QuestionsAsked: 3},
		{Concept: "Mount Everest", Success: true, QuestionsAsked: 3},
	}, rows)

	out, err = run(t, "batch", "--api-type", "mock", "--output", "json", path)
	require.NoError(t, err)
	rows = nil
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "Mount Everest", rows[1].Concept)
	assert.Equal(t, 3, rows[1].QuestionsAsked)
}

func TestBatchReportsFailedGames(t *testing.T) {
	srv := unavailableServer(t)
	path := writeConcepts(t, "- Einstein\n- Paris\n")

	out, err := run(t, "batch", "--api-type", "openai", "--api-key", "x", "--base-url", srv.URL,
		"--output", "yaml", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 2 games failed")

	var rows []batchRow
	require.NoError(t, yaml.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.False(t, r.Success)
		assert.Equal(t, 0, r.QuestionsAsked)
		assert.Contains(t, r.Error, "guesser inference failed on turn 1")
	}
}

func TestBatchRejectsBadInput(t *testing.T) {
	path := writeConcepts(t, "- Einstein\n")

	_, err := run(t, "batch", "--api-type", "mock", "--concurrency", "0", path)
	require.Error(t, err)

	_, err = run(t, "batch", "--api-type", "mock", "--output", "xml", path)
	require.Error(t, err)

	_, err = run(t, "batch", "--api-type", "mock", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestReadConcepts(t *testing.T) {
	concepts, err := readConcepts(strings.NewReader("concepts:\n  - Einstein\n  - Paris\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Einstein", "Paris"}, concepts)

	concepts, err = readConcepts(strings.NewReader("- Tokyo\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Tokyo"}, concepts)

	_, err = readConcepts(strings.NewReader(""))
	require.Error(t, err)

	_, err = readConcepts(strings.NewReader("concepts: []\n"))
	require.Error(t, err)
}
