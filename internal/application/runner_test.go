package application

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modelrank/judgekit/infrastructure/judge"
	"github.com/modelrank/judgekit/infrastructure/parsers"
	"github.com/modelrank/judgekit/internal/ports"
	"github.com/modelrank/judgekit/internal/testutils"
)

func writeRunInput(t *testing.T) (inputPath, outputPath string) {
	t.Helper()
	dir := t.TempDir()
	inputPath = filepath.Join(dir, "examples.ndjson")
	outputPath = filepath.Join(dir, "judgements.ndjson")

	input := strings.Join([]string{
		`{"dataset":"dev","query_id":"q1","query_text":"how do plants make food","docid":"d1","doc":"Photosynthesis.","gold_relevance":2}`,
		`{"dataset":"dev","query_id":"q2","query_text":"capital of france","docid":"d2","doc":"Paris is the capital.","gold_relevance":1}`,
	}, "\n")
	require.NoError(t, os.WriteFile(inputPath, []byte(input), 0o644))
	return inputPath, outputPath
}

func runConfigForTest(input, output string) *RunConfig {
	return &RunConfig{
		Version:     "1",
		Input:       input,
		Output:      output,
		Concurrency: 2,
		Models: []ModelConfig{{
			ModelID:   "phi3-mini",
			Provider:  "openrouter",
			APIKeyEnv: "UNUSED",
			Strategy:  parsers.StrategyTagged,
		}},
	}
}

// scriptedRunner builds a Runner whose judges run against the given client.
func scriptedRunner(t *testing.T, config *RunConfig, client ports.LLMClient) *Runner {
	t.Helper()
	runner := NewRunner(config)
	runner.newJudge = func(model ModelConfig, logger zerolog.Logger) (*judge.Judge, error) {
		parser, err := parsers.New(model.Strategy, parsers.Config{Field: model.Field})
		if err != nil {
			return nil, err
		}
		prompt, err := judge.NewPromptBuilder(model.Prompt, model.Strategy)
		if err != nil {
			return nil, err
		}
		return judge.New(judge.Config{
			Client: client,
			Parser: parser,
			Prompt: prompt,
			Retry:  judge.RetryConfig{MaxRetries: 0, BaseDelay: 1},
			Identity: judge.Identity{
				ModelID:  model.ModelID,
				Provider: model.Provider,
			},
		})
	}
	return runner
}

func TestRunnerJudgesEveryExample(t *testing.T) {
	input, output := writeRunInput(t)
	config := runConfigForTest(input, output)

	client := testutils.NewMockLLMClient("phi3-mini",
		"LABEL: relevant\nREASONING: Covers the query.")
	runner := scriptedRunner(t, config, client)

	stats, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Examples)
	assert.EqualValues(t, 2, stats.Judged)
	assert.Zero(t, stats.Skipped)
	assert.NotEmpty(t, stats.RunID)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 2)
	for _, line := range lines {
		assert.Contains(t, line, `"model_id":"phi3-mini"`)
		assert.Contains(t, line, `"label":"relevant"`)
	}
}

func TestRunnerSkipsExhaustedPairs(t *testing.T) {
	input, output := writeRunInput(t)
	config := runConfigForTest(input, output)

	client := testutils.NewScriptedLLMClient("phi3-mini",
		testutils.Outcome{Err: errors.New("server error")})
	runner := scriptedRunner(t, config, client)

	stats, err := runner.Run(context.Background())
	require.NoError(t, err, "exhausted pairs must not abort the run")

	assert.EqualValues(t, 0, stats.Judged)
	assert.EqualValues(t, 2, stats.Skipped)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(string(data)), "skipped pairs leave no record")
}

func TestRunnerFailsOnMissingInput(t *testing.T) {
	dir := t.TempDir()
	config := runConfigForTest(
		filepath.Join(dir, "does-not-exist.ndjson"),
		filepath.Join(dir, "out.ndjson"),
	)

	client := testutils.NewMockLLMClient("phi3-mini", "LABEL: relevant")
	runner := scriptedRunner(t, config, client)

	_, err := runner.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open input file")
}
