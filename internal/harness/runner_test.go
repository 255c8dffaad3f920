package harness

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surveyeval/qscore/internal/dataset"
	"github.com/surveyeval/qscore/internal/evaluation"
	"github.com/surveyeval/qscore/internal/llm"
	"github.com/surveyeval/qscore/internal/models"
	"github.com/surveyeval/qscore/internal/pipeline"
	"go.uber.org/mock/gomock"
)

const datasetYAML = `name: smoke
cases:
  - id: good
    document: docs/good.txt
    expected_output:
      questions:
        - section: Demographics
          question_text: what is your AGE?
          clarity: 5
          specificity: 5
          bias: 5
          actionability: 3
  - id: no-reply
    document: docs/no-reply.txt
    expected_output:
      questions:
        - question_text: Anything else?
          clarity: 4
  - id: missing-doc
    document: docs/missing.txt
    expected_output:
      questions:
        - question_text: Anything else?
          clarity: 4
`

func quiet() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type fixture struct {
	dir     string
	replies string
	ds      *dataset.Dataset
}

func newFixture(t *testing.T, yaml string, replies map[string]string) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{dir: dir, replies: filepath.Join(dir, "replies")}

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "docs"), 0o755))
	require.NoError(t, os.MkdirAll(f.replies, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "good.txt"), []byte("Demographics\nWhat is your age?"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "no-reply.txt"), []byte("Anything else?"), 0o644))
	for name, text := range replies {
		require.NoError(t, os.WriteFile(filepath.Join(f.replies, name), []byte(text), 0o644))
	}

	path := filepath.Join(dir, "dataset.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	ds, err := dataset.Load(path, nil)
	require.NoError(t, err)
	f.ds = ds
	return f
}

func (f *fixture) scorer(t *testing.T) *pipeline.Scorer {
	t.Helper()
	client, err := llm.NewReplayClient(f.replies, "replay-model", quiet())
	require.NoError(t, err)
	return pipeline.New(client, pipeline.WithLogger(quiet()), pipeline.WithModel("replay-model"))
}

func TestRun_IsolatesFailedDocuments(t *testing.T) {
	f := newFixture(t, datasetYAML, map[string]string{
		"good.csv": "Section,Question_Number,Question_Text,Clarity,Specificity,Bias,Actionability\nDemographics,1,What is your age?,5,5,5,3\n",
	})

	var events []ProgressEvent
	r := New(f.scorer(t), WithLogger(quiet()), WithRunID("run-1"))
	r.OnProgress(func(e ProgressEvent) { events = append(events, e) })

	out, err := r.Run(context.Background(), f.ds)
	require.NoError(t, err)

	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, "smoke", out.Dataset)
	assert.Equal(t, llm.ProviderReplay, out.Provider)
	assert.Equal(t, "replay-model", out.Model)
	assert.Equal(t, models.CoreAttributes().Keys(), out.Attributes)

	require.Len(t, out.Records, 3)
	good, noReply, missing := out.Records[0], out.Records[1], out.Records[2]

	assert.Equal(t, models.StatusPassed, good.Status)
	assert.Equal(t, 1, good.MatchedQuestions)
	assert.InDelta(t, 1.0, good.Metrics[evaluation.ExtractionAccuracy], 1e-9)
	assert.InDelta(t, 0.0, good.Metrics["actionability_mae"], 1e-9)
	require.NotNil(t, good.Actual)

	assert.Equal(t, models.StatusError, noReply.Status)
	assert.Equal(t, string(llm.KindNotFound), noReply.ErrorKind)
	assert.Nil(t, noReply.Metrics)

	assert.Equal(t, models.StatusError, missing.Status)
	assert.Equal(t, "load", missing.ErrorKind)

	// errored documents are excluded from every aggregate
	acc, ok := out.AggregateValue(evaluation.ExtractionAccuracy)
	require.True(t, ok)
	assert.InDelta(t, 1.0, acc, 1e-9)
	for _, m := range out.Aggregate {
		assert.Equal(t, 1, m.Count, m.Name)
	}

	assert.Equal(t, 3, out.Digest.TotalDocuments)
	assert.Equal(t, 1, out.Digest.Passed)
	assert.Equal(t, 2, out.Digest.Errors)
	assert.True(t, out.Passed)

	require.Len(t, events, 8)
	assert.Equal(t, EventRunStart, events[0].EventType)
	assert.Equal(t, EventDocumentStart, events[1].EventType)
	assert.Equal(t, "good", events[1].CaseID)
	assert.Equal(t, EventDocumentComplete, events[2].EventType)
	assert.Equal(t, models.StatusPassed, events[2].Status)
	assert.Equal(t, models.StatusError, events[4].Status)
	assert.Equal(t, 3, events[6].CaseNum)
	assert.Equal(t, EventRunComplete, events[7].EventType)
}

func TestRun_Strict(t *testing.T) {
	f := newFixture(t, datasetYAML, map[string]string{
		"good.csv": "Demographics,1,What is your age?,5,5,5,3\n",
	})

	out, err := New(f.scorer(t), WithLogger(quiet()), WithStrict(true)).Run(context.Background(), f.ds)
	require.NoError(t, err)
	assert.True(t, evaluation.AllPassed(out.Checks))
	assert.False(t, out.Passed)
	assert.NotEmpty(t, out.RunID)
}

func TestRun_ThresholdFailure(t *testing.T) {
	f := newFixture(t, datasetYAML, map[string]string{
		"good.csv": "Demographics,1,What is your age?,1,5,5,3\n",
	})

	out, err := New(f.scorer(t), WithLogger(quiet()), WithCaseFilters("good")).Run(context.Background(), f.ds)
	require.NoError(t, err)

	require.Len(t, out.Records, 1)
	assert.Equal(t, models.StatusFailed, out.Records[0].Status)
	assert.InDelta(t, 4.0, out.Records[0].Metrics["clarity_mae"], 1e-9)
	assert.False(t, out.Passed)

	var failed []string
	for _, c := range out.Checks {
		if c.Status == models.StatusFailed {
			failed = append(failed, c.Metric)
		}
	}
	assert.ElementsMatch(t, []string{"clarity_mae", "clarity_within_1"}, failed)
}

func TestRun_ThresholdOverrides(t *testing.T) {
	yaml := "thresholds:\n  clarity_mae: 5\n  clarity_within_1: 0\n" + datasetYAML[len("name: smoke\n"):]
	f := newFixture(t, yaml, map[string]string{
		"good.csv": "Demographics,1,What is your age?,1,5,5,3\n",
	})

	out, err := New(f.scorer(t), WithLogger(quiet()), WithCaseFilters("good")).Run(context.Background(), f.ds)
	require.NoError(t, err)
	assert.Equal(t, "dataset", out.Dataset)
	assert.True(t, out.Passed)

	out, err = New(f.scorer(t), WithLogger(quiet()), WithCaseFilters("good"),
		WithThresholds(map[string]float64{"clarity_mae": 1})).Run(context.Background(), f.ds)
	require.NoError(t, err)
	assert.False(t, out.Passed)
}

func TestRun_NothingEvaluated(t *testing.T) {
	f := newFixture(t, datasetYAML, nil)

	out, err := New(f.scorer(t), WithLogger(quiet())).Run(context.Background(), f.ds)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Digest.Errors)
	assert.Empty(t, out.Aggregate)
	assert.False(t, out.Passed)
}

func TestRun_ModelCallErrorWithMock(t *testing.T) {
	f := newFixture(t, datasetYAML, nil)

	ctrl := gomock.NewController(t)
	client := llm.NewMockClient(ctrl)
	client.EXPECT().Provider().Return(llm.ProviderAnthropic).AnyTimes()
	client.EXPECT().Complete(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req *llm.Request) (*llm.Response, error) {
			if filepath.Base(req.Document) == "good.txt" {
				return &llm.Response{Text: "Demographics,1,What is your age?,5,5,5,3"}, nil
			}
			return nil, errors.New("error, status code: 429, message: rate limited")
		}).Times(2)

	scorer := pipeline.New(client, pipeline.WithLogger(quiet()))
	out, err := New(scorer, WithLogger(quiet())).Run(context.Background(), f.ds)
	require.NoError(t, err)

	assert.Equal(t, models.StatusPassed, out.Records[0].Status)
	assert.Equal(t, models.StatusError, out.Records[1].Status)
	assert.Equal(t, string(llm.KindRateLimit), out.Records[1].ErrorKind)
	assert.Contains(t, out.Records[1].Error, "rate_limit")

	mae, ok := out.AggregateValue("clarity_mae")
	require.True(t, ok)
	assert.InDelta(t, 0.0, mae, 1e-9)
}

func TestRun_CanceledContext(t *testing.T) {
	f := newFixture(t, datasetYAML, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(f.scorer(t), WithLogger(quiet())).Run(ctx, f.ds)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRun_BadFilter(t *testing.T) {
	f := newFixture(t, datasetYAML, nil)
	_, err := New(f.scorer(t), WithLogger(quiet()), WithCaseFilters("[")).Run(context.Background(), f.ds)
	require.Error(t, err)
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "unknown", errorKind(errors.New("boom")))
	assert.Equal(t, "timeout", errorKind(&llm.ModelCallError{Kind: llm.KindTimeout}))
}
