package scheduler

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
	"github.com/core-tools/hsu-watchdog/pkg/metrics"
	"github.com/core-tools/hsu-watchdog/pkg/pathsource"
	"github.com/core-tools/hsu-watchdog/pkg/watchdog"
)

type TestLogger struct{}

func (l *TestLogger) Debugf(format string, args ...interface{})               {}
func (l *TestLogger) Infof(format string, args ...interface{})                {}
func (l *TestLogger) Warnf(format string, args ...interface{})                {}
func (l *TestLogger) Errorf(format string, args ...interface{})               {}
func (l *TestLogger) LogLevelf(level int, format string, args ...interface{}) {}

// fakeEvaluator returns scripted results per path, one entry per evaluation
type fakeEvaluator struct {
	mutex    sync.Mutex
	script   map[string][]watchdog.PathResult
	fallback watchdog.Outcome
	cycles   int
	evals    map[string]int
	dryRuns  map[string]int
}

func newFakeEvaluator() *fakeEvaluator {
	return &fakeEvaluator{
		script:   make(map[string][]watchdog.PathResult),
		fallback: watchdog.OutcomeNoAction,
		evals:    make(map[string]int),
		dryRuns:  make(map[string]int),
	}
}

func (f *fakeEvaluator) next(path string, dryRun bool) watchdog.PathResult {
	f.evals[path]++
	if dryRun {
		f.dryRuns[path]++
		return watchdog.PathResult{Path: path, Outcome: watchdog.OutcomeNoAction, State: watchdog.StateSuspended, DryRun: true}
	}
	queue := f.script[path]
	if len(queue) == 0 {
		return watchdog.PathResult{Path: path, Outcome: f.fallback}
	}
	result := queue[0]
	f.script[path] = queue[1:]
	result.Path = path
	return result
}

func (f *fakeEvaluator) RunCycle(ctx context.Context, paths []string, opts ...watchdog.CycleOption) watchdog.CycleReport {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	f.cycles++
	dryRun := watchdog.DryRunFor(opts...)
	report := watchdog.CycleReport{StartedAt: time.Now()}
	for _, path := range paths {
		report.Results = append(report.Results, f.next(path, dryRun(path)))
	}
	return report
}

func (f *fakeEvaluator) EvaluatePath(ctx context.Context, path string) watchdog.PathResult {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.next(path, false)
}

func (f *fakeEvaluator) Cycles() int {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.cycles
}

type recordingNotifier struct {
	mutex    sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(ctx context.Context, title, message string) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.messages = append(n.messages, message)
	return nil
}

func (n *recordingNotifier) Messages() []string {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return append([]string(nil), n.messages...)
}

type failingSource struct{}

func (failingSource) Paths(context.Context) ([]string, error) {
	return nil, errors.NewIOError("stdin closed", nil)
}

func fastRetry() RetrySettings {
	return RetrySettings{
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
		MaxElapsedTime:  time.Second,
		Multiplier:      1.5,
	}
}

func newTestScheduler(t *testing.T, evaluator Evaluator, paths []string, options Options, recorder *metrics.Recorder) (*Scheduler, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	s, err := New(evaluator, pathsource.NewStaticSource(paths, &TestLogger{}), notifier, options, recorder, &TestLogger{})
	require.NoError(t, err)
	return s, notifier
}

func TestNew_Validation(t *testing.T) {
	source := pathsource.NewStaticSource(nil, &TestLogger{})

	_, err := New(nil, source, &recordingNotifier{}, Options{}, nil, &TestLogger{})
	assert.True(t, errors.IsInvalidArgumentError(err))

	_, err = New(newFakeEvaluator(), nil, &recordingNotifier{}, Options{}, nil, &TestLogger{})
	assert.True(t, errors.IsInvalidArgumentError(err))

	_, err = New(newFakeEvaluator(), source, &recordingNotifier{}, Options{Interval: -time.Second}, nil, &TestLogger{})
	field, ok := errors.InvalidField(err)
	require.True(t, ok)
	assert.Equal(t, "interval", field)
}

func TestRunOnce_RetriesTransientErrors(t *testing.T) {
	evaluator := newFakeEvaluator()
	evaluator.script["/bin/a"] = []watchdog.PathResult{
		{Outcome: watchdog.OutcomeError, Err: errors.NewProcessError("wmi busy", nil)},
		{Outcome: watchdog.OutcomeError, Err: errors.NewProcessError("wmi busy", nil)},
		{Outcome: watchdog.OutcomeLaunched},
	}
	recorder := metrics.NewRecorder()

	s, _ := newTestScheduler(t, evaluator, []string{"/bin/a"}, Options{Retry: fastRetry()}, recorder)
	report, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, watchdog.OutcomeLaunched, report.Results[0].Outcome)
	assert.Equal(t, 3, evaluator.evals["/bin/a"])
	assert.NotEmpty(t, report.CycleID)

	expected := `
# HELP watchdog_path_outcomes_total Path evaluations by outcome
# TYPE watchdog_path_outcomes_total counter
watchdog_path_outcomes_total{outcome="launched"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(recorder.Registry(), strings.NewReader(expected), "watchdog_path_outcomes_total"))
}

func TestRunOnce_PermanentErrorsNotRetried(t *testing.T) {
	evaluator := newFakeEvaluator()
	evaluator.script["/bin/a"] = []watchdog.PathResult{
		{Outcome: watchdog.OutcomeError, Err: errors.NewInvalidArgumentError("path", "must be non-empty")},
	}
	evaluator.script["/bin/b"] = []watchdog.PathResult{
		{Outcome: watchdog.OutcomeError, Err: errors.NewConfigurationError("credentials missing", nil)},
	}

	s, _ := newTestScheduler(t, evaluator, []string{"/bin/a", "/bin/b"}, Options{Retry: fastRetry()}, nil)
	report, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, evaluator.evals["/bin/a"])
	assert.Equal(t, 1, evaluator.evals["/bin/b"])
	assert.Len(t, report.Failed(), 2)
}

func TestRunOnce_RetryGivesUp(t *testing.T) {
	evaluator := newFakeEvaluator()
	evaluator.fallback = watchdog.OutcomeError
	for i := 0; i < 1000; i++ {
		evaluator.script["/bin/a"] = append(evaluator.script["/bin/a"], watchdog.PathResult{
			Outcome: watchdog.OutcomeError,
			Err:     errors.NewLaunchError("exec format error", nil),
		})
	}

	retry := fastRetry()
	retry.MaxElapsedTime = 50 * time.Millisecond
	s, _ := newTestScheduler(t, evaluator, []string{"/bin/a"}, Options{Retry: retry}, nil)
	report, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, watchdog.OutcomeError, report.Results[0].Outcome)
	assert.True(t, errors.IsLaunchError(report.Results[0].Err))
	assert.Greater(t, evaluator.evals["/bin/a"], 1)
}

func TestRunOnce_RetryDisabled(t *testing.T) {
	evaluator := newFakeEvaluator()
	evaluator.script["/bin/a"] = []watchdog.PathResult{
		{Outcome: watchdog.OutcomeError, Err: errors.NewProcessError("wmi busy", nil)},
	}

	s, _ := newTestScheduler(t, evaluator, []string{"/bin/a"}, Options{}, nil)
	_, err := s.RunOnce(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, evaluator.evals["/bin/a"])
}

func TestRunOnce_SourceFailure(t *testing.T) {
	s, err := New(newFakeEvaluator(), failingSource{}, &recordingNotifier{}, Options{}, nil, &TestLogger{})
	require.NoError(t, err)

	_, err = s.RunOnce(context.Background())
	assert.True(t, errors.IsIOError(err))
}

func TestRunOnce_PromptedPathsSurviveCycles(t *testing.T) {
	var out bytes.Buffer
	source := pathsource.NewFallbackSource(
		pathsource.NewJSONFileSource(filepath.Join(t.TempDir(), "check_path.json"), &TestLogger{}),
		pathsource.NewPromptSource(strings.NewReader("/opt/a\n/opt/b\n\n"), &out, &TestLogger{}),
		&TestLogger{},
	)
	evaluator := newFakeEvaluator()
	s, err := New(evaluator, source, &recordingNotifier{}, Options{}, nil, &TestLogger{})
	require.NoError(t, err)

	for cycle := 0; cycle < 2; cycle++ {
		report, err := s.RunOnce(context.Background())
		require.NoError(t, err)
		require.Len(t, report.Results, 2, "cycle %d", cycle)
		assert.Equal(t, "/opt/a", report.Results[0].Path)
		assert.Equal(t, "/opt/b", report.Results[1].Path)
	}
	assert.Equal(t, 2, evaluator.evals["/opt/a"])
	assert.Equal(t, 2, evaluator.evals["/opt/b"])
	assert.Equal(t, 3, strings.Count(out.String(), pathsource.Prompt), "operator is asked in the first cycle only")
}

func TestRunOnce_CircuitBreakerPausesRestarts(t *testing.T) {
	evaluator := newFakeEvaluator()
	evaluator.fallback = watchdog.OutcomeAlertedAndRestarted
	recorder := metrics.NewRecorder()

	options := Options{CircuitBreaker: CircuitBreakerConfig{MaxRestarts: 2, Window: time.Hour}}
	s, notifier := newTestScheduler(t, evaluator, []string{"/bin/a", "/bin/b"}, options, recorder)

	evaluator.script["/bin/b"] = []watchdog.PathResult{{Outcome: watchdog.OutcomeNoAction}, {Outcome: watchdog.OutcomeNoAction}, {Outcome: watchdog.OutcomeNoAction}}
	for i := 0; i < 3; i++ {
		_, err := s.RunOnce(context.Background())
		require.NoError(t, err)
	}

	assert.True(t, s.Breaker().IsOpen("/bin/a"))
	assert.False(t, s.Breaker().IsOpen("/bin/b"))
	assert.Equal(t, 1, evaluator.dryRuns["/bin/a"])
	assert.Equal(t, 0, evaluator.dryRuns["/bin/b"])

	messages := notifier.Messages()
	require.Len(t, messages, 1)
	assert.Contains(t, messages[0], "/bin/a")
	assert.Contains(t, messages[0], "paused")

	expected := `
# HELP watchdog_circuit_breaker_opens_total Times a path's restart circuit breaker opened
# TYPE watchdog_circuit_breaker_opens_total counter
watchdog_circuit_breaker_opens_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(recorder.Registry(), strings.NewReader(expected), "watchdog_circuit_breaker_opens_total"))
}

func TestRun_SinglePass(t *testing.T) {
	defer goleak.VerifyNone(t)

	evaluator := newFakeEvaluator()
	s, _ := newTestScheduler(t, evaluator, []string{"/bin/a"}, Options{}, nil)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, 1, evaluator.Cycles())
}

func TestRun_SinglePassSourceFailure(t *testing.T) {
	s, err := New(newFakeEvaluator(), failingSource{}, &recordingNotifier{}, Options{}, nil, &TestLogger{})
	require.NoError(t, err)

	assert.Error(t, s.Run(context.Background()))
}

func TestRun_PollsUntilCancelled(t *testing.T) {
	defer goleak.VerifyNone(t)

	evaluator := newFakeEvaluator()
	s, _ := newTestScheduler(t, evaluator, []string{"/bin/a"}, Options{Interval: 5 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx)
	}()

	require.Eventually(t, func() bool { return evaluator.Cycles() >= 3 }, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}
