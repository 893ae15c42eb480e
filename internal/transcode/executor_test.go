package transcode_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"streamer/internal/config"
	"streamer/internal/jobs"
	"streamer/internal/logging"
	"streamer/internal/notifications"
	"streamer/internal/services"
	"streamer/internal/testsupport"
	"streamer/internal/transcode"
)

type runnerFunc func(ctx context.Context, binary string, args []string) (transcode.Result, error)

func (f runnerFunc) Run(ctx context.Context, binary string, args []string) (transcode.Result, error) {
	return f(ctx, binary, args)
}

func newTask(t *testing.T, store *jobs.Store, cfg *config.Config, id string) transcode.Task {
	t.Helper()
	job := testsupport.NewJob(t, store, cfg, id, "My Movie.mp4")
	testsupport.WriteFile(t, job.SourcePath, 16)
	return transcode.Task{JobID: id, SourcePath: job.SourcePath, OutputDir: cfg.OutputDir(id), Filename: job.Filename}
}

type recordingNotifier struct {
	events   []notifications.Event
	payloads []notifications.Payload
	err      error
}

func (n *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	n.events = append(n.events, event)
	n.payloads = append(n.payloads, payload)
	return n.err
}

func mustGet(t *testing.T, store *jobs.Store, id string) *jobs.Job {
	t.Helper()
	job, err := store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get %s failed: %v", id, err)
	}
	return job
}

func TestExecuteWithStubbedFFmpegSucceeds(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedFFmpeg(testsupport.SuccessfulFFmpeg))
	store := testsupport.MustOpenStore(t, cfg)
	task := newTask(t, store, cfg, "ok1")

	exec := transcode.NewExecutor(store, transcode.OptionsFromConfig(cfg), logging.NewNop())
	if err := exec.Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	job := mustGet(t, store, "ok1")
	if job.Status != jobs.StatusReady || job.Message != "" {
		t.Fatalf("expected ready with empty message, got %s %q", job.Status, job.Message)
	}
	if _, err := os.Stat(filepath.Join(task.OutputDir, transcode.PlaylistName)); err != nil {
		t.Fatalf("expected playlist: %v", err)
	}
	if _, err := os.Stat(logging.JobLogPath(cfg.JobLogDir(), "ok1")); err != nil {
		t.Fatalf("expected job log: %v", err)
	}
}

func TestExecuteWithStubbedFFmpegFails(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedFFmpeg(testsupport.FailingFFmpeg))
	store := testsupport.MustOpenStore(t, cfg)
	task := newTask(t, store, cfg, "bad1")

	exec := transcode.NewExecutor(store, transcode.OptionsFromConfig(cfg), logging.NewNop())
	err := exec.Execute(context.Background(), task)
	if !errors.Is(err, transcode.ErrTranscodeFailed) {
		t.Fatalf("expected ErrTranscodeFailed, got %v", err)
	}
	var failure *transcode.FailureError
	if !errors.As(err, &failure) || failure.ExitCode != 1 {
		t.Fatalf("expected FailureError with exit 1, got %#v", err)
	}

	job := mustGet(t, store, "bad1")
	if job.Status != jobs.StatusFailed {
		t.Fatalf("expected failed, got %s", job.Status)
	}
	if job.Message != "ffmpeg error: Invalid data found when processing input" {
		t.Fatalf("unexpected message %q", job.Message)
	}
}

func TestExecuteObservesProcessingDuringRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	task := newTask(t, store, cfg, "mid")

	var seen *jobs.Job
	runner := runnerFunc(func(ctx context.Context, _ string, _ []string) (transcode.Result, error) {
		seen = mustGet(t, store, "mid")
		return transcode.Result{}, nil
	})
	exec := transcode.NewExecutor(store, transcode.Options{}, logging.NewNop(), transcode.WithRunner(runner))
	if err := exec.Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if seen == nil || seen.Status != jobs.StatusProcessing || seen.Message != jobs.StartedMessage {
		t.Fatalf("expected processing during run, got %#v", seen)
	}
	if _, err := os.Stat(task.OutputDir); err != nil {
		t.Fatalf("expected output dir created before run: %v", err)
	}
}

func TestExecutePassesOnlyStoredPaths(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	task := newTask(t, store, cfg, "args")

	var gotBinary string
	var gotArgs []string
	runner := runnerFunc(func(_ context.Context, binary string, args []string) (transcode.Result, error) {
		gotBinary, gotArgs = binary, args
		return transcode.Result{}, nil
	})
	opts := transcode.OptionsFromConfig(cfg)
	exec := transcode.NewExecutor(store, opts, logging.NewNop(), transcode.WithRunner(runner))
	if err := exec.Execute(context.Background(), task); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if gotBinary != "ffmpeg" {
		t.Fatalf("unexpected binary %q", gotBinary)
	}
	want := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", task.SourcePath,
		"-c:v", "libx264", "-profile:v", "baseline", "-preset", "veryfast", "-crf", "23",
		"-g", "48", "-keyint_min", "48", "-sc_threshold", "0",
		"-c:a", "aac", "-b:a", "128k",
		"-f", "hls", "-hls_time", "6", "-hls_list_size", "0",
		"-hls_segment_filename", filepath.Join(task.OutputDir, "segment_%03d.ts"),
		filepath.Join(task.OutputDir, "playlist.m3u8"),
	}
	if strings.Join(gotArgs, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected args:\n got %q\nwant %q", gotArgs, want)
	}
	for _, arg := range gotArgs {
		if strings.Contains(arg, "My Movie") {
			t.Fatalf("display filename leaked into command: %q", arg)
		}
	}
}

func TestExecuteTruncatesDiagnostics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	task := newTask(t, store, cfg, "long")

	// 'é' is two bytes, so a 400 byte cut lands mid-rune when prefixed by one byte.
	stderr := "\n x" + strings.Repeat("é", 500)
	runner := runnerFunc(func(context.Context, string, []string) (transcode.Result, error) {
		return transcode.Result{ExitCode: 183, Stderr: stderr}, nil
	})
	exec := transcode.NewExecutor(store, transcode.Options{MaxMessageBytes: 400}, logging.NewNop(), transcode.WithRunner(runner))
	if err := exec.Execute(context.Background(), task); !errors.Is(err, transcode.ErrTranscodeFailed) {
		t.Fatalf("expected ErrTranscodeFailed, got %v", err)
	}

	job := mustGet(t, store, "long")
	excerpt := strings.TrimPrefix(job.Message, "ffmpeg error: ")
	if excerpt == job.Message {
		t.Fatalf("missing prefix in %q", job.Message)
	}
	if len(excerpt) > 400 {
		t.Fatalf("excerpt too long: %d bytes", len(excerpt))
	}
	if !strings.HasPrefix(excerpt, "xé") || strings.ContainsRune(excerpt, '�') {
		t.Fatalf("excerpt not trimmed on a rune boundary: %q", excerpt)
	}
}

func TestExecuteEmptyStderrReportsExitCode(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	task := newTask(t, store, cfg, "quiet")

	runner := runnerFunc(func(context.Context, string, []string) (transcode.Result, error) {
		return transcode.Result{ExitCode: 69}, nil
	})
	exec := transcode.NewExecutor(store, transcode.Options{}, logging.NewNop(), transcode.WithRunner(runner))
	_ = exec.Execute(context.Background(), task)

	if job := mustGet(t, store, "quiet"); job.Message != "ffmpeg error: exit status 69" {
		t.Fatalf("unexpected message %q", job.Message)
	}
}

func TestExecuteMissingBinaryFailsJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Transcode.FFmpegBinary = filepath.Join(testsupport.BaseDir(cfg), "no-such-ffmpeg")
	store := testsupport.MustOpenStore(t, cfg)
	task := newTask(t, store, cfg, "nobin")

	exec := transcode.NewExecutor(store, transcode.OptionsFromConfig(cfg), logging.NewNop())
	err := exec.Execute(context.Background(), task)
	if !errors.Is(err, transcode.ErrUnexpectedFault) || !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool fault, got %v", err)
	}
	job := mustGet(t, store, "nobin")
	if job.Status != jobs.StatusFailed || !strings.HasPrefix(job.Message, "failed to start ffmpeg") {
		t.Fatalf("unexpected job %s %q", job.Status, job.Message)
	}
}

func TestExecuteTimeout(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	task := newTask(t, store, cfg, "slow")

	runner := runnerFunc(func(ctx context.Context, _ string, _ []string) (transcode.Result, error) {
		<-ctx.Done()
		return transcode.Result{}, ctx.Err()
	})
	exec := transcode.NewExecutor(store, transcode.Options{Timeout: 50 * time.Millisecond}, logging.NewNop(), transcode.WithRunner(runner))
	err := exec.Execute(context.Background(), task)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	job := mustGet(t, store, "slow")
	if job.Status != jobs.StatusFailed || job.Message != "transcode timed out after 50ms" {
		t.Fatalf("unexpected job %s %q", job.Status, job.Message)
	}
}

func TestExecuteCanceledContextStillRecordsFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	task := newTask(t, store, cfg, "cancel")

	ctx, cancel := context.WithCancel(context.Background())
	runner := runnerFunc(func(ctx context.Context, _ string, _ []string) (transcode.Result, error) {
		cancel()
		<-ctx.Done()
		return transcode.Result{}, ctx.Err()
	})
	exec := transcode.NewExecutor(store, transcode.Options{}, logging.NewNop(), transcode.WithRunner(runner))
	if err := exec.Execute(ctx, task); !errors.Is(err, transcode.ErrUnexpectedFault) {
		t.Fatalf("expected fault, got %v", err)
	}
	job := mustGet(t, store, "cancel")
	if job.Status != jobs.StatusFailed || job.Message != "transcode canceled during shutdown" {
		t.Fatalf("unexpected job %s %q", job.Status, job.Message)
	}
}

func TestExecuteRecoversPanics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	task := newTask(t, store, cfg, "panic")

	runner := runnerFunc(func(context.Context, string, []string) (transcode.Result, error) {
		panic("boom")
	})
	exec := transcode.NewExecutor(store, transcode.Options{}, logging.NewNop(), transcode.WithRunner(runner))
	err := exec.Execute(context.Background(), task)
	if !errors.Is(err, transcode.ErrUnexpectedFault) {
		t.Fatalf("expected ErrUnexpectedFault, got %v", err)
	}
	job := mustGet(t, store, "panic")
	if job.Status != jobs.StatusFailed || job.Message != "unexpected fault: boom" {
		t.Fatalf("unexpected job %s %q", job.Status, job.Message)
	}
}

func TestExecuteOutputDirFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	task := newTask(t, store, cfg, "nodir")

	blocker := filepath.Join(testsupport.BaseDir(cfg), "blocker")
	testsupport.WriteFile(t, blocker, 1)
	task.OutputDir = filepath.Join(blocker, "out")

	var calls atomic.Int32
	runner := runnerFunc(func(context.Context, string, []string) (transcode.Result, error) {
		calls.Add(1)
		return transcode.Result{}, nil
	})
	exec := transcode.NewExecutor(store, transcode.Options{}, logging.NewNop(), transcode.WithRunner(runner))
	if err := exec.Execute(context.Background(), task); !errors.Is(err, transcode.ErrUnexpectedFault) {
		t.Fatalf("expected fault, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatal("runner must not be invoked when the output dir cannot be created")
	}
	job := mustGet(t, store, "nodir")
	if job.Status != jobs.StatusFailed || !strings.HasPrefix(job.Message, "create output directory") {
		t.Fatalf("unexpected job %s %q", job.Status, job.Message)
	}
}

func TestExecuteLeavesUnclaimableJobAlone(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	task := newTask(t, store, cfg, "done")
	if err := store.UpdateStatus(context.Background(), "done", jobs.StatusReady, ""); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	var calls atomic.Int32
	runner := runnerFunc(func(context.Context, string, []string) (transcode.Result, error) {
		calls.Add(1)
		return transcode.Result{}, nil
	})
	exec := transcode.NewExecutor(store, transcode.Options{}, logging.NewNop(), transcode.WithRunner(runner))
	if err := exec.Execute(context.Background(), task); !errors.Is(err, jobs.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatal("runner must not be invoked for an unclaimable job")
	}
	if job := mustGet(t, store, "done"); job.Status != jobs.StatusReady {
		t.Fatalf("job status changed to %s", job.Status)
	}

	missing := transcode.Task{JobID: "ghost", OutputDir: t.TempDir()}
	if err := exec.Execute(context.Background(), missing); !errors.Is(err, jobs.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExecuteNotifiesOutcome(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	good := newTask(t, store, cfg, "note-ok")
	bad := newTask(t, store, cfg, "note-bad")

	notifier := &recordingNotifier{}
	runner := runnerFunc(func(_ context.Context, _ string, args []string) (transcode.Result, error) {
		if strings.Contains(strings.Join(args, " "), "note-bad") {
			return transcode.Result{ExitCode: 1, Stderr: "moov atom not found"}, nil
		}
		return transcode.Result{}, nil
	})
	exec := transcode.NewExecutor(store, transcode.OptionsFromConfig(cfg), logging.NewNop(),
		transcode.WithRunner(runner), transcode.WithNotifier(notifier))

	if err := exec.Execute(context.Background(), good); err != nil {
		t.Fatalf("Execute good: %v", err)
	}
	if err := exec.Execute(context.Background(), bad); err == nil {
		t.Fatal("expected failure for bad task")
	}

	if len(notifier.events) != 2 {
		t.Fatalf("expected 2 notifications, got %v", notifier.events)
	}
	if notifier.events[0] != notifications.EventJobReady || notifier.payloads[0].JobID != "note-ok" || notifier.payloads[0].Filename != "My Movie.mp4" {
		t.Fatalf("unexpected ready notification %v %#v", notifier.events[0], notifier.payloads[0])
	}
	if notifier.events[1] != notifications.EventJobFailed || notifier.payloads[1].Message != "ffmpeg error: moov atom not found" {
		t.Fatalf("unexpected failed notification %v %#v", notifier.events[1], notifier.payloads[1])
	}
}

func TestExecuteIgnoresNotifierErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	task := newTask(t, store, cfg, "note-err")

	notifier := &recordingNotifier{err: errors.New("ntfy unreachable")}
	runner := runnerFunc(func(context.Context, string, []string) (transcode.Result, error) {
		return transcode.Result{}, nil
	})
	exec := transcode.NewExecutor(store, transcode.OptionsFromConfig(cfg), logging.NewNop(),
		transcode.WithRunner(runner), transcode.WithNotifier(notifier))

	if err := exec.Execute(context.Background(), task); err != nil {
		t.Fatalf("notifier error leaked into Execute: %v", err)
	}
	if job := mustGet(t, store, "note-err"); job.Status != jobs.StatusReady {
		t.Fatalf("expected ready, got %s", job.Status)
	}
}
