package spawn

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcornut/automation/internal/executor"
	"github.com/gcornut/automation/internal/logging"
)

type recorder struct {
	mu  sync.Mutex
	out []string
	err []string
	got chan string
}

func newRecorder() *recorder {
	return &recorder{got: make(chan string, 100)}
}

func (r *recorder) Out(text string, extra ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	line := text
	for _, v := range extra {
		line += " " + fmt.Sprint(v)
	}
	r.out = append(r.out, line)
	r.got <- line
}

func (r *recorder) Err(text string, extra ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = append(r.err, text)
}

func (r *recorder) options() Options {
	return Options{Out: r.Out, Err: r.Err}
}

func TestRunner_Success(t *testing.T) {
	exec := executor.NewFakeExecutor()
	exec.RegisterCommand("borg", func(cmd executor.Command, stdout, stderr io.Writer) int {
		io.WriteString(stdout, "Archive name: a\nDeduplicated size: 1 MB\n")
		io.WriteString(stderr, "warning: x\n")
		return 0
	})
	rec := newRecorder()

	err := New(exec, false).Run("borg", []string{"create", "--stats"}, rec.options())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"borg create --stats",
		"Archive name: a",
		"Deduplicated size: 1 MB",
		"borg finished",
	}, rec.out)
	assert.Equal(t, []string{"warning: x"}, rec.err)
}

func TestRunner_NonZeroExit(t *testing.T) {
	exec := executor.NewFakeExecutor()
	exec.RegisterCommand("rclone", func(cmd executor.Command, stdout, stderr io.Writer) int {
		io.WriteString(stderr, "Failed to sync\n")
		return 3
	})
	rec := newRecorder()

	err := New(exec, false).Run("rclone", []string{"sync"}, rec.options())

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "rclone", exitErr.Program)
	assert.Equal(t, "rclone exited with status 3", err.Error())
	assert.Equal(t, []string{"rclone sync"}, rec.out)
	assert.Equal(t, []string{"Failed to sync"}, rec.err)
}

type signaledProcess struct{}

func (signaledProcess) Wait() (int, error) {
	return -1, &executor.SignalError{Signal: syscall.SIGKILL}
}

type signalExecutor struct{}

func (signalExecutor) Start(executor.Command) (executor.Process, error) {
	return signaledProcess{}, nil
}

func TestRunner_KilledBySignal(t *testing.T) {
	rec := newRecorder()

	err := New(signalExecutor{}, false).Run("rsync", []string{"-aL"}, rec.options())

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, syscall.SIGKILL, exitErr.Signal)
	assert.Equal(t, "rsync terminated by signal killed", err.Error())
	assert.Equal(t, []string{"rsync -aL"}, rec.out)
}

func TestRunner_StartFailure(t *testing.T) {
	rec := newRecorder()

	err := New(executor.NewFakeExecutor(), false).Run("missing", nil, rec.options())

	require.Error(t, err)
	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr))
	assert.Contains(t, err.Error(), "starting missing")
}

func TestRunner_DryRun(t *testing.T) {
	exec := executor.NewFakeExecutor()
	rec := newRecorder()

	r := New(exec, true)
	require.True(t, r.DryRun())
	err := r.Run("borg", []string{"prune", "--list"}, rec.options())

	require.NoError(t, err)
	assert.Equal(t, []string{"borg prune --list"}, rec.out)
	assert.Empty(t, rec.err)
	assert.Empty(t, exec.Started())
}

func TestRunner_PassesEnvAndArgsInOrder(t *testing.T) {
	exec := executor.NewFakeExecutor()
	exec.RegisterCommand("borg", func(cmd executor.Command, stdout, stderr io.Writer) int { return 0 })
	env := map[string]string{"BORG_PASSPHRASE": "p"}

	err := New(exec, false).Run("borg", []string{"b", "a", "c"}, Options{Env: env, Out: newRecorder().Out, Err: newRecorder().Err})
	require.NoError(t, err)

	started := exec.Started()
	require.Len(t, started, 1)
	assert.Equal(t, []string{"b", "a", "c"}, started[0].Args)
	assert.Equal(t, env, started[0].Env)
}

func TestRunner_StreamsBeforeExit(t *testing.T) {
	release := make(chan struct{})
	exec := executor.NewFakeExecutor()
	exec.RegisterCommand("slow", func(cmd executor.Command, stdout, stderr io.Writer) int {
		io.WriteString(stdout, "progress 1\n")
		<-release
		return 0
	})
	rec := newRecorder()

	done := make(chan error, 1)
	go func() { done <- New(exec, false).Run("slow", nil, rec.options()) }()

	assert.Equal(t, "slow", <-rec.got)
	select {
	case line := <-rec.got:
		assert.Equal(t, "progress 1", line)
	case <-time.After(5 * time.Second):
		t.Fatal("output was not forwarded while the child was running")
	}

	close(release)
	require.NoError(t, <-done)
}

func TestRunner_ForwardsCarriageReturnProgress(t *testing.T) {
	release := make(chan struct{})
	exec := executor.NewFakeExecutor()
	exec.RegisterCommand("rsync", func(cmd executor.Command, stdout, stderr io.Writer) int {
		io.WriteString(stdout, "  1,048,576  10%   1.00MB/s\r")
		io.WriteString(stdout, "  5,242,880  50%   1.00MB/s\r")
		<-release
		io.WriteString(stdout, "  10,485,760 100%   1.00MB/s\r\nsent 10 bytes\n")
		return 0
	})
	rec := newRecorder()

	done := make(chan error, 1)
	go func() { done <- New(exec, false).Run("rsync", []string{"--progress"}, rec.options()) }()

	assert.Equal(t, "rsync --progress", <-rec.got)
	for _, want := range []string{"  1,048,576  10%   1.00MB/s", "  5,242,880  50%   1.00MB/s"} {
		select {
		case line := <-rec.got:
			assert.Equal(t, want, line)
		case <-time.After(5 * time.Second):
			t.Fatalf("%q was not forwarded while the child was running", want)
		}
	}

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, []string{
		"rsync --progress",
		"  1,048,576  10%   1.00MB/s",
		"  5,242,880  50%   1.00MB/s",
		"  10,485,760 100%   1.00MB/s",
		"sent 10 bytes",
		"rsync finished",
	}, rec.out)
}

func TestLineWriter_SplitsAcrossWrites(t *testing.T) {
	var got []string
	w := newLineWriter(func(text string, extra ...any) { got = append(got, text) })

	for _, chunk := range []string{"a", "b\r", "\nc\n\n", "d\r\r", "e"} {
		n, err := w.Write([]byte(chunk))
		require.NoError(t, err)
		assert.Equal(t, len(chunk), n)
	}
	assert.Equal(t, []string{"ab", "c", "d"}, got)

	w.Flush()
	assert.Equal(t, []string{"ab", "c", "d", "e"}, got)
	assert.Zero(t, w.buf.Len())
}

func TestRunner_FlushesPartialLine(t *testing.T) {
	exec := executor.NewFakeExecutor()
	exec.RegisterCommand("p", func(cmd executor.Command, stdout, stderr io.Writer) int {
		io.WriteString(stdout, "par")
		io.WriteString(stdout, "tial")
		return 0
	})
	rec := newRecorder()

	require.NoError(t, New(exec, false).Run("p", nil, rec.options()))

	assert.Equal(t, []string{"p", "partial", "p finished"}, rec.out)
}

func TestRunner_WithPrefixedLogger(t *testing.T) {
	exec := executor.NewFakeExecutor()
	exec.RegisterCommand("/usr/bin/rsync", func(cmd executor.Command, stdout, stderr io.Writer) int {
		io.WriteString(stdout, "sending incremental file list\n\n")
		return 0
	})
	var out, errOut bytes.Buffer
	log := logging.New(logging.Prefix("synchronize:home->nas"), logging.WithOutput(&out, &errOut))

	err := New(exec, false).Run("/usr/bin/rsync", []string{"-aL", "/src/", "nas:/dst"}, Options{Out: log.Out, Err: log.Err})
	require.NoError(t, err)

	assert.Equal(t,
		"[synchronize:home->nas] /usr/bin/rsync -aL /src/ nas:/dst\n"+
			"[synchronize:home->nas] sending incremental file list\n"+
			"[synchronize:home->nas] /usr/bin/rsync finished\n",
		out.String())
	assert.Empty(t, errOut.String())
}
