package logging

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMirror struct {
	mu    sync.Mutex
	fds   []int
	lines []string
}

func (m *recordingMirror) Send(fd int, line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fds = append(m.fds, fd)
	m.lines = append(m.lines, line)
	return nil
}

func newTestLogger(label string, opts ...Option) (*Logger, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	opts = append([]Option{WithOutput(&out, &errOut)}, opts...)
	return New(Prefix(label), opts...), &out, &errOut
}

func TestLogger_PrefixesEveryLine(t *testing.T) {
	l, out, errOut := newTestLogger("backup:home")

	l.Out("first\nsecond\nthird\n\n  \t")

	assert.Equal(t, "[backup:home] first\n[backup:home] second\n[backup:home] third\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestLogger_LineCountMatchesInput(t *testing.T) {
	l, out, _ := newTestLogger("x")

	inputs := []string{"one", "one\ntwo", "a\nb\nc\n", "a\n\nb  \n\n"}
	for _, in := range inputs {
		out.Reset()
		l.Out(in)

		want := len(strings.Split(strings.TrimRight(in, " \n\t"), "\n"))
		got := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
		require.Len(t, got, want, "input %q", in)
		for _, line := range got {
			assert.True(t, strings.HasPrefix(line, "[x] "), "line %q", line)
		}
	}
}

func TestLogger_ErrGoesToStderr(t *testing.T) {
	l, out, errOut := newTestLogger("sync")

	l.Err("boom")

	assert.Empty(t, out.String())
	assert.Equal(t, "[sync] boom\n", errOut.String())
}

func TestLogger_ExtrasFollowText(t *testing.T) {
	l, out, _ := newTestLogger("backup")

	l.Out("Started", 42, "now")
	l.Out("/usr/bin/borg", "finished")

	assert.Equal(t, "[backup] Started 42 now\n[backup] /usr/bin/borg finished\n", out.String())
}

func TestLogger_ExtrasAppendToLastLine(t *testing.T) {
	l, out, _ := newTestLogger("p")

	l.Out("a\nb\n", "c")

	assert.Equal(t, "[p] a\n[p] b c\n", out.String())
}

func TestLogger_EmptyTextStillWritesPrefix(t *testing.T) {
	l, out, _ := newTestLogger("p")

	l.Out("")

	assert.Equal(t, "[p] \n", out.String())
}

func TestLogger_Blank(t *testing.T) {
	l, out, _ := newTestLogger("p")

	l.Blank()

	assert.Equal(t, "\n", out.String())
}

func TestLogger_Mirror(t *testing.T) {
	m := &recordingMirror{}
	l, _, _ := newTestLogger("p", WithMirror(m))

	l.Out("a\nb")
	l.Err("c")

	assert.Equal(t, []int{1, 1, 2}, m.fds)
	assert.Equal(t, []string{"[p] a", "[p] b", "[p] c"}, m.lines)
}

func TestLogger_ColorWrapsLabelOnly(t *testing.T) {
	l, out, errOut := newTestLogger("p", WithColor(true))

	l.Out("hello")
	l.Err("bad")

	assert.Equal(t, ansiBold+"[p]"+ansiReset+" hello\n", out.String())
	assert.Equal(t, ansiBoldRed+"[p]"+ansiReset+" bad\n", errOut.String())
}

func TestLogger_ConcurrentWritesDoNotInterleave(t *testing.T) {
	var out bytes.Buffer
	a := New(Prefix("a"), WithOutput(&out, &out))
	b := New(Prefix("b"), WithOutput(&out, &out))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() { defer wg.Done(); a.Out("1\n2\n3") }()
		go func() { defer wg.Done(); b.Out("1\n2\n3") }()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 300)
	for i := 0; i < len(lines); i += 3 {
		label := lines[i][:3]
		assert.Equal(t, label+" 1", lines[i])
		assert.Equal(t, label+" 2", lines[i+1])
		assert.Equal(t, label+" 3", lines[i+2])
	}
}

func TestParseColorMode(t *testing.T) {
	tests := []struct {
		in      string
		want    ColorMode
		wantErr bool
	}{
		{"", ColorAuto, false},
		{"auto", ColorAuto, false},
		{"ALWAYS", ColorAlways, false},
		{"never", ColorNever, false},
		{"sometimes", "", true},
	}
	for _, tt := range tests {
		got, err := ParseColorMode(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestColorMode_Enabled(t *testing.T) {
	assert.True(t, ColorAlways.Enabled(nil))
	assert.False(t, ColorNever.Enabled(nil))
	assert.False(t, ColorAuto.Enabled(nil))
}
