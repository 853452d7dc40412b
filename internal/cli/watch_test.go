package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/liveresults/internal/controller"
)

// watch runs the watch command with a deadline, so a missing event fails
// the test instead of hanging it.
func (w *workspace) watch(t *testing.T, args ...string) (string, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--db", w.db, "--specs", w.specs, "watch"}, args...))
	err := cmd.ExecuteContext(ctx)
	return buf.String(), err
}

func TestWatchInitialReload(t *testing.T) {
	w := newWorkspace(t, tasksSpec)
	w.seed(t)

	out, err := w.watch(t, "by_priority", "--count", "1", "--no-color")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "[1] reload"), lines[0])
	assert.True(t, strings.HasSuffix(lines[0], "(2 section(s), 3 item(s))"), lines[0])
}

func TestWatchJSON(t *testing.T) {
	w := newWorkspace(t, tasksSpec)
	w.seed(t)

	out, err := w.watch(t, "open_by_priority", "--count", "1", "--format", "json")
	require.NoError(t, err)

	var ev WatchEvent
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &ev))
	assert.Equal(t, "open_by_priority", ev.View)
	assert.Equal(t, controller.EventReload, ev.Kind)
	assert.Equal(t, uint64(1), ev.Generation)
	assert.Equal(t, 1, ev.Sections)
	assert.Equal(t, 2, ev.Items)
}

func TestWatchShow(t *testing.T) {
	w := newWorkspace(t, tasksSpec)
	w.seed(t)

	out, err := w.watch(t, "by_priority", "--count", "1", "--no-color", "--show", "--columns", "title")
	require.NoError(t, err)
	assert.Contains(t, out, "[1] reload")
	assert.Contains(t, out, "by_priority (generation 1)")
	assert.Contains(t, out, "Gamma")
}

func TestWatchSearch(t *testing.T) {
	w := newWorkspace(t, tasksSpec)
	w.seed(t)
	t.Setenv("LIVERESULTS_SEARCH_DELAY", "300ms")

	out, err := w.watch(t, "by_priority", "--count", "2", "--format", "json", "--search", "title=Alpha")
	require.NoError(t, err)

	var events []WatchEvent
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		var ev WatchEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 2)

	assert.Equal(t, controller.EventReload, events[0].Kind)
	assert.Equal(t, 3, events[0].Items)

	assert.Equal(t, controller.EventReload, events[1].Kind)
	assert.Equal(t, uint64(2), events[1].Generation)
	assert.Equal(t, 1, events[1].Sections)
	assert.Equal(t, 1, events[1].Items)
}

func TestWatchMetrics(t *testing.T) {
	w := newWorkspace(t, tasksSpec)
	w.seed(t)
	t.Setenv("LIVERESULTS_METRICS_ADDR", "127.0.0.1:0")

	out, err := w.watch(t, "by_priority", "--count", "1", "--no-color", "--metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "[1] reload")
}

func TestWatchErrors(t *testing.T) {
	w := newWorkspace(t, tasksSpec)
	w.seed(t)

	_, err := w.watch(t, "by_priority", "--poll", "0s")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "--poll must be positive")

	out, err := w.watch(t, "missing")
	require.Error(t, err)
	assert.Contains(t, out, ErrCodeNoView)

	_, err = w.watch(t, "by_priority", "--search", "rank=many")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --search")
}

func TestEventPrinter(t *testing.T) {
	buf := &bytes.Buffer{}
	p := newEventPrinter(buf, "by_priority", false, true)

	p.print(controller.Event{Kind: controller.EventSectionChange, Generation: 3, InsertedSections: []int{1}}, 2, 4)
	assert.Equal(t, "[3] section_change inserted=[1] deleted=[] (2 section(s), 4 item(s))\n", buf.String())
}
