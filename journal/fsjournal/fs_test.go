package fsjournal

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tradepost-labs/tradepost/journal"
)

func TestFSJournalRecordsEvents(t *testing.T) {
	dir := t.TempDir()

	j, err := OpenFSJournal(dir, nil)
	require.NoError(t, err)

	evtType := j.RegisterEventType("market", "listed")
	for i := 0; i < 3; i++ {
		i := i
		j.RecordEvent(evtType, func() interface{} {
			return map[string]interface{}{"seq": i}
		})
	}

	current := filepath.Join(dir, "journal", "tradepost-journal.ndjson")
	require.Eventually(t, func() bool {
		return countLines(t, current) == 3
	}, 5*time.Second, 10*time.Millisecond)

	f, err := os.Open(current)
	require.NoError(t, err)
	defer f.Close() // nolint

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry struct {
			System string
			Event  string
		}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		require.Equal(t, "market", entry.System)
		require.Equal(t, "listed", entry.Event)
	}

	require.NoError(t, j.Close())
}

func TestDisabledEventsAreDropped(t *testing.T) {
	dir := t.TempDir()

	disabled, err := journal.ParseDisabledEvents("market:listed")
	require.NoError(t, err)

	j, err := OpenFSJournal(dir, disabled)
	require.NoError(t, err)
	defer j.Close() // nolint

	evtType := j.RegisterEventType("market", "listed")
	require.False(t, evtType.Enabled())

	j.RecordEvent(evtType, func() interface{} {
		t.Fatal("supplier must not be called for a disabled event")
		return nil
	})

	time.Sleep(100 * time.Millisecond)
	current := filepath.Join(dir, "journal", "tradepost-journal.ndjson")
	require.Zero(t, countLines(t, current))
}

func TestRollingRemovesOldFiles(t *testing.T) {
	dir := t.TempDir()

	j, err := OpenFSJournal(dir, nil)
	require.NoError(t, err)
	defer j.Close() // nolint

	f := j.(*fsJournal)
	f.keep = 3

	jdir := filepath.Join(dir, "journal")
	for i := 0; i <= f.keep; i++ {
		// rolled file names have second resolution
		time.Sleep(time.Second)
		files, _ := os.ReadDir(jdir)
		require.Lenf(t, files, i+1, "add one file for every roll before max keep")
		require.NoError(t, f.rollJournalFile())
	}
	// on the last iteration, one of the files should have been pruned,
	// so we should still have only the maximum kept files plus the
	// current one.
	time.Sleep(time.Second)
	require.NoError(t, f.rollJournalFile())
	files, _ := os.ReadDir(jdir)
	require.Lenf(t, files, f.keep+1, "files are not being pruned from the journal directory")
}

func countLines(t *testing.T, path string) int {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)

	var n int
	for _, c := range b {
		if c == '\n' {
			n++
		}
	}
	return n
}
