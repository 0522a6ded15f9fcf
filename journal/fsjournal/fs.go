package fsjournal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	logging "github.com/ipfs/go-log/v2"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/xerrors"

	"github.com/tradepost-labs/tradepost/build"
	"github.com/tradepost-labs/tradepost/journal"
)

var log = logging.Logger("fsjournal")

const RFC3339nocolon = "2006-01-02T150405Z0700"

// fsJournal is a basic journal backed by files on a filesystem.
type fsJournal struct {
	journal.EventTypeRegistry

	dir       string
	sizeLimit int64
	keep      int

	fi    *os.File
	fSize int64

	incoming chan *journal.Event

	closing chan struct{}
	closed  chan struct{}
}

// OpenFSJournal constructs a rolling filesystem journal under
// <path>/journal. Per-file size limit and the number of rolled files
// to keep come from the TRADEPOST_JOURNAL_* environment variables,
// defaulting to 1GiB and 3.
func OpenFSJournal(path string, disabled journal.DisabledEvents) (journal.Journal, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, xerrors.Errorf("failed to expand journal path: %w", err)
	}

	dir := filepath.Join(path, "journal")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to mk directory %s for file journal: %w", dir, err)
	}

	f := &fsJournal{
		EventTypeRegistry: journal.NewEventTypeRegistry(disabled),
		dir:               dir,
		sizeLimit:         journal.EnvMaxSize,
		keep:              int(journal.EnvMaxBackups),
		incoming:          make(chan *journal.Event, 32),
		closing:           make(chan struct{}),
		closed:            make(chan struct{}),
	}

	if err := f.rollJournalFile(); err != nil {
		return nil, err
	}

	go f.runLoop()

	return f, nil
}

func (f *fsJournal) RecordEvent(evtType journal.EventType, supplier func() interface{}) {
	defer func() {
		if r := recover(); r != nil {
			log.Warnf("recovered from panic while recording journal event; type=%s, err=%v", evtType, r)
		}
	}()

	if !evtType.Enabled() {
		return
	}

	je := &journal.Event{
		EventType: evtType,
		Timestamp: build.Clock.Now(),
		Data:      supplier(),
	}
	select {
	case f.incoming <- je:
	case <-f.closing:
		log.Warnw("journal closed but tried to log event", "event", je)
	}
}

func (f *fsJournal) Close() error {
	close(f.closing)
	<-f.closed
	return nil
}

func (f *fsJournal) putEvent(evt *journal.Event) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	n, err := f.fi.Write(append(b, '\n'))
	if err != nil {
		return err
	}

	f.fSize += int64(n)

	if f.fSize >= f.sizeLimit {
		_ = f.rollJournalFile()
	}

	return nil
}

func (f *fsJournal) rollJournalFile() error {
	if f.fi != nil {
		_ = f.fi.Close()
	}
	current := filepath.Join(f.dir, "tradepost-journal.ndjson")
	rolled := filepath.Join(f.dir, fmt.Sprintf(
		"tradepost-journal-%s.ndjson",
		build.Clock.Now().Format(RFC3339nocolon),
	))

	// check if journal file exists
	if fi, err := os.Stat(current); err == nil && !fi.IsDir() {
		err := os.Rename(current, rolled)
		if err != nil {
			return xerrors.Errorf("failed to roll journal file: %w", err)
		}
	}

	if err := f.pruneOldFiles(); err != nil {
		log.Warnw("failed to prune rolled journal files", "err", err)
	}

	nfi, err := os.Create(current)
	if err != nil {
		return xerrors.Errorf("failed to create journal file: %w", err)
	}

	f.fi = nfi
	f.fSize = 0

	return nil
}

// pruneOldFiles drops the oldest rolled journal files over the keep limit.
// Rolled file names embed their roll time, so lexical order is age order.
func (f *fsJournal) pruneOldFiles() error {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return err
	}

	var rolled []string
	for _, e := range entries {
		if e.IsDir() || e.Name() == "tradepost-journal.ndjson" {
			continue
		}
		rolled = append(rolled, e.Name())
	}

	if len(rolled) <= f.keep {
		return nil
	}

	sort.Strings(rolled)
	for _, name := range rolled[:len(rolled)-f.keep] {
		if err := os.Remove(filepath.Join(f.dir, name)); err != nil {
			return err
		}
	}
	return nil
}

func (f *fsJournal) runLoop() {
	defer close(f.closed)

	for {
		select {
		case je := <-f.incoming:
			if err := f.putEvent(je); err != nil {
				log.Errorw("failed to write out journal event", "event", je, "err", err)
			}
		case <-f.closing:
			_ = f.fi.Close()
			return
		}
	}
}
