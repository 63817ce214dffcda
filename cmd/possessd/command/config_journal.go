package command

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/pixil98/go-possess/internal/journal"
)

type JournalConfig struct {
	Path string `json:"path"`
}

func (c *JournalConfig) validate() error {
	if c.Path == "" {
		return nil
	}
	if filepath.Ext(c.Path) == "" {
		return fmt.Errorf("journal: path %q should name a database file", c.Path)
	}
	return nil
}

func (c *JournalConfig) Open() (*journal.Journal, error) {
	if c.Path == "" {
		return nil, nil
	}
	return journal.Open(c.Path)
}

// journalWorker closes the journal on shutdown.
type journalWorker struct {
	j *journal.Journal
}

func (w *journalWorker) Start(ctx context.Context) error {
	<-ctx.Done()
	if err := w.j.Close(); err != nil {
		slog.Error("closing journal", "error", err)
	}
	return nil
}
