package tui

import (
	"context"
	"log"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"github.com/csheth/docscribe/internal/download"
	"github.com/csheth/docscribe/internal/session"
	"github.com/csheth/docscribe/internal/submission"
)

type generationResultMsg struct {
	settlement session.Settlement
	// path is the on-disk location of an uploaded file, empty otherwise.
	path string
}

type downloadResultMsg struct {
	epoch uint64
	saved download.Saved
	err   error
}

type uploadChangedMsg struct {
	paths []string
}

func generateJob(ticket *session.Ticket, path string) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		settlement := ticket.Run(ctx)
		return generationResultMsg{settlement: settlement, path: path}, settlement.Err
	}
}

func downloadJob(manager *download.Manager, source *submission.Submission, epoch uint64) jobRunner {
	return func(ctx context.Context) (tea.Msg, error) {
		saved, err := manager.Download(ctx, source)
		return downloadResultMsg{epoch: epoch, saved: saved, err: err}, err
	}
}

// watchUploads waits for the next write, create, rename or remove in a
// watched directory. Bursts are coalesced into one message.
func watchUploads(watcher *fsnotify.Watcher) tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
					continue
				}
				changed := map[string]bool{filepath.Clean(ev.Name): true}
				time.Sleep(100 * time.Millisecond)
			drain:
				for {
					select {
					case extra, ok := <-watcher.Events:
						if !ok {
							break drain
						}
						changed[filepath.Clean(extra.Name)] = true
					default:
						break drain
					}
				}
				paths := make([]string, 0, len(changed))
				for path := range changed {
					paths = append(paths, path)
				}
				return uploadChangedMsg{paths: paths}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				log.Printf("[watch] %v", err)
			}
		}
	}
}
