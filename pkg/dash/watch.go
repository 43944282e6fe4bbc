package dash

import (
	"log"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
)

// configChangedMsg is sent when the watched config file changes on disk.
type configChangedMsg struct{}

// watchConfig creates a file system watcher for the config file's directory
// and returns it with the file's base name. Returns a nil watcher when the
// directory doesn't exist or watcher creation fails; the dashboard then
// simply runs without live config reload.
func watchConfig(configPath string) (*fsnotify.Watcher, string) {
	if configPath == "" {
		return nil, ""
	}
	watcher := initWatcher(filepath.Dir(configPath))
	if watcher == nil {
		return nil, ""
	}
	return watcher, filepath.Base(configPath)
}

// initWatcher creates a watcher on dir, or nil on any failure.
func initWatcher(dir string) *fsnotify.Watcher {
	if _, err := os.Stat(dir); err != nil {
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("fsnotify: failed to create watcher: %v", err)
		return nil
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		log.Printf("fsnotify: failed to watch %s: %v", dir, err)
		return nil
	}
	return watcher
}

// runWatcher returns a command that blocks until the named file changes,
// debouncing rapid event bursts (editors often write twice).
func runWatcher(watcher *fsnotify.Watcher, base string) tea.Cmd {
	return func() tea.Msg {
		debounce := newQuietTimer()
		defer debounce.Stop()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				resetQuietTimer(debounce)

			case <-debounce.C:
				return configChangedMsg{}

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				log.Printf("fsnotify: watcher error: %v", err)
				return nil
			}
		}
	}
}

// newQuietTimer returns a stopped timer with a drained channel.
func newQuietTimer() *time.Timer {
	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	return timer
}

func resetQuietTimer(timer *time.Timer) {
	const quiet = 100 * time.Millisecond
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(quiet)
}
