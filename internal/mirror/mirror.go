// Package mirror keeps a second copy of the uploads tree (dress
// photos, receipts, signatures, agreement PDFs) in a mirror
// directory, as cheap on-site redundancy for a single-machine
// deployment. A full sync runs at startup; thereafter filesystem
// notifications drive incremental copies.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
)

// defaultFlushDuration sets the time given to wait for multiple
// writes to the same file before copying it.
const defaultFlushDuration = 250 * time.Millisecond

// Mirror watches a source directory tree and copies changed files
// into the same relative location under the destination directory.
type Mirror struct {
	srcDir        string
	dstDir        string
	watcher       *fsnotify.Watcher
	logger        *log.Logger
	flushDuration time.Duration
}

// New returns a Mirror from srcDir to dstDir. Both directories must
// exist; the source tree's subdirectories are watched individually as
// fsnotify watches are not recursive.
func New(srcDir, dstDir string, logger *log.Logger) (*Mirror, error) {
	srcDir = filepath.Clean(srcDir)
	dstDir = filepath.Clean(dstDir)
	for _, dir := range []string{srcDir, dstDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("dir %q not found: %w", dir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%q is not a directory", dir)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("fsnotify new watcher error: %w", err)
	}

	m := &Mirror{
		srcDir:        srcDir,
		dstDir:        dstDir,
		watcher:       watcher,
		logger:        logger,
		flushDuration: defaultFlushDuration,
	}

	// Watch the source root and every existing subdirectory.
	err = filepath.WalkDir(srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return m.watcher.Add(path)
	})
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("could not watch %q: %w", srcDir, err)
	}
	return m, nil
}

// Sync copies every file under the source tree to the destination,
// used at startup to catch changes made while the mirror was down.
func (m *Mirror) Sync() error {
	return filepath.WalkDir(m.srcDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || isDotFile(path) {
			return nil
		}
		return m.copyFile(path)
	})
}

// Watch mirrors filesystem changes until the context is cancelled.
// Watch blocks, so needs to be run in a goroutine.
func (m *Mirror) Watch(ctx context.Context) error {

	// changed carries source paths from the event reader to the
	// debounced copier.
	changed := make(chan string)

	g, ctx := errgroup.WithContext(ctx)

	// This goroutine consumes *fsnotify.Watcher events.
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case err, ok := <-m.watcher.Errors:
				if !ok {
					return errors.New("unexpected close from watcher.Errors")
				}
				return fmt.Errorf("unexpected notify error: %w", err)
			case e, ok := <-m.watcher.Events:
				if !ok {
					return errors.New("unexpected close from watcher.Events")
				}
				if !e.Has(fsnotify.Create) && !e.Has(fsnotify.Write) {
					continue
				}
				if isDotFile(e.Name) {
					continue
				}
				// A new subdirectory needs its own watch. Files may
				// land in it before the watch takes effect, so sweep
				// its current contents too.
				if info, err := os.Stat(e.Name); err == nil && info.IsDir() {
					if err := m.watcher.Add(e.Name); err != nil {
						return fmt.Errorf("could not watch new dir %q: %w", e.Name, err)
					}
					entries, err := os.ReadDir(e.Name)
					if err != nil {
						continue
					}
					for _, entry := range entries {
						if entry.IsDir() || isDotFile(entry.Name()) {
							continue
						}
						changed <- filepath.Join(e.Name, entry.Name())
					}
					continue
				}
				changed <- e.Name
			}
		}
	})

	// Buffer bursts of writes to the same file, copying once the
	// writes have settled for a flushDuration.
	g.Go(func() error {
		pending := map[string]bool{}
		timer := time.NewTicker(m.flushDuration)
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case path, ok := <-changed:
				if !ok {
					return nil
				}
				pending[path] = true
				timer.Reset(m.flushDuration)
			case <-timer.C:
				for path := range pending {
					if err := m.copyFile(path); err != nil {
						// The file may have been removed between the
						// event and the flush.
						m.logger.Warn("mirror copy failed", "path", path, "error", err)
					}
					delete(pending, path)
				}
			}
		}
	})

	err := g.Wait()
	close(changed)
	_ = m.watcher.Close()
	return err
}

// copyFile copies one source file to its mirrored location, creating
// intermediate directories as needed.
func (m *Mirror) copyFile(srcPath string) error {
	rel, err := filepath.Rel(m.srcDir, srcPath)
	if err != nil {
		return fmt.Errorf("path %q outside source tree: %w", srcPath, err)
	}
	dstPath := filepath.Join(m.dstDir, rel)
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return err
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = src.Close()
	}()

	dst, err := os.Create(dstPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}

func isDotFile(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
