// SPDX-License-Identifier: GPL-3.0-or-later

package filestore

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the store whenever its file changes, until ctx is done.
// The directory is watched rather than the file, so editors that replace
// the file on save are handled. A failed reload keeps the old data.
func (s *Store) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	if err := w.Add(filepath.Dir(s.path)); err != nil {
		return err
	}

	const debounce = 100 * time.Millisecond
	var (
		timer  *time.Timer
		reload <-chan time.Time
	)
	target := filepath.Clean(s.path)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			reload = timer.C
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.Warningf("watching '%s': %v", s.path, err)
		case <-reload:
			reload = nil
			if err := s.Load(); err != nil {
				s.Warningf("reload failed: %v", err)
				continue
			}
			s.Noticef("reloaded '%s'", s.path)
		}
	}
}
