// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package bucket files bug reports with their artifacts into per-signature directories.
package bucket

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/firmfuzz/firmfuzz/pkg/hash"
	"github.com/firmfuzz/firmfuzz/pkg/log"
	"github.com/firmfuzz/firmfuzz/pkg/osutil"
	"github.com/firmfuzz/firmfuzz/pkg/report"
)

// MaxNameLen bounds bucket directory names, longer signatures are truncated and hashed.
const MaxNameLen = 200

const statFile = "signatures.json"

type Store struct {
	Dir string
}

// DirName returns the bucket directory name for a signature.
func DirName(signature string) string {
	return hash.Bounded(signature, MaxNameLen)
}

// Artifacts returns names of files in the store dir that belong to test case id:
// "<id>.<ext>" and "<id>-<suffix>".
func (s *Store) Artifacts(id string) ([]string, error) {
	names, err := osutil.ListDir(s.Dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, name := range names {
		if strings.HasPrefix(name, id+".") || strings.HasPrefix(name, id+"-") {
			files = append(files, name)
		}
	}
	sort.Strings(files)
	return files, nil
}

// Save writes the report, bundles all artifacts of the test case into
// <id>.tar.xz and moves everything into the signature's bucket directory.
// Returns the final path of the report file.
func (s *Store) Save(rep *report.Report) (string, error) {
	sig := rep.Identifier()
	if sig == "" {
		return "", fmt.Errorf("report %v is not a bug report", rep.ID)
	}
	if err := osutil.WriteFile(filepath.Join(s.Dir, rep.ID+".txt"), rep.Render()); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	files, err := s.Artifacts(rep.ID)
	if err != nil {
		return "", err
	}
	archive := rep.ID + ".tar.xz"
	if err := osutil.TarXzFiles(filepath.Join(s.Dir, archive), s.Dir, files); err != nil {
		return "", fmt.Errorf("failed to archive %v: %w", rep.ID, err)
	}
	bucket := filepath.Join(s.Dir, DirName(sig))
	if err := osutil.MkdirAll(bucket); err != nil {
		return "", err
	}
	for _, file := range append(files, archive) {
		if err := osutil.Rename(filepath.Join(s.Dir, file), filepath.Join(bucket, file)); err != nil {
			return "", fmt.Errorf("failed to move %v: %w", file, err)
		}
	}
	if err := AddToStatFile(filepath.Join(s.Dir, statFile), sig, rep.ID); err != nil {
		log.Logf(0, "failed to update signature stats: %v", err)
	}
	return filepath.Join(bucket, rep.ID+".txt"), nil
}

// Discard removes all artifacts of test case id.
func (s *Store) Discard(id string) error {
	files, err := s.Artifacts(id)
	if err != nil {
		return err
	}
	var firstErr error
	for _, file := range files {
		if err := os.Remove(filepath.Join(s.Dir, file)); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
