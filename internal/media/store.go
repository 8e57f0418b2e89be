// Package media derives the on-disk layout of every artifact an item owns.
//
// Presence of a non-empty file at its canonical path is the only record that
// a stage completed for an item; there is no separate status store.
//
// Layout under the data root:
//
//	items/<id>/original/<id>.mp3          raw
//	items/<id>/converted/<id>.ogg         normalized
//	items/<id>/<id>_transcription.csv     transcript table
//	items/<id>/split/<id>_segment_NNN.*   segments
//	chunks/<id>/chunk_NNN.ogg             transient chunks
package media

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Directory names under the data root and item directory.
const (
	itemsDir     = "items"
	chunksDir    = "chunks"
	originalDir  = "original"
	convertedDir = "converted"
	splitDir     = "split"

	dirPerm = 0750
)

// idPattern restricts item ids to characters that are safe as a single path
// element. YouTube ids (11 chars of [A-Za-z0-9_-]) always match.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ordinalPattern extracts the zero-padded ordinal from chunk and segment names.
var ordinalPattern = regexp.MustCompile(`_(\d+)\.[A-Za-z0-9]+$`)

// Store maps (item id, stage) to canonical paths rooted at a data directory.
// It is safe for concurrent use across different item ids; callers must
// serialize work on the same id.
type Store struct {
	root string
}

// NewStore creates a Store rooted at root, creating the directory if needed.
func NewStore(root string) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("data root cannot be empty")
	}
	if err := os.MkdirAll(root, dirPerm); err != nil { // #nosec G301 -- user data dir
		return nil, fmt.Errorf("cannot create data root: %w", err)
	}
	return &Store{root: filepath.Clean(root)}, nil
}

// Root returns the data root directory.
func (s *Store) Root() string {
	return s.root
}

// ValidateID returns ErrInvalidID if id cannot be used as a path element.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// ItemDir returns the per-item directory without creating it.
func (s *Store) ItemDir(id string) string {
	return filepath.Join(s.root, itemsDir, id)
}

// stageDir returns the directory holding artifacts of the given stage.
func (s *Store) stageDir(id string, stage Stage) string {
	switch stage {
	case StageRaw:
		return filepath.Join(s.ItemDir(id), originalDir)
	case StageNormalized:
		return filepath.Join(s.ItemDir(id), convertedDir)
	case StageChunk:
		return filepath.Join(s.root, chunksDir, id)
	default:
		return filepath.Join(s.ItemDir(id), splitDir)
	}
}

// PathFor returns the canonical path for an item's stage output and creates
// its parent directory. Raw and normalized stages map to a single file;
// chunk and segment stages map to the directory holding the numbered files.
func (s *Store) PathFor(id string, stage Stage) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}

	dir := s.stageDir(id, stage)
	if err := os.MkdirAll(dir, dirPerm); err != nil { // #nosec G301 -- user data dir
		return "", fmt.Errorf("cannot create %s directory: %w", stage, err)
	}

	switch stage {
	case StageRaw:
		return filepath.Join(dir, id+RawExt), nil
	case StageNormalized:
		return filepath.Join(dir, id+NormalizedExt), nil
	case StageChunk, StageSegment:
		return dir, nil
	default:
		return "", fmt.Errorf("unknown stage %v", stage)
	}
}

// ChunkPath returns the path of chunk index for an item.
func (s *Store) ChunkPath(id string, index int) (string, error) {
	dir, err := s.PathFor(id, StageChunk)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fmt.Sprintf("chunk_%03d%s", index, ChunkExt)), nil
}

// SegmentName returns the file name of segment index, e.g. "abc_segment_007.wav".
func SegmentName(id string, index int, ext string) string {
	return fmt.Sprintf("%s_segment_%03d%s", id, index, ext)
}

// SegmentPath returns the path of segment index exported with ext.
func (s *Store) SegmentPath(id string, index int, ext string) (string, error) {
	dir, err := s.PathFor(id, StageSegment)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SegmentName(id, index, ext)), nil
}

// TranscriptPath returns the path of the item's transcript table.
func (s *Store) TranscriptPath(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	dir := s.ItemDir(id)
	if err := os.MkdirAll(dir, dirPerm); err != nil { // #nosec G301 -- user data dir
		return "", fmt.Errorf("cannot create item directory: %w", err)
	}
	return filepath.Join(dir, TranscriptName(id)), nil
}

// TranscriptName returns the file name of an item's transcript table.
func TranscriptName(id string) string {
	return id + "_transcription.csv"
}

// RelPath returns path relative to the item directory using forward slashes,
// the form stored in the transcript's audio_file column.
func (s *Store) RelPath(id, path string) (string, error) {
	rel, err := filepath.Rel(s.ItemDir(id), path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// Resolve turns a path stored relative to the item directory back into an
// absolute path.
func (s *Store) Resolve(id, rel string) string {
	return filepath.Join(s.ItemDir(id), filepath.FromSlash(rel))
}

// Exists reports whether the stage output is present and non-empty.
// For chunk and segment stages, at least one matching non-empty file must exist.
// Invalid ids never exist.
func (s *Store) Exists(id string, stage Stage) bool {
	if ValidateID(id) != nil {
		return false
	}
	switch stage {
	case StageRaw:
		return nonEmpty(filepath.Join(s.stageDir(id, stage), id+RawExt))
	case StageNormalized:
		return nonEmpty(filepath.Join(s.stageDir(id, stage), id+NormalizedExt))
	case StageChunk:
		paths, _ := s.ListChunks(id)
		return slices.ContainsFunc(paths, nonEmpty)
	case StageSegment:
		paths, _ := s.ListSegments(id)
		return slices.ContainsFunc(paths, nonEmpty)
	default:
		return false
	}
}

// Stat returns the artifact path when it exists, or ErrNotFound.
func (s *Store) Stat(id string, stage Stage) (string, error) {
	if !s.Exists(id, stage) {
		return "", fmt.Errorf("%s for %s: %w", stage, id, ErrNotFound)
	}
	return s.PathFor(id, stage)
}

// ListSegments returns all segment files for an item ordered by ordinal.
// A missing directory yields an empty list.
func (s *Store) ListSegments(id string) ([]string, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	var all []string
	for _, ext := range SegmentExts {
		matches, err := filepath.Glob(filepath.Join(s.stageDir(id, StageSegment), id+"_segment_*"+ext))
		if err != nil {
			return nil, err
		}
		all = append(all, matches...)
	}
	sortByOrdinal(all)
	return all, nil
}

// ListChunks returns all chunk files for an item ordered by ordinal.
func (s *Store) ListChunks(id string) ([]string, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	matches, err := filepath.Glob(filepath.Join(s.stageDir(id, StageChunk), "chunk_*"+ChunkExt))
	if err != nil {
		return nil, err
	}
	sortByOrdinal(matches)
	return matches, nil
}

// Purge removes every file of the given stage for an item and returns how
// many were removed. Raw and normalized purges match any extension so that
// a codec change never leaves a stale artifact behind.
func (s *Store) Purge(id string, stage Stage) (int, error) {
	if err := ValidateID(id); err != nil {
		return 0, err
	}

	dir := s.stageDir(id, stage)
	var patterns []string
	switch stage {
	case StageRaw, StageNormalized:
		patterns = []string{filepath.Join(dir, id+".*")}
	case StageChunk:
		patterns = []string{filepath.Join(dir, "chunk_*")}
	case StageSegment:
		for _, ext := range SegmentExts {
			patterns = append(patterns, filepath.Join(dir, "*"+ext))
		}
	}

	removed := 0
	var errs []error
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return removed, err
		}
		for _, m := range matches {
			if err := os.Remove(m); err != nil && !errors.Is(err, os.ErrNotExist) {
				errs = append(errs, err)
				continue
			}
			removed++
		}
	}

	// The chunk area is transient: drop the directory once empty.
	if stage == StageChunk {
		_ = os.Remove(dir) // fails harmlessly when not empty or already gone
	}

	return removed, errors.Join(errs...)
}

// Adopt moves a freshly downloaded file into the item's raw slot.
// A cross-device rename falls back to copy-then-remove.
func (s *Store) Adopt(id, src string) (string, error) {
	dst, err := s.PathFor(id, StageRaw)
	if err != nil {
		return "", err
	}
	if filepath.Clean(src) == dst {
		return dst, nil
	}

	if err := os.Rename(src, dst); err == nil {
		return dst, nil
	}

	if err := copyFile(src, dst); err != nil {
		return "", fmt.Errorf("cannot adopt %s: %w", src, err)
	}
	_ = os.Remove(src) // best-effort; the copy is already in place
	return dst, nil
}

// Items returns the ids of every item directory present on disk.
func (s *Store) Items() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, itemsDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() && ValidateID(e.Name()) == nil {
			ids = append(ids, e.Name())
		}
	}
	return ids, nil
}

// RemoveItem deletes every artifact an item owns, including its directories.
func (s *Store) RemoveItem(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	return errors.Join(
		os.RemoveAll(s.ItemDir(id)),
		os.RemoveAll(s.stageDir(id, StageChunk)),
	)
}

// nonEmpty reports whether path is a regular file with at least one byte.
func nonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular() && info.Size() > 0
}

// ordinal extracts the numeric suffix of a chunk or segment file name.
// Names without one sort last.
func ordinal(path string) int {
	m := ordinalPattern.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return int(^uint(0) >> 1)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return int(^uint(0) >> 1)
	}
	return n
}

func sortByOrdinal(paths []string) {
	slices.SortStableFunc(paths, func(a, b string) int {
		if c := cmp.Compare(ordinal(a), ordinal(b)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 -- src comes from the download service
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	tmp := dst + ".part"
	out, err := os.Create(tmp) // #nosec G304 -- dst is a derived canonical path
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
