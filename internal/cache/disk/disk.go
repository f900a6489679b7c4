package disk

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	cachepkg "github.com/regenlabs/regen/internal/cache"
	"github.com/regenlabs/regen/internal/cache/disk/percentencoding"
	"github.com/samber/lo"
)

const (
	fileInfo = "info.json"
	fileBlob = "blob.bin"
)

// Disk stores one file per key. Writes land in a temporary file first and
// are moved into place with a rename, so a concurrent reader sees either the
// old payload or the new one, never a partial write. The file's modification
// time doubles as the entry's LastModified.
type Disk struct {
	dir        string
	limitBytes uint64
	mtx        sync.Mutex
}

func New(dir string, limitBytes uint64) (*Disk, error) {
	disk := &Disk{
		dir:        dir,
		limitBytes: limitBytes,
	}

	// Pre-create the disk's directory if not created yet
	if err := os.MkdirAll(dir, 0755); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, err
	}

	return disk, nil
}

func (disk *Disk) Get(_ context.Context, key string) (cachepkg.Entry, error) {
	cacheFile, err := os.Open(disk.path(key))
	if err != nil {
		// Convert the error for consumer's convenience
		if errors.Is(err, os.ErrNotExist) {
			return cachepkg.Entry{}, cachepkg.ErrNotFound
		}

		return cachepkg.Entry{}, fmt.Errorf("failed to open cache entry %q: %w", key, err)
	}
	defer func() {
		_ = cacheFile.Close()
	}()

	fi, err := cacheFile.Stat()
	if err != nil {
		return cachepkg.Entry{}, fmt.Errorf("failed to stat cache entry %q: %w", key, err)
	}

	value, err := readBlob(cacheFile, fi.Size())
	if err != nil {
		return cachepkg.Entry{}, fmt.Errorf("%w: %v", cachepkg.ErrCorrupted, err)
	}

	// The entry's last-modified time is the file's modification time,
	// it is never re-derived at read time
	return cachepkg.Entry{
		Value:        value,
		LastModified: fi.ModTime(),
	}, nil
}

func (disk *Disk) Set(_ context.Context, key string, value []byte, background bool) error {
	tmpFile, err := os.CreateTemp(disk.dir, "regen-set-*")
	if err != nil {
		return fmt.Errorf("failed to create a temporary file for the cache entry %q: %w",
			key, err)
	}

	if err := writeEntry(tmpFile, Info{Key: key, Background: background}, value); err != nil {
		_ = tmpFile.Close()
		_ = os.Remove(tmpFile.Name())

		return fmt.Errorf("failed to write cache entry %q: %w", key, err)
	}

	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpFile.Name())

		return fmt.Errorf("failed to close cache entry %q: %w", key, err)
	}

	if err := disk.accept(key, tmpFile.Name()); err != nil {
		_ = os.Remove(tmpFile.Name())

		return fmt.Errorf("failed to accept cache entry %q: %w", key, err)
	}

	return nil
}

func (disk *Disk) Delete(_ context.Context, key string) error {
	if err := os.Remove(disk.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return nil
}

func (disk *Disk) path(key string) string {
	// Encode the key so that it cannot escape the cache directory
	return filepath.Join(disk.dir, percentencoding.Encode(key))
}

func readBlob(cacheFile *os.File, size int64) ([]byte, error) {
	zipReader, err := zip.NewReader(cacheFile, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open as a ZIP file: %w", err)
	}

	// The info file has to be present and decodable for the entry to be valid
	if _, err := readInfo(zipReader); err != nil {
		return nil, fmt.Errorf("failed to read entry info: %w", err)
	}

	blobReader, err := zipReader.Open(fileBlob)
	if err != nil {
		return nil, fmt.Errorf("failed to read from ZIP file: %w", err)
	}

	value, err := io.ReadAll(blobReader)
	if err != nil {
		_ = blobReader.Close()

		return nil, fmt.Errorf("failed to read entry blob: %w", err)
	}

	if err := blobReader.Close(); err != nil {
		return nil, err
	}

	return value, nil
}

func writeEntry(w io.Writer, info Info, value []byte) error {
	zipWriter := zip.NewWriter(w)

	if err := writeInfo(zipWriter, info); err != nil {
		return fmt.Errorf("failed to write %q file: %w", fileInfo, err)
	}

	blobWriter, err := zipWriter.CreateHeader(&zip.FileHeader{
		Name:   fileBlob,
		Method: zip.Store,
	})
	if err != nil {
		return fmt.Errorf("failed to write %q file: %w", fileBlob, err)
	}

	if _, err := io.Copy(blobWriter, bytes.NewReader(value)); err != nil {
		return fmt.Errorf("failed to write %q file: %w", fileBlob, err)
	}

	return zipWriter.Close()
}

func (disk *Disk) accept(key string, path string) error {
	disk.mtx.Lock()
	defer disk.mtx.Unlock()

	// Prepare for accepting the new cache entry
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}

	if err := disk.evict(uint64(fi.Size()), filepath.Base(path)); err != nil {
		return err
	}

	// Accept new cache entry
	return os.Rename(path, disk.path(key))
}

func (disk *Disk) evict(needBytes uint64, skipName string) error {
	// Does it even make sense to evict anything?
	if needBytes > disk.limitBytes {
		return fmt.Errorf("cannot accept cache entry as its size of %d bytes"+
			" is larger than the disk limit of %d bytes", needBytes, disk.limitBytes)
	}

	// Collect a slice of cache entries, sorted by modification time, ascending order
	type Entry struct {
		Name    string
		Size    uint64
		ModTime time.Time
	}

	var entries []*Entry

	dirEntries, err := os.ReadDir(disk.dir)
	if err != nil {
		return err
	}

	for _, entry := range dirEntries {
		// The entry being accepted does not count against the budget twice
		if entry.Name() == skipName {
			continue
		}

		fi, err := entry.Info()
		if err != nil {
			return err
		}

		entries = append(entries, &Entry{
			Name:    entry.Name(),
			Size:    uint64(fi.Size()),
			ModTime: fi.ModTime(),
		})
	}

	slices.SortFunc(entries, func(a, b *Entry) int {
		return a.ModTime.Compare(b.ModTime)
	})

	usedBytes := lo.SumBy(entries, func(entry *Entry) uint64 {
		return entry.Size
	})

	// Evict the oldest entries to fit the new entry
	for _, entry := range entries {
		if (usedBytes + needBytes) <= disk.limitBytes {
			return nil
		}

		if err := os.Remove(filepath.Join(disk.dir, entry.Name)); err != nil {
			return err
		}

		usedBytes -= entry.Size
	}

	return nil
}
