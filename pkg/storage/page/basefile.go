package page

import (
	"fmt"
	"os"
	"sync"

	"kitedb/pkg/config"
	"kitedb/pkg/primitives"
)

// BaseFile is page-granular storage on an OS file. It owns the handle,
// serializes access with a read-write latch, and syncs after every write.
type BaseFile struct {
	file     *os.File
	tableID  primitives.TableID
	filePath primitives.Filepath
	mutex    sync.RWMutex
}

func NewBaseFile(filePath primitives.Filepath) (*BaseFile, error) {
	if filePath == "" {
		return nil, fmt.Errorf("filePath cannot be empty")
	}

	file, err := os.OpenFile(string(filePath), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filePath, err)
	}

	return &BaseFile{
		file:     file,
		tableID:  filePath.Hash(),
		filePath: filePath,
	}, nil
}

// TableID returns the identifier derived from this file's path.
func (bf *BaseFile) TableID() primitives.TableID {
	return bf.tableID
}

func (bf *BaseFile) FilePath() primitives.Filepath {
	return bf.filePath
}

func (bf *BaseFile) NumBlocks() (primitives.PageNumber, error) {
	bf.mutex.RLock()
	defer bf.mutex.RUnlock()

	if bf.file == nil {
		return 0, fmt.Errorf("file is closed")
	}

	info, err := bf.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}

	pageSize := int64(config.PageSize())
	n := primitives.PageNumber(info.Size() / pageSize)
	if info.Size()%pageSize != 0 {
		n++
	}
	return n, nil
}

func (bf *BaseFile) ReadBlock(pageNo primitives.PageNumber) ([]byte, error) {
	bf.mutex.RLock()
	defer bf.mutex.RUnlock()

	if bf.file == nil {
		return nil, fmt.Errorf("file is closed")
	}

	pageSize := config.PageSize()
	data := make([]byte, pageSize)
	_, err := bf.file.ReadAt(data, int64(pageNo)*int64(pageSize))
	return data, err
}

func (bf *BaseFile) WriteBlock(pageNo primitives.PageNumber, data []byte) error {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.file == nil {
		return fmt.Errorf("file is closed")
	}

	pageSize := config.PageSize()
	if len(data) != pageSize {
		return fmt.Errorf("invalid page data size: expected %d, got %d", pageSize, len(data))
	}

	if _, err := bf.file.WriteAt(data, int64(pageNo)*int64(pageSize)); err != nil {
		return fmt.Errorf("failed to write page data: %w", err)
	}
	if err := bf.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	return nil
}

// AllocateBlock atomically reserves the next page number by extending the
// file with a zero-filled page, so concurrent inserts never allocate the
// same page.
func (bf *BaseFile) AllocateBlock() (primitives.PageNumber, error) {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.file == nil {
		return 0, fmt.Errorf("file is closed")
	}

	info, err := bf.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}

	pageSize := int64(config.PageSize())
	n := info.Size() / pageSize
	if info.Size()%pageSize != 0 {
		n++
	}

	zero := make([]byte, pageSize)
	if _, err := bf.file.WriteAt(zero, n*pageSize); err != nil {
		return 0, fmt.Errorf("failed to reserve page space: %w", err)
	}
	if err := bf.file.Sync(); err != nil {
		return 0, fmt.Errorf("failed to sync file after page allocation: %w", err)
	}

	return primitives.PageNumber(n), nil
}

func (bf *BaseFile) Close() error {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.file != nil {
		err := bf.file.Close()
		bf.file = nil
		return err
	}
	return nil
}
