package page

import (
	"fmt"
	"io"
	"sync"

	"github.com/dsnet/golib/memfile"

	"kitedb/pkg/config"
	"kitedb/pkg/primitives"
)

// MemBlockFile is page-granular storage on an in-memory buffer. It mirrors
// BaseFile's behavior without touching the filesystem; tests and tools build
// heap files on it.
type MemBlockFile struct {
	buf     *memfile.File
	tableID primitives.TableID
	closed  bool
	mutex   sync.RWMutex
}

func NewMemBlockFile(name primitives.Filepath) *MemBlockFile {
	return &MemBlockFile{
		buf:     memfile.New(make([]byte, 0)),
		tableID: name.Hash(),
	}
}

func (mf *MemBlockFile) TableID() primitives.TableID {
	return mf.tableID
}

func (mf *MemBlockFile) NumBlocks() (primitives.PageNumber, error) {
	mf.mutex.RLock()
	defer mf.mutex.RUnlock()

	if mf.closed {
		return 0, fmt.Errorf("file is closed")
	}

	pageSize := len(mf.buf.Bytes())
	n := primitives.PageNumber(pageSize / config.PageSize())
	if pageSize%config.PageSize() != 0 {
		n++
	}
	return n, nil
}

func (mf *MemBlockFile) ReadBlock(pageNo primitives.PageNumber) ([]byte, error) {
	mf.mutex.RLock()
	defer mf.mutex.RUnlock()

	if mf.closed {
		return nil, fmt.Errorf("file is closed")
	}

	pageSize := config.PageSize()
	offset := int64(pageNo) * int64(pageSize)
	if offset >= int64(len(mf.buf.Bytes())) {
		return nil, io.EOF
	}

	data := make([]byte, pageSize)
	_, err := mf.buf.ReadAt(data, offset)
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	return data, err
}

func (mf *MemBlockFile) WriteBlock(pageNo primitives.PageNumber, data []byte) error {
	mf.mutex.Lock()
	defer mf.mutex.Unlock()

	if mf.closed {
		return fmt.Errorf("file is closed")
	}

	pageSize := config.PageSize()
	if len(data) != pageSize {
		return fmt.Errorf("invalid page data size: expected %d, got %d", pageSize, len(data))
	}

	_, err := mf.buf.WriteAt(data, int64(pageNo)*int64(pageSize))
	return err
}

func (mf *MemBlockFile) AllocateBlock() (primitives.PageNumber, error) {
	mf.mutex.Lock()
	defer mf.mutex.Unlock()

	if mf.closed {
		return 0, fmt.Errorf("file is closed")
	}

	pageSize := config.PageSize()
	size := len(mf.buf.Bytes())
	n := size / pageSize
	if size%pageSize != 0 {
		n++
	}

	zero := make([]byte, pageSize)
	if _, err := mf.buf.WriteAt(zero, int64(n)*int64(pageSize)); err != nil {
		return 0, err
	}
	return primitives.PageNumber(n), nil
}

func (mf *MemBlockFile) Close() error {
	mf.mutex.Lock()
	defer mf.mutex.Unlock()
	mf.closed = true
	return nil
}
