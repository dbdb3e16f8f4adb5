package primitives

// LSN (log sequence number) identifies a log record by its byte offset in the
// write-ahead log. Monotonically increasing.
type LSN uint64

// HashCode is a hash value computed for fast lookups (page ids, file paths).
type HashCode uint64

// TableID identifies a table's backing file, derived from hashing its path.
type TableID uint64

// PageNumber is a page's position within a table file.
type PageNumber uint64

// SlotID is a tuple slot number within a page.
type SlotID uint16

// ColumnID identifies a column within a tuple description.
type ColumnID uint32

const (
	// InvalidTableID marks an unset table identifier.
	InvalidTableID TableID = 0
)
