package primitives

// PageID identifies a (table, page-number) pair. Implementations must be
// comparable value types so that interface equality is structural and page
// ids can key maps and sets directly.
type PageID interface {
	// GetTableID returns the table this page belongs to.
	GetTableID() TableID

	// PageNo returns the page number within the table.
	PageNo() PageNumber

	// Serialize returns a binary representation of this page ID.
	Serialize() []byte

	// Equals reports whether two page IDs name the same page.
	Equals(other PageID) bool

	// String returns a printable representation.
	String() string

	// HashCode returns a hash of this page ID.
	HashCode() HashCode
}
