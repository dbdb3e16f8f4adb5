package primitives

import (
	"github.com/spaolacci/murmur3"
)

// Filepath is the path to a table's backing file. Hashing it yields the
// table's stable identifier, so the same path always maps to the same table.
type Filepath string

func (f Filepath) Hash() TableID {
	return TableID(murmur3.Sum64([]byte(f)))
}
