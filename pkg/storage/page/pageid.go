package page

import (
	"encoding/binary"
	"fmt"

	"github.com/spaolacci/murmur3"

	"kitedb/pkg/primitives"
)

// PageDescriptor identifies a page within a table file. It is a value type:
// two descriptors naming the same (table, page) compare equal, so page ids
// can key maps and sets directly.
type PageDescriptor struct {
	tableID primitives.TableID
	pageNum primitives.PageNumber
}

func NewPageDescriptor(tableID primitives.TableID, pageNum primitives.PageNumber) PageDescriptor {
	return PageDescriptor{tableID: tableID, pageNum: pageNum}
}

func (pd PageDescriptor) GetTableID() primitives.TableID {
	return pd.tableID
}

func (pd PageDescriptor) PageNo() primitives.PageNumber {
	return pd.pageNum
}

func (pd PageDescriptor) Serialize() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(pd.tableID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(pd.pageNum))
	return buf
}

func (pd PageDescriptor) Equals(other primitives.PageID) bool {
	if other == nil {
		return false
	}
	return pd.tableID == other.GetTableID() && pd.pageNum == other.PageNo()
}

func (pd PageDescriptor) String() string {
	return fmt.Sprintf("PageDescriptor(table=%d, page=%d)", pd.tableID, pd.pageNum)
}

func (pd PageDescriptor) HashCode() primitives.HashCode {
	return primitives.HashCode(murmur3.Sum64(pd.Serialize()))
}
