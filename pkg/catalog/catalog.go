package catalog

import (
	"fmt"
	"sync"

	"kitedb/pkg/logging"
	"kitedb/pkg/primitives"
	"kitedb/pkg/storage/page"
)

// TableInfo pairs a table's name with its backing file.
type TableInfo struct {
	File page.DbFile
	Name string
}

func (ti *TableInfo) GetID() primitives.TableID {
	return ti.File.GetID()
}

// Catalog is the table registry: it resolves table names and ids to the
// DbFile that stores them. The page store asks it for the file behind every
// page id it needs to read or flush.
type Catalog struct {
	nameToTable map[string]*TableInfo
	idToTable   map[primitives.TableID]*TableInfo
	mutex       sync.RWMutex
}

func NewCatalog() *Catalog {
	return &Catalog{
		nameToTable: make(map[string]*TableInfo),
		idToTable:   make(map[primitives.TableID]*TableInfo),
	}
}

// AddTable registers a table. A table with the same name or id is replaced.
func (c *Catalog) AddTable(f page.DbFile, name string) error {
	if f == nil {
		return fmt.Errorf("file cannot be nil")
	}
	if name == "" {
		return fmt.Errorf("table name cannot be empty")
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	info := &TableInfo{File: f, Name: name}
	if old, exists := c.nameToTable[name]; exists {
		delete(c.idToTable, old.GetID())
	}
	if old, exists := c.idToTable[f.GetID()]; exists {
		delete(c.nameToTable, old.Name)
	}
	c.nameToTable[name] = info
	c.idToTable[f.GetID()] = info
	return nil
}

// FileFor returns the file backing the given table id.
func (c *Catalog) FileFor(tableID primitives.TableID) (page.DbFile, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	info, exists := c.idToTable[tableID]
	if !exists {
		return nil, fmt.Errorf("table with ID %d not found", tableID)
	}
	return info.File, nil
}

// GetTableID resolves a table name to its id.
func (c *Catalog) GetTableID(name string) (primitives.TableID, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	info, exists := c.nameToTable[name]
	if !exists {
		return primitives.InvalidTableID, fmt.Errorf("table '%s' not found", name)
	}
	return info.GetID(), nil
}

// RemoveTable unregisters a table and closes its file.
func (c *Catalog) RemoveTable(name string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	info, exists := c.nameToTable[name]
	if !exists {
		return fmt.Errorf("table '%s' not found", name)
	}

	if err := info.File.Close(); err != nil {
		logging.ForComponent("Catalog").Warn("failed to close table file",
			"table", name, "error", err)
	}
	delete(c.nameToTable, name)
	delete(c.idToTable, info.GetID())
	return nil
}

// TableNames returns the registered table names.
func (c *Catalog) TableNames() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	names := make([]string, 0, len(c.nameToTable))
	for name := range c.nameToTable {
		names = append(names, name)
	}
	return names
}

// Clear unregisters every table, closing the backing files.
func (c *Catalog) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for name, info := range c.nameToTable {
		if err := info.File.Close(); err != nil {
			logging.ForComponent("Catalog").Warn("failed to close table file",
				"table", name, "error", err)
		}
	}
	c.nameToTable = make(map[string]*TableInfo)
	c.idToTable = make(map[primitives.TableID]*TableInfo)
}
