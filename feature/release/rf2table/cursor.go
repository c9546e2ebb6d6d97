package rf2table

// Cursor is a forward-only, single-pass iterator over a selection of table
// rows in key order. It formats rows lazily and is not restartable.
type Cursor struct {
	table *Table
	keys  []Key
	pos   int
}

// Next advances to the next row, returning false when exhausted.
func (c *Cursor) Next() bool {
	c.pos++
	return c.pos < len(c.keys)
}

// Key returns the key of the current row.
func (c *Cursor) Key() Key {
	return c.keys[c.pos]
}

// Line returns the current row formatted as a full tab-delimited RF2 data
// line: id, effectiveTime, then the stored remainder.
func (c *Cursor) Line() string {
	key := c.keys[c.pos]
	return key.IDString() + "\t" + key.Date() + "\t" + c.table.rows[key]
}

// Len returns the number of rows in the selection.
func (c *Cursor) Len() int {
	return len(c.keys)
}
