package export

import (
	"bufio"
	"io"

	"release-builder/feature/release/rf2table"
	"release-builder/feature/release/schema"
)

// LineTerminator is the RF2 line terminator, fixed regardless of platform.
const LineTerminator = "\r\n"

// ColumnSeparator is the RF2 column separator.
const ColumnSeparator = "\t"

// WriteDelta writes the header and every row whose key is not in
// discardKeys. The cursor must be ordered; the writer preserves its order.
func WriteDelta(cursor *rf2table.Cursor, s *schema.TableSchema, w io.Writer, discardKeys map[rf2table.Key]struct{}) error {
	bw := bufio.NewWriter(w)
	if err := writeLine(bw, s.HeaderLine()); err != nil {
		return err
	}
	for cursor.Next() {
		if _, discard := discardKeys[cursor.Key()]; discard {
			continue
		}
		if err := writeLine(bw, cursor.Line()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFull writes the header and every row of the cursor unchanged.
func WriteFull(cursor *rf2table.Cursor, s *schema.TableSchema, w io.Writer) error {
	bw := bufio.NewWriter(w)
	if err := writeLine(bw, s.HeaderLine()); err != nil {
		return err
	}
	for cursor.Next() {
		if err := writeLine(bw, cursor.Line()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFullAndSnapshot writes both export forms in a single pass over a
// cursor ordered by (id, effectiveTime) ascending. Full receives every
// row. Snapshot receives, per id, the last row whose effective time is at
// or before asOfDate; an id with no qualifying row never appears.
func WriteFullAndSnapshot(cursor *rf2table.Cursor, s *schema.TableSchema, asOfDate string, fullW, snapshotW io.Writer) error {
	full := bufio.NewWriter(fullW)
	snapshot := bufio.NewWriter(snapshotW)
	if err := writeLine(full, s.HeaderLine()); err != nil {
		return err
	}
	if err := writeLine(snapshot, s.HeaderLine()); err != nil {
		return err
	}

	var (
		currentID   string
		pendingLine string
		havePending bool
		haveAnyRow  bool
	)
	flushPending := func() error {
		if !havePending {
			return nil
		}
		havePending = false
		return writeLine(snapshot, pendingLine)
	}

	for cursor.Next() {
		key := cursor.Key()
		line := cursor.Line()
		if err := writeLine(full, line); err != nil {
			return err
		}
		if !haveAnyRow || key.IDString() != currentID {
			if err := flushPending(); err != nil {
				return err
			}
			currentID = key.IDString()
			haveAnyRow = true
		}
		// Rows for one id arrive oldest first, so the last qualifying
		// row simply replaces the pending one.
		if key.Date() <= asOfDate {
			pendingLine = line
			havePending = true
		}
	}
	if err := flushPending(); err != nil {
		return err
	}

	if err := full.Flush(); err != nil {
		return err
	}
	return snapshot.Flush()
}

func writeLine(w *bufio.Writer, line string) error {
	if _, err := w.WriteString(line); err != nil {
		return err
	}
	_, err := w.WriteString(LineTerminator)
	return err
}
