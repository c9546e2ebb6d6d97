package rf2table

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"release-builder/feature/release/schema"

	"go.uber.org/zap"
)

// FormatError reports an unusable input file (empty, missing header, or a
// row that cannot be keyed). Format errors are fatal and never retried.
type FormatError struct {
	File string
	Msg  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("bad RF2 input %s: %s", e.File, e.Msg)
}

// Table is the job-scoped versioned row store for one component file.
// Rows are keyed by (id, effectiveTime); re-inserting a key overwrites.
// When workbench fixes are enabled for a reference set delta, a dirty-key
// index tracks the winning key per composite identity so that duplicate
// logically-equivalent members can be collapsed and later re-keyed.
type Table struct {
	schema    *schema.TableSchema
	rows      map[Key]string
	dirtyKeys map[string]Key
	resolver  *CompositeKeyResolver
	logger    *zap.Logger
}

// NewTable creates an empty store. The resolver supplies composite-key
// patterns for reference set schemas; pass nil for family defaults.
func NewTable(logger *zap.Logger, resolver *CompositeKeyResolver) *Table {
	if resolver == nil {
		resolver = NewCompositeKeyResolver(nil)
	}
	return &Table{
		rows:      make(map[Key]string),
		dirtyKeys: make(map[string]Key),
		resolver:  resolver,
		logger:    logger,
	}
}

// Schema returns the schema established by Create, or nil before it.
func (t *Table) Schema() *schema.TableSchema {
	return t.schema
}

// Size returns the number of stored rows.
func (t *Table) Size() int {
	return len(t.rows)
}

// Create establishes the table schema from the file name and header line
// and loads every data row. Must be called exactly once, before AppendData.
// With workbenchFixes enabled, reference set delta rows are additionally
// indexed by composite identity; an identity collision drops the earlier
// row (last writer wins) and is logged, never fatal.
func (t *Table) Create(filename string, r io.Reader, workbenchFixes bool) (*schema.TableSchema, error) {
	s, err := schema.NewTableSchema(filename)
	if err != nil {
		return nil, err
	}

	scanner := newLineScanner(r)
	if !scanner.Scan() {
		return nil, &FormatError{File: filename, Msg: "empty file, no header line"}
	}
	if err := s.ParseHeader(scanner.Text()); err != nil {
		return nil, err
	}
	t.schema = s

	if err := t.insertRows(scanner, workbenchFixes, ""); err != nil {
		return nil, err
	}
	return s, scanner.Err()
}

// AppendData loads further rows into an already created table, discarding
// the header line of the stream.
func (t *Table) AppendData(r io.Reader, workbenchFixes bool) error {
	return t.AppendDataAfter(r, workbenchFixes, "")
}

// AppendDataAfter is AppendData with a previous-effective-time cutoff:
// incoming rows whose effective time is at or before the cutoff are
// skipped. Used when merging a source that overlaps already-loaded history.
func (t *Table) AppendDataAfter(r io.Reader, workbenchFixes bool, previousEffectiveTime string) error {
	if t.schema == nil {
		return &FormatError{File: "", Msg: "append before create"}
	}
	scanner := newLineScanner(r)
	if !scanner.Scan() {
		return &FormatError{File: t.schema.Filename, Msg: "empty file, no header line"}
	}
	if err := t.insertRows(scanner, workbenchFixes, previousEffectiveTime); err != nil {
		return err
	}
	return scanner.Err()
}

// FindAlreadyPublishedDeltaKeys scans the previous published snapshot and
// returns the keys of stored rows that are stale duplicates of published
// history: rows whose effective time is at or before the previous snapshot
// state of the same id. An empty table returns an empty set without
// reading the stream.
func (t *Table) FindAlreadyPublishedDeltaKeys(previousSnapshot io.Reader) (map[Key]struct{}, error) {
	published := make(map[Key]struct{})
	if len(t.rows) == 0 {
		return published, nil
	}

	byID := make(map[string][]Key, len(t.rows))
	for key := range t.rows {
		id := key.IDString()
		byID[id] = append(byID[id], key)
	}

	err := t.scanDataRows(previousSnapshot, func(id, effectiveTime, _ string) error {
		for _, key := range byID[id] {
			if key.Date() <= effectiveTime {
				published[key] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return published, nil
}

// DiscardAlreadyPublishedDeltaStates removes stored rows at the current
// effective time whose values are byte-identical to the previous snapshot
// state of the same id. Such rows are no-op changes erroneously
// re-asserted by the authoring tool.
func (t *Table) DiscardAlreadyPublishedDeltaStates(previousSnapshot io.Reader, effectiveTime string) error {
	discarded := 0
	err := t.scanDataRows(previousSnapshot, func(id, _, rest string) error {
		key, err := t.makeKey(id, effectiveTime)
		if err != nil {
			return err
		}
		if value, ok := t.rows[key]; ok && value == rest {
			delete(t.rows, key)
			discarded++
		}
		return nil
	})
	if err != nil {
		return err
	}
	if discarded > 0 {
		t.logger.Info("Discarded already-published delta states",
			zap.String("file", t.schema.Filename),
			zap.Int("rows", discarded))
	}
	return nil
}

// ReconcileRefsetMemberIDs re-keys current refset members under the stable
// member ids of the previous snapshot. For every previous row whose
// composite identity matches an entry in the dirty-key index, the stored
// row moves from its surrogate key to the previous row's id, preserving
// member-id continuity across releases.
func (t *Table) ReconcileRefsetMemberIDs(previousSnapshot io.Reader, effectiveTime string) error {
	reconciled := 0
	err := t.scanDataRows(previousSnapshot, func(id, prevEffectiveTime, rest string) error {
		line := id + "\t" + prevEffectiveTime + "\t" + rest
		identity, err := t.resolver.CompositeIdentity(t.schema, line)
		if err != nil {
			return err
		}
		currentKey, ok := t.dirtyKeys[identity]
		if !ok {
			return nil
		}
		value, ok := t.rows[currentKey]
		if !ok {
			return nil
		}
		date := currentKey.Date()
		if date == "" {
			date = effectiveTime
		}
		stableKey := NewTextKey(id, date)
		if stableKey == currentKey {
			return nil
		}
		delete(t.rows, currentKey)
		t.rows[stableKey] = value
		t.dirtyKeys[identity] = stableKey
		reconciled++
		return nil
	})
	if err != nil {
		return err
	}
	if reconciled > 0 {
		t.logger.Info("Reconciled refset member ids against previous snapshot",
			zap.String("file", t.schema.Filename),
			zap.Int("rows", reconciled))
	}
	return nil
}

// ResolveEmptyValueID repairs attribute-value refset rows with a blank
// trailing valueId column. An active previous state donates its value id;
// an inactive row whose previous state was also inactive is dropped; rows
// with no previous counterpart are dropped and counted.
func (t *Table) ResolveEmptyValueID(previousSnapshot io.Reader, effectiveTime string) error {
	type previousState struct {
		active  bool
		valueID string
	}
	previous := make(map[string]previousState)
	err := t.scanDataRows(previousSnapshot, func(id, _, rest string) error {
		columns := strings.Split(rest, "\t")
		previous[id] = previousState{
			active:  len(columns) > 0 && columns[0] == "1",
			valueID: columns[len(columns)-1],
		}
		return nil
	})
	if err != nil {
		return err
	}

	unmatched := 0
	for key, value := range t.rows {
		columns := strings.Split(value, "\t")
		if columns[len(columns)-1] != "" {
			continue
		}
		prev, ok := previous[key.IDString()]
		if !ok {
			delete(t.rows, key)
			unmatched++
			continue
		}
		if prev.active {
			columns[len(columns)-1] = prev.valueID
			t.rows[key] = strings.Join(columns, "\t")
			continue
		}
		// Previous state inactive: the row only survives if it is
		// reactivating, otherwise it is a redundant inactivation.
		if columns[0] != "1" {
			delete(t.rows, key)
		}
	}
	if unmatched > 0 {
		t.logger.Info("Dropped rows with empty value id and no previous state",
			zap.String("file", t.schema.Filename),
			zap.Int("rows", unmatched))
	}
	return nil
}

// SelectAllOrdered returns a cursor over every row, ordered by id
// ascending then effective time ascending.
func (t *Table) SelectAllOrdered() *Cursor {
	return t.newCursor(func(Key) bool { return true })
}

// SelectWithEffectiveDateOrdered returns an ordered cursor over the rows
// carrying exactly the given effective time.
func (t *Table) SelectWithEffectiveDateOrdered(date string) *Cursor {
	return t.newCursor(func(k Key) bool { return k.Date() == date })
}

// SelectNone returns an empty cursor.
func (t *Table) SelectNone() *Cursor {
	return &Cursor{pos: -1}
}

// Close releases the backing maps. Safe to call more than once; any
// further operation on the table is invalid.
func (t *Table) Close() {
	t.rows = nil
	t.dirtyKeys = nil
}

func (t *Table) newCursor(include func(Key) bool) *Cursor {
	keys := make([]Key, 0, len(t.rows))
	for key := range t.rows {
		if include(key) {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Compare(keys[j]) < 0 })
	return &Cursor{table: t, keys: keys, pos: -1}
}

// insertRows reads every remaining line of the scanner into the store.
func (t *Table) insertRows(scanner *bufio.Scanner, workbenchFixes bool, previousEffectiveTime string) error {
	trackIdentity := workbenchFixes &&
		t.schema.ComponentType == schema.ComponentRefset &&
		t.schema.ReleaseType == schema.ReleaseDelta

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		id, effectiveTime, rest, err := splitRow(t.schema.Filename, line)
		if err != nil {
			return err
		}
		if previousEffectiveTime != "" && effectiveTime != "" && effectiveTime <= previousEffectiveTime {
			continue
		}
		key, err := t.makeKey(id, effectiveTime)
		if err != nil {
			return err
		}
		if trackIdentity {
			identity, err := t.resolver.CompositeIdentity(t.schema, line)
			if err != nil {
				return err
			}
			if winner, ok := t.dirtyKeys[identity]; ok && winner != key {
				delete(t.rows, winner)
				t.logger.Warn("Duplicate composite identity, discarding earlier row",
					zap.String("file", t.schema.Filename),
					zap.String("discarded", winner.IDString()),
					zap.String("kept", key.IDString()))
			}
			t.dirtyKeys[identity] = key
		}
		t.rows[key] = rest
	}
	return scanner.Err()
}

// scanDataRows streams a previously published file, invoking fn for every
// data row. The header line is discarded.
func (t *Table) scanDataRows(r io.Reader, fn func(id, effectiveTime, rest string) error) error {
	scanner := newLineScanner(r)
	if !scanner.Scan() {
		return &FormatError{File: t.schema.Filename, Msg: "previous file is empty"}
	}
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		id, effectiveTime, rest, err := splitRow(t.schema.Filename, line)
		if err != nil {
			return err
		}
		if err := fn(id, effectiveTime, rest); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (t *Table) makeKey(id, effectiveTime string) (Key, error) {
	if t.schema.NumericKeys() {
		num, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return Key{}, &FormatError{File: t.schema.Filename, Msg: "non-numeric id " + id}
		}
		return NewNumericKey(num, effectiveTime), nil
	}
	return NewTextKey(id, effectiveTime), nil
}

// splitRow separates id, effectiveTime and the raw remainder of a data
// line. The remainder stays unparsed to avoid re-splitting millions of
// rows.
func splitRow(file, line string) (id, effectiveTime, rest string, err error) {
	first := strings.IndexByte(line, '\t')
	if first < 0 {
		return "", "", "", &FormatError{File: file, Msg: "row has no effectiveTime column"}
	}
	second := strings.IndexByte(line[first+1:], '\t')
	if second < 0 {
		return "", "", "", &FormatError{File: file, Msg: "row has only two columns"}
	}
	second += first + 1
	return line[:first], line[first+1 : second], line[second+1:], nil
}

// newLineScanner builds a scanner sized for wide RF2 rows (description
// terms can be long). bufio.ScanLines handles the CRLF terminators.
func newLineScanner(r io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return scanner
}
