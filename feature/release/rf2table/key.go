package rf2table

import "strconv"

// keyKind discriminates the Key variants. The numeric value is the sort
// rank of the kind: composite keys sort before text keys by convention.
type keyKind uint8

const (
	numericKey keyKind = iota
	compositeKey
	textKey
)

// Key is the identity of one stored row: a numeric SCTID, a UUID or free
// text id, or a synthetic composite identity used only for matching
// logically equivalent refset members. Keys are comparable and define a
// total order, so they can back both the row map and the sorted cursors.
type Key struct {
	kind keyKind
	num  int64
	str  string
	date string
}

// NewNumericKey builds a key for an SCTID-identified row.
func NewNumericKey(id int64, effectiveTime string) Key {
	return Key{kind: numericKey, num: id, date: effectiveTime}
}

// NewTextKey builds a key for a UUID or free-text identified row.
func NewTextKey(id, effectiveTime string) Key {
	return Key{kind: textKey, str: id, date: effectiveTime}
}

// NewCompositeKey builds a synthetic key from a composite identity string.
// Composite keys carry no effective time and never appear in the row map.
func NewCompositeKey(identity string) Key {
	return Key{kind: compositeKey, str: identity}
}

// IDString returns the row id as text, regardless of variant.
func (k Key) IDString() string {
	if k.kind == numericKey {
		return strconv.FormatInt(k.num, 10)
	}
	return k.str
}

// Date returns the effective time of the key, empty for composite keys.
func (k Key) Date() string {
	return k.date
}

// WithDate returns a copy of the key with a different effective time.
func (k Key) WithDate(effectiveTime string) Key {
	k.date = effectiveTime
	return k
}

// Compare orders keys by id ascending, then by effective time ascending.
// Numeric ids compare as integers, text ids lexicographically. Keys of
// different kinds order by kind rank.
func (k Key) Compare(o Key) int {
	if k.kind != o.kind {
		if k.kind < o.kind {
			return -1
		}
		return 1
	}
	switch k.kind {
	case numericKey:
		if k.num != o.num {
			if k.num < o.num {
				return -1
			}
			return 1
		}
	default:
		if k.str != o.str {
			if k.str < o.str {
				return -1
			}
			return 1
		}
	}
	if k.date != o.date {
		if k.date < o.date {
			return -1
		}
		return 1
	}
	return 0
}
