package frame

import (
	"fmt"
	"strings"
)

// LeftJoin joins right onto left by the key columns in on.
//
// Every left row is kept. A left row matching several right rows is repeated
// once per match, in right-table order; a left row with no match gets nulls in
// every right-side column. Null keys never match. Non-key columns present on
// both sides are renamed with suffixes[0] (left) and suffixes[1] (right).
func LeftJoin(left, right *Table, on []string, suffixes [2]string) (*Table, error) {
	if len(on) == 0 {
		return nil, fmt.Errorf("left join requires at least one key column")
	}
	leftKeys := make([]*Column, len(on))
	rightKeys := make([]*Column, len(on))
	for i, name := range on {
		l, err := left.Column(name)
		if err != nil {
			return nil, fmt.Errorf("left table: %w", err)
		}
		r, err := right.Column(name)
		if err != nil {
			return nil, fmt.Errorf("right table: %w", err)
		}
		if l.Kind != r.Kind {
			return nil, fmt.Errorf("%w: join key %s is %s on the left and %s on the right", ErrKindMismatch, name, l.Kind, r.Kind)
		}
		leftKeys[i] = l
		rightKeys[i] = r
	}

	lookup := make(map[string][]int, right.NumRows())
	for j := 0; j < right.NumRows(); j++ {
		key, ok := compositeKey(rightKeys, j)
		if !ok {
			continue
		}
		lookup[key] = append(lookup[key], j)
	}

	leftIdx := make([]int, 0, left.NumRows())
	rightIdx := make([]int, 0, left.NumRows())
	for i := 0; i < left.NumRows(); i++ {
		key, ok := compositeKey(leftKeys, i)
		matches := lookup[key]
		if !ok || len(matches) == 0 {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, -1)
			continue
		}
		for _, j := range matches {
			leftIdx = append(leftIdx, i)
			rightIdx = append(rightIdx, j)
		}
	}

	isKey := make(map[string]bool, len(on))
	for _, name := range on {
		isKey[name] = true
	}
	var cols []*Column
	for _, col := range left.Columns() {
		taken := col.Take(leftIdx)
		if !isKey[col.Name] && right.Has(col.Name) {
			taken.Name += suffixes[0]
		}
		cols = append(cols, taken)
	}
	for _, col := range right.Columns() {
		if isKey[col.Name] {
			continue
		}
		taken := col.Take(rightIdx)
		if left.Has(col.Name) {
			taken.Name += suffixes[1]
		}
		cols = append(cols, taken)
	}

	out, err := New(cols...)
	if err != nil {
		return nil, fmt.Errorf("left join: %w", err)
	}
	out.rows = len(leftIdx)
	return out, nil
}

func compositeKey(keys []*Column, row int) (string, bool) {
	parts := make([]string, len(keys))
	for i, col := range keys {
		if col.IsNull(row) {
			return "", false
		}
		parts[i] = col.Key(row)
	}
	return strings.Join(parts, "\x1f"), true
}
