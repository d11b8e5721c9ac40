package workout

import (
	"slices"
	"strconv"
	"strings"
)

// oracle is the reference model every map operation is mirrored on.
type oracle struct {
	entries map[int]int
}

func newOracle() *oracle {
	return &oracle{entries: map[int]int{}}
}

func (o *oracle) insert(key, value int) (int, bool) {
	previous, ok := o.entries[key]
	o.entries[key] = value

	return previous, ok
}

func (o *oracle) remove(key int) (int, bool) {
	value, ok := o.entries[key]
	delete(o.entries, key)

	return value, ok
}

func (o *oracle) get(key int) (int, bool) {
	value, ok := o.entries[key]

	return value, ok
}

func (o *oracle) len() int {
	return len(o.entries)
}

// sortedKeys returns the keys in ascending order.
func (o *oracle) sortedKeys() []int {
	keys := make([]int, 0, len(o.entries))
	for key := range o.entries {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}

// dump renders the model as one "key=value" line per entry in key order.
func (o *oracle) dump() string {
	var sb strings.Builder

	for _, key := range o.sortedKeys() {
		writeEntry(&sb, key, o.entries[key])
	}

	return sb.String()
}

func writeEntry(sb *strings.Builder, key, value int) {
	sb.WriteString(strconv.Itoa(key))
	sb.WriteByte('=')
	sb.WriteString(strconv.Itoa(value))
	sb.WriteByte('\n')
}
