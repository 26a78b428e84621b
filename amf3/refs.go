package amf3

import (
	"github.com/torresjeff/amf"
)

// readTables are the reference tables of one decode call. Entries are only ever appended.
type readTables struct {
	strings []string
	traits  []*Trait
	objects []Value
}

func (t *readTables) lookupString(offset int, index uint32) (string, error) {
	if int(index) >= len(t.strings) {
		return "", &amf.ReferenceError{Offset: offset, Table: "string", Index: index, Size: len(t.strings)}
	}
	return t.strings[index], nil
}

func (t *readTables) lookupTrait(offset int, index uint32) (*Trait, error) {
	if int(index) >= len(t.traits) {
		return nil, &amf.ReferenceError{Offset: offset, Table: "trait", Index: index, Size: len(t.traits)}
	}
	return t.traits[index], nil
}

func (t *readTables) lookupObject(offset int, index uint32) (Value, error) {
	if int(index) >= len(t.objects) {
		return nil, &amf.ReferenceError{Offset: offset, Table: "object", Index: index, Size: len(t.objects)}
	}
	return t.objects[index], nil
}

// writeTables are the reference tables of one encode call. Strings are matched by value,
// traits and complex values by pointer identity, so content-equal but distinct instances are
// written in full each time.
type writeTables struct {
	strings map[string]uint32
	traits  map[*Trait]uint32
	objects map[Value]uint32
}

func newWriteTables() *writeTables {
	return &writeTables{
		strings: make(map[string]uint32),
		traits:  make(map[*Trait]uint32),
		objects: make(map[Value]uint32),
	}
}

func (t *writeTables) addString(s string) {
	t.strings[s] = uint32(len(t.strings))
}

func (t *writeTables) addTrait(trait *Trait) {
	t.traits[trait] = uint32(len(t.traits))
}

func (t *writeTables) addObject(v Value) {
	t.objects[v] = uint32(len(t.objects))
}
