// Package cell defines the tagged-cell universe: the single, fixed-shape record type
// that every Scheme value in the engine is built from.
package cell

import "fmt"

// Index addresses a cell in the store. It is never a raw memory address: the garbage
// collector rewrites indices wholesale during a collection, so every reference between
// values must be a cell Index, never a pointer.
type Index int32

// Nil is the out-of-band prefix index. It is never a valid user value; all user cells
// live at index >= 1.
const Nil Index = 0

func (i Index) String() string {
	return fmt.Sprintf("#%d", int32(i))
}

// Tag identifies the shape and meaning of a cell's two words.
//
//go:generate stringer -type=Tag
type Tag uint8

// The finite set of cell tags, per the data model.
const (
	TagFree Tag = iota
	TagPair
	TagSymbol
	TagKeyword
	TagString
	TagNumber
	TagChar
	TagSpecial
	TagRef
	TagVariable
	TagClosure
	TagContinuation
	TagMacro
	TagValues
	TagVector
	TagStruct
	TagPort
	TagBytes
	TagFunction
	TagBrokenHeart
)

// Cell is the single fixed-shape record every value is made from: a tag and two
// words. The words are overlaid depending on the tag — car/cdr for pairs, length/vector
// for headers of variable-length payloads, or a raw numeric/character value.
type Cell struct {
	Tag Tag
	A   Index // car, ref, length, or raw value (first word)
	B   Index // cdr, value, or vector (index of first payload cell; second word)
}

// Car returns the first word as a cell reference. Valid for pair, ref, variable, macro.
func (c Cell) Car() Index { return c.A }

// Cdr returns the second word as a cell reference. Valid for pair, ref, variable, macro,
// and as the descriptor word of closure/continuation/keyword/port/special/string/
// symbol/values cells (forwarded by the collector, even though it is not itself a cell
// index in every one of those cases — see heap.scanCell).
func (c Cell) Cdr() Index { return c.B }

// Length returns the element count of a vector/struct/bytes header.
func (c Cell) Length() int { return int(c.A) }

// Vector returns the index of the first payload cell of a vector/struct/bytes header.
func (c Cell) Vector() Index { return c.B }

// Value returns the raw numeric payload of a number or char cell.
func (c Cell) Value() int32 { return int32(c.B) }

// BytesCells returns the number of cells occupied by a byte-string payload of the given
// length: one word per two bytes, rounded up, per the data model's packing rule.
func BytesCells(length int) int {
	const word = 2 // bytes per Index-sized packed slot in the payload encoding
	return (length + word - 1) / word
}

func (t Tag) String() string {
	if int(t) < len(tagNames) {
		return tagNames[t]
	}

	return fmt.Sprintf("Tag(%d)", uint8(t))
}
