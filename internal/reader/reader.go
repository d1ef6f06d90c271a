// Package reader implements a minimal recursive-descent reader translating Scheme
// source text into heap values: pairs, symbols, fixnums, strings, characters, and the
// #t/#f/quote read-syntax shortcuts the bootstrap file relies on.
package reader

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/kettlelang/mes/internal/cell"
	"github.com/kettlelang/mes/internal/heap"
)

// Reader tokenizes and parses one source string at a time, grounded on the teacher's
// assembler tokenizer shape (internal/asm/parser.go): a cursor over the input plus small
// peek/advance primitives, rather than a generated lexer.
type Reader struct {
	h     *heap.Heap
	src   string
	pos   int
	quote cell.Index
}

// New creates a Reader over src, bound to h for allocation.
func New(h *heap.Heap, src string) *Reader {
	return &Reader{h: h, src: src, quote: h.Intern("quote")}
}

// ReadAll reads every top-level form in the source, returning them as a Go slice.
func (r *Reader) ReadAll() ([]cell.Index, error) {
	var forms []cell.Index

	for {
		r.skipAtmosphere()

		if r.pos >= len(r.src) {
			return forms, nil
		}

		form, err := r.read()
		if err != nil {
			return nil, err
		}

		forms = append(forms, form)
	}
}

// Read reads a single form, or returns io.EOF-shaped ok=false if only atmosphere remains.
func (r *Reader) Read() (cell.Index, bool, error) {
	r.skipAtmosphere()

	if r.pos >= len(r.src) {
		return cell.Nil, false, nil
	}

	form, err := r.read()

	return form, true, err
}

func (r *Reader) read() (cell.Index, error) {
	r.skipAtmosphere()

	if r.pos >= len(r.src) {
		return cell.Nil, fmt.Errorf("reader: unexpected end of input")
	}

	c := r.src[r.pos]

	switch {
	case c == '(':
		return r.readList()
	case c == ')':
		return cell.Nil, fmt.Errorf("reader: unexpected )")
	case c == '\'':
		r.pos++

		inner, err := r.read()
		if err != nil {
			return cell.Nil, err
		}

		return r.h.Cons(r.quote, r.h.Cons(inner, r.h.Empty)), nil
	case c == '"':
		return r.readString()
	case c == '#':
		return r.readHash()
	default:
		return r.readAtom()
	}
}

func (r *Reader) readList() (cell.Index, error) {
	r.pos++ // consume '('

	var items []cell.Index
	tail := r.h.Empty

	for {
		r.skipAtmosphere()

		if r.pos >= len(r.src) {
			return cell.Nil, fmt.Errorf("reader: unterminated list")
		}

		if r.src[r.pos] == ')' {
			r.pos++
			break
		}

		if r.src[r.pos] == '.' && r.pos+1 < len(r.src) && isDelimiter(r.src[r.pos+1]) {
			r.pos++

			var err error

			tail, err = r.read()
			if err != nil {
				return cell.Nil, err
			}

			r.skipAtmosphere()

			if r.pos >= len(r.src) || r.src[r.pos] != ')' {
				return cell.Nil, fmt.Errorf("reader: malformed dotted list")
			}

			r.pos++

			break
		}

		item, err := r.read()
		if err != nil {
			return cell.Nil, err
		}

		items = append(items, item)
	}

	out := tail
	for i := len(items) - 1; i >= 0; i-- {
		out = r.h.Cons(items[i], out)
	}

	return out, nil
}

func (r *Reader) readString() (cell.Index, error) {
	r.pos++ // consume opening quote

	var sb strings.Builder

	for {
		if r.pos >= len(r.src) {
			return cell.Nil, fmt.Errorf("reader: unterminated string")
		}

		c := r.src[r.pos]

		if c == '"' {
			r.pos++
			break
		}

		if c == '\\' && r.pos+1 < len(r.src) {
			r.pos++

			switch r.src[r.pos] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(r.src[r.pos])
			}

			r.pos++

			continue
		}

		sb.WriteByte(c)
		r.pos++
	}

	return r.h.MakeString(sb.String()), nil
}

func (r *Reader) readHash() (cell.Index, error) {
	r.pos++ // consume '#'

	if r.pos >= len(r.src) {
		return cell.Nil, fmt.Errorf("reader: unexpected end after #")
	}

	switch r.src[r.pos] {
	case 't':
		r.pos++
		return r.h.True, nil
	case 'f':
		r.pos++
		return r.h.False, nil
	case '\\':
		r.pos++
		return r.readChar()
	default:
		return cell.Nil, fmt.Errorf("reader: unsupported # syntax at %d", r.pos)
	}
}

func (r *Reader) readChar() (cell.Index, error) {
	start := r.pos
	for r.pos < len(r.src) && !isDelimiter(r.src[r.pos]) {
		r.pos++
	}

	if r.pos == start {
		r.pos++
	}

	name := r.src[start:r.pos]

	switch name {
	case "space":
		return r.h.MakeChar(' '), nil
	case "newline":
		return r.h.MakeChar('\n'), nil
	case "tab":
		return r.h.MakeChar('\t'), nil
	default:
		return r.h.MakeChar(rune(name[0])), nil
	}
}

func (r *Reader) readAtom() (cell.Index, error) {
	start := r.pos
	for r.pos < len(r.src) && !isDelimiter(r.src[r.pos]) {
		r.pos++
	}

	text := r.src[start:r.pos]

	if n, err := strconv.ParseInt(text, 10, 32); err == nil {
		return r.h.MakeNumber(int32(n)), nil
	}

	return r.h.Intern(text), nil
}

func (r *Reader) skipAtmosphere() {
	for r.pos < len(r.src) {
		c := r.src[r.pos]

		switch {
		case unicode.IsSpace(rune(c)):
			r.pos++
		case c == ';':
			for r.pos < len(r.src) && r.src[r.pos] != '\n' {
				r.pos++
			}
		default:
			return
		}
	}
}

func isDelimiter(c byte) bool {
	return unicode.IsSpace(rune(c)) || c == '(' || c == ')' || c == '"' || c == ';'
}
