package main

import "unicode"

// Cursor is a peekable, forward-only rune stream over one input line.
// Nothing is tokenized up front; the parser pulls runes as it recognizes productions.
type Cursor struct {
	runes []rune
	pos   int
}

// NewCursor creates a cursor positioned before the first rune of line
func NewCursor(line string) *Cursor {
	return &Cursor{runes: []rune(line)}
}

// Peek returns the next rune without consuming it
func (c *Cursor) Peek() (rune, bool) {
	if c.pos >= len(c.runes) {
		return 0, false
	}
	return c.runes[c.pos], true
}

// Advance consumes and returns the next rune
func (c *Cursor) Advance() (rune, bool) {
	r, ok := c.Peek()
	if ok {
		c.pos++
	}
	return r, ok
}

// SkipWhitespace consumes any run of Unicode whitespace
func (c *Cursor) SkipWhitespace() {
	for {
		r, ok := c.Peek()
		if !ok || !unicode.IsSpace(r) {
			return
		}
		c.pos++
	}
}

// Column is the 1-based column of the next rune, used for diagnostics only
func (c *Cursor) Column() int {
	return c.pos + 1
}
