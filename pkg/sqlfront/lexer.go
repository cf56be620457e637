/*
Copyright 2013 The Camlistore Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package sqlfront turns SQL text into the query plans pkg/query
// already knows how to run: a hand-written tokenizer and
// recursive-descent parser produce a small AST, which Execute wires
// directly into TableScan/SelectScan/ProjectScan (for SELECT) or a
// single Insert call (for INSERT).
package sqlfront

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokID
	tokIntLit
	tokStringLit
	tokKeyword
	tokDelim
)

type token struct {
	kind tokenKind
	text string
	ival int32
}

var keywords = map[string]bool{
	"select": true, "from": true, "where": true, "and": true,
	"insert": true, "into": true, "values": true,
}

// ErrBadSyntax is returned by Parse for any malformed statement; it
// always carries the offending snippet so a caller can report it.
var ErrBadSyntax = errors.New("sqlfront: syntax error")

type lexer struct {
	src []rune
	pos int
	tok token
}

func newLexer(s string) *lexer {
	l := &lexer{src: []rune(s)}
	l.advance()
	return l
}

func (l *lexer) peekRune() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) advance() {
	for l.pos < len(l.src) && unicode.IsSpace(l.src[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		l.tok = token{kind: tokEOF}
		return
	}
	c := l.src[l.pos]
	switch {
	case c == '\'':
		l.pos++
		start := l.pos
		for l.pos < len(l.src) && l.src[l.pos] != '\'' {
			l.pos++
		}
		s := string(l.src[start:l.pos])
		if l.pos < len(l.src) {
			l.pos++ // consume closing quote
		}
		l.tok = token{kind: tokStringLit, text: s}
	case unicode.IsDigit(c):
		start := l.pos
		for l.pos < len(l.src) && unicode.IsDigit(l.src[l.pos]) {
			l.pos++
		}
		text := string(l.src[start:l.pos])
		var v int32
		fmt.Sscanf(text, "%d", &v)
		l.tok = token{kind: tokIntLit, text: text, ival: v}
	case unicode.IsLetter(c) || c == '_':
		start := l.pos
		for l.pos < len(l.src) && (unicode.IsLetter(l.src[l.pos]) || unicode.IsDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
			l.pos++
		}
		text := string(l.src[start:l.pos])
		lower := strings.ToLower(text)
		if keywords[lower] {
			l.tok = token{kind: tokKeyword, text: lower}
		} else {
			l.tok = token{kind: tokID, text: text}
		}
	case strings.ContainsRune(",()=.", c):
		l.pos++
		l.tok = token{kind: tokDelim, text: string(c)}
	default:
		l.pos++
		l.tok = token{kind: tokDelim, text: string(c)}
	}
}
