package cssopt

import (
	"bytes"
	"errors"
	"io"
	"strings"

	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
)

type itemKind int

const (
	itemStatement itemKind = iota
	itemBlock
	itemComment
)

// item is a statement (declaration or block-less at-rule), a block with its
// prelude, or a standalone comment.
type item struct {
	kind     itemKind
	text     string
	children []*item
}

var errUnbalanced = errors.New("unbalanced braces")

func parseSheet(src []byte) ([]*item, error) {
	l := css.NewLexer(parse.NewInputString(string(src)))
	items, closed, err := parseBlock(l)
	if err != nil {
		return nil, err
	}
	if closed {
		return nil, errUnbalanced
	}
	return items, nil
}

// parseBlock reads items until the matching right brace or the end of input.
// closed reports whether a right brace ended the block.
func parseBlock(l *css.Lexer) (items []*item, closed bool, err error) {
	var buf strings.Builder

	flush := func() {
		if text := strings.TrimSpace(buf.String()); text != "" {
			items = append(items, &item{kind: itemStatement, text: text})
		}
		buf.Reset()
	}

	for {
		tt, data := l.Next()
		switch tt {
		case css.ErrorToken:
			if l.Err() != nil && l.Err() != io.EOF {
				return nil, false, l.Err()
			}
			flush()
			return items, false, nil
		case css.LeftBraceToken:
			prelude := strings.TrimSpace(buf.String())
			buf.Reset()
			children, ok, err := parseBlock(l)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				return nil, false, errUnbalanced
			}
			items = append(items, &item{kind: itemBlock, text: prelude, children: children})
		case css.RightBraceToken:
			flush()
			return items, true, nil
		case css.SemicolonToken:
			flush()
		case css.CommentToken:
			if strings.TrimSpace(buf.String()) == "" {
				items = append(items, &item{kind: itemComment, text: string(data)})
				continue
			}
			buf.Write(data)
		case css.WhitespaceToken:
			if s := buf.String(); s != "" && !strings.HasSuffix(s, " ") {
				buf.WriteByte(' ')
			}
		default:
			buf.Write(data)
		}
	}
}

func render(items []*item) []byte {
	var b bytes.Buffer
	writeItems(&b, items, 0)
	return b.Bytes()
}

func writeItems(b *bytes.Buffer, items []*item, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, it := range items {
		switch it.kind {
		case itemComment:
			b.WriteString(indent + it.text + "\n")
		case itemStatement:
			b.WriteString(indent + it.text + ";\n")
		case itemBlock:
			b.WriteString(indent + it.text + " {\n")
			writeItems(b, it.children, depth+1)
			b.WriteString(indent + "}\n")
		}
	}
}

// key identifies an item by content, ignoring comments.
func (it *item) key() string {
	var b strings.Builder
	it.writeKey(&b)
	return b.String()
}

func (it *item) writeKey(b *strings.Builder) {
	switch it.kind {
	case itemStatement:
		b.WriteString(it.text + ";")
	case itemBlock:
		b.WriteString(it.text + "{")
		for _, c := range it.children {
			c.writeKey(b)
		}
		b.WriteString("}")
	}
}
