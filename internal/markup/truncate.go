package markup

import (
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

const (
	// LongFormBudget caps the encoded node payload of a long-form page.
	LongFormBudget = 64 * 1024
	// TruncationMarker is appended wherever content was cut.
	TruncationMarker = "…"
)

// FitNodes encodes nodes, dropping and truncating trailing content so the
// encoding stays within budget bytes. The second result reports whether
// anything was cut; in that case a marker paragraph closes the tree.
func FitNodes(nodes []Node, budget int) ([]byte, bool, error) {
	full, err := EncodeNodes(nodes)
	if err != nil {
		return nil, false, err
	}
	if len(full) <= budget {
		return full, false, nil
	}

	marker := Elem("p", TextNode(TruncationMarker))
	remaining := budget - 2 - encodedLen(marker)
	if remaining < 0 {
		return nil, true, errors.Newf("budget %d too small for truncation marker", budget)
	}

	var kept []Node
	for _, n := range nodes {
		size := encodedLen(n) + 1
		if size <= remaining {
			kept = append(kept, n)
			remaining -= size
			continue
		}
		if cut, ok := truncateNode(n, remaining-1); ok {
			kept = append(kept, cut)
		}
		break
	}
	kept = append(kept, marker)

	out, err := EncodeNodes(kept)
	if err != nil {
		return nil, true, err
	}
	if len(out) > budget {
		return nil, true, errors.Newf("truncated payload %d bytes exceeds budget %d", len(out), budget)
	}
	return out, true, nil
}

func truncateNode(n Node, budget int) (Node, bool) {
	if budget <= 0 {
		return Node{}, false
	}
	if encodedLen(n) <= budget {
		return n, true
	}

	if n.IsText() {
		prefix := jsonPrefix(n.Text, budget-2)
		if strings.TrimSpace(prefix) == "" {
			return Node{}, false
		}
		return TextNode(prefix), true
	}

	if len(n.Children) == 0 {
		return Node{}, false
	}
	shell := Node{Tag: n.Tag, Attrs: n.Attrs, Children: []Node{TextNode("")}}
	avail := budget - (encodedLen(shell) - 2)

	var kept []Node
	for i, c := range n.Children {
		sep := 0
		if i > 0 {
			sep = 1
		}
		size := encodedLen(c) + sep
		if size <= avail {
			kept = append(kept, c)
			avail -= size
			continue
		}
		if cut, ok := truncateNode(c, avail-sep); ok {
			kept = append(kept, cut)
		}
		break
	}
	if len(kept) == 0 {
		return Node{}, false
	}
	return Node{Tag: n.Tag, Attrs: n.Attrs, Children: kept}, true
}

// jsonPrefix returns the longest rune-aligned prefix of s whose JSON string
// body fits in budget bytes.
func jsonPrefix(s string, budget int) string {
	used := 0
	for i, r := range s {
		size := jsonRuneLen(r)
		if used+size > budget {
			return s[:i]
		}
		used += size
	}
	return s
}

func jsonRuneLen(r rune) int {
	switch {
	case r == '"' || r == '\\' || r == '\n' || r == '\r' || r == '\t':
		return 2
	case r < 0x20, r == '\u2028', r == '\u2029', r == utf8.RuneError:
		return 6
	default:
		return utf8.RuneLen(r)
	}
}

func encodedLen(n Node) int {
	b, err := n.MarshalJSON()
	if err != nil {
		return 0
	}
	return len(b)
}
