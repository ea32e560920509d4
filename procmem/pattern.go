package procmem

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Pattern is an immutable byte signature with wildcard positions, written in
// the usual AOB notation: "48 8B 05 ?? ?? ?? ?? 48 85 C0". Offset is added to
// the match address before it is returned by a scan.
type Pattern struct {
	bytes  []byte
	wild   []bool
	Offset int64
}

// ParsePattern parses an AOB string. Tokens are two hex digits or a wildcard
// ("??" or "?"), separated by whitespace.
func ParsePattern(s string, offset int64) (Pattern, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Pattern{}, fmt.Errorf("%w: empty pattern", ErrPatternSyntax)
	}
	p := Pattern{
		bytes:  make([]byte, len(fields)),
		wild:   make([]bool, len(fields)),
		Offset: offset,
	}
	for i, tok := range fields {
		if tok == "??" || tok == "?" {
			p.wild[i] = true
			continue
		}
		b, err := hex.DecodeString(tok)
		if err != nil || len(b) != 1 {
			return Pattern{}, fmt.Errorf("%w: token %q", ErrPatternSyntax, tok)
		}
		p.bytes[i] = b[0]
	}
	return p, nil
}

func (p Pattern) Len() int {
	return len(p.bytes)
}

// MatchAt reports whether the pattern matches buf starting at index i.
func (p Pattern) MatchAt(buf []byte, i int) bool {
	if i+len(p.bytes) > len(buf) {
		return false
	}
	for j, b := range p.bytes {
		if !p.wild[j] && buf[i+j] != b {
			return false
		}
	}
	return true
}

func (p Pattern) String() string {
	var sb strings.Builder
	for i, b := range p.bytes {
		if i > 0 {
			sb.WriteByte(' ')
		}
		if p.wild[i] {
			sb.WriteString("??")
		} else {
			fmt.Fprintf(&sb, "%02X", b)
		}
	}
	return sb.String()
}
