// Package jsonscan walks JSON token streams to find problems that decoding
// into Go maps hides, such as repeated object keys.
package jsonscan

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	j "github.com/goccy/go-json"
)

// Duplicate is a repeated object member.
type Duplicate struct {
	Path string // JSON Pointer of the member, for example /items/0/name.
	Key  string
}

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type frame struct {
	kind         containerKind
	keys         map[string]struct{}
	expectingKey bool
	key          string // current member of an object
	index        int    // current element of an array
}

var pointerEscaper = strings.NewReplacer("~", "~0", "/", "~1")

// DuplicateKeys reports every key that appears more than once in the same
// object. limit > 0 stops the scan after that many duplicates; limit <= 0
// means unlimited. Malformed input returns the decoder error.
func DuplicateKeys(data []byte, limit int) ([]Duplicate, error) {
	dec := j.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var (
		dups  []Duplicate
		stack []frame
	)
	// valueDone advances the parent after a complete value.
	valueDone := func() {
		if n := len(stack); n > 0 {
			top := &stack[n-1]
			if top.kind == kindObject {
				top.expectingKey = true
			} else {
				top.index++
			}
		}
	}
	pointer := func(key string) string {
		var b strings.Builder
		for i := 0; i < len(stack)-1; i++ {
			b.WriteByte('/')
			if stack[i].kind == kindObject {
				b.WriteString(pointerEscaper.Replace(stack[i].key))
			} else {
				b.WriteString(strconv.Itoa(stack[i].index))
			}
		}
		b.WriteByte('/')
		b.WriteString(pointerEscaper.Replace(key))
		return b.String()
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return dups, nil
		}
		if err != nil {
			return dups, err
		}
		switch v := tok.(type) {
		case j.Delim:
			switch v {
			case '{':
				stack = append(stack, frame{kind: kindObject, keys: map[string]struct{}{}, expectingKey: true})
			case '[':
				stack = append(stack, frame{kind: kindArray})
			case '}', ']':
				if n := len(stack); n > 0 {
					stack = stack[:n-1]
				}
				valueDone()
			}
		case string:
			if n := len(stack); n > 0 && stack[n-1].kind == kindObject && stack[n-1].expectingKey {
				top := &stack[n-1]
				if _, ok := top.keys[v]; ok {
					dups = append(dups, Duplicate{Path: pointer(v), Key: v})
					if limit > 0 && len(dups) >= limit {
						return dups, nil
					}
				}
				top.keys[v] = struct{}{}
				top.key = v
				top.expectingKey = false
				continue
			}
			valueDone()
		default:
			valueDone()
		}
	}
}
