package symbol

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

const jsPrefix = "var searchData="

// toJSON turns a search payload into a JSON document. Plain JSON passes
// through unchanged; a Doxygen script has its assignment and trailing
// semicolon stripped and its single-quoted strings rewritten.
func toJSON(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	data = bytes.TrimSpace(data)
	if bytes.HasPrefix(data, []byte("var ")) {
		i := bytes.IndexByte(data, '=')
		if i < 0 {
			return nil, errors.New("missing '=' after var declaration")
		}
		data = bytes.TrimSpace(data[i+1:])
	}
	data = bytes.TrimSpace(bytes.TrimSuffix(data, []byte(";")))

	var out bytes.Buffer
	out.Grow(len(data))
	for i := 0; i < len(data); i++ {
		c := data[i]
		switch c {
		case '"':
			end, err := skipDoubleQuoted(data, i)
			if err != nil {
				return nil, err
			}
			out.Write(data[i : end+1])
			i = end
		case '\'':
			end, err := rewriteSingleQuoted(&out, data, i)
			if err != nil {
				return nil, err
			}
			i = end
		default:
			out.WriteByte(c)
		}
	}
	return out.Bytes(), nil
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func skipDoubleQuoted(data []byte, start int) (int, error) {
	for i := start + 1; i < len(data); i++ {
		switch data[i] {
		case '\\':
			i++
		case '"':
			return i, nil
		}
	}
	return 0, fmt.Errorf("unterminated string at offset %d", start)
}

// rewriteSingleQuoted writes the JS string starting at data[start] as a JSON
// string and returns the offset of its closing quote.
func rewriteSingleQuoted(out *bytes.Buffer, data []byte, start int) (int, error) {
	out.WriteByte('"')
	for i := start + 1; i < len(data); i++ {
		c := data[i]
		switch c {
		case '\'':
			out.WriteByte('"')
			return i, nil
		case '"':
			out.WriteString(`\"`)
		case '\\':
			if i+1 >= len(data) {
				return 0, fmt.Errorf("unterminated string at offset %d", start)
			}
			i++
			switch e := data[i]; e {
			case '\'':
				out.WriteByte('\'')
			case '"', '\\', '/', 'b', 'f', 'n', 'r', 't', 'u':
				out.WriteByte('\\')
				out.WriteByte(e)
			case 'x':
				if i+2 >= len(data) {
					return 0, fmt.Errorf("truncated \\x escape at offset %d", i)
				}
				if !isHex(data[i+1]) || !isHex(data[i+2]) {
					return 0, fmt.Errorf("bad \\x escape at offset %d", i)
				}
				out.WriteString(`\u00`)
				out.Write(data[i+1 : i+3])
				i += 2
			case 'v':
				out.WriteString(`\u000b`)
			case '0':
				out.WriteString(`\u0000`)
			default:
				out.WriteByte(e)
			}
		default:
			out.WriteByte(c)
		}
	}
	return 0, fmt.Errorf("unterminated string at offset %d", start)
}

// decodeRecord converts one payload record into an Entry. Two record shapes
// are accepted:
//
//	[key, [label, [url, flag, scope], ...]]
//	[key, [label, [[url, scope], ...]]]
func decodeRecord(i int, raw json.RawMessage) (Entry, error) {
	var rec []json.RawMessage
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Entry{}, &MalformedDataError{Index: i, Reason: "record is not an array"}
	}
	if len(rec) == 0 {
		return Entry{}, &MalformedDataError{Index: i, Reason: "missing key"}
	}
	var e Entry
	if err := json.Unmarshal(rec[0], &e.Key); err != nil {
		return Entry{}, &MalformedDataError{Index: i, Reason: "key is not a string"}
	}
	if e.Key == "" {
		return Entry{}, &MalformedDataError{Index: i, Reason: "missing key"}
	}
	if len(rec) < 2 {
		return Entry{}, &MalformedDataError{Index: i, Key: e.Key, Reason: "missing label"}
	}
	var body []json.RawMessage
	if err := json.Unmarshal(rec[1], &body); err != nil || len(body) == 0 {
		return Entry{}, &MalformedDataError{Index: i, Key: e.Key, Reason: "missing label"}
	}
	if err := json.Unmarshal(body[0], &e.Label); err != nil || e.Label == "" {
		return Entry{}, &MalformedDataError{Index: i, Key: e.Key, Reason: "missing label"}
	}
	for _, t := range body[1:] {
		targets, err := decodeTargets(t)
		if err != nil {
			return Entry{}, &MalformedDataError{Index: i, Key: e.Key, Reason: err.Error()}
		}
		e.Targets = append(e.Targets, targets...)
	}
	if len(e.Targets) == 0 {
		return Entry{}, &MalformedDataError{Index: i, Key: e.Key, Reason: "no targets"}
	}
	return e, nil
}

func decodeTargets(raw json.RawMessage) ([]Target, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, errors.New("target is not an array")
	}
	if len(parts) == 0 {
		return nil, nil
	}
	if bytes.HasPrefix(bytes.TrimSpace(parts[0]), []byte("[")) {
		var out []Target
		for _, p := range parts {
			ts, err := decodeTargets(p)
			if err != nil {
				return nil, err
			}
			out = append(out, ts...)
		}
		return out, nil
	}

	var t Target
	switch len(parts) {
	case 2:
		if err := unmarshalStrings(parts, &t.URL, &t.Scope); err != nil {
			return nil, err
		}
	case 3:
		if err := unmarshalStrings([]json.RawMessage{parts[0], parts[2]}, &t.URL, &t.Scope); err != nil {
			return nil, err
		}
		parent, err := decodeFlag(parts[1])
		if err != nil {
			return nil, err
		}
		t.Parent = parent
	default:
		return nil, fmt.Errorf("target has %d fields, want 2 or 3", len(parts))
	}
	if t.URL == "" {
		return nil, errors.New("target is missing url")
	}
	return []Target{t}, nil
}

func unmarshalStrings(parts []json.RawMessage, dst ...*string) error {
	for i, p := range parts {
		if err := json.Unmarshal(p, dst[i]); err != nil {
			return errors.New("target field is not a string")
		}
	}
	return nil
}

func decodeFlag(raw json.RawMessage) (bool, error) {
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n != 0, nil
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	return false, errors.New("target flag is not a number")
}

func flagValue(parent bool) int {
	if parent {
		return 1
	}
	return 0
}

// writeJS writes entries in the Doxygen searchData script form.
func writeJS(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(jsPrefix + "\n[\n")
	for i, e := range entries {
		bw.WriteString("  [" + quoteJS(e.Key) + ",[" + quoteJS(e.Label))
		for _, t := range e.Targets {
			fmt.Fprintf(bw, ",[%s,%d,%s]", quoteJS(t.URL), flagValue(t.Parent), quoteJS(t.Scope))
		}
		bw.WriteString("]]")
		if i < len(entries)-1 {
			bw.WriteByte(',')
		}
		bw.WriteByte('\n')
	}
	bw.WriteString("];\n")
	return bw.Flush()
}

func quoteJS(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\'':
			b.WriteString(`\'`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20:
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
