package symbol

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"
	"strings"

	"go.uber.org/zap"
)

var _ Resolver = (*Index)(nil)

// Index is an immutable table of entries supporting prefix search and exact
// key lookup. It is safe for concurrent use once built.
type Index struct {
	source   string
	entries  []Entry
	folded   []string // lowercased keys, parallel to entries
	records  []int    // payload record position, parallel to entries
	slugKeys bool     // every key is in generated slug form
	byKey    map[string]int
	warnings []error
}

type loadOptions struct {
	strict bool
	source string
	logger *zap.Logger
}

// LoadOption configures Load and Merge.
type LoadOption func(*loadOptions)

// WithStrict makes the first malformed record fail the whole load instead of
// being skipped with a warning.
func WithStrict(strict bool) LoadOption {
	return func(o *loadOptions) { o.strict = strict }
}

// WithSource names the payload in warnings and log output.
func WithSource(name string) LoadOption {
	return func(o *loadOptions) { o.source = name }
}

// WithLogger sets the logger used to report skipped records.
func WithLogger(l *zap.Logger) LoadOption {
	return func(o *loadOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

func (o loadOptions) wrap(err error) error {
	if o.source == "" {
		return fmt.Errorf("symbol: decode payload: %w", err)
	}
	return fmt.Errorf("symbol: decode payload %s: %w", o.source, err)
}

func buildOptions(opts []LoadOption) loadOptions {
	o := loadOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Load parses a search payload, either a JSON array or a Doxygen
// "var searchData=[...];" script. Malformed records are skipped and
// reported by Warnings unless WithStrict is set.
func Load(data []byte, opts ...LoadOption) (*Index, error) {
	o := buildOptions(opts)

	doc, err := toJSON(data)
	if err != nil {
		return nil, o.wrap(err)
	}
	var records []json.RawMessage
	if err := json.Unmarshal(doc, &records); err != nil {
		return nil, o.wrap(err)
	}

	b := newBuilder(o, len(records))
	for i, raw := range records {
		e, err := decodeRecord(i, raw)
		if err != nil {
			if rerr := b.reject(err); rerr != nil {
				return nil, rerr
			}
			continue
		}
		if err := b.add(i, e); err != nil {
			return nil, err
		}
	}
	return b.index(), nil
}

// Merge concatenates indexes in order. Warnings of the inputs are carried
// over; a key already present in an earlier index is a malformed record.
func Merge(indexes []*Index, opts ...LoadOption) (*Index, error) {
	o := buildOptions(opts)
	n := 0
	for _, x := range indexes {
		n += len(x.entries)
	}
	b := newBuilder(o, n)
	for _, x := range indexes {
		b.warnings = append(b.warnings, x.warnings...)
		b.opts.source = x.source
		for i, e := range x.entries {
			if err := b.add(x.records[i], e); err != nil {
				return nil, err
			}
		}
	}
	b.opts.source = o.source
	return b.index(), nil
}

type builder struct {
	opts     loadOptions
	entries  []Entry
	records  []int
	byKey    map[string]int
	warnings []error
}

func newBuilder(o loadOptions, n int) *builder {
	return &builder{
		opts:    o,
		entries: make([]Entry, 0, n),
		records: make([]int, 0, n),
		byKey:   make(map[string]int, n),
	}
}

func (b *builder) add(i int, e Entry) error {
	if _, dup := b.byKey[e.Key]; dup {
		return b.reject(&MalformedDataError{Index: i, Key: e.Key, Reason: "duplicate key"})
	}
	b.byKey[e.Key] = len(b.entries)
	b.entries = append(b.entries, e)
	b.records = append(b.records, i)
	return nil
}

// reject records a malformed record, or returns it when loading strictly.
func (b *builder) reject(err error) error {
	var me *MalformedDataError
	if errors.As(err, &me) && me.Source == "" {
		me.Source = b.opts.source
	}
	if b.opts.strict {
		return err
	}
	b.opts.logger.Warn("skipping malformed symbol record", zap.Error(err))
	b.warnings = append(b.warnings, err)
	return nil
}

func (b *builder) index() *Index {
	folded := make([]string, len(b.entries))
	slugKeys := len(b.entries) > 0
	for i, e := range b.entries {
		folded[i] = strings.ToLower(e.Key)
		if slugKeys && !isSlugKey(e.Key) {
			slugKeys = false
		}
	}
	return &Index{
		source:   b.opts.source,
		entries:  b.entries,
		folded:   folded,
		records:  b.records,
		slugKeys: slugKeys,
		byKey:    b.byKey,
		warnings: b.warnings,
	}
}

// Len returns the number of entries.
func (x *Index) Len() int { return len(x.entries) }

// Warnings returns the malformed records skipped while loading.
func (x *Index) Warnings() []error { return slices.Clone(x.warnings) }

// Entries yields every entry in insertion order.
func (x *Index) Entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, e := range x.entries {
			if !yield(e.clone()) {
				return
			}
		}
	}
}

// Search yields, in insertion order, the entries whose key starts with
// prefix, ignoring case. When every key is a generated slug the prefix also
// matches in its escaped form, so "abs(" finds "abs_28int_29_2265". An empty
// prefix yields nothing.
func (x *Index) Search(prefix string) iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		if prefix == "" {
			return
		}
		plain, slug := x.queryForms(prefix)
		for i, k := range x.folded {
			if !strings.HasPrefix(k, plain) && (slug == "" || !strings.HasPrefix(k, slug)) {
				continue
			}
			if !yield(x.entries[i].clone()) {
				return
			}
		}
	}
}

// queryForms returns the lowercased prefix and, for slug-keyed tables, its
// escaped form. slug is empty when only the plain form applies.
func (x *Index) queryForms(prefix string) (plain, slug string) {
	plain = strings.ToLower(prefix)
	if x.slugKeys {
		slug = EncodeQuery(prefix)
	}
	return plain, slug
}

// Lookup returns the entry stored under key exactly.
func (x *Index) Lookup(key string) (Entry, bool) {
	i, ok := x.byKey[key]
	if !ok {
		return Entry{}, false
	}
	return x.entries[i].clone(), true
}

// Encode writes the index as a Doxygen searchData script.
func (x *Index) Encode(w io.Writer) error {
	return writeJS(w, x.entries)
}

// MarshalJSON writes the index as a JSON array of payload records.
func (x *Index) MarshalJSON() ([]byte, error) {
	records := make([][]any, len(x.entries))
	for i, e := range x.entries {
		body := make([]any, 0, len(e.Targets)+1)
		body = append(body, e.Label)
		for _, t := range e.Targets {
			body = append(body, []any{t.URL, flagValue(t.Parent), t.Scope})
		}
		records[i] = []any{e.Key, body}
	}
	return json.Marshal(records)
}

// isSlugKey reports whether key only uses characters a generated key can
// contain: lowercase alphanumerics, "_" escapes and bytes above 0x7f.
func isSlugKey(key string) bool {
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c < 0x80 && c != '_' && (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// EncodeQuery lowercases q and escapes it the way search keys are generated:
// every byte outside [a-z0-9] below 0x80 becomes "_" plus two hex digits.
func EncodeQuery(q string) string {
	q = strings.ToLower(q)
	var b strings.Builder
	b.Grow(len(q))
	for i := 0; i < len(q); i++ {
		c := q[i]
		if c >= 0x80 || 'a' <= c && c <= 'z' || '0' <= c && c <= '9' {
			b.WriteByte(c)
			continue
		}
		fmt.Fprintf(&b, "_%02x", c)
	}
	return b.String()
}
