package symbol

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"reflect"
	"slices"
	"strings"
	"testing"
)

func loadFixture(t *testing.T) *Index {
	t.Helper()
	data, err := os.ReadFile("testdata/functions_1.js")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	idx, err := Load(data, WithSource("functions_1.js"), WithStrict(true))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return idx
}

func keysOf(entries []Entry) []string {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.Key
	}
	return keys
}

func TestLoadDoxygenScript(t *testing.T) {
	idx := loadFixture(t)

	if got := idx.Len(); got != 67 {
		t.Fatalf("Len() = %d, want 67", got)
	}
	if w := idx.Warnings(); len(w) != 0 {
		t.Errorf("unexpected warnings: %v", w)
	}

	e, ok := idx.Lookup("a_2261")
	if !ok {
		t.Fatal("Lookup(a_2261) not found")
	}
	if e.Label != "a" {
		t.Errorf("Label = %q, want %q", e.Label, "a")
	}
	if len(e.Targets) != 5 {
		t.Fatalf("len(Targets) = %d, want 5", len(e.Targets))
	}
	want := Target{
		URL:    "http://en.cppreference.com/w/cpp/numeric/random/extreme_value_distribution/params.html",
		Parent: true,
		Scope:  "std::extreme_value_distribution::a()",
	}
	if e.Targets[0] != want {
		t.Errorf("Targets[0] = %+v, want %+v", e.Targets[0], want)
	}

	e, ok = idx.Lookup("abs_2263")
	if !ok {
		t.Fatal("Lookup(abs_2263) not found")
	}
	if e.Targets[0].URL != "../namespacecnl.html#a79976e33ec184a2043c7aa8a762186a7" || e.Targets[0].Scope != "cnl" {
		t.Errorf("abs target = %+v", e.Targets[0])
	}
}

func TestSearch(t *testing.T) {
	idx := loadFixture(t)

	tests := []struct {
		name   string
		prefix string
		want   []string
	}{
		{"empty prefix", "", nil},
		{"no match", "zzz", nil},
		{"overloads in order", "abs", []string{"abs_2263", "abs_28float_29_2264", "abs_28int_29_2265"}},
		{"case insensitive", "ABS", []string{"abs_2263", "abs_28float_29_2264", "abs_28int_29_2265"}},
		{"slug form of punctuation", "abs(", []string{"abs_28float_29_2264", "abs_28int_29_2265"}},
		{"signature", "abs(int)", []string{"abs_28int_29_2265"}},
		{"underscore", "adjacent_", []string{"adjacent_5fdifference_2272", "adjacent_5ffind_2273"}},
		{"raw slug", "atomic_5fload", []string{"atomic_5fload_2321", "atomic_5fload_5fexplicit_2322"}},
		{"exact key", "auto_5fptr_2327", []string{"auto_5fptr_2327"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := keysOf(Take(idx.Search(tt.prefix), 0))
			if !slices.Equal(got, tt.want) {
				t.Errorf("Search(%q) = %v, want %v", tt.prefix, got, tt.want)
			}
		})
	}
}

func TestSearchIsRestartableAndStoppable(t *testing.T) {
	idx := loadFixture(t)
	seq := idx.Search("at")

	first := Take(seq, 0)
	second := Take(seq, 0)
	if len(first) == 0 || !slices.Equal(keysOf(first), keysOf(second)) {
		t.Fatalf("second pass differs: %d vs %d entries", len(first), len(second))
	}

	if got := Take(seq, 2); len(got) != 2 {
		t.Fatalf("Take(seq, 2) returned %d entries", len(got))
	}
}

func TestSearchResultsMatchPrefix(t *testing.T) {
	idx := loadFixture(t)
	prefixes := []string{"a", "Al", "atomic", "ATOMIC5f", "as", "x", "abs(", "all_of", "operator+=", "ABS(Int)"}
	for _, p := range prefixes {
		n := 0
		for e := range idx.Search(p) {
			k := strings.ToLower(e.Key)
			if !strings.HasPrefix(k, strings.ToLower(p)) && !strings.HasPrefix(k, EncodeQuery(p)) {
				t.Errorf("Search(%q) yielded %q", p, e.Key)
			}
			n++
		}
		want := 0
		for e := range idx.Entries() {
			k := strings.ToLower(e.Key)
			if strings.HasPrefix(k, strings.ToLower(p)) || strings.HasPrefix(k, EncodeQuery(p)) {
				want++
			}
		}
		if n != want {
			t.Errorf("Search(%q) yielded %d entries, want %d", p, n, want)
		}
	}
}

func TestSearchPlainKeysIgnoreSlugForm(t *testing.T) {
	payload := `[
		["abs(int)", ["abs(int)", ["abs.html", 1, "std"]]],
		["abs_28x", ["abs_28x", ["x.html", 1, "std"]]]
	]`
	idx, err := Load([]byte(payload), WithStrict(true))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := keysOf(Take(idx.Search("abs("), 0))
	if !slices.Equal(got, []string{"abs(int)"}) {
		t.Errorf("Search(abs() = %v, want only the literal match", got)
	}
	for _, e := range Take(idx.Search("ABS("), 0) {
		if !strings.HasPrefix(strings.ToLower(e.Key), "abs(") {
			t.Errorf("Search(ABS() yielded %q", e.Key)
		}
	}

	// A table whose keys all fit the generated alphabet is read as slugs.
	idx, err = Load([]byte(`[["abs_28x", ["abs_28x", ["x.html", 1, "std"]]]]`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := keysOf(Take(idx.Search("abs("), 0)); !slices.Equal(got, []string{"abs_28x"}) {
		t.Errorf("Search(abs() over slug-shaped keys = %v", got)
	}
}

func TestLookupEveryEntry(t *testing.T) {
	idx := loadFixture(t)
	n := 0
	for e := range idx.Entries() {
		got, ok := idx.Lookup(e.Key)
		if !ok {
			t.Fatalf("Lookup(%q) not found", e.Key)
		}
		if !reflect.DeepEqual(got, e) {
			t.Errorf("Lookup(%q) = %+v, want %+v", e.Key, got, e)
		}
		n++
	}
	if n != idx.Len() {
		t.Errorf("Entries yielded %d, Len() = %d", n, idx.Len())
	}
	if _, ok := idx.Lookup("ABS_2263"); ok {
		t.Error("Lookup must be exact")
	}
}

func TestLookupReturnsCopy(t *testing.T) {
	idx := loadFixture(t)
	e, _ := idx.Lookup("abort_2262")
	e.Targets[0].URL = "mutated"

	again, _ := idx.Lookup("abort_2262")
	if again.Targets[0].URL == "mutated" {
		t.Fatal("caller mutation leaked into the index")
	}
}

func TestLoadIllustrativeShape(t *testing.T) {
	payload := `[
		["abs", ["abs", [["../namespacecnl.html#abs", "cnl"]]]],
		["abs(float)", ["abs(float)", [["fabs.html", "std"]]]],
		["abs(int)", ["abs(int)", [["abs.html", "std"], ["abs2.html", "std::chrono"]]]],
		["acos", ["acos", [["acos.html", "std"]]]]
	]`
	idx, err := Load([]byte(payload))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	got := keysOf(Take(idx.Search("abs"), 0))
	want := []string{"abs", "abs(float)", "abs(int)"}
	if !slices.Equal(got, want) {
		t.Fatalf("Search(abs) = %v, want %v", got, want)
	}

	e, _ := idx.Lookup("abs(int)")
	if len(e.Targets) != 2 || e.Targets[1] != (Target{URL: "abs2.html", Scope: "std::chrono"}) {
		t.Errorf("targets = %+v", e.Targets)
	}
	if e.Targets[0].Parent {
		t.Error("two-field target must not set Parent")
	}
}

func TestLoadMalformedRecords(t *testing.T) {
	payload := `var searchData=
[
  ['ok_1',['ok',['ok.html',1,'std']]],
  ['notargets_2',['notargets']],
  ['emptytargets_3',['emptytargets',[]]],
  ['',['nokey',['x.html',1,'std']]],
  ['nolabel_5'],
  ['badtarget_6',['badtarget',['x.html']]],
  ['nourl_7',['nourl',['',1,'std']]],
  ['ok_1',['dup',['dup.html',1,'std']]],
  42,
  ['ok_9',['ok too',['ok9.html',0,'std']]]
];`

	t.Run("skip", func(t *testing.T) {
		idx, err := Load([]byte(payload), WithSource("bad.js"))
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if got := keysOf(Take(idx.Entries(), 0)); !slices.Equal(got, []string{"ok_1", "ok_9"}) {
			t.Fatalf("entries = %v", got)
		}

		warnings := idx.Warnings()
		if len(warnings) != 8 {
			t.Fatalf("got %d warnings, want 8: %v", len(warnings), warnings)
		}
		reasons := make([]string, len(warnings))
		for i, w := range warnings {
			var me *MalformedDataError
			if !errors.As(w, &me) {
				t.Fatalf("warning %d is %T, want *MalformedDataError", i, w)
			}
			if !errors.Is(w, ErrMalformedData) {
				t.Errorf("warning %d does not match ErrMalformedData", i)
			}
			if me.Source != "bad.js" {
				t.Errorf("warning %d source = %q", i, me.Source)
			}
			reasons[i] = me.Reason
		}
		want := []string{
			"no targets",
			"no targets",
			"missing key",
			"missing label",
			"target has 1 fields, want 2 or 3",
			"target is missing url",
			"duplicate key",
			"record is not an array",
		}
		if !slices.Equal(reasons, want) {
			t.Errorf("reasons = %q, want %q", reasons, want)
		}

		e, _ := idx.Lookup("ok_1")
		if e.Label != "ok" {
			t.Errorf("first occurrence must win, got label %q", e.Label)
		}
		e, _ = idx.Lookup("ok_9")
		if e.Targets[0].Parent {
			t.Error("flag 0 must not set Parent")
		}
	})

	t.Run("strict", func(t *testing.T) {
		_, err := Load([]byte(payload), WithStrict(true))
		var me *MalformedDataError
		if !errors.As(err, &me) {
			t.Fatalf("err = %v, want *MalformedDataError", err)
		}
		if me.Key != "notargets_2" || me.Index != 1 {
			t.Errorf("err = %+v", me)
		}
	})
}

func TestLoadUnparseablePayload(t *testing.T) {
	for _, payload := range []string{
		`{"not": "an array"}`,
		`var searchData=[['a_1',['a',['x.html',1,'std']]]`,
		`[['unterminated]`,
		`var searchData [];`,
	} {
		_, err := Load([]byte(payload))
		if err == nil {
			t.Errorf("Load(%q) succeeded", payload)
			continue
		}
		if errors.Is(err, ErrMalformedData) {
			t.Errorf("Load(%q) = %v, want a decode error", payload, err)
		}
	}
}

func TestLoadEmptyPayload(t *testing.T) {
	idx, err := Load([]byte("var searchData=\n[\n];\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if idx.Len() != 0 || len(Take(idx.Search("a"), 0)) != 0 {
		t.Error("expected an empty index")
	}
}

func TestLoadEscapes(t *testing.T) {
	payload := `var searchData=[['op_1',['operator\'s "quote" \\ \x41',['a.html',1,'std']]]];`
	idx, err := Load([]byte(payload))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	e, _ := idx.Lookup("op_1")
	if want := `operator's "quote" \ A`; e.Label != want {
		t.Errorf("Label = %q, want %q", e.Label, want)
	}

	_, err = Load([]byte(`var searchData=[['op_1',['bad \xZZ',['a.html',1,'std']]]];`))
	if err == nil || !strings.Contains(err.Error(), `bad \x escape at offset`) {
		t.Errorf("Load with bad \\x escape: err = %v", err)
	}
	if errors.Is(err, ErrMalformedData) {
		t.Error("a bad escape is a decode error, not a malformed record")
	}
}

func TestRoundTrip(t *testing.T) {
	idx := loadFixture(t)
	extra, err := Load([]byte(`[["q_1", ["it's \"odd\"\n", ["a\\b.html", 0, ""]]]]`))
	if err != nil {
		t.Fatalf("Load extra: %v", err)
	}
	idx, err = Merge([]*Index{idx, extra})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	want := Take(idx.Entries(), 0)

	t.Run("script", func(t *testing.T) {
		var buf bytes.Buffer
		if err := idx.Encode(&buf); err != nil {
			t.Fatalf("Encode: %v", err)
		}
		again, err := Load(buf.Bytes(), WithStrict(true))
		if err != nil {
			t.Fatalf("reload: %v", err)
		}
		if got := Take(again.Entries(), 0); !reflect.DeepEqual(got, want) {
			t.Error("script round trip changed the entry set")
		}
	})

	t.Run("json", func(t *testing.T) {
		data, err := json.Marshal(idx)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		again, err := Load(data, WithStrict(true))
		if err != nil {
			t.Fatalf("reload: %v", err)
		}
		if got := Take(again.Entries(), 0); !reflect.DeepEqual(got, want) {
			t.Error("json round trip changed the entry set")
		}
	})
}

func TestMerge(t *testing.T) {
	a, err := Load([]byte(`[["x_1",["x",["x.html",1,"std"]]],["y_2",["y",["y.html",1,"std"]]]]`), WithSource("a.js"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := Load([]byte(`[["bad"],["y_2",["y again",["y2.html",1,"std"]]],["z_3",["z",["z.html",1,"std"]]]]`), WithSource("b.js"))
	if err != nil {
		t.Fatal(err)
	}

	m, err := Merge([]*Index{a, b})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got := keysOf(Take(m.Entries(), 0)); !slices.Equal(got, []string{"x_1", "y_2", "z_3"}) {
		t.Errorf("entries = %v", got)
	}
	if e, _ := m.Lookup("y_2"); e.Label != "y" {
		t.Errorf("earlier index must win, got %q", e.Label)
	}

	w := m.Warnings()
	if len(w) != 2 {
		t.Fatalf("warnings = %v", w)
	}
	var me *MalformedDataError
	if !errors.As(w[1], &me) || me.Source != "b.js" || me.Reason != "duplicate key" {
		t.Fatalf("duplicate warning = %v", w[1])
	}
	if me.Index != 1 {
		t.Errorf("duplicate Index = %d, want the payload record position 1", me.Index)
	}

	if _, err := Merge([]*Index{a, b}, WithStrict(true)); !errors.Is(err, ErrMalformedData) {
		t.Errorf("strict Merge err = %v", err)
	}
}

func TestEncodeQuery(t *testing.T) {
	tests := map[string]string{
		"abs":        "abs",
		"ABS":        "abs",
		"abs(int)":   "abs_28int_29",
		"all_of":     "all_5fof",
		"operator+=": "operator_2b_3d",
		"a b":        "a_20b",
		"ä":          "ä",
	}
	for in, want := range tests {
		if got := EncodeQuery(in); got != want {
			t.Errorf("EncodeQuery(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestGroupByScope(t *testing.T) {
	targets := []Target{
		{URL: "1", Scope: "std::a"},
		{URL: "2", Scope: "std::b"},
		{URL: "3", Scope: "std::a"},
	}
	groups := GroupByScope(targets)
	if len(groups) != 2 {
		t.Fatalf("groups = %+v", groups)
	}
	if groups[0].Scope != "std::a" || len(groups[0].Targets) != 2 || groups[0].Targets[1].URL != "3" {
		t.Errorf("groups[0] = %+v", groups[0])
	}
	if groups[1].Scope != "std::b" || groups[1].Targets[0].URL != "2" {
		t.Errorf("groups[1] = %+v", groups[1])
	}
}
