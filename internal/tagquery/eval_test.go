package tagquery

import (
	"sync"
	"testing"
)

func mustParse(t *testing.T, query string) Expr {
	t.Helper()
	expr, err := Parse(query)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", query, err)
	}
	return expr
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name  string
		query string
		tags  map[string]string
		want  bool
	}{
		{"presence hit", "t", map[string]string{"t": "x"}, true},
		{"presence miss", "t", map[string]string{}, false},
		{"presence other key", "t", map[string]string{"u": "x"}, false},
		{"not present", "not t", map[string]string{}, true},
		{"not with value", "not t", map[string]string{"t": "x"}, false},

		{"regex equality hit", "tagA = 'abc'", map[string]string{"tagA": "abc"}, true},
		{"regex equality miss", "tagA = 'abc'", map[string]string{"tagA": "abcd"}, false},
		{"regex wildcard", "tagA = 'value.*'", map[string]string{"tagA": "value42"}, true},
		{"match-any regex", "tagA = '*'", map[string]string{"tagA": "anything"}, true},
		{"match-any requires presence", "tagA = '*'", map[string]string{}, false},

		{"inequality hit", "tagA != 'abc'", map[string]string{"tagA": "xyz"}, true},
		{"inequality miss", "tagA != 'abc'", map[string]string{"tagA": "abc"}, false},
		{"inequality requires presence", "tagA != 'abc'", map[string]string{}, false},

		{"literal equality", "tagA = abc", map[string]string{"tagA": "abc"}, true},
		{"literal is exact", "tagA = abc", map[string]string{"tagA": "abcd"}, false},
		{"quoted dot is a regex", "tagA = 'a.c'", map[string]string{"tagA": "abc"}, true},

		{"in hit", "tagA IN [abc, def]", map[string]string{"tagA": "def"}, true},
		{"in miss", "tagA IN [abc, def]", map[string]string{"tagA": "ghi"}, false},
		{"not in hit", "tagA NOT IN [abc, def]", map[string]string{"tagA": "ghi"}, true},
		{"not in requires presence", "tagA NOT IN [abc, def]", map[string]string{}, false},

		{"and both", "tagA and tagB", map[string]string{"tagA": "1", "tagB": "2"}, true},
		{"and one", "tagA and tagB", map[string]string{"tagA": "1"}, false},
		{"or one", "tagA or tagB", map[string]string{"tagB": "2"}, true},
		{"or neither", "tagA or tagB", map[string]string{"tagC": "3"}, false},

		{"mixed fold still matches", "tagA and not tagB or tagC", map[string]string{"tagC": "1"}, true},
		{"mixed fold and branch", "tagA and not tagB or tagC", map[string]string{"tagA": "1"}, true},
		{"mixed fold excluded", "tagA and not tagB or tagC", map[string]string{"tagA": "1", "tagB": "2"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr := mustParse(t, tt.query)
			if got := expr.Matches(tt.tags); got != tt.want {
				t.Errorf("Matches(%q, %v) = %v, want %v", tt.query, tt.tags, got, tt.want)
			}
		})
	}
}

// Negation must invert the inner expression for every tag map.
func TestMatches_NotInverts(t *testing.T) {
	inner := []string{"t", "t = 'a.*'", "t != x", "t and u", "t or u"}
	tagMaps := []map[string]string{
		{},
		{"t": "abc"},
		{"t": "x"},
		{"t": "abc", "u": "1"},
		{"u": "1"},
	}
	for _, q := range inner {
		plain := mustParse(t, q)
		negated := mustParse(t, "not ("+q+")")
		for _, tags := range tagMaps {
			if plain.Matches(tags) == negated.Matches(tags) {
				t.Errorf("not (%s) did not invert for tags %v", q, tags)
			}
		}
	}
}

// A compiled expression is immutable; concurrent evaluation must be safe.
func TestMatches_Concurrent(t *testing.T) {
	expr := mustParse(t, "tagA = 'value.*' and not tagB or tagC")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				expr.Matches(map[string]string{"tagA": "value1"})
				expr.Matches(map[string]string{"tagB": "x"})
				expr.Matches(map[string]string{"tagC": "y", "tagA": "nope"})
			}
		}()
	}
	wg.Wait()
}
