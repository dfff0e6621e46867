package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		include         []string
		exclude         []string
		caseInsensitive bool
		entry           string
		want            bool
	}{
		{name: "no patterns", entry: "any/thing.bin", want: true},
		{name: "include hit", include: []string{"*.txt"}, entry: "test.txt", want: true},
		{name: "include miss", include: []string{"*.txt"}, entry: "test.rs", want: false},
		{name: "second include hit", include: []string{"*.md", "*.txt"}, entry: "a.txt", want: true},
		{name: "exclude only", exclude: []string{"*.log"}, entry: "debug.log", want: false},
		{name: "exclude only passes others", exclude: []string{"*.log"}, entry: "main.go", want: true},
		{
			name:    "exclude beats include",
			include: []string{"**"},
			exclude: []string{"subdir/*"},
			entry:   "subdir/nested.txt",
			want:    false,
		},
		{
			name:    "include star does not reach subdir",
			include: []string{"*.txt"},
			exclude: []string{"subdir/*"},
			entry:   "subdir/nested.txt",
			want:    false,
		},
		{name: "case sensitive miss", include: []string{"*.TXT"}, entry: "a.txt", want: false},
		{name: "case insensitive hit", include: []string{"*.TXT"}, caseInsensitive: true, entry: "A.txt", want: true},
		{name: "case insensitive exclude", exclude: []string{"README*"}, caseInsensitive: true, entry: "readme.md", want: false},
		{name: "non ascii untouched", include: []string{"ÄB*"}, caseInsensitive: true, entry: "Äbc", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := New(tt.include, tt.exclude, tt.caseInsensitive)
			assert.Equal(t, tt.want, f.Match(tt.entry))
		})
	}
}

func TestFilterExcludeDominates(t *testing.T) {
	t.Parallel()

	names := []string{"a.txt", "dir/b.txt", "dir/sub/c.txt", "d"}
	includes := [][]string{nil, {"**"}, {"*"}, {"dir/**"}}
	for _, name := range names {
		for _, inc := range includes {
			f := New(inc, []string{"**"}, false)
			assert.False(t, f.Match(name), "include=%v name=%s", inc, name)
		}
	}
}

func TestFilterEmpty(t *testing.T) {
	t.Parallel()

	var nilFilter *Filter
	assert.True(t, nilFilter.Empty())
	assert.True(t, nilFilter.Match("x"))
	assert.True(t, New(nil, nil, true).Empty())
	assert.False(t, New([]string{"*"}, nil, false).Empty())
}

func TestASCIILower(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc/def.txt", asciiLower("ABC/Def.TXT"))
	assert.Equal(t, "already", asciiLower("already"))
	assert.Equal(t, "Äb", asciiLower("ÄB"))
}
