package glob

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		text    string
		want    bool
	}{
		{name: "suffix wildcard", pattern: "*.txt", text: "file.txt", want: true},
		{name: "suffix wildcard other name", pattern: "*.txt", text: "document.txt", want: true},
		{name: "suffix wildcard wrong ext", pattern: "*.txt", text: "file.rs", want: false},
		{name: "suffix wildcard trailing bytes", pattern: "*.txt", text: "file.txt.bak", want: false},
		{name: "prefix literal", pattern: "file.*", text: "file.rs", want: true},
		{name: "prefix literal mismatch", pattern: "file.*", text: "myfile.txt", want: false},
		{name: "middle wildcard empty", pattern: "file*.txt", text: "file.txt", want: true},
		{name: "middle wildcard", pattern: "file*.txt", text: "file_name.txt", want: true},
		{name: "question mark", pattern: "file?.dat", text: "file1.dat", want: true},
		{name: "question mark too long", pattern: "file?.dat", text: "file12.dat", want: false},
		{name: "question mark too short", pattern: "file?.dat", text: "file.dat", want: false},
		{name: "question mark not slash", pattern: "a?b", text: "a/b", want: false},
		{name: "double star nested", pattern: "**/*.rs", text: "src/main.rs", want: true},
		{name: "double star deep", pattern: "**/*.rs", text: "src/lib/mod.rs", want: true},
		{name: "double star top level", pattern: "**/*.rs", text: "main.rs", want: true},
		{name: "double star wrong ext", pattern: "**/*.rs", text: "src/main.txt", want: false},
		{name: "star stays in segment", pattern: "src/*", text: "src/main.rs", want: true},
		{name: "star does not cross slash", pattern: "src/*", text: "src/lib/mod.rs", want: false},
		{name: "directory double star", pattern: "src/**", text: "src/a/b/c/d.rs", want: true},
		{name: "directory double star other root", pattern: "src/**", text: "test/main.rs", want: false},
		{name: "double star in middle", pattern: "src/**/mod.rs", text: "src/lib/deep/mod.rs", want: true},
		{name: "double star in middle zero dirs", pattern: "src/**/mod.rs", text: "src/mod.rs", want: true},
		{name: "exact", pattern: "file.txt", text: "file.txt", want: true},
		{name: "exact mismatch", pattern: "file.txt", text: "other.txt", want: false},
		{name: "empty pattern empty text", pattern: "", text: "", want: true},
		{name: "empty pattern", pattern: "", text: "file.txt", want: false},
		{name: "lone star", pattern: "*", text: "anything", want: true},
		{name: "lone star empty", pattern: "*", text: "", want: true},
		{name: "lone star with slash", pattern: "*", text: "path/file.txt", want: false},
		{name: "lone double star", pattern: "**", text: "a/b/c/d/e.txt", want: true},
		{name: "multiple stars", pattern: "*a*b*", text: "xxaxxbxx", want: true},
		{name: "multiple stars mismatch", pattern: "*a*b*", text: "xxbxxaxx", want: false},
		{name: "case sensitive", pattern: "*.TXT", text: "file.txt", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Match(tt.pattern, tt.text))
		})
	}
}

func TestMatchStarNeverCrossesSlash(t *testing.T) {
	t.Parallel()

	names := []string{"a/b", "x/y/z", "/", "dir/", "/abs"}
	for _, name := range names {
		assert.False(t, Match("*", name), name)
		assert.True(t, Match("**", name), name)
	}
}
