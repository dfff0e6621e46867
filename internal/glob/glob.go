// Package glob implements the path-aware wildcard matching used to select
// archive entries.
//
// Supported operators:
//
//   - '?' matches exactly one byte other than '/'
//   - '*' matches zero or more bytes, none of which may be '/'
//   - '**' matches zero or more bytes including '/'; a single '/' directly
//     after it is optional, so "**/*.go" also matches "main.go"
//
// Every other byte matches itself. Matching is byte-wise and case-sensitive;
// callers that need case folding lower-case both arguments first.
package glob

// Match reports whether text matches pattern.
func Match(pattern, text string) bool {
	var (
		px, tx int
		// Backtrack point for the most recent single '*'. starTx is the
		// text position the star will resume from; zero means no star seen.
		starPx, starTx int
	)

	for px < len(pattern) || tx < len(text) {
		if px < len(pattern) {
			switch c := pattern[px]; c {
			case '*':
				if px+1 < len(pattern) && pattern[px+1] == '*' {
					rest := px + 2
					if rest < len(pattern) && pattern[rest] == '/' {
						rest++
					}
					if rest == len(pattern) {
						return true
					}
					for i := tx; i <= len(text); i++ {
						if Match(pattern[rest:], text[i:]) {
							return true
						}
					}
					// Fall through to the enclosing star, if any.
					break
				}
				starPx = px
				starTx = tx + 1
				px++
				continue
			case '?':
				if tx < len(text) && text[tx] != '/' {
					px++
					tx++
					continue
				}
			default:
				if tx < len(text) && text[tx] == c {
					px++
					tx++
					continue
				}
			}
		}

		if starTx > 0 && starTx <= len(text) {
			// The star would have to swallow text[starTx-1].
			if text[starTx-1] == '/' {
				return false
			}
			px = starPx + 1
			tx = starTx
			starTx++
			continue
		}
		return false
	}
	return true
}
