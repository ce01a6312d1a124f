// Package glob implements the Redis-style glob patterns used by KEYS and PSUBSCRIBE.
package glob

// Match reports whether s matches pattern. Supported syntax is
// '*', '?', '[abc]', '[^a-z]' and '\' escapes. A malformed class
// only matches the pattern text itself
func Match(pattern, s string) bool {
	return match(pattern, s)
}

// match is a backtracking matcher; unlike path.Match, '*' crosses '/'
func match(pattern, s string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			for len(pattern) > 0 && pattern[0] == '*' {
				pattern = pattern[1:]
			}
			if len(pattern) == 0 {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if match(pattern, s[i:]) {
					return true
				}
			}
			return false

		case '?':
			if len(s) == 0 {
				return false
			}
			pattern, s = pattern[1:], s[1:]

		case '[':
			if len(s) == 0 {
				return false
			}
			end, ok := classEnd(pattern)
			if !ok {
				return pattern == s
			}
			if !matchClass(pattern[1:end], s[0]) {
				return false
			}
			pattern, s = pattern[end+1:], s[1:]

		case '\\':
			if len(pattern) > 1 {
				pattern = pattern[1:]
			}
			fallthrough

		default:
			if len(s) == 0 || pattern[0] != s[0] {
				return false
			}
			pattern, s = pattern[1:], s[1:]
		}
	}
	return len(s) == 0
}

func classEnd(pattern string) (int, bool) {
	for i := 1; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\':
			i++
		case ']':
			if i > 1 {
				return i, true
			}
		}
	}
	return 0, false
}

func matchClass(class string, c byte) bool {
	negate := false
	if len(class) > 0 && class[0] == '^' {
		negate = true
		class = class[1:]
	}

	found := false
	for i := 0; i < len(class); i++ {
		lo := class[i]
		if lo == '\\' && i+1 < len(class) {
			i++
			lo = class[i]
		}
		hi := lo
		if i+2 < len(class) && class[i+1] == '-' {
			hi = class[i+2]
			i += 2
		}
		if lo <= c && c <= hi {
			found = true
		}
	}
	return found != negate
}
