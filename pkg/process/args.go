package process

import (
	"runtime"
	"strings"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
)

// SplitArgs splits an argument string with the quoting rules of the local platform
func SplitArgs(s string) ([]string, error) {
	return splitArgs(s, runtime.GOOS != "windows")
}

// SplitWindowsArgs splits with Windows rules: backslashes and single quotes are literal,
// double quotes group words.
func SplitWindowsArgs(s string) ([]string, error) {
	return splitArgs(s, false)
}

// splitArgs separates words on whitespace. With posix set it follows shell quoting:
// single quotes are literal, double quotes allow backslash escapes, a bare backslash escapes.
func splitArgs(s string, posix bool) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range s {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case quote == '"':
			switch {
			case r == '"':
				quote = 0
			case r == '\\' && posix:
				escaped = true
			default:
				current.WriteRune(r)
			}
		case r == '\\' && posix:
			escaped = true
			inWord = true
		case r == '"' || (r == '\'' && posix):
			quote = r
			inWord = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			if inWord {
				args = append(args, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if escaped || quote != 0 {
		return nil, errors.NewInvalidArgumentError("args", "has an unterminated quote or escape")
	}
	if inWord {
		args = append(args, current.String())
	}
	return args, nil
}

// RawCommandLine appends an argument string verbatim to the quoted executable path
func RawCommandLine(path string, args *string) string {
	commandLine := quoteWindowsArg(path)
	if args != nil {
		if trimmed := strings.TrimSpace(*args); trimmed != "" {
			commandLine += " " + trimmed
		}
	}
	return commandLine
}

// quoteWindowsArg quotes one element with the rules CommandLineToArgvW expects
func quoteWindowsArg(arg string) string {
	if arg == "" {
		return `""`
	}
	if !strings.ContainsAny(arg, " \t\n\v\"") {
		return arg
	}

	var b strings.Builder
	b.WriteByte('"')
	backslashes := 0
	for i := 0; i < len(arg); i++ {
		c := arg[i]
		switch c {
		case '\\':
			backslashes++
		case '"':
			b.WriteString(strings.Repeat(`\`, backslashes*2+1))
			b.WriteByte('"')
			backslashes = 0
		default:
			b.WriteString(strings.Repeat(`\`, backslashes))
			b.WriteByte(c)
			backslashes = 0
		}
	}
	b.WriteString(strings.Repeat(`\`, backslashes*2))
	b.WriteByte('"')
	return b.String()
}
