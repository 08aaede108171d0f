package process

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/core-tools/hsu-watchdog/pkg/errors"
)

// WQL property names used in WHERE clauses. Only these identifiers ever reach query text.
const (
	wqlExecutablePath = "ExecutablePath"
	wqlName           = "Name"
	wqlProcessHandle  = "ProcessHandle"
)

// quoteWQLString renders s as a single-quoted WQL string literal
func quoteWQLString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// processWhere renders the WHERE clause selecting Win32_Process rows for a filter
func processWhere(filter Filter) (string, error) {
	switch {
	case filter.ExecutablePath != "":
		if err := ValidatePath(filter.ExecutablePath); err != nil {
			return "", err
		}
		return fmt.Sprintf("WHERE %s = %s", wqlExecutablePath, quoteWQLString(filter.ExecutablePath)), nil
	case filter.Name != "":
		if err := ValidateName(filter.Name); err != nil {
			return "", err
		}
		return fmt.Sprintf("WHERE %s = %s", wqlName, quoteWQLString(filter.Name)), nil
	default:
		return "", errors.NewInvalidArgumentError("filter", "must set executable path or name")
	}
}

// threadWhere renders the WHERE clause selecting Win32_Thread rows of a process
func threadWhere(handle Handle) (string, error) {
	if err := ValidateHandle(handle); err != nil {
		return "", err
	}
	return fmt.Sprintf("WHERE %s = %s", wqlProcessHandle, quoteWQLString(strconv.FormatInt(int64(handle.PID), 10))), nil
}

// parseThreadID converts the Win32_Thread Handle column, a decimal string, into a thread id
func parseThreadID(handle string) (int32, error) {
	tid, err := strconv.ParseInt(strings.TrimSpace(handle), 10, 32)
	if err != nil {
		return 0, errors.NewProcessError("malformed Win32_Thread handle", err).WithContext("handle", handle)
	}
	return int32(tid), nil
}
