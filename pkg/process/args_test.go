package process

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitArgs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", nil},
		{"spaces only", "   ", nil},
		{"simple", "--port 8080", []string{"--port", "8080"}},
		{"double quoted", `--name "my app"`, []string{"--name", "my app"}},
		{"single quoted", `--expr 'a "b" c'`, []string{"--expr", `a "b" c`}},
		{"escaped space", `one\ two three`, []string{"one two", "three"}},
		{"escaped quote in double", `"say \"hi\""`, []string{`say "hi"`}},
		{"empty quoted arg", `a "" b`, []string{"a", "", "b"}},
		{"adjacent quotes", `--x="a b"c`, []string{"--x=a bc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := splitArgs(tt.input, true)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, args)
		})
	}
}

func TestSplitWindowsArgs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", nil},
		{"windows paths", `--data-dir C:\ProgramData\app --log D:\logs\app.log`,
			[]string{"--data-dir", `C:\ProgramData\app`, "--log", `D:\logs\app.log`}},
		{"quoted path with spaces", `--root "C:\Program Files\app"`, []string{"--root", `C:\Program Files\app`}},
		{"unc path", `\\server\share\file`, []string{`\\server\share\file`}},
		{"single quotes are literal", `--name 'my app'`, []string{"--name", "'my", "app'"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := SplitWindowsArgs(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, args)
		})
	}
}

func TestSplitArgs_FollowsPlatform(t *testing.T) {
	args, err := SplitArgs(`--data-dir C:\ProgramData\app`)
	require.NoError(t, err)
	if runtime.GOOS == "windows" {
		assert.Equal(t, []string{"--data-dir", `C:\ProgramData\app`}, args)
	} else {
		assert.Equal(t, []string{"--data-dir", "C:ProgramDataapp"}, args)
	}
}

func TestRawCommandLine(t *testing.T) {
	args := `--data-dir C:\ProgramData\app --log D:\logs\app.log`
	assert.Equal(t, `C:\app\app.exe --data-dir C:\ProgramData\app --log D:\logs\app.log`,
		RawCommandLine(`C:\app\app.exe`, &args))

	blank := "   "
	assert.Equal(t, `"C:\Program Files\app.exe"`, RawCommandLine(`C:\Program Files\app.exe`, &blank))
	assert.Equal(t, `C:\app\app.exe`, RawCommandLine(`C:\app\app.exe`, nil))
}

func TestSplitArgs_Unterminated(t *testing.T) {
	for _, input := range []string{`"open`, `'open`, `trailing\`} {
		_, err := splitArgs(input, true)
		assert.Error(t, err, input)
	}
}

func TestQuoteWindowsArg(t *testing.T) {
	assert.Equal(t, `C:\app\app.exe`, quoteWindowsArg(`C:\app\app.exe`))
	assert.Equal(t, `"C:\Program Files\app.exe"`, quoteWindowsArg(`C:\Program Files\app.exe`))
	assert.Equal(t, `"say \"hi\""`, quoteWindowsArg(`say "hi"`))
	assert.Equal(t, `""`, quoteWindowsArg(""))
	assert.Equal(t, `"C:\dir with space\\"`, quoteWindowsArg(`C:\dir with space\`))
}
