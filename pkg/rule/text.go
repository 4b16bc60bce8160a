package rule

import (
	"fmt"
	"io/fs"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// ReadText reads name from fsys as UTF-8 text. A leading byte order mark is
// removed and line endings are normalized to "\n". Content that is not valid
// UTF-8 returns [ErrNotText].
func ReadText(fsys fs.FS, name string) (string, error) {
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}

	if !utf8.Valid(b) {
		return "", fmt.Errorf("read %s: %w", name, ErrNotText)
	}

	s, err := unicode.UTF8BOM.NewDecoder().String(string(b))
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}

	return newlines.Replace(s), nil
}
