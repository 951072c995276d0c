package probe

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// sniffDelimiter picks the most plausible field separator by counting
// candidates over the first few lines. Falls back to comma when nothing
// stands out, mirroring a default Excel-style dialect.
func sniffDelimiter(lines []string) rune {
	if len(lines) > 10 {
		lines = lines[:10]
	}
	best := ','
	bestCount := 0
	for _, cand := range []rune{',', ';', '\t', '|'} {
		count := 0
		for _, line := range lines {
			count += strings.Count(line, string(cand))
		}
		if count > bestCount {
			bestCount = count
			best = cand
		}
	}
	return best
}

// checkCSV verifies that the sample reads as CSV: lossy UTF-8 decode,
// at most maxLines leading lines, sniffed delimiter, two rows readable.
// Schema is not enforced, only readability.
func checkCSV(sample []byte, maxLines int) (bool, *string) {
	decoded, _, err := transform.Bytes(unicode.UTF8.NewDecoder(), sample)
	if err != nil {
		return false, errString(err.Error())
	}

	lines := splitLines(string(decoded))
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	nonEmpty := false
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			nonEmpty = true
			break
		}
	}
	if !nonEmpty {
		return false, errString("empty sample")
	}

	reader := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	reader.Comma = sniffDelimiter(lines)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	for range 2 {
		if _, err := reader.Read(); err != nil {
			if err == io.EOF {
				break
			}
			return false, errString(err.Error())
		}
	}
	return true, nil
}

// checkJSON verifies that the sample is strictly valid UTF-8 and parses
// as a complete JSON document.
func checkJSON(sample []byte) (bool, *string) {
	if !utf8.Valid(sample) {
		return false, errString("invalid utf-8")
	}
	if !json.Valid(sample) {
		return false, errString("invalid json")
	}
	return true, nil
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	// Drop a single trailing empty line from a final newline.
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

func errString(msg string) *string {
	return &msg
}
