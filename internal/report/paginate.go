package report

import (
	"strings"
	"unicode/utf8"
)

// Wrap breaks text into lines of at most width runes, splitting on spaces.
// Words longer than width are hard split.
func Wrap(text string, width int) []string {
	if width <= 0 {
		return []string{text}
	}

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}

		var line strings.Builder
		lineLen := 0
		flush := func() {
			lines = append(lines, line.String())
			line.Reset()
			lineLen = 0
		}

		for _, word := range words {
			for utf8.RuneCountInString(word) > width {
				if lineLen > 0 {
					flush()
				}
				r := []rune(word)
				lines = append(lines, string(r[:width]))
				word = string(r[width:])
			}
			n := utf8.RuneCountInString(word)
			if n == 0 {
				continue
			}
			if lineLen > 0 && lineLen+1+n > width {
				flush()
			}
			if lineLen > 0 {
				line.WriteByte(' ')
				lineLen++
			}
			line.WriteString(word)
			lineLen += n
		}
		if lineLen > 0 {
			flush()
		}
	}
	return lines
}

// Paginate lays the blocks out as pages of at most linesPerPage lines, each at
// most width runes wide
func Paginate(blocks []Block, width, linesPerPage int) [][]string {
	if linesPerPage <= 0 {
		linesPerPage = 1
	}

	var pages [][]string
	page := make([]string, 0, linesPerPage)
	emit := func(line string) {
		if len(page) == linesPerPage {
			pages = append(pages, page)
			page = make([]string, 0, linesPerPage)
		}
		page = append(page, line)
	}

	for _, b := range blocks {
		switch b.Style {
		case StyleSpacer:
			if len(page) > 0 {
				emit("")
			}
		case StyleTitle, StyleHeading:
			text := strings.ToUpper(b.Text)
			for _, l := range Wrap(text, width) {
				emit(l)
			}
		default:
			for _, l := range Wrap(b.Text, width) {
				emit(l)
			}
		}
	}
	if len(page) > 0 || len(pages) == 0 {
		pages = append(pages, page)
	}
	return pages
}
