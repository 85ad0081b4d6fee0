package docs

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

type frontMatter struct {
	ID              string   `yaml:"id"`
	Title           string   `yaml:"title"`
	Description     string   `yaml:"description"`
	SidebarLabel    string   `yaml:"sidebar_label"`
	SidebarPosition *float64 `yaml:"sidebar_position"`
	Slug            string   `yaml:"slug"`
}

var fmDelim = []byte("---")

// splitFrontMatter separates a leading YAML block delimited by "---" lines
// from the markdown body. Files without front matter return a zero value.
func splitFrontMatter(src []byte) (frontMatter, []byte, error) {
	var fm frontMatter

	src = bytes.TrimPrefix(src, []byte("\xef\xbb\xbf"))
	if !bytes.HasPrefix(src, fmDelim) {
		return fm, src, nil
	}
	firstLine := bytes.IndexByte(src, '\n')
	if firstLine < 0 || len(bytes.TrimSpace(src[:firstLine])) != len(fmDelim) {
		return fm, src, nil
	}

	rest := src[firstLine+1:]
	end := -1
	offset := 0
	for offset <= len(rest) {
		nl := bytes.IndexByte(rest[offset:], '\n')
		var line []byte
		if nl < 0 {
			line = rest[offset:]
		} else {
			line = rest[offset : offset+nl]
		}
		if bytes.Equal(bytes.TrimRight(line, " \r"), fmDelim) {
			end = offset
			break
		}
		if nl < 0 {
			break
		}
		offset += nl + 1
	}
	if end < 0 {
		return fm, nil, fmt.Errorf("front matter is not terminated")
	}

	if err := yaml.Unmarshal(rest[:end], &fm); err != nil {
		return fm, nil, fmt.Errorf("failed to parse front matter: %w", err)
	}

	body := rest[end+len(fmDelim):]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}
	return fm, body, nil
}
