package corpus

import (
	"bufio"
	"regexp"
	"strings"
)

var (
	inlineCode = regexp.MustCompile("`([^`\n]+)`")
	mdLink     = regexp.MustCompile(`!?\[([^\]]*)\]\([^)]*\)`)
	mdHeading  = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*#*\s*$`)
)

// splitMarkdown separates prose from code. Fenced blocks and inline code
// spans go to code; link targets are dropped from prose.
func splitMarkdown(md string) (prose, code string) {
	var p, c strings.Builder
	var fence string

	sc := bufio.NewScanner(strings.NewReader(md))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		trimmed := strings.TrimLeft(line, " ")

		if fence != "" {
			if strings.HasPrefix(trimmed, fence) {
				fence = ""
				continue
			}
			c.WriteString(line)
			c.WriteByte('\n')
			continue
		}
		if f := fenceMarker(trimmed); f != "" && len(line)-len(trimmed) < 4 {
			fence = f
			continue
		}

		for _, m := range inlineCode.FindAllStringSubmatch(line, -1) {
			c.WriteString(m[1])
			c.WriteByte('\n')
		}
		line = inlineCode.ReplaceAllString(line, " ")
		line = mdLink.ReplaceAllString(line, "$1")
		p.WriteString(line)
		p.WriteByte('\n')
	}
	return p.String(), c.String()
}

func fenceMarker(line string) string {
	for _, f := range []string{"```", "~~~"} {
		if strings.HasPrefix(line, f) {
			return f
		}
	}
	return ""
}

// firstHeading returns the text of the first ATX heading in md.
func firstHeading(md string) string {
	for _, line := range strings.Split(md, "\n") {
		if m := mdHeading.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			return m[1]
		}
	}
	return ""
}
