package mdinline

import (
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// WriteANSI writes t to w using terminal escape sequences for profile.
// Links become OSC 8 hyperlinks. The Ascii profile writes plain text.
func WriteANSI(w io.Writer, t StyledText, profile termenv.Profile) error {
	if profile == termenv.Ascii {
		_, err := io.WriteString(w, t.String())
		return err
	}
	var sb strings.Builder
	for _, r := range t.runs {
		// style each line separately so escapes never span a newline
		lines := strings.Split(r.Text, "\n")
		for i, ln := range lines {
			if ln != "" {
				sb.WriteString(styleRun(ln, r.Attributes, profile))
			}
			if i < len(lines)-1 {
				sb.WriteByte('\n')
			}
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func styleRun(s string, a Attributes, profile termenv.Profile) string {
	style := profile.String(s)
	props := a.fontProperties()
	if props.Bold() {
		style = style.Bold()
	}
	if props.Slant == SlantItalic {
		style = style.Italic()
	}
	if a.UnderlineStyle != nil && *a.UnderlineStyle != LineNone {
		style = style.Underline()
	}
	if a.StrikethroughStyle != nil && *a.StrikethroughStyle != LineNone {
		style = style.CrossOut()
	}
	if a.ForegroundColor != nil {
		style = style.Foreground(profile.FromColor(a.ForegroundColor))
	}
	if a.BackgroundColor != nil {
		style = style.Background(profile.FromColor(a.BackgroundColor))
	}
	out := style.String()
	if a.Link != nil {
		out = termenv.Hyperlink(a.Link.String(), out)
	}
	return out
}
