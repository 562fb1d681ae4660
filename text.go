package mdinline

import "strings"

// Run is a stretch of text sharing one attribute set.
type Run struct {
	Text       string
	Attributes Attributes
}

// StyledText is an append-only sequence of runs. Adjacent runs with equal
// attributes are coalesced and empty runs are dropped.
type StyledText struct {
	runs []Run
}

// Append adds s styled with attrs.
func (t *StyledText) Append(s string, attrs Attributes) {
	if s == "" {
		return
	}
	if n := len(t.runs); n > 0 && t.runs[n-1].Attributes.Equal(attrs) {
		t.runs[n-1].Text += s
		return
	}
	t.runs = append(t.runs, Run{Text: s, Attributes: attrs})
}

// AppendText appends every run of other.
func (t *StyledText) AppendText(other StyledText) {
	for _, r := range other.runs {
		t.Append(r.Text, r.Attributes)
	}
}

// Runs returns a copy of the runs.
func (t StyledText) Runs() []Run {
	out := make([]Run, len(t.runs))
	copy(out, t.runs)
	return out
}

// String returns the unstyled content.
func (t StyledText) String() string {
	var sb strings.Builder
	for _, r := range t.runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// Len is the content length in bytes.
func (t StyledText) Len() int {
	n := 0
	for _, r := range t.runs {
		n += len(r.Text)
	}
	return n
}

func (t StyledText) IsEmpty() bool { return len(t.runs) == 0 }

// ResolveFonts binds every run to a face from fonts.
func (t StyledText) ResolveFonts(fonts Fonts) StyledText {
	var out StyledText
	for _, r := range t.runs {
		out.Append(r.Text, r.Attributes.ResolveFonts(fonts))
	}
	return out
}
