package pipeline

import (
	"strings"

	"vehcat/internal"
)

const defaultNoteSection = "文档说明"

var noteTriggers = []struct {
	keyword string
	kind    internal.NoteKind
}{
	{"勘误", internal.NoteCorrection},
	{"更正", internal.NoteCorrection},
	{"修改", internal.NoteCorrection},
	{"关于", internal.NotePolicy},
	{"说明", internal.NoteRemark},
	{"符合", internal.NoteRemark},
	{"技术要求", internal.NoteRemark},
	{"自动转入", internal.NoteRemark},
	{"第二部分", internal.NoteRemark},
}

func noteKind(text string) (internal.NoteKind, bool) {
	for _, t := range noteTriggers {
		if strings.Contains(text, t.keyword) {
			return t.kind, true
		}
	}
	return "", false
}

// NoteCollector gathers narrative notes. A trigger paragraph opens a note and
// the following plain paragraphs extend it until Break is called.
type NoteCollector struct {
	notes []internal.Note
	open  *internal.Note
}

// Observe reports whether the paragraph was absorbed into a note.
func (c *NoteCollector) Observe(text, section string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		c.Break()
		return false
	}
	if section == "" {
		section = defaultNoteSection
	}
	if kind, ok := noteKind(text); ok {
		c.Break()
		c.open = &internal.Note{Kind: kind, Section: section, Content: text}
		return true
	}
	if c.open != nil {
		c.open.Content += " " + text
		return true
	}
	return false
}

// Break closes the open note, merging it into an earlier note of the same
// kind and section.
func (c *NoteCollector) Break() {
	if c.open == nil {
		return
	}
	note := *c.open
	c.open = nil
	note.Content = strings.Join(strings.Fields(note.Content), " ")
	for i := range c.notes {
		if c.notes[i].Kind == note.Kind && c.notes[i].Section == note.Section {
			c.notes[i].Content += " " + note.Content
			return
		}
	}
	c.notes = append(c.notes, note)
}

func (c *NoteCollector) Notes(batch string) []internal.Note {
	c.Break()
	out := make([]internal.Note, len(c.notes))
	for i, n := range c.notes {
		n.Batch = batch
		out[i] = n
	}
	return out
}
