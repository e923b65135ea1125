package pipeline

import (
	"regexp"
	"strings"
	"unicode"

	"vehcat/internal"
)

const (
	levelSection    = 1
	levelSubsection = 2
	levelNumbered   = 3
	levelItem       = 4
)

var (
	numberedHeading = regexp.MustCompile(`^[0-9]+[.．]`)
	itemHeading     = regexp.MustCompile(`^[（(]\s*[0-9０-９]`)
)

// OutlineNode is one entry of the document structure tree.
type OutlineNode struct {
	Kind     string            `json:"kind"`
	Title    string            `json:"title"`
	Level    int               `json:"level"`
	Meta     map[string]string `json:"meta,omitempty"`
	Children []*OutlineNode    `json:"children,omitempty"`
}

func (n *OutlineNode) add(child *OutlineNode) *OutlineNode {
	n.Children = append(n.Children, child)
	return child
}

// Walk visits the tree depth-first, root at depth 0.
func (n *OutlineNode) Walk(fn func(node *OutlineNode, depth int)) {
	var walk func(*OutlineNode, int)
	walk = func(node *OutlineNode, depth int) {
		fn(node, depth)
		for _, c := range node.Children {
			walk(c, depth+1)
		}
	}
	walk(n, 0)
}

// ContextTracker keeps the heading stack of the paragraph currently being
// scanned. Each frame has a matching outline node.
type ContextTracker struct {
	frames []internal.ContextFrame
	nodes  []*OutlineNode
	root   *OutlineNode
}

func NewContextTracker() *ContextTracker {
	return &ContextTracker{root: &OutlineNode{Kind: "document"}}
}

// Observe applies a paragraph to the stack. It reports whether the
// paragraph was a heading.
func (t *ContextTracker) Observe(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	switch {
	case strings.Contains(text, "节能型汽车"):
		t.popTo(0)
		t.push(internal.ContextFrame{Category: internal.CategoryEnergySaving, Title: text, Level: levelSection}, "section")
	case strings.Contains(text, "新能源汽车"):
		t.popTo(0)
		t.push(internal.ContextFrame{Category: internal.CategoryNewEnergy, Title: text, Level: levelSection}, "section")
	case strings.HasPrefix(text, "（") && !containsDigit(text):
		t.popTo(levelSection)
		parent := t.Current()
		t.push(internal.ContextFrame{Category: parent.Category, SubType: text, Title: text, Level: levelSubsection}, "subsection")
	case numberedHeading.MatchString(text):
		t.popTo(levelSubsection)
		t.pushInherited(text, levelNumbered, "numbered")
	case itemHeading.MatchString(text):
		t.popTo(levelNumbered)
		t.pushInherited(text, levelItem, "item")
	default:
		return false
	}
	return true
}

// Current returns the innermost frame, or the zero frame before any heading.
func (t *ContextTracker) Current() internal.ContextFrame {
	if len(t.frames) == 0 {
		return internal.ContextFrame{}
	}
	return t.frames[len(t.frames)-1]
}

func (t *ContextTracker) Depth() int {
	return len(t.frames)
}

// Path lists the frame titles from the outermost heading inwards.
func (t *ContextTracker) Path() []string {
	out := make([]string, 0, len(t.frames))
	for _, f := range t.frames {
		out = append(out, f.Title)
	}
	return out
}

// Section is the title of the level-1 frame, if any.
func (t *ContextTracker) Section() string {
	if len(t.frames) == 0 {
		return ""
	}
	return t.frames[0].Title
}

func (t *ContextTracker) Outline() *OutlineNode {
	return t.root
}

func (t *ContextTracker) SetBatch(id string) {
	t.root.add(&OutlineNode{Kind: "batch", Title: "第" + id + "批"})
}

// Attach hangs a leaf node (table, note) under the innermost heading.
func (t *ContextTracker) Attach(kind, title string, meta map[string]string) {
	parent := t.root
	if len(t.nodes) > 0 {
		parent = t.nodes[len(t.nodes)-1]
	}
	parent.add(&OutlineNode{Kind: kind, Title: title, Level: t.Current().Level + 1, Meta: meta})
}

func (t *ContextTracker) push(frame internal.ContextFrame, kind string) {
	parent := t.root
	if len(t.nodes) > 0 {
		parent = t.nodes[len(t.nodes)-1]
	}
	node := parent.add(&OutlineNode{Kind: kind, Title: frame.Title, Level: frame.Level})
	t.frames = append(t.frames, frame)
	t.nodes = append(t.nodes, node)
}

func (t *ContextTracker) pushInherited(title string, level int, kind string) {
	parent := t.Current()
	t.push(internal.ContextFrame{Category: parent.Category, SubType: parent.SubType, Title: title, Level: level}, kind)
}

// popTo removes every frame deeper than level.
func (t *ContextTracker) popTo(level int) {
	n := len(t.frames)
	for n > 0 && t.frames[n-1].Level > level {
		n--
	}
	t.frames = t.frames[:n]
	t.nodes = t.nodes[:n]
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
