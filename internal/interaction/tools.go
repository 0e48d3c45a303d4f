package interaction

import "github.com/bryanchriswhite/focusshot/internal/annotate"

// Tool is the active editor tool. Digit keys 1-8 select them in order.
type Tool int

const (
	ToolRectangle Tool = iota + 1
	ToolEllipse
	ToolArrow
	ToolText
	ToolFreehand
	ToolMosaic
	ToolBlur
	ToolCrop
)

// DefaultTool is selected at the start of every session.
const DefaultTool = ToolRectangle

var toolKinds = map[Tool]annotate.Kind{
	ToolRectangle: annotate.Rectangle,
	ToolEllipse:   annotate.Ellipse,
	ToolArrow:     annotate.Arrow,
	ToolText:      annotate.Text,
	ToolFreehand:  annotate.FreehandStroke,
	ToolMosaic:    annotate.MosaicPreview,
	ToolBlur:      annotate.BlurPreview,
	ToolCrop:      annotate.CropGuide,
}

// Kind is the annotation kind the tool produces.
func (t Tool) Kind() annotate.Kind {
	return toolKinds[t]
}

func (t Tool) String() string {
	if k, ok := toolKinds[t]; ok {
		return k.String()
	}
	return "unknown"
}

// Valid reports whether t names a tool.
func (t Tool) Valid() bool {
	_, ok := toolKinds[t]
	return ok
}

// ToolForDigit maps '1'..'8' to a tool.
func ToolForDigit(r rune) (Tool, bool) {
	if r < '1' || r > '8' {
		return 0, false
	}
	return Tool(r - '0'), true
}

// ParseTool accepts a tool name or its digit.
func ParseTool(s string) (Tool, bool) {
	if len(s) == 1 {
		if t, ok := ToolForDigit(rune(s[0])); ok {
			return t, true
		}
	}
	for t := ToolRectangle; t <= ToolCrop; t++ {
		if t.String() == s {
			return t, true
		}
	}
	return 0, false
}
