package diagram

// Tunable layout/syntax constants, held as package-level constants rather
// than magic numbers scattered through the rendering code.
const (
	themeInitDirective = `%%{init: {"theme":"base"}}%%`
	defaultDirection   = "TD"
	indentWidth        = 2 // spaces per mindmap depth level
)
