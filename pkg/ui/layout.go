package ui

// Layout breakpoints for responsive design.
const (
	// BreakpointNarrow is the width below which only the issue list is shown.
	BreakpointNarrow = 80

	// BreakpointMedium is the width below which the epics panel is hidden.
	BreakpointMedium = 120
)

// Panel dimensions.
const (
	sidebarWidth = 30
	epicsWidth   = 40

	// MinListWidth is the narrowest the issue list gets.
	MinListWidth = 20
)

// panels reports which side panels fit into width.
type panels struct {
	sidebar bool
	epics   bool
}

func panelsFor(width int) panels {
	return panels{
		sidebar: width >= BreakpointNarrow,
		epics:   width >= BreakpointMedium,
	}
}

// listWidth is the width left for the issue list next to the visible panels.
func (p panels) listWidth(width int) int {
	w := width - 2
	if p.sidebar {
		w -= sidebarWidth + 2
	}
	if p.epics {
		w -= epicsWidth + 2
	}
	if w < MinListWidth {
		w = MinListWidth
	}
	return w
}

func (p panels) shows(f focus) bool {
	switch f {
	case focusProjects:
		return p.sidebar
	case focusEpics:
		return p.epics
	}
	return true
}

// cycleFocus moves f by step, skipping panels that are not shown.
func (p panels) cycleFocus(f focus, step int) focus {
	for i := 0; i < 3; i++ {
		f = focus((int(f) + step + 3) % 3)
		if p.shows(f) {
			return f
		}
	}
	return focusIssues
}
