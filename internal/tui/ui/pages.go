package ui

import "github.com/rivo/tview"

// Page is a stackable view: something tview can draw that also has a
// lifecycle.
type Page interface {
	tview.Primitive
	Component
}

// Pages is a stack-based page manager wrapping tview.Pages. Pushing a page
// starts it, popping it stops it.
type Pages struct {
	*tview.Pages
	pages    map[string]Page
	stack    []string
	onChange func(stack []string)
}

// NewPages creates a new stack-based page manager.
func NewPages() *Pages {
	return &Pages{
		Pages: tview.NewPages(),
		pages: make(map[string]Page),
	}
}

// Add registers a hidden page under name.
func (p *Pages) Add(name string, page Page) {
	p.pages[name] = page
	p.AddPage(name, page, true, false)
}

// SetOnChange sets a callback that fires when the stack changes.
func (p *Pages) SetOnChange(fn func(stack []string)) {
	p.onChange = fn
}

// Push shows name on top of the stack. Pushing the current page is a no-op.
func (p *Pages) Push(name string) {
	if p.Current() == name {
		return
	}
	if len(p.stack) > 0 {
		p.HidePage(p.stack[len(p.stack)-1])
	}
	p.stack = append(p.stack, name)
	p.show(name)
	if pg, ok := p.pages[name]; ok {
		pg.Start()
	}
	p.notify()
}

// Pop removes the top page and shows the previous one.
// Returns the name of the popped page, or empty if stack is empty.
func (p *Pages) Pop() string {
	if len(p.stack) == 0 {
		return ""
	}
	top := p.stack[len(p.stack)-1]
	p.HidePage(top)
	p.stack = p.stack[:len(p.stack)-1]
	if pg, ok := p.pages[top]; ok {
		pg.Stop()
	}
	if len(p.stack) > 0 {
		p.show(p.stack[len(p.stack)-1])
	}
	p.notify()
	return top
}

// PopTo pops until name is on top, or the stack has one page left.
func (p *Pages) PopTo(name string) {
	for len(p.stack) > 1 && p.Current() != name {
		p.Pop()
	}
}

// Current returns the name of the current (top) page.
func (p *Pages) Current() string {
	if len(p.stack) == 0 {
		return ""
	}
	return p.stack[len(p.stack)-1]
}

// Stack returns a copy of the current page stack.
func (p *Pages) Stack() []string {
	s := make([]string, len(p.stack))
	copy(s, p.stack)
	return s
}

// Labels returns the display name of every stacked page, bottom first.
func (p *Pages) Labels() []string {
	out := make([]string, len(p.stack))
	for i, name := range p.stack {
		out[i] = name
		if pg, ok := p.pages[name]; ok {
			out[i] = pg.Name()
		}
	}
	return out
}

// Depth returns the current stack depth.
func (p *Pages) Depth() int {
	return len(p.stack)
}

// Reset stops every stacked page and leaves only name.
func (p *Pages) Reset(name string) {
	for i := len(p.stack) - 1; i >= 0; i-- {
		p.HidePage(p.stack[i])
		if pg, ok := p.pages[p.stack[i]]; ok {
			pg.Stop()
		}
	}
	p.stack = []string{name}
	p.show(name)
	if pg, ok := p.pages[name]; ok {
		pg.Start()
	}
	p.notify()
}

func (p *Pages) show(name string) {
	p.ShowPage(name)
	p.SendToFront(name)
}

func (p *Pages) notify() {
	if p.onChange != nil {
		p.onChange(p.Stack())
	}
}
