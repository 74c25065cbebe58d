package ui

// Component is a page of the TUI. Name labels it in the breadcrumb trail;
// Start and Stop run when the page is pushed onto or popped off the stack.
type Component interface {
	Name() string
	Start()
	Stop()
}
