package viewmodel

import (
	"fmt"
	"io"
	"sync"
)

// Level classifies a notice
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a transient user-facing message
type Notice struct {
	Level   Level
	Message string
}

// Notifier reports outcomes to the user
type Notifier interface {
	Success(message string)
	Error(message string)
}

// Notices queues notices until the next render drains them. Only the most
// recent max notices are kept.
type Notices struct {
	mu    sync.Mutex
	items []Notice
	max   int
}

// NewNotices creates a queue holding at most max notices
func NewNotices(max int) *Notices {
	if max <= 0 {
		max = 5
	}
	return &Notices{max: max}
}

// Success queues a success notice
func (n *Notices) Success(message string) {
	n.push(Notice{Level: LevelSuccess, Message: message})
}

// Error queues an error notice
func (n *Notices) Error(message string) {
	n.push(Notice{Level: LevelError, Message: message})
}

func (n *Notices) push(notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.items = append(n.items, notice)
	if len(n.items) > n.max {
		n.items = n.items[len(n.items)-n.max:]
	}
}

// Drain returns and removes every queued notice
func (n *Notices) Drain() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()

	items := n.items
	n.items = nil
	return items
}

// Printer writes notices straight to a terminal
type Printer struct {
	w io.Writer
}

// NewPrinter creates a notifier writing to w
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Success prints a success line
func (p *Printer) Success(message string) {
	fmt.Fprintln(p.w, message)
}

// Error prints an error line
func (p *Printer) Error(message string) {
	fmt.Fprintf(p.w, "Error: %s\n", message)
}

var (
	_ Notifier = (*Notices)(nil)
	_ Notifier = (*Printer)(nil)
)
