package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/agentx/chatwidget/internal/services"
)

// terminal prints controller events: reply text to out as it streams,
// notices to errOut
type terminal struct {
	mu      sync.Mutex
	out     io.Writer
	errOut  io.Writer
	verbose bool

	streamID string
	printed  string
}

var _ services.EventSink = (*terminal)(nil)

func newTerminal(out, errOut io.Writer, verbose bool) *terminal {
	return &terminal{out: out, errOut: errOut, verbose: verbose}
}

func (t *terminal) Publish(e services.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e.Type {
	case services.EventToken:
		if e.MessageID != t.streamID {
			t.streamID, t.printed = e.MessageID, ""
		}
		// every token carries the whole reply so far
		if strings.HasPrefix(e.Markup, t.printed) {
			fmt.Fprint(t.out, e.Markup[len(t.printed):])
		} else {
			fmt.Fprint(t.out, "\n"+e.Markup)
		}
		t.printed = e.Markup
	case services.EventNotice:
		if e.Level == services.NoticeSuccess && !t.verbose {
			return
		}
		fmt.Fprintf(t.errOut, "[%s] %s\n", e.Level, e.Message)
	}
}

// finish ends the streamed line, if any.
func (t *terminal) finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.printed != "" && !strings.HasSuffix(t.printed, "\n") {
		fmt.Fprintln(t.out)
	}
	t.streamID, t.printed = "", ""
}

// promptConfirmer asks on the terminal unless assumeYes is set
type promptConfirmer struct {
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
}

func newPromptConfirmer(in io.Reader, out io.Writer, assumeYes bool) *promptConfirmer {
	return &promptConfirmer{in: bufio.NewReader(in), out: out, assumeYes: assumeYes}
}

func (p *promptConfirmer) Confirm(_ context.Context, _, prompt string) bool {
	if p.assumeYes {
		return true
	}
	fmt.Fprintf(p.out, "%s [y/N]: ", prompt)
	response, err := p.in.ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
