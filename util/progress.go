package util

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/moby/term"
	"github.com/tj/go-spin"
	"github.com/ttacon/chalk"
)

// ProgressSpinner is an indefinite progress indicator using a spinner.
type ProgressSpinner struct {
	out      io.Writer
	interval time.Duration

	mu       sync.Mutex
	spinner  *spin.Spinner
	message  string
	stop     chan struct{}
	wg       sync.WaitGroup
	spinning bool
}

// NewProgressSpinner returns a spinner drawing on out.
func NewProgressSpinner(out io.Writer) *ProgressSpinner {
	return &ProgressSpinner{out: out, interval: 100 * time.Millisecond}
}

// IsTerminal reports whether f is attached to a terminal. The spinner is
// only useful there.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(f.Fd())
}

// Start starts the spinner
func (ps *ProgressSpinner) Start(messages ...interface{}) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.spinning {
		return
	}

	ps.message = fmt.Sprint(messages...)
	ps.spinner = spin.New()
	ps.stop = make(chan struct{})
	ps.spinning = true
	ps.wg.Add(1)

	go func(stop chan struct{}) {
		defer ps.wg.Done()
		ticker := time.NewTicker(ps.interval)
		defer ticker.Stop()
		for {
			fmt.Fprintf(ps.out, "\r%s %s", chalk.Yellow.Color(ps.spinner.Next()), ps.message)
			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}(ps.stop)
}

// Do executes given function with given messages as label.
func (ps *ProgressSpinner) Do(workFunc func() error, messages ...interface{}) error {
	ps.Start(messages...)
	if err := workFunc(); err != nil {
		ps.Fail()
		return err
	}
	ps.Done()
	return nil
}

// Done stops the spinner with success mark.
func (ps *ProgressSpinner) Done() {
	ps.finish(chalk.Green.Color("done"))
}

// Fail stops the spinner with error mark.
func (ps *ProgressSpinner) Fail() {
	ps.finish(chalk.Red.Color("failed"))
}

func (ps *ProgressSpinner) finish(mark string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if !ps.spinning {
		return
	}
	close(ps.stop)
	ps.wg.Wait()
	ps.spinning = false
	fmt.Fprintf(ps.out, "\r%s %s\n", ps.message, mark)
}
