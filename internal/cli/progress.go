package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Spinner shows activity while a remote call runs.
type Spinner struct {
	bar   *progressbar.ProgressBar
	out   io.Writer
	label string
	start time.Time
	plain bool

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// StartSpinner starts a spinner on stderr. In CI it prints plain lines
// instead of redrawing.
func StartSpinner(label string) *Spinner {
	plain := os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != ""
	return startSpinner(os.Stderr, label, plain)
}

func startSpinner(out io.Writer, label string, plain bool) *Spinner {
	s := &Spinner{
		out:   out,
		label: label,
		start: time.Now(),
		plain: plain,
		stop:  make(chan struct{}),
	}
	if plain {
		fmt.Fprintf(out, "%s...\n", label)
		return s
	}

	s.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *Spinner) run() {
	defer s.wg.Done()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.bar.Describe(fmt.Sprintf("%s %s", s.label, FormatDurationShort(time.Since(s.start))))
			_ = s.bar.Add(1)
		}
	}
}

// Stop ends the spinner and returns the elapsed time. It is safe to call
// more than once.
func (s *Spinner) Stop() time.Duration {
	elapsed := time.Since(s.start)
	s.once.Do(func() {
		close(s.stop)
		s.wg.Wait()
		if s.bar != nil {
			_ = s.bar.Finish()
		} else if s.plain {
			fmt.Fprintf(s.out, "%s finished in %s\n", s.label, FormatDurationShort(elapsed))
		}
	})
	return elapsed
}
