package speech

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/creack/pty"

	"github.com/tOgg1/replydesk/internal/logging"
)

const stopGrace = 2 * time.Second

// CommandEngine runs an external streaming recognizer and reads transcript
// lines from it (see ParseLine). The recognizer runs on a pseudo-terminal so
// that it line-buffers its output.
type CommandEngine struct {
	command string
	args    []string

	mu       sync.Mutex
	cmd      *exec.Cmd
	done     chan struct{}
	stopping bool
}

// NewCommandEngine creates an engine for command.
func NewCommandEngine(command string, args ...string) *CommandEngine {
	return &CommandEngine{command: command, args: args}
}

// Available reports whether the recognizer binary can be found.
func (e *CommandEngine) Available() bool {
	if e.command == "" {
		return false
	}
	_, err := exec.LookPath(e.command)
	return err == nil
}

// Start launches the recognizer. Events are delivered to h until a Done
// event, which follows Stop, a recognizer exit, or ctx cancellation.
func (e *CommandEngine) Start(ctx context.Context, h Handler) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd != nil {
		return ErrRunning
	}
	path, err := exec.LookPath(e.command)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupported, err)
	}

	cmd := exec.CommandContext(ctx, path, e.args...)
	ptm, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("start recognizer: %w", err)
	}

	done := make(chan struct{})
	e.cmd = cmd
	e.done = done
	e.stopping = false

	log := logging.Component("speech")
	log.Debug().Str("command", e.command).Int("pid", cmd.Process.Pid).Msg("recognizer started")

	go e.read(cmd, ptm, done, h)
	return nil
}

func (e *CommandEngine) read(cmd *exec.Cmd, ptm *os.File, done chan struct{}, h Handler) {
	defer close(done)

	scanner := bufio.NewScanner(ptm)
	for scanner.Scan() {
		if seg, ok := ParseLine(scanner.Text()); ok {
			h(Event{Segment: seg})
		}
	}
	// Once the child exits, reading the pty master fails with EIO; that is
	// the end of the stream, not an error.
	waitErr := cmd.Wait()
	_ = ptm.Close()

	e.mu.Lock()
	stopped := e.stopping
	e.cmd = nil
	e.done = nil
	e.stopping = false
	e.mu.Unlock()

	if waitErr != nil && !stopped {
		h(Event{Err: fmt.Errorf("recognizer exited: %w", waitErr)})
	}
	h(Event{Done: true})
}

// Stop interrupts the recognizer and waits for it to exit, killing it if it
// does not stop in time. Stopping an idle engine is a no-op.
func (e *CommandEngine) Stop() error {
	e.mu.Lock()
	if e.cmd == nil {
		e.mu.Unlock()
		return nil
	}
	e.stopping = true
	proc := e.cmd.Process
	done := e.done
	e.mu.Unlock()

	_ = proc.Signal(os.Interrupt)
	select {
	case <-done:
		return nil
	case <-time.After(stopGrace):
	}
	if err := proc.Kill(); err != nil {
		return fmt.Errorf("kill recognizer: %w", err)
	}
	<-done
	return nil
}
