// Package supervisor spawns one script command per process group and
// exposes its lifecycle as channels, running arbitrary shell command
// strings with platform-appropriate process-group termination.
package supervisor

import (
	"context"
	"io"
	"os/exec"
	"sync"
	"sync/atomic"

	"github.com/wireit-go/wireit/internal/core/ports"
)

var _ ports.SupervisorFactory = (*Factory)(nil)

// Factory constructs a fresh Supervisor per New call.
type Factory struct{}

// NewFactory constructs a Factory.
func NewFactory() *Factory {
	return &Factory{}
}

// New returns a new, unstarted Supervisor.
func (f *Factory) New() ports.Supervisor {
	return &Supervisor{
		output: make(chan ports.OutputChunk, 64),
		done:   make(chan ports.ExitResult, 1),
	}
}

var _ ports.Supervisor = (*Supervisor)(nil)

// Supervisor implements ports.Supervisor over os/exec with a
// platform-specific process group, spawned via the platform shell.
type Supervisor struct {
	mu    sync.Mutex
	state atomic.Uint32 // ports.ProcessState

	cmd           *exec.Cmd
	output        chan ports.OutputChunk
	done          chan ports.ExitResult
	terminateOnce sync.Once

	pendingTerminate bool
}

// Start implements ports.Supervisor.
func (s *Supervisor) Start(ctx context.Context, command, dir string, env []string) error {
	s.state.Store(uint32(ports.ProcessStarting))

	cmd := shellCommand(ctx, command)
	cmd.Dir = dir
	cmd.Env = mergeEnv(buildEnv(dir), env)
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return s.spawnError(err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return s.spawnError(err)
	}

	if err := cmd.Start(); err != nil {
		return s.spawnError(err)
	}

	s.mu.Lock()
	s.cmd = cmd
	deferredTerminate := s.pendingTerminate
	s.mu.Unlock()

	s.state.Store(uint32(ports.ProcessStarted))

	var wg sync.WaitGroup
	wg.Add(2)
	go s.pump(&wg, stdout, false)
	go s.pump(&wg, stderr, true)

	go func() {
		wg.Wait()
		waitErr := cmd.Wait()
		s.state.Store(uint32(ports.ProcessStopped))
		close(s.output)
		s.done <- classifyExit(waitErr, s.wasTerminated())
		close(s.done)
	}()

	if deferredTerminate {
		_ = s.terminateNow()
	}

	return nil
}

func (s *Supervisor) spawnError(err error) error {
	s.state.Store(uint32(ports.ProcessStopped))
	close(s.output)
	s.done <- ports.ExitResult{Kind: ports.ExitSpawnError, Message: err.Error()}
	close(s.done)
	return err
}

func (s *Supervisor) pump(wg *sync.WaitGroup, r io.Reader, stderr bool) {
	defer wg.Done()
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := ports.OutputChunk{Stderr: stderr, Data: append([]byte(nil), buf[:n]...)}
			s.output <- chunk
		}
		if err != nil {
			return
		}
	}
}

// State implements ports.Supervisor.
func (s *Supervisor) State() ports.ProcessState {
	return ports.ProcessState(s.state.Load())
}

// Output implements ports.Supervisor.
func (s *Supervisor) Output() <-chan ports.OutputChunk {
	return s.output
}

// Done implements ports.Supervisor.
func (s *Supervisor) Done() <-chan ports.ExitResult {
	return s.done
}

// Terminate implements ports.Supervisor. If the process is still starting,
// termination is deferred until Start finishes spawning it.
func (s *Supervisor) Terminate() error {
	s.mu.Lock()
	if s.cmd == nil || s.cmd.Process == nil {
		s.pendingTerminate = true
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.terminateNow()
}

func (s *Supervisor) terminateNow() error {
	var terminateErr error
	s.terminateOnce.Do(func() {
		s.state.Store(uint32(ports.ProcessStopping))
		s.mu.Lock()
		cmd := s.cmd
		s.mu.Unlock()
		if cmd == nil || cmd.Process == nil {
			return
		}
		terminateErr = terminateProcessGroup(cmd)
	})
	return terminateErr
}

func (s *Supervisor) wasTerminated() bool {
	return s.State() == ports.ProcessStopping
}

func classifyExit(err error, terminated bool) ports.ExitResult {
	if err == nil {
		return ports.ExitResult{Kind: ports.ExitOK}
	}
	if terminated {
		return ports.ExitResult{Kind: ports.ExitTerminated, Message: err.Error()}
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		if name := signalName(exitErr); name != "" {
			return ports.ExitResult{Kind: ports.ExitSignal, SignalName: name, Message: err.Error()}
		}
		return ports.ExitResult{Kind: ports.ExitNonZero, ExitCode: exitErr.ExitCode(), Message: err.Error()}
	}
	return ports.ExitResult{Kind: ports.ExitSpawnError, Message: err.Error()}
}
