package agent

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/ClareAI/astra-dialer-service/internal/domain"
	"github.com/ClareAI/astra-dialer-service/pkg/logger"
	"go.uber.org/zap"
)

// Factory builds an agent runtime bound to a room. Injected into the dialer
// service so tests can substitute fakes.
type Factory func(roomID, displayName string) domain.AgentRuntime

// ProcessRuntime runs the voice agent as a child process. The room id is
// handed over via environment, speech lines go over the child's stdin, and
// readiness is signaled through the marker file.
type ProcessRuntime struct {
	command string
	args    []string
	name    string

	mu    sync.Mutex
	cmd   *exec.Cmd
	stdin io.WriteCloser
}

// NewProcessFactory returns a Factory spawning the given agent command for
// each call.
func NewProcessFactory(command string, args []string) Factory {
	return func(roomID, displayName string) domain.AgentRuntime {
		return &ProcessRuntime{
			command: command,
			args:    args,
			name:    displayName,
		}
	}
}

// Start launches the agent process for the room.
func (p *ProcessRuntime) Start(roomID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return fmt.Errorf("agent already started for room %s", roomID)
	}

	cmd := exec.Command(p.command, p.args...)
	cmd.Env = append(os.Environ(),
		"AGENT_ROOM_ID="+roomID,
		"AGENT_DISPLAY_NAME="+p.name,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("failed to open agent stdin: %v", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start agent process: %v", err)
	}

	p.cmd = cmd
	p.stdin = stdin

	logger.Base().Info("Agent process started",
		zap.String("room_id", roomID),
		zap.Int("pid", cmd.Process.Pid))
	return nil
}

// Say sends one line for the agent to speak. Newlines inside the text are
// flattened since the protocol is line-delimited.
func (p *ProcessRuntime) Say(text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stdin == nil {
		return fmt.Errorf("agent not started")
	}

	line := "say " + strings.ReplaceAll(text, "\n", " ") + "\n"
	if _, err := io.WriteString(p.stdin, line); err != nil {
		return fmt.Errorf("failed to write to agent: %v", err)
	}
	return nil
}

// Close shuts the agent down. Closing stdin asks it to exit; the process is
// killed if it is still around afterwards.
func (p *ProcessRuntime) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil {
		return nil
	}

	if p.stdin != nil {
		_ = p.stdin.Close()
	}
	if p.cmd.Process != nil {
		_ = p.cmd.Process.Kill()
	}
	_ = p.cmd.Wait()

	p.cmd = nil
	p.stdin = nil
	return nil
}
