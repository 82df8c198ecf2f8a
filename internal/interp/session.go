package interp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"
)

const defaultRequestTimeout = 30 * time.Second

// PythonEngine spawns python subprocesses running the exec harness.
type PythonEngine struct {
	// Bin is the interpreter binary, "python3" by default.
	Bin string

	// Dir is the working directory for sessions; module imports resolve
	// relative to it. Usually the package root.
	Dir string

	// ExtraPath entries are prepended to PYTHONPATH.
	ExtraPath []string

	// RequestTimeout bounds a single example's execution.
	RequestTimeout time.Duration
}

func NewPythonEngine(bin, dir string) *PythonEngine {
	if bin == "" {
		bin = "python3"
	}
	return &PythonEngine{
		Bin:            bin,
		Dir:            dir,
		RequestTimeout: defaultRequestTimeout,
	}
}

func (e *PythonEngine) NewSession(ctx context.Context) (Session, error) {
	path, err := exec.LookPath(e.Bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrPythonNotFound, e.Bin)
	}

	cmd := exec.CommandContext(ctx, path, "-c", harnessSource)
	cmd.Dir = e.Dir
	cmd.Stderr = os.Stderr

	env := os.Environ()
	if len(e.ExtraPath) > 0 {
		pythonPath := ""
		for i, p := range e.ExtraPath {
			if i > 0 {
				pythonPath += string(os.PathListSeparator)
			}
			pythonPath += p
		}
		if existing := os.Getenv("PYTHONPATH"); existing != "" {
			pythonPath += string(os.PathListSeparator) + existing
		}
		env = append(env, "PYTHONPATH="+pythonPath)
	}
	cmd.Env = env

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("start %s: %w", e.Bin, err)
	}

	timeout := e.RequestTimeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return newPipeSession(cmd, stdin, stdout, timeout), nil
}

type request struct {
	ID     int    `json:"id"`
	Op     string `json:"op"`
	Source string `json:"source,omitempty"`
	Name   string `json:"name,omitempty"`
}

type response struct {
	ID  int    `json:"id"`
	OK  bool   `json:"ok"`
	Out string `json:"out"`
	Exc string `json:"exc,omitempty"`
}

// pipeSession speaks the line-delimited JSON protocol over a pair of
// pipes. It also backs tests, which hand it an in-process fake instead of
// a real interpreter.
type pipeSession struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	scanner *bufio.Scanner
	timeout time.Duration

	mu     sync.Mutex
	nextID int
	closed bool
}

func newPipeSession(cmd *exec.Cmd, stdin io.WriteCloser, stdout io.Reader, timeout time.Duration) *pipeSession {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	return &pipeSession{
		cmd:     cmd,
		stdin:   stdin,
		scanner: scanner,
		timeout: timeout,
	}
}

func (s *pipeSession) BindModule(ctx context.Context, module string) (Result, error) {
	return s.roundTrip(ctx, request{Op: "import", Name: module})
}

func (s *pipeSession) Exec(ctx context.Context, source string) (Result, error) {
	return s.roundTrip(ctx, request{Op: "exec", Source: source})
}

func (s *pipeSession) Reset(ctx context.Context) error {
	_, err := s.roundTrip(ctx, request{Op: "reset"})
	return err
}

func (s *pipeSession) roundTrip(ctx context.Context, req request) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Result{}, ErrSessionClosed
	}

	s.nextID++
	req.ID = s.nextID

	data, err := json.Marshal(req)
	if err != nil {
		return Result{}, err
	}
	data = append(data, '\n')

	if _, err := s.stdin.Write(data); err != nil {
		return Result{}, fmt.Errorf("write request: %w", err)
	}

	resp, err := s.readResponse(ctx)
	if err != nil {
		return Result{}, err
	}
	if resp.ID != req.ID {
		return Result{}, fmt.Errorf("response id %d for request %d", resp.ID, req.ID)
	}

	return Result{Out: resp.Out, Exc: resp.Exc}, nil
}

// readResponse reads one line off stdout, bounded by the context and the
// session timeout. The read itself happens on a goroutine because pipe
// reads cannot be interrupted.
func (s *pipeSession) readResponse(ctx context.Context) (*response, error) {
	type scanResult struct {
		resp *response
		err  error
	}

	resultChan := make(chan scanResult, 1)

	go func() {
		if !s.scanner.Scan() {
			err := s.scanner.Err()
			if err == nil {
				err = io.EOF
			}
			resultChan <- scanResult{nil, fmt.Errorf("interpreter exited: %w", err)}
			return
		}

		var resp response
		if err := json.Unmarshal(s.scanner.Bytes(), &resp); err != nil {
			resultChan <- scanResult{nil, fmt.Errorf("decode response: %w", err)}
			return
		}
		resultChan <- scanResult{&resp, nil}
	}()

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	select {
	case res := <-resultChan:
		return res.resp, res.err
	case <-timer.C:
		s.kill()
		return nil, fmt.Errorf("example timed out after %v", s.timeout)
	case <-ctx.Done():
		s.kill()
		return nil, ctx.Err()
	}
}

func (s *pipeSession) kill() {
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
}

func (s *pipeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.stdin.Close()

	if s.cmd == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- s.cmd.Wait()
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		s.kill()
		<-done
	}

	return nil
}
