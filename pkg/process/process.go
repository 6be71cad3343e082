// Package process is hsab's process engine (spec C7): native command
// execution, pipes, redirection, job control, parallel spawn, process
// substitution, and timeouts. Grounded on the teacher's pkg/commands/os.go
// (NewCmd/RunCommandWithOutput/sanitisedCommandOutput), generalized from a
// single docker-subcommand runner into a general external-command runner,
// and on jesseduffield/kill for process-group termination (teacher's
// runtime_libpod.go stop path uses the same package for container PIDs).
package process

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/jesseduffield/kill"
	"github.com/sirupsen/logrus"
)

// Result is the outcome of running one external command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// JobStatus mirrors spec §4.7's job table status enum.
type JobStatus int

const (
	JobRunning JobStatus = iota
	JobStopped
	JobDone
)

func (s JobStatus) String() string {
	switch s {
	case JobRunning:
		return "Running"
	case JobStopped:
		return "Stopped"
	default:
		return "Done"
	}
}

// Job is one background (`&`) process record.
type Job struct {
	ID      int
	Pid     int
	Pgid    int
	Command string
	cmd     *exec.Cmd
	Status  JobStatus
	Code    int
}

// JobTable is the evaluator-owned table of background jobs (spec §5:
// "owned by the evaluator; no external writers").
type JobTable struct {
	mu      sync.Mutex
	jobs    []*Job
	counter int
}

func NewJobTable() *JobTable { return &JobTable{} }

func (jt *JobTable) add(cmd *exec.Cmd, command string) *Job {
	jt.mu.Lock()
	defer jt.mu.Unlock()
	jt.counter++
	pgid := cmd.Process.Pid
	j := &Job{ID: jt.counter, Pid: cmd.Process.Pid, Pgid: pgid, Command: command, cmd: cmd, Status: JobRunning}
	jt.jobs = append(jt.jobs, j)
	return j
}

// List returns a snapshot of the job table. Each job's status is updated
// by its reaper goroutine when the process exits.
func (jt *JobTable) List() []Job {
	jt.mu.Lock()
	defer jt.mu.Unlock()
	out := make([]Job, len(jt.jobs))
	for i, j := range jt.jobs {
		out[i] = *j
	}
	return out
}

func (jt *JobTable) reap(j *Job) {
	err := j.cmd.Wait()
	jt.mu.Lock()
	defer jt.mu.Unlock()
	j.Status = JobDone
	j.Code = exitCodeOf(err)
}

// Engine runs commands on behalf of the evaluator.
type Engine struct {
	Log        *logrus.Entry
	Jobs       *JobTable
	Pipestatus []int

	mu         sync.Mutex
	lastCmd    *exec.Cmd
	substCount int
}

func NewEngine(log *logrus.Entry) *Engine {
	return &Engine{Log: log, Jobs: NewJobTable()}
}

// Spec is the full description of one process launch.
type Spec struct {
	Argv    []string
	Env     []string
	Dir     string
	Stdin   *string // nil = inherit/none
	Capture bool    // collect stdout into Result.Stdout instead of streaming
}

func (e *Engine) build(ctx context.Context, s Spec) *exec.Cmd {
	var cmd *exec.Cmd
	if ctx != nil {
		cmd = exec.CommandContext(ctx, s.Argv[0], s.Argv[1:]...)
	} else {
		cmd = exec.Command(s.Argv[0], s.Argv[1:]...)
	}
	cmd.Dir = s.Dir
	if s.Env != nil {
		cmd.Env = s.Env
	} else {
		cmd.Env = os.Environ()
	}
	return cmd
}

// Run executes one command, either capturing stdout or streaming to the
// terminal, matching §4.7's "capture vs interactive" rule.
func (e *Engine) Run(s Spec) (Result, error) {
	cmd := e.build(nil, s)

	if s.Stdin != nil {
		cmd.Stdin = bytes.NewBufferString(*s.Stdin)
	}

	if !s.Capture {
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		err := cmd.Run()
		return Result{ExitCode: exitCodeOf(err)}, runErr(err)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if s.Stdin == nil {
		cmd.Stdin = nil
	}
	err := cmd.Run()
	e.mu.Lock()
	e.lastCmd = cmd
	e.mu.Unlock()
	return Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCodeOf(err)}, runErr(err)
}

// Pipe runs consumerArgv with producerOutput as its stdin (spec §4.7's
// `|`). Exit code and stdout come from the consumer.
func (e *Engine) Pipe(consumerArgv []string, producerOutput string, env []string, dir string) (Result, error) {
	return e.Run(Spec{Argv: consumerArgv, Env: env, Dir: dir, Stdin: &producerOutput, Capture: true})
}

// RedirectOp enumerates the `>`,`>>`,`<`,`2>`,`2>>`,`&>`,`2>&1` forms.
type RedirectOp int

const (
	RedirOut RedirectOp = iota
	RedirAppend
	RedirIn
	RedirErr
	RedirErrAppend
	RedirBoth
	RedirErrToOut
)

// Redirect runs argv with the given redirection applied (spec §4.7).
// For RedirIn, path is the source file read as stdin. For the out-family,
// path is the destination file the captured stream(s) are written to.
func (e *Engine) Redirect(op RedirectOp, argv []string, path string, env []string, dir string) (Result, error) {
	if op == RedirIn {
		data, err := os.ReadFile(path)
		if err != nil {
			return Result{}, err
		}
		s := string(data)
		return e.Run(Spec{Argv: argv, Env: env, Dir: dir, Stdin: &s, Capture: true})
	}

	res, err := e.Run(Spec{Argv: argv, Env: env, Dir: dir, Capture: true})
	if err != nil && res.ExitCode == 0 {
		return res, err
	}

	flags := os.O_WRONLY | os.O_CREATE
	if op == RedirAppend || op == RedirErrAppend {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	switch op {
	case RedirOut:
		werr := writeFile(path, flags, res.Stdout)
		return res, firstErr(err, werr)
	case RedirAppend:
		werr := writeFile(path, flags, res.Stdout)
		return res, firstErr(err, werr)
	case RedirErr:
		werr := writeFile(path, flags, res.Stderr)
		return res, firstErr(err, werr)
	case RedirErrAppend:
		werr := writeFile(path, flags, res.Stderr)
		return res, firstErr(err, werr)
	case RedirBoth:
		werr := writeFile(path, flags, res.Stdout+res.Stderr)
		return res, firstErr(err, werr)
	case RedirErrToOut:
		res.Stdout = res.Stdout + res.Stderr
		res.Stderr = ""
		return res, err
	default:
		return res, err
	}
}

func writeFile(path string, flags int, content string) error {
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(content)
	return err
}

func firstErr(a, b error) error {
	if a != nil {
		return a
	}
	return b
}

// Background spawns argv detached with stdio redirected to /dev/null and
// registers a job (spec §4.7 `&`).
func (e *Engine) Background(argv []string, env []string, dir string) (*Job, error) {
	cmd := e.build(nil, Spec{Argv: argv, Env: env, Dir: dir})
	devnull, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	cmd.Stdin = devnull
	cmd.Stdout = devnull
	cmd.Stderr = devnull
	if err := cmd.Start(); err != nil {
		devnull.Close()
		return nil, err
	}
	j := e.Jobs.add(cmd, argvString(argv))
	go func() {
		defer devnull.Close()
		e.Jobs.reap(j)
	}()
	return j, nil
}

func argvString(argv []string) string {
	out := ""
	for i, a := range argv {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}

// Timeout runs argv, killing the process group if it doesn't finish
// within d, reporting exit code 124 on timeout (spec §4.7).
func (e *Engine) Timeout(d time.Duration, argv []string, env []string, dir string) (Result, error) {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	cmd := e.build(ctx, Spec{Argv: argv, Env: env, Dir: dir})
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return Result{ExitCode: 127}, err
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCodeOf(err)}, runErr(err)
	case <-ctx.Done():
		_ = kill.Kill(cmd.Process.Pid)
		<-done
		return Result{ExitCode: 124}, fmt.Errorf("timed out after %s", d)
	}
}

// Subst writes output (a block's captured stdout) into a fresh scratch
// file, returning its path (spec §4.7 `subst`).
func (e *Engine) Subst(output string) (string, error) {
	e.mu.Lock()
	e.substCount++
	n := e.substCount
	e.mu.Unlock()
	path := fmt.Sprintf("%shsab_subst_%d_%d", os.TempDir()+string(os.PathSeparator), os.Getpid(), n)
	if err := os.WriteFile(path, []byte(output), 0o600); err != nil {
		return "", err
	}
	return path, nil
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return 1
}

func runErr(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*exec.ExitError); ok {
		// A nonzero exit is the normal signalling path, not a Go-level error
		// the evaluator needs wrapped (spec §7): callers consult ExitCode.
		return nil
	}
	return err
}
