package driver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// killGrace bounds how long Kill waits for the process and its stream pumps
// to wind down after the signal.
const killGrace = 5 * time.Second

// Invocation describes one spawn of the compiler-under-test. When StdinFile
// is set the sim program is fed over stdin and the dialogue must not write
// input (the original harness leaves that combination undefined).
type Invocation struct {
	Path      string
	Args      []string
	StdinFile string
	Logger    *zap.Logger
}

// Starter returns a StartFunc for the invocation.
func (inv Invocation) Starter() StartFunc {
	return func(ctx context.Context) (Program, error) {
		return inv.Start(ctx)
	}
}

// Start spawns the process with all three stdio streams piped (stdin replaced
// by StdinFile when set) and begins pumping output lines.
func (inv Invocation) Start(ctx context.Context) (Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log := inv.Logger
	if log == nil {
		log = zap.NewNop()
	}

	cmd := exec.Command(inv.Path, inv.Args...)
	setProcessGroup(cmd)

	p := &process{
		cmd:      cmd,
		log:      log,
		outLines: make(chan string, 64),
		errLines: make(chan string, 64),
		exited:   make(chan struct{}),
	}

	if inv.StdinFile != "" {
		f, err := os.Open(inv.StdinFile)
		if err != nil {
			return nil, fmt.Errorf("open stdin file: %w", err)
		}
		cmd.Stdin = f
		p.stdinFile = f
	} else {
		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, err
		}
		p.stdin = stdin
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", inv.Path, err)
	}
	log.Debug("compiler started", zap.String("path", inv.Path), zap.Strings("args", inv.Args), zap.Int("pid", cmd.Process.Pid))

	var pumps errgroup.Group
	pumps.Go(func() error { return pumpLines(stdout, p.outLines) })
	pumps.Go(func() error { return pumpLines(stderr, p.errLines) })

	// cmd.Wait closes the pipes, so it must run after both pumps drain.
	go func() {
		_ = pumps.Wait()
		err := cmd.Wait()
		p.exitCode = exitCodeOf(err)
		if p.stdinFile != nil {
			_ = p.stdinFile.Close()
		}
		close(p.exited)
	}()

	return p, nil
}

type process struct {
	cmd       *exec.Cmd
	log       *zap.Logger
	stdin     io.WriteCloser
	stdinFile *os.File

	outLines chan string
	errLines chan string

	exited   chan struct{}
	exitCode int

	closeOnce sync.Once
	killOnce  sync.Once
}

func (p *process) WriteLine(line string) error {
	if p.stdin == nil {
		return errors.New("stdin is bound to the sim file, dialogue input is undefined")
	}
	_, err := io.WriteString(p.stdin, line+"\n")
	return err
}

func (p *process) ReadLine(ctx context.Context) (string, error) {
	return readFrom(ctx, p.outLines)
}

func (p *process) ReadErrorLine(ctx context.Context) (string, error) {
	return readFrom(ctx, p.errLines)
}

func readFrom(ctx context.Context, lines <-chan string) (string, error) {
	select {
	case line, ok := <-lines:
		if !ok {
			return "", ErrClosed
		}
		return line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (p *process) Wait(ctx context.Context) (Completed, error) {
	p.closeStdin()

	var out, errOut strings.Builder
	outLines, errLines := p.outLines, p.errLines
	for outLines != nil || errLines != nil {
		select {
		case line, ok := <-outLines:
			if !ok {
				outLines = nil
				continue
			}
			out.WriteString(line)
			out.WriteByte('\n')
		case line, ok := <-errLines:
			if !ok {
				errLines = nil
				continue
			}
			errOut.WriteString(line)
			errOut.WriteByte('\n')
		case <-ctx.Done():
			return Completed{}, ctx.Err()
		}
	}

	select {
	case <-p.exited:
	case <-ctx.Done():
		return Completed{}, ctx.Err()
	}
	return Completed{Stdout: out.String(), Stderr: errOut.String(), ExitCode: p.exitCode}, nil
}

func (p *process) Kill() {
	p.killOnce.Do(func() {
		select {
		case <-p.exited:
			return
		default:
		}
		p.closeStdin()
		killProcessGroup(p.cmd)

		// Drop buffered lines so the pumps can finish and cmd.Wait can reap.
		done := make(chan struct{})
		go func() {
			outLines, errLines := p.outLines, p.errLines
			for outLines != nil || errLines != nil {
				select {
				case _, ok := <-outLines:
					if !ok {
						outLines = nil
					}
				case _, ok := <-errLines:
					if !ok {
						errLines = nil
					}
				}
			}
			close(done)
		}()

		grace := time.NewTimer(killGrace)
		defer grace.Stop()
		select {
		case <-done:
		case <-grace.C:
			p.log.Warn("compiler did not wind down after kill", zap.Int("pid", p.cmd.Process.Pid))
			return
		}
		select {
		case <-p.exited:
		case <-grace.C:
			p.log.Warn("compiler did not exit after kill", zap.Int("pid", p.cmd.Process.Pid))
		}
	})
}

func (p *process) closeStdin() {
	p.closeOnce.Do(func() {
		if p.stdin != nil {
			_ = p.stdin.Close()
		}
	})
}

func pumpLines(r io.Reader, out chan<- string) error {
	defer close(out)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		out <- sc.Text()
	}
	return sc.Err()
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}
