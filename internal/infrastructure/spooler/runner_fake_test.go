package spooler

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
)

type fakeResponse struct {
	match  string
	result CommandResult
	err    error
}

// fakeRunner answers commands with canned output. The first response whose
// match is contained in "<tool> <args...>" wins.
type fakeRunner struct {
	mu        sync.Mutex
	responses []fakeResponse
	calls     []CommandRequest
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{}
}

func (f *fakeRunner) on(match, stdout string) *fakeRunner {
	f.responses = append(f.responses, fakeResponse{match: match, result: CommandResult{Stdout: stdout}})
	return f
}

func (f *fakeRunner) fail(match string, exitCode int, stderr string) *fakeRunner {
	f.responses = append(f.responses, fakeResponse{match: match, result: CommandResult{ExitCode: exitCode, Stderr: stderr}})
	return f
}

func (f *fakeRunner) onError(match string, err error) *fakeRunner {
	f.responses = append(f.responses, fakeResponse{match: match, err: err})
	return f
}

func (f *fakeRunner) Run(_ context.Context, req CommandRequest) (*CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)

	key := commandKey(req)
	for _, r := range f.responses {
		if strings.Contains(key, r.match) {
			if r.err != nil {
				return nil, r.err
			}
			res := r.result
			return &res, nil
		}
	}
	return &CommandResult{ExitCode: 127, Stderr: "unexpected command: " + key}, nil
}

func (f *fakeRunner) called(match string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if strings.Contains(commandKey(c), match) {
			return true
		}
	}
	return false
}

func (f *fakeRunner) lastCall(match string) (CommandRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if strings.Contains(commandKey(f.calls[i]), match) {
			return f.calls[i], true
		}
	}
	return CommandRequest{}, false
}

func commandKey(req CommandRequest) string {
	return filepath.Base(req.Command) + " " + strings.Join(req.Args, " ")
}
