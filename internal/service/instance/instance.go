package instance

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/mitchellh/go-ps"
)

// ErrAlreadyRunning is returned by Guard when another instance is alive.
var ErrAlreadyRunning = errors.New("another instance is already running")

// lister enumerates processes; ps.Processes in production.
type lister func() ([]ps.Process, error)

// ExecutableName returns the name of the running binary as the process table shows it.
func ExecutableName() string {
	name := filepath.Base(os.Args[0])

	if runtime.GOOS == "windows" && !strings.HasSuffix(strings.ToLower(name), ".exe") {
		name += ".exe"
	}

	return name
}

// Others returns the PIDs of other processes named name.
func Others(name string) ([]int, error) {
	return others(ps.Processes, name, os.Getpid())
}

// Guard fails with ErrAlreadyRunning if another process named name exists.
func Guard(name string) error {
	pids, err := Others(name)
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	if len(pids) > 0 {
		return fmt.Errorf("%s (pid %d): %w", name, pids[0], ErrAlreadyRunning)
	}

	return nil
}

const (
	// DefaultGracePeriod is how long Terminate waits for SIGTERM to end a process.
	DefaultGracePeriod = 15 * time.Second
	// terminatePollInterval is how often the process table is checked meanwhile.
	terminatePollInterval = 200 * time.Millisecond
)

// signaller delivers sig to pid.
type signaller func(pid int, sig os.Signal) error

// terminator stops processes politely first and forcefully after grace.
type terminator struct {
	list   lister
	signal signaller
	self   int
	grace  time.Duration
}

// Terminate stops every other process named name and returns how many there were.
// Each gets SIGTERM so it can switch its outputs off; the ones still running
// after DefaultGracePeriod are killed.
func Terminate(name string) (int, error) {
	t := terminator{
		list:   ps.Processes,
		signal: signalPID,
		self:   os.Getpid(),
		grace:  DefaultGracePeriod,
	}

	return t.terminate(name)
}

func (t terminator) terminate(name string) (int, error) {
	pids, err := others(t.list, name, t.self)
	if err != nil {
		return 0, fmt.Errorf("list processes: %w", err)
	}

	if len(pids) == 0 {
		return 0, nil
	}

	var stubborn []int

	for _, pid := range pids {
		if err = t.signal(pid, syscall.SIGTERM); err != nil {
			// Windows has no SIGTERM delivery.
			stubborn = append(stubborn, pid)
		}
	}

	remaining, err := t.wait(name, pids)
	if err != nil {
		return 0, err
	}

	for _, pid := range remaining {
		if !slices.Contains(stubborn, pid) {
			stubborn = append(stubborn, pid)
		}
	}

	for _, pid := range stubborn {
		if err = t.signal(pid, os.Kill); err != nil {
			return 0, fmt.Errorf("kill pid %d: %w", pid, err)
		}
	}

	return len(pids), nil
}

// wait polls until none of pids is running or the grace period is over, and
// returns the ones still alive.
func (t terminator) wait(name string, pids []int) ([]int, error) {
	deadline := time.Now().Add(t.grace)

	for {
		running, err := others(t.list, name, t.self)
		if err != nil {
			return nil, fmt.Errorf("list processes: %w", err)
		}

		var alive []int

		for _, pid := range pids {
			if slices.Contains(running, pid) {
				alive = append(alive, pid)
			}
		}

		if len(alive) == 0 || !time.Now().Before(deadline) {
			return alive, nil
		}

		time.Sleep(terminatePollInterval)
	}
}

func signalPID(pid int, sig os.Signal) error {
	process, err := os.FindProcess(pid)
	if err != nil {
		return err
	}

	return process.Signal(sig)
}

func others(list lister, name string, self int) ([]int, error) {
	processes, err := list()
	if err != nil {
		return nil, err
	}

	var pids []int

	for _, process := range processes {
		if process.Pid() == self {
			continue
		}

		if process.Executable() != name {
			continue
		}

		pids = append(pids, process.Pid())
	}

	return pids, nil
}
