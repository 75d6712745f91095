// Package synchronize mirrors a borg repository to remote destinations with
// rclone or rsync. Destinations are independent and run concurrently.
package synchronize

import (
	"fmt"

	"github.com/gcornut/automation/internal/config"
	"github.com/gcornut/automation/internal/dirsize"
	"github.com/gcornut/automation/internal/task"
	"github.com/gcornut/automation/internal/timer"
)

// Name labels the timer and every destination logger.
const Name = "synchronize"

// Synchronizer builds one operation per destination of a target.
type Synchronizer struct {
	env task.Env
	// SizeOf measures the repository before a size-limited transfer.
	SizeOf func(path string) (int64, error)
}

// New returns a Synchronizer measuring sources with dirsize.Size.
func New(env task.Env) *Synchronizer {
	return &Synchronizer{env: env, SizeOf: dirsize.Size}
}

// Plan returns the operation for the named target.
func Plan(env task.Env, configName string) timer.Pending {
	return New(env).Plan(configName)
}

// Plan loads the target and returns a concurrent collection with one member
// per destination.
func (s *Synchronizer) Plan(configName string) timer.Pending {
	name := config.NormalizeName(configName)

	return func() (timer.Result, error) {
		common, err := s.env.Config.Common()
		if err != nil {
			return timer.Value(), err
		}
		target, err := s.env.Config.Target(name)
		if err != nil {
			return timer.Value(), err
		}
		if target.Repository == "" {
			return timer.Value(), fmt.Errorf("repository is not set in %s", config.FileName(name))
		}
		if len(target.Synchronize) == 0 {
			return timer.Value(), fmt.Errorf("no synchronize destination in %s", config.FileName(name))
		}
		repo, err := config.ResolvePath(target.Repository)
		if err != nil {
			return timer.Value(), fmt.Errorf("repository: %w", err)
		}

		ops := make([]timer.Pending, 0, len(target.Synchronize))
		for _, dest := range target.Synchronize {
			ops = append(ops, s.destination(name, common, repo, dest))
		}
		return timer.All(ops...), nil
	}
}

func (s *Synchronizer) destination(name string, common *config.Common, repo string, dest config.Destination) timer.Pending {
	return func() (timer.Result, error) {
		addr, err := ParseAddress(dest.Path)
		if err != nil {
			return timer.Value(), err
		}

		if dest.SizeLimit != "" {
			size, err := s.SizeOf(repo)
			if err != nil {
				return timer.Value(), err
			}
			if err := CheckSizeLimit(repo, size, dest.SizeLimit); err != nil {
				return timer.Value(), err
			}
		}

		program, args, err := Command(common, addr, repo)
		if err != nil {
			return timer.Value(), err
		}

		log := s.env.Logger(fmt.Sprintf("%s:%s->%s", Name, name, addr.Host))
		return timer.Value(), s.env.Runner.Run(program, args, task.Options(log, nil))
	}
}

// Command builds the transfer invocation for addr. rsync receives the
// repository with a trailing slash so its contents, not the directory
// itself, land in the destination.
func Command(common *config.Common, addr Address, repo string) (string, []string, error) {
	switch addr.Scheme {
	case SchemeRclone:
		program, err := config.ResolveProgram(common.RclonePath)
		if err != nil {
			return "", nil, fmt.Errorf("rclonePath: %w", err)
		}
		return program, []string{"sync", "--delete-after", repo, addr.Dest}, nil
	case SchemeRsync:
		program, err := config.ResolveProgram(common.RsyncPath)
		if err != nil {
			return "", nil, fmt.Errorf("rsyncPath: %w", err)
		}
		args := []string{"-aL", "--safe-links", "--progress", "--delete-after", repo + "/", addr.Dest}
		return program, args, nil
	default:
		return "", nil, &AddressError{Address: string(addr.Scheme) + "://" + addr.Dest, Reason: fmt.Sprintf("unrecognized scheme %q", addr.Scheme)}
	}
}
