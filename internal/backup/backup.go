// Package backup creates and prunes borg archives. All entries of a target
// share one repository, which does not tolerate concurrent writers, so they
// run one after another.
package backup

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gcornut/automation/internal/config"
	"github.com/gcornut/automation/internal/task"
	"github.com/gcornut/automation/internal/timer"
)

// Name labels the timer and every entry logger.
const Name = "backup"

const archiveSuffix = "{hostname}-{now:%Y-%m-%d_%H:%M:%S}"

// Plan returns the operation for the named target: a sequence over its
// backup entries, each running create then prune.
func Plan(env task.Env, configName string) timer.Pending {
	name := config.NormalizeName(configName)

	return func() (timer.Result, error) {
		common, err := env.Config.Common()
		if err != nil {
			return timer.Value(), err
		}
		target, err := env.Config.Target(name)
		if err != nil {
			return timer.Value(), err
		}
		if target.Repository == "" {
			return timer.Value(), fmt.Errorf("repository is not set in %s", config.FileName(name))
		}
		if len(target.Backup) == 0 {
			return timer.Value(), fmt.Errorf("no backup entry in %s", config.FileName(name))
		}
		repo, err := config.ResolvePath(target.Repository)
		if err != nil {
			return timer.Value(), fmt.Errorf("repository: %w", err)
		}
		borg, err := config.ResolveProgram(common.BorgPath)
		if err != nil {
			return timer.Value(), fmt.Errorf("borgPath: %w", err)
		}

		ops := make([]timer.Pending, 0, len(target.Backup))
		for _, b := range target.Backup {
			ops = append(ops, entry(env, name, borg, repo, b))
		}
		return timer.Await(timer.Sequence(ops...)), nil
	}
}

func entry(env task.Env, name, borg, repo string, b config.Backup) timer.Pending {
	return func() (timer.Result, error) {
		label := Name + ":" + name
		if b.Name != "" {
			label += "/" + b.Name
		}
		log := env.Logger(label)
		opts := task.Options(log, Env(b))

		if b.Dir == "" {
			return timer.Value(), fmt.Errorf("%s: dir is not set", label)
		}
		src, err := config.ResolvePath(b.Dir)
		if err != nil {
			return timer.Value(), fmt.Errorf("%s: %w", label, err)
		}
		if err := checkExists(repo, src); err != nil {
			return timer.Value(), err
		}

		if err := env.Runner.Run(borg, CreateArgs(repo, src, b), opts); err != nil {
			return timer.Value(), err
		}

		args, ok := PruneArgs(repo, b)
		if !ok {
			log.Out("No retention set, skipping prune")
			return timer.Value(), nil
		}
		return timer.Value(), env.Runner.Run(borg, args, opts)
	}
}

// checkExists stats every path and reports all that are missing.
func checkExists(paths ...string) error {
	var errs []error
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Env returns the environment overlay for borg invocations.
func Env(b config.Backup) map[string]string {
	env := map[string]string{
		"BORG_RELOCATED_REPO_ACCESS_IS_OK": "yes",
	}
	if b.Passphrase != "" {
		env["BORG_PASSPHRASE"] = b.Passphrase
	}
	return env
}

// ArchivePrefix is prepended to archive names of named entries so that
// prune only considers that entry's archives.
func ArchivePrefix(b config.Backup) string {
	if b.Name == "" {
		return ""
	}
	return b.Name + "-"
}

// CreateArgs builds the "borg create" arguments.
func CreateArgs(repo, src string, b config.Backup) []string {
	args := []string{"create", "-x", "--verbose", "--stats", "--exclude-caches"}
	if b.Compression != "" {
		args = append(args, "--compression", b.Compression)
	}
	args = append(args, repo+"::"+ArchivePrefix(b)+archiveSuffix, src)
	for _, exclude := range b.Excludes {
		args = append(args, "--exclude", exclude)
	}
	return args
}

// PruneArgs builds the "borg prune" arguments. It reports false when the
// entry has no retention flags.
func PruneArgs(repo string, b config.Backup) ([]string, bool) {
	retention := strings.Fields(b.Retention)
	if len(retention) == 0 {
		return nil, false
	}
	args := []string{"prune", "-s", "--list", "--verbose"}
	if prefix := ArchivePrefix(b); prefix != "" {
		args = append(args, "--glob-archives", prefix+"*")
	}
	args = append(args, retention...)
	return append(args, repo), true
}
