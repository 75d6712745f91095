// backup - create and prune borg archives for one configured target
//
// Usage:
//
//	backup [flags] <config>
//
// <config> names <config>.yaml in the configuration directory. Every backup
// entry of the target runs in turn against the shared repository: borg
// create, then borg prune.
package main

import (
	"github.com/gcornut/automation/internal/backup"
	"github.com/gcornut/automation/internal/cli"
)

func main() {
	cli.Main(backup.Name, backup.Plan)
}
