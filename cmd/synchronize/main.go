// synchronize - mirror a borg repository to its configured destinations
//
// Usage:
//
//	synchronize [flags] <config>
//
// Each destination (rclone://remote:path or rsync://host:path) is
// transferred concurrently.
package main

import (
	"github.com/gcornut/automation/internal/cli"
	"github.com/gcornut/automation/internal/synchronize"
)

func main() {
	cli.Main(synchronize.Name, synchronize.Plan)
}
