// Command carpid supervises a vehicle-mounted media player: it watches
// for a removable backup disk, drives a status LED, and routes three
// physical buttons (next/previous/play-pause) to an MPD-compatible
// music server.
package main

import (
	"github.com/larsks/carpid/internal/cli"
	"github.com/larsks/carpid/internal/supervisor"
)

func main() {
	cli.StandardMain(
		func() cli.Configurable { return supervisor.NewConfig() },
		supervisor.NewHandler(),
	)
}
