package dbtest

import (
	"flag"
	"os"
	"os/signal"
)

// Inspect keeps a failed test's container running so the graph it was left
// with can be examined by hand, typically with cypher-shell or the Neo4j
// browser against the logged endpoint.
//
// The container is not torn down by the test, but the testcontainers reaper
// still collects it after a while. See their documentation for more
// information.
var Inspect = flag.Bool("dbtest.inspect", false, "keep test container running for inspection after a failed test completes")

// waitForInspection blocks until the user signals that they are done inspecting
// the database by sending a SIGINT (Ctrl+C).
func waitForInspection() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	defer signal.Stop(c)
	<-c
}
