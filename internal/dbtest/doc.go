/*
Package dbtest spins up database containers for the tests of graph sinks and
their supporting tooling. It wraps the testcontainers-go library with the
defaults those tests share, so a test asks for "a Neo4j" and gets a connected
driver back.

Tests that need a specifically customised database should drive the
testcontainers-go modules directly instead of growing options here.

Developing locally with Docker, you may want to inspect the database after a
test failure before its container disappears:

	go test -dbtest.inspect

This package is intended to be used in tests only. It is not suitable for
production use.
*/
package dbtest
