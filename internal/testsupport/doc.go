// Package testsupport provides helpers shared by package tests: temp-dir
// configs, stub binaries on PATH, and store constructors.
package testsupport
