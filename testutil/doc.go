// Package testutil provides deterministic world generators and brute-force
// reference queries for tests and benchmarks.
package testutil
