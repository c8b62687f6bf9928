// Package testutil provides fixtures shared across package tests: account
// identities, a wired runtime/court pair, message posting helpers and a
// misbehaving oracle wrapper.
package testutil
