// Package cmd contains the standalone binaries: the combined court and
// oracle daemon (courtd) and the operator CLI (court-cli).
package cmd
