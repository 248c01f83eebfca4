// Package tasks runs best-effort background work such as last-login and
// email-verified bookkeeping. Callers never wait for, or observe the outcome of,
// a submitted task.
package tasks
