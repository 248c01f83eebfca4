// Package security summarizes the security posture implied by an engine
// configuration and flags settings that are weaker than recommended.
//
// The report is read-only: it never changes engine behavior.
package security
