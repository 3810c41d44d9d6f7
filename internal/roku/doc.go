// Package roku controls Roku players through the External Control
// Protocol, a small REST API on port 8060.
//
// Most actions are remote key presses (POST /keypress/{key}). Apps are
// listed from /query/apps and launched with POST /launch/{id}.
package roku
