// Package control defines the device-control model shared by every adapter.
//
// A Device exposes Capabilities (volume, power, playback, ...). Each
// capability lists the actions it supports and the Parameters those actions
// take. Callers invoke an action with Execute and always get an ActionResult
// back; unreachable devices, malformed responses and bad arguments are
// reported as failed results rather than errors or panics.
//
// Adapters build on Base. They declare a catalog of every capability they
// may expose plus a Handlers table (capability → action → Handler), and
// NewBase rejects a table that does not match the catalog. Connect then
// selects which catalog entries the live device actually offers.
//
// Arguments are validated against the capability's parameters before any
// handler runs:
//
//	res := dev.Execute(ctx, "volume", "set", control.Args{"level": 30})
//	if !res.Success {
//	    fmt.Println("Command failed:", res.Error)
//	}
//
// Session is the owned device cache used by the CLI. It indexes devices by
// normalised name and by IP, and can fall back to a saved-device address
// book and a targeted discovery when a name is not cached.
package control
