// Package upnp controls UPnP/DLNA media renderers.
//
// Connect fetches the device description, strips namespaces and records the
// control URLs of the RenderingControl and AVTransport services. Capabilities
// follow from what the device offers:
//   - volume when RenderingControl is present
//   - playback and now_playing when AVTransport is present
//   - power always, though only "get" works (it reports reachability)
//
// Actions are SOAP 1.1 POSTs. Single values are pulled out of responses
// with a tag regex rather than a full XML parse, so vendor namespace quirks
// do not matter.
package upnp
