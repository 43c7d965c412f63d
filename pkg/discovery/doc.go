// Package discovery advertises the restriction service over mDNS/DNS-SD.
//
// The service type is _uxr._tcp in the local domain. The instance name is
// configurable and the port is the transport listen port.
//
// # TXT Records
//
//   - mode: "normal" when the loaded mapping table is in use, "fallback"
//     when the built-in default mapping is active
//   - ver: wire protocol version, currently "1"
//
// The mode record is updated in place when the engine changes mode, so
// browsers see the change without the service being re-registered.
//
// Browse and FindFirst locate advertised services for clients.
package discovery
