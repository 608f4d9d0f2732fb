// Package hub implements the client side of the home-automation hub's
// WebSocket API for Gray Logic Mesh.
//
// The hub exposes devices, entities and states over a persistent duplex
// connection carrying JSON-framed messages discriminated by "type". This
// package owns that connection end to end:
//
//   - Client: one authenticated WebSocket session with id-correlated
//     request/response multiplexing, application-level ping/pong keepalive
//     and bounded-retry reconnection.
//   - Registry: the in-memory mirror of the hub's device, entity, state,
//     area and label registries, replaced wholesale from snapshots and
//     push events.
//   - Dispatcher: fan-out of push events to typed signals, with coalescing
//     of bursty registry-changed notifications behind one shared debounce
//     timer.
//
// # Protocol
//
// After the socket opens the hub sends "auth_required"; the client answers
// with "auth" carrying a long-lived access token and receives "auth_ok"
// (with the hub version) or "auth_invalid". Every subsequent command
// carries a per-connection monotonically increasing id, and the hub
// answers with a "result" frame keyed by that id. Asynchronous "event"
// frames deliver state_changed and *_registry_updated pushes.
//
// # Thread Safety
//
// All exported types are safe for concurrent use. Push events are
// dispatched in receipt order from the single read loop.
package hub
