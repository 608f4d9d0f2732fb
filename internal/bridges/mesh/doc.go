// Package mesh bridges the hub's entity model onto a smart-home mesh
// protocol's device model.
//
// The package owns three engines and one orchestrator:
//
//   - Classification (classify.go, rules.go): maps one hub device with
//     its owned entities, or one standalone entity, onto a Shape — the
//     build-time accumulator of sub-endpoints, mesh device types,
//     clusters and default attribute values. Driven by an ordered rule
//     table keyed on (domain, device class, state class); control
//     domains match before passive domains.
//   - Translation (translate.go): pure bidirectional value codecs
//     between hub attribute encodings and mesh cluster encodings
//     (brightness/level, Celsius/hundredths, mireds/Kelvin, enum
//     remaps, composite colour).
//   - Command routing (commands.go): converts inbound mesh commands
//     into hub service calls via the reverse codecs.
//
// The mesh device runtime itself — endpoint lifecycle, attribute
// storage, protocol framing and security — is an external collaborator
// behind the Runtime interface; this package only calls its
// construction and mutation primitives.
package mesh
