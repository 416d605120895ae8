package types

// Version is the canonical project version.
// The server, the CLI and the stream wire format share this version.
const Version = "0.1.0"
