package server

// Server defines the common lifecycle contract for transport servers managed
// by this package.
//
// Implementations are expected to block in [RunServer] until shutdown is
// requested and to release resources in [Shutdown].
type Server interface {
	// RunServer starts serving requests and blocks until the server stops.
	RunServer()

	// Shutdown gracefully stops the server and frees associated resources.
	Shutdown()
}

// ConnectionDrainer is implemented by the gateway: on shutdown every live
// realtime connection is unregistered so peers get a clean close instead of
// a dropped socket.
type ConnectionDrainer interface {
	Shutdown()
}
