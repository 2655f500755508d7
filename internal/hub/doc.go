// Package hub owns the registry of live dashboard connections and fans
// broadcast events out to all of them.
//
// The registry is mutated only by the hub's single command loop, so no
// locking is needed; Register, Unregister, Publish and ClientCount are
// safe to call from any goroutine.
package hub
