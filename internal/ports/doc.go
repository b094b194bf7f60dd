// Package ports defines the interfaces (ports) that connect the custody
// manager to infrastructure adapters.
//
// Ports are the boundary between the custody core and the execution
// environment around it. They say what the core needs without saying how
// the need is met.
//
// # Port Interfaces
//
//   - [StorageProvider]: allocates, reads and writes fixed-size records by address
//   - [AuthorityVerifier]: decides whether a caller may act on a record
//   - [ExecutorChannel]: supplies the value a delegated executor is committing
//   - [Logger]: structured logging abstraction
//
// # Usage
//
// The application layer (internal/app) depends only on these interfaces.
// Adapters (internal/adapters) implement them over a datastore, the file
// system, SQLite, zerolog and a simulated ephemeral executor.
package ports
