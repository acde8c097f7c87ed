/*
Package session serializes access to session state.

Every read-modify-write of a SessionState runs under a per-session lock. Locks are
reference counted and dropped once unused. An optional DistributedLocker extends the
guarantee across replicas sharing a store.
*/
package session
