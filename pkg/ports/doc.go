/*
Package ports defines the driven ports (interfaces) of the course assistant.

These interfaces decouple the dialogue flow from storage and coordination backends.

# Key Interfaces

  - StateStore: persists and loads the SessionState of each session.
  - DistributedLocker: serializes access to a session across replicas.
*/
package ports
