/*
Package domain contains the core models of the course-assistant dialogue.

It defines the entities of the conversation state machine and is kept free of I/O,
persistence and transport concerns.

# Key Entities

  - SessionState: the mutable dialogue progress of one session (topics discussed,
    responses, current topic and node).
  - DialogueNode: an instruction and capability bundle handed to the model-driving layer.
  - FunctionSpec / FunctionCall: a transition function offered by a node, and an
    intent invoking one.
  - StateSnapshot: the display-ready projection of a SessionState.
*/
package domain
