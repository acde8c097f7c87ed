/*
Package flow implements the conversation flow state machine.

Three node builders turn a SessionState into a DialogueNode:

	initial            welcome script + record_topic_interest (enumerated to remaining topics)
	questions          persona + reference text, go_back_to_topics and exit_conversation
	exit_conversation  farewell script, no functions, end_conversation post-action

Transition handlers are resolved from a FunctionName through a fixed dispatch table.
Each handler mutates the SessionState it is given, reports state changes through an
explicit Notifier, and returns the node to activate next:

	initial   --record_topic_interest--> questions
	questions --go_back_to_topics-->     initial
	questions --exit_conversation-->     exit_conversation (terminal)

exit_conversation is accepted from any node even though only the questions node
advertises it.

A Flow holds no per-session data. Callers own one SessionState per session and must
not dispatch concurrently for the same session.
*/
package flow
