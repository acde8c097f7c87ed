/*
Package courseflow is the dialogue flow of a voice course assistant.

A spoken conversation is driven by a language model that needs, at every moment, one
active node: role instructions, a task, and the functions it may call. courseflow
owns those nodes and the session state behind them, and tells a display client which
course topics were discussed.

# Flow

	initial ──record_topic_interest──▶ questions ──go_back_to_topics──▶ initial
	                                        │
	                                        └──exit_conversation──▶ exit_conversation

The initial node offers one function, record_topic_interest, whose "topics" argument
only accepts topics that were not discussed yet. The questions node carries the full
course reference and offers go_back_to_topics and exit_conversation. The exit node
asks the host to end the conversation.

# Usage

	app, err := courseflow.New(courseflow.WithLogger(logger))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	node, _ := app.Service.Start(ctx, "session-123")
	// node.Functions is what the model may call.

	node, err = app.Service.Invoke(ctx, "session-123", domain.FunctionCall{
		Name:      domain.FuncRecordTopicInterest,
		Arguments: map[string]any{"topics": []any{"Lectures & Schedule"}},
	})

Transports live under pkg/adapters: an HTTP API with server-sent events and a
websocket bridge, and an MCP server. Session state can be kept in memory, in files or
in Redis.
*/
package courseflow
