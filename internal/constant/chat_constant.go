package constant

const (
	// DegradedServiceReply is returned verbatim when the model boundary
	// fails. Stable and non-leaking: internal detail goes to the logs.
	DegradedServiceReply = "I'm having trouble reaching my language model right now. Please try again in a moment."

	// BaseSystemInstructions opens every assembled system prompt.
	BaseSystemInstructions = `You are a helpful assistant. Answer using the conversation history and any reference material provided below. When reference material is present, ground your answer in it and say so when it does not cover the question. Be concise and direct.`
)
