// Package chat answers user queries grounded in stored meeting transcripts.
// The coordinator serializes queries per session, retrieves relevant
// excerpts from the meeting store, and streams completion deltas from an
// OpenAI-compatible backend while maintaining the conversation history.
package chat
