// Package events implements the JSON wire protocol between client and server.
// Every message is a single JSON object with a discriminating "type" field.
// Client events are parsed into a closed tagged union with shape validation;
// server events are the outbound counterparts.
package events
