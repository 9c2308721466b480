// Package pv provides access to live control-system variables.
//
// A variable (PV) is a named data point exposed by a gateway service:
// it can be monitored for value and connection-state changes, read, and
// written. The Provider interface is what the rest of the dashboard
// programs against; Gateway is the production implementation, speaking
// the protocol package's JSON envelope over a single websocket
// connection.
//
// # Wire protocol
//
// Every message is a JSON object with an "op" field. Client to gateway:
//
//	{"op":"monitor","sub":1,"pv":"PS1:CURRENT"}
//	{"op":"unmonitor","sub":1}
//	{"op":"put","req":7,"pv":"PS1:SETPOINT","value":12.5}
//	{"op":"get","req":8,"pv":"PS1:SETPOINT"}
//
// Gateway to client:
//
//	{"op":"conn","sub":1,"conn":true,"precision":3,"units":"A"}
//	{"op":"update","sub":1,"value":12.5,"text":"12.5"}
//	{"op":"result","req":7,"ok":true}
//
// Enumerated variables carry their string table in the "enums" field of
// the first conn message; updates for them put the decoded label in
// "text" and the index in "value".
//
// # Delivery model
//
// All asynchronous notifications arrive on one channel (Events), in
// arrival order, from a single reader goroutine. The gateway never calls
// back into the consumer, so a consumer that drains the channel from one
// loop keeps single-writer discipline over its own state without locks.
//
// Transport loss is surfaced as a disconnected event per live
// subscription; the connection is re-established in the background with
// capped exponential backoff and every monitor is re-issued.
package pv
