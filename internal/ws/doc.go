// Package ws provides room-scoped fan-out and WebSocket transport for chat
// connections.
//
// The package implements:
//   - Hub: the broadcast group of one room
//   - RoomHub: concurrency-safe map of room name to Hub
//   - RedisRelay: Broadcaster that fans events out through Redis pub/sub
//   - Client: buffered WebSocket transport with read and write pumps
//   - OriginChecker: allow-list for the WebSocket upgrade
//
// Broadcasts to one room are delivered in call order. Delivery to a member is
// a non-blocking enqueue, so a stalled connection never stalls the others.
package ws
