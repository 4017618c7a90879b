// Package aisstream is a client for the aisstream.io websocket feed.
//
// A connection carries exactly one subscription, sent right after the
// handshake. Inbound frames are returned raw by Conn.Next and decoded with
// ParseMessage.
package aisstream
