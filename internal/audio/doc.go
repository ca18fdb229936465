// Package audio coordinates microphone capture for voice questions.
//
// A Session acquires a capture Device, negotiates an encoding, buffers
// fixed-interval chunks while recording and, on Stop, concatenates them into
// one immutable Blob. Device tracks are released exactly once per session,
// whether the session is stopped or abandoned and closed.
//
// RemoteDevice implements Device for a client that owns the actual
// microphone and talks to the server over a message transport.
package audio
