// Package newcamd implements a card-sharing gateway that speaks the Newcamd
// wire protocol: it authenticates clients, receives ECMs, decrypts them with
// per-account keys, and returns control words.
//
// The package is organized the way the protocol itself is layered:
//
//   - crypto.go, md5crypt.go: DES, DES-EDE2-CBC, the 14→16 key spread, and
//     MD5-crypt password verification (C1).
//   - handshake.go, frame.go: the length-prefixed encrypted frame format and
//     the cleartext handshake that derives the initial cipher key (C2).
//   - ecm.go: CAID-family ECM decoders and the decoder registry (C3).
//   - cache.go: the fixed-bucket CW cache (C4).
//   - failban.go: per-IP authentication failure tracking (C5).
//   - account.go, store.go: account records and the reload-safe store (C6).
//   - client.go, conn.go: per-connection state and the command dispatch
//     loop (C7).
//   - server.go: the accept loop and connection supervisor (C8).
package newcamd
