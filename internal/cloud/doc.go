// Package cloud is the vendor cloud collaborator for FanBridge.
//
// It owns everything transport-level that the sync engine treats as given:
// authentication, device enumeration, and the persistent bidirectional
// message channel.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────┐
//	│                        cloud package                        │
//	│                                                             │
//	│  ┌──────────────┐   ┌──────────────┐   ┌────────────────┐  │
//	│  │    Client    │   │   ListFans   │   │    Channel     │  │
//	│  │  (auth.go)   │──▶│ (devices.go) │   │ (channel.go)   │  │
//	│  │              │   │              │   │                │  │
//	│  │ • Login      │   │ • Descriptors│   │ • websocket    │  │
//	│  │ • MD5 digest │   │ • Initial    │   │ • reconnect    │  │
//	│  │ • API calls  │   │   snapshots  │   │ • ping loop    │  │
//	│  └──────────────┘   └──────────────┘   └────────────────┘  │
//	└────────────────────────────────────────────────────────────┘
//	         │                   │                    │
//	         ▼                   ▼                    ▼
//	   Vendor REST API     dreo.NewBridge        dreo.Mux
//	                       (per device)      (HandleMessage)
//
// # Startup Sequence
//
//  1. NewClient + Login exchange credentials for an access token. The
//     vendor API requires the legacy MD5 password digest on the wire.
//  2. ListFans enumerates the account's fans, yielding a device.Descriptor
//     and an initial dreo.State per device.
//  3. DialChannel opens the websocket. The mux's HandleMessage is
//     registered once via SetOnMessage and stays registered across
//     reconnects, which the channel handles internally with exponential
//     backoff.
//
// # Key Behaviours
//
//   - Send fails with ErrNotConnected while the channel is down; callers
//     treat that like any other transport failure (fire-and-forget, no
//     retry).
//   - Frames are delivered to the callback in arrival order from a single
//     read loop.
//   - The channel pings the peer every 30s and declares the connection
//     dead after 90s of silence.
package cloud
