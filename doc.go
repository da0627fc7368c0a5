// Copyright 2017 Aleksandr Demakin. All rights reserved.

// Package mailslot implements a named, unidirectional, message-oriented
// ipc primitive. A mailslot has exactly one reader, which creates and
// owns it, and any number of writers, which attach to it by name.
// Messages are discrete datagrams; boundaries are preserved.
// The reader does not block: it queues asynchronous wait-for-message
// requests, which are completed in fifo order as messages arrive,
// or expire, or get cancelled.
// Writer admission follows windows sharing rules: a write-capable
// attachment may coexist with others only if every write-capable party
// opted into shared writing.
// Mailslots are process-scoped; nothing survives process restart.
package mailslot
