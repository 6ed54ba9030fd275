// Copyright 2024-2026 Remi Philippe
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package relay implements the cross-guild replication core: the inbound
// event union, the relay resolver, the pairing confirmation state machine
// and the orchestrator gluing them to the pairing store and the gateway.
//
// # Core Types
//
// [Relayer] is the replication orchestrator. It consumes [Event] values
// (delivered concurrently by a gateway adapter), resolves which remote
// containers should receive a copy of new content, and drives pairing
// proposals from creation through acceptance or rejection.
//
// [Gateway] is the outbound side of the transport: sending text, reacting,
// deleting messages and creating forum posts. The relay core never talks
// to a chat network directly.
//
// # Pairing Lifecycle
//
// A pair declaration (operator command) alone relays nothing. When a
// container is created under a declared pair, the Relayer records a
// pairing reply, posts a confirmation prompt and attaches accept/reject
// reaction affordances. Only the container's owner may decide. Acceptance
// activates the pairing; for forum-origin proposals it also creates the
// remote post and reciprocal thread pair rows. Rejection, or the owner
// withdrawing an affordance reaction, is terminal.
//
// Concurrent accept/reject signals are resolved by the store's
// conditional status update: the losing signal affects zero rows and is
// dropped, never overwriting the winner.
package relay
