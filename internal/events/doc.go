// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

// Package events delivers auth domain events to downstream consumers.
//
// Each topic maps to a durable queue of the same name on the default
// exchange. Payloads are JSON and published as persistent messages.
package events
