// CamSentry - Multi-Tenant CCTV Monitoring and Emergency Response
// Copyright 2026 CamSentry Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/camsentry/camsentry

// Package models defines the domain types shared across the detection
// pipeline: detections, events, alerts, notifications, emergency incidents
// and their audit log.
//
// The types here are plain data carriers. Lifecycle rules (immutability of
// events, resolve-once alerts, append-only response logs) are enforced by
// the stores and services that own them, not by the types themselves.
package models
