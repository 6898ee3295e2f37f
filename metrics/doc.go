// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package metrics declares the Prometheus collectors exported on /metrics.
// All collectors register with the default registry at init.
package metrics
