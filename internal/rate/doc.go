// Package rate enforces fixed-window login attempt limits using Redis
// counters keyed by identifier and, optionally, by client IP.
package rate
