// Package provider defines the AI provider interface and implementations.
package provider

import "github.com/ZaguanLabs/slanger"

// AIProvider is the interface for AI interpretation backends.
// This is an alias to the main package interface for convenience.
type AIProvider = slanger.AIProvider

// Request is an alias to the main package type.
type Request = slanger.Request
