// Package domain contains core concepts of the chat system.
// This file defines Participant entities and related invariants.
// No runtime, network, or UI logic should be added here.
package domain

import "time"

// Participant is a durable chat identity.
// It is created once, never deleted, and its name is not changed server-side.
type Participant struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Sender is the compact participant view attached to chat messages.
type Sender struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UnknownSenderName labels messages whose author record cannot be found.
const UnknownSenderName = "Unknown participant"

func (p Participant) AsSender() Sender {
	return Sender{ID: p.ID, Name: p.DisplayName}
}
