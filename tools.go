//go:build tools
// +build tools

// Package tools pins the code generators used through go generate,
// mockgen for the doubles in mocks/.
package chat_room

import (
	_ "go.uber.org/mock/mockgen"
)
