package mcptools

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewNewsroomMCPServerRegistersTools(t *testing.T) {
	svc, _ := testService(t)

	server := NewNewsroomMCPServer(svc)
	require.NotNil(t, server)
}
