package mqtt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewClientRejectsNonMqttScheme(t *testing.T) {
	_, err := NewClient(Config{ServerURL: "http://localhost:1883", ClientID: "test"})
	require.Error(t, err)
}

func TestNewClientRejectsInvalidURL(t *testing.T) {
	_, err := NewClient(Config{ServerURL: "://bad", ClientID: "test"})
	require.Error(t, err)
}

func TestDisconnectOnNilClientIsNoop(t *testing.T) {
	var c Client
	c.Disconnect(0) // must not panic
	require.False(t, c.IsConnected())
}
