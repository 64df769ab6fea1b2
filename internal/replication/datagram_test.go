package replication

import (
	"strings"
	"testing"

	"steerd.dev/steerd/internal/logging"
)

func TestDatagramSendRejectsOversizeMessage(t *testing.T) {
	tr, err := newDatagramTransport("127.0.0.1", 0, false, nil, logging.Default())
	if err != nil {
		t.Fatalf("newDatagramTransport: %v", err)
	}
	defer tr.Close()

	big := strings.Repeat("x", maxDatagramSize+1)
	err = tr.Send("probe", map[string]string{"data": big})
	if err == nil {
		t.Fatal("expected error for oversize datagram")
	}
}
