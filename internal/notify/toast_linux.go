//go:build linux

package notify

import (
	"fmt"
	"os/exec"
	"strconv"
)

type toastSender struct{}

// NewSender creates the Linux desktop notification backend.
func NewSender() Sender { return &toastSender{} }

func (toastSender) Send(n Notification) error {
	ms := int(n.Duration.Milliseconds())
	if ms <= 0 {
		ms = 5000
	}
	cmd := exec.Command("notify-send", "--expire-time", strconv.Itoa(ms), n.Title, n.Message)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("notify-send: %w", err)
	}
	return nil
}
