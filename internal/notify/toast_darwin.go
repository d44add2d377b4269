//go:build darwin

package notify

import (
	"fmt"
	"os/exec"
	"strings"
)

type toastSender struct{}

// NewSender creates the macOS notification backend.
func NewSender() Sender { return &toastSender{} }

func (toastSender) Send(n Notification) error {
	script := fmt.Sprintf("display notification %q with title %q",
		sanitize(n.Message), sanitize(n.Title))
	if err := exec.Command("osascript", "-e", script).Run(); err != nil {
		return fmt.Errorf("osascript: %w", err)
	}
	return nil
}

func sanitize(s string) string {
	return strings.NewReplacer(`"`, "'", "\\", "").Replace(s)
}
