//go:build windows

package notify

import (
	"fmt"
	"os/exec"
	"strings"
)

type toastSender struct{}

// NewSender creates the Windows toast notification backend.
func NewSender() Sender { return &toastSender{} }

// Send raises a balloon tip via PowerShell. Toast APIs proper need an
// AppUserModelID registration; the balloon path works from a plain exe.
func (toastSender) Send(n Notification) error {
	script := fmt.Sprintf(`
Add-Type -AssemblyName System.Windows.Forms
$b = New-Object System.Windows.Forms.NotifyIcon
$b.Icon = [System.Drawing.SystemIcons]::Information
$b.Visible = $true
$b.ShowBalloonTip(%d, %q, %q, [System.Windows.Forms.ToolTipIcon]::Info)
Start-Sleep -Seconds %d
$b.Dispose()`,
		int(n.Duration.Milliseconds()), sanitize(n.Title), sanitize(n.Message),
		int(n.Duration.Seconds())+1)
	cmd := exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("powershell toast: %w", err)
	}
	return nil
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, "`", "'")
}
