package ui

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"walldo/pkg/config"
	"walldo/pkg/errors"
	"walldo/pkg/events"
)

const appName = "walldo"

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name="+appName, title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("%s").Show($toast)
	`, xmlEscape(title), xmlEscape(message), appName)

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

func xmlEscape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

// platformSender picks the desktop sender for the running OS, or nil
func platformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return &LinuxNotificationSender{}
	case "darwin":
		return &MacOSNotificationSender{}
	case "windows":
		return &WindowsNotificationSender{}
	default:
		return nil
	}
}

// Notifier prints notifications to the console and, when it has a sender,
// also raises them on the desktop
type Notifier struct {
	out    io.Writer
	sender NotificationSender
}

// NewNotifier creates a console-only notifier, or a desktop one when
// desktop is set and the platform is supported
func NewNotifier(desktop bool) *Notifier {
	n := &Notifier{out: os.Stdout}
	if desktop {
		n.sender = platformSender()
	}
	return n
}

// NewNotifierWithSender creates a notifier with an explicit sender and
// console writer; sender may be nil
func NewNotifierWithSender(out io.Writer, sender NotificationSender) *Notifier {
	return &Notifier{out: out, sender: sender}
}

// SendNotification sends a desktop notification and prints to console
func (n *Notifier) SendNotification(title, message string) {
	fmt.Fprintf(n.out, "\n%s: %s\n", Cyan(title), Yellow(message))
	n.send(title, message)
}

// SendError sends an error notification
func (n *Notifier) SendError(title, message string) {
	fmt.Fprintf(n.out, "\n%s: %s\n", Red(title), Red(message))
	n.send(title, message)
}

// SendSuccess sends a success notification
func (n *Notifier) SendSuccess(title, message string) {
	fmt.Fprintf(n.out, "\n%s: %s\n", Green(title), Green(message))
	n.send(title, message)
}

func (n *Notifier) send(title, message string) {
	if n.sender != nil {
		// Desktop notifications are best effort
		_ = n.sender.Send(title, message)
	}
}

// RunNotifier raises a notification when a run ends, honoring the
// on_complete and on_error preferences
type RunNotifier struct {
	events.NopObserver
	notifier   *Notifier
	onComplete bool
	onError    bool
}

// NewRunNotifier returns a nil Observer when notifications are disabled,
// so the result can be handed straight to events.NewMulti
func NewRunNotifier(cfg config.NotificationConfig) events.Observer {
	kind := strings.ToLower(cfg.NotificationType)
	if !cfg.Enabled || kind == "none" {
		return nil
	}
	return NewRunNotifierWith(NewNotifier(kind == "desktop"), cfg)
}

// NewRunNotifierWith wraps an existing notifier
func NewRunNotifierWith(n *Notifier, cfg config.NotificationConfig) *RunNotifier {
	return &RunNotifier{notifier: n, onComplete: cfg.OnComplete, onError: cfg.OnError}
}

func (r *RunNotifier) RunFinished(run events.Run) {
	subject := run.Keyword
	if subject == "" {
		subject = "import"
	}

	if run.Err == nil {
		if r.onComplete {
			r.notifier.SendSuccess(appName+": done", fmt.Sprintf("%d images for %q (%.2f MiB)",
				run.Stats.ImagesDownloaded, subject, run.Stats.MegaBytes()))
		}
		return
	}

	if !r.onError {
		return
	}
	var crossed *errors.MaxRetriesCrossed
	if stderrors.As(run.Err, &crossed) {
		r.notifier.SendNotification(appName+": partial", fmt.Sprintf("%d of %d images for %q after %d rounds",
			crossed.Got, crossed.Wanted, subject, crossed.Retries))
		return
	}
	r.notifier.SendError(appName+": failed", fmt.Sprintf("%q: %v", subject, run.Err))
}
