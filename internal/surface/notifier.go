package surface

import (
	"bytes"
	"context"
	_ "embed"
	"html/template"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

// Notice is a fatal condition reported to the user.
type Notice struct {
	Title   string
	Message string
	Detail  string
	Err     error
}

// Notifier surfaces fatal conditions to the user.
type Notifier interface {
	// Notify reports n and blocks until the user acknowledged
	// it or ctx is done.
	Notify(ctx context.Context, n Notice)
}

//go:embed assets/error.html
var errorPage string

var errorTemplate = template.Must(template.New("error").Parse(errorPage))

func renderNotice(n Notice) ([]byte, error) {
	var buf bytes.Buffer
	if err := errorTemplate.Execute(&buf, n); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// MARK: - log

type LogNotifier struct {
	log *zap.Logger
}

var _ Notifier = (*LogNotifier)(nil)

// NewLogNotifier returns a notifier that only logs and reports notices.
func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log.Named("notifier")}
}

func (n *LogNotifier) Notify(_ context.Context, notice Notice) {
	report(n.log, notice)
}

// MARK: - dialog

type DialogNotifier struct {
	timeout time.Duration
	launch  windowLauncher
	log     *zap.Logger
}

var _ Notifier = (*DialogNotifier)(nil)

// NewDialogNotifier returns a notifier that shows notices in a small
// browser window. Notices are still logged if no window can be opened.
func NewDialogNotifier(config Config, log *zap.Logger) *DialogNotifier {
	return newDialogNotifier(config, launchLorca, log)
}

func newDialogNotifier(config Config, launch windowLauncher, log *zap.Logger) *DialogNotifier {
	timeout := config.DialogTimeout
	if timeout <= 0 {
		timeout = defaultDialogTimeout
	}

	return &DialogNotifier{
		timeout: timeout,
		launch:  launch,
		log:     log.Named("notifier"),
	}
}

func (n *DialogNotifier) Notify(ctx context.Context, notice Notice) {
	report(n.log, notice)

	page, err := renderNotice(notice)
	if err != nil {
		n.log.Error("failed to render notice", zap.Error(err))
		return
	}

	win, err := n.launch(dataURL(page), "", 560, 360)
	if err != nil {
		n.log.Warn("failed to open dialog", zap.Error(err))
		return
	}
	defer win.Close()

	timer := time.NewTimer(n.timeout)
	defer timer.Stop()

	select {
	case <-win.Done():
	case <-ctx.Done():
	case <-timer.C:
	}
}

func report(log *zap.Logger, notice Notice) {
	log.Error(notice.Title,
		zap.String("message", notice.Message),
		zap.String("detail", notice.Detail),
		zap.Error(notice.Err),
	)

	if notice.Err != nil {
		sentry.CaptureException(notice.Err)
	}
}
