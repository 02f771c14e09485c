package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/FranksOps/procura/internal/notify"
	"github.com/FranksOps/procura/internal/report"
)

func consoleStyles() report.Styles {
	heading := color.New(color.FgCyan, color.Bold)
	good := color.New(color.FgGreen, color.Bold)
	bad := color.New(color.FgRed, color.Bold)
	return report.Styles{
		Heading: func(s string) string { return heading.Sprint(s) },
		Good:    func(s string) string { return good.Sprint(s) },
		Bad:     func(s string) string { return bad.Sprint(s) },
	}
}

// emit writes v to w in the selected format and, with --email, mails it.
// A mail failure is logged and does not fail the command.
func (a *app) emit(w io.Writer, subject string, v any) error {
	format, err := report.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	if format == report.FormatText {
		styles := report.Styles{}
		if f, ok := w.(*os.File); ok && f == os.Stdout && !color.NoColor {
			styles = consoleStyles()
		}
		err = report.WriteText(w, v, styles)
	} else {
		err = report.Write(w, format, v)
	}
	if err != nil {
		return err
	}

	if emailReport {
		if err := a.mail(subject, v); err != nil {
			a.logger.Warn("report not mailed", "err", err)
		}
	}
	return nil
}

var errSMTPIncomplete = errors.New("--email needs smtp.server, smtp.port, smtp.from and smtp.to")

func (a *app) mail(subject string, v any) error {
	smtp := a.cfg.SMTP
	if !smtp.Complete() {
		return errSMTPIncomplete
	}

	msg, err := notify.Render(subject, v)
	if err != nil {
		return fmt.Errorf("render email: %w", err)
	}
	sender := notify.NewEmailSender(notify.EmailConfig{
		SMTPServer: smtp.Server,
		SMTPPort:   smtp.Port,
		SMTPUser:   smtp.User,
		SMTPPass:   smtp.Pass,
		FromEmail:  smtp.From,
		ToEmails:   smtp.To,
	}, a.logger)
	return sender.Send(msg)
}
