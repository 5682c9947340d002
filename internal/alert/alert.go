// Copyright 2020 The go-lpc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package alert sends mail notifications about links aborting their
// decoding on errors.
package alert // import "github.com/go-lpc/gbt/internal/alert"

import (
	"crypto/tls"
	"fmt"
	"strings"
	"sync"

	"github.com/go-daq/tdaq/log"
	"github.com/go-lpc/gbt/config"
	"github.com/go-lpc/gbt/link"
	mail "gopkg.in/gomail.v2"
)

// MaxAlerts is the maximal number of alerts sent for a given link.
const MaxAlerts = 5

// Notifier mails an alert when the number of aborts of a link reaches
// the configured threshold.
type Notifier struct {
	cfg  config.Alert
	name string
	msg  log.MsgStream
	send func(m *mail.Message) error

	mu    sync.Mutex
	sent  map[uint16]int // alerts sent per FEE id
	nerrs int
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithSender sends the alerts through s instead of dialing the SMTP server.
func WithSender(s mail.Sender) Option {
	return func(n *Notifier) {
		n.send = func(m *mail.Message) error { return mail.Send(s, m) }
	}
}

// WithMsgStream sets the stream where failures to send alerts are reported.
func WithMsgStream(msg log.MsgStream) Option {
	return func(n *Notifier) {
		n.msg = msg
	}
}

// New creates a notifier for the process name.
// New returns nil when no SMTP server is configured.
func New(name string, cfg config.Alert, opts ...Option) *Notifier {
	if cfg.SMTP == "" {
		return nil
	}
	n := &Notifier{
		cfg:  cfg,
		name: name,
		msg:  log.NewMsgStream("alert", log.LvlInfo, nil),
		sent: make(map[uint16]int),
	}
	dial := mail.NewDialer(cfg.SMTP, cfg.Port, cfg.User, cfg.Password)
	dial.TLSConfig = &tls.Config{
		InsecureSkipVerify: true,
	}
	n.send = func(m *mail.Message) error { return dial.DialAndSend(m) }
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// LinkAborted notifies an abort of the link l.
// It is a no-op on a nil Notifier.
func (n *Notifier) LinkAborted(l *link.Link) {
	if n == nil {
		return
	}
	st := l.Stat()
	if st.NAborts < n.cfg.Threshold {
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.sent[l.FEE] >= MaxAlerts {
		return
	}
	n.sent[l.FEE]++

	body := new(strings.Builder)
	fmt.Fprintf(body, "%s aborted %d times (threshold: %d).\n", l.Describe(), st.NAborts, n.cfg.Threshold)
	fmt.Fprintf(body, "HBF: %v, status in TF: %v\n\n", l.HBFIR(), l.StatusInTF)
	st.Print(body, false)

	msg := mail.NewMessage()
	msg.SetHeader("From", n.cfg.From)
	msg.SetHeader("Bcc", n.cfg.To...)
	msg.SetHeader("Subject", fmt.Sprintf("[%s] link abort: FEE 0x%04x", n.name, l.FEE))
	msg.SetBody("text/plain", body.String())

	err := n.send(msg)
	if err != nil {
		n.nerrs++
		n.msg.Warnf("could not send mail alert for %s: %+v", l.Describe(), err)
	}
}

// Sent returns the number of alerts sent for the FEE id fee.
func (n *Notifier) Sent(fee uint16) int {
	if n == nil {
		return 0
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[fee]
}
