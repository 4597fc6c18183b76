package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mindscrole/reelscribe/internal/job"
	"github.com/mindscrole/reelscribe/internal/metrics"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// StreamPublisher sends Job progress events to NATS subjects:
//
//	<subject>.<job_id>.progress   every stage transition
//	<subject>.<job_id>.status     terminal stage
type StreamPublisher struct {
	conn    *nats.Conn
	subject string
	log     zerolog.Logger

	publish   func(subject string, payload []byte) error
	connected func() bool
}

type StreamOptions struct {
	URL            string
	Subject        string
	Token          string
	Username       string
	Password       string
	ConnectTimeout time.Duration
	Log            zerolog.Logger
}

// ConnectStream dials the NATS servers in opts.URL (comma separated).
func ConnectStream(opts StreamOptions) (*StreamPublisher, error) {
	url := strings.TrimSpace(opts.URL)
	if url == "" {
		return nil, errors.New("no NATS servers configured")
	}
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	p := &StreamPublisher{
		subject: normalizeSubject(opts.Subject),
		log:     opts.Log,
	}

	options := []nats.Option{
		nats.Name("reelscribe"),
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			p.log.Warn().Err(err).Msg("nats disconnected, will auto-reconnect")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			p.log.Info().Str("server", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	}
	if opts.Username != "" || opts.Password != "" {
		options = append(options, nats.UserInfo(opts.Username, opts.Password))
	}
	if opts.Token != "" {
		options = append(options, nats.Token(opts.Token))
	}

	conn, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	p.conn = conn
	p.publish = conn.Publish
	p.connected = func() bool { return conn.Status() == nats.CONNECTED }

	p.log.Info().Str("servers", url).Str("subject", p.subject).Msg("nats connected")
	return p, nil
}

// Publish sends ev. It satisfies job.ProgressFunc; failures are logged and
// never affect the Job.
func (p *StreamPublisher) Publish(ev job.Progress) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Msg("encode progress event")
		return
	}

	if err := p.publish(p.subject+"."+ev.JobID+".progress", payload); err != nil {
		p.log.Warn().Err(err).Str("job_id", ev.JobID).Msg("progress publish failed")
		return
	}
	metrics.ProgressEventsPublishedTotal.Inc()

	if ev.Stage.Terminal() {
		if err := p.publish(p.subject+"."+ev.JobID+".status", payload); err != nil {
			p.log.Warn().Err(err).Str("job_id", ev.JobID).Msg("status publish failed")
		}
	}
}

func (p *StreamPublisher) IsConnected() bool {
	return p != nil && p.connected != nil && p.connected()
}

// Close flushes pending messages and closes the connection.
func (p *StreamPublisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	p.log.Info().Msg("closing nats connection")
	if err := p.conn.Drain(); err != nil {
		p.log.Warn().Err(err).Msg("nats drain")
	}
	p.conn.Close()
}

// normalizeSubject strips wildcards and empty tokens; publishing to a
// wildcard subject is invalid.
func normalizeSubject(raw string) string {
	var tokens []string
	for _, t := range strings.Split(strings.TrimSpace(raw), ".") {
		t = strings.NewReplacer("*", "", ">", "", " ", "").Replace(t)
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return "reelscribe.jobs"
	}
	return strings.Join(tokens, ".")
}
