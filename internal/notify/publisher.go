package notify

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/mindscrole/reelscribe/internal/job"
	"github.com/mindscrole/reelscribe/internal/metrics"
	"github.com/rs/zerolog"
)

const publishTimeout = 5 * time.Second

// Publisher sends Job progress events to an MQTT broker:
//
//	<topic>/<job_id>/progress   every stage transition
//	<topic>/<job_id>/status     terminal stage, retained
type Publisher struct {
	conn      mqtt.Client
	topic     string
	connected atomic.Bool
	log       zerolog.Logger

	publish func(topic string, retained bool, payload []byte) error
}

type Options struct {
	BrokerURL string
	ClientID  string
	Topic     string
	Username  string
	Password  string
	Log       zerolog.Logger
}

func Connect(opts Options) (*Publisher, error) {
	p := &Publisher{
		topic: normalizeTopic(opts.Topic),
		log:   opts.Log,
	}

	clientOpts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOrderMatters(true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(p.onConnectionLost)

	if opts.Username != "" {
		clientOpts.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		clientOpts.SetPassword(opts.Password)
	}

	p.conn = mqtt.NewClient(clientOpts)
	token := p.conn.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, err
	}

	p.publish = func(topic string, retained bool, payload []byte) error {
		t := p.conn.Publish(topic, 1, retained, payload)
		if !t.WaitTimeout(publishTimeout) {
			return fmt.Errorf("publish to %s timed out", topic)
		}
		return t.Error()
	}
	return p, nil
}

func (p *Publisher) onConnect(_ mqtt.Client) {
	p.connected.Store(true)
	p.log.Info().Str("topic", p.topic).Msg("mqtt connected")
}

func (p *Publisher) onConnectionLost(_ mqtt.Client, err error) {
	p.connected.Store(false)
	p.log.Warn().Err(err).Msg("mqtt connection lost, will auto-reconnect")
}

// Publish sends ev. It satisfies job.ProgressFunc; failures are logged and
// never affect the Job.
func (p *Publisher) Publish(ev job.Progress) {
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Error().Err(err).Msg("encode progress event")
		return
	}

	topic := p.progressTopic(ev.JobID)
	if err := p.publish(topic, false, payload); err != nil {
		p.log.Warn().Err(err).Str("job_id", ev.JobID).Msg("progress publish failed")
		return
	}
	metrics.ProgressEventsPublishedTotal.Inc()

	if ev.Stage.Terminal() {
		if err := p.publish(p.statusTopic(ev.JobID), true, payload); err != nil {
			p.log.Warn().Err(err).Str("job_id", ev.JobID).Msg("status publish failed")
		}
	}
}

func (p *Publisher) IsConnected() bool {
	return p.connected.Load()
}

func (p *Publisher) Close() {
	p.log.Info().Msg("disconnecting mqtt client")
	p.conn.Disconnect(1000)
}

func (p *Publisher) progressTopic(jobID string) string {
	return p.topic + "/" + jobID + "/progress"
}

func (p *Publisher) statusTopic(jobID string) string {
	return p.topic + "/" + jobID + "/status"
}

// normalizeTopic strips wildcards and surrounding slashes; publishing to a
// filter is invalid.
func normalizeTopic(raw string) string {
	t := strings.Trim(strings.TrimSpace(raw), "/")
	t = strings.NewReplacer("#", "", "+", "").Replace(t)
	t = strings.Trim(t, "/")
	if t == "" {
		return "reelscribe/jobs"
	}
	return t
}
