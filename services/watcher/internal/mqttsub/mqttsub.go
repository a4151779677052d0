// Package mqttsub subscribes to the sensor topic filter on an MQTT v5 broker.
package mqttsub

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/paho"
)

// Handler receives every message published on the subscribed filter.
type Handler func(topic string, payload []byte, receivedAt time.Time)

// ErrClosed is returned by Wait when the subscriber was closed normally.
var ErrClosed = errors.New("mqtt subscriber closed")

// Options configures the broker connection.
type Options struct {
	Broker    string
	ClientID  string
	Username  string
	Password  string
	Topic     string
	KeepAlive time.Duration
	Logger    *slog.Logger
}

// Subscriber is a connected, subscribed MQTT client.
type Subscriber struct {
	client *paho.Client
	logger *slog.Logger

	once sync.Once
	done chan error
}

// Subscribe connects to the broker and subscribes to opts.Topic with QoS 1.
// handler runs on the client's receive goroutine.
func Subscribe(ctx context.Context, opts Options, handler Handler) (*Subscriber, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := dial(ctx, opts.Broker)
	if err != nil {
		return nil, err
	}

	s := &Subscriber{logger: logger, done: make(chan error, 1)}
	s.client = paho.NewClient(paho.ClientConfig{
		ClientID: opts.ClientID,
		Conn:     conn,
		OnClientError: func(err error) {
			s.stop(fmt.Errorf("mqtt client error: %w", err))
		},
		OnServerDisconnect: func(d *paho.Disconnect) {
			s.stop(fmt.Errorf("mqtt server disconnected (reason %d)", d.ReasonCode))
		},
	})
	s.client.AddOnPublishReceived(func(pr paho.PublishReceived) (bool, error) {
		handler(pr.Packet.Topic, pr.Packet.Payload, time.Now().UTC())
		return true, nil
	})

	connect := &paho.Connect{
		ClientID:   opts.ClientID,
		KeepAlive:  uint16(opts.KeepAlive / time.Second),
		CleanStart: true,
	}
	if opts.Username != "" {
		connect.Username = opts.Username
		connect.UsernameFlag = true
	}
	if opts.Password != "" {
		connect.Password = []byte(opts.Password)
		connect.PasswordFlag = true
	}

	ack, err := s.client.Connect(ctx, connect)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("mqtt connect %s: %w", opts.Broker, err)
	}
	if ack.ReasonCode != 0 {
		_ = conn.Close()
		return nil, fmt.Errorf("mqtt connect %s: reason code %d", opts.Broker, ack.ReasonCode)
	}

	suback, err := s.client.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: opts.Topic, QoS: 1}},
	})
	if err != nil {
		_ = s.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
		return nil, fmt.Errorf("mqtt subscribe %s: %w", opts.Topic, err)
	}
	if len(suback.Reasons) > 0 && suback.Reasons[0] >= 0x80 {
		_ = s.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
		return nil, fmt.Errorf("mqtt subscribe %s: reason code %d", opts.Topic, suback.Reasons[0])
	}

	logger.Info("subscribed", "broker", opts.Broker, "topic", opts.Topic, "client_id", opts.ClientID)
	return s, nil
}

// Done is closed when the connection is lost; the error describes why.
func (s *Subscriber) Done() <-chan error {
	return s.done
}

// Wait blocks until ctx is done or the connection is lost.
func (s *Subscriber) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err, ok := <-s.done:
		if !ok || err == nil {
			return ErrClosed
		}
		return err
	}
}

// Close disconnects from the broker.
func (s *Subscriber) Close() error {
	s.stop(nil)
	return s.client.Disconnect(&paho.Disconnect{ReasonCode: 0})
}

func (s *Subscriber) stop(err error) {
	s.once.Do(func() {
		if err != nil {
			s.logger.Error("mqtt connection lost", "error", err)
			s.done <- err
		}
		close(s.done)
	})
}

func dial(ctx context.Context, broker string) (net.Conn, error) {
	u, err := url.Parse(broker)
	if err != nil {
		return nil, fmt.Errorf("invalid MQTT broker %q: %w", broker, err)
	}
	host := u.Host
	if host == "" {
		return nil, fmt.Errorf("invalid MQTT broker %q: missing host", broker)
	}

	var useTLS bool
	switch u.Scheme {
	case "tcp", "mqtt":
	case "ssl", "tls", "mqtts":
		useTLS = true
	default:
		return nil, fmt.Errorf("invalid MQTT broker %q: unsupported scheme %q", broker, u.Scheme)
	}
	if u.Port() == "" {
		port := "1883"
		if useTLS {
			port = "8883"
		}
		host = net.JoinHostPort(u.Hostname(), port)
	}

	if useTLS {
		d := &tls.Dialer{Config: &tls.Config{ServerName: u.Hostname(), MinVersion: tls.VersionTLS12}}
		conn, err := d.DialContext(ctx, "tcp", host)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", host, err)
		}
		return conn, nil
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", host, err)
	}
	return conn, nil
}
