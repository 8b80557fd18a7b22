package sink

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"

	"github.com/feral-file/marketplace-mirror/internal/adapter"
	"github.com/feral-file/marketplace-mirror/internal/logger"
	"github.com/feral-file/marketplace-mirror/internal/metrics"
)

const (
	jetStreamSinkLabel = "jetstream"

	// publishRetryAttempts is how many times a publish is retried while the stream has no responders
	publishRetryAttempts = 3
)

// JetStreamConfig holds the configuration for the NATS JetStream sink
type JetStreamConfig struct {
	URL            string
	StreamName     string
	Subject        string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectionName string
	// RunID tags every published record with the mirror run that produced it
	RunID string
}

// Record is the message published for each audit line
type Record struct {
	RunID     string    `json:"run_id"`
	Seq       uint64    `json:"seq"`
	Line      string    `json:"line"`
	Timestamp time.Time `json:"timestamp"`
}

type jetStreamSink struct {
	nc      adapter.NatsConn
	js      adapter.JetStream
	json    adapter.JSON
	jcs     adapter.JCS
	clock   adapter.Clock
	subject string
	runID   string
	seq     atomic.Uint64
}

// NewJetStreamSink connects to NATS and makes sure the stream bound to the subject exists
func NewJetStreamSink(ctx context.Context, cfg JetStreamConfig, natsJS adapter.NatsJetStream, jsonAdapter adapter.JSON, jcsAdapter adapter.JCS, clock adapter.Clock) (Sink, error) {
	if cfg.Subject == "" {
		return nil, fmt.Errorf("jetstream sink requires a subject")
	}

	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Error(err, zap.String("message", "Disconnected from NATS"))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, js, err := natsJS.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS and create JetStream: %w", err)
	}

	if cfg.StreamName != "" {
		if err := js.EnsureStream(ctx, cfg.StreamName, []string{cfg.Subject}); err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to ensure stream %s: %w", cfg.StreamName, err)
		}
	}

	return &jetStreamSink{
		nc:      nc,
		js:      js,
		json:    jsonAdapter,
		jcs:     jcsAdapter,
		clock:   clock,
		subject: cfg.Subject,
		runID:   cfg.RunID,
	}, nil
}

// AppendLine publishes the line as a canonical JSON record numbered within the run.
// The message id is derived from the run id and that number, so the stream drops
// duplicates produced when the client retries a publish.
func (s *jetStreamSink) AppendLine(ctx context.Context, line string) error {
	seq := s.seq.Add(1)
	raw, err := s.json.Marshal(Record{
		RunID:     s.runID,
		Seq:       seq,
		Line:      strings.TrimRight(line, "\r\n"),
		Timestamp: s.clock.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}
	data, err := s.jcs.Transform(raw)
	if err != nil {
		return fmt.Errorf("failed to canonicalize audit record: %w", err)
	}

	if _, err := s.js.Publish(ctx, s.subject, data,
		jetstream.WithMsgID(messageID(s.runID, seq)),
		jetstream.WithRetryAttempts(publishRetryAttempts),
	); err != nil {
		metrics.SinkErrors.WithLabelValues(jetStreamSinkLabel).Inc()
		return fmt.Errorf("failed to publish audit line: %w", err)
	}
	metrics.SinkLinesWritten.WithLabelValues(jetStreamSinkLabel).Inc()
	return nil
}

// messageID returns the deduplication id of the seq-th line of a run
func messageID(runID string, seq uint64) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("marketplace-mirror/%s/%d", runID, seq))).String()
}

// Close drains pending publishes and closes the NATS connection
func (s *jetStreamSink) Close() error {
	if s.nc == nil {
		return nil
	}

	if err := s.nc.Drain(); err != nil {
		s.nc.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}
