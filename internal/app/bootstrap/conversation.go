package bootstrap

import (
	"database/sql"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"

	"github.com/wolfman30/triage-concierge/internal/archive"
	"github.com/wolfman30/triage-concierge/internal/backend"
	"github.com/wolfman30/triage-concierge/internal/booking"
	appconfig "github.com/wolfman30/triage-concierge/internal/config"
	"github.com/wolfman30/triage-concierge/internal/conversation"
	"github.com/wolfman30/triage-concierge/internal/diagnosis"
	"github.com/wolfman30/triage-concierge/internal/events"
	"github.com/wolfman30/triage-concierge/internal/observability/metrics"
	"github.com/wolfman30/triage-concierge/internal/recognition"
	"github.com/wolfman30/triage-concierge/internal/session"
	"github.com/wolfman30/triage-concierge/pkg/logging"
)

// Infra carries the optional external clients. Nil fields fall back to
// in-process implementations or disable the feature.
type Infra struct {
	Sessions  session.Store
	Pool      *pgxpool.Pool
	ArchiveDB *sql.DB
	SQS       *sqs.Client
	S3        *s3.Client
}

// BuildConversationDeps wires the interview engine, recognition gate and
// booking manager against the backend and the given infrastructure.
func BuildConversationDeps(cfg *appconfig.Config, infra Infra, m *metrics.ConversationMetrics, logger *logging.Logger) (conversation.Deps, error) {
	if cfg == nil {
		return conversation.Deps{}, fmt.Errorf("bootstrap: config is required")
	}
	if infra.Sessions == nil {
		return conversation.Deps{}, fmt.Errorf("bootstrap: session store is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	client, err := backend.New(backend.Config{
		BaseURL:  cfg.BackendBaseURL,
		Timeout:  cfg.BackendTimeout,
		Observer: m,
		Tracer:   otel.Tracer("triage.internal.backend"),
	})
	if err != nil {
		return conversation.Deps{}, fmt.Errorf("bootstrap: backend client: %w", err)
	}

	engine := diagnosis.NewEngine(diagnosis.NewClient(client), logger,
		diagnosis.WithEmergencyNumber(cfg.EmergencyNumber))
	gate := recognition.NewGate(recognition.NewClient(client), logger,
		recognition.WithPhonePolicy(recognition.NewPhonePolicy(cfg.PhoneRegion)),
		recognition.WithWelcomeTimeout(cfg.SmartWelcomeTimeout))

	var ledger booking.Ledger = booking.NewMemoryLedger()
	if infra.Pool != nil {
		ledger = booking.NewPostgresLedger(infra.Pool)
		logger.Info("booking ledger: postgres")
	}
	var publisher events.Publisher = events.NewLogPublisher(logger)
	if infra.SQS != nil && cfg.BookingEventsQueueURL != "" {
		publisher = events.NewSQSPublisher(infra.SQS, cfg.BookingEventsQueueURL, logger)
		logger.Info("booking events: sqs")
	}
	manager := booking.NewManager(booking.NewClient(client), logger,
		booking.WithLedger(ledger),
		booking.WithPublisher(publisher),
		booking.WithRecorder(m))

	deps := conversation.Deps{
		Engine:   engine,
		Gate:     gate,
		Booking:  manager,
		Sessions: infra.Sessions,
		Metrics:  m,
		Logger:   logger,
	}
	if infra.ArchiveDB != nil {
		deps.Archive = archive.NewEntryStore(infra.ArchiveDB)
		logger.Info("conversation archive: postgres")
	}
	if infra.S3 != nil && cfg.TranscriptBucket != "" {
		deps.Export = archive.NewTranscriptStore(infra.S3, cfg.TranscriptBucket, logger)
		logger.Info("transcript export: s3", "bucket", cfg.TranscriptBucket)
	}
	return deps, nil
}
