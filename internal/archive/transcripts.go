package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/wolfman30/triage-concierge/internal/chat"
	"github.com/wolfman30/triage-concierge/pkg/logging"
)

// S3API is the subset of the S3 client used by TranscriptStore.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Transcript is the document written to S3 when a session ends.
type Transcript struct {
	Version      string          `json:"version"`
	SessionID    string          `json:"session_id"`
	PhoneHash    string          `json:"phone_hash,omitempty"`
	ArchivedAt   time.Time       `json:"archived_at"`
	MessageCount int             `json:"message_count"`
	Outcome      string          `json:"outcome"`
	Entries      []TranscriptRow `json:"entries"`
}

// TranscriptRow is one scrubbed turn.
type TranscriptRow struct {
	Role      string            `json:"role"`
	Type      string            `json:"type"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// ManifestEntry is one JSONL line in the monthly manifest file.
type ManifestEntry struct {
	SessionID    string `json:"session_id"`
	S3Key        string `json:"s3_key"`
	Outcome      string `json:"outcome"`
	ArchivedAt   string `json:"archived_at"`
	MessageCount int    `json:"message_count"`
}

// TranscriptStore exports transcripts to S3. If bucket is empty, all
// operations are no-ops.
type TranscriptStore struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
	now      func() time.Time
}

// NewTranscriptStore creates a TranscriptStore.
func NewTranscriptStore(s3Client S3API, bucket string, logger *logging.Logger) *TranscriptStore {
	if logger == nil {
		logger = logging.Default()
	}
	return &TranscriptStore{bucket: bucket, s3Client: s3Client, logger: logger.Component("archive"), now: time.Now}
}

// Enabled returns true if export is configured.
func (s *TranscriptStore) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// Export writes the scrubbed transcript and appends it to the manifest.
// phone is hashed, never stored.
func (s *TranscriptStore) Export(ctx context.Context, sessionID, phone string, entries []chat.Entry) error {
	if !s.Enabled() || len(entries) == 0 {
		return nil
	}

	now := s.now().UTC()
	record := Transcript{
		Version:      "1.0",
		SessionID:    sessionID,
		ArchivedAt:   now,
		MessageCount: len(entries),
		Outcome:      Outcome(entries),
	}
	if phone != "" {
		record.PhoneHash = HashPhone(phone)
	}
	for _, e := range entries {
		record.Entries = append(record.Entries, TranscriptRow{
			Role:      string(e.Role),
			Type:      string(e.Type),
			Content:   ScrubPII(e.Content),
			Timestamp: e.Timestamp,
			Metadata:  scrubMetadata(e.Metadata),
		})
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("archive: marshal transcript: %w", err)
	}
	key := fmt.Sprintf("transcripts/v1/by-date/%d/%02d/%02d/%s.json", now.Year(), now.Month(), now.Day(), sessionID)
	if _, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	}); err != nil {
		return fmt.Errorf("archive: s3 put %s: %w", key, err)
	}

	s.logger.Info("exported transcript", "session_id", sessionID, "s3_key", key, "outcome", record.Outcome)

	entry := ManifestEntry{
		SessionID:    sessionID,
		S3Key:        key,
		Outcome:      record.Outcome,
		ArchivedAt:   now.Format(time.RFC3339),
		MessageCount: record.MessageCount,
	}
	if err := s.appendManifest(ctx, now, entry); err != nil {
		// The transcript is already stored.
		s.logger.Warn("failed to append manifest", "error", err, "session_id", sessionID)
	}
	return nil
}

// appendManifest does a read-modify-write since S3 has no append.
func (s *TranscriptStore) appendManifest(ctx context.Context, now time.Time, entry ManifestEntry) error {
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}
	key := fmt.Sprintf("transcripts/v1/manifests/%d-%02d.jsonl", now.Year(), now.Month())

	var existing []byte
	resp, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	switch {
	case err == nil:
		existing, err = io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("archive: read manifest: %w", err)
		}
	case isNoSuchKey(err):
		s.logger.Debug("manifest not found, creating new", "key", key)
	default:
		return fmt.Errorf("archive: s3 get manifest: %w", err)
	}

	var buf bytes.Buffer
	if len(existing) > 0 {
		buf.Write(existing)
		if existing[len(existing)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	buf.Write(line)
	buf.WriteByte('\n')

	if _, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	}); err != nil {
		return fmt.Errorf("archive: s3 put manifest: %w", err)
	}
	return nil
}

func isNoSuchKey(err error) bool {
	var nsk *s3types.NoSuchKey
	return errors.As(err, &nsk)
}

// Outcome labels how a conversation ended, from the most significant
// message type present.
func Outcome(entries []chat.Entry) string {
	seen := make(map[chat.Type]bool, len(entries))
	emergency := false
	for _, e := range entries {
		seen[e.Type] = true
		if e.Type == chat.TypeDiagnosticResult && e.Metadata["outcome"] == string(chat.OutcomeEmergency) {
			emergency = true
		}
	}
	switch {
	case emergency:
		return "emergency"
	case seen[chat.TypeAppointmentSuccess] || seen[chat.TypeTestSuccess]:
		return "booked"
	case seen[chat.TypeDiagnosticResult]:
		return "diagnosed"
	case seen[chat.TypeDoctors] || seen[chat.TypeTests]:
		return "browsed"
	default:
		return "abandoned"
	}
}
