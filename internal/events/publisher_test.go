package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/wolfman30/triage-concierge/pkg/logging"
)

type stubSender struct {
	inputs []*sqs.SendMessageInput
	err    error
}

func (s *stubSender) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.inputs = append(s.inputs, params)
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

func TestSQSPublisher_Publish(t *testing.T) {
	sender := &stubSender{}
	publisher := newSQSPublisher(sender, "http://localhost:4566/000000000000/booking-events", logging.New("error"))

	evt := NewBookingEvent(AppointmentBooked, "sess-1", "apt-9")
	evt.Date = "2030-01-02"
	if err := publisher.Publish(context.Background(), evt); err != nil {
		t.Fatalf("publish returned error: %v", err)
	}
	if len(sender.inputs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sender.inputs))
	}
	in := sender.inputs[0]
	if aws.ToString(in.QueueUrl) != "http://localhost:4566/000000000000/booking-events" {
		t.Fatalf("unexpected queue url %s", aws.ToString(in.QueueUrl))
	}
	if got := aws.ToString(in.MessageAttributes["kind"].StringValue); got != string(AppointmentBooked) {
		t.Fatalf("unexpected kind attribute %s", got)
	}

	var decoded BookingEvent
	if err := json.Unmarshal([]byte(aws.ToString(in.MessageBody)), &decoded); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if decoded.EventID == "" || decoded.ReferenceID != "apt-9" || decoded.Date != "2030-01-02" {
		t.Fatalf("unexpected event %#v", decoded)
	}
}

func TestSQSPublisher_WrapsErrors(t *testing.T) {
	boom := errors.New("throttled")
	publisher := newSQSPublisher(&stubSender{err: boom}, "queue", nil)
	if err := publisher.Publish(context.Background(), NewBookingEvent(TestsBooked, "s", "tb-1")); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	publisher := NewLogPublisher(logging.NewWithWriter("info", &buf))
	if err := publisher.Publish(context.Background(), NewBookingEvent(AppointmentCancelled, "sess-2", "apt-1")); err != nil {
		t.Fatalf("publish returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "appointment.cancelled.v1") {
		t.Fatalf("expected kind in log output, got %s", buf.String())
	}
}
