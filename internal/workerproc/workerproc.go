// Package workerproc turns catalog queue messages into ingestion calls. It is
// shared by the long-polling worker and the Lambda consumer.
package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"internship-matcher/internal/catalog"
	"internship-matcher/internal/queue"
	"internship-matcher/internal/shared/apperr"
)

// Ingester accepts validated opportunities into the catalog.
type Ingester interface {
	Ingest(ctx context.Context, in catalog.Input) (catalog.Opportunity, error)
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure of the envelope or its payload.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

// ErrUnknownType indicates an envelope this consumer does not handle.
type ErrUnknownType struct {
	Meta      MessageMeta
	Type      string
	RequestID string
}

func (e ErrUnknownType) Error() string { return "unknown message type " + e.Type }

// ErrInvalid indicates the opportunity was rejected by catalog validation.
// Redelivery cannot fix it.
type ErrInvalid struct {
	OpportunityID string
	RequestID     string
	Err           error
}

func (e ErrInvalid) Error() string { return "invalid opportunity: " + e.Err.Error() }

func (e ErrInvalid) Unwrap() error { return e.Err }

// ErrProcess indicates ingestion failed after successful parsing.
type ErrProcess struct {
	OpportunityID string
	RequestID     string
	Err           error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "ingest opportunity"
	}
	return "ingest opportunity: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Unrecoverable reports whether err will fail the same way on every
// redelivery, so the message should be deleted rather than retried.
func Unrecoverable(err error) bool {
	var (
		empty   ErrEmptyBody
		decode  ErrDecode
		unknown ErrUnknownType
		invalid ErrInvalid
	)
	return errors.As(err, &empty) || errors.As(err, &decode) ||
		errors.As(err, &unknown) || errors.As(err, &invalid)
}

// ParseMessage validates and decodes the queue envelope.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if msg.Type != queue.TypeCatalogUpsert {
		return msg, meta, ErrUnknownType{Meta: meta, Type: msg.Type, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

// DecodeUpsert extracts the opportunity carried by a catalog.upsert message.
func DecodeUpsert(msg queue.Message) (catalog.Input, error) {
	var in catalog.Input
	if err := msg.DecodePayload(&in); err != nil {
		return catalog.Input{}, ErrDecode{Err: err}
	}
	return in, nil
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (queue.Message, bool) {
	if ctx == nil {
		return queue.Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message)
	return msg, ok
}

// HandleMessage parses, validates, and ingests a message payload.
func HandleMessage(ctx context.Context, ingester Ingester, body string) (catalog.Opportunity, error) {
	if ingester == nil {
		return catalog.Opportunity{}, errors.New("catalog ingester not configured")
	}

	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			return catalog.Opportunity{}, err
		}
	}

	in, err := DecodeUpsert(msg)
	if err != nil {
		return catalog.Opportunity{}, err
	}

	o, err := ingester.Ingest(ctx, in)
	if err != nil {
		if apperr.Is(err, apperr.KindInvalidOpportunity) {
			return catalog.Opportunity{}, ErrInvalid{OpportunityID: in.ID, RequestID: msg.RequestID, Err: err}
		}
		return catalog.Opportunity{}, ErrProcess{OpportunityID: in.ID, RequestID: msg.RequestID, Err: err}
	}
	return o, nil
}
