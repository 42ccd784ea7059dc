// Package kafka publishes decoded marine reports to the sink topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/oceanobs/imma-etl/internal/config"
	"github.com/oceanobs/imma-etl/internal/imma"
)

// Writer produces one message per accepted report record.
// It implements pipeline.Loader.
type Writer struct {
	writer *kafkago.Writer
	runID  string
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, runID string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, runID: runID, logger: logger}
}

// LoadTable serializes every accepted record of a sealed table and publishes
// them in a single WriteMessages call. The batch always ends with a terminal
// provenance message, even for a table whose every line was rejected, so
// consumers see exactly one closing message per decoded file.
func (w *Writer) LoadTable(ctx context.Context, table *imma.ReportTable) error {
	msgs, err := buildMessages(table, w.runID)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d messages from %s: %w", len(msgs), table.SourcePath(), err)
	}
	w.logger.Debug("published records", "topic", w.writer.Topic, "count", len(msgs))
	return nil
}

// buildMessages serializes a sealed table into record messages followed by
// the terminal provenance message.
func buildMessages(table *imma.ReportTable, runID string) ([]kafkago.Message, error) {
	prov, err := table.Provenance()
	if err != nil {
		return nil, err
	}

	msgs := make([]kafkago.Message, 0, table.Len()+1)
	for rec := range table.All() {
		msg, err := serializeToMessage(rec, prov, runID)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, msg)
	}
	final, err := serializeProvenance(prov, runID)
	if err != nil {
		return nil, err
	}
	return append(msgs, final), nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one record into a Kafka message. The payload
// flattens every decoded field under a lower-cased "section.field" key, with
// missing values encoded as null.
func serializeToMessage(rec imma.Record, prov imma.Provenance, runID string) (kafkago.Message, error) {
	payload := map[string]any{
		"source_path": prov.SourcePath,
		"line_number": rec.LineNumber,
	}
	flattenSection(payload, rec.Core)
	for _, att := range rec.Attachments {
		flattenSection(payload, att)
	}
	if len(rec.Problems) > 0 {
		payload["problems"] = rec.Problems
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize record line %d: %w", rec.LineNumber, err)
	}
	return kafkago.Message{
		Key:   []byte(messageKey(rec, prov)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "source_path", Value: []byte(prov.SourcePath)},
			{Key: "checksum", Value: []byte(prov.Checksum)},
			{Key: "run_id", Value: []byte(runID)},
		},
	}, nil
}

// serializeProvenance builds the per-file terminal message, keyed by
// checksum and flagged with a kind header.
func serializeProvenance(prov imma.Provenance, runID string) (kafkago.Message, error) {
	data, err := json.Marshal(prov)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize provenance for %s: %w", prov.SourcePath, err)
	}
	return kafkago.Message{
		Key:   []byte(prov.Checksum),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte("provenance")},
			{Key: "source_path", Value: []byte(prov.SourcePath)},
			{Key: "run_id", Value: []byte(runID)},
		},
	}, nil
}

func flattenSection(payload map[string]any, sec imma.Section) {
	for name, val := range sec.Fields {
		payload[sec.Name+"."+strings.ToLower(name)] = val
	}
}

// messageKey prefers the unique report identifier carried in attachment 98;
// records without one fall back to source path and line number.
func messageKey(rec imma.Record, prov imma.Provenance) string {
	if att, ok := rec.Attachment("98"); ok {
		if uid := att.Field("UID"); uid.Kind == imma.KindInt {
			return fmt.Sprintf("%d", uid.Int)
		}
	}
	return fmt.Sprintf("%s:%d", prov.SourcePath, rec.LineNumber)
}
