package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldCandidateID = "candidate_id"
	FieldJobID       = "job_id"
	FieldScore       = "score"
	FieldSource      = "source"
	// FieldProvider is the structured log field key for the AI provider name.
	FieldProvider = "ai_provider"
	// FieldModel is the structured log field key for the AI model identifier.
	FieldModel = "ai_model"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		value := strings.TrimSpace(field.Value)
		if key == "" || value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches fields to the logger. A nil logger becomes a no-op one.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// Component names the subsystem that produces the log entries.
func Component(logger *zap.Logger, name string) *zap.Logger {
	return WithFields(logger, StringFields(StringField{Key: FieldComponent, Value: name})...)
}

// MatchFields describes a scored candidate/job pair.
func MatchFields(candidateID, jobID int64, score float64) []zap.Field {
	return []zap.Field{
		zap.Int64(FieldCandidateID, candidateID),
		zap.Int64(FieldJobID, jobID),
		zap.Float64(FieldScore, score),
	}
}

// AIFields describes the AI provider and model. Empty values are skipped.
func AIFields(provider, model string) []zap.Field {
	return StringFields(
		StringField{Key: FieldProvider, Value: provider},
		StringField{Key: FieldModel, Value: model},
	)
}
