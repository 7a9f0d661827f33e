package secrets

import (
	"secretgrab/internal/capture"

	"go.uber.org/zap"
)

// Summarizer normalizes captured records, reports what was found and writes the result.
type Summarizer struct {
	writer *Writer
	log    *zap.Logger
}

// NewSummarizer creates a summarizer that writes through w.
func NewSummarizer(w *Writer, log *zap.Logger) *Summarizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Summarizer{writer: w, log: log}
}

// Summarize runs the records through Normalize and writes the three views. No valid secret
// is not an error: nothing is written and the returned views are empty.
func (s *Summarizer) Summarize(records []capture.Record) (Views, error) {
	s.log.Info("Processing captured items", zap.Int("count", len(records)))

	canonical := Normalize(records, s.log)
	if len(canonical) == 0 {
		s.log.Warn("No real secrets with valid version found")
		return Views{}, nil
	}
	s.log.Info("Found unique secret versions", zap.Int("count", len(canonical)))

	views := BuildViews(canonical)
	s.report(views)

	if err := s.writer.Write(views); err != nil {
		return Views{}, err
	}
	return views, nil
}

func (s *Summarizer) report(v Views) {
	s.log.Info("=== List of extracted secrets ===")
	for _, sec := range v.Secrets {
		s.log.Info("Secret", zap.Int("version", sec.Version), zap.Int("length", len(sec.Secret)))
	}

	if ce := s.log.Check(zap.DebugLevel, "Plain secrets"); ce != nil {
		ce.Write(zap.String("json", dump(v.Secrets)))
	}
	if ce := s.log.Check(zap.DebugLevel, "Secret bytes"); ce != nil {
		ce.Write(zap.String("json", dump(v.Bytes)))
	}
	if ce := s.log.Check(zap.DebugLevel, "Secret dict"); ce != nil {
		ce.Write(zap.String("json", dump(v.Dict)))
	}
}

func dump(v interface{}) string {
	data, err := encodeJSON(v, true)
	if err != nil {
		return err.Error()
	}
	return string(data)
}
