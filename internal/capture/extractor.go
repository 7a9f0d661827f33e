package capture

import (
	"context"

	"secretgrab/internal/instrument"

	"github.com/go-rod/rod/lib/proto"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Evaluator runs a JavaScript expression in the page and returns the result by value.
type Evaluator interface {
	Evaluate(ctx context.Context, expression string) (*proto.RuntimeRemoteObject, error)
}

// Extractor pulls the capture buffer out of a page. It never fails: every problem on the
// way degrades to an empty result and a warning.
type Extractor struct {
	log *zap.Logger
}

// NewExtractor creates an extractor that reports degraded results to log.
func NewExtractor(log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{log: log}
}

// Extract evaluates the extraction expression through ev and decodes the result.
func (e *Extractor) Extract(ctx context.Context, ev Evaluator) []Record {
	res, err := ev.Evaluate(ctx, instrument.Extract())
	if err != nil {
		e.log.Warn("Failed to evaluate capture buffer", zap.Error(err))
		return nil
	}
	if res == nil || res.Type == proto.RuntimeRemoteObjectTypeUndefined || res.Value.Nil() {
		e.log.Warn("Capture buffer evaluation returned no value")
		return nil
	}
	if res.Type != proto.RuntimeRemoteObjectTypeString {
		e.log.Warn("Capture buffer evaluation returned a non-string value",
			zap.String("type", string(res.Type)),
			zap.String("value", res.Value.JSON("", "")))
		return nil
	}

	text := res.Value.Str()
	e.log.Debug("Received capture payload", zap.Int("bytes", len(text)))

	records, err := Decode(text)
	if err != nil {
		e.log.Warn("Failed to decode capture payload", zap.Error(err))
		return nil
	}

	if len(records) == 0 {
		e.log.Warn("No secrets captured; capture buffer is empty")
		return records
	}
	e.log.Info("Captured records", zap.Int("count", len(records)))
	for _, r := range records {
		secret := r.Get("secret")
		version := r.Get("version")
		if secret.Type == gjson.String && version.Type == gjson.Number {
			e.log.Debug("Captured secret", zap.Int64("version", version.Int()), zap.String("secret", secret.Str))
		}
	}
	return records
}
