package secrets

import (
	"math"
	"strconv"

	"secretgrab/internal/capture"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Normalize folds records, in capture order, into the canonical mapping. Records without a
// string secret or without a positive version are skipped; a later record for the same
// version replaces an earlier one.
func Normalize(records []capture.Record, log *zap.Logger) Mapping {
	if log == nil {
		log = zap.NewNop()
	}

	canonical := make(Mapping)
	for idx, rec := range records {
		secret := rec.Get("secret")
		if secret.Type != gjson.String {
			log.Debug("Skipping record without a string secret", zap.Int("index", idx))
			continue
		}

		version := resolveVersion(rec)
		if version <= 0 {
			log.Debug("Skipping record with invalid version", zap.Int("index", idx), zap.Int("version", version))
			continue
		}

		if prev, ok := canonical[version]; ok && prev != secret.Str {
			log.Debug("Replacing secret for version", zap.Int("version", version), zap.Int("index", idx))
		} else {
			log.Debug("Found secret version", zap.Int("version", version), zap.Int("index", idx))
		}
		canonical[version] = secret.Str
	}
	return canonical
}

// resolveVersion reads the record's version: the top-level field when it is a number or a
// string, otherwise obj.version. Anything unusable resolves to 0.
func resolveVersion(rec capture.Record) int {
	top := rec.Get("version")
	switch top.Type {
	case gjson.Number:
		return numberVersion(top)
	case gjson.String:
		return stringVersion(top.Str)
	}

	nested := rec.Get("obj")
	if !nested.IsObject() {
		return 0
	}
	inner := nested.Get("version")
	switch inner.Type {
	case gjson.Number:
		return numberVersion(inner)
	case gjson.String:
		return stringVersion(inner.Str)
	}
	return 0
}

func numberVersion(r gjson.Result) int {
	f := r.Num
	if f != math.Trunc(f) || f < math.MinInt32 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

func stringVersion(s string) int {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0
	}
	return int(n)
}
