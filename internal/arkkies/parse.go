package arkkies

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/liftlog/arkkies-bridge/internal/model"
)

// The provider's list responses are not contractually stable: lists appear
// under varying envelope fields and items use varying key names. These
// parsers normalize best-effort and drop anything they cannot make sense of.

var listFields = []string{"data", "items", "results", "slots", "subscriptions", "passes", "active"}

var (
	idFields      = []string{"id", "_id", "slot_id", "subscription_id", "pass_id", "entitlement_id"}
	startFields   = []string{"time_start", "start_time", "start", "starts_at"}
	endFields     = []string{"time_end", "end_time", "end", "ends_at"}
	purposeFields = []string{"purpose_type", "purpose", "type"}
)

// ExtractEntitlementIDs pulls opaque entitlement ids out of an active
// subscriptions or passes response. An unrecognizable payload yields nil.
func ExtractEntitlementIDs(raw json.RawMessage) []string {
	var ids []string
	for _, item := range extractList(raw) {
		if id := stringField(item, idFields); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// ParseSlots normalizes a slot-availability response. Entries missing a
// parseable id, start, or end are silently dropped.
func ParseSlots(raw json.RawMessage) []model.BookingSlot {
	var slots []model.BookingSlot
	for _, item := range extractList(raw) {
		id := stringField(item, idFields)
		start, startOK := timeField(item, startFields)
		end, endOK := timeField(item, endFields)
		if id == "" || !startOK || !endOK {
			continue
		}
		slots = append(slots, model.BookingSlot{
			ID:          id,
			TimeStart:   start,
			TimeEnd:     end,
			PurposeType: stringField(item, purposeFields),
		})
	}
	return slots
}

// extractList accepts either a bare JSON array or an object enveloping the
// array under one of the known field names.
func extractList(raw json.RawMessage) []map[string]any {
	var direct []map[string]any
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil
	}
	for _, field := range listFields {
		inner, ok := envelope[field]
		if !ok {
			continue
		}
		var list []map[string]any
		if err := json.Unmarshal(inner, &list); err == nil {
			return list
		}
	}
	return nil
}

func stringField(item map[string]any, names []string) string {
	for _, name := range names {
		switch v := item[name].(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func timeField(item map[string]any, names []string) (time.Time, bool) {
	for _, name := range names {
		switch v := item[name].(type) {
		case string:
			for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
				if t, err := time.Parse(layout, v); err == nil {
					return t, true
				}
			}
		case float64:
			// epoch seconds or milliseconds
			if v > 1e12 {
				return time.UnixMilli(int64(v)), true
			}
			if v > 0 {
				return time.Unix(int64(v), 0), true
			}
		}
	}
	return time.Time{}, false
}
