package shipper

import (
	"strings"
	"time"
)

// MaxDeliveryDate is assigned to rates without a guaranteed delivery date so
// that they sort after every rate that has one.
var MaxDeliveryDate = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

// DefaultDeliveryTime is used when a carrier guarantees a day but no time.
const DefaultDeliveryTime = "11:59:00 PM"

var deliveryTimeLayouts = []string{
	"3:04:05 PM",
	"3:04 PM",
	"3 PM",
	"15:04:05",
	"15:04",
}

var deliveryTimeReplacer = strings.NewReplacer(
	"A.M.", "AM",
	"P.M.", "PM",
	"a.m.", "AM",
	"p.m.", "PM",
	"Noon", "PM",
	"NOON", "PM",
	"noon", "PM",
)

// NormalizeDeliveryTime canonicalizes a carrier's scheduled delivery time to
// a 12-hour AM/PM form. An empty value yields DefaultDeliveryTime.
func NormalizeDeliveryTime(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultDeliveryTime
	}
	if strings.EqualFold(s, "noon") {
		return "12:00 PM"
	}
	if strings.EqualFold(s, "end of day") || strings.EqualFold(s, "eod") {
		return DefaultDeliveryTime
	}

	s = deliveryTimeReplacer.Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	upper := strings.ToUpper(s)
	for _, suffix := range []string{"AM", "PM"} {
		if strings.HasSuffix(upper, suffix) && !strings.HasSuffix(upper, " "+suffix) {
			upper = strings.TrimSuffix(upper, suffix) + " " + suffix
		}
	}
	return upper
}

// parseDeliveryClock returns the hour, minute and second of a normalized
// delivery time, falling back to 23:59:00.
func parseDeliveryClock(s string) (int, int, int) {
	for _, layout := range deliveryTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Hour(), t.Minute(), t.Second()
		}
	}
	return 23, 59, 0
}

// EstimateDelivery computes a rate's estimated delivery. When the carrier
// gives no guarantee the result is MaxDeliveryDate; otherwise it is the
// calendar day days after requestedAt, at the scheduled time.
func EstimateDelivery(requestedAt time.Time, days int, guaranteed bool, scheduledTime string) time.Time {
	if !guaranteed || days < 0 {
		return MaxDeliveryDate
	}
	h, m, sec := parseDeliveryClock(NormalizeDeliveryTime(scheduledTime))
	y, mo, d := requestedAt.Date()
	return time.Date(y, mo, d+days, h, m, sec, 0, requestedAt.Location())
}

// DeliveryAt normalizes a carrier-supplied delivery timestamp. A zero time
// yields MaxDeliveryDate.
func DeliveryAt(t time.Time) time.Time {
	if t.IsZero() {
		return MaxDeliveryDate
	}
	return t
}
