// Package message splits raw agent replies into display text and an
// optional embedded chart payload.
package message

import (
	"encoding/json"
	"log"
	"regexp"
	"strings"

	"agentterm/pkg/models"
)

const (
	// Marker delimits an embedded payload on both sides.
	Marker = "///"
	// ChartTag follows the opening marker of a chart payload.
	ChartTag = "CHART_DATA"
)

var openChart = Marker + " " + ChartTag

var txHashPattern = regexp.MustCompile(`0x[a-fA-F0-9]{40,64}`)

// Decode extracts the first embedded chart from raw. The payload region is
// `/// CHART_DATA <json> ///`; the body ends at the first closing marker.
// A malformed body leaves raw untouched and yields no chart.
func Decode(raw string) models.DecodedMessage {
	start, end, body, ok := locate(raw)
	if !ok {
		return models.DecodedMessage{Text: raw}
	}

	var chart *models.ChartPayload
	if err := json.Unmarshal([]byte(body), &chart); err != nil {
		log.Printf("message: failed to parse chart payload: %v", err)
		return models.DecodedMessage{Text: raw}
	}

	// a null body strips the region but carries no chart
	text := strings.TrimSpace(raw[:start] + raw[end:])
	return models.DecodedMessage{Text: text, Chart: chart}
}

// locate returns the byte span of the payload region and its body.
func locate(raw string) (start, end int, body string, ok bool) {
	start = strings.Index(raw, openChart)
	if start < 0 {
		return 0, 0, "", false
	}
	bodyStart := start + len(openChart)
	closing := strings.Index(raw[bodyStart:], Marker)
	if closing < 0 {
		return 0, 0, "", false
	}
	bodyEnd := bodyStart + closing
	return start, bodyEnd + len(Marker), raw[bodyStart:bodyEnd], true
}

// FindTxHash returns the first transaction-hash-like token in s.
func FindTxHash(s string) (string, bool) {
	hash := txHashPattern.FindString(s)
	return hash, hash != ""
}
