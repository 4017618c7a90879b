package aisstream

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"vessel-track-lab/internal/domain"
)

// TypePositionReport is the only message type turned into positions.
const TypePositionReport = "PositionReport"

// ErrMalformedMessage is returned for frames that are not valid JSON or
// position reports missing required fields.
var ErrMalformedMessage = errors.New("malformed message")

// Message is a decoded feed frame. Report is set only for position reports.
type Message struct {
	Type   string
	Report *PositionReport
}

// PositionReport is the subset of an AIS position report the tracker uses.
type PositionReport struct {
	ShipID    domain.ShipID
	Latitude  float64
	Longitude float64
	ShipName  string // from MetaData, informational
}

// ParseMessage decodes one inbound frame.
// Frames of other types come back with a nil Report and no error.
// An error frame from the server returns ErrFeedRejected.
func ParseMessage(raw []byte) (Message, error) {
	if !gjson.ValidBytes(raw) {
		return Message{}, fmt.Errorf("%w: invalid json", ErrMalformedMessage)
	}

	res := gjson.ParseBytes(raw)
	if e := res.Get("error"); e.Exists() {
		return Message{}, fmt.Errorf("%w: %s", ErrFeedRejected, e.String())
	}

	msg := Message{Type: res.Get("MessageType").String()}
	if msg.Type != TypePositionReport {
		return msg, nil
	}

	body := res.Get("Message." + TypePositionReport)
	if !body.IsObject() {
		return msg, fmt.Errorf("%w: missing %s body", ErrMalformedMessage, TypePositionReport)
	}

	id := body.Get("UserID")
	if (id.Type != gjson.Number && id.Type != gjson.String) || id.String() == "" {
		return msg, fmt.Errorf("%w: missing or non-scalar UserID", ErrMalformedMessage)
	}

	lat := body.Get("Latitude")
	lon := body.Get("Longitude")
	if lat.Type != gjson.Number || lon.Type != gjson.Number {
		return msg, fmt.Errorf("%w: missing coordinates for %s", ErrMalformedMessage, id.String())
	}

	// AIS reports 91/181 when no position is available.
	if lat.Float() < -90 || lat.Float() > 90 || lon.Float() < -180 || lon.Float() > 180 {
		return msg, fmt.Errorf("%w: position unavailable for %s", ErrMalformedMessage, id.String())
	}

	msg.Report = &PositionReport{
		ShipID:    domain.ShipID(id.String()),
		Latitude:  lat.Float(),
		Longitude: lon.Float(),
		ShipName:  res.Get("MetaData.ShipName").String(),
	}
	return msg, nil
}
