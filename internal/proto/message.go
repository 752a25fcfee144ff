package proto

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vovakirdan/figaro/internal/model"
)

// ErrMalformedFrame is returned when a feed frame is neither a channel list
// nor a channel pair.
var ErrMalformedFrame = errors.New("malformed frame")

const (
	OutboundTypeFrame = "frame"
	OutboundTypeError = "error"
)

// Outbound is the envelope pushed to browsers.
type Outbound struct {
	Type  string `json:"type"`
	HTML  string `json:"html,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// DecodeFrame parses an upstream feed frame. A JSON array is a flat list of
// channels, a JSON object is a Bad/Ok pair.
func DecodeFrame(data []byte) (model.ChannelPair, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return model.ChannelPair{}, fmt.Errorf("%w: empty payload", ErrMalformedFrame)
	}

	var pair model.ChannelPair
	switch trimmed[0] {
	case '[':
		var channels []model.Channel
		if err := json.Unmarshal(trimmed, &channels); err != nil {
			return model.ChannelPair{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		pair = model.ChannelPair{Ok: channels, Flat: true}
	case '{':
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err != nil {
			return model.ChannelPair{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
		if !hasPairKey(fields) {
			return model.ChannelPair{}, fmt.Errorf("%w: object has neither Bad nor Ok", ErrMalformedFrame)
		}
		if err := json.Unmarshal(trimmed, &pair); err != nil {
			return model.ChannelPair{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
	default:
		return model.ChannelPair{}, fmt.Errorf("%w: unexpected %q", ErrMalformedFrame, trimmed[0])
	}

	if pair.Bad == nil {
		pair.Bad = []model.Channel{}
	}
	if pair.Ok == nil {
		pair.Ok = []model.Channel{}
	}
	return pair, nil
}

// hasPairKey matches keys the way encoding/json matches field names.
func hasPairKey(fields map[string]json.RawMessage) bool {
	for key := range fields {
		if strings.EqualFold(key, "Bad") || strings.EqualFold(key, "Ok") {
			return true
		}
	}
	return false
}

// EncodeFrame serializes a pair the way DecodeFrame expects it.
func EncodeFrame(pair model.ChannelPair) ([]byte, error) {
	if pair.Flat {
		return json.Marshal(pair.Ok)
	}
	return json.Marshal(pair)
}
