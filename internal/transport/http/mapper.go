package http

import (
	"github.com/vovakirdan/figaro/internal/core"
	"github.com/vovakirdan/figaro/internal/proto"
)

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventFrame:
		if event.Frame == nil {
			return proto.Outbound{Type: proto.OutboundTypeFrame}
		}
		return proto.Outbound{Type: proto.OutboundTypeFrame, HTML: event.Frame.HTML}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown event"}}
	}
}
