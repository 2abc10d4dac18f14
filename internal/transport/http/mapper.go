package http

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/vovakirdan/ordercast-server/internal/core"
	"github.com/vovakirdan/ordercast-server/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	var kind core.CommandKind
	switch inbound.Type {
	case proto.InboundTypeJoinStore:
		kind = core.CommandJoinStore
	case proto.InboundTypeLeaveStore:
		kind = core.CommandLeaveStore
	default:
		return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}
	}

	var data proto.StoreData
	if err := json.Unmarshal(inbound.Data, &data); err != nil {
		return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "malformed " + inbound.Type + " payload"}
	}
	storeID := strings.TrimSpace(data.StoreID)
	if storeID == "" {
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "storeId is required"}
	}
	return &core.Command{Kind: kind, StoreID: storeID}, nil
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventNewOrder:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNewOrderName,
			Data:  newOrderPayload(event),
		}
	case core.EventJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventJoinedName,
			Data:  proto.StoreData{StoreID: event.StoreID},
		}
	case core.EventLeft:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventLeftName,
			Data:  proto.StoreData{StoreID: event.StoreID},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message, StoreID: event.StoreID},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func newOrderPayload(event *core.Event) proto.EventNewOrder {
	payload := proto.EventNewOrder{
		Type:    proto.EventNewOrderName,
		StoreID: event.StoreID,
	}
	o := event.Order
	if o == nil {
		return payload
	}
	payload.OrderID = o.OrderID
	payload.OrderNumber = o.OrderNumber
	payload.CustomerName = o.CustomerName
	payload.Total = float64(o.TotalCents) / 100
	payload.Summary = o.Summary
	if !o.CreatedAt.IsZero() {
		payload.CreatedAt = o.CreatedAt.UTC().Format(time.RFC3339)
	}
	for _, line := range o.Items {
		payload.Items = append(payload.Items, proto.OrderLine{Name: line.Name, Quantity: line.Quantity})
	}
	return payload
}
