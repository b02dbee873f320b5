package ibkr

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/tradecraft/src/eventmodels"
)

const orderAckWait = 5 * time.Second

// PlaceStockOrder validates and submits a single stock order. The call
// returns on the gateway's submission acknowledgement, not on fill.
func (s *Session) PlaceStockOrder(ctx context.Context, order eventmodels.TradeOrder) eventmodels.OrderResult {
	if err := validateOrder(order.Symbol, order.Side, order.Quantity, order.OrderType, order.LimitPrice); err != nil {
		return eventmodels.OrderResult{Success: false, Error: err.Error()}
	}

	if !s.IsConnected() {
		return eventmodels.OrderResult{Success: false, Error: eventmodels.ErrNotConnected.Error()}
	}

	dto := orderRequestDTO{
		RequestID:  s.newRequestID(),
		Symbol:     order.Symbol.String(),
		SecType:    "STK",
		Side:       string(order.Side),
		Quantity:   order.Quantity,
		OrderType:  string(order.OrderType),
		LimitPrice: order.LimitPrice,
		TIF:        "DAY",
	}

	return s.submitOrder(ctx, dto)
}

// PlaceOptionOrder validates, normalizes, and submits a single option leg.
func (s *Session) PlaceOptionOrder(ctx context.Context, leg eventmodels.OptionOrderLeg, orderType eventmodels.OrderType, limitPrice *float64) eventmodels.OrderResult {
	dto, err := s.normalizeLeg(leg, orderType, limitPrice)
	if err != nil {
		return eventmodels.OrderResult{Success: false, Error: err.Error()}
	}

	if !s.IsConnected() {
		return eventmodels.OrderResult{Success: false, Error: eventmodels.ErrNotConnected.Error()}
	}

	return s.submitOrder(ctx, dto)
}

// PlaceMultiLegOptionOrder decomposes a multi-leg order into independent
// sequential submissions: no atomic combo order is constructed. One leg
// failing does not stop the remaining legs; the result carries the
// successful legs and the per-leg errors side by side so the caller can
// reconcile manually. A supplied limit price is applied to every leg as-is,
// not computed as a net debit/credit across the spread.
func (s *Session) PlaceMultiLegOptionOrder(ctx context.Context, legs []eventmodels.OptionOrderLeg, orderType eventmodels.OrderType, limitPrice *float64) eventmodels.MultiLegOrderResult {
	result := eventmodels.MultiLegOrderResult{
		PartialResults: []eventmodels.OrderResult{},
	}

	if len(legs) == 0 {
		result.Errors = append(result.Errors, "no legs provided")
		return result
	}

	// Validate every leg before the first gateway call.
	dtos := make([]orderRequestDTO, 0, len(legs))
	for i, leg := range legs {
		dto, err := s.normalizeLeg(leg, orderType, limitPrice)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("leg %d: %v", i+1, err))
			return result
		}

		dtos = append(dtos, dto)
	}

	if !s.IsConnected() {
		result.Errors = append(result.Errors, eventmodels.ErrNotConnected.Error())
		return result
	}

	for i, dto := range dtos {
		legResult := s.submitOrder(ctx, dto)
		if !legResult.Success {
			log.Errorf("PlaceMultiLegOptionOrder: leg %d (%s) failed: %s", i+1, dto.Symbol, legResult.Error)
			result.Errors = append(result.Errors, fmt.Sprintf("leg %d: %s", i+1, legResult.Error))
			continue
		}

		result.PartialResults = append(result.PartialResults, legResult)
		result.OrderIDs = append(result.OrderIDs, legResult.OrderID)
	}

	result.Success = len(result.Errors) == 0

	return result
}

func (s *Session) normalizeLeg(leg eventmodels.OptionOrderLeg, orderType eventmodels.OrderType, limitPrice *float64) (orderRequestDTO, error) {
	if err := validateOrder(leg.Symbol, leg.Side, leg.Quantity, orderType, limitPrice); err != nil {
		return orderRequestDTO{}, err
	}

	optionType, err := eventmodels.NewOptionTypeFromRight(leg.Right)
	if err != nil {
		return orderRequestDTO{}, err
	}

	expiry := eventmodels.NormalizeExpiry(leg.Expiry)
	if len(expiry) != 8 {
		return orderRequestDTO{}, fmt.Errorf("invalid expiry: %s", leg.Expiry)
	}

	if leg.Strike <= 0 {
		return orderRequestDTO{}, fmt.Errorf("strike must be positive, got %v", leg.Strike)
	}

	return orderRequestDTO{
		RequestID:  s.newRequestID(),
		Symbol:     leg.Symbol.String(),
		SecType:    "OPT",
		Right:      optionType.GatewayRight(),
		Strike:     leg.Strike,
		Expiry:     expiry,
		Side:       string(leg.Side),
		Quantity:   leg.Quantity,
		OrderType:  string(orderType),
		LimitPrice: limitPrice,
		TIF:        "DAY",
	}, nil
}

func validateOrder(symbol eventmodels.StockSymbol, side eventmodels.OrderSide, quantity float64, orderType eventmodels.OrderType, limitPrice *float64) error {
	if err := symbol.Validate(); err != nil {
		return err
	}

	if err := side.Validate(); err != nil {
		return err
	}

	if err := orderType.Validate(); err != nil {
		return err
	}

	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %v", quantity)
	}

	if orderType == eventmodels.OrderTypeLimit {
		if limitPrice == nil {
			return fmt.Errorf("limit price required for LIMIT orders")
		}
		if *limitPrice <= 0 {
			return fmt.Errorf("limit price must be positive, got %v", *limitPrice)
		}
	}

	return nil
}

func (s *Session) newRequestID() string {
	return fmt.Sprintf("tc-%d-%s", s.clientID, uuid.NewString())
}

// submitOrder sends the order frame and waits for the gateway's submission
// ack. Rejections arrive as an ack carrying an error; no retry is attempted.
func (s *Session) submitOrder(ctx context.Context, dto orderRequestDTO) eventmodels.OrderResult {
	payload, err := json.Marshal(dto)
	if err != nil {
		return eventmodels.OrderResult{Success: false, Error: fmt.Sprintf("failed to marshal order: %v", err)}
	}

	future := s.registerAck(dto.RequestID)

	if err := s.sendFrame(OrderFrame(payload)); err != nil {
		return eventmodels.OrderResult{Success: false, Error: fmt.Sprintf("failed to submit order: %v", err)}
	}

	log.Infof("submitted order %s: %s %v %s %s", dto.RequestID, dto.Side, dto.Quantity, dto.Symbol, dto.OrderType)

	ack, err := future.Await(ctx, orderAckWait)
	if err != nil {
		return eventmodels.OrderResult{Success: false, Error: fmt.Sprintf("no order ack for %s: %v", dto.RequestID, err)}
	}

	if ack.Error != "" {
		return eventmodels.OrderResult{Success: false, Status: ack.Status, Error: ack.Error}
	}

	return eventmodels.OrderResult{
		Success: true,
		OrderID: ack.OrderID,
		Status:  ack.Status,
	}
}
