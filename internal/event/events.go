// Package event defines the structured records emitted after every
// successful settlement operation. Events are a side channel: they are
// persisted and broadcast, but never read back to drive correctness.
package event

import "github.com/lincot/solana-ido/internal/domain"

// Type identifies an event kind on the wire and in storage.
type Type string

const (
	TypeInitialize      Type = "initialize"
	TypeRegisterMember  Type = "register_member"
	TypeStartSaleRound  Type = "start_sale_round"
	TypeBuyAcdm         Type = "buy_acdm"
	TypeStartTradeRound Type = "start_trade_round"
	TypeAddOrder        Type = "add_order"
	TypeRedeemOrder     Type = "redeem_order"
	TypeRemoveOrder     Type = "remove_order"
	TypeWithdrawIdoUsdc Type = "withdraw_ido_usdc"
	TypeEndIdo          Type = "end_ido"
)

// Event is the common surface of all settlement events.
type Event interface {
	GetType() Type
	GetSeq() uint64
	GetTs() int64
}

// BaseEvent carries the fields shared by every event. Seq is assigned
// by the engine and strictly increases by one per committed operation.
type BaseEvent struct {
	Seq uint64 `json:"seq"`
	Ts  int64  `json:"ts"`
}

func (e *BaseEvent) GetSeq() uint64 { return e.Seq }
func (e *BaseEvent) GetTs() int64   { return e.Ts }

type InitializeEvent struct {
	BaseEvent
	Authority domain.Address `json:"authority"`
	RoundTime int64          `json:"round_time"`
}

func (e *InitializeEvent) GetType() Type { return TypeInitialize }

type RegisterMemberEvent struct {
	BaseEvent
	Authority domain.Address  `json:"authority"`
	Referer   *domain.Address `json:"referer,omitempty"`
}

func (e *RegisterMemberEvent) GetType() Type { return TypeRegisterMember }

type StartSaleRoundEvent struct {
	BaseEvent
	AcdmPrice    uint64 `json:"acdm_price"`
	MintedAmount uint64 `json:"minted_amount"`
}

func (e *StartSaleRoundEvent) GetType() Type { return TypeStartSaleRound }

type BuyAcdmEvent struct {
	BaseEvent
	Buyer  domain.Address `json:"buyer"`
	Amount uint64         `json:"amount"`
}

func (e *BuyAcdmEvent) GetType() Type { return TypeBuyAcdm }

type StartTradeRoundEvent struct {
	BaseEvent
	BurnedAmount uint64 `json:"burned_amount"`
}

func (e *StartTradeRoundEvent) GetType() Type { return TypeStartTradeRound }

type AddOrderEvent struct {
	BaseEvent
	ID     uint64         `json:"id"`
	Seller domain.Address `json:"seller"`
	Amount uint64         `json:"amount"`
	Price  uint64         `json:"price"`
}

func (e *AddOrderEvent) GetType() Type { return TypeAddOrder }

type RedeemOrderEvent struct {
	BaseEvent
	ID     uint64         `json:"id"`
	Buyer  domain.Address `json:"buyer"`
	Amount uint64         `json:"amount"`
	// Gross is the stable value of the redemption before fee splitting.
	Gross uint64 `json:"gross"`
}

func (e *RedeemOrderEvent) GetType() Type { return TypeRedeemOrder }

type RemoveOrderEvent struct {
	BaseEvent
	ID uint64 `json:"id"`
}

func (e *RemoveOrderEvent) GetType() Type { return TypeRemoveOrder }

type WithdrawIdoUsdcEvent struct {
	BaseEvent
	To     domain.Address `json:"to"`
	Amount uint64         `json:"amount"`
}

func (e *WithdrawIdoUsdcEvent) GetType() Type { return TypeWithdrawIdoUsdc }

type EndIdoEvent struct {
	BaseEvent
}

func (e *EndIdoEvent) GetType() Type { return TypeEndIdo }
