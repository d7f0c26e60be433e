package feed

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/SwarmMonkey/tensor-listener/internal/domain"
)

// Message is one decoded inbound frame. Exactly one concrete type is
// produced per frame: KeepAliveAck, ErrorReport, TransactionMessage or
// Unrecognized.
type Message interface {
	isMessage()
}

// KeepAliveAck is the feed's answer to a keep-alive ping. Carries no data.
type KeepAliveAck struct{}

// ErrorReport is an error the feed reported inside a well-formed frame.
// It is logged and produces no state change.
type ErrorReport struct {
	Message string
}

// TransactionMessage wraps one decoded marketplace transaction.
type TransactionMessage struct {
	Event *domain.TransactionEvent
}

// Unrecognized is any well-formed frame that matches no known shape.
// Logged and dropped.
type Unrecognized struct {
	Type string
}

func (KeepAliveAck) isMessage()       {}
func (ErrorReport) isMessage()        {}
func (TransactionMessage) isMessage() {}
func (Unrecognized) isMessage()       {}

// keepAlivePing is the application-level keep-alive frame; the feed
// answers it with {"type":"pong"}.
type keepAlivePing struct {
	Type string `json:"type"`
}

// subscribeRequest asks the feed to stream transactions for one collection.
// One request is sent per collection id and one per slug.
type subscribeRequest struct {
	Event   string           `json:"event"`
	Payload subscribePayload `json:"payload"`
}

type subscribePayload struct {
	CollID string `json:"collId,omitempty"`
	Slug   string `json:"slug,omitempty"`
}

// Wire shapes for inbound frames.

type wireEnvelope struct {
	Type    string    `json:"type"`
	Status  string    `json:"status"`
	Error   string    `json:"error"`
	Message string    `json:"message"`
	Data    *wireData `json:"data"`
}

type wireData struct {
	Tx *wireTxWrapper `json:"tx"`
}

type wireTxWrapper struct {
	Tx   *wireTx   `json:"tx"`
	Mint *wireMint `json:"mint"`
}

type wireTx struct {
	TxType          string      `json:"txType"`
	TxID            string      `json:"txId"`
	SellerID        *string     `json:"sellerId"`
	BuyerID         *string     `json:"buyerId"`
	GrossAmount     *wireAmount `json:"grossAmount"`
	GrossAmountUnit string      `json:"grossAmountUnit"`
	Source          *string     `json:"source"`
}

type wireMint struct {
	OnchainID  string          `json:"onchainId"`
	Name       *string         `json:"name"`
	Slug       string          `json:"slug"`
	ImageURI   *string         `json:"imageUri"`
	Attributes json.RawMessage `json:"attributes"`
	Owner      *string         `json:"owner"`
}

// wireAmount accepts the gross amount either as a JSON number or as a
// numeric string, both of which the feed emits.
type wireAmount int64

func (a *wireAmount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("gross amount %q: %w", s, err)
	}
	*a = wireAmount(v)
	return nil
}
