package feed

import (
	"encoding/json"
	"fmt"

	"github.com/SwarmMonkey/tensor-listener/internal/domain"
	"github.com/SwarmMonkey/tensor-listener/internal/solana"
)

// Decode parses one raw text frame into exactly one Message. A frame that
// is not parseable as JSON returns an error; the caller logs it with the
// raw payload and drops the frame. A well-formed frame that matches no
// known shape decodes to Unrecognized, never to an error.
func Decode(raw []byte) (Message, error) {
	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	switch {
	case env.Type == "pong":
		return KeepAliveAck{}, nil

	case env.Status == "error" || env.Error != "":
		msg := env.Message
		if msg == "" {
			msg = env.Error
		}
		return ErrorReport{Message: msg}, nil

	case env.Type == "newTransaction":
		ev, ok := buildEvent(&env)
		if !ok {
			return Unrecognized{Type: env.Type}, nil
		}
		return TransactionMessage{Event: ev}, nil

	default:
		return Unrecognized{Type: env.Type}, nil
	}
}

// buildEvent maps the nested transaction payload onto a TransactionEvent.
// Frames missing the payload or carrying a malformed mint address do not
// qualify as transactions.
func buildEvent(env *wireEnvelope) (*domain.TransactionEvent, bool) {
	if env.Data == nil || env.Data.Tx == nil || env.Data.Tx.Tx == nil {
		return nil, false
	}
	tx := env.Data.Tx.Tx
	mint := env.Data.Tx.Mint
	if mint == nil || !solana.IsValidPubkey(mint.OnchainID) {
		return nil, false
	}

	ev := &domain.TransactionEvent{
		Kind:            domain.TxKind(tx.TxType),
		TxID:            tx.TxID,
		Mint:            mint.OnchainID,
		Seller:          tx.SellerID,
		Buyer:           tx.BuyerID,
		GrossAmountUnit: tx.GrossAmountUnit,
		Source:          tx.Source,
		CollectionSlug:  mint.Slug,
		Name:            mint.Name,
	}
	if tx.GrossAmount != nil {
		amt := int64(*tx.GrossAmount)
		ev.GrossAmount = &amt
	}
	if mint.Owner != nil || mint.ImageURI != nil || len(mint.Attributes) > 0 {
		ev.Metadata = &domain.MintMetadata{
			Owner:      mint.Owner,
			ImageURL:   mint.ImageURI,
			Attributes: mint.Attributes,
		}
	}
	return ev, true
}
