package msgs

import (
	"fmt"

	"github.com/akashx/akashx/pkg/txdecode"
)

// Msg is implemented by every typed message.
type Msg interface {
	Kind() Kind
}

// Decode parses value according to typeURL.
func Decode(typeURL string, value []byte) (Msg, error) {
	info, ok := typeURLs[typeURL]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, typeURL)
	}
	m, err := decode(info, value)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", typeURL, err)
	}
	return m, nil
}

// DecodeAny is Decode for a txdecode.Any.
func DecodeAny(a txdecode.Any) (Msg, error) {
	return Decode(a.TypeURL, a.Value)
}

func decode(info typeInfo, b []byte) (Msg, error) {
	switch info.kind {
	case KindCreateDeployment:
		return decodeCreateDeployment(b, info.version)
	case KindDepositDeployment:
		return decodeDepositDeployment(b)
	case KindUpdateDeployment:
		return decodeUpdateDeployment(b)
	case KindCloseDeployment:
		id, err := idField(b, decodeDeploymentID)
		return MsgCloseDeployment{ID: id}, err
	case KindCloseGroup:
		id, err := idField(b, decodeGroupID)
		return MsgCloseGroup{ID: id}, err
	case KindPauseGroup:
		id, err := idField(b, decodeGroupID)
		return MsgPauseGroup{ID: id}, err
	case KindStartGroup:
		id, err := idField(b, decodeGroupID)
		return MsgStartGroup{ID: id}, err
	case KindCreateBid:
		return decodeCreateBid(b)
	case KindCloseBid:
		id, err := idField(b, decodeBidID)
		return MsgCloseBid{ID: id}, err
	case KindCreateLease:
		id, err := idField(b, decodeBidID)
		return MsgCreateLease{ID: id}, err
	case KindCloseLease:
		id, err := idField(b, decodeBidID)
		return MsgCloseLease{ID: id}, err
	case KindWithdrawLease:
		id, err := idField(b, decodeBidID)
		return MsgWithdrawLease{ID: id}, err
	case KindCreateProvider:
		return decodeProvider(b)
	case KindUpdateProvider:
		m, err := decodeProvider(b)
		return MsgUpdateProvider(m), err
	case KindDeleteProvider:
		fs, err := txdecode.Fields(b)
		if err != nil {
			return nil, err
		}
		var m MsgDeleteProvider
		for _, f := range fs {
			if f.Num == 1 {
				m.Owner = f.Str()
			}
		}
		return m, nil
	case KindSignProviderAttributes:
		return decodeSignAttributes(b)
	case KindDeleteProviderAttributes:
		return decodeDeleteAttributes(b)
	case KindCreateValidator:
		return decodeCreateValidator(b)
	case KindEditValidator:
		return decodeEditValidator(b)
	case KindSend:
		return decodeSend(b)
	case KindMultiSend:
		return decodeMultiSend(b)
	case KindSubmitProposal:
		return decodeSubmitProposal(b)
	case KindUnknown:
	}
	return nil, ErrUnknownType
}

func idField[T any](b []byte, fn func([]byte) (T, error)) (T, error) {
	var zero T
	inner, err := firstField(b)
	if err != nil {
		return zero, err
	}
	return fn(inner)
}
