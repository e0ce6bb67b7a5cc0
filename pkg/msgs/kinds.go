// Package msgs decodes the Any payloads of a transaction into typed Akash and
// Cosmos messages. Every supported type url maps to exactly one Kind; several
// protocol versions can share a Kind when their payloads carry the same data.
package msgs

import (
	"errors"
	"strings"
)

// ErrUnknownType is returned by Decode for type urls without a Kind.
var ErrUnknownType = errors.New("unknown message type")

// Kind identifies a message family independently of its protocol version.
type Kind uint8

const (
	KindUnknown Kind = iota

	KindCreateDeployment
	KindDepositDeployment
	KindUpdateDeployment
	KindCloseDeployment
	KindCloseGroup
	KindPauseGroup
	KindStartGroup

	KindCreateBid
	KindCloseBid
	KindCreateLease
	KindCloseLease
	KindWithdrawLease

	KindCreateProvider
	KindUpdateProvider
	KindDeleteProvider
	KindSignProviderAttributes
	KindDeleteProviderAttributes

	KindCreateValidator
	KindEditValidator

	KindSend
	KindMultiSend

	KindSubmitProposal
)

var kindNames = map[Kind]string{
	KindCreateDeployment:         "MsgCreateDeployment",
	KindDepositDeployment:        "MsgDepositDeployment",
	KindUpdateDeployment:         "MsgUpdateDeployment",
	KindCloseDeployment:          "MsgCloseDeployment",
	KindCloseGroup:               "MsgCloseGroup",
	KindPauseGroup:               "MsgPauseGroup",
	KindStartGroup:               "MsgStartGroup",
	KindCreateBid:                "MsgCreateBid",
	KindCloseBid:                 "MsgCloseBid",
	KindCreateLease:              "MsgCreateLease",
	KindCloseLease:               "MsgCloseLease",
	KindWithdrawLease:            "MsgWithdrawLease",
	KindCreateProvider:           "MsgCreateProvider",
	KindUpdateProvider:           "MsgUpdateProvider",
	KindDeleteProvider:           "MsgDeleteProvider",
	KindSignProviderAttributes:   "MsgSignProviderAttributes",
	KindDeleteProviderAttributes: "MsgDeleteProviderAttributes",
	KindCreateValidator:          "MsgCreateValidator",
	KindEditValidator:            "MsgEditValidator",
	KindSend:                     "MsgSend",
	KindMultiSend:                "MsgMultiSend",
	KindSubmitProposal:           "MsgSubmitProposal",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "Unknown"
}

// version is the akash api generation a payload was encoded with. It only
// matters for deployment group specs, whose resource layout changed in v1beta3.
type version uint8

const (
	v1beta2 version = iota + 2
	v1beta3
	v1beta4
)

type typeInfo struct {
	kind    Kind
	version version
}

var typeURLs = map[string]typeInfo{}

func register(kind Kind, versions []version, pkg string, name string) {
	for _, v := range versions {
		url := "/" + strings.ReplaceAll(pkg, "{v}", v.String()) + "." + name
		typeURLs[url] = typeInfo{kind: kind, version: v}
	}
}

func (v version) String() string {
	switch v {
	case v1beta2:
		return "v1beta2"
	case v1beta3:
		return "v1beta3"
	case v1beta4:
		return "v1beta4"
	}
	return "v1beta1"
}

func init() {
	deployment := []version{v1beta2, v1beta3}
	register(KindCreateDeployment, deployment, "akash.deployment.{v}", "MsgCreateDeployment")
	register(KindDepositDeployment, deployment, "akash.deployment.{v}", "MsgDepositDeployment")
	register(KindUpdateDeployment, deployment, "akash.deployment.{v}", "MsgUpdateDeployment")
	register(KindCloseDeployment, deployment, "akash.deployment.{v}", "MsgCloseDeployment")
	register(KindCloseGroup, deployment, "akash.deployment.{v}", "MsgCloseGroup")
	register(KindPauseGroup, deployment, "akash.deployment.{v}", "MsgPauseGroup")
	register(KindStartGroup, deployment, "akash.deployment.{v}", "MsgStartGroup")

	market := []version{v1beta2, v1beta3, v1beta4}
	register(KindCreateBid, market, "akash.market.{v}", "MsgCreateBid")
	register(KindCloseBid, market, "akash.market.{v}", "MsgCloseBid")
	register(KindCreateLease, market, "akash.market.{v}", "MsgCreateLease")
	register(KindCloseLease, market, "akash.market.{v}", "MsgCloseLease")
	register(KindWithdrawLease, market, "akash.market.{v}", "MsgWithdrawLease")

	provider := []version{v1beta2, v1beta3}
	register(KindCreateProvider, provider, "akash.provider.{v}", "MsgCreateProvider")
	register(KindUpdateProvider, provider, "akash.provider.{v}", "MsgUpdateProvider")
	register(KindDeleteProvider, provider, "akash.provider.{v}", "MsgDeleteProvider")
	register(KindSignProviderAttributes, provider, "akash.audit.{v}", "MsgSignProviderAttributes")
	register(KindDeleteProviderAttributes, provider, "akash.audit.{v}", "MsgDeleteProviderAttributes")

	typeURLs["/cosmos.staking.v1beta1.MsgCreateValidator"] = typeInfo{kind: KindCreateValidator}
	typeURLs["/cosmos.staking.v1beta1.MsgEditValidator"] = typeInfo{kind: KindEditValidator}
	typeURLs["/cosmos.bank.v1beta1.MsgSend"] = typeInfo{kind: KindSend}
	typeURLs["/cosmos.bank.v1beta1.MsgMultiSend"] = typeInfo{kind: KindMultiSend}
	typeURLs["/cosmos.gov.v1beta1.MsgSubmitProposal"] = typeInfo{kind: KindSubmitProposal}
}

// KindOf maps a type url to its Kind, KindUnknown when unsupported.
func KindOf(typeURL string) Kind {
	return typeURLs[typeURL].kind
}

// TypeURLs lists every supported type url.
func TypeURLs() []string {
	out := make([]string, 0, len(typeURLs))
	for u := range typeURLs {
		out = append(out, u)
	}
	return out
}
