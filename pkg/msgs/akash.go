package msgs

import (
	"fmt"
	"strconv"

	"github.com/akashx/akashx/pkg/txdecode"
	"github.com/shopspring/decimal"
)

type DeploymentID struct {
	Owner string
	DSeq  uint64
}

func (id DeploymentID) String() string {
	return id.Owner + "/" + strconv.FormatUint(id.DSeq, 10)
}

type GroupID struct {
	Owner string
	DSeq  uint64
	GSeq  uint32
}

func (id GroupID) Deployment() DeploymentID {
	return DeploymentID{Owner: id.Owner, DSeq: id.DSeq}
}

type OrderID struct {
	Owner string
	DSeq  uint64
	GSeq  uint32
	OSeq  uint32
}

// BidID also identifies the lease created from the bid.
type BidID struct {
	Owner    string
	DSeq     uint64
	GSeq     uint32
	OSeq     uint32
	Provider string
}

func (id BidID) Group() GroupID {
	return GroupID{Owner: id.Owner, DSeq: id.DSeq, GSeq: id.GSeq}
}

func (id BidID) Deployment() DeploymentID {
	return DeploymentID{Owner: id.Owner, DSeq: id.DSeq}
}

type LeaseID = BidID

// ResourceUnit is one entry of a group spec, quantities per unit.
type ResourceUnit struct {
	CPUUnits        uint64 // thousandths of a cpu
	MemoryQuantity  uint64 // bytes
	StorageQuantity uint64 // bytes, summed over volumes
	GPUUnits        uint64
	Count           uint32
	Price           txdecode.Coin
}

type GroupSpec struct {
	Name      string
	Resources []ResourceUnit
}

type Attribute struct {
	Key   string
	Value string
}

type MsgCreateDeployment struct {
	ID        DeploymentID
	Groups    []GroupSpec
	Version   []byte
	Deposit   txdecode.Coin
	Depositor string
}

type MsgDepositDeployment struct {
	ID        DeploymentID
	Amount    txdecode.Coin
	Depositor string
}

type MsgUpdateDeployment struct {
	ID      DeploymentID
	Version []byte
}

type MsgCloseDeployment struct {
	ID DeploymentID
}

type MsgCloseGroup struct{ ID GroupID }
type MsgPauseGroup struct{ ID GroupID }
type MsgStartGroup struct{ ID GroupID }

type MsgCreateBid struct {
	Order    OrderID
	Provider string
	Price    txdecode.Coin
	Deposit  txdecode.Coin
}

type MsgCloseBid struct{ ID BidID }
type MsgCreateLease struct{ ID BidID }
type MsgCloseLease struct{ ID LeaseID }
type MsgWithdrawLease struct{ ID LeaseID }

type MsgCreateProvider struct {
	Owner      string
	HostURI    string
	Attributes []Attribute
	Email      string
	Website    string
}

type MsgUpdateProvider MsgCreateProvider

type MsgDeleteProvider struct {
	Owner string
}

type MsgSignProviderAttributes struct {
	Owner      string
	Auditor    string
	Attributes []Attribute
}

type MsgDeleteProviderAttributes struct {
	Owner   string
	Auditor string
	Keys    []string
}

func (MsgCreateDeployment) Kind() Kind         { return KindCreateDeployment }
func (MsgDepositDeployment) Kind() Kind        { return KindDepositDeployment }
func (MsgUpdateDeployment) Kind() Kind         { return KindUpdateDeployment }
func (MsgCloseDeployment) Kind() Kind          { return KindCloseDeployment }
func (MsgCloseGroup) Kind() Kind               { return KindCloseGroup }
func (MsgPauseGroup) Kind() Kind               { return KindPauseGroup }
func (MsgStartGroup) Kind() Kind               { return KindStartGroup }
func (MsgCreateBid) Kind() Kind                { return KindCreateBid }
func (MsgCloseBid) Kind() Kind                 { return KindCloseBid }
func (MsgCreateLease) Kind() Kind              { return KindCreateLease }
func (MsgCloseLease) Kind() Kind               { return KindCloseLease }
func (MsgWithdrawLease) Kind() Kind            { return KindWithdrawLease }
func (MsgCreateProvider) Kind() Kind           { return KindCreateProvider }
func (MsgUpdateProvider) Kind() Kind           { return KindUpdateProvider }
func (MsgDeleteProvider) Kind() Kind           { return KindDeleteProvider }
func (MsgSignProviderAttributes) Kind() Kind   { return KindSignProviderAttributes }
func (MsgDeleteProviderAttributes) Kind() Kind { return KindDeleteProviderAttributes }

// ids

func decodeDeploymentID(b []byte) (DeploymentID, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return DeploymentID{}, err
	}
	var id DeploymentID
	for _, f := range fs {
		switch f.Num {
		case 1:
			id.Owner = f.Str()
		case 2:
			id.DSeq = f.Varint
		}
	}
	return id, nil
}

func decodeGroupID(b []byte) (GroupID, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return GroupID{}, err
	}
	var id GroupID
	for _, f := range fs {
		switch f.Num {
		case 1:
			id.Owner = f.Str()
		case 2:
			id.DSeq = f.Varint
		case 3:
			id.GSeq = uint32(f.Varint)
		}
	}
	return id, nil
}

// decodeBidID reads OrderID, BidID and LeaseID, which share their leading fields.
func decodeBidID(b []byte) (BidID, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return BidID{}, err
	}
	var id BidID
	for _, f := range fs {
		switch f.Num {
		case 1:
			id.Owner = f.Str()
		case 2:
			id.DSeq = f.Varint
		case 3:
			id.GSeq = uint32(f.Varint)
		case 4:
			id.OSeq = uint32(f.Varint)
		case 5:
			id.Provider = f.Str()
		}
	}
	return id, nil
}

// resources

// resourceValue reads an akash ResourceValue{val} whose val is an integer string.
func resourceValue(b []byte) (uint64, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return 0, err
	}
	for _, f := range fs {
		if f.Num == 1 {
			s := f.Str()
			if s == "" {
				return 0, nil
			}
			v, err := strconv.ParseUint(s, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: resource value %q", txdecode.ErrMalformedInput, s)
			}
			return v, nil
		}
	}
	return 0, nil
}

// quantity reads the first field of a CPU, Memory or GPU message.
func quantity(b []byte) (uint64, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return 0, err
	}
	for _, f := range fs {
		if f.Num == 1 {
			return resourceValue(f.Bytes)
		}
	}
	return 0, nil
}

func storageQuantity(b []byte) (uint64, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return 0, err
	}
	for _, f := range fs {
		if f.Num == 2 {
			return resourceValue(f.Bytes)
		}
	}
	return 0, nil
}

// decodeResources reads ResourceUnits (v1beta2) or Resources (v1beta3). The
// latter prepended an id field, shifting every other field by one.
func decodeResources(b []byte, v version, ru *ResourceUnit) error {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return err
	}
	shift := 0
	if v >= v1beta3 {
		shift = 1
	}
	for _, f := range fs {
		switch int(f.Num) - shift {
		case 1:
			if ru.CPUUnits, err = quantity(f.Bytes); err != nil {
				return err
			}
		case 2:
			if ru.MemoryQuantity, err = quantity(f.Bytes); err != nil {
				return err
			}
		case 3:
			q, err := storageQuantity(f.Bytes)
			if err != nil {
				return err
			}
			ru.StorageQuantity += q
		case 4:
			if v >= v1beta3 {
				if ru.GPUUnits, err = quantity(f.Bytes); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func decodeResourceUnit(b []byte, v version) (ResourceUnit, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return ResourceUnit{}, err
	}
	var ru ResourceUnit
	for _, f := range fs {
		switch f.Num {
		case 1:
			if err := decodeResources(f.Bytes, v, &ru); err != nil {
				return ResourceUnit{}, err
			}
		case 2:
			ru.Count = uint32(f.Varint)
		case 3:
			if ru.Price, err = txdecode.DecodeDecCoin(f.Bytes); err != nil {
				return ResourceUnit{}, err
			}
		}
	}
	return ru, nil
}

func decodeGroupSpec(b []byte, v version) (GroupSpec, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return GroupSpec{}, err
	}
	var g GroupSpec
	for _, f := range fs {
		switch f.Num {
		case 1:
			g.Name = f.Str()
		case 3:
			ru, err := decodeResourceUnit(f.Bytes, v)
			if err != nil {
				return GroupSpec{}, err
			}
			g.Resources = append(g.Resources, ru)
		}
	}
	return g, nil
}

func decodeAttribute(b []byte) (Attribute, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return Attribute{}, err
	}
	var a Attribute
	for _, f := range fs {
		switch f.Num {
		case 1:
			a.Key = f.Str()
		case 2:
			a.Value = f.Str()
		}
	}
	return a, nil
}

// messages

func decodeCreateDeployment(b []byte, v version) (MsgCreateDeployment, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return MsgCreateDeployment{}, err
	}
	m := MsgCreateDeployment{Deposit: txdecode.Coin{Amount: decimal.Zero}}
	for _, f := range fs {
		switch f.Num {
		case 1:
			m.ID, err = decodeDeploymentID(f.Bytes)
		case 2:
			var g GroupSpec
			if g, err = decodeGroupSpec(f.Bytes, v); err == nil {
				m.Groups = append(m.Groups, g)
			}
		case 3:
			m.Version = f.Bytes
		case 4:
			m.Deposit, err = txdecode.DecodeCoin(f.Bytes)
		case 5:
			m.Depositor = f.Str()
		}
		if err != nil {
			return MsgCreateDeployment{}, err
		}
	}
	return m, nil
}

func decodeDepositDeployment(b []byte) (MsgDepositDeployment, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return MsgDepositDeployment{}, err
	}
	m := MsgDepositDeployment{Amount: txdecode.Coin{Amount: decimal.Zero}}
	for _, f := range fs {
		switch f.Num {
		case 1:
			m.ID, err = decodeDeploymentID(f.Bytes)
		case 2:
			m.Amount, err = txdecode.DecodeCoin(f.Bytes)
		case 3:
			m.Depositor = f.Str()
		}
		if err != nil {
			return MsgDepositDeployment{}, err
		}
	}
	return m, nil
}

func decodeUpdateDeployment(b []byte) (MsgUpdateDeployment, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return MsgUpdateDeployment{}, err
	}
	var m MsgUpdateDeployment
	for _, f := range fs {
		switch f.Num {
		case 1:
			if m.ID, err = decodeDeploymentID(f.Bytes); err != nil {
				return MsgUpdateDeployment{}, err
			}
		case 3:
			m.Version = f.Bytes
		}
	}
	return m, nil
}

// firstField returns the bytes of field 1, the id of most single-id messages.
func firstField(b []byte) ([]byte, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return nil, err
	}
	for _, f := range fs {
		if f.Num == 1 {
			return f.Bytes, nil
		}
	}
	return nil, nil
}

func decodeCreateBid(b []byte) (MsgCreateBid, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return MsgCreateBid{}, err
	}
	m := MsgCreateBid{Price: txdecode.Coin{Amount: decimal.Zero}, Deposit: txdecode.Coin{Amount: decimal.Zero}}
	for _, f := range fs {
		switch f.Num {
		case 1:
			var id BidID
			if id, err = decodeBidID(f.Bytes); err == nil {
				m.Order = OrderID{Owner: id.Owner, DSeq: id.DSeq, GSeq: id.GSeq, OSeq: id.OSeq}
			}
		case 2:
			m.Provider = f.Str()
		case 3:
			m.Price, err = txdecode.DecodeDecCoin(f.Bytes)
		case 4:
			m.Deposit, err = txdecode.DecodeCoin(f.Bytes)
		}
		if err != nil {
			return MsgCreateBid{}, err
		}
	}
	return m, nil
}

func decodeProvider(b []byte) (MsgCreateProvider, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return MsgCreateProvider{}, err
	}
	var m MsgCreateProvider
	for _, f := range fs {
		switch f.Num {
		case 1:
			m.Owner = f.Str()
		case 2:
			m.HostURI = f.Str()
		case 3:
			a, err := decodeAttribute(f.Bytes)
			if err != nil {
				return MsgCreateProvider{}, err
			}
			m.Attributes = append(m.Attributes, a)
		case 4:
			info, err := txdecode.Fields(f.Bytes)
			if err != nil {
				return MsgCreateProvider{}, err
			}
			for _, i := range info {
				switch i.Num {
				case 1:
					m.Email = i.Str()
				case 2:
					m.Website = i.Str()
				}
			}
		}
	}
	return m, nil
}

func decodeSignAttributes(b []byte) (MsgSignProviderAttributes, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return MsgSignProviderAttributes{}, err
	}
	var m MsgSignProviderAttributes
	for _, f := range fs {
		switch f.Num {
		case 1:
			m.Owner = f.Str()
		case 2:
			m.Auditor = f.Str()
		case 3:
			a, err := decodeAttribute(f.Bytes)
			if err != nil {
				return MsgSignProviderAttributes{}, err
			}
			m.Attributes = append(m.Attributes, a)
		}
	}
	return m, nil
}

func decodeDeleteAttributes(b []byte) (MsgDeleteProviderAttributes, error) {
	fs, err := txdecode.Fields(b)
	if err != nil {
		return MsgDeleteProviderAttributes{}, err
	}
	var m MsgDeleteProviderAttributes
	for _, f := range fs {
		switch f.Num {
		case 1:
			m.Owner = f.Str()
		case 2:
			m.Auditor = f.Str()
		case 3:
			m.Keys = append(m.Keys, f.Str())
		}
	}
	return m, nil
}
