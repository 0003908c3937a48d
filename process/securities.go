package process

import (
	"context"
	"time"

	"github.com/lestrrat-go/ofx"
	"github.com/lestrrat-go/ofx/node"
	"github.com/lestrrat-go/ofx/store"
	"github.com/shopspring/decimal"
)

// securityInfo is a SECINFO entry of the response. It lives only as
// long as the batch.
type securityInfo struct {
	UniqueID     string
	UniqueIDType string
	Name         string
	Ticker       string
	Price        decimal.Decimal
	PriceDate    time.Time
}

func readSecurityList(root *node.Element) map[string]*securityInfo {
	m := make(map[string]*securityInfo)
	list := root.Lookup("SECLISTMSGSRSV1/SECLIST")
	for entry := range list.ChildElements() {
		si := entry.FindChild("SECINFO")
		if si == nil {
			continue
		}
		info := &securityInfo{
			UniqueID:     si.ChildText("SECID/UNIQUEID"),
			UniqueIDType: si.ChildText("SECID/UNIQUEIDTYPE"),
			Name:         si.ChildText("SECNAME"),
			Ticker:       si.ChildText("TICKER"),
			PriceDate:    ofx.DateText(si, "DTASOF"),
		}
		if info.UniqueID == "" {
			continue
		}
		if p, ok := ofx.AmountText(si, "UNITPRICE"); ok {
			info.Price = p
		}
		if _, dup := m[info.UniqueID]; !dup {
			m[info.UniqueID] = info
		}
	}
	return m
}

// security returns the store security for a unique id, creating it
// from the SECLIST entry when it is new
func (b *batch) security(ctx context.Context, uid string) (*store.Security, error) {
	if uid == "" {
		return nil, nil
	}
	if s, ok := b.securities[uid]; ok {
		return s, nil
	}
	info := b.secinfo[uid]

	s, err := b.store.FindSecurityByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if s == nil && info != nil && info.Ticker != "" {
		if s, err = b.store.FindSymbol(ctx, info.Ticker); err != nil {
			return nil, err
		}
	}
	if s == nil {
		name := uid
		if info != nil && info.Name != "" {
			name = info.Name
		}
		if s, err = b.store.FindSecurity(ctx, name, true); err != nil {
			return nil, err
		}
	}

	changed := false
	if s.UniqueID == "" {
		s.UniqueID = uid
		changed = true
	}
	if info != nil {
		if s.UniqueIDType == "" && info.UniqueIDType != "" {
			s.UniqueIDType = info.UniqueIDType
			changed = true
		}
		if s.Symbol == "" && info.Ticker != "" {
			s.Symbol = info.Ticker
			changed = true
		}
	}
	if changed {
		if err := b.store.UpdateSecurity(ctx, s); err != nil {
			return nil, err
		}
	}
	b.securities[uid] = s
	return s, nil
}

// updatePrice records a quote unless the security has a newer one
func (b *batch) updatePrice(ctx context.Context, s *store.Security, price decimal.Decimal, asOf time.Time) error {
	if s == nil || !price.IsPositive() {
		return nil
	}
	if !s.PriceDate.IsZero() && asOf.Before(s.PriceDate) {
		return nil
	}
	s.Price = price
	s.PriceDate = asOf
	return b.store.UpdateSecurity(ctx, s)
}

// updatePrices applies the SECLIST quotes and then the position prices
// of stmt
func (b *batch) updatePrices(ctx context.Context, stmt *node.Element) error {
	for uid, info := range b.secinfo {
		if !info.Price.IsPositive() {
			continue
		}
		s, err := b.security(ctx, uid)
		if err != nil {
			return err
		}
		if err := b.updatePrice(ctx, s, info.Price, info.PriceDate); err != nil {
			return err
		}
	}

	for pos := range stmt.FindChild("INVPOSLIST").ChildElements() {
		inv := pos.FindChild("INVPOS")
		if inv == nil {
			continue
		}
		s, err := b.security(ctx, inv.ChildText("SECID/UNIQUEID"))
		if err != nil {
			return err
		}
		price, ok := ofx.AmountText(inv, "UNITPRICE")
		if !ok {
			continue
		}
		if err := b.updatePrice(ctx, s, price, ofx.DateText(inv, "DTPRICEASOF")); err != nil {
			return err
		}
	}
	return nil
}
