package ofx

import (
	"strconv"
	"strings"
	"time"

	"github.com/lestrrat-go/ofx/node"
	"github.com/shopspring/decimal"
)

// FI identifies a financial institution on the wire
type FI struct {
	Org string
	FID string
}

// SignOnResponse is the decoded SONRS aggregate
type SignOnResponse struct {
	Status          Status
	ServerDate      time.Time
	UserKey         string
	UserKeyExpires  time.Time
	Language        string
	ProfileUpdated  time.Time
	AccountsUpdated time.Time
	FI              FI
	SessionCookie   string
	AccessKey       string
}

// AccountKind tells the account aggregates apart
type AccountKind int

const (
	AccountUnknown AccountKind = iota
	AccountBank
	AccountCreditCard
	AccountInvestment
	AccountBillPay
)

func (k AccountKind) String() string {
	switch k {
	case AccountBank:
		return "bank"
	case AccountCreditCard:
		return "credit card"
	case AccountInvestment:
		return "investment"
	case AccountBillPay:
		return "bill pay"
	default:
		return "unknown"
	}
}

// AccountRef is the content of BANKACCTFROM, CCACCTFROM or INVACCTFROM
type AccountRef struct {
	Kind        AccountKind
	BankID      string
	BranchID    string
	BrokerID    string
	AccountID   string
	AccountType string
}

// AccountInfo is one entry of a sign-up account list
type AccountInfo struct {
	AccountRef
	Description      string
	Phone            string
	ServiceStatus    string
	SupportsDownload bool
}

// SignUpResponse is the decoded ACCTINFORS aggregate
type SignUpResponse struct {
	Status          Status
	AccountsUpdated time.Time
	Accounts        []AccountInfo
}

// MFAChallenge is a question the server wants answered before sign-on
type MFAChallenge struct {
	PhraseID string
	Label    string
}

// MFAChallengeAnswer pairs a challenge with the user's answer
type MFAChallengeAnswer struct {
	PhraseID string
	Answer   string
}

// MFAChallengeResponse is the decoded MFACHALLENGETRNRS aggregate
type MFAChallengeResponse struct {
	Status     Status
	Challenges []MFAChallenge
}

// PinChangeResponse is the decoded PINCHTRNRS aggregate
type PinChangeResponse struct {
	Status  Status
	UserID  string
	Changed time.Time
}

// MessageSet is one entry of a profile's MSGSETLIST
type MessageSet struct {
	// Name is the aggregate name, such as BANKMSGSET
	Name        string
	Version     string
	URL         string
	SignOnRealm string
}

// SignOnInfo describes a sign-on realm's password rules
type SignOnInfo struct {
	Realm                 string
	Min                   int
	Max                   int
	CharType              string
	CaseSensitive         bool
	Special               bool
	Spaces                bool
	PinChange             bool
	ChangePinFirst        bool
	UserCred1Label        string
	UserCred2Label        string
	ClientUIDRequired     bool
	AuthTokenFirst        bool
	AuthTokenLabel        string
	AuthTokenInfoURL      string
	MFAChallengeSupported bool
	MFAChallengeFirst     bool
	AccessTokenRequired   bool
}

// ProfileResponse is the decoded PROFRS aggregate
type ProfileResponse struct {
	Status      Status
	Updated     time.Time
	FIName      string
	Address     []string
	City        string
	State       string
	PostalCode  string
	Country     string
	Phone       string
	URL         string
	Email       string
	MessageSets []MessageSet
	SignOnInfo  []SignOnInfo
}

// FindMessageSet returns the message set with the given name, such as
// BANKMSGSET
func (p *ProfileResponse) FindMessageSet(name string) (MessageSet, bool) {
	for _, ms := range p.MessageSets {
		if ms.Name == name {
			return ms, true
		}
	}
	return MessageSet{}, false
}

// FindSignOnInfo returns the rules of the named realm
func (p *ProfileResponse) FindSignOnInfo(realm string) (SignOnInfo, bool) {
	for _, info := range p.SignOnInfo {
		if info.Realm == realm {
			return info, true
		}
	}
	return SignOnInfo{}, false
}

// DateText parses the text at path below e as an OFX date. Missing or
// malformed dates yield the zero time.
func DateText(e *node.Element, path string) time.Time {
	s := e.ChildText(path)
	if s == "" {
		return time.Time{}
	}
	t, err := ParseDate(s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// ParseAmount reads an OFX amount. Some servers use a comma as the
// decimal separator.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	} else {
		s = strings.ReplaceAll(s, ",", "")
	}
	s = strings.TrimPrefix(s, "+")
	return decimal.NewFromString(s)
}

// AmountText parses the text at path below e as an amount. ok is false
// when the element is missing or malformed.
func AmountText(e *node.Element, path string) (decimal.Decimal, bool) {
	s := e.ChildText(path)
	if s == "" {
		return decimal.Zero, false
	}
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func yesNo(e *node.Element, path string) bool {
	return strings.EqualFold(e.ChildText(path), "Y")
}

func intText(e *node.Element, path string) int {
	v, _ := strconv.Atoi(e.ChildText(path))
	return v
}

// DecodeAccountRef decodes BANKACCTFROM, CCACCTFROM, INVACCTFROM or
// their *ACCTTO counterparts
func DecodeAccountRef(e *node.Element) AccountRef {
	ref := AccountRef{
		BankID:      e.ChildText("BANKID"),
		BranchID:    e.ChildText("BRANCHID"),
		BrokerID:    e.ChildText("BROKERID"),
		AccountID:   e.ChildText("ACCTID"),
		AccountType: e.ChildText("ACCTTYPE"),
	}
	switch e.LocalName() {
	case "BANKACCTFROM", "BANKACCTTO":
		ref.Kind = AccountBank
	case "CCACCTFROM", "CCACCTTO":
		ref.Kind = AccountCreditCard
	case "INVACCTFROM":
		ref.Kind = AccountInvestment
	}
	return ref
}

// SignOnResponse decodes SIGNONMSGSRSV1/SONRS, or returns nil when the
// document has none
func (d *Document) SignOnResponse() *SignOnResponse {
	sonrs := d.Lookup("SIGNONMSGSRSV1/SONRS")
	if sonrs == nil {
		return nil
	}
	return &SignOnResponse{
		Status:          StatusFromElement(sonrs),
		ServerDate:      DateText(sonrs, "DTSERVER"),
		UserKey:         sonrs.ChildText("USERKEY"),
		UserKeyExpires:  DateText(sonrs, "TSKEYEXPIRE"),
		Language:        sonrs.ChildText("LANGUAGE"),
		ProfileUpdated:  DateText(sonrs, "DTPROFUP"),
		AccountsUpdated: DateText(sonrs, "DTACCTUP"),
		FI: FI{
			Org: sonrs.ChildText("FI/ORG"),
			FID: sonrs.ChildText("FI/FID"),
		},
		SessionCookie: sonrs.ChildText("SESSCOOKIE"),
		AccessKey:     sonrs.ChildText("ACCESSKEY"),
	}
}

// SignUpResponse decodes the first SIGNUPMSGSRSV1/ACCTINFOTRNRS
func (d *Document) SignUpResponse() *SignUpResponse {
	trnrs := d.Lookup("SIGNUPMSGSRSV1/ACCTINFOTRNRS")
	if trnrs == nil {
		return nil
	}
	res := &SignUpResponse{Status: StatusFromElement(trnrs)}
	rs := trnrs.FindChild("ACCTINFORS")
	if rs == nil {
		return res
	}
	res.AccountsUpdated = DateText(rs, "DTACCTUP")
	for _, info := range rs.FindChildren("ACCTINFO") {
		for c := range info.ChildElements() {
			var from string
			switch c.LocalName() {
			case "BANKACCTINFO", "BPACCTINFO":
				from = "BANKACCTFROM"
			case "CCACCTINFO":
				from = "CCACCTFROM"
			case "INVACCTINFO":
				from = "INVACCTFROM"
			default:
				continue
			}
			ai := AccountInfo{
				Description:      info.ChildText("DESC"),
				Phone:            info.ChildText("PHONE"),
				ServiceStatus:    c.ChildText("SVCSTATUS"),
				SupportsDownload: yesNo(c, "SUPTXDL"),
			}
			if ref := c.FindChild(from); ref != nil {
				ai.AccountRef = DecodeAccountRef(ref)
			}
			if c.LocalName() == "BPACCTINFO" {
				ai.Kind = AccountBillPay
			} else if c.LocalName() == "INVACCTINFO" {
				ai.SupportsDownload = true
			}
			res.Accounts = append(res.Accounts, ai)
		}
	}
	return res
}

// MFAChallengeResponse decodes SIGNONMSGSRSV1/MFACHALLENGETRNRS
func (d *Document) MFAChallengeResponse() *MFAChallengeResponse {
	trnrs := d.Lookup("SIGNONMSGSRSV1/MFACHALLENGETRNRS")
	if trnrs == nil {
		return nil
	}
	res := &MFAChallengeResponse{Status: StatusFromElement(trnrs)}
	for _, c := range trnrs.FindChild("MFACHALLENGERS").FindChildren("MFACHALLENGE") {
		res.Challenges = append(res.Challenges, MFAChallenge{
			PhraseID: c.ChildText("MFAPHRASEID"),
			Label:    c.ChildText("MFAPHRASELABEL"),
		})
	}
	return res
}

// PinChangeResponse decodes SIGNONMSGSRSV1/PINCHTRNRS
func (d *Document) PinChangeResponse() *PinChangeResponse {
	trnrs := d.Lookup("SIGNONMSGSRSV1/PINCHTRNRS")
	if trnrs == nil {
		return nil
	}
	return &PinChangeResponse{
		Status:  StatusFromElement(trnrs),
		UserID:  trnrs.ChildText("PINCHRS/USERID"),
		Changed: DateText(trnrs, "PINCHRS/DTCHANGED"),
	}
}

// ProfileResponse decodes PROFMSGSRSV1/PROFTRNRS
func (d *Document) ProfileResponse() *ProfileResponse {
	trnrs := d.Lookup("PROFMSGSRSV1/PROFTRNRS")
	if trnrs == nil {
		return nil
	}
	res := &ProfileResponse{Status: StatusFromElement(trnrs)}
	rs := trnrs.FindChild("PROFRS")
	if rs == nil {
		return res
	}
	res.Updated = DateText(rs, "DTPROFUP")
	res.FIName = rs.ChildText("FINAME")
	for _, name := range []string{"ADDR1", "ADDR2", "ADDR3"} {
		if v := rs.ChildText(name); v != "" {
			res.Address = append(res.Address, v)
		}
	}
	res.City = rs.ChildText("CITY")
	res.State = rs.ChildText("STATE")
	res.PostalCode = rs.ChildText("POSTALCODE")
	res.Country = rs.ChildText("COUNTRY")
	res.Phone = rs.ChildText("CSPHONE")
	res.URL = rs.ChildText("URL")
	res.Email = rs.ChildText("EMAIL")

	for ms := range rs.FindChild("MSGSETLIST").ChildElements() {
		// each *MSGSET wraps one or more versioned *MSGSETVn
		for v := range ms.ChildElements() {
			core := v.FindChild("MSGSETCORE")
			if core == nil {
				continue
			}
			res.MessageSets = append(res.MessageSets, MessageSet{
				Name:        ms.LocalName(),
				Version:     core.ChildText("VER"),
				URL:         core.ChildText("URL"),
				SignOnRealm: core.ChildText("SIGNONREALM"),
			})
		}
	}

	for _, info := range rs.FindChild("SIGNONINFOLIST").FindChildren("SIGNONINFO") {
		res.SignOnInfo = append(res.SignOnInfo, SignOnInfo{
			Realm:                 info.ChildText("SIGNONREALM"),
			Min:                   intText(info, "MIN"),
			Max:                   intText(info, "MAX"),
			CharType:              info.ChildText("CHARTYPE"),
			CaseSensitive:         yesNo(info, "CASESEN"),
			Special:               yesNo(info, "SPECIAL"),
			Spaces:                yesNo(info, "SPACES"),
			PinChange:             yesNo(info, "PINCH"),
			ChangePinFirst:        yesNo(info, "CHGPINFIRST"),
			UserCred1Label:        info.ChildText("USERCRED1LABEL"),
			UserCred2Label:        info.ChildText("USERCRED2LABEL"),
			ClientUIDRequired:     yesNo(info, "CLIENTUIDREQ"),
			AuthTokenFirst:        yesNo(info, "AUTHTOKENFIRST"),
			AuthTokenLabel:        info.ChildText("AUTHTOKENLABEL"),
			AuthTokenInfoURL:      info.ChildText("AUTHTOKENINFOURL"),
			MFAChallengeSupported: yesNo(info, "MFACHALLENGESUPT"),
			MFAChallengeFirst:     yesNo(info, "MFACHALLENGEFIRST"),
			AccessTokenRequired:   yesNo(info, "ACCESSTOKENREQ"),
		})
	}
	return res
}
