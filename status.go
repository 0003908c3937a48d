package ofx

import (
	"strconv"
	"strings"

	"github.com/lestrrat-go/ofx/node"
)

// Status codes with special handling
const (
	StatusOK              = 0
	StatusClientUpToDate  = 1
	StatusMFARequired     = 3000
	StatusMFAInvalid      = 3001
	StatusUserPassLockout = 15502
	StatusSignOnInvalid   = 15500
	StatusMustChangePass  = 15000
)

// Status is the STATUS aggregate found in every response wrapper
type Status struct {
	Code     int
	Severity string
	Message  string
}

// OK reports a zero code
func (s Status) OK() bool {
	return s.Code == StatusOK
}

// Err returns a *StatusError for a non-zero code, and nil otherwise
func (s Status) Err(element string) error {
	if s.OK() {
		return nil
	}
	return &StatusError{Status: s, Element: element}
}

// StatusFromElement decodes a STATUS aggregate. parent may be the
// STATUS element itself or the wrapper that contains it. A missing
// STATUS decodes as success.
func StatusFromElement(parent *node.Element) Status {
	st := parent
	if st != nil && st.LocalName() != "STATUS" {
		st = st.FindChild("STATUS")
	}
	if st == nil {
		return Status{Severity: "INFO"}
	}
	code, err := strconv.Atoi(strings.TrimSpace(st.ChildText("CODE")))
	if err != nil {
		code = StatusOK
	}
	s := Status{
		Code:     code,
		Severity: strings.ToUpper(st.ChildText("SEVERITY")),
		Message:  st.ChildText("MESSAGE"),
	}
	if s.Severity == "" {
		s.Severity = "INFO"
		if code != StatusOK {
			s.Severity = "ERROR"
		}
	}
	return s
}

var statusMessages = map[int]string{
	0:     "Success",
	1:     "Client is up-to-date",
	2000:  "General error",
	2001:  "Invalid account",
	2002:  "General account error",
	2003:  "Account not found",
	2004:  "Account closed",
	2005:  "Account not authorized",
	2006:  "Source account not found",
	2007:  "Source account closed",
	2008:  "Source account not authorized",
	2009:  "Destination account not found",
	2010:  "Destination account closed",
	2011:  "Destination account not authorized",
	2012:  "Invalid amount",
	2014:  "Date too soon",
	2015:  "Date too far in future",
	2016:  "Transaction already committed",
	2017:  "Already canceled",
	2018:  "Unknown server ID",
	2019:  "Duplicate request",
	2020:  "Invalid date",
	2021:  "Unsupported version",
	2022:  "Invalid TAN",
	2023:  "Unknown FITID",
	2025:  "Branch ID missing",
	2026:  "Bank name does not match bank ID",
	2027:  "Invalid date range",
	2028:  "Requested element unknown",
	3000:  "MFA challenge authentication is required",
	3001:  "MFA challenge information is invalid",
	6500:  "Y0 not available, use Y1",
	6501:  "Embedded transactions in request failed to process: Out of date",
	6502:  "Unable to process embedded transaction due to out-of-date",
	10000: "Stop check in process",
	10500: "Too many checks to process",
	10501: "Invalid payee",
	10502: "Invalid payee address",
	10503: "Invalid payee account number",
	10504: "Insufficient funds",
	10505: "Cannot modify element",
	10506: "Cannot modify source account",
	10507: "Cannot modify destination account",
	10508: "Invalid frequency",
	10509: "Model already canceled",
	10510: "Invalid payee ID",
	10511: "Invalid payee city",
	10512: "Invalid payee state",
	10513: "Invalid payee postal code",
	10514: "Transaction already processed",
	10515: "Payee not modifiable by client",
	10516: "Wire beneficiary invalid",
	10517: "Invalid payee name",
	10518: "Unknown model ID",
	10519: "Invalid payee list ID",
	12250: "Investment transaction download not supported",
	12251: "Investment position download not supported",
	12252: "Investment positions for specified date not available",
	12253: "Investment open order download not supported",
	12254: "Investment balances download not supported",
	12255: "401(k) not available for this account",
	12500: "One or more securities not found",
	13000: "User ID & password will be sent out-of-band",
	13500: "Unable to enroll user",
	13501: "User already enrolled",
	13502: "Invalid service",
	13503: "Cannot change user information",
	13504: "FI missing or invalid in SONRQ",
	14500: "1099 forms not available",
	14501: "1099 forms not available for user ID",
	14600: "W2 forms not available",
	14601: "W2 forms not available for user ID",
	14700: "1098 forms not available",
	14701: "1098 forms not available for user ID",
	15000: "Must change USERPASS",
	15500: "Signon invalid",
	15501: "Customer account already in use",
	15502: "USERPASS lockout",
	15503: "Could not change USERPASS",
	15504: "Could not provide random data",
	15505: "Country system not available",
	15506: "Empty signon not supported",
	15507: "Signon invalid without supporting pin change request",
	15508: "Transaction not authorized",
	15510: "CLIENTUID error",
	15511: "MFA error",
	15512: "AUTHTOKEN required",
	15513: "AUTHTOKEN invalid",
	16500: "HTML not allowed",
	16501: "Unknown mail To:",
	16502: "Invalid URL",
	16503: "Unable to get URL",
}

// StatusMessage returns the standard meaning of an OFX status code
func StatusMessage(code int) string {
	if msg, ok := statusMessages[code]; ok {
		return msg
	}
	return "Unknown status code " + strconv.Itoa(code)
}
