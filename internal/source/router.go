package source

import (
	"strings"
	"time"
)

// Default alert senders per network
var (
	VenmoSenders   = []string{"venmo@venmo.com"}
	CashAppSenders = []string{"cash@square.com"}
	PayPalSenders  = []string{"service@paypal.com", "service@intl.paypal.com"}
	ZelleSenders   = []string{
		"no.reply.alerts@chase.com",
		"onlinebanking@ealerts.bankofamerica.com",
		"alerts@notify.wellsfargo.com",
	}
)

// Route binds sender addresses to the parser for their receipts
type Route struct {
	Senders []string
	Parser  EmailParser
}

// DefaultRoutes wires the four receipt parsers. An empty zelleSenders uses ZelleSenders.
func DefaultRoutes(loc *time.Location, now Clock, zelleSenders []string) []Route {
	if len(zelleSenders) == 0 {
		zelleSenders = ZelleSenders
	}
	return []Route{
		{Senders: VenmoSenders, Parser: NewVenmoEmailParser(loc, now)},
		{Senders: CashAppSenders, Parser: NewCashAppEmailParser(loc)},
		{Senders: PayPalSenders, Parser: NewPayPalEmailParser(loc)},
		{Senders: zelleSenders, Parser: NewZelleEmailParser(loc)},
	}
}

// EmailRouter hands each message to exactly one receipt parser
type EmailRouter struct {
	bySender map[string]EmailParser
}

func NewEmailRouter(routes ...Route) *EmailRouter {
	r := &EmailRouter{bySender: make(map[string]EmailParser)}
	for _, route := range routes {
		for _, sender := range route.Senders {
			r.bySender[strings.ToLower(strings.TrimSpace(sender))] = route.Parser
		}
	}
	return r
}

// Identify picks the parser for a message by its sender, then by the sender
// quoted in a forwarded body. It returns nil for unknown senders.
func (r *EmailRouter) Identify(msg *Email) EmailParser {
	if p, ok := r.bySender[msg.Sender()]; ok {
		return p
	}
	if forwarded := msg.ForwardedSender(); forwarded != "" {
		return r.bySender[forwarded]
	}
	return nil
}

// Route parses a raw message. A nil result means the message is not a payment
// receipt from any known network and belongs elsewhere.
func (r *EmailRouter) Route(raw []byte) *Result {
	msg, err := ParseEmail(raw)
	if msg == nil {
		return nil
	}

	parser := r.Identify(msg)
	if parser == nil {
		return nil
	}
	if err != nil {
		res := skip(parser.Method(), 0, SkipMalformed, "%v", err)
		return &res
	}

	res := parser.Parse(msg)
	return &res
}
