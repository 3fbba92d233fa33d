package paychannels

// Group buckets channels the way the checkout presents them.
type Group string

const (
	GroupQRIS             Group = "qris"
	GroupVirtualAccount   Group = "virtual_account"
	GroupEwallet          Group = "ewallet"
	GroupConvenienceStore Group = "convenience_store"
	GroupBalance          Group = "balance"
)

// MethodBalance pays from the account balance instead of an external
// channel. Only available to authenticated users.
const MethodBalance = "BALANCE"

// Channel is one way to pay. MinAmount is the smallest total the acquirer
// accepts on that rail.
type Channel struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	Group     Group  `json:"group"`
	MinAmount int64  `json:"minAmount"`
}

// The registry is static. Availability is decided per order by Eligible,
// never by mutating this list.
var channels = []Channel{
	{Code: "qris", Name: "QRIS", Group: GroupQRIS, MinAmount: 1000},

	{Code: "bca", Name: "BCA Virtual Account", Group: GroupVirtualAccount, MinAmount: 10000},
	{Code: "mandiri", Name: "Mandiri Virtual Account", Group: GroupVirtualAccount, MinAmount: 10000},
	{Code: "bni", Name: "BNI Virtual Account", Group: GroupVirtualAccount, MinAmount: 10000},
	{Code: "bri", Name: "BRI Virtual Account", Group: GroupVirtualAccount, MinAmount: 10000},
	{Code: "cimb", Name: "CIMB Niaga Virtual Account", Group: GroupVirtualAccount, MinAmount: 10000},
	{Code: "permata", Name: "Permata Virtual Account", Group: GroupVirtualAccount, MinAmount: 10000},

	{Code: "dana", Name: "DANA", Group: GroupEwallet, MinAmount: 10000},
	{Code: "ovo", Name: "OVO", Group: GroupEwallet, MinAmount: 10000},
	{Code: "shopeepay", Name: "ShopeePay", Group: GroupEwallet, MinAmount: 10000},
	{Code: "linkaja", Name: "LinkAja", Group: GroupEwallet, MinAmount: 10000},

	{Code: "indomaret", Name: "Indomaret", Group: GroupConvenienceStore, MinAmount: 10000},
	{Code: "alfamart", Name: "Alfamart", Group: GroupConvenienceStore, MinAmount: 10000},
}

// groupOrder is the presentation order of the checkout sections.
var groupOrder = []Group{GroupQRIS, GroupVirtualAccount, GroupEwallet, GroupConvenienceStore}

// All returns every external channel.
func All() []Channel {
	return append([]Channel(nil), channels...)
}

// Find resolves a channel by code.
func Find(code string) (Channel, bool) {
	for _, ch := range channels {
		if ch.Code == code {
			return ch, true
		}
	}
	return Channel{}, false
}

// Eligible returns the channels that accept the given total.
func Eligible(total int64) []Channel {
	out := make([]Channel, 0, len(channels))
	for _, ch := range channels {
		if total >= ch.MinAmount {
			out = append(out, ch)
		}
	}
	return out
}

// Section is one checkout group with its eligible channels.
type Section struct {
	Group    Group     `json:"group"`
	Channels []Channel `json:"channels"`
}

// Grouped returns the eligible channels in presentation order. Groups with
// no eligible channel are omitted.
func Grouped(total int64) []Section {
	byGroup := make(map[Group][]Channel)
	for _, ch := range Eligible(total) {
		byGroup[ch.Group] = append(byGroup[ch.Group], ch)
	}
	out := make([]Section, 0, len(groupOrder))
	for _, g := range groupOrder {
		if list := byGroup[g]; len(list) > 0 {
			out = append(out, Section{Group: g, Channels: list})
		}
	}
	return out
}
