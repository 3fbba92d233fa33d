package paychannels

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFind(t *testing.T) {
	ch, ok := Find("qris")
	assert.True(t, ok)
	assert.Equal(t, GroupQRIS, ch.Group)
	assert.Equal(t, int64(1000), ch.MinAmount)

	_, ok = Find("paypal")
	assert.False(t, ok)
}

func TestEligibleBelowAllMinimums(t *testing.T) {
	assert.Empty(t, Eligible(500))
}

func TestEligibleSmallTotalOnlyQRIS(t *testing.T) {
	list := Eligible(5000)
	assert.Len(t, list, 1)
	assert.Equal(t, "qris", list[0].Code)
}

func TestEligibleFullTotal(t *testing.T) {
	list := Eligible(10000)
	assert.Equal(t, len(All()), len(list))
}

func TestGroupedOmitsEmptyGroups(t *testing.T) {
	sections := Grouped(5000)
	assert.Len(t, sections, 1)
	assert.Equal(t, GroupQRIS, sections[0].Group)
}

func TestGroupedOrder(t *testing.T) {
	sections := Grouped(25000)
	groups := make([]Group, 0, len(sections))
	for _, s := range sections {
		groups = append(groups, s.Group)
	}
	assert.Equal(t, []Group{GroupQRIS, GroupVirtualAccount, GroupEwallet, GroupConvenienceStore}, groups)
}

func TestAllReturnsCopy(t *testing.T) {
	list := All()
	list[0].Code = "mutated"
	again := All()
	assert.Equal(t, "qris", again[0].Code)
}
