package dnsprobe

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

// These assert the exact literal per-record-type message formats spec.md
// §6.1 specifies, independent of any real resolution.

func TestFormatIPRecords(t *testing.T) {
	ips := []net.IP{net.ParseIP("192.0.2.1"), net.ParseIP("192.0.2.2")}
	assert.Equal(t, "Records: 192.0.2.1 | 192.0.2.2", formatIPRecords(ips))
}

func TestFormatIPRecordsSingle(t *testing.T) {
	ips := []net.IP{net.ParseIP("2001:db8::1")}
	assert.Equal(t, "Records: 2001:db8::1", formatIPRecords(ips))
}

func TestFormatCNAME(t *testing.T) {
	assert.Equal(t, "alias.example.com.", formatCNAME("alias.example.com."))
}

func TestFormatTXT(t *testing.T) {
	assert.Equal(t, "Records: v=spf1 include:_spf.example.com ~all | google-site-verification=abc123",
		formatTXT([]string{"v=spf1 include:_spf.example.com ~all", "google-site-verification=abc123"}))
}

func TestFormatMX(t *testing.T) {
	recs := []*net.MX{
		{Host: "mail1.example.com.", Pref: 10},
		{Host: "mail2.example.com.", Pref: 20},
	}
	assert.Equal(t, "Hostname: mail1.example.com. - Priority: 10 | Hostname: mail2.example.com. - Priority: 20", formatMX(recs))
}

func TestFormatNS(t *testing.T) {
	recs := []*net.NS{{Host: "ns1.example.com."}, {Host: "ns2.example.com."}}
	assert.Equal(t, "Servers: ns1.example.com. | ns2.example.com.", formatNS(recs))
}

func TestFormatPTR(t *testing.T) {
	assert.Equal(t, "Records: host.example.com.", formatPTR([]string{"host.example.com."}))
}

func TestFormatSRV(t *testing.T) {
	recs := []*net.SRV{
		{Target: "sip.example.com.", Port: 5060, Priority: 10, Weight: 60},
	}
	assert.Equal(t, "Name: sip.example.com. | Port: 5060 | Priority: 10 | Weight: 60", formatSRV(recs))
}

func TestFormatSRVMultiple(t *testing.T) {
	recs := []*net.SRV{
		{Target: "a.example.com.", Port: 1, Priority: 1, Weight: 1},
		{Target: "b.example.com.", Port: 2, Priority: 2, Weight: 2},
	}
	assert.Equal(t, "Name: a.example.com. | Port: 1 | Priority: 1 | Weight: 1 | Name: b.example.com. | Port: 2 | Priority: 2 | Weight: 2", formatSRV(recs))
}
